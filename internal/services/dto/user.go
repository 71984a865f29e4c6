package dto

import (
	"time"

	"scale_backend/internal/models"
)

// =======================
// Auth DTOs
// =======================

type RegisterRequest struct {
	Email        string `json:"email" validate:"required,email,max=254"`
	Username     string `json:"username" validate:"omitempty,max=150"`
	Password     string `json:"password" validate:"required,min=8,max=128"`
	FirstName    string `json:"first_name" validate:"omitempty,max=150"`
	LastName     string `json:"last_name" validate:"omitempty,max=150"`
	ReferralCode string `json:"referral_code" validate:"omitempty,max=20"`
}

// =======================
// Profile DTOs
// =======================

// UserResponse - профиль для /users/me
type UserResponse struct {
	ID           string               `json:"id"`
	Email        string               `json:"email"`
	Username     string               `json:"username"`
	FirstName    string               `json:"first_name"`
	LastName     string               `json:"last_name"`
	Role         models.UserRole      `json:"role"`
	Balance      int64                `json:"balance"`
	ReferralLink *string              `json:"referral_link"`
	Subscription *SubscriptionSummary `json:"subscription"`
	CreatedAt    time.Time            `json:"created_at"`
}

type SubscriptionSummary struct {
	Plan   string                    `json:"plan"`
	Status models.SubscriptionStatus `json:"status"`
}

// UpdateProfileRequest - частичное обновление, nil поля не трогаются.
type UpdateProfileRequest struct {
	Username  *string `json:"username" validate:"omitempty,max=150"`
	FirstName *string `json:"first_name" validate:"omitempty,max=150"`
	LastName  *string `json:"last_name" validate:"omitempty,max=150"`
}

// ToUpdates превращает запрос в карту колонок для gorm.
func (r *UpdateProfileRequest) ToUpdates() map[string]interface{} {
	updates := make(map[string]interface{})
	if r.Username != nil {
		updates["username"] = *r.Username
	}
	if r.FirstName != nil {
		updates["first_name"] = *r.FirstName
	}
	if r.LastName != nil {
		updates["last_name"] = *r.LastName
	}
	return updates
}
