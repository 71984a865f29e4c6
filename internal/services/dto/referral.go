package dto

import (
	"time"

	"scale_backend/internal/models"
)

// Денежные поля отдаются числами (float), как в публичном API.

type ReferralLinkResponse struct {
	ReferralLink   *string `json:"referral_link"`
	TotalReferrals int64   `json:"total_referrals"`
	TotalEarned    float64 `json:"total_earned"`
}

type ReferralStatsResponse struct {
	TotalReferrals  int64   `json:"total_referrals"`
	ActiveReferrals int64   `json:"active_referrals"`
	TotalEarned     float64 `json:"total_earned"`
	PendingEarnings float64 `json:"pending_earnings"`
}

type ReferralResponse struct {
	ID             string                `json:"id"`
	ReferredUserID string                `json:"referred_user_id"`
	ReferredEmail  string                `json:"referred_email,omitempty"`
	ReferralCode   string                `json:"referral_code"`
	EarnedAmount   float64               `json:"earned_amount"`
	Status         models.ReferralStatus `json:"status"`
	CreatedAt      time.Time             `json:"created_at"`
}

type ReferralListResponse struct {
	Referrals []ReferralResponse `json:"referrals"`
	Total     int                `json:"total"`
}

func NewReferralResponse(r *models.Referral) ReferralResponse {
	return ReferralResponse{
		ID:             r.ID,
		ReferredUserID: r.ReferredUserID,
		ReferredEmail:  r.ReferredUser.Email,
		ReferralCode:   r.ReferralCode,
		EarnedAmount:   r.EarnedAmount.InexactFloat64(),
		Status:         r.Status,
		CreatedAt:      r.CreatedAt,
	}
}
