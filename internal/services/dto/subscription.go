package dto

import (
	"time"

	"scale_backend/internal/models"

	"github.com/shopspring/decimal"
)

// =======================
// Plan DTOs
// =======================

type PlanResponse struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Slug         string    `json:"slug"`
	PriceMonthly float64   `json:"price_monthly"`
	PriceYearly  float64   `json:"price_yearly"`
	Features     []string  `json:"features"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

type PlanListResponse struct {
	Plans []PlanResponse `json:"plans"`
	Total int            `json:"total"`
}

type CreatePlanRequest struct {
	Name         string          `json:"name" validate:"required,max=100"`
	Slug         string          `json:"slug" validate:"required,max=50,is-slug"`
	PriceMonthly decimal.Decimal `json:"price_monthly"`
	PriceYearly  decimal.Decimal `json:"price_yearly"`
	Features     []string        `json:"features" validate:"omitempty,dive,required,max=200"`
	IsActive     *bool           `json:"is_active"`
}

type UpdatePlanRequest struct {
	Name         *string          `json:"name" validate:"omitempty,max=100"`
	Slug         *string          `json:"slug" validate:"omitempty,max=50,is-slug"`
	PriceMonthly *decimal.Decimal `json:"price_monthly"`
	PriceYearly  *decimal.Decimal `json:"price_yearly"`
	Features     []string         `json:"features" validate:"omitempty,dive,required,max=200"`
	IsActive     *bool            `json:"is_active"`
}

func NewPlanResponse(p *models.Plan) PlanResponse {
	return PlanResponse{
		ID:           p.ID,
		Name:         p.Name,
		Slug:         p.Slug,
		PriceMonthly: p.PriceMonthly.InexactFloat64(),
		PriceYearly:  p.PriceYearly.InexactFloat64(),
		Features:     p.FeatureList(),
		IsActive:     p.IsActive,
		CreatedAt:    p.CreatedAt,
	}
}

// =======================
// Subscription DTOs
// =======================

type SubscribeRequest struct {
	PlanID string `json:"plan_id" validate:"required,max=64"`
	// Пустое значение означает monthly.
	BillingPeriod models.BillingPeriod `json:"billing_period" validate:"omitempty,is-billing-period"`
}

type SubscriptionResponse struct {
	ID              string                    `json:"id"`
	Plan            PlanResponse              `json:"plan"`
	BillingPeriod   models.BillingPeriod      `json:"billing_period"`
	Status          models.SubscriptionStatus `json:"status"`
	NextBillingDate *string                   `json:"next_billing_date"`
	CreatedAt       time.Time                 `json:"created_at"`
}

func NewSubscriptionResponse(s *models.Subscription) SubscriptionResponse {
	resp := SubscriptionResponse{
		ID:            s.ID,
		Plan:          NewPlanResponse(&s.Plan),
		BillingPeriod: s.BillingPeriod,
		Status:        s.Status,
		CreatedAt:     s.CreatedAt,
	}
	if s.NextBillingDate != nil {
		d := s.NextBillingDate.Format(time.DateOnly)
		resp.NextBillingDate = &d
	}
	return resp
}
