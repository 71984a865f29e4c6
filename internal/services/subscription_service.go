package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"scale_backend/internal/cache"
	"scale_backend/internal/logger"
	"scale_backend/internal/metrics"
	"scale_backend/internal/models"
	"scale_backend/internal/repositories"
	"scale_backend/internal/services/dto"
	"scale_backend/pkg/apperrors"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type SubscriptionService interface {
	// Plan catalogue
	ListActivePlans(ctx context.Context, db *gorm.DB) (*dto.PlanListResponse, error)
	GetPlan(ctx context.Context, db *gorm.DB, planID string) (*dto.PlanResponse, error)
	CreatePlan(ctx context.Context, db *gorm.DB, req *dto.CreatePlanRequest) (*dto.PlanResponse, error)
	UpdatePlan(ctx context.Context, db *gorm.DB, planID string, req *dto.UpdatePlanRequest) (*dto.PlanResponse, error)

	// Subscribe создает или перезаписывает подписку пользователя.
	// created=true, если подписки раньше не было.
	Subscribe(ctx context.Context, db *gorm.DB, userID string, req *dto.SubscribeRequest) (*dto.SubscriptionResponse, bool, error)
	CurrentSubscription(ctx context.Context, db *gorm.DB, userID string) (*dto.SubscriptionResponse, error)
}

type SubscriptionServiceImpl struct {
	subscriptionRepo repositories.SubscriptionRepository
	planCache        *cache.PlanCache
	now              func() time.Time
}

func NewSubscriptionService(
	subscriptionRepo repositories.SubscriptionRepository,
	planCache *cache.PlanCache,
) SubscriptionService {
	return &SubscriptionServiceImpl{
		subscriptionRepo: subscriptionRepo,
		planCache:        planCache,
		now:              time.Now,
	}
}

// NextBillingDate - сегодняшняя дата (UTC) плюс срок периода.
func NextBillingDate(now time.Time, period models.BillingPeriod) time.Time {
	y, m, d := now.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).AddDate(0, 0, period.TermDays())
}

// ---------------- Subscriptions ----------------

func (s *SubscriptionServiceImpl) Subscribe(ctx context.Context, db *gorm.DB, userID string, req *dto.SubscribeRequest) (*dto.SubscriptionResponse, bool, error) {
	period := req.BillingPeriod
	if period == "" {
		period = models.BillingPeriodMonthly
	}
	if !period.IsValid() {
		return nil, false, apperrors.ValidationError(map[string]string{
			"billing_period": "Must be one of: monthly, yearly",
		})
	}

	// Невалидный uuid в Postgres дал бы ошибку типа, а не "не найдено".
	if !isUUID(req.PlanID) {
		return nil, false, apperrors.ErrPlanNotFound
	}

	tx := db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, false, apperrors.InternalError(tx.Error)
	}
	defer tx.Rollback()

	plan, err := s.subscriptionRepo.FindPlanByID(tx, req.PlanID)
	if err != nil {
		return nil, false, translateRepoError(err)
	}
	if !plan.IsActive {
		return nil, false, apperrors.ErrPlanNotFound
	}

	next := NextBillingDate(s.now(), period)
	sub := &models.Subscription{
		UserID:          userID,
		PlanID:          plan.ID,
		BillingPeriod:   period,
		Status:          models.SubscriptionStatusActive,
		NextBillingDate: &next,
	}

	created, err := s.subscriptionRepo.UpsertForUser(tx, sub)
	if err != nil {
		return nil, false, translateRepoError(err)
	}
	if err := tx.Commit().Error; err != nil {
		return nil, false, apperrors.InternalError(err)
	}

	result := "updated"
	if created {
		result = "created"
	}
	metrics.SubscriptionUpserts.WithLabelValues(result, string(period)).Inc()
	logger.CtxInfo(ctx, "Subscription "+result,
		"user_id", userID,
		"plan", plan.Slug,
		"billing_period", period,
	)

	resp := dto.NewSubscriptionResponse(sub)
	return &resp, created, nil
}

func (s *SubscriptionServiceImpl) CurrentSubscription(ctx context.Context, db *gorm.DB, userID string) (*dto.SubscriptionResponse, error) {
	sub, err := s.subscriptionRepo.FindByUser(db.WithContext(ctx), userID)
	if err != nil {
		return nil, translateRepoError(err)
	}
	resp := dto.NewSubscriptionResponse(sub)
	return &resp, nil
}

// ---------------- Plans ----------------

func (s *SubscriptionServiceImpl) ListActivePlans(ctx context.Context, db *gorm.DB) (*dto.PlanListResponse, error) {
	plans, err := s.planCache.GetActivePlans(ctx)
	switch {
	case err == nil:
		metrics.PlanCacheLookups.WithLabelValues("hit").Inc()
	case errors.Is(err, cache.ErrCacheMiss):
		if s.planCache.Enabled() {
			metrics.PlanCacheLookups.WithLabelValues("miss").Inc()
		}
	default:
		metrics.PlanCacheLookups.WithLabelValues("error").Inc()
		logger.CtxWarn(ctx, "Plan cache read failed, falling back to database", "error", err)
	}

	if err != nil {
		plans, err = s.subscriptionRepo.FindActivePlans(db.WithContext(ctx))
		if err != nil {
			return nil, apperrors.InternalError(err)
		}
		if cacheErr := s.planCache.SetActivePlans(ctx, plans); cacheErr != nil {
			logger.CtxWarn(ctx, "Failed to populate plan cache", "error", cacheErr)
		}
	}

	items := make([]dto.PlanResponse, 0, len(plans))
	for i := range plans {
		items = append(items, dto.NewPlanResponse(&plans[i]))
	}
	return &dto.PlanListResponse{Plans: items, Total: len(items)}, nil
}

func (s *SubscriptionServiceImpl) GetPlan(ctx context.Context, db *gorm.DB, planID string) (*dto.PlanResponse, error) {
	if !isUUID(planID) {
		return nil, apperrors.ErrPlanNotFound
	}
	plan, err := s.subscriptionRepo.FindPlanByID(db.WithContext(ctx), planID)
	if err != nil {
		return nil, translateRepoError(err)
	}
	resp := dto.NewPlanResponse(plan)
	return &resp, nil
}

func (s *SubscriptionServiceImpl) CreatePlan(ctx context.Context, db *gorm.DB, req *dto.CreatePlanRequest) (*dto.PlanResponse, error) {
	if fieldErrs := validatePrices(req.PriceMonthly.IsNegative(), req.PriceYearly.IsNegative()); fieldErrs != nil {
		return nil, apperrors.ValidationError(fieldErrs)
	}

	features, err := encodeFeatures(req.Features)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	plan := &models.Plan{
		Name:         req.Name,
		Slug:         req.Slug,
		PriceMonthly: req.PriceMonthly,
		PriceYearly:  req.PriceYearly,
		Features:     features,
		IsActive:     req.IsActive == nil || *req.IsActive,
	}

	if err := s.subscriptionRepo.CreatePlan(db.WithContext(ctx), plan); err != nil {
		return nil, translateRepoError(err)
	}
	s.invalidatePlans(ctx)

	logger.CtxInfo(ctx, "Plan created", "plan_id", plan.ID, "slug", plan.Slug)
	resp := dto.NewPlanResponse(plan)
	return &resp, nil
}

func (s *SubscriptionServiceImpl) UpdatePlan(ctx context.Context, db *gorm.DB, planID string, req *dto.UpdatePlanRequest) (*dto.PlanResponse, error) {
	if !isUUID(planID) {
		return nil, apperrors.ErrPlanNotFound
	}
	negMonthly := req.PriceMonthly != nil && req.PriceMonthly.IsNegative()
	negYearly := req.PriceYearly != nil && req.PriceYearly.IsNegative()
	if fieldErrs := validatePrices(negMonthly, negYearly); fieldErrs != nil {
		return nil, apperrors.ValidationError(fieldErrs)
	}

	updates := make(map[string]interface{})
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Slug != nil {
		updates["slug"] = *req.Slug
	}
	if req.PriceMonthly != nil {
		updates["price_monthly"] = *req.PriceMonthly
	}
	if req.PriceYearly != nil {
		updates["price_yearly"] = *req.PriceYearly
	}
	if req.Features != nil {
		features, err := encodeFeatures(req.Features)
		if err != nil {
			return nil, apperrors.InternalError(err)
		}
		updates["features"] = features
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}

	tx := db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, apperrors.InternalError(tx.Error)
	}
	defer tx.Rollback()

	if _, err := s.subscriptionRepo.FindPlanByID(tx, planID); err != nil {
		return nil, translateRepoError(err)
	}
	if err := s.subscriptionRepo.UpdatePlan(tx, planID, updates); err != nil {
		return nil, translateRepoError(err)
	}
	plan, err := s.subscriptionRepo.FindPlanByID(tx, planID)
	if err != nil {
		return nil, translateRepoError(err)
	}
	if err := tx.Commit().Error; err != nil {
		return nil, apperrors.InternalError(err)
	}
	s.invalidatePlans(ctx)

	logger.CtxInfo(ctx, "Plan updated", "plan_id", planID, "fields", len(updates))
	resp := dto.NewPlanResponse(plan)
	return &resp, nil
}

func (s *SubscriptionServiceImpl) invalidatePlans(ctx context.Context) {
	if err := s.planCache.Invalidate(ctx); err != nil {
		logger.CtxWarn(ctx, "Failed to invalidate plan cache", "error", err)
	}
}

func validatePrices(negMonthly, negYearly bool) map[string]string {
	if !negMonthly && !negYearly {
		return nil
	}
	errs := make(map[string]string)
	if negMonthly {
		errs["price_monthly"] = "Must be at least 0"
	}
	if negYearly {
		errs["price_yearly"] = "Must be at least 0"
	}
	return errs
}

func encodeFeatures(features []string) (datatypes.JSON, error) {
	if features == nil {
		features = []string{}
	}
	raw, err := json.Marshal(features)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

func isUUID(value string) bool {
	_, err := uuid.Parse(value)
	return err == nil
}
