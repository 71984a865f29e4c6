package services

import (
	"context"
	"errors"
	"strings"

	"scale_backend/internal/logger"
	"scale_backend/internal/metrics"
	"scale_backend/internal/models"
	"scale_backend/internal/repositories"
	"scale_backend/internal/services/dto"
	"scale_backend/pkg/apperrors"

	"gorm.io/gorm"
)

type ReferralService interface {
	// EnsureReferralCode выдает код пользователю без кода. Повторный вызов
	// возвращает уже выданный код без изменений.
	EnsureReferralCode(ctx context.Context, db *gorm.DB, user *models.User) (string, error)
	// NewReferralCode выдает свободный код, не привязывая его к пользователю.
	NewReferralCode(ctx context.Context, db *gorm.DB) (string, error)

	RecordReferral(ctx context.Context, db *gorm.DB, referrerID, referredUserID, code string) (*models.Referral, error)
	ReferralsFor(ctx context.Context, db *gorm.DB, referrerID string) (*dto.ReferralListResponse, error)

	LinkSummary(ctx context.Context, db *gorm.DB, userID string) (*dto.ReferralLinkResponse, error)
	DetailedStats(ctx context.Context, db *gorm.DB, userID string) (*dto.ReferralStatsResponse, error)

	ReferralLink(code string) *string
}

type ReferralServiceImpl struct {
	referralRepo repositories.ReferralRepository
	userRepo     repositories.UserRepository
	baseURL      string
}

func NewReferralService(
	referralRepo repositories.ReferralRepository,
	userRepo repositories.UserRepository,
	baseURL string,
) ReferralService {
	return &ReferralServiceImpl{
		referralRepo: referralRepo,
		userRepo:     userRepo,
		baseURL:      strings.TrimRight(baseURL, "/"),
	}
}

// ReferralLink - "<base>/ref/<code>", nil если кода нет.
func (s *ReferralServiceImpl) ReferralLink(code string) *string {
	if code == "" {
		return nil
	}
	link := s.baseURL + "/ref/" + code
	return &link
}

// ---------------- Referral codes ----------------

func (s *ReferralServiceImpl) NewReferralCode(ctx context.Context, db *gorm.DB) (string, error) {
	db = db.WithContext(ctx)
	code, err := IssueReferralCode(func(candidate string) (bool, error) {
		return s.userRepo.ReferralCodeExists(db, candidate)
	})
	if err != nil {
		logger.CtxError(ctx, "Failed to issue referral code", "error", err)
		return "", apperrors.InternalError(err)
	}
	return code, nil
}

// referralCodeAttempts - сколько раз выдаем новый код, если кандидат успели занять
// между проверкой и записью.
const referralCodeAttempts = 2

func (s *ReferralServiceImpl) EnsureReferralCode(ctx context.Context, db *gorm.DB, user *models.User) (string, error) {
	if user.HasReferralCode() {
		return user.Code(), nil
	}

	for attempt := 1; ; attempt++ {
		code, err := s.NewReferralCode(ctx, db)
		if err != nil {
			return "", err
		}

		err = s.userRepo.SetReferralCode(db.WithContext(ctx), user.ID, code)
		switch {
		case err == nil:
			user.ReferralCode = &code
			return code, nil
		case errors.Is(err, repositories.ErrReferralCodeTaken):
			if attempt >= referralCodeAttempts {
				return "", apperrors.InternalError(err)
			}
			logger.CtxWarn(ctx, "Referral code collision, issuing another", "user_id", user.ID, "attempt", attempt)
		case errors.Is(err, repositories.ErrUserNotFound):
			// Код мог выдать конкурентный запрос: перечитываем пользователя.
			stored, findErr := s.userRepo.FindByID(db.WithContext(ctx), user.ID)
			if findErr != nil {
				return "", translateRepoError(findErr)
			}
			if !stored.HasReferralCode() {
				return "", apperrors.ErrUserNotFound
			}
			user.ReferralCode = stored.ReferralCode
			return stored.Code(), nil
		default:
			return "", apperrors.InternalError(err)
		}
	}
}

// ---------------- Referral ledger ----------------

func (s *ReferralServiceImpl) RecordReferral(ctx context.Context, db *gorm.DB, referrerID, referredUserID, code string) (*models.Referral, error) {
	db = db.WithContext(ctx)

	if referrerID == referredUserID {
		return nil, apperrors.ErrSelfReferral
	}
	if _, err := s.userRepo.FindByID(db, referrerID); err != nil {
		return nil, translateRepoError(err)
	}
	if _, err := s.userRepo.FindByID(db, referredUserID); err != nil {
		return nil, translateRepoError(err)
	}

	exists, err := s.referralRepo.ExistsForReferredUser(db, referredUserID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	if exists {
		metrics.DuplicateReferrals.Inc()
		return nil, apperrors.ErrDuplicateReferral
	}

	referral := &models.Referral{
		ReferrerID:     referrerID,
		ReferredUserID: referredUserID,
		ReferralCode:   code,
		Status:         models.ReferralStatusPending,
	}
	if err := s.referralRepo.Create(db, referral); err != nil {
		if errors.Is(err, repositories.ErrDuplicateReferral) {
			// Проиграли гонку с параллельной регистрацией.
			metrics.DuplicateReferrals.Inc()
			logger.CtxWarn(ctx, "Duplicate referral caught by unique index", "referred_user_id", referredUserID)
		}
		return nil, translateRepoError(err)
	}

	metrics.ReferralsRecorded.Inc()
	logger.CtxInfo(ctx, "Referral recorded", "referrer_id", referrerID, "referred_user_id", referredUserID)
	return referral, nil
}

func (s *ReferralServiceImpl) ReferralsFor(ctx context.Context, db *gorm.DB, referrerID string) (*dto.ReferralListResponse, error) {
	referrals, err := s.referralRepo.FindByReferrer(db.WithContext(ctx), referrerID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	items := make([]dto.ReferralResponse, 0, len(referrals))
	for i := range referrals {
		items = append(items, dto.NewReferralResponse(&referrals[i]))
	}
	return &dto.ReferralListResponse{Referrals: items, Total: len(items)}, nil
}

// ---------------- Stats ----------------

func (s *ReferralServiceImpl) LinkSummary(ctx context.Context, db *gorm.DB, userID string) (*dto.ReferralLinkResponse, error) {
	db = db.WithContext(ctx)

	user, err := s.userRepo.FindByID(db, userID)
	if err != nil {
		return nil, translateRepoError(err)
	}
	agg, err := s.referralRepo.Summary(db, userID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	return &dto.ReferralLinkResponse{
		ReferralLink:   s.ReferralLink(user.Code()),
		TotalReferrals: agg.TotalReferrals,
		TotalEarned:    agg.TotalEarned.InexactFloat64(),
	}, nil
}

func (s *ReferralServiceImpl) DetailedStats(ctx context.Context, db *gorm.DB, userID string) (*dto.ReferralStatsResponse, error) {
	agg, err := s.referralRepo.DetailedStats(db.WithContext(ctx), userID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	return &dto.ReferralStatsResponse{
		TotalReferrals:  agg.TotalReferrals,
		ActiveReferrals: agg.ActiveReferrals,
		TotalEarned:     agg.TotalEarned.InexactFloat64(),
		PendingEarnings: agg.PendingEarnings.InexactFloat64(),
	}, nil
}
