package repositories

import (
	"errors"
	"fmt"

	"scale_backend/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrDuplicateReferral = errors.New("user has already been referred")

type ReferralRepository interface {
	// Create вставляет строку. Нарушение уникальности referred_user_id
	// (в том числе при гонке) возвращается как ErrDuplicateReferral,
	// ссылка на удаленного пользователя - как ErrUserNotFound.
	Create(db *gorm.DB, referral *models.Referral) error
	ExistsForReferredUser(db *gorm.DB, referredUserID string) (bool, error)
	FindByReferredUser(db *gorm.DB, referredUserID string) (*models.Referral, error)
	FindByReferrer(db *gorm.DB, referrerID string) ([]models.Referral, error)
	Summary(db *gorm.DB, referrerID string) (*ReferralAggregate, error)
	DetailedStats(db *gorm.DB, referrerID string) (*ReferralAggregate, error)
}

// ReferralAggregate - агрегаты по строкам одного реферрера.
// Для пустого множества все поля нулевые.
type ReferralAggregate struct {
	TotalReferrals  int64
	ActiveReferrals int64
	TotalEarned     decimal.Decimal
	PendingEarnings decimal.Decimal
}

type ReferralRepositoryImpl struct{}

func NewReferralRepository() ReferralRepository {
	return &ReferralRepositoryImpl{}
}

func (r *ReferralRepositoryImpl) Create(db *gorm.DB, referral *models.Referral) error {
	if referral.Status == "" {
		referral.Status = models.ReferralStatusPending
	}
	if err := db.Omit(clause.Associations).Create(referral).Error; err != nil {
		if IsUniqueViolation(err) {
			return ErrDuplicateReferral
		}
		if IsForeignKeyViolation(err) {
			return ErrUserNotFound
		}
		return fmt.Errorf("create referral: %w", err)
	}
	return nil
}

func (r *ReferralRepositoryImpl) ExistsForReferredUser(db *gorm.DB, referredUserID string) (bool, error) {
	var count int64
	if err := db.Model(&models.Referral{}).
		Where("referred_user_id = ?", referredUserID).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("check referral: %w", err)
	}
	return count > 0, nil
}

func (r *ReferralRepositoryImpl) FindByReferredUser(db *gorm.DB, referredUserID string) (*models.Referral, error) {
	var referral models.Referral
	if err := db.Where("referred_user_id = ?", referredUserID).First(&referral).Error; err != nil {
		return nil, fmt.Errorf("find referral: %w", err)
	}
	return &referral, nil
}

func (r *ReferralRepositoryImpl) FindByReferrer(db *gorm.DB, referrerID string) ([]models.Referral, error) {
	var referrals []models.Referral
	err := db.Preload("ReferredUser").
		Where("referrer_id = ?", referrerID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&referrals).Error
	if err != nil {
		return nil, fmt.Errorf("find referrals: %w", err)
	}
	return referrals, nil
}

// aggregate считает SUM/COUNT по строкам реферрера.
// COALESCE(..., 0) здесь единственное место, где пустое множество превращается в ноль.
func (r *ReferralRepositoryImpl) aggregate(db *gorm.DB, referrerID string, selects string, args ...interface{}) (*ReferralAggregate, error) {
	var agg ReferralAggregate
	err := db.Model(&models.Referral{}).
		Select(selects, args...).
		Where("referrer_id = ?", referrerID).
		Scan(&agg).Error
	if err != nil {
		return nil, fmt.Errorf("aggregate referrals: %w", err)
	}
	return &agg, nil
}

func (r *ReferralRepositoryImpl) Summary(db *gorm.DB, referrerID string) (*ReferralAggregate, error) {
	return r.aggregate(db, referrerID,
		"COUNT(*) AS total_referrals, COALESCE(SUM(earned_amount), 0) AS total_earned")
}

func (r *ReferralRepositoryImpl) DetailedStats(db *gorm.DB, referrerID string) (*ReferralAggregate, error) {
	return r.aggregate(db, referrerID,
		"COUNT(*) AS total_referrals, "+
			"COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS active_referrals, "+
			"COALESCE(SUM(earned_amount), 0) AS total_earned, "+
			"COALESCE(SUM(CASE WHEN status = ? THEN earned_amount ELSE 0 END), 0) AS pending_earnings",
		models.ReferralStatusActive, models.ReferralStatusPending)
}
