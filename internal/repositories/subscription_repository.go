package repositories

import (
	"errors"
	"fmt"
	"time"

	"scale_backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrPlanNotFound         = errors.New("plan not found")
	ErrPlanSlugTaken        = errors.New("plan slug already taken")
)

type SubscriptionRepository interface {
	// Plan operations
	CreatePlan(db *gorm.DB, plan *models.Plan) error
	FindPlanByID(db *gorm.DB, id string) (*models.Plan, error)
	FindActivePlans(db *gorm.DB) ([]models.Plan, error)
	UpdatePlan(db *gorm.DB, id string, updates map[string]interface{}) error

	// Subscription operations
	FindByUser(db *gorm.DB, userID string) (*models.Subscription, error)
	CountByUser(db *gorm.DB, userID string) (int64, error)
	// UpsertForUser атомарно создает или перезаписывает единственную подписку
	// пользователя. created=true, если строка была вставлена.
	// Ожидает транзакцию: INSERT ... ON CONFLICT DO NOTHING и UPDATE идут в ней же.
	UpsertForUser(db *gorm.DB, sub *models.Subscription) (created bool, err error)
}

type SubscriptionRepositoryImpl struct{}

func NewSubscriptionRepository() SubscriptionRepository {
	return &SubscriptionRepositoryImpl{}
}

// ---------------- Plans ----------------

func (r *SubscriptionRepositoryImpl) CreatePlan(db *gorm.DB, plan *models.Plan) error {
	// is_active=false - нулевое значение, gorm подставил бы default:true
	active := plan.IsActive
	if err := db.Create(plan).Error; err != nil {
		if IsUniqueViolation(err) {
			return ErrPlanSlugTaken
		}
		return fmt.Errorf("create plan: %w", err)
	}
	if !active {
		if err := db.Model(plan).Update("is_active", false).Error; err != nil {
			return fmt.Errorf("deactivate plan: %w", err)
		}
		plan.IsActive = false
	}
	return nil
}

func (r *SubscriptionRepositoryImpl) FindPlanByID(db *gorm.DB, id string) (*models.Plan, error) {
	var plan models.Plan
	if err := db.First(&plan, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, fmt.Errorf("find plan: %w", err)
	}
	return &plan, nil
}

func (r *SubscriptionRepositoryImpl) FindActivePlans(db *gorm.DB) ([]models.Plan, error) {
	var plans []models.Plan
	err := db.Where("is_active = ?", true).
		Order("price_monthly ASC").
		Order("slug ASC").
		Find(&plans).Error
	if err != nil {
		return nil, fmt.Errorf("find active plans: %w", err)
	}
	return plans, nil
}

func (r *SubscriptionRepositoryImpl) UpdatePlan(db *gorm.DB, id string, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	result := db.Model(&models.Plan{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		if IsUniqueViolation(result.Error) {
			return ErrPlanSlugTaken
		}
		return fmt.Errorf("update plan: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrPlanNotFound
	}
	return nil
}

// ---------------- Subscriptions ----------------

func (r *SubscriptionRepositoryImpl) FindByUser(db *gorm.DB, userID string) (*models.Subscription, error) {
	var sub models.Subscription
	if err := db.Preload("Plan").Where("user_id = ?", userID).First(&sub).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("find subscription: %w", err)
	}
	return &sub, nil
}

func (r *SubscriptionRepositoryImpl) CountByUser(db *gorm.DB, userID string) (int64, error) {
	var count int64
	if err := db.Model(&models.Subscription{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count subscriptions: %w", err)
	}
	return count, nil
}

func (r *SubscriptionRepositoryImpl) UpsertForUser(db *gorm.DB, sub *models.Subscription) (bool, error) {
	insert := db.Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoNothing: true,
		}).
		Create(sub)
	if insert.Error != nil {
		// План проверяется сервисом в той же транзакции, остается только пользователь.
		if IsForeignKeyViolation(insert.Error) {
			return false, ErrUserNotFound
		}
		return false, fmt.Errorf("insert subscription: %w", insert.Error)
	}
	created := insert.RowsAffected == 1

	if !created {
		// Строка уже есть (или ее только что вставил конкурент): перезаписываем на месте.
		update := db.Model(&models.Subscription{}).
			Where("user_id = ?", sub.UserID).
			Updates(map[string]interface{}{
				"plan_id":           sub.PlanID,
				"billing_period":    sub.BillingPeriod,
				"status":            sub.Status,
				"next_billing_date": sub.NextBillingDate,
				"updated_at":        time.Now(),
			})
		if update.Error != nil {
			return false, fmt.Errorf("update subscription: %w", update.Error)
		}
	}

	var stored models.Subscription
	if err := db.Preload("Plan").Where("user_id = ?", sub.UserID).First(&stored).Error; err != nil {
		return false, fmt.Errorf("reload subscription: %w", err)
	}
	*sub = stored
	return created, nil
}
