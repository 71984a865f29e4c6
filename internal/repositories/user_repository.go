package repositories

import (
	"errors"
	"fmt"

	"scale_backend/internal/models"

	"gorm.io/gorm"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")
	ErrReferralCodeTaken = errors.New("referral code already taken")
)

type UserRepository interface {
	Create(db *gorm.DB, user *models.User) error
	FindByID(db *gorm.DB, id string) (*models.User, error)
	FindByEmail(db *gorm.DB, email string) (*models.User, error)
	FindByReferralCode(db *gorm.DB, code string) (*models.User, error)
	ReferralCodeExists(db *gorm.DB, code string) (bool, error)
	SetReferralCode(db *gorm.DB, userID, code string) error
	UpdateProfile(db *gorm.DB, userID string, updates map[string]interface{}) error
	// DeleteCascade удаляет пользователя вместе с его рефералами, подпиской и проектами.
	// Ожидает транзакцию.
	DeleteCascade(db *gorm.DB, userID string) error
}

type UserRepositoryImpl struct{}

func NewUserRepository() UserRepository {
	return &UserRepositoryImpl{}
}

func (r *UserRepositoryImpl) Create(db *gorm.DB, user *models.User) error {
	if err := db.Create(user).Error; err != nil {
		if IsUniqueViolationOn(err, "referral_code") {
			return ErrReferralCodeTaken
		}
		if IsUniqueViolation(err) {
			return ErrUserAlreadyExists
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *UserRepositoryImpl) FindByID(db *gorm.DB, id string) (*models.User, error) {
	var user models.User
	if err := db.First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return &user, nil
}

func (r *UserRepositoryImpl) FindByEmail(db *gorm.DB, email string) (*models.User, error) {
	var user models.User
	if err := db.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return &user, nil
}

func (r *UserRepositoryImpl) FindByReferralCode(db *gorm.DB, code string) (*models.User, error) {
	var user models.User
	if err := db.Where("referral_code = ?", code).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("find user by referral code: %w", err)
	}
	return &user, nil
}

func (r *UserRepositoryImpl) ReferralCodeExists(db *gorm.DB, code string) (bool, error) {
	var count int64
	if err := db.Model(&models.User{}).Where("referral_code = ?", code).Count(&count).Error; err != nil {
		return false, fmt.Errorf("check referral code: %w", err)
	}
	return count > 0, nil
}

// SetReferralCode записывает код только если он еще не выдан.
// Внутри внешней транзакции выполняется под SAVEPOINT, чтобы коллизия кода
// не ломала всю транзакцию в Postgres.
func (r *UserRepositoryImpl) SetReferralCode(db *gorm.DB, userID, code string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.User{}).
			Where("id = ? AND referral_code IS NULL", userID).
			Update("referral_code", code)
		if result.Error != nil {
			if IsUniqueViolation(result.Error) {
				return ErrReferralCodeTaken
			}
			return fmt.Errorf("set referral code: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrUserNotFound
		}
		return nil
	})
}

func (r *UserRepositoryImpl) UpdateProfile(db *gorm.DB, userID string, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	result := db.Model(&models.User{}).Where("id = ?", userID).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("update user: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *UserRepositoryImpl) DeleteCascade(db *gorm.DB, userID string) error {
	if err := db.Where("referrer_id = ? OR referred_user_id = ?", userID, userID).
		Delete(&models.Referral{}).Error; err != nil {
		return fmt.Errorf("delete referrals: %w", err)
	}
	if err := db.Where("user_id = ?", userID).Delete(&models.Subscription{}).Error; err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}
	if err := db.Where("user_id = ?", userID).Delete(&models.Project{}).Error; err != nil {
		return fmt.Errorf("delete projects: %w", err)
	}
	result := db.Where("id = ?", userID).Delete(&models.User{})
	if result.Error != nil {
		return fmt.Errorf("delete user: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}
