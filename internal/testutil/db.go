package testutil

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"scale_backend/internal/auth"
	"scale_backend/internal/database"
	"scale_backend/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewTestDB поднимает изолированную SQLite-базу в памяти и мигрирует все модели.
// Одно соединение: транзакции сериализуются так же, как под блокировкой строки.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}

	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// CreateUser создает пользователя с хешированным паролем.
// Если PasswordHash не похож на bcrypt, он считается сырым паролем.
func CreateUser(t *testing.T, db *gorm.DB, user *models.User) *models.User {
	t.Helper()

	if user.Email == "" {
		user.Email = fmt.Sprintf("user_%s@test.com", uuid.NewString()[:8])
	}
	if user.Role == "" {
		user.Role = models.UserRoleUser
	}
	if user.PasswordHash == "" {
		user.PasswordHash = "password123"
	}
	if !strings.HasPrefix(user.PasswordHash, "$2a$") {
		hash, err := auth.HashPassword(user.PasswordHash)
		if err != nil {
			t.Fatalf("failed to hash password: %v", err)
		}
		user.PasswordHash = hash
	}

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create user %s: %v", user.Email, err)
	}
	return user
}

// CreatePlan создает тарифный план. Пустые поля заполняются значениями по умолчанию.
func CreatePlan(t *testing.T, db *gorm.DB, slug string, monthly, yearly string, active bool) *models.Plan {
	t.Helper()

	plan := &models.Plan{
		Name:         strings.ToUpper(slug[:1]) + slug[1:],
		Slug:         slug,
		PriceMonthly: decimal.RequireFromString(monthly),
		PriceYearly:  decimal.RequireFromString(yearly),
		Features:     datatypes.JSON(`["Feature A","Feature B"]`),
		IsActive:     true,
	}
	if err := db.Create(plan).Error; err != nil {
		t.Fatalf("failed to create plan %s: %v", slug, err)
	}
	// gorm пропускает false при Create из-за default:true
	if !active {
		if err := db.Model(plan).Update("is_active", false).Error; err != nil {
			t.Fatalf("failed to deactivate plan %s: %v", slug, err)
		}
		plan.IsActive = false
	}
	return plan
}

// Token выпускает JWT для пользователя с секретом тестового конфига.
func Token(t *testing.T, secret string, user *models.User) string {
	t.Helper()

	token, err := auth.GenerateToken(secret, "scale", user.ID, string(user.Role), time.Hour)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return token
}
