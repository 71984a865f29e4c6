package repositories

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"scale_backend/internal/models"
	"scale_backend/internal/testutil"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"gorm duplicated key", fmt.Errorf("wrap: %w", gorm.ErrDuplicatedKey), true},
		{"postgres unique", &pgconn.PgError{Code: "23505"}, true},
		{"postgres fk", &pgconn.PgError{Code: "23503"}, false},
		{"sqlite", errors.New("UNIQUE constraint failed: users.email"), true},
		{"other", errors.New("connection reset"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsUniqueViolation(tt.err))
		})
	}
}

func TestIsForeignKeyViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"gorm fk", fmt.Errorf("wrap: %w", gorm.ErrForeignKeyViolated), true},
		{"postgres fk", &pgconn.PgError{Code: "23503"}, true},
		{"postgres unique", &pgconn.PgError{Code: "23505"}, false},
		{"sqlite", errors.New("constraint failed: FOREIGN KEY constraint failed (787)"), true},
		{"other", errors.New("connection reset"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsForeignKeyViolation(tt.err))
		})
	}
}

func TestIsUniqueViolationOn(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		column string
		want   bool
	}{
		{"postgres referral code", &pgconn.PgError{Code: "23505", ConstraintName: "idx_users_referral_code"}, "referral_code", true},
		{"postgres email", &pgconn.PgError{Code: "23505", ConstraintName: "idx_users_email"}, "referral_code", false},
		{"sqlite referral code", errors.New("UNIQUE constraint failed: users.referral_code (2067)"), "referral_code", true},
		{"sqlite email", errors.New("UNIQUE constraint failed: users.email (2067)"), "referral_code", false},
		{"not unique", &pgconn.PgError{Code: "23503", ConstraintName: "idx_users_referral_code"}, "referral_code", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsUniqueViolationOn(tt.err, tt.column))
		})
	}
}

func TestUserRepository_SetReferralCodeOnlyOnce(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewUserRepository()
	user := testutil.CreateUser(t, db, &models.User{})

	require.NoError(t, repo.SetReferralCode(db, user.ID, "first"))
	assert.ErrorIs(t, repo.SetReferralCode(db, user.ID, "second"), ErrUserNotFound)

	found, err := repo.FindByReferralCode(db, "first")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)

	exists, err := repo.ReferralCodeExists(db, "second")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestUserRepository_DuplicateEmail(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewUserRepository()
	testutil.CreateUser(t, db, &models.User{Email: "dup@test.com"})

	err := repo.Create(db, &models.User{Email: "dup@test.com", PasswordHash: "x", Role: models.UserRoleUser})
	assert.ErrorIs(t, err, ErrUserAlreadyExists)
}

func TestUserRepository_DuplicateReferralCode(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewUserRepository()
	code := "TAKEN001"
	testutil.CreateUser(t, db, &models.User{ReferralCode: &code})

	clash := code
	err := repo.Create(db, &models.User{Email: "fresh@test.com", PasswordHash: "x", Role: models.UserRoleUser, ReferralCode: &clash})
	assert.ErrorIs(t, err, ErrReferralCodeTaken)
	assert.NotErrorIs(t, err, ErrUserAlreadyExists)

	other := testutil.CreateUser(t, db, &models.User{})
	assert.ErrorIs(t, repo.SetReferralCode(db, other.ID, code), ErrReferralCodeTaken)
}

func TestUserRepository_SetReferralCodeCollisionKeepsTransaction(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewUserRepository()
	code := "TAKEN002"
	testutil.CreateUser(t, db, &models.User{ReferralCode: &code})
	user := testutil.CreateUser(t, db, &models.User{})

	err := db.Transaction(func(tx *gorm.DB) error {
		require.ErrorIs(t, repo.SetReferralCode(tx, user.ID, code), ErrReferralCodeTaken)
		return repo.SetReferralCode(tx, user.ID, "FRESH002")
	})
	require.NoError(t, err)

	stored, err := repo.FindByID(db, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "FRESH002", stored.Code())
}

func TestUserRepository_DeleteCascadeRemovesProjects(t *testing.T) {
	db := testutil.NewTestDB(t)
	users := NewUserRepository()
	projects := NewProjectRepository()
	user := testutil.CreateUser(t, db, &models.User{})
	require.NoError(t, projects.Create(db, &models.Project{UserID: user.ID, Name: "Landing"}))

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return users.DeleteCascade(tx, user.ID)
	}))

	var count int64
	require.NoError(t, db.Model(&models.Project{}).Where("user_id = ?", user.ID).Count(&count).Error)
	assert.Zero(t, count)
}

func TestReferralRepository_CreateForMissingUser(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewReferralRepository()
	referrer := testutil.CreateUser(t, db, &models.User{})

	err := repo.Create(db, &models.Referral{
		ReferrerID:     referrer.ID,
		ReferredUserID: "5b0d3c2e-7a5f-4c55-9d61-0a3c4f1b2e9d",
		ReferralCode:   "x",
	})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestReferralRepository_UniqueReferredUser(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewReferralRepository()

	a := testutil.CreateUser(t, db, &models.User{})
	b := testutil.CreateUser(t, db, &models.User{})
	referred := testutil.CreateUser(t, db, &models.User{})

	first := &models.Referral{ReferrerID: a.ID, ReferredUserID: referred.ID, ReferralCode: "a"}
	require.NoError(t, repo.Create(db, first))
	assert.Equal(t, models.ReferralStatusPending, first.Status)

	err := repo.Create(db, &models.Referral{ReferrerID: b.ID, ReferredUserID: referred.ID, ReferralCode: "b"})
	assert.ErrorIs(t, err, ErrDuplicateReferral)

	stored, err := repo.FindByReferredUser(db, referred.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, stored.ReferrerID)
}

func TestReferralRepository_AggregatesEmpty(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewReferralRepository()
	user := testutil.CreateUser(t, db, &models.User{})

	agg, err := repo.DetailedStats(db, user.ID)
	require.NoError(t, err)
	assert.Zero(t, agg.TotalReferrals)
	assert.Zero(t, agg.ActiveReferrals)
	assert.True(t, agg.TotalEarned.IsZero())
	assert.True(t, agg.PendingEarnings.IsZero())
}

func TestSubscriptionRepository_UpsertForUser(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewSubscriptionRepository()

	user := testutil.CreateUser(t, db, &models.User{})
	starter := testutil.CreatePlan(t, db, "starter", "9.00", "90.00", true)
	pro := testutil.CreatePlan(t, db, "pro", "29.00", "290.00", true)

	next := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	sub := &models.Subscription{
		UserID:          user.ID,
		PlanID:          starter.ID,
		BillingPeriod:   models.BillingPeriodMonthly,
		Status:          models.SubscriptionStatusActive,
		NextBillingDate: &next,
	}
	created, err := repo.UpsertForUser(db, sub)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "starter", sub.Plan.Slug)
	firstID := sub.ID

	later := next.AddDate(1, 0, 0)
	again := &models.Subscription{
		UserID:          user.ID,
		PlanID:          pro.ID,
		BillingPeriod:   models.BillingPeriodYearly,
		Status:          models.SubscriptionStatusActive,
		NextBillingDate: &later,
	}
	created, err = repo.UpsertForUser(db, again)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, firstID, again.ID)
	assert.Equal(t, "pro", again.Plan.Slug)
	assert.Equal(t, models.BillingPeriodYearly, again.BillingPeriod)

	count, err := repo.CountByUser(db, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

// Каждый вызов в своей транзакции, как два конкурирующих запроса Subscribe:
// второй видит зафиксированную строку и уходит в ветку UPDATE.
func TestSubscriptionRepository_UpsertForUserSeparateTransactions(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewSubscriptionRepository()

	user := testutil.CreateUser(t, db, &models.User{})
	starter := testutil.CreatePlan(t, db, "starter", "9.00", "90.00", true)
	pro := testutil.CreatePlan(t, db, "pro", "29.00", "290.00", true)

	upsert := func(planID string, period models.BillingPeriod) (*models.Subscription, bool) {
		t.Helper()
		next := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
		sub := &models.Subscription{
			UserID:          user.ID,
			PlanID:          planID,
			BillingPeriod:   period,
			Status:          models.SubscriptionStatusActive,
			NextBillingDate: &next,
		}
		var created bool
		require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
			var err error
			created, err = repo.UpsertForUser(tx, sub)
			return err
		}))
		return sub, created
	}

	first, created := upsert(starter.ID, models.BillingPeriodMonthly)
	assert.True(t, created)

	second, created := upsert(pro.ID, models.BillingPeriodYearly)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, pro.ID, second.PlanID)
	assert.Equal(t, models.BillingPeriodYearly, second.BillingPeriod)

	count, err := repo.CountByUser(db, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

// Строка уже вставлена "победителем" гонки в обход сервиса.
func TestSubscriptionRepository_UpsertForUserAfterConcurrentInsert(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewSubscriptionRepository()

	user := testutil.CreateUser(t, db, &models.User{})
	starter := testutil.CreatePlan(t, db, "starter", "9.00", "90.00", true)
	pro := testutil.CreatePlan(t, db, "pro", "29.00", "290.00", true)

	winner := &models.Subscription{
		UserID:        user.ID,
		PlanID:        starter.ID,
		BillingPeriod: models.BillingPeriodMonthly,
		Status:        models.SubscriptionStatusActive,
	}
	require.NoError(t, db.Omit("User", "Plan").Create(winner).Error)

	loser := &models.Subscription{
		UserID:        user.ID,
		PlanID:        pro.ID,
		BillingPeriod: models.BillingPeriodYearly,
		Status:        models.SubscriptionStatusActive,
	}
	var created bool
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		var err error
		created, err = repo.UpsertForUser(tx, loser)
		return err
	}))
	assert.False(t, created)
	assert.Equal(t, winner.ID, loser.ID)
	assert.Equal(t, "pro", loser.Plan.Slug)
}

func TestSubscriptionRepository_UpsertForMissingUser(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewSubscriptionRepository()
	plan := testutil.CreatePlan(t, db, "starter", "9.00", "90.00", true)

	_, err := repo.UpsertForUser(db, &models.Subscription{
		UserID:        "5b0d3c2e-7a5f-4c55-9d61-0a3c4f1b2e9d",
		PlanID:        plan.ID,
		BillingPeriod: models.BillingPeriodMonthly,
		Status:        models.SubscriptionStatusActive,
	})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestSubscriptionRepository_PlanLookups(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewSubscriptionRepository()

	_, err := repo.FindPlanByID(db, "5b0d3c2e-7a5f-4c55-9d61-0a3c4f1b2e9d")
	assert.ErrorIs(t, err, ErrPlanNotFound)

	plan := &models.Plan{Name: "Hidden", Slug: "hidden", IsActive: false}
	require.NoError(t, repo.CreatePlan(db, plan))
	assert.False(t, plan.IsActive)

	err = repo.CreatePlan(db, &models.Plan{Name: "Hidden 2", Slug: "hidden", IsActive: true})
	assert.ErrorIs(t, err, ErrPlanSlugTaken)

	active, err := repo.FindActivePlans(db)
	require.NoError(t, err)
	assert.Empty(t, active)

	assert.ErrorIs(t, repo.UpdatePlan(db, "5b0d3c2e-7a5f-4c55-9d61-0a3c4f1b2e9d", map[string]interface{}{"name": "x"}), ErrPlanNotFound)

	_, err = repo.FindByUser(db, "5b0d3c2e-7a5f-4c55-9d61-0a3c4f1b2e9d")
	assert.ErrorIs(t, err, ErrSubscriptionNotFound)
}
