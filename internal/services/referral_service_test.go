package services

import (
	"context"
	"testing"
	"time"

	"scale_backend/internal/models"
	"scale_backend/internal/repositories"
	"scale_backend/internal/testutil"
	"scale_backend/pkg/apperrors"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testBaseURL = "https://app.scale.com"

func newReferralService() ReferralService {
	return NewReferralService(repositories.NewReferralRepository(), repositories.NewUserRepository(), testBaseURL+"/")
}

// racingReferralRepo пропускает предварительную проверку, как будто
// параллельный запрос вставил строку между проверкой и INSERT.
type racingReferralRepo struct {
	repositories.ReferralRepository
}

func (racingReferralRepo) ExistsForReferredUser(*gorm.DB, string) (bool, error) {
	return false, nil
}

func TestReferralLink(t *testing.T) {
	svc := newReferralService()

	link := svc.ReferralLink("abc123")
	require.NotNil(t, link)
	assert.Equal(t, "https://app.scale.com/ref/abc123", *link)

	assert.Nil(t, svc.ReferralLink(""))
}

func TestRecordReferral_Success(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	svc := newReferralService()

	referrer := testutil.CreateUser(t, db, &models.User{Email: "referrer@test.com"})
	code, err := svc.EnsureReferralCode(ctx, db, referrer)
	require.NoError(t, err)
	referred := testutil.CreateUser(t, db, &models.User{Email: "referred@test.com"})

	referral, err := svc.RecordReferral(ctx, db, referrer.ID, referred.ID, code)
	require.NoError(t, err)
	assert.Equal(t, models.ReferralStatusPending, referral.Status)
	assert.True(t, referral.EarnedAmount.IsZero())
	assert.Equal(t, code, referral.ReferralCode)
	assert.NotEmpty(t, referral.ID)
}

func TestRecordReferral_SelfReferralRejected(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := newReferralService()
	user := testutil.CreateUser(t, db, &models.User{})

	_, err := svc.RecordReferral(context.Background(), db, user.ID, user.ID, "code")
	assert.ErrorIs(t, err, apperrors.ErrSelfReferral)

	var count int64
	db.Model(&models.Referral{}).Count(&count)
	assert.Zero(t, count)
}

func TestRecordReferral_UnknownUser(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := newReferralService()
	user := testutil.CreateUser(t, db, &models.User{})

	_, err := svc.RecordReferral(context.Background(), db, user.ID, "8a1c5c62-0b35-4a8e-9e4f-2d4a7f0f3a11", "code")
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
}

func TestRecordReferral_DuplicateLeavesFirstRowIntact(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	svc := newReferralService()

	first := testutil.CreateUser(t, db, &models.User{})
	second := testutil.CreateUser(t, db, &models.User{})
	referred := testutil.CreateUser(t, db, &models.User{})

	original, err := svc.RecordReferral(ctx, db, first.ID, referred.ID, "first-code")
	require.NoError(t, err)

	_, err = svc.RecordReferral(ctx, db, second.ID, referred.ID, "second-code")
	assert.ErrorIs(t, err, apperrors.ErrDuplicateReferral)

	_, err = svc.RecordReferral(ctx, db, first.ID, referred.ID, "first-code")
	assert.ErrorIs(t, err, apperrors.ErrDuplicateReferral)

	var rows []models.Referral
	require.NoError(t, db.Where("referred_user_id = ?", referred.ID).Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, original.ID, rows[0].ID)
	assert.Equal(t, first.ID, rows[0].ReferrerID)
	assert.Equal(t, "first-code", rows[0].ReferralCode)
}

func TestRecordReferral_DuplicateCaughtByUniqueIndex(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	svc := NewReferralService(
		racingReferralRepo{repositories.NewReferralRepository()},
		repositories.NewUserRepository(),
		testBaseURL,
	)

	first := testutil.CreateUser(t, db, &models.User{})
	second := testutil.CreateUser(t, db, &models.User{})
	referred := testutil.CreateUser(t, db, &models.User{})

	_, err := svc.RecordReferral(ctx, db, first.ID, referred.ID, "a")
	require.NoError(t, err)

	_, err = svc.RecordReferral(ctx, db, second.ID, referred.ID, "b")
	assert.ErrorIs(t, err, apperrors.ErrDuplicateReferral)
}

func TestReferralsFor_NewestFirst(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	svc := newReferralService()

	referrer := testutil.CreateUser(t, db, &models.User{})
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	var emails []string
	for i := 0; i < 3; i++ {
		referred := testutil.CreateUser(t, db, &models.User{})
		referral, err := svc.RecordReferral(ctx, db, referrer.ID, referred.ID, "code")
		require.NoError(t, err)
		require.NoError(t, db.Model(referral).Update("created_at", base.Add(time.Duration(i)*time.Hour)).Error)
		emails = append([]string{referred.Email}, emails...)
	}

	list, err := svc.ReferralsFor(ctx, db, referrer.ID)
	require.NoError(t, err)
	require.Equal(t, 3, list.Total)
	for i, item := range list.Referrals {
		assert.Equal(t, emails[i], item.ReferredEmail)
		assert.Equal(t, models.ReferralStatusPending, item.Status)
	}
}

func TestReferralsFor_EmptyIsNotNil(t *testing.T) {
	db := testutil.NewTestDB(t)
	user := testutil.CreateUser(t, db, &models.User{})

	list, err := newReferralService().ReferralsFor(context.Background(), db, user.ID)
	require.NoError(t, err)
	assert.NotNil(t, list.Referrals)
	assert.Zero(t, list.Total)
}

func TestStats_EmptyReferrerIsAllZeros(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	svc := newReferralService()
	user := testutil.CreateUser(t, db, &models.User{})

	stats, err := svc.DetailedStats(ctx, db, user.ID)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalReferrals)
	assert.Zero(t, stats.ActiveReferrals)
	assert.Zero(t, stats.TotalEarned)
	assert.Zero(t, stats.PendingEarnings)

	summary, err := svc.LinkSummary(ctx, db, user.ID)
	require.NoError(t, err)
	assert.Nil(t, summary.ReferralLink)
	assert.Zero(t, summary.TotalReferrals)
	assert.Zero(t, summary.TotalEarned)
}

func TestStats_AggregatesByStatus(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	svc := newReferralService()

	referrer := testutil.CreateUser(t, db, &models.User{})
	_, err := svc.EnsureReferralCode(ctx, db, referrer)
	require.NoError(t, err)

	seed := []struct {
		status models.ReferralStatus
		amount string
	}{
		{models.ReferralStatusActive, "10.50"},
		{models.ReferralStatusActive, "2.25"},
		{models.ReferralStatusPending, "4.00"},
		{models.ReferralStatusCompleted, "1.25"},
	}
	for _, s := range seed {
		referred := testutil.CreateUser(t, db, &models.User{})
		referral, err := svc.RecordReferral(ctx, db, referrer.ID, referred.ID, referrer.Code())
		require.NoError(t, err)
		require.NoError(t, db.Model(referral).Updates(map[string]interface{}{
			"status":        s.status,
			"earned_amount": decimal.RequireFromString(s.amount),
		}).Error)
	}

	// Чужие рефералы не попадают в агрегаты.
	other := testutil.CreateUser(t, db, &models.User{})
	stranger := testutil.CreateUser(t, db, &models.User{})
	_, err = svc.RecordReferral(ctx, db, other.ID, stranger.ID, "other")
	require.NoError(t, err)

	stats, err := svc.DetailedStats(ctx, db, referrer.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.TotalReferrals)
	assert.Equal(t, int64(2), stats.ActiveReferrals)
	assert.InDelta(t, 18.0, stats.TotalEarned, 0.001)
	assert.InDelta(t, 4.0, stats.PendingEarnings, 0.001)

	summary, err := svc.LinkSummary(ctx, db, referrer.ID)
	require.NoError(t, err)
	require.NotNil(t, summary.ReferralLink)
	assert.Equal(t, testBaseURL+"/ref/"+referrer.Code(), *summary.ReferralLink)
	assert.Equal(t, int64(4), summary.TotalReferrals)
	assert.InDelta(t, 18.0, summary.TotalEarned, 0.001)
}
