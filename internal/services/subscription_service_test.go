package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"scale_backend/internal/cache"
	"scale_backend/internal/models"
	"scale_backend/internal/repositories"
	"scale_backend/internal/services/dto"
	"scale_backend/internal/testutil"
	"scale_backend/pkg/apperrors"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 10, 22, 45, 0, 0, time.UTC)

func newSubscriptionService(planCache *cache.PlanCache) *SubscriptionServiceImpl {
	svc := NewSubscriptionService(repositories.NewSubscriptionRepository(), planCache).(*SubscriptionServiceImpl)
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func newMiniredisCache(t *testing.T) (*cache.PlanCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return cache.NewPlanCache(client, time.Minute), mr
}

func TestNextBillingDate(t *testing.T) {
	local := time.FixedZone("UTC+5", 5*3600)
	// 2026-03-11 02:00 по UTC+5 это ещё 10 марта по UTC.
	now := time.Date(2026, 3, 11, 2, 0, 0, 0, local)

	monthly := NextBillingDate(now, models.BillingPeriodMonthly)
	assert.Equal(t, time.Date(2026, 4, 9, 0, 0, 0, 0, time.UTC), monthly)

	yearly := NextBillingDate(now, models.BillingPeriodYearly)
	assert.Equal(t, time.Date(2027, 3, 10, 0, 0, 0, 0, time.UTC), yearly)
}

func TestSubscribe_CreatesActiveMonthlySubscription(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	svc := newSubscriptionService(nil)

	user := testutil.CreateUser(t, db, &models.User{})
	plan := testutil.CreatePlan(t, db, "pro", "29.00", "290.00", true)

	resp, created, err := svc.Subscribe(ctx, db, user.ID, &dto.SubscribeRequest{PlanID: plan.ID})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, models.SubscriptionStatusActive, resp.Status)
	assert.Equal(t, models.BillingPeriodMonthly, resp.BillingPeriod)
	assert.Equal(t, "pro", resp.Plan.Slug)
	require.NotNil(t, resp.NextBillingDate)
	assert.Equal(t, "2026-04-09", *resp.NextBillingDate)
}

func TestSubscribe_SecondCallOverwritesInPlace(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	svc := newSubscriptionService(nil)

	user := testutil.CreateUser(t, db, &models.User{})
	starter := testutil.CreatePlan(t, db, "starter", "9.00", "90.00", true)
	pro := testutil.CreatePlan(t, db, "pro", "29.00", "290.00", true)

	first, created, err := svc.Subscribe(ctx, db, user.ID, &dto.SubscribeRequest{PlanID: starter.ID})
	require.NoError(t, err)
	require.True(t, created)

	second, created, err := svc.Subscribe(ctx, db, user.ID, &dto.SubscribeRequest{
		PlanID:        pro.ID,
		BillingPeriod: models.BillingPeriodYearly,
	})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "pro", second.Plan.Slug)
	assert.Equal(t, models.BillingPeriodYearly, second.BillingPeriod)
	require.NotNil(t, second.NextBillingDate)
	assert.Equal(t, "2027-03-10", *second.NextBillingDate)

	count, err := repositories.NewSubscriptionRepository().CountByUser(db, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestSubscribe_InactivePlanLeavesExistingSubscription(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	svc := newSubscriptionService(nil)

	user := testutil.CreateUser(t, db, &models.User{})
	active := testutil.CreatePlan(t, db, "starter", "9.00", "90.00", true)
	retired := testutil.CreatePlan(t, db, "legacy", "5.00", "50.00", false)

	_, _, err := svc.Subscribe(ctx, db, user.ID, &dto.SubscribeRequest{PlanID: active.ID})
	require.NoError(t, err)

	_, _, err = svc.Subscribe(ctx, db, user.ID, &dto.SubscribeRequest{PlanID: retired.ID})
	assert.ErrorIs(t, err, apperrors.ErrPlanNotFound)

	current, err := svc.CurrentSubscription(ctx, db, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "starter", current.Plan.Slug)
}

func TestSubscribe_UnknownOrMalformedPlan(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	svc := newSubscriptionService(nil)
	user := testutil.CreateUser(t, db, &models.User{})

	for _, id := range []string{"not-a-uuid", "5b0d3c2e-7a5f-4c55-9d61-0a3c4f1b2e9d"} {
		_, _, err := svc.Subscribe(ctx, db, user.ID, &dto.SubscribeRequest{PlanID: id})
		assert.ErrorIs(t, err, apperrors.ErrPlanNotFound, id)
	}
}

// Пользователь удален между выпуском токена и подпиской.
func TestSubscribe_UnknownUser(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := newSubscriptionService(nil)
	plan := testutil.CreatePlan(t, db, "pro", "29.00", "290.00", true)

	_, _, err := svc.Subscribe(context.Background(), db, uuid.NewString(), &dto.SubscribeRequest{PlanID: plan.ID})
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)

	var count int64
	require.NoError(t, db.Model(&models.Subscription{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestSubscribe_InvalidBillingPeriod(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := newSubscriptionService(nil)
	user := testutil.CreateUser(t, db, &models.User{})
	plan := testutil.CreatePlan(t, db, "pro", "29.00", "290.00", true)

	_, _, err := svc.Subscribe(context.Background(), db, user.ID, &dto.SubscribeRequest{
		PlanID:        plan.ID,
		BillingPeriod: "weekly",
	})
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeValidationFailed, appErr.Code)
}

func TestSubscribe_ConcurrentCallsProduceOneRow(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	svc := newSubscriptionService(nil)

	user := testutil.CreateUser(t, db, &models.User{})
	plan := testutil.CreatePlan(t, db, "pro", "29.00", "290.00", true)

	const workers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
		errs    []error
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, isNew, err := svc.Subscribe(ctx, db, user.ID, &dto.SubscribeRequest{PlanID: plan.ID})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			if isNew {
				created++
			}
		}()
	}
	wg.Wait()

	assert.Empty(t, errs)
	assert.Equal(t, 1, created)

	count, err := repositories.NewSubscriptionRepository().CountByUser(db, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestCurrentSubscription_NotFound(t *testing.T) {
	db := testutil.NewTestDB(t)
	user := testutil.CreateUser(t, db, &models.User{})

	_, err := newSubscriptionService(nil).CurrentSubscription(context.Background(), db, user.ID)
	assert.ErrorIs(t, err, apperrors.ErrSubscriptionNotFound)
}

func TestListActivePlans_OnlyActiveOrderedByPrice(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := newSubscriptionService(nil)

	testutil.CreatePlan(t, db, "pro", "29.00", "290.00", true)
	testutil.CreatePlan(t, db, "free", "0", "0", true)
	testutil.CreatePlan(t, db, "legacy", "1.00", "10.00", false)
	testutil.CreatePlan(t, db, "starter", "9.00", "90.00", true)

	list, err := svc.ListActivePlans(context.Background(), db)
	require.NoError(t, err)
	require.Equal(t, 3, list.Total)

	var slugs []string
	for _, p := range list.Plans {
		slugs = append(slugs, p.Slug)
		assert.True(t, p.IsActive)
	}
	assert.Equal(t, []string{"free", "starter", "pro"}, slugs)
	assert.Equal(t, []string{"Feature A", "Feature B"}, list.Plans[0].Features)
}

func TestListActivePlans_ServedFromCache(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	planCache, mr := newMiniredisCache(t)
	svc := newSubscriptionService(planCache)

	plan := testutil.CreatePlan(t, db, "pro", "29.00", "290.00", true)

	first, err := svc.ListActivePlans(ctx, db)
	require.NoError(t, err)
	require.Equal(t, 1, first.Total)
	assert.True(t, mr.Exists(cache.ActivePlansKey))

	// Прямое изменение в базе мимо сервиса не видно, пока кеш жив.
	require.NoError(t, db.Model(plan).Update("name", "Renamed").Error)
	cached, err := svc.ListActivePlans(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, "Pro", cached.Plans[0].Name)
	assert.InDelta(t, 29.0, cached.Plans[0].PriceMonthly, 0.001)
}

func TestCreateAndUpdatePlan_InvalidateCache(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	planCache, mr := newMiniredisCache(t)
	svc := newSubscriptionService(planCache)

	testutil.CreatePlan(t, db, "starter", "9.00", "90.00", true)
	_, err := svc.ListActivePlans(ctx, db)
	require.NoError(t, err)
	require.True(t, mr.Exists(cache.ActivePlansKey))

	created, err := svc.CreatePlan(ctx, db, &dto.CreatePlanRequest{
		Name:         "Pro",
		Slug:         "pro",
		PriceMonthly: decimal.RequireFromString("29.00"),
		PriceYearly:  decimal.RequireFromString("290.00"),
		Features:     []string{"Priority support"},
	})
	require.NoError(t, err)
	assert.True(t, created.IsActive)
	assert.False(t, mr.Exists(cache.ActivePlansKey))

	list, err := svc.ListActivePlans(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, 2, list.Total)

	inactive := false
	_, err = svc.UpdatePlan(ctx, db, created.ID, &dto.UpdatePlanRequest{IsActive: &inactive})
	require.NoError(t, err)
	assert.False(t, mr.Exists(cache.ActivePlansKey))

	list, err = svc.ListActivePlans(ctx, db)
	require.NoError(t, err)
	require.Equal(t, 1, list.Total)
	assert.Equal(t, "starter", list.Plans[0].Slug)
}

func TestListActivePlans_FallsBackWhenRedisDown(t *testing.T) {
	db := testutil.NewTestDB(t)
	planCache, mr := newMiniredisCache(t)
	svc := newSubscriptionService(planCache)

	testutil.CreatePlan(t, db, "pro", "29.00", "290.00", true)
	mr.Close()

	list, err := svc.ListActivePlans(context.Background(), db)
	require.NoError(t, err)
	assert.Equal(t, 1, list.Total)
}

func TestCreatePlan_Validation(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	svc := newSubscriptionService(nil)

	_, err := svc.CreatePlan(ctx, db, &dto.CreatePlanRequest{
		Name:         "Broken",
		Slug:         "broken",
		PriceMonthly: decimal.RequireFromString("-1"),
	})
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeValidationFailed, appErr.Code)
	assert.Contains(t, appErr.Details, "price_monthly")

	testutil.CreatePlan(t, db, "pro", "29.00", "290.00", true)
	_, err = svc.CreatePlan(ctx, db, &dto.CreatePlanRequest{Name: "Pro again", Slug: "pro"})
	assert.ErrorIs(t, err, apperrors.ErrPlanSlugTaken)
}

func TestCreatePlan_Inactive(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := newSubscriptionService(nil)

	inactive := false
	resp, err := svc.CreatePlan(context.Background(), db, &dto.CreatePlanRequest{
		Name:     "Hidden",
		Slug:     "hidden",
		IsActive: &inactive,
	})
	require.NoError(t, err)
	assert.False(t, resp.IsActive)
	assert.Equal(t, []string{}, resp.Features)

	got, err := svc.GetPlan(context.Background(), db, resp.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
}

func TestUpdatePlan_NotFoundAndSlugConflict(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	svc := newSubscriptionService(nil)

	name := "Nope"
	_, err := svc.UpdatePlan(ctx, db, "5b0d3c2e-7a5f-4c55-9d61-0a3c4f1b2e9d", &dto.UpdatePlanRequest{Name: &name})
	assert.ErrorIs(t, err, apperrors.ErrPlanNotFound)

	_, err = svc.UpdatePlan(ctx, db, "bogus", &dto.UpdatePlanRequest{Name: &name})
	assert.ErrorIs(t, err, apperrors.ErrPlanNotFound)

	testutil.CreatePlan(t, db, "starter", "9.00", "90.00", true)
	pro := testutil.CreatePlan(t, db, "pro", "29.00", "290.00", true)
	slug := "starter"
	_, err = svc.UpdatePlan(ctx, db, pro.ID, &dto.UpdatePlanRequest{Slug: &slug})
	assert.ErrorIs(t, err, apperrors.ErrPlanSlugTaken)

	price := decimal.RequireFromString("39.00")
	updated, err := svc.UpdatePlan(ctx, db, pro.ID, &dto.UpdatePlanRequest{PriceMonthly: &price})
	require.NoError(t, err)
	assert.InDelta(t, 39.0, updated.PriceMonthly, 0.001)
	assert.Equal(t, "pro", updated.Slug)
}
