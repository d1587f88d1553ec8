package cached

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"user-directory-service/internal/adapter/cache"
	domain "user-directory-service/internal/domain/user"
	pkgerrors "user-directory-service/pkg/errors"
	"user-directory-service/pkg/metrics"
)

const userID = "0d4f0a44-1a4b-4b1e-9e8f-5b7c2b1c9a10"

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) Create(ctx context.Context, u *domain.User) error {
	return m.Called(ctx, u).Error(0)
}

func (m *mockRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockRepo) Update(ctx context.Context, u *domain.User) (*domain.User, error) {
	args := m.Called(ctx, u)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockRepo) SoftDelete(ctx context.Context, id string, at time.Time) error {
	return m.Called(ctx, id, at).Error(0)
}

func (m *mockRepo) List(ctx context.Context, q domain.ListQuery) ([]domain.User, int64, error) {
	args := m.Called(ctx, q)
	return args.Get(0).([]domain.User), args.Get(1).(int64), args.Error(2)
}

func (m *mockRepo) ListAll(ctx context.Context) ([]domain.User, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.User), args.Error(1)
}

type fixture struct {
	repo    *CachedUserRepository
	db      *mockRepo
	mr      *miniredis.Miniredis
	metrics *metrics.CacheMetrics
	reg     *prometheus.Registry
}

func setup(t *testing.T) fixture {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	log := zaptest.NewLogger(t)
	db := new(mockRepo)
	reg := prometheus.NewRegistry()
	m := metrics.NewCacheMetrics(reg)

	repo := NewCachedUserRepository(db, cache.NewRedisUserCache(client, time.Minute, log), log).WithMetrics(m)
	return fixture{repo: repo, db: db, mr: mr, metrics: m, reg: reg}
}

func sampleUser() *domain.User {
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return &domain.User{
		ID:           userID,
		FirstName:    "Alice",
		LastName:     "Smith",
		Email:        "alice@example.com",
		PasswordHash: "hash",
		CreatedAt:    ts,
		UpdatedAt:    ts,
	}
}

func lookups(t *testing.T, reg *prometheus.Registry) int {
	count, err := testutil.GatherAndCount(reg, "user_cache_lookups_total")
	require.NoError(t, err)
	return count
}

func TestGetByID_MissThenHit(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	f.db.On("GetByID", ctx, userID).Return(sampleUser(), nil).Once()

	first, err := f.repo.GetByID(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "hash", first.PasswordHash)
	assert.True(t, f.mr.Exists(cache.CacheKey(userID)))

	second, err := f.repo.GetByID(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", second.FirstName)
	assert.Empty(t, second.PasswordHash)

	f.db.AssertNumberOfCalls(t, "GetByID", 1)
	assert.Equal(t, 2, lookups(t, f.reg))
}

func TestGetByID_NotFoundIsNotCached(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	f.db.On("GetByID", ctx, userID).Return(nil, pkgerrors.NewNotFoundError("user", "user is not found"))

	_, err := f.repo.GetByID(ctx, userID)
	assert.True(t, pkgerrors.IsNotFound(err))
	assert.False(t, f.mr.Exists(cache.CacheKey(userID)))
}

func TestGetByID_CacheDownFallsBackToDB(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.mr.Close()

	f.db.On("GetByID", ctx, userID).Return(sampleUser(), nil)

	u, err := f.repo.GetByID(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, userID, u.ID)
}

func TestGetByID_ConcurrentCallersShareResult(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	f.db.On("GetByID", ctx, userID).Return(sampleUser(), nil).After(50 * time.Millisecond)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			u, err := f.repo.GetByID(ctx, userID)
			assert.NoError(t, err)
			assert.Equal(t, userID, u.ID)
		}()
	}
	wg.Wait()

	calls := 0
	for _, c := range f.db.Calls {
		if c.Method == "GetByID" {
			calls++
		}
	}
	assert.Less(t, calls, 10)
}

func TestUpdate_InvalidatesCache(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	f.db.On("GetByID", ctx, userID).Return(sampleUser(), nil).Once()
	_, err := f.repo.GetByID(ctx, userID)
	require.NoError(t, err)
	require.True(t, f.mr.Exists(cache.CacheKey(userID)))

	updated := sampleUser()
	updated.FirstName = "Alicia"
	f.db.On("Update", ctx, updated).Return(updated, nil)

	got, err := f.repo.Update(ctx, updated)
	require.NoError(t, err)
	assert.Equal(t, "Alicia", got.FirstName)
	assert.False(t, f.mr.Exists(cache.CacheKey(userID)))
}

func TestUpdate_FailureKeepsCache(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	f.db.On("GetByID", ctx, userID).Return(sampleUser(), nil).Once()
	_, err := f.repo.GetByID(ctx, userID)
	require.NoError(t, err)

	f.db.On("Update", ctx, mock.Anything).Return(nil, pkgerrors.NewNotFoundError("user", "user is not found"))

	_, err = f.repo.Update(ctx, sampleUser())
	assert.True(t, pkgerrors.IsNotFound(err))
	assert.True(t, f.mr.Exists(cache.CacheKey(userID)))
}

func TestSoftDelete_InvalidatesCache(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	at := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	f.db.On("GetByID", ctx, userID).Return(sampleUser(), nil).Once()
	_, err := f.repo.GetByID(ctx, userID)
	require.NoError(t, err)

	f.db.On("SoftDelete", ctx, userID, at).Return(nil)
	require.NoError(t, f.repo.SoftDelete(ctx, userID, at))
	assert.False(t, f.mr.Exists(cache.CacheKey(userID)))

	f.db.On("GetByID", ctx, userID).Return(nil, pkgerrors.NewNotFoundError("user", "user is not found"))
	_, err = f.repo.GetByID(ctx, userID)
	assert.True(t, pkgerrors.IsNotFound(err))
}

// blockGetByID makes the next GetByID return u only after release is closed.
// loading is closed once the call reached the store.
func blockGetByID(f fixture, ctx context.Context, u *domain.User) (loading, release chan struct{}) {
	loading = make(chan struct{})
	release = make(chan struct{})
	f.db.On("GetByID", ctx, userID).Run(func(mock.Arguments) {
		close(loading)
		<-release
	}).Return(u, nil).Once()
	return loading, release
}

func TestGetByID_SoftDeleteDuringLoadIsNotCached(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	at := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	loading, release := blockGetByID(f, ctx, sampleUser())
	f.db.On("SoftDelete", ctx, userID, at).Return(nil)

	done := make(chan error, 1)
	go func() {
		_, err := f.repo.GetByID(ctx, userID)
		done <- err
	}()

	<-loading
	require.NoError(t, f.repo.SoftDelete(ctx, userID, at))
	close(release)
	require.NoError(t, <-done)

	assert.False(t, f.mr.Exists(cache.CacheKey(userID)))

	f.db.On("GetByID", ctx, userID).Return(nil, pkgerrors.NewNotFoundError("user", "user is not found"))
	u, err := f.repo.GetByID(ctx, userID)
	assert.Nil(t, u)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestGetByID_UpdateDuringLoadIsNotCached(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	loading, release := blockGetByID(f, ctx, sampleUser())

	updated := sampleUser()
	updated.FirstName = "Alicia"
	f.db.On("Update", ctx, updated).Return(updated, nil)

	done := make(chan error, 1)
	go func() {
		_, err := f.repo.GetByID(ctx, userID)
		done <- err
	}()

	<-loading
	_, err := f.repo.Update(ctx, updated)
	require.NoError(t, err)
	close(release)
	require.NoError(t, <-done)

	assert.False(t, f.mr.Exists(cache.CacheKey(userID)))

	f.db.On("GetByID", ctx, userID).Return(updated, nil).Once()
	got, err := f.repo.GetByID(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "Alicia", got.FirstName)

	// The fresh row is cached under the new version.
	again, err := f.repo.GetByID(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "Alicia", again.FirstName)
	f.db.AssertNumberOfCalls(t, "GetByID", 2)
}

func TestDelegatedMethods(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	u := sampleUser()
	q := domain.ListQuery{Limit: 10}

	f.db.On("Create", ctx, u).Return(nil)
	f.db.On("GetByEmail", ctx, u.Email).Return(u, nil)
	f.db.On("List", ctx, q).Return([]domain.User{*u}, int64(1), nil)
	f.db.On("ListAll", ctx).Return([]domain.User{*u}, nil)

	require.NoError(t, f.repo.Create(ctx, u))

	byEmail, err := f.repo.GetByEmail(ctx, u.Email)
	require.NoError(t, err)
	assert.Equal(t, "hash", byEmail.PasswordHash)

	page, count, err := f.repo.List(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assert.Len(t, page, 1)

	all, err := f.repo.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	f.db.AssertExpectations(t)
}

func TestNilCacheIsPassThrough(t *testing.T) {
	db := new(mockRepo)
	repo := NewCachedUserRepository(db, nil, zaptest.NewLogger(t))
	ctx := context.Background()

	db.On("GetByID", ctx, userID).Return(sampleUser(), nil)
	db.On("SoftDelete", ctx, userID, mock.Anything).Return(nil)

	_, err := repo.GetByID(ctx, userID)
	require.NoError(t, err)
	_, err = repo.GetByID(ctx, userID)
	require.NoError(t, err)
	require.NoError(t, repo.SoftDelete(ctx, userID, time.Now()))

	db.AssertNumberOfCalls(t, "GetByID", 2)
}
