package cached

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"user-directory-service/internal/adapter/cache"
	domain "user-directory-service/internal/domain/user"
	"user-directory-service/internal/usecase/user"
	"user-directory-service/pkg/metrics"
)

// CachedUserRepository implements user.Repository with caching support.
// It wraps a persistent repository (DB) and a cache implementation.
// Only lookups by ID are served from cache.
type CachedUserRepository struct {
	dbRepo  user.Repository
	cache   cache.UserCache
	log     *zap.Logger
	metrics *metrics.CacheMetrics
	group   singleflight.Group
}

// NewCachedUserRepository creates a new instance of CachedUserRepository.
// A nil cache turns it into a pass-through.
func NewCachedUserRepository(dbRepo user.Repository, cache cache.UserCache, log *zap.Logger) *CachedUserRepository {
	return &CachedUserRepository{
		dbRepo: dbRepo,
		cache:  cache,
		log:    log,
	}
}

var _ user.Repository = (*CachedUserRepository)(nil)

// WithMetrics records cache hits and misses on m.
func (r *CachedUserRepository) WithMetrics(m *metrics.CacheMetrics) *CachedUserRepository {
	r.metrics = m
	return r
}

// Create delegates to the DB repository.
func (r *CachedUserRepository) Create(ctx context.Context, u *domain.User) error {
	return r.dbRepo.Create(ctx, u)
}

// GetByID retrieves a user by ID using Cache-Aside pattern.
func (r *CachedUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if r.cache != nil {
		cachedUser, err := r.cache.Get(ctx, id)
		switch {
		case err != nil:
			r.metrics.Inc(metrics.CacheError)
			r.log.Warn("cache get error, falling back to database", zap.String("id", id), zap.Error(err))
		case cachedUser != nil:
			r.metrics.Inc(metrics.CacheHit)
			r.log.Debug("user retrieved from cache", zap.String("id", id))
			return cachedUser, nil
		default:
			r.metrics.Inc(metrics.CacheMiss)
		}
	}

	// Cache miss or cache disabled - use single-flight to prevent stampede
	result, err, _ := r.group.Do(cache.CacheKey(id), func() (any, error) {
		// Another caller may have filled the cache while we waited
		if r.cache != nil {
			cachedUser, err := r.cache.Get(ctx, id)
			if err == nil && cachedUser != nil {
				r.log.Debug("user retrieved from cache after single-flight wait", zap.String("id", id))
				return cachedUser, nil
			}
		}

		// The version is read before the row so that an Update or
		// SoftDelete landing during the read makes the write below a no-op.
		var version int64
		versionOK := false
		if r.cache != nil {
			v, err := r.cache.Version(ctx, id)
			if err != nil {
				r.log.Warn("cache version error, result will not be cached", zap.String("id", id), zap.Error(err))
			} else {
				version, versionOK = v, true
			}
		}

		u, err := r.dbRepo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}

		if versionOK {
			stored, err := r.cache.Set(ctx, u, version)
			switch {
			case err != nil:
				r.log.Warn("failed to cache user", zap.String("id", id), zap.Error(err))
			case !stored:
				r.log.Debug("user changed during load, not cached", zap.String("id", id))
			}
		}

		return u, nil
	})
	if err != nil {
		return nil, err
	}

	// Callers may mutate the result; hand each one its own copy
	u := *result.(*domain.User)
	return &u, nil
}

// GetByEmail delegates to the DB repository. Authentication needs the
// password hash, which the cache never holds.
func (r *CachedUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.dbRepo.GetByEmail(ctx, email)
}

// Update updates the user in DB and invalidates the cache.
func (r *CachedUserRepository) Update(ctx context.Context, u *domain.User) (*domain.User, error) {
	updated, err := r.dbRepo.Update(ctx, u)
	if err != nil {
		return nil, err
	}

	r.invalidate(ctx, u.ID, "update")
	return updated, nil
}

// SoftDelete flags the user as deleted in DB and invalidates the cache.
func (r *CachedUserRepository) SoftDelete(ctx context.Context, id string, at time.Time) error {
	if err := r.dbRepo.SoftDelete(ctx, id, at); err != nil {
		return err
	}

	r.invalidate(ctx, id, "delete")
	return nil
}

// List delegates to the DB repository.
func (r *CachedUserRepository) List(ctx context.Context, q domain.ListQuery) ([]domain.User, int64, error) {
	return r.dbRepo.List(ctx, q)
}

// ListAll delegates to the DB repository.
func (r *CachedUserRepository) ListAll(ctx context.Context) ([]domain.User, error) {
	return r.dbRepo.ListAll(ctx)
}

func (r *CachedUserRepository) invalidate(ctx context.Context, id, op string) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Delete(ctx, id); err != nil {
		r.log.Warn("failed to invalidate cache after "+op, zap.String("id", id), zap.Error(err))
	}
}
