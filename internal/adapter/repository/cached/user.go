package cached

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"consultant-dashboard/internal/adapter/cache"
	domain "consultant-dashboard/internal/domain/user"
	"consultant-dashboard/internal/usecase/user"
)

const consultantsSnapshot = "consultants"

// CachedUserRepository implements user.Repository with caching support.
// It wraps a persistent repository (DB) and an optional cache. Every successful
// write drops the listing snapshots and the per-user entries whose relations it changed.
type CachedUserRepository struct {
	dbRepo user.Repository
	cache  cache.UserCache
	log    *zap.Logger
	group  singleflight.Group
	writes atomic.Int64
}

// NewCachedUserRepository creates a new instance of CachedUserRepository.
// A nil cache disables caching but keeps single-flight reads.
func NewCachedUserRepository(dbRepo user.Repository, cache cache.UserCache, log *zap.Logger) *CachedUserRepository {
	return &CachedUserRepository{
		dbRepo: dbRepo,
		cache:  cache,
		log:    log,
	}
}

// Create inserts through the DB repository and invalidates the affected entries.
func (r *CachedUserRepository) Create(ctx context.Context, u *domain.User) error {
	if err := r.dbRepo.Create(ctx, u); err != nil {
		return err
	}

	touched := []string{u.ID}
	if u.ConsultantID != nil {
		touched = append(touched, *u.ConsultantID)
	}
	r.invalidate(ctx, touched...)
	return nil
}

// GetByID retrieves a user by ID using Cache-Aside pattern.
func (r *CachedUserRepository) GetByID(ctx context.Context, id string) (*domain.WithRelations, error) {
	// Try to get from cache first
	if r.cache != nil {
		cachedUser, err := r.cache.Get(ctx, id)
		if err != nil {
			r.log.Warn("cache get error, falling back to database", zap.String("id", id), zap.Error(err))
		} else if cachedUser != nil {
			r.log.Debug("user retrieved from cache", zap.String("id", id))
			return cachedUser, nil
		}
	}

	// Cache miss or cache disabled - use single-flight to prevent stampede
	result, err, _ := r.group.Do("user:"+id, func() (any, error) {
		// Double-check cache in case another request populated it while we were waiting
		if r.cache != nil {
			cachedUser, err := r.cache.Get(ctx, id)
			if err == nil && cachedUser != nil {
				r.log.Debug("user retrieved from cache after single-flight wait", zap.String("id", id))
				return cachedUser, nil
			}
		}

		// Only one request hits database
		u, err := r.dbRepo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}

		if r.cache != nil {
			if err := r.cache.Set(ctx, u); err != nil {
				r.log.Warn("failed to cache user", zap.String("id", id), zap.Error(err))
			}
		}

		return u, nil
	})

	if err != nil {
		return nil, err
	}

	return result.(*domain.WithRelations), nil
}

// GetByEmail delegates to the DB repository.
func (r *CachedUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.dbRepo.GetByEmail(ctx, email)
}

// Update updates the user in DB and invalidates the user, its old and new
// consultant and its clients, whose embedded summaries may now be stale.
func (r *CachedUserRepository) Update(ctx context.Context, id string, f domain.Fields) error {
	prior, _ := r.dbRepo.GetByID(ctx, id)

	if err := r.dbRepo.Update(ctx, id, f); err != nil {
		return err
	}

	touched := []string{id}
	if prior != nil {
		touched = append(touched, relatedIDs(prior)...)
	}
	if f.ConsultantID != nil {
		touched = append(touched, *f.ConsultantID)
	}
	r.invalidate(ctx, touched...)
	return nil
}

// Delete deletes the user from DB and invalidates the cache.
func (r *CachedUserRepository) Delete(ctx context.Context, id string) error {
	prior, _ := r.dbRepo.GetByID(ctx, id)

	if err := r.dbRepo.Delete(ctx, id); err != nil {
		return err
	}

	touched := []string{id}
	if prior != nil {
		touched = append(touched, relatedIDs(prior)...)
	}
	r.invalidate(ctx, touched...)
	return nil
}

// List serves listing snapshots from cache, loading them once on a miss.
func (r *CachedUserRepository) List(ctx context.Context, filter domain.ListFilter) ([]domain.WithRelations, error) {
	name := fmt.Sprintf("users:%s:%s", filter.Type, filter.Query)
	return r.snapshot(ctx, name, func() ([]domain.WithRelations, error) {
		return r.dbRepo.List(ctx, filter)
	})
}

// ListConsultants serves the consultant snapshot from cache.
func (r *CachedUserRepository) ListConsultants(ctx context.Context) ([]domain.WithRelations, error) {
	return r.snapshot(ctx, consultantsSnapshot, func() ([]domain.WithRelations, error) {
		return r.dbRepo.ListConsultants(ctx)
	})
}

// ListClientsByConsultant delegates to the DB repository.
func (r *CachedUserRepository) ListClientsByConsultant(ctx context.Context, consultantID string) ([]domain.User, error) {
	return r.dbRepo.ListClientsByConsultant(ctx, consultantID)
}

// snapshot reads the listing generation before loading, so rows loaded before a
// write are stored under the generation that write invalidated. Loads are shared
// only between callers that saw the same local write count.
func (r *CachedUserRepository) snapshot(ctx context.Context, name string, load func() ([]domain.WithRelations, error)) ([]domain.WithRelations, error) {
	writes := r.writes.Load()
	gen, cacheable := int64(0), false
	if r.cache != nil {
		var err error
		gen, err = r.cache.ListGeneration(ctx)
		if err != nil {
			r.log.Warn("list cache error, falling back to database", zap.String("list", name), zap.Error(err))
		} else {
			users, hit, err := r.cache.GetList(ctx, name)
			if err != nil {
				r.log.Warn("list cache error, falling back to database", zap.String("list", name), zap.Error(err))
			} else if hit {
				return users, nil
			}
			cacheable = err == nil
		}
	}

	key := fmt.Sprintf("list:%d:%d:%s", writes, gen, name)
	result, err, _ := r.group.Do(key, func() (any, error) {
		users, err := load()
		if err != nil {
			return nil, err
		}

		if cacheable {
			if err := r.cache.SetList(ctx, gen, name, users); err != nil {
				r.log.Warn("failed to cache list", zap.String("list", name), zap.Error(err))
			}
		}
		return users, nil
	})
	if err != nil {
		return nil, err
	}

	return result.([]domain.WithRelations), nil
}

// invalidate drops listing snapshots and the given per-user entries. Cache failures
// are logged; the write has already succeeded.
func (r *CachedUserRepository) invalidate(ctx context.Context, ids ...string) {
	r.writes.Add(1)
	if r.cache == nil {
		return
	}

	if err := r.cache.InvalidateLists(ctx); err != nil {
		r.log.Warn("failed to invalidate list cache", zap.Error(err))
	}
	if err := r.cache.DeleteMultiple(ctx, ids...); err != nil {
		r.log.Warn("failed to invalidate user cache", zap.Strings("ids", ids), zap.Error(err))
	}
}

func relatedIDs(u *domain.WithRelations) []string {
	ids := make([]string, 0, len(u.Clients)+1)
	if u.ConsultantID != nil {
		ids = append(ids, *u.ConsultantID)
	}
	for _, c := range u.Clients {
		ids = append(ids, c.ID)
	}
	return ids
}
