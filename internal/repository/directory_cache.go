package repository

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/plantops/finding-service/internal/domain"
)

const levelCachePrefix = "directory:level:"

// CachedDirectory decorates a Directory with a Redis cache for approval-level
// lookups. Levels change rarely; a short TTL keeps staleness bounded without
// an invalidation protocol. Cache failures fall through to the inner
// directory.
type CachedDirectory struct {
	inner  Directory
	client *redis.Client
	ttl    time.Duration
}

// NewCachedDirectory wraps the directory. A nil client disables caching.
func NewCachedDirectory(inner Directory, client *redis.Client, ttl time.Duration) *CachedDirectory {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedDirectory{inner: inner, client: client, ttl: ttl}
}

func (d *CachedDirectory) Create(ctx context.Context, employee *domain.Employee) error {
	return d.inner.Create(ctx, employee)
}

func (d *CachedDirectory) Update(ctx context.Context, employee *domain.Employee) error {
	if err := d.inner.Update(ctx, employee); err != nil {
		return err
	}
	if d.client != nil {
		_ = d.client.Del(ctx, levelCachePrefix+employee.ID).Err()
	}
	return nil
}

func (d *CachedDirectory) GetByID(ctx context.Context, id string) (*domain.Employee, error) {
	return d.inner.GetByID(ctx, id)
}

func (d *CachedDirectory) GetByEmail(ctx context.Context, email string) (*domain.Employee, error) {
	return d.inner.GetByEmail(ctx, email)
}

func (d *CachedDirectory) ResolveApprovalLevel(ctx context.Context, employeeID string) (int, error) {
	if d.client != nil {
		cached, err := d.client.Get(ctx, levelCachePrefix+employeeID).Result()
		if err == nil {
			if level, convErr := strconv.Atoi(cached); convErr == nil {
				return level, nil
			}
		}
	}

	level, err := d.inner.ResolveApprovalLevel(ctx, employeeID)
	if err != nil {
		return 0, err
	}
	if d.client != nil {
		_ = d.client.Set(ctx, levelCachePrefix+employeeID, strconv.Itoa(level), d.ttl).Err()
	}
	return level, nil
}

func (d *CachedDirectory) ResolveEligibleAssignees(ctx context.Context, minLevel int, escalationOnly bool) ([]domain.Employee, error) {
	return d.inner.ResolveEligibleAssignees(ctx, minLevel, escalationOnly)
}
