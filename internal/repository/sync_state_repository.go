package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/helpdesk/internal/domain"
)

const (
	syncLockKey   = "helpdesk:directory-sync:lock"
	syncResultKey = "helpdesk:directory-sync:last"
)

// SyncStateRepository guards directory syncs and remembers the last result.
type SyncStateRepository interface {
	AcquireLock(ctx context.Context, owner string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, owner string) error
	SaveResult(ctx context.Context, result domain.SyncResult) error
	// LastResult returns nil when no sync has completed yet.
	LastResult(ctx context.Context) (*domain.SyncResult, error)
}

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
end
return 0`)

type redisSyncStateRepository struct {
	client *redis.Client
}

// NewSyncStateRepository returns a Redis-backed implementation.
func NewSyncStateRepository(client *redis.Client) SyncStateRepository {
	return &redisSyncStateRepository{client: client}
}

func (r *redisSyncStateRepository) AcquireLock(ctx context.Context, owner string, ttl time.Duration) (bool, error) {
	return r.client.SetNX(ctx, syncLockKey, owner, ttl).Result()
}

func (r *redisSyncStateRepository) ReleaseLock(ctx context.Context, owner string) error {
	return releaseScript.Run(ctx, r.client, []string{syncLockKey}, owner).Err()
}

func (r *redisSyncStateRepository) SaveResult(ctx context.Context, result domain.SyncResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, syncResultKey, payload, 0).Err()
}

func (r *redisSyncStateRepository) LastResult(ctx context.Context) (*domain.SyncResult, error) {
	payload, err := r.client.Get(ctx, syncResultKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var result domain.SyncResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
