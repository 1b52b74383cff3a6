package runlock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a lock shared by every instance pointing at the same Redis database.
// The key expires after ttl so a crashed holder cannot block scheduling forever.
type Redis struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedis builds a distributed lock on key.
func NewRedis(client *redis.Client, key string, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &Redis{client: client, key: key, ttl: ttl}
}

// TryAcquire sets the key when absent, returning ErrBusy if another holder owns it.
func (r *Redis) TryAcquire(ctx context.Context) (Release, error) {
	token := uuid.NewString()
	ok, err := r.client.SetNX(ctx, r.key, token, r.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	if !ok {
		return nil, ErrBusy
	}
	return func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, r.client, []string{r.key}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("release run lock: %w", err)
		}
		return nil
	}, nil
}
