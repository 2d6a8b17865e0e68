package services

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const projectLockPrefix = "lock:project:"

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// ProjectLocker serialises head-changing operations on a single project
// across every API instance.
type ProjectLocker struct {
	rdb *redis.Client
	ttl time.Duration
	log *zap.Logger
}

func NewProjectLocker(rdb *redis.Client, ttl time.Duration, log *zap.Logger) *ProjectLocker {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ProjectLocker{rdb: rdb, ttl: ttl, log: log}
}

// Acquire takes the lock or fails with ErrProjectBusy. The returned func
// releases it only if this caller still owns it.
func (l *ProjectLocker) Acquire(ctx context.Context, projectID string) (func(), error) {
	key := projectLockPrefix + projectID
	token := uuid.New().String()

	ok, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire project lock: %w: %w", ErrPersistence, err)
	}
	if !ok {
		return nil, ErrProjectBusy
	}

	return func() {
		if err := releaseScript.Run(context.Background(), l.rdb, []string{key}, token).Err(); err != nil {
			l.log.Error("failed to release project lock, it expires after the ttl",
				zap.String("project_id", projectID),
				zap.Duration("ttl", l.ttl),
				zap.Error(err))
		}
	}, nil
}
