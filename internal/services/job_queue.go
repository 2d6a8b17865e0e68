package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

const generationQueueKey = "generation_queue"

// ErrQueueEmpty is returned by Dequeue when nothing arrived before the timeout.
var ErrQueueEmpty = errors.New("generation queue empty")

// JobQueue hands generation job ids to workers through a Redis list.
type JobQueue struct {
	rdb *redis.Client
}

func NewJobQueue(rdb *redis.Client) *JobQueue {
	return &JobQueue{rdb: rdb}
}

func (q *JobQueue) Enqueue(ctx context.Context, jobID uint) error {
	if err := q.rdb.RPush(ctx, generationQueueKey, jobID).Err(); err != nil {
		return fmt.Errorf("enqueue job %d: %w", jobID, err)
	}
	return nil
}

// Dequeue blocks up to timeout for the next job id.
func (q *JobQueue) Dequeue(ctx context.Context, timeout time.Duration) (uint, error) {
	result, err := q.rdb.BLPop(ctx, timeout, generationQueueKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, ErrQueueEmpty
		}
		return 0, err
	}
	// result[0] is the key, result[1] the value.
	id, err := strconv.ParseUint(result[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed job id %q: %w", result[1], err)
	}
	return uint(id), nil
}

func (q *JobQueue) Len(ctx context.Context) (int64, error) {
	return q.rdb.LLen(ctx, generationQueueKey).Result()
}
