package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/BytePitApp/bytepit-api/internal/domain/model"
	"github.com/redis/go-redis/v9"
)

// ErrQueueEmpty is returned by Pop when no job arrived within the timeout.
var ErrQueueEmpty = errors.New("queue empty")

// MailQueue is a Redis list used as a FIFO of outgoing mail:
// LPUSH on enqueue, BRPOP on dequeue.
type MailQueue struct {
	rdb  *redis.Client
	name string
}

func NewMailQueue(rdb *redis.Client, name string) *MailQueue {
	return &MailQueue{rdb: rdb, name: name}
}

func (q *MailQueue) Enqueue(ctx context.Context, job model.MailJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal mail job: %w", err)
	}
	if err := q.rdb.LPush(ctx, q.name, payload).Err(); err != nil {
		return fmt.Errorf("push mail job to %s: %w", q.name, err)
	}
	return nil
}

// Pop blocks for up to timeout waiting for the next job.
func (q *MailQueue) Pop(ctx context.Context, timeout time.Duration) (*model.MailJob, error) {
	res, err := q.rdb.BRPop(ctx, timeout, q.name).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrQueueEmpty
		}
		return nil, err
	}
	// res is [queueName, value]
	if len(res) < 2 || res[1] == "" {
		return nil, ErrQueueEmpty
	}
	var job model.MailJob
	if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
		return nil, fmt.Errorf("decode mail job: %w", err)
	}
	return &job, nil
}
