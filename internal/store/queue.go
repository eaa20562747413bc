package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	importQueueKey = "queue:import"
	popWait        = time.Second
)

// ImportJob asks the worker to turn a web article into a draft post.
type ImportJob struct {
	ID       uuid.UUID `json:"id"`
	URL      string    `json:"url"`
	QueuedAt time.Time `json:"queued_at"`
}

// NewImportJob creates a job for rawURL.
func NewImportJob(rawURL string) ImportJob {
	return ImportJob{ID: uuid.New(), URL: rawURL, QueuedAt: time.Now().UTC()}
}

// Queue is a Redis list of import jobs.
type Queue struct {
	rdb *redis.Client
}

// NewQueue connects to Redis at addr.
func NewQueue(addr string) (*Queue, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr, ContextTimeoutEnabled: true})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &Queue{rdb: rdb}, nil
}

// Push appends a job to the queue.
func (q *Queue) Push(ctx context.Context, job ImportJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return q.rdb.LPush(ctx, importQueueKey, data).Err()
}

// Pop waits for the next job until ctx is done. BRPOP blocks for at most
// popWait per round so a cancelled ctx is noticed even without a deadline.
func (q *Queue) Pop(ctx context.Context) (ImportJob, error) {
	for {
		if err := ctx.Err(); err != nil {
			return ImportJob{}, err
		}
		result, err := q.rdb.BRPop(ctx, popWait, importQueueKey).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return ImportJob{}, err
		}

		var job ImportJob
		if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
			return ImportJob{}, fmt.Errorf("malformed import job: %w", err)
		}
		return job, nil
	}
}

// Close closes the Redis connection.
func (q *Queue) Close() error {
	return q.rdb.Close()
}

const failedQueueKey = "queue:import:failed"

// FailedImport is a job the worker gave up on.
type FailedImport struct {
	Job      ImportJob `json:"job"`
	Error    string    `json:"error"`
	FailedAt time.Time `json:"failed_at"`
}

// Fail records job as failed with msg.
func (q *Queue) Fail(ctx context.Context, job ImportJob, msg string) error {
	data, err := json.Marshal(FailedImport{Job: job, Error: msg, FailedAt: time.Now().UTC()})
	if err != nil {
		return err
	}
	return q.rdb.LPush(ctx, failedQueueKey, data).Err()
}

// Failed lists recorded failures, newest first.
func (q *Queue) Failed(ctx context.Context) ([]FailedImport, error) {
	raw, err := q.rdb.LRange(ctx, failedQueueKey, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]FailedImport, 0, len(raw))
	for _, r := range raw {
		var f FailedImport
		if err := json.Unmarshal([]byte(r), &f); err == nil {
			out = append(out, f)
		}
	}
	return out, nil
}
