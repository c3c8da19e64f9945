package effects

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
)

// Failure is one side effect that did not complete
type Failure struct {
	Effect string    `json:"effect" msgpack:"effect"`
	Error  string    `json:"error" msgpack:"error"`
	At     time.Time `json:"at" msgpack:"at"`
}

// FailureLog keeps recent side-effect failures for operators
type FailureLog interface {
	Record(ctx context.Context, f Failure) error
	Recent(ctx context.Context, limit int) ([]Failure, error)
}

// DefaultFailureLogSize is the number of failures retained
const DefaultFailureLogSize = 1000

// MemoryFailureLog is a bounded in-process ring of failures
type MemoryFailureLog struct {
	mu      sync.Mutex
	entries []Failure
	max     int
}

// NewMemoryFailureLog creates a log retaining at most max entries
func NewMemoryFailureLog(max int) *MemoryFailureLog {
	if max < 1 {
		max = DefaultFailureLogSize
	}
	return &MemoryFailureLog{max: max}
}

// Record appends a failure, evicting the oldest when full
func (l *MemoryFailureLog) Record(_ context.Context, f Failure) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries, f)
	if over := len(l.entries) - l.max; over > 0 {
		l.entries = append([]Failure(nil), l.entries[over:]...)
	}
	return nil
}

// Recent returns up to limit failures, newest first
func (l *MemoryFailureLog) Recent(_ context.Context, limit int) ([]Failure, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if limit <= 0 || limit > len(l.entries) {
		limit = len(l.entries)
	}
	out := make([]Failure, 0, limit)
	for i := len(l.entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, l.entries[i])
	}
	return out, nil
}

// RedisFailureLog keeps failures in a capped Redis list so every replica
// reports into the same place.
type RedisFailureLog struct {
	client redis.Cmdable
	key    string
	max    int64
}

// DefaultFailureLogKey is the Redis list holding failures
const DefaultFailureLogKey = "effects:failures"

// NewRedisFailureLog creates a Redis-backed failure log
func NewRedisFailureLog(client redis.Cmdable, key string, max int) *RedisFailureLog {
	if key == "" {
		key = DefaultFailureLogKey
	}
	if max < 1 {
		max = DefaultFailureLogSize
	}
	return &RedisFailureLog{client: client, key: key, max: int64(max)}
}

// Record pushes the failure and trims the list
func (l *RedisFailureLog) Record(ctx context.Context, f Failure) error {
	data, err := msgpack.Marshal(&f)
	if err != nil {
		return fmt.Errorf("failed to encode failure: %w", err)
	}

	pipe := l.client.TxPipeline()
	pipe.LPush(ctx, l.key, data)
	pipe.LTrim(ctx, l.key, 0, l.max-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record failure: %w", err)
	}
	return nil
}

// Recent returns up to limit failures, newest first
func (l *RedisFailureLog) Recent(ctx context.Context, limit int) ([]Failure, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}
	raw, err := l.client.LRange(ctx, l.key, 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read failures: %w", err)
	}

	out := make([]Failure, 0, len(raw))
	for _, item := range raw {
		var f Failure
		if err := msgpack.Unmarshal([]byte(item), &f); err != nil {
			return nil, fmt.Errorf("failed to decode failure: %w", err)
		}
		out = append(out, f)
	}
	return out, nil
}
