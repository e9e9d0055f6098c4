package redis

import (
	"context"
	"fmt"
	"strconv"

	goredis "github.com/redis/go-redis/v9"

	"github.com/flemzord/warden/internal/moderation"
)

var (
	_ moderation.Persistence  = (*Backend)(nil)
	_ moderation.RecordWriter = (*Backend)(nil)
)

// Backend stores counters in a single Redis hash:
//
//	Key:   <key>
//	Field: <user_id>
//	Value: <count>
type Backend struct {
	client *goredis.Client
	key    string
}

// NewBackend returns a Backend using client and the given hash key.
func NewBackend(client *goredis.Client, key string) *Backend {
	return &Backend{client: client, key: key}
}

// Load implements moderation.Persistence. A missing hash is an empty
// snapshot.
func (b *Backend) Load(ctx context.Context) (map[int64]int, error) {
	fields, err := b.client.HGetAll(ctx, b.key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: hgetall %s: %w", b.key, err)
	}

	counts := make(map[int64]int, len(fields))
	for field, value := range fields {
		id, err := strconv.ParseInt(field, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("redis: invalid user id %q: %w", field, err)
		}
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("redis: invalid count for %d: %w", id, err)
		}
		counts[id] = n
	}
	return counts, nil
}

// Save implements moderation.Persistence. The hash is replaced inside a
// MULTI/EXEC block.
func (b *Backend) Save(ctx context.Context, counts map[int64]int) error {
	values := make(map[string]any, len(counts))
	for id, n := range counts {
		values[strconv.FormatInt(id, 10)] = n
	}

	_, err := b.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Del(ctx, b.key)
		// HSET with no fields is a syntax error.
		if len(values) > 0 {
			pipe.HSet(ctx, b.key, values)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis: save %s: %w", b.key, err)
	}
	return nil
}

// Put implements moderation.RecordWriter.
func (b *Backend) Put(ctx context.Context, userID int64, count int) error {
	if err := b.client.HSet(ctx, b.key, strconv.FormatInt(userID, 10), count).Err(); err != nil {
		return fmt.Errorf("redis: put %d: %w", userID, err)
	}
	return nil
}
