// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	recordKeyPrefix = "video:"
	indexKey        = "videos:all"

	fieldVideoID      = "videoId"
	fieldLocator      = "blobUrl"
	fieldCreatedAt    = "createdAt"
	fieldViewCount    = "viewCount"
	fieldWatchSeconds = "totalWatchTime"
)

// RedisStore is a Redis-backed Store. Records live in hashes under
// "video:<id>"; counters use HINCRBY so concurrent increments are atomic on
// the server. The "videos:all" list holds the newest-first id index via
// LPUSH.
type RedisStore struct {
	client *redis.Client
	log    zerolog.Logger
}

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr     string // Redis server address (host:port)
	Password string // Redis password (optional)
	DB       int    // Redis database number
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(cfg RedisConfig, logger zerolog.Logger) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	logger.Info().Str("addr", cfg.Addr).Int("db", cfg.DB).Msg("connected to Redis metadata store")
	return &RedisStore{client: client, log: logger}, nil
}

// newRedisStoreWithClient is used by tests to wrap an existing client.
func newRedisStoreWithClient(client *redis.Client, logger zerolog.Logger) *RedisStore {
	return &RedisStore{client: client, log: logger}
}

// createScript inserts the full record hash and prepends the id to the
// index in one server-side step, so no interleaving or mid-create failure
// can leave a partial hash behind. Field names mirror the field* constants.
var createScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
	return 0
end
redis.call("HSET", KEYS[1],
	"videoId", ARGV[1],
	"blobUrl", ARGV[2],
	"createdAt", ARGV[3],
	"viewCount", ARGV[4],
	"totalWatchTime", ARGV[5])
redis.call("LPUSH", KEYS[2], ARGV[1])
return 1
`)

// Create inserts rec and prepends its id to the index atomically.
func (s *RedisStore) Create(ctx context.Context, rec VideoRecord) error {
	key := recordKeyPrefix + rec.VideoID

	created, err := createScript.Run(ctx, s.client,
		[]string{key, indexKey},
		rec.VideoID,
		rec.Locator,
		rec.CreatedAt.UTC().Format(time.RFC3339Nano),
		rec.ViewCount,
		rec.TotalWatchSeconds,
	).Int()
	if err != nil {
		return fmt.Errorf("create %s: %w", key, err)
	}
	if created == 0 {
		return ErrAlreadyExists
	}
	return nil
}

// Get returns the record for id.
func (s *RedisStore) Get(ctx context.Context, id string) (VideoRecord, error) {
	fields, err := s.client.HGetAll(ctx, recordKeyPrefix+id).Result()
	if err != nil {
		return VideoRecord{}, fmt.Errorf("get %s: %w", id, err)
	}
	// A hash without a createdAt field is a partial write (a create that
	// never completed on an older deployment); treat it as absent.
	if len(fields) == 0 || fields[fieldCreatedAt] == "" {
		return VideoRecord{}, ErrNotFound
	}
	return recordFromFields(fields)
}

// IncrementViewCount atomically increments the view counter via HINCRBY.
// Records are never deleted, so the existence check cannot go stale between
// the check and the increment.
func (s *RedisStore) IncrementViewCount(ctx context.Context, id string) (uint64, error) {
	key := recordKeyPrefix + id

	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("increment %s: %w", id, err)
	}
	if exists == 0 {
		return 0, ErrNotFound
	}

	n, err := s.client.HIncrBy(ctx, key, fieldViewCount, 1).Result()
	if err != nil {
		return 0, fmt.Errorf("increment %s: %w", id, err)
	}
	return uint64(n), nil
}

// AddWatchTime atomically adds seconds to the cumulative total via HINCRBY.
// The delta is bounded by MaxWatchSeconds so the int64 increment cannot wrap
// the stored total negative.
func (s *RedisStore) AddWatchTime(ctx context.Context, id string, seconds uint64) error {
	if err := checkWatchSeconds(seconds); err != nil {
		return err
	}
	key := recordKeyPrefix + id

	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("add watch time %s: %w", id, err)
	}
	if exists == 0 {
		return ErrNotFound
	}

	if err := s.client.HIncrBy(ctx, key, fieldWatchSeconds, int64(seconds)).Err(); err != nil {
		return fmt.Errorf("add watch time %s: %w", id, err)
	}
	return nil
}

// ListAll walks the newest-first index and loads each record. Index entries
// without a record (half-completed creates) are skipped.
func (s *RedisStore) ListAll(ctx context.Context) ([]VideoRecord, error) {
	ids, err := s.client.LRange(ctx, indexKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list index: %w", err)
	}

	out := make([]VideoRecord, 0, len(ids))
	for _, id := range ids {
		rec, err := s.Get(ctx, id)
		if err != nil {
			if err == ErrNotFound {
				continue
			}
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func recordFromFields(fields map[string]string) (VideoRecord, error) {
	rec := VideoRecord{
		VideoID: fields[fieldVideoID],
		Locator: fields[fieldLocator],
	}

	if v := fields[fieldCreatedAt]; v != "" {
		ts, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return VideoRecord{}, fmt.Errorf("parse createdAt: %w", err)
		}
		rec.CreatedAt = ts
	}
	if v := fields[fieldViewCount]; v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return VideoRecord{}, fmt.Errorf("parse viewCount: %w", err)
		}
		rec.ViewCount = n
	}
	if v := fields[fieldWatchSeconds]; v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return VideoRecord{}, fmt.Errorf("parse totalWatchTime: %w", err)
		}
		rec.TotalWatchSeconds = n
	}
	return rec, nil
}
