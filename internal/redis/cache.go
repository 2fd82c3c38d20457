// Package redis mirrors each ranked leaderboard bucket into a sorted set so
// top-N reads and broadcasts do not hit PostgreSQL. PostgreSQL stays the
// source of truth; the mirror is rewritten after every successful update run.
package redis

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/logistics-leaderboard/internal/config"
	"github.com/logistics-leaderboard/internal/domain"
	"github.com/redis/go-redis/v9"
)

// Cache provides Redis-based leaderboard mirror operations
type Cache struct {
	client *redis.Client
	logger *slog.Logger
}

// RankedScore is one member of a mirrored bucket.
type RankedScore struct {
	ParticipantID string  `json:"participant_id"`
	Score         float64 `json:"score"`
	Rank          int64   `json:"rank"`
}

// NewCache creates a new Redis cache
func NewCache(cfg *config.RedisConfig, logger *slog.Logger) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	// Test connection
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &Cache{
		client: client,
		logger: logger,
	}, nil
}

// Close closes the Redis connection
func (c *Cache) Close() error {
	return c.client.Close()
}

// bucketKey returns the Redis key for a (type, period) bucket's sorted set
func (c *Cache) bucketKey(role domain.Role, period domain.Period) string {
	return fmt.Sprintf("leaderboard:%s:%s", role, period)
}

// WriteBucket replaces the mirrored sorted set for a bucket with the ranked
// entries from the latest update run
func (c *Cache) WriteBucket(ctx context.Context, role domain.Role, period domain.Period, entries []*domain.Entry) error {
	key := c.bucketKey(role, period)

	members := make([]redis.Z, 0, len(entries))
	for _, e := range entries {
		members = append(members, redis.Z{
			Score:  e.TotalScore,
			Member: e.ParticipantID,
		})
	}

	pipe := c.client.TxPipeline()
	pipe.Del(ctx, key)
	if len(members) > 0 {
		pipe.ZAdd(ctx, key, members...)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("writing bucket mirror: %w", err)
	}
	return nil
}

// TopN returns the top N participants from a mirrored bucket
func (c *Cache) TopN(ctx context.Context, role domain.Role, period domain.Period, n int) ([]RankedScore, error) {
	key := c.bucketKey(role, period)

	results, err := c.client.ZRevRangeWithScores(ctx, key, 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("getting top n: %w", err)
	}

	scores := make([]RankedScore, 0, len(results))
	for i, z := range results {
		id, ok := z.Member.(string)
		if !ok {
			continue
		}
		scores = append(scores, RankedScore{
			ParticipantID: id,
			Score:         z.Score,
			Rank:          int64(i + 1),
		})
	}
	return scores, nil
}

// Position returns a participant's mirrored rank and score
func (c *Cache) Position(ctx context.Context, role domain.Role, period domain.Period, participantID string) (*RankedScore, error) {
	key := c.bucketKey(role, period)

	rank, err := c.client.ZRevRank(ctx, key, participantID).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, domain.ErrParticipantNotFound
		}
		return nil, fmt.Errorf("getting rank: %w", err)
	}

	score, err := c.client.ZScore(ctx, key, participantID).Result()
	if err != nil {
		return nil, fmt.Errorf("getting score: %w", err)
	}

	return &RankedScore{
		ParticipantID: participantID,
		Score:         score,
		Rank:          rank + 1,
	}, nil
}

// Count returns the number of participants in a mirrored bucket
func (c *Cache) Count(ctx context.Context, role domain.Role, period domain.Period) (int64, error) {
	count, err := c.client.ZCard(ctx, c.bucketKey(role, period)).Result()
	if err != nil {
		return 0, fmt.Errorf("getting count: %w", err)
	}
	return count, nil
}

// Invalidate removes a bucket's mirror, forcing reads back to PostgreSQL
func (c *Cache) Invalidate(ctx context.Context, role domain.Role, period domain.Period) error {
	if err := c.client.Del(ctx, c.bucketKey(role, period)).Err(); err != nil {
		return fmt.Errorf("invalidating bucket mirror: %w", err)
	}
	return nil
}
