// internal/cache/leaderboard.go
package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/quizarena/quizarena/internal/models"
)

// LeaderboardKey is the sorted set holding the cached ranked ladder,
// scored by rating.
const LeaderboardKey = "quizarena:leaderboard"

// GetLeaderboard reads the top n entries from the cached sorted set.
// Returns redis.Nil semantics as an empty slice.
func GetLeaderboard(ctx context.Context, n int) ([]models.LeaderboardEntry, error) {
	if Rdb == nil {
		return nil, nil
	}
	zs, err := Rdb.ZRevRangeWithScores(ctx, LeaderboardKey, 0, int64(n-1)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]models.LeaderboardEntry, 0, len(zs))
	for _, z := range zs {
		name, ok := z.Member.(string)
		if !ok {
			continue
		}
		out = append(out, models.LeaderboardEntry{Username: name, Rating: int(z.Score)})
	}
	return out, nil
}

// SetLeaderboard replaces the cached sorted set with the given rows and
// applies a TTL so a stale cache self-heals from the durable store.
func SetLeaderboard(ctx context.Context, entries []models.LeaderboardEntry, ttl time.Duration) error {
	if Rdb == nil || len(entries) == 0 {
		return nil
	}
	members := make([]redis.Z, 0, len(entries))
	for _, e := range entries {
		members = append(members, redis.Z{Member: e.Username, Score: float64(e.Rating)})
	}

	pipe := Rdb.TxPipeline()
	pipe.Del(ctx, LeaderboardKey)
	pipe.ZAdd(ctx, LeaderboardKey, members...)
	pipe.Expire(ctx, LeaderboardKey, ttl)
	_, err := pipe.Exec(ctx)
	return err
}
