// internal/leaderboard/leaderboard.go
package leaderboard

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/quizarena/quizarena/internal/cache"
	"github.com/quizarena/quizarena/internal/models"
)

// DefaultTTL bounds ladder staleness between durable-store refreshes.
const DefaultTTL = 30 * time.Second

// Fetcher loads the top n profiles from the durable store.
type Fetcher func(ctx context.Context, n int) ([]models.LeaderboardEntry, error)

// Service serves the ranked ladder, fronting the durable store with the
// Redis sorted-set cache. A cold or expired cache falls through to the
// fetcher and is repopulated on the way out.
type Service struct {
	Fetch  Fetcher
	TTL    time.Duration
	Logger *logrus.Logger
}

// New builds a ladder service with the default TTL.
func New(fetch Fetcher) *Service {
	return &Service{Fetch: fetch, TTL: DefaultTTL}
}

// Top returns the top n ladder rows, preferring the cache.
func (s *Service) Top(ctx context.Context, n int) ([]models.LeaderboardEntry, error) {
	cached, err := cache.GetLeaderboard(ctx, n)
	if err != nil && s.Logger != nil {
		s.Logger.WithError(err).Warn("leaderboard cache read failed, falling back to db")
	}
	if len(cached) >= n {
		return cached[:n], nil
	}

	rows, err := s.Fetch(ctx, n)
	if err != nil {
		return nil, err
	}

	ttl := s.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if err := cache.SetLeaderboard(ctx, rows, ttl); err != nil && s.Logger != nil {
		s.Logger.WithError(err).Warn("leaderboard cache write failed")
	}
	return rows, nil
}
