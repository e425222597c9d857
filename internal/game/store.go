// internal/game/store.go
package game

import (
	"context"

	"github.com/google/uuid"
	"github.com/quizarena/quizarena/internal/economy"
)

// UserStore is the persistence surface the engine needs. The User aggregate
// is mutated from many lobbies concurrently, so deltas must be applied as
// atomic increments by the implementation, never read-modify-write.
type UserStore interface {
	// ApplyAnswerDeltas settles one answer's ledger entry. Rating and
	// points totals are floored at zero by the implementation.
	ApplyAnswerDeltas(ctx context.Context, userID uuid.UUID, d economy.AnswerDeltas) error

	// AddTokens credits the win payout to a profile.
	AddTokens(ctx context.Context, userID uuid.UUID, amount int) error
}
