package database

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/quizarena/quizarena/internal/economy"
	"github.com/quizarena/quizarena/internal/models"
)

// ApplyAnswerDeltas commits one answer's worth of ledger movement in a
// single statement. Rating and points floor at zero inside the query so
// concurrent settlements cannot race a read-modify-write below the floor.
func ApplyAnswerDeltas(ctx context.Context, userID uuid.UUID, d economy.AnswerDeltas) error {
	q := `
	UPDATE users SET
		rating         = GREATEST(rating + $1, 0),
		points         = GREATEST(points + $2, 0),
		ranked_correct = ranked_correct + $3,
		ranked_total   = ranked_total + $4,
		casual_correct = casual_correct + $5,
		casual_total   = casual_total + $6
	WHERE id = $7
	`
	return pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, q,
			d.Rating, d.Points,
			d.RankedCorrect, d.RankedTotal,
			d.CasualCorrect, d.CasualTotal,
			userID,
		)
		return err
	})
}

// AddTokens credits (or debits, with floor) the user's token balance.
func AddTokens(ctx context.Context, userID uuid.UUID, amount int) error {
	q := `UPDATE users SET tokens = GREATEST(tokens + $1, 0) WHERE id = $2`
	return pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, q, amount, userID)
		return err
	})
}

// SpendTokens conditionally debits the balance. Returns false when the
// balance could not cover the amount; the row is left untouched.
func SpendTokens(ctx context.Context, userID uuid.UUID, amount int) (bool, error) {
	q := `UPDATE users SET tokens = tokens - $1 WHERE id = $2 AND tokens >= $1`
	tag, err := DB.Exec(ctx, q, amount, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// GrantItem appends the item to the owned set, optionally equipping it.
// Returns false when the NOT-ANY guard matched nothing, meaning the item
// was already owned (for example by a concurrent duplicate purchase).
func GrantItem(ctx context.Context, userID uuid.UUID, itemID string, equip bool) (bool, error) {
	q := `
	UPDATE users SET
		owned_items = array_append(owned_items, $1),
		equipped    = CASE WHEN $2 THEN $1 ELSE equipped END
	WHERE id = $3 AND NOT ($1 = ANY(owned_items))
	`
	var granted bool
	err := pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, q, itemID, equip, userID)
		if err != nil {
			return err
		}
		granted = tag.RowsAffected() > 0
		return nil
	})
	return granted, err
}

// SetInactivity persists the watchdog counters. A zero penaltyUntil
// clears any standing penalty.
func SetInactivity(ctx context.Context, userID uuid.UUID, warnings int, penaltyUntil time.Time) error {
	q := `UPDATE users SET inactivity_warnings = $1, penalty_until = $2 WHERE id = $3`
	_, err := DB.Exec(ctx, q, warnings, penaltyUntil, userID)
	return err
}

// InactivityState loads the persisted warning counter and penalty expiry.
func InactivityState(ctx context.Context, userID uuid.UUID) (int, time.Time, error) {
	q := `SELECT inactivity_warnings, penalty_until FROM users WHERE id = $1`
	var warnings int
	var until time.Time
	if err := DB.QueryRow(ctx, q, userID).Scan(&warnings, &until); err != nil {
		return 0, time.Time{}, err
	}
	return warnings, until, nil
}

// SetSoloProgress records a new furthest stage and per-stage best score.
// GREATEST keeps a replayed earlier stage from regressing either value.
func SetSoloProgress(ctx context.Context, userID uuid.UUID, stage, score int) error {
	q := `
	UPDATE users SET
		solo_stage = GREATEST(solo_stage, $1::int),
		solo_best  = jsonb_set(
			solo_best,
			ARRAY[$2::text],
			to_jsonb(GREATEST(COALESCE((solo_best->>$2)::int, 0), $3::int))
		)
	WHERE id = $4
	`
	key := strconv.Itoa(stage)
	_, err := DB.Exec(ctx, q, stage, key, score, userID)
	return err
}

// TopUsersByRating returns the top n profiles ordered by ranked rating.
func TopUsersByRating(ctx context.Context, n int) ([]models.LeaderboardEntry, error) {
	q := `SELECT username, rating FROM users ORDER BY rating DESC, username ASC LIMIT $1`
	rows, err := DB.Query(ctx, q, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.LeaderboardEntry
	for rows.Next() {
		var e models.LeaderboardEntry
		if err := rows.Scan(&e.Username, &e.Rating); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Store adapts the package-level query functions to the interfaces the
// engine, shop, and watchdog accept, so tests can swap in fakes.
type Store struct{}

func (Store) ApplyAnswerDeltas(ctx context.Context, userID uuid.UUID, d economy.AnswerDeltas) error {
	return ApplyAnswerDeltas(ctx, userID, d)
}

func (Store) AddTokens(ctx context.Context, userID uuid.UUID, amount int) error {
	return AddTokens(ctx, userID, amount)
}

func (Store) SpendTokens(ctx context.Context, userID uuid.UUID, amount int) (bool, error) {
	return SpendTokens(ctx, userID, amount)
}

func (Store) GrantItem(ctx context.Context, userID uuid.UUID, itemID string, equip bool) (bool, error) {
	return GrantItem(ctx, userID, itemID, equip)
}

func (Store) GetUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	return GetUserByID(ctx, userID)
}

func (Store) SetInactivity(ctx context.Context, userID uuid.UUID, warnings int, penaltyUntil time.Time) error {
	return SetInactivity(ctx, userID, warnings, penaltyUntil)
}

func (Store) InactivityState(ctx context.Context, userID uuid.UUID) (int, time.Time, error) {
	return InactivityState(ctx, userID)
}
