// internal/shop/shop.go
package shop

import (
	"context"
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/quizarena/quizarena/internal/models"
)

var (
	ErrUnknownCode        = errors.New("unknown redeem code")
	ErrInsufficientTokens = errors.New("insufficient tokens")
	ErrAlreadyOwned       = errors.New("item already owned")
)

// Store is the persistence surface for purchases. SpendTokens must be a
// conditional atomic debit (no debit below zero) since profiles are
// mutated from many sessions concurrently.
type Store interface {
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	AddTokens(ctx context.Context, id uuid.UUID, amount int) error
	SpendTokens(ctx context.Context, id uuid.UUID, amount int) (bool, error)

	// GrantItem reports false when the item was already in the owned set
	// and nothing was written.
	GrantItem(ctx context.Context, id uuid.UUID, itemID string, equip bool) (bool, error)
}

// Shop applies redeem codes and purchases. Codes are a configuration-driven
// allow-list; catalog content itself is external static data.
type Shop struct {
	Store Store
	Codes map[string]int
}

// New builds a shop with the given allow-list.
func New(store Store, codes map[string]int) *Shop {
	if codes == nil {
		codes = map[string]int{}
	}
	return &Shop{Store: store, Codes: codes}
}

// CodesFromEnv parses REDEEM_CODES, a comma list of CODE:tokens pairs.
func CodesFromEnv() map[string]int {
	codes := map[string]int{}
	raw := os.Getenv("REDEEM_CODES")
	for _, pair := range strings.Split(raw, ",") {
		parts := strings.SplitN(strings.TrimSpace(pair), ":", 2)
		if len(parts) != 2 {
			continue
		}
		n, err := strconv.Atoi(parts[1])
		if err != nil || n <= 0 {
			continue
		}
		codes[strings.ToUpper(parts[0])] = n
	}
	return codes
}

// Redeem credits the code's token value, returning the amount granted.
func (s *Shop) Redeem(ctx context.Context, userID uuid.UUID, code string) (int, error) {
	amount, ok := s.Codes[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return 0, ErrUnknownCode
	}
	if err := s.Store.AddTokens(ctx, userID, amount); err != nil {
		return 0, err
	}
	return amount, nil
}

// Buy debits the price and adds the item to the owned set, equipping it
// immediately when it is a cosmetic. Returns the refreshed profile.
func (s *Shop) Buy(ctx context.Context, userID uuid.UUID, itemID string, price int, category string) (*models.User, error) {
	u, err := s.Store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, owned := range u.OwnedItems {
		if owned == itemID {
			return nil, ErrAlreadyOwned
		}
	}

	ok, err := s.Store.SpendTokens(ctx, userID, price)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInsufficientTokens
	}

	equip := category == "cosmetic"
	granted, err := s.Store.GrantItem(ctx, userID, itemID, equip)
	if err != nil {
		return nil, err
	}
	if !granted {
		// Lost the race with a duplicate purchase between the ownership
		// check and the grant; undo the debit.
		if rerr := s.Store.AddTokens(ctx, userID, price); rerr != nil {
			return nil, rerr
		}
		return nil, ErrAlreadyOwned
	}
	return s.Store.GetUser(ctx, userID)
}
