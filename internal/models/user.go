package models

import (
	"time"

	"github.com/google/uuid"
)

// User is the durable player profile. Lobby players hold a snapshot of the
// rating/points fields taken at join time; the profile itself is only
// written back as deltas after scored events.
type User struct {
	ID       uuid.UUID `json:"id"`
	Email    string    `json:"email"`
	Password string    `json:"password,omitempty"`
	Username string    `json:"username"`

	Rating int `json:"rating"`
	Points int `json:"points"`

	RankedCorrect int `json:"ranked_correct"`
	RankedTotal   int `json:"ranked_total"`
	CasualCorrect int `json:"casual_correct"`
	CasualTotal   int `json:"casual_total"`

	// Solo progression: current stage plus best accuracy per cleared stage,
	// keyed by the stage number in decimal form.
	SoloStage int            `json:"solo_stage"`
	SoloBest  map[string]int `json:"solo_best,omitempty"`

	Tokens     int      `json:"tokens"`
	OwnedItems []string `json:"owned_items,omitempty"`
	Equipped   string   `json:"equipped,omitempty"`

	InactivityWarnings int       `json:"inactivity_warnings"`
	PenaltyUntil       time.Time `json:"penalty_until,omitempty"`
}

// Penalized reports whether the user is currently locked out of creating or
// joining lobbies.
func (u *User) Penalized(now time.Time) bool {
	return u.PenaltyUntil.After(now)
}
