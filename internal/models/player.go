package models

import "github.com/google/uuid"

// Player is a user's presence inside a single lobby. Rating and Points are
// snapshots copied from the profile at join time and are not live-synced.
type Player struct {
	UserID   uuid.UUID `json:"user_id"`
	Username string    `json:"username"`
	Ready    bool      `json:"ready"`
	IsBot    bool      `json:"is_bot"`

	Rating int `json:"rating"`
	Points int `json:"points"`

	Lives   int `json:"lives"`
	Score   int `json:"score"`
	Correct int `json:"correct"`
	Total   int `json:"total"`

	Hand        []Card `json:"hand"`
	Shields     int    `json:"shields"`
	AbilityUsed bool   `json:"ability_used"`
}

// Reset wipes all per-match state ahead of a (re)start. Hands are re-dealt
// separately by the card system.
func (p *Player) Reset(lives int) {
	p.Lives = lives
	p.Score = 0
	p.Correct = 0
	p.Total = 0
	p.Hand = nil
	p.Shields = 0
	p.AbilityUsed = false
}
