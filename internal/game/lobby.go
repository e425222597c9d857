// internal/game/lobby.go
package game

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/quizarena/quizarena/internal/cards"
	"github.com/quizarena/quizarena/internal/models"
	"github.com/quizarena/quizarena/internal/questions"
)

// Valid lobby modes: tier x question family.
var validModes = map[string]bool{
	"casual_quiz":  true,
	"ranked_quiz":  true,
	"custom_quiz":  true,
	"casual_blank": true,
	"ranked_blank": true,
	"custom_blank": true,
	"casual_solo":  true,
	"ranked_solo":  true,
	"custom_solo":  true,
}

// Config carries the host-supplied settings for a new lobby.
type Config struct {
	Name         string `json:"name"`
	Mode         string `json:"mode"`
	Capacity     int    `json:"capacity"`
	InitialLives int    `json:"initial_lives"`
	TimerSec     int    `json:"timer_sec"`
	Frenzy       bool   `json:"frenzy"`
}

// Lobby is the aggregate root for one session: the ordered player list is
// the turn order, and every operation on the lobby is serialized through Mu
// so the load-mutate-save sequence is single-writer per lobby id.
type Lobby struct {
	ID     uuid.UUID `json:"id"`
	Name   string    `json:"name"`
	Mode   string    `json:"mode"`
	HostID uuid.UUID `json:"host_id"`

	Players  []*models.Player `json:"players"`
	Capacity int              `json:"capacity"`
	Started  bool             `json:"started"`
	Finished bool             `json:"finished"`

	Chat []models.ChatMessage `json:"-"`

	Ranked bool `json:"ranked"`
	Custom bool `json:"custom"`
	Frenzy bool `json:"frenzy"`

	InitialLives int `json:"initial_lives"`
	TimerSec     int `json:"timer_sec"`

	Cycles             int `json:"-"`
	CurrentQuestion    int `json:"-"`
	CurrentPlayerIndex int `json:"-"`

	Questions []models.Question `json:"-"`

	// OnEmpty is invoked when the last human leaves, typically wired to the
	// registry's delete by the code that created the lobby.
	OnEmpty func(lobbyID uuid.UUID) `json:"-"`

	Mu sync.Mutex `json:"-"`
}

// NewLobby validates the config and builds a lobby seeded with the host and
// synthetic bot players up to capacity. Bots are always ready; humans are
// ready-by-default only in ranked mode. The host's penalty state must be
// checked by the caller before construction.
func NewLobby(host *models.User, cfg Config) (*Lobby, error) {
	if cfg.Capacity < 1 {
		return nil, fmt.Errorf("%w: capacity %d", ErrInvalidConfig, cfg.Capacity)
	}
	if !validModes[cfg.Mode] {
		return nil, fmt.Errorf("%w: unknown mode %q", ErrInvalidConfig, cfg.Mode)
	}
	if cfg.InitialLives <= 0 {
		cfg.InitialLives = 3
	}
	if cfg.TimerSec <= 0 {
		cfg.TimerSec = 30
	}

	ranked := strings.HasPrefix(cfg.Mode, "ranked_")
	custom := strings.HasPrefix(cfg.Mode, "custom_")

	l := &Lobby{
		ID:           uuid.New(),
		Name:         cfg.Name,
		Mode:         cfg.Mode,
		HostID:       host.ID,
		Capacity:     cfg.Capacity,
		Ranked:       ranked,
		Custom:       custom,
		Frenzy:       cfg.Frenzy && custom,
		InitialLives: cfg.InitialLives,
		TimerSec:     cfg.TimerSec,
	}

	l.Players = append(l.Players, l.newHumanPlayer(host))
	for i := len(l.Players); i < cfg.Capacity; i++ {
		l.Players = append(l.Players, l.newBotPlayer(i))
	}
	return l, nil
}

func (l *Lobby) newHumanPlayer(u *models.User) *models.Player {
	return &models.Player{
		UserID:   u.ID,
		Username: u.Username,
		Ready:    l.Ranked,
		Rating:   u.Rating,
		Points:   u.Points,
		Lives:    l.InitialLives,
		Hand:     cards.Deal(l.Frenzy),
	}
}

func (l *Lobby) newBotPlayer(seat int) *models.Player {
	return &models.Player{
		UserID:   uuid.New(),
		Username: fmt.Sprintf("Bot %d", seat),
		Ready:    true,
		IsBot:    true,
		Lives:    l.InitialLives,
		Hand:     cards.Deal(l.Frenzy),
	}
}

// Family maps the lobby mode to its question bank family. Solo and unknown
// suffixes fall back to the quiz bank.
func (l *Lobby) Family() questions.Family {
	if strings.HasSuffix(l.Mode, "_blank") {
		return questions.FamilyBlank
	}
	return questions.FamilyQuiz
}

// Solo reports whether this is a solo-mode lobby; bot turns there do not
// count toward the card cadence.
func (l *Lobby) Solo() bool {
	return strings.HasSuffix(l.Mode, "_solo")
}

// playerIndex returns the seat of a member, or -1. Assumes lock is held.
func (l *Lobby) playerIndex(userID uuid.UUID) int {
	for i, p := range l.Players {
		if p.UserID == userID {
			return i
		}
	}
	return -1
}

// Member returns the member with the given user id. Assumes lock is held.
func (l *Lobby) Member(userID uuid.UUID) *models.Player {
	if i := l.playerIndex(userID); i >= 0 {
		return l.Players[i]
	}
	return nil
}

// humanCount counts non-bot members. Assumes lock is held.
func (l *Lobby) humanCount() int {
	n := 0
	for _, p := range l.Players {
		if !p.IsBot {
			n++
		}
	}
	return n
}

// matchOverUnsafe reports whether play can no longer continue. Multiplayer
// lobbies end when at most one human remains; solo lobbies are one human
// against bots by design, so they run until the human falls or outlasts
// every bot seat. Assumes lock is held.
func (l *Lobby) matchOverUnsafe() bool {
	if l.Solo() {
		return l.humanCount() == 0 || len(l.Players) <= 1
	}
	return l.humanCount() <= 1
}

// soleHumanUnsafe returns the only remaining human, or nil when zero or
// several remain. Assumes lock is held.
func (l *Lobby) soleHumanUnsafe() *models.Player {
	var survivor *models.Player
	for _, p := range l.Players {
		if !p.IsBot {
			if survivor != nil {
				return nil
			}
			survivor = p
		}
	}
	return survivor
}

// joinUnsafe adds a user, enforcing the capacity and started invariants.
// A repeat join by an existing member is an idempotent no-op. When the
// lobby is full, a joining human takes over the first bot seat; LobbyFull
// is only returned once no bot seat remains. Assumes lock is held.
func (l *Lobby) joinUnsafe(u *models.User) error {
	if l.Started {
		return ErrGameStarted
	}
	if l.Member(u.ID) != nil {
		return nil
	}

	if len(l.Players) < l.Capacity {
		l.Players = append(l.Players, l.newHumanPlayer(u))
		return nil
	}
	for i, p := range l.Players {
		if p.IsBot {
			l.Players[i] = l.newHumanPlayer(u)
			return nil
		}
	}
	return ErrLobbyFull
}

// LeaveResult describes the outcome of a removal cascade.
type LeaveResult struct {
	Removed bool
	Deleted bool
	NewHost uuid.UUID
}

// leaveUnsafe removes a member and runs the emptiness/host-reassignment
// cascade. The emptiness condition is checked both before and after host
// reassignment; the second check guards a race the first can miss.
// Assumes lock is held.
func (l *Lobby) leaveUnsafe(userID uuid.UUID) LeaveResult {
	idx := l.playerIndex(userID)
	if idx < 0 {
		return LeaveResult{}
	}

	l.Players = append(l.Players[:idx], l.Players[idx+1:]...)
	if l.Started {
		l.fixTurnPointerAfterRemoval(idx)
	}
	res := LeaveResult{Removed: true}

	if l.humanCount() == 0 {
		res.Deleted = true
		return res
	}

	if l.HostID == userID {
		reassigned := false
		for _, p := range l.Players {
			if !p.IsBot {
				l.HostID = p.UserID
				res.NewHost = p.UserID
				reassigned = true
				break
			}
		}
		if !reassigned {
			// No human to promote despite the count above; destroy rather
			// than leave a hostless lobby behind.
			res.Deleted = true
		}
	}
	return res
}

// fixTurnPointerAfterRemoval keeps CurrentPlayerIndex pointing at a live
// seat after the player at removedIdx was spliced out. Assumes lock held.
func (l *Lobby) fixTurnPointerAfterRemoval(removedIdx int) {
	if len(l.Players) == 0 {
		l.CurrentPlayerIndex = 0
		return
	}
	if removedIdx < l.CurrentPlayerIndex {
		l.CurrentPlayerIndex--
	}
	if l.CurrentPlayerIndex >= len(l.Players) {
		l.CurrentPlayerIndex = 0
	}
}

// toggleReadyUnsafe flips a member's readiness. Ranked lobbies are
// always-ready and non-toggleable. Assumes lock is held.
func (l *Lobby) toggleReadyUnsafe(userID uuid.UUID) (bool, error) {
	p := l.Member(userID)
	if p == nil {
		return false, ErrNotMember
	}
	if l.Ranked {
		return true, ErrRankedAutoReady
	}
	p.Ready = !p.Ready
	return p.Ready, nil
}

// appendChatUnsafe appends to the append-only chat log. Assumes lock held.
func (l *Lobby) appendChatUnsafe(sender uuid.UUID, username, text string) models.ChatMessage {
	msg := models.ChatMessage{
		Sender:    sender,
		Username:  username,
		Text:      text,
		Timestamp: time.Now(),
	}
	l.Chat = append(l.Chat, msg)
	return msg
}

// StatusPayload summarizes lobby state for broadcast. Assumes lock is held.
func (l *Lobby) StatusPayload() map[string]interface{} {
	players := make([]map[string]interface{}, 0, len(l.Players))
	for _, p := range l.Players {
		players = append(players, map[string]interface{}{
			"id":       p.UserID.String(),
			"username": p.Username,
			"is_bot":   p.IsBot,
			"is_ready": p.Ready,
			"is_host":  p.UserID == l.HostID,
			"lives":    p.Lives,
			"score":    p.Score,
			"shields":  p.Shields,
		})
	}
	return map[string]interface{}{
		"lobby_id": l.ID.String(),
		"name":     l.Name,
		"mode":     l.Mode,
		"host_id":  l.HostID.String(),
		"started":  l.Started,
		"finished": l.Finished,
		"capacity": l.Capacity,
		"frenzy":   l.Frenzy,
		"players":  players,
	}
}
