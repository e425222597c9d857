// internal/watchdog/monitor.go
package watchdog

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/quizarena/quizarena/internal/broadcast"
)

// Defaults for the escalation schedule.
const (
	DefaultWarnAfter       = 30 * time.Second
	DefaultPenaltyDuration = 60 * time.Second
	DefaultMaxWarnings     = 3
)

// ProfileStore persists the warning counter and penalty expiry on the
// durable profile.
type ProfileStore interface {
	SetInactivity(ctx context.Context, userID uuid.UUID, warnings int, penaltyUntil time.Time) error

	// InactivityState loads the persisted warning counter and penalty
	// expiry for a profile.
	InactivityState(ctx context.Context, userID uuid.UUID) (int, time.Time, error)
}

// Monitor owns one single-shot inactivity timer per connected session,
// keyed by user id. Any activity signal while flagged in-game re-arms the
// timer; expiry escalates warnings and, at the limit, applies a penalty
// and forces the user out of any in-progress lobby.
type Monitor struct {
	WarnAfter       time.Duration
	PenaltyDuration time.Duration
	MaxWarnings     int

	Store  ProfileStore
	Bcast  broadcast.Broadcaster
	Logger *logrus.Logger

	// ForceLeave reuses the membership leave cascade (emptiness and host
	// reassignment rules) to kick the user from any in-progress lobby.
	ForceLeave func(userID uuid.UUID)

	mu       sync.Mutex
	sessions map[uuid.UUID]*session
}

// session tracks one user's watchdog state. gen guards against a timer
// that fires after cancellation or re-arm; a stale generation is a no-op.
type session struct {
	timer    *time.Timer
	warnings int
	gen      int
	inGame   bool
}

// NewMonitor returns a monitor with the default escalation schedule.
func NewMonitor(store ProfileStore) *Monitor {
	return &Monitor{
		WarnAfter:       DefaultWarnAfter,
		PenaltyDuration: DefaultPenaltyDuration,
		MaxWarnings:     DefaultMaxWarnings,
		Store:           store,
		sessions:        make(map[uuid.UUID]*session),
	}
}

// EnterGame flags a session as in-game and arms its timer. A new session
// seeds its warning counter from the durable profile, so reconnecting does
// not reset a player's escalation.
func (m *Monitor) EnterGame(userID uuid.UUID) {
	m.mu.Lock()
	if s, ok := m.sessions[userID]; ok {
		s.inGame = true
		m.armUnsafe(userID, s)
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	warnings := 0
	if m.Store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		w, _, err := m.Store.InactivityState(ctx, userID)
		cancel()
		if err == nil {
			warnings = w
		} else if m.Logger != nil {
			m.Logger.WithField("user", userID).WithError(err).Warn("loading inactivity state failed")
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[userID]
	if !ok {
		s = &session{warnings: warnings}
		m.sessions[userID] = s
	}
	s.inGame = true
	m.armUnsafe(userID, s)
}

// Activity re-arms the timer for an in-game session. Signals for unknown
// or out-of-game sessions are ignored.
func (m *Monitor) Activity(userID uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[userID]
	if !ok || !s.inGame {
		return
	}
	m.armUnsafe(userID, s)
}

// ExitGame cancels the timer on explicit exit so it cannot fire against a
// session that is no longer playing.
func (m *Monitor) ExitGame(userID uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[userID]
	if !ok {
		return
	}
	s.inGame = false
	m.disarmUnsafe(s)
}

// Disconnect tears the session down entirely. Idempotent: a timer firing
// after the session is gone is a no-op.
func (m *Monitor) Disconnect(userID uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[userID]
	if !ok {
		return
	}
	m.disarmUnsafe(s)
	delete(m.sessions, userID)
}

// Warnings reports the current in-memory warning count for a session.
func (m *Monitor) Warnings(userID uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[userID]; ok {
		return s.warnings
	}
	return 0
}

// armUnsafe (re)schedules the single-shot timer, invalidating any timer
// already in flight via the generation counter. Assumes lock is held.
func (m *Monitor) armUnsafe(userID uuid.UUID, s *session) {
	m.disarmUnsafe(s)
	s.gen++
	gen := s.gen
	s.timer = time.AfterFunc(m.WarnAfter, func() {
		m.fire(userID, gen)
	})
}

// disarmUnsafe stops the pending timer if any. Assumes lock is held.
func (m *Monitor) disarmUnsafe(s *session) {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.gen++
}

// fire handles a timer expiry. Persistence and the kick cascade run
// outside the monitor lock; lobby mutexes must never nest inside it.
func (m *Monitor) fire(userID uuid.UUID, gen int) {
	m.mu.Lock()
	s, ok := m.sessions[userID]
	if !ok || s.gen != gen || !s.inGame {
		m.mu.Unlock()
		return
	}

	s.warnings++
	penalize := s.warnings >= m.MaxWarnings
	warnings := s.warnings
	if penalize {
		s.warnings = 0
		s.inGame = false
		s.timer = nil
	} else {
		m.armUnsafe(userID, s)
	}
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if penalize {
		until := time.Now().Add(m.PenaltyDuration)
		if err := m.Store.SetInactivity(ctx, userID, 0, until); err != nil && m.Logger != nil {
			m.Logger.WithField("user", userID).WithError(err).Error("persisting penalty failed")
		}
		if m.ForceLeave != nil {
			m.ForceLeave(userID)
		}
		if m.Bcast != nil {
			m.Bcast.ToUser(userID, broadcast.Event{
				Type: broadcast.EventPenaltyApplied,
				Payload: map[string]interface{}{
					"until": until.Unix(),
				},
			})
		}
		return
	}

	if err := m.Store.SetInactivity(ctx, userID, warnings, time.Time{}); err != nil && m.Logger != nil {
		m.Logger.WithField("user", userID).WithError(err).Error("persisting warning failed")
	}
	if m.Bcast != nil {
		m.Bcast.ToUser(userID, broadcast.Event{
			Type: broadcast.EventInactivityWarning,
			Payload: map[string]interface{}{
				"warnings": warnings,
				"limit":    m.MaxWarnings,
			},
		})
	}
}
