// internal/broadcast/hub.go
package broadcast

import (
	"context"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Session is a single user's live WebSocket presence in the hub.
type Session struct {
	UserID  uuid.UUID
	Conn    *websocket.Conn
	Cancel  context.CancelFunc
	OutChan chan Event

	mu     sync.Mutex
	closed bool
}

// Write pushes an event onto the session's out channel non-blockingly.
// Fan-out snapshots the target list outside the hub lock, so a write can
// race the disconnect path; writes after close are dropped, and a message
// to a saturated channel is dropped and logged.
func (s *Session) Write(logger *logrus.Logger, ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.OutChan <- ev:
	default:
		if logger != nil {
			logger.WithFields(logrus.Fields{
				"user": s.UserID,
				"type": ev.Type,
			}).Warn("broadcast channel full, dropping event")
		}
	}
}

// close tears the session down exactly once: no further writes land, the
// out channel ends the write pump, and the connection context is
// cancelled.
func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.OutChan)
	if s.Cancel != nil {
		s.Cancel()
	}
}

// Hub is the WebSocket Broadcaster implementation. It tracks one session
// per user plus a lobby-id -> member-set subscription index.
type Hub struct {
	mu       sync.Mutex
	logger   *logrus.Logger
	sessions map[uuid.UUID]*Session
	lobbies  map[uuid.UUID]map[uuid.UUID]struct{}
}

// NewHub returns an empty hub.
func NewHub(logger *logrus.Logger) *Hub {
	return &Hub{
		logger:   logger,
		sessions: make(map[uuid.UUID]*Session),
		lobbies:  make(map[uuid.UUID]map[uuid.UUID]struct{}),
	}
}

// Register installs a session for a user, replacing and cancelling any
// previous one, and starts its write pump.
func (h *Hub) Register(ctx context.Context, userID uuid.UUID, conn *websocket.Conn, cancel context.CancelFunc) *Session {
	s := &Session{
		UserID:  userID,
		Conn:    conn,
		Cancel:  cancel,
		OutChan: make(chan Event, 64),
	}

	h.mu.Lock()
	if old, ok := h.sessions[userID]; ok && old != s {
		old.close()
	}
	h.sessions[userID] = s
	h.mu.Unlock()

	go h.writePump(ctx, s)
	return s
}

// Unregister removes a user's session and all lobby subscriptions.
// Idempotent against a session that is already gone.
func (h *Hub) Unregister(userID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.sessions[userID]
	if !ok {
		return
	}
	delete(h.sessions, userID)
	for _, members := range h.lobbies {
		delete(members, userID)
	}
	s.close()
}

// Subscribe adds a user to a lobby's fan-out set.
func (h *Hub) Subscribe(lobbyID, userID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.lobbies[lobbyID]
	if !ok {
		members = make(map[uuid.UUID]struct{})
		h.lobbies[lobbyID] = members
	}
	members[userID] = struct{}{}
}

// Unsubscribe removes a user from a lobby's fan-out set.
func (h *Hub) Unsubscribe(lobbyID, userID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if members, ok := h.lobbies[lobbyID]; ok {
		delete(members, userID)
		if len(members) == 0 {
			delete(h.lobbies, lobbyID)
		}
	}
}

// ToLobby implements Broadcaster.
func (h *Hub) ToLobby(lobbyID uuid.UUID, ev Event) {
	h.mu.Lock()
	targets := make([]*Session, 0, len(h.lobbies[lobbyID]))
	for userID := range h.lobbies[lobbyID] {
		if s, ok := h.sessions[userID]; ok {
			targets = append(targets, s)
		}
	}
	h.mu.Unlock()

	for _, s := range targets {
		s.Write(h.logger, ev)
	}
}

// ToUser implements Broadcaster.
func (h *Hub) ToUser(userID uuid.UUID, ev Event) {
	h.mu.Lock()
	s, ok := h.sessions[userID]
	h.mu.Unlock()
	if ok {
		s.Write(h.logger, ev)
	}
}

// ToAll implements Broadcaster.
func (h *Hub) ToAll(ev Event) {
	h.mu.Lock()
	targets := make([]*Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		targets = append(targets, s)
	}
	h.mu.Unlock()

	for _, s := range targets {
		s.Write(h.logger, ev)
	}
}

// writePump drains the session's out channel into the websocket until the
// channel closes or the context is cancelled.
func (h *Hub) writePump(ctx context.Context, s *Session) {
	for {
		select {
		case ev, ok := <-s.OutChan:
			if !ok {
				return
			}
			if err := wsjson.Write(ctx, s.Conn, ev); err != nil {
				if h.logger != nil {
					h.logger.WithFields(logrus.Fields{
						"user":  s.UserID,
						"error": err,
					}).Debug("broadcast write failed")
				}
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
