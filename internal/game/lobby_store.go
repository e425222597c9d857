// internal/game/lobby_store.go
package game

import (
	"sync"

	"github.com/google/uuid"
)

// LobbyStore manages active lobbies in memory. It provides thread-safe
// access to add, retrieve, list, and delete lobby aggregates; operations
// inside a lobby are serialized by the lobby's own mutex.
type LobbyStore struct {
	mu      sync.Mutex
	lobbies map[uuid.UUID]*Lobby
}

// NewLobbyStore initializes and returns an empty LobbyStore.
func NewLobbyStore() *LobbyStore {
	return &LobbyStore{
		lobbies: make(map[uuid.UUID]*Lobby),
	}
}

// Add inserts a lobby, enforcing id uniqueness. Configure the lobby's
// OnEmpty callback before adding so teardown is automatic.
func (s *LobbyStore) Add(l *Lobby) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.lobbies[l.ID]; exists {
		return false
	}
	s.lobbies[l.ID] = l
	return true
}

// Get retrieves a lobby by id.
func (s *LobbyStore) Get(id uuid.UUID) (*Lobby, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.lobbies[id]
	return l, ok
}

// Delete removes a lobby by id, returning whether it was present.
func (s *LobbyStore) Delete(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.lobbies[id]; !ok {
		return false
	}
	delete(s.lobbies, id)
	return true
}

// FindByMember returns the lobby the user currently occupies, if any.
// Membership is exclusive, so the first hit wins.
func (s *LobbyStore) FindByMember(userID uuid.UUID) (*Lobby, bool) {
	s.mu.Lock()
	candidates := make([]*Lobby, 0, len(s.lobbies))
	for _, l := range s.lobbies {
		candidates = append(candidates, l)
	}
	s.mu.Unlock()

	for _, l := range candidates {
		l.Mu.Lock()
		member := l.Member(userID) != nil
		l.Mu.Unlock()
		if member {
			return l, true
		}
	}
	return nil, false
}

// List returns lobbies matching the mode filter (empty matches all).
// Ranked lobbies are excluded unless includeRanked is set; ranked
// matchmaking does not browse open lobbies.
func (s *LobbyStore) List(modeFilter string, includeRanked bool) []*Lobby {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Lobby, 0, len(s.lobbies))
	for _, l := range s.lobbies {
		if modeFilter != "" && l.Mode != modeFilter {
			continue
		}
		if l.Ranked && !includeRanked {
			continue
		}
		out = append(out, l)
	}
	return out
}
