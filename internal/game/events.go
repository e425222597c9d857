// internal/game/events.go
package game

import (
	"github.com/google/uuid"
	"github.com/quizarena/quizarena/internal/broadcast"
)

// Nil-safe broadcast helpers. Fan-out only ever happens after the
// underlying mutation committed; clients never observe state a failed
// save would roll back.

func (e *Engine) fireLobby(lobbyID uuid.UUID, t broadcast.EventType, payload map[string]interface{}) {
	if e.Bcast == nil {
		return
	}
	e.Bcast.ToLobby(lobbyID, broadcast.Event{Type: t, LobbyID: lobbyID, Payload: payload})
}

func (e *Engine) fireUser(userID uuid.UUID, t broadcast.EventType, payload map[string]interface{}) {
	if e.Bcast == nil {
		return
	}
	e.Bcast.ToUser(userID, broadcast.Event{Type: t, Payload: payload})
}

func (e *Engine) fireAll(t broadcast.EventType, payload map[string]interface{}) {
	if e.Bcast == nil {
		return
	}
	e.Bcast.ToAll(broadcast.Event{Type: t, Payload: payload})
}
