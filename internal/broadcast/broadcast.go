// internal/broadcast/broadcast.go
package broadcast

import "github.com/google/uuid"

// EventType enumerates every fan-out event the service emits. Delivery is
// at-least-once with no ordering guarantee across lobbies.
type EventType string

const (
	EventLobbyCreated       EventType = "lobby_created"
	EventLobbyUpdated       EventType = "lobby_updated"
	EventLobbyDeleted       EventType = "lobby_deleted"
	EventGameStarted        EventType = "game_started"
	EventGameEnded          EventType = "game_ended"
	EventChatMessage        EventType = "chat_message"
	EventInactivityWarning  EventType = "inactivity_warning"
	EventPenaltyApplied     EventType = "penalty_applied"
	EventKickedFromGame     EventType = "kicked_from_game"
	EventLeaderboardUpdated EventType = "leaderboard_updated"
)

// Event is a single broadcast message. Payload keys are event-specific.
type Event struct {
	Type    EventType              `json:"type"`
	LobbyID uuid.UUID              `json:"lobby_id,omitempty"`
	Payload map[string]interface{} `json:"payload,omitempty"`
}

// Broadcaster fans committed state deltas out to connected sessions.
// Implementations must only be invoked after the underlying save succeeded;
// the core never emits state a failed save would roll back.
type Broadcaster interface {
	// ToLobby delivers an event to every session subscribed to a lobby.
	ToLobby(lobbyID uuid.UUID, ev Event)
	// ToUser delivers an event to a single user's session, if connected.
	ToUser(userID uuid.UUID, ev Event)
	// ToAll delivers an event to every connected session.
	ToAll(ev Event)
}
