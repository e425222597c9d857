// internal/game/errors.go
package game

import "errors"

// Domain error sentinels. Every precondition fails fast with one of these
// before any mutation; transports map them onto status codes with errors.Is.
var (
	// Validation (never retried).
	ErrInvalidConfig = errors.New("invalid lobby configuration")

	// Authorization (wrong turn/host/membership).
	ErrNotHost     = errors.New("requester is not the lobby host")
	ErrNotMember   = errors.New("user is not a member of this lobby")
	ErrNotYourTurn = errors.New("it is not this player's turn")

	// State conflicts (caller must resync, not blind-retry).
	ErrLobbyFull           = errors.New("lobby is at capacity")
	ErrGameStarted         = errors.New("game has already started")
	ErrGameNotStarted      = errors.New("game is not in progress")
	ErrInsufficientPlayers = errors.New("not enough players to start")
	ErrNotAllReady         = errors.New("not all players are ready")
	ErrRankedAutoReady     = errors.New("readiness cannot be toggled in ranked lobbies")

	ErrNotFound      = errors.New("lobby not found")
	ErrPenaltyActive = errors.New("user is under an inactivity penalty")

	// Dependency failures (persistence/judge). Reads may be retried;
	// an answer write must be re-driven from freshly loaded state.
	ErrDependency = errors.New("dependency failure")
)
