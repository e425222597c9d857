package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/quizarena/quizarena/internal/auth"
	"github.com/quizarena/quizarena/internal/game"
	"github.com/quizarena/quizarena/internal/shop"
)

// extractCookieToken extracts a named cookie value from the "Cookie" header, or returns empty if not found.
func extractCookieToken(cookieHeader, cookieName string) string {
	parts := strings.Split(cookieHeader, cookieName+"=")
	if len(parts) < 2 {
		return ""
	}
	token := parts[1]
	if idx := strings.Index(token, ";"); idx != -1 {
		token = token[:idx]
	}
	return token
}

// requestToken pulls the session token from the auth cookie or a bearer
// Authorization header, cookie first.
func requestToken(r *http.Request) string {
	if token := extractCookieToken(r.Header.Get("Cookie"), "auth_token"); token != "" {
		return token
	}
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}

// authedUser authenticates the request and returns the caller's user id.
func authedUser(r *http.Request) (uuid.UUID, error) {
	token := requestToken(r)
	if token == "" {
		return uuid.Nil, errors.New("missing auth token")
	}
	sub, err := auth.AuthenticateJWT(token)
	if err != nil {
		return uuid.Nil, err
	}
	return uuid.Parse(sub)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeDomainError maps domain sentinels onto HTTP statuses. Anything
// unrecognized is a 500.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, game.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, game.ErrInvalidConfig):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, game.ErrNotHost),
		errors.Is(err, game.ErrNotMember),
		errors.Is(err, game.ErrNotYourTurn),
		errors.Is(err, game.ErrPenaltyActive):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, game.ErrLobbyFull),
		errors.Is(err, game.ErrGameStarted),
		errors.Is(err, game.ErrGameNotStarted),
		errors.Is(err, game.ErrInsufficientPlayers),
		errors.Is(err, game.ErrNotAllReady),
		errors.Is(err, game.ErrRankedAutoReady),
		errors.Is(err, shop.ErrAlreadyOwned),
		errors.Is(err, shop.ErrInsufficientTokens):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, shop.ErrUnknownCode):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, game.ErrDependency):
		http.Error(w, "dependency unavailable", http.StatusServiceUnavailable)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
