package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/quizarena/quizarena/internal/broadcast"
	"github.com/quizarena/quizarena/internal/cache"
	"github.com/quizarena/quizarena/internal/database"
	"github.com/quizarena/quizarena/internal/game"
	"github.com/quizarena/quizarena/internal/leaderboard"
	"github.com/quizarena/quizarena/internal/shop"
	"github.com/quizarena/quizarena/internal/watchdog"
)

// ArenaServer bundles the long-lived services the HTTP and WebSocket
// surfaces dispatch into.
type ArenaServer struct {
	Engine  *game.Engine
	Hub     *broadcast.Hub
	Monitor *watchdog.Monitor
	Shop    *shop.Shop
	Ladder  *leaderboard.Service
	Logger  *logrus.Logger
}

type lobbyRequest struct {
	LobbyID uuid.UUID `json:"lobby_id"`
	Answer  string    `json:"answer,omitempty"`
	Text    string    `json:"text,omitempty"`
}

func decodeLobbyRequest(w http.ResponseWriter, r *http.Request) (lobbyRequest, uuid.UUID, bool) {
	userID, err := authedUser(r)
	if err != nil {
		http.Error(w, "invalid token", http.StatusForbidden)
		return lobbyRequest{}, uuid.Nil, false
	}
	var req lobbyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return lobbyRequest{}, uuid.Nil, false
	}
	if req.LobbyID == uuid.Nil {
		http.Error(w, "lobby_id is required", http.StatusBadRequest)
		return lobbyRequest{}, uuid.Nil, false
	}
	return req, userID, true
}

// publishMatchEvent queues a record for the historian. Best effort.
func (s *ArenaServer) publishMatchEvent(r *http.Request, lobbyID, actor uuid.UUID, eventType string, payload map[string]interface{}) {
	rec := cache.MatchEventRecord{
		LobbyID:      lobbyID,
		ActorUserID:  actor,
		EventType:    eventType,
		EventPayload: payload,
		Timestamp:    time.Now().UnixMilli(),
	}
	if err := cache.PublishMatchEvent(r.Context(), rec); err != nil && s.Logger != nil {
		s.Logger.WithError(err).Warn("match event publish failed")
	}
}

// CreateLobbyHandler mints a lobby with the caller as host.
func CreateLobbyHandler(s *ArenaServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := authedUser(r)
		if err != nil {
			http.Error(w, "invalid token", http.StatusForbidden)
			return
		}
		var cfg game.Config
		if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
			http.Error(w, "invalid payload", http.StatusBadRequest)
			return
		}

		host, err := database.GetUserByID(r.Context(), userID)
		if err != nil {
			http.Error(w, "user not found", http.StatusNotFound)
			return
		}

		l, err := s.Engine.CreateLobby(host, cfg)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		l.Mu.Lock()
		payload := l.StatusPayload()
		l.Mu.Unlock()
		writeJSON(w, http.StatusCreated, payload)
	}
}

// ListLobbiesHandler lists joinable lobbies, optionally filtered by mode.
// Ranked lobbies never appear; ranked seats are assigned, not browsed.
func ListLobbiesHandler(s *ArenaServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mode := r.URL.Query().Get("mode")
		lobbies := s.Engine.Lobbies.List(mode, false)

		out := make([]map[string]interface{}, 0, len(lobbies))
		for _, l := range lobbies {
			l.Mu.Lock()
			out = append(out, l.StatusPayload())
			l.Mu.Unlock()
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// MyLobbyHandler reports the lobby the caller currently occupies.
func MyLobbyHandler(s *ArenaServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := authedUser(r)
		if err != nil {
			http.Error(w, "invalid token", http.StatusForbidden)
			return
		}
		l, ok := s.Engine.Lobbies.FindByMember(userID)
		if !ok {
			http.Error(w, "no active lobby", http.StatusNotFound)
			return
		}
		l.Mu.Lock()
		payload := l.StatusPayload()
		l.Mu.Unlock()
		writeJSON(w, http.StatusOK, payload)
	}
}

// JoinLobbyHandler seats the caller in a lobby.
func JoinLobbyHandler(s *ArenaServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, userID, ok := decodeLobbyRequest(w, r)
		if !ok {
			return
		}
		u, err := database.GetUserByID(r.Context(), userID)
		if err != nil {
			http.Error(w, "user not found", http.StatusNotFound)
			return
		}

		l, err := s.Engine.Join(req.LobbyID, u)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		if s.Hub != nil {
			s.Hub.Subscribe(req.LobbyID, userID)
		}

		l.Mu.Lock()
		payload := l.StatusPayload()
		l.Mu.Unlock()
		writeJSON(w, http.StatusOK, payload)
	}
}

// LeaveLobbyHandler removes the caller, running the emptiness and host
// reassignment cascade.
func LeaveLobbyHandler(s *ArenaServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, userID, ok := decodeLobbyRequest(w, r)
		if !ok {
			return
		}
		res, err := s.Engine.Leave(req.LobbyID, userID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		if s.Monitor != nil {
			s.Monitor.ExitGame(userID)
		}
		if s.Hub != nil {
			s.Hub.Unsubscribe(req.LobbyID, userID)
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// ReadyHandler toggles the caller's ready flag.
func ReadyHandler(s *ArenaServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, userID, ok := decodeLobbyRequest(w, r)
		if !ok {
			return
		}
		ready, err := s.Engine.ToggleReady(req.LobbyID, userID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"ready": ready})
	}
}

// StartLobbyHandler transitions a lobby into play and arms the
// inactivity watchdog for every seated human.
func StartLobbyHandler(s *ArenaServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, userID, ok := decodeLobbyRequest(w, r)
		if !ok {
			return
		}
		l, err := s.Engine.StartMatch(r.Context(), req.LobbyID, userID)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		l.Mu.Lock()
		payload := l.StatusPayload()
		var humans []uuid.UUID
		for _, p := range l.Players {
			if !p.IsBot {
				humans = append(humans, p.UserID)
			}
		}
		l.Mu.Unlock()

		if s.Monitor != nil {
			for _, id := range humans {
				s.Monitor.EnterGame(id)
			}
		}
		s.publishMatchEvent(r, req.LobbyID, userID, "game_started", payload)
		writeJSON(w, http.StatusOK, payload)
	}
}

// AnswerHandler submits the caller's answer for the current turn.
func AnswerHandler(s *ArenaServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, userID, ok := decodeLobbyRequest(w, r)
		if !ok {
			return
		}
		if s.Monitor != nil {
			s.Monitor.Activity(userID)
		}

		res, err := s.Engine.SubmitAnswer(r.Context(), req.LobbyID, userID, req.Answer)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		if s.Monitor != nil {
			if res.Eliminated {
				s.Monitor.ExitGame(userID)
			}
			if res.Finished {
				s.Monitor.ExitGame(userID)
				if res.Winner != uuid.Nil {
					s.Monitor.ExitGame(res.Winner)
				}
			}
		}

		eventType := "answer_submitted"
		if res.Finished {
			eventType = "game_ended"
		}
		s.publishMatchEvent(r, req.LobbyID, userID, eventType, map[string]interface{}{
			"raw_correct":       res.RawCorrect,
			"effective_correct": res.EffectiveCorrect,
			"shield_consumed":   res.ShieldConsumed,
			"eliminated":        res.Eliminated,
		})
		writeJSON(w, http.StatusOK, res)
	}
}

// ChatHandler posts a message into the lobby chat.
func ChatHandler(s *ArenaServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, userID, ok := decodeLobbyRequest(w, r)
		if !ok {
			return
		}
		if req.Text == "" {
			http.Error(w, "text is required", http.StatusBadRequest)
			return
		}
		if s.Monitor != nil {
			s.Monitor.Activity(userID)
		}
		if err := s.Engine.SendChat(req.LobbyID, userID, req.Text); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
