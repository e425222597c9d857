// internal/handlers/ws.go
package handlers

import (
	"context"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/quizarena/quizarena/internal/middleware"
)

// clientFrame is the envelope clients send over the event socket. The
// socket is receive-mostly; inbound frames only steer subscriptions and
// feed the activity watchdog.
type clientFrame struct {
	Type    string    `json:"type"`
	LobbyID uuid.UUID `json:"lobby_id,omitempty"`
}

// WSHandler upgrades the connection, registers the session with the hub,
// and pumps inbound frames until the client goes away. Gameplay itself
// stays on the HTTP surface; the socket carries server push.
func WSHandler(logger *logrus.Logger, s *ArenaServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		remoteAddr := r.RemoteAddr

		userID, err := authedUser(r)
		if err != nil {
			http.Error(w, "invalid token", http.StatusForbidden)
			return
		}

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"arena"},
			OriginPatterns: []string{"*"}, // Adjust in production
		})
		if err != nil {
			logger.Warnf("websocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")

		if c.Subprotocol() != "arena" {
			c.Close(websocket.StatusPolicyViolation, "client must speak the arena subprotocol")
			return
		}

		ctx, cancel := context.WithCancel(r.Context())
		s.Hub.Register(ctx, userID, c, cancel)
		middleware.LogWebSocketConnect(logger, remoteAddr, r.URL.Path)

		// If the user already holds a seat, resubscribe immediately so a
		// reconnect during a match keeps receiving events.
		if l, ok := s.Engine.Lobbies.FindByMember(userID); ok {
			s.Hub.Subscribe(l.ID, userID)
		}

		readErr := readPump(ctx, c, userID, s)

		s.Hub.Unregister(userID)
		if s.Monitor != nil {
			s.Monitor.Disconnect(userID)
		}
		middleware.LogWebSocketDisconnect(logger, remoteAddr, r.URL.Path, readErr)
		c.Close(websocket.StatusNormalClosure, "bye")
	}
}

// readPump consumes client frames until the socket closes.
func readPump(ctx context.Context, c *websocket.Conn, userID uuid.UUID, s *ArenaServer) error {
	for {
		var frame clientFrame
		if err := wsjson.Read(ctx, c, &frame); err != nil {
			return err
		}

		switch frame.Type {
		case "subscribe":
			if frame.LobbyID != uuid.Nil {
				s.Hub.Subscribe(frame.LobbyID, userID)
			}
		case "unsubscribe":
			if frame.LobbyID != uuid.Nil {
				s.Hub.Unsubscribe(frame.LobbyID, userID)
			}
		case "ping", "activity":
			if s.Monitor != nil {
				s.Monitor.Activity(userID)
			}
		}
	}
}
