// internal/game/match.go
package game

import (
	"context"

	"github.com/google/uuid"
	"github.com/quizarena/quizarena/internal/broadcast"
	"github.com/quizarena/quizarena/internal/cards"
	"github.com/quizarena/quizarena/internal/questions"
)

// StartMatch validates the start request and transitions the lobby into
// play: question deck selected by mode family and freshly permuted, cycle
// and turn pointers zeroed, every player reset to the lobby's initial
// lives with a re-dealt hand.
func (e *Engine) StartMatch(ctx context.Context, lobbyID, requesterID uuid.UUID) (*Lobby, error) {
	l, ok := e.Lobbies.Get(lobbyID)
	if !ok {
		return nil, ErrNotFound
	}

	l.Mu.Lock()
	defer l.Mu.Unlock()

	if l.HostID != requesterID {
		return nil, ErrNotHost
	}
	if l.Started && !l.Finished {
		return nil, ErrGameStarted
	}
	if len(l.Players) < 2 {
		return nil, ErrInsufficientPlayers
	}
	for _, p := range l.Players {
		if !p.Ready {
			return nil, ErrNotAllReady
		}
	}

	l.Started = true
	l.Finished = false
	l.Cycles = 0
	l.CurrentQuestion = 0
	l.CurrentPlayerIndex = 0
	l.Questions = questions.ShuffledDeck(l.Family())

	for _, p := range l.Players {
		p.Reset(l.InitialLives)
		p.Hand = cards.Deal(l.Frenzy)
	}

	e.fireLobby(l.ID, broadcast.EventGameStarted, l.StatusPayload())

	// The host may not hold the first seat; let leading bots play out.
	e.runBotTurnsUnsafe(ctx, l)

	return l, nil
}
