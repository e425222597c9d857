// internal/game/engine.go
package game

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/quizarena/quizarena/internal/broadcast"
	"github.com/quizarena/quizarena/internal/cards"
	"github.com/quizarena/quizarena/internal/economy"
	"github.com/quizarena/quizarena/internal/judge"
	"github.com/quizarena/quizarena/internal/models"
)

// Engine orchestrates every lobby operation. Each lobby is a single-writer
// state machine: the engine serializes load-mutate-save per lobby id
// through the lobby mutex, and the critical section fully contains the
// persistence calls so a timeout can never race a submitted answer.
type Engine struct {
	Lobbies *LobbyStore
	Store   UserStore
	Judge   judge.Judge
	Bcast   broadcast.Broadcaster
	Logger  *logrus.Logger

	// BotCorrectChance is the probability a bot answers correctly.
	BotCorrectChance float64

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewEngine builds an engine around the given persistence surface. Judge
// and Bcast may be left nil; grading then degrades to ungraded and
// broadcasts become no-ops.
func NewEngine(store UserStore) *Engine {
	return &Engine{
		Lobbies:          NewLobbyStore(),
		Store:            store,
		BotCorrectChance: 0.5,
		rng:              rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// CreateLobby mints a lobby for a host, enforcing the penalty lockout, and
// registers it with teardown wired to the registry.
func (e *Engine) CreateLobby(host *models.User, cfg Config) (*Lobby, error) {
	if host.Penalized(time.Now()) {
		return nil, ErrPenaltyActive
	}

	l, err := NewLobby(host, cfg)
	if err != nil {
		return nil, err
	}
	l.OnEmpty = func(id uuid.UUID) {
		e.Lobbies.Delete(id)
		e.fireAll(broadcast.EventLobbyDeleted, map[string]interface{}{"lobby_id": id.String()})
	}
	e.Lobbies.Add(l)

	e.fireAll(broadcast.EventLobbyCreated, l.StatusPayload())
	return l, nil
}

// Join adds a user to a lobby. Repeat joins by an existing member are
// idempotent and return the current state without mutation or broadcast.
func (e *Engine) Join(lobbyID uuid.UUID, u *models.User) (*Lobby, error) {
	l, ok := e.Lobbies.Get(lobbyID)
	if !ok {
		return nil, ErrNotFound
	}
	if u.Penalized(time.Now()) {
		return nil, ErrPenaltyActive
	}

	l.Mu.Lock()
	defer l.Mu.Unlock()

	if l.Member(u.ID) != nil {
		return l, nil
	}
	if err := l.joinUnsafe(u); err != nil {
		return nil, err
	}

	e.fireLobby(l.ID, broadcast.EventLobbyUpdated, l.StatusPayload())
	return l, nil
}

// Leave removes a user and runs the emptiness/host-reassignment cascade,
// destroying the lobby when no human remains. A mid-game departure can
// strand the turn pointer on a bot seat or drop the lobby below the end
// condition, so the game is driven forward before anyone observes it.
func (e *Engine) Leave(lobbyID, userID uuid.UUID) (LeaveResult, error) {
	l, ok := e.Lobbies.Get(lobbyID)
	if !ok {
		return LeaveResult{}, ErrNotFound
	}

	l.Mu.Lock()
	res := l.leaveUnsafe(userID)
	onEmpty := l.OnEmpty

	endedNow := false
	var winner uuid.UUID
	if res.Removed && !res.Deleted && l.Started && !l.Finished {
		if l.matchOverUnsafe() {
			sub := &SubmitResult{}
			e.finishMatchUnsafe(context.Background(), l, sub)
			winner = sub.Winner
			endedNow = true
		} else {
			e.runBotTurnsUnsafe(context.Background(), l)
			if l.Finished {
				endedNow = true
				if p := l.soleHumanUnsafe(); p != nil {
					winner = p.UserID
				}
			}
		}
	}

	ranked := l.Ranked
	payload := l.StatusPayload()
	l.Mu.Unlock()

	if !res.Removed {
		return res, ErrNotMember
	}
	if res.Deleted {
		if onEmpty != nil {
			onEmpty(lobbyID)
		} else {
			e.Lobbies.Delete(lobbyID)
		}
		return res, nil
	}

	e.fireLobby(lobbyID, broadcast.EventLobbyUpdated, payload)
	if endedNow {
		e.fireLobby(lobbyID, broadcast.EventGameEnded, map[string]interface{}{
			"lobby_id": lobbyID.String(),
			"winner":   winner.String(),
		})
		if ranked {
			e.fireAll(broadcast.EventLeaderboardUpdated, nil)
		}
	}
	return res, nil
}

// ForceLeave is the inactivity kick path: same cascade as Leave, but a
// missing lobby or membership is a no-op since the watchdog may fire after
// the user already left.
func (e *Engine) ForceLeave(userID uuid.UUID) {
	for _, l := range e.Lobbies.List("", true) {
		l.Mu.Lock()
		member := l.Member(userID) != nil
		l.Mu.Unlock()
		if !member {
			continue
		}
		if _, err := e.Leave(l.ID, userID); err != nil && e.Logger != nil {
			e.Logger.WithFields(logrus.Fields{"lobby": l.ID, "user": userID}).
				WithError(err).Warn("force-leave cascade failed")
		}
		e.fireUser(userID, broadcast.EventKickedFromGame, map[string]interface{}{
			"lobby_id": l.ID.String(),
		})
	}
}

// ToggleReady flips a member's ready flag outside ranked lobbies.
func (e *Engine) ToggleReady(lobbyID, userID uuid.UUID) (bool, error) {
	l, ok := e.Lobbies.Get(lobbyID)
	if !ok {
		return false, ErrNotFound
	}

	l.Mu.Lock()
	ready, err := l.toggleReadyUnsafe(userID)
	payload := l.StatusPayload()
	l.Mu.Unlock()

	if err != nil {
		return ready, err
	}
	e.fireLobby(lobbyID, broadcast.EventLobbyUpdated, payload)
	return ready, nil
}

// SendChat appends to the lobby's chat log and fans the message out.
func (e *Engine) SendChat(lobbyID, userID uuid.UUID, text string) error {
	l, ok := e.Lobbies.Get(lobbyID)
	if !ok {
		return ErrNotFound
	}

	l.Mu.Lock()
	p := l.Member(userID)
	if p == nil {
		l.Mu.Unlock()
		return ErrNotMember
	}
	msg := l.appendChatUnsafe(userID, p.Username, text)
	l.Mu.Unlock()

	e.fireLobby(lobbyID, broadcast.EventChatMessage, map[string]interface{}{
		"sender":   msg.Sender.String(),
		"username": msg.Username,
		"text":     msg.Text,
		"ts":       msg.Timestamp.Unix(),
	})
	return nil
}

// SubmitResult reports the outcome of one resolved turn.
type SubmitResult struct {
	RawCorrect       bool          `json:"raw_correct"`
	EffectiveCorrect bool          `json:"effective_correct"`
	ShieldConsumed   bool          `json:"shield_consumed"`
	Verdict          judge.Verdict `json:"verdict,omitempty"`
	Eliminated       bool          `json:"eliminated"`
	Finished         bool          `json:"finished"`
	Winner           uuid.UUID     `json:"winner,omitempty"`
}

// SubmitAnswer resolves the current player's answer: raw grading, shield
// interception, life/score update, ledger settlement keyed by raw
// correctness, elimination, game end, and turn/question/cycle advance.
// Trailing bot turns are resolved through the same path before returning.
func (e *Engine) SubmitAnswer(ctx context.Context, lobbyID, userID uuid.UUID, rawAnswer string) (*SubmitResult, error) {
	l, ok := e.Lobbies.Get(lobbyID)
	if !ok {
		return nil, ErrNotFound
	}

	l.Mu.Lock()
	defer l.Mu.Unlock()

	if !l.Started || l.Finished || len(l.Questions) == 0 {
		return nil, ErrGameNotStarted
	}
	current := l.Players[l.CurrentPlayerIndex]
	if current.UserID != userID {
		return nil, ErrNotYourTurn
	}

	res, err := e.resolveTurnUnsafe(ctx, l, current, rawAnswer, false)
	if err != nil {
		return nil, err
	}

	if !l.Finished {
		e.runBotTurnsUnsafe(ctx, l)
	}

	if l.Finished {
		res.Finished = true
		if res.Winner == uuid.Nil {
			// A trailing bot turn may have ended the game; the winner then
			// lives on that turn's result, not this one.
			if p := l.soleHumanUnsafe(); p != nil {
				res.Winner = p.UserID
			}
		}
		e.fireLobby(l.ID, broadcast.EventGameEnded, map[string]interface{}{
			"lobby_id": l.ID.String(),
			"winner":   res.Winner.String(),
		})
		if l.Ranked {
			// Ranked settlements moved ratings; tell clients to refetch.
			e.fireAll(broadcast.EventLeaderboardUpdated, nil)
		}
	} else {
		e.fireLobby(l.ID, broadcast.EventLobbyUpdated, l.StatusPayload())
	}
	return res, nil
}

// resolveTurnUnsafe runs the answer pipeline for the player at the current
// turn pointer. The ledger write happens before any lobby mutation so a
// persistence failure leaves the aggregate untouched for a clean retry.
// Assumes lock is held.
func (e *Engine) resolveTurnUnsafe(ctx context.Context, l *Lobby, p *models.Player, rawAnswer string, isBot bool) (*SubmitResult, error) {
	q := l.Questions[l.CurrentQuestion]
	res := &SubmitResult{}

	skipLedger := false
	if q.Kind == models.KindCode && !isBot {
		res.Verdict = e.gradeCode(ctx, q, rawAnswer)
		res.RawCorrect = res.Verdict.Correct
		// An ungraded answer must not charge the rating/currency ledger.
		skipLedger = !res.Verdict.Graded
	} else {
		res.RawCorrect = answersMatch(rawAnswer, q.Answer)
	}

	// Settle the ledger first: raw correctness only, never the shielded
	// result. Bots have no durable profile.
	if !isBot && !skipLedger {
		d := economy.SettleAnswer(l.Ranked, res.RawCorrect)
		if err := e.Store.ApplyAnswerDeltas(ctx, p.UserID, d); err != nil {
			return nil, fmt.Errorf("%w: settle answer: %v", ErrDependency, err)
		}
	}

	res.EffectiveCorrect = res.RawCorrect
	if !res.RawCorrect && p.Shields > 0 {
		p.Shields--
		res.ShieldConsumed = true
		res.EffectiveCorrect = true
	}

	p.Total++
	if res.EffectiveCorrect {
		p.Correct++
		p.Score += 100
	} else {
		p.Lives--
		p.Score -= 50
	}

	eliminated := p.Lives <= 0
	if eliminated {
		res.Eliminated = true
		idx := l.playerIndex(p.UserID)
		l.Players = append(l.Players[:idx], l.Players[idx+1:]...)
		l.fixTurnPointerAfterRemoval(idx)
	}

	if l.matchOverUnsafe() {
		e.finishMatchUnsafe(ctx, l, res)
		return res, nil
	}

	// Turn advance: the splice above already moved the pointer to the next
	// seat for an eliminated answerer.
	if !eliminated {
		l.CurrentPlayerIndex = (l.CurrentPlayerIndex + 1) % len(l.Players)
	}
	// Defensive skip past dead seats; elimination should have emptied them.
	for i := 0; i < len(l.Players) && l.Players[l.CurrentPlayerIndex].Lives <= 0; i++ {
		l.CurrentPlayerIndex = (l.CurrentPlayerIndex + 1) % len(l.Players)
	}

	// Deck replays cyclically; repeats are expected in long games.
	l.CurrentQuestion = (l.CurrentQuestion + 1) % len(l.Questions)

	if !(isBot && l.Solo()) {
		l.Cycles++
		// The frenzy deal keys off the counter value, so it may only fire
		// on the turn that advanced the counter; a non-counting bot turn
		// must not re-deal while Cycles sits at a multiple.
		if l.Frenzy && l.Cycles%(len(l.Players)*2) == 0 {
			for _, pl := range l.Players {
				pl.Hand = append(pl.Hand, cards.Random())
			}
		}
	}

	return res, nil
}

// finishMatchUnsafe transitions to Finished and credits the survivor's win
// payout. Assumes lock is held.
func (e *Engine) finishMatchUnsafe(ctx context.Context, l *Lobby, res *SubmitResult) {
	l.Started = false
	l.Finished = true

	survivor := l.soleHumanUnsafe()
	if survivor == nil {
		return
	}

	res.Winner = survivor.UserID
	payout := economy.WinPayout(l.Ranked, l.Custom)
	if err := e.Store.AddTokens(ctx, survivor.UserID, payout); err != nil && e.Logger != nil {
		// Eventual consistency: the payout is retried by ops tooling, the
		// match outcome itself is already committed.
		e.Logger.WithFields(logrus.Fields{"lobby": l.ID, "user": survivor.UserID}).
			WithError(err).Error("win payout failed")
	}
}

// runBotTurnsUnsafe resolves consecutive bot turns through the normal
// pipeline until a human holds the turn or the game ends. Assumes lock
// is held.
func (e *Engine) runBotTurnsUnsafe(ctx context.Context, l *Lobby) {
	for !l.Finished && l.Started && len(l.Players) > 0 {
		p := l.Players[l.CurrentPlayerIndex]
		if !p.IsBot {
			return
		}
		answer := "pass"
		if e.botAnswersCorrectly() {
			answer = l.Questions[l.CurrentQuestion].Answer
		}
		if _, err := e.resolveTurnUnsafe(ctx, l, p, answer, true); err != nil {
			// Bots never touch persistence, so this is unreachable; bail
			// rather than spin.
			return
		}
	}
}

func (e *Engine) botAnswersCorrectly() bool {
	e.rngMu.Lock()
	defer e.rngMu.Unlock()
	return e.rng.Float64() < e.BotCorrectChance
}

// gradeCode asks the judge, degrading to an explicit ungraded verdict on
// any dependency failure instead of failing the submission pipeline.
func (e *Engine) gradeCode(ctx context.Context, q models.Question, source string) judge.Verdict {
	if e.Judge == nil {
		return judge.Ungraded()
	}
	v, err := e.Judge.Grade(ctx, q.Prompt, source, q.Expected)
	if err != nil {
		if e.Logger != nil {
			e.Logger.WithError(err).Warn("judge unavailable, answer ungraded")
		}
		return judge.Ungraded()
	}
	return v
}

// answersMatch compares a submission to the canonical answer, trimmed and
// case-insensitive.
func answersMatch(raw, canonical string) bool {
	return strings.EqualFold(strings.TrimSpace(raw), strings.TrimSpace(canonical))
}
