// internal/game/engine_test.go
package game

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quizarena/quizarena/internal/broadcast"
	"github.com/quizarena/quizarena/internal/economy"
	"github.com/quizarena/quizarena/internal/judge"
	"github.com/quizarena/quizarena/internal/models"
)

// stubJudge returns a canned verdict without an HTTP round trip.
type stubJudge struct {
	v   judge.Verdict
	err error
}

func (s stubJudge) Grade(context.Context, string, string, string) (judge.Verdict, error) {
	return s.v, s.err
}

func timeInFuture() time.Time {
	return time.Now().Add(time.Hour)
}

// mockStore records ledger traffic instead of hitting Postgres.
type mockStore struct {
	mu      sync.Mutex
	deltas  map[uuid.UUID][]economy.AnswerDeltas
	tokens  map[uuid.UUID]int
	failErr error
}

func newMockStore() *mockStore {
	return &mockStore{
		deltas: make(map[uuid.UUID][]economy.AnswerDeltas),
		tokens: make(map[uuid.UUID]int),
	}
}

func (m *mockStore) ApplyAnswerDeltas(_ context.Context, userID uuid.UUID, d economy.AnswerDeltas) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return m.failErr
	}
	m.deltas[userID] = append(m.deltas[userID], d)
	return nil
}

func (m *mockStore) AddTokens(_ context.Context, userID uuid.UUID, amount int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return m.failErr
	}
	m.tokens[userID] += amount
	return nil
}

func (m *mockStore) lastDelta(userID uuid.UUID) (economy.AnswerDeltas, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ds := m.deltas[userID]
	if len(ds) == 0 {
		return economy.AnswerDeltas{}, false
	}
	return ds[len(ds)-1], true
}

// mockBroadcaster collects events instead of sending them over WS.
type mockBroadcaster struct {
	mu         sync.Mutex
	lobbyEvts  []broadcast.Event
	userEvts   map[uuid.UUID][]broadcast.Event
	globalEvts []broadcast.Event
}

func newMockBroadcaster() *mockBroadcaster {
	return &mockBroadcaster{userEvts: make(map[uuid.UUID][]broadcast.Event)}
}

func (mb *mockBroadcaster) ToLobby(_ uuid.UUID, ev broadcast.Event) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.lobbyEvts = append(mb.lobbyEvts, ev)
}

func (mb *mockBroadcaster) ToUser(userID uuid.UUID, ev broadcast.Event) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.userEvts[userID] = append(mb.userEvts[userID], ev)
}

func (mb *mockBroadcaster) ToAll(ev broadcast.Event) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.globalEvts = append(mb.globalEvts, ev)
}

func (mb *mockBroadcaster) lastLobbyEvent() *broadcast.Event {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	if len(mb.lobbyEvts) == 0 {
		return nil
	}
	return &mb.lobbyEvts[len(mb.lobbyEvts)-1]
}

// setupMatch builds an engine with two seated, ready, started humans.
func setupMatch(t *testing.T, cfg Config) (*Engine, *mockStore, *mockBroadcaster, *Lobby, uuid.UUID, uuid.UUID) {
	t.Helper()

	store := newMockStore()
	mb := newMockBroadcaster()
	e := NewEngine(store)
	e.Bcast = mb

	host := testUser("host")
	guest := testUser("guest")

	l, err := e.CreateLobby(host, cfg)
	require.NoError(t, err)
	_, err = e.Join(l.ID, guest)
	require.NoError(t, err)

	if !l.Ranked {
		_, err = e.ToggleReady(l.ID, host.ID)
		require.NoError(t, err)
		_, err = e.ToggleReady(l.ID, guest.ID)
		require.NoError(t, err)
	}

	_, err = e.StartMatch(context.Background(), l.ID, host.ID)
	require.NoError(t, err)
	require.True(t, l.Started)

	return e, store, mb, l, host.ID, guest.ID
}

// currentAnswer reads the canonical answer for the live question.
func currentAnswer(l *Lobby) string {
	l.Mu.Lock()
	defer l.Mu.Unlock()
	return l.Questions[l.CurrentQuestion].Answer
}

func TestSubmitAnswerCorrect(t *testing.T) {
	e, store, _, l, hostID, guestID := setupMatch(t, Config{Mode: "casual_quiz", Capacity: 2})

	res, err := e.SubmitAnswer(context.Background(), l.ID, hostID, currentAnswer(l))
	require.NoError(t, err)

	assert.True(t, res.RawCorrect)
	assert.True(t, res.EffectiveCorrect)
	assert.False(t, res.ShieldConsumed)
	assert.False(t, res.Finished)

	l.Mu.Lock()
	host := l.Member(hostID)
	assert.Equal(t, 100, host.Score)
	assert.Equal(t, 1, host.Correct)
	assert.Equal(t, 1, host.Total)
	assert.Equal(t, 3, host.Lives)
	assert.Equal(t, guestID, l.Players[l.CurrentPlayerIndex].UserID, "turn rotates to the next seat")
	l.Mu.Unlock()

	d, ok := store.lastDelta(hostID)
	require.True(t, ok)
	assert.Equal(t, economy.CasualPointsWin, d.Points)
	assert.Equal(t, 1, d.CasualCorrect)
	assert.Equal(t, 1, d.CasualTotal)
	assert.Zero(t, d.Rating, "casual answers never move rating")
}

func TestSubmitAnswerCorrectRanked(t *testing.T) {
	e, store, _, l, hostID, _ := setupMatch(t, Config{Mode: "ranked_quiz", Capacity: 2})

	res, err := e.SubmitAnswer(context.Background(), l.ID, hostID, currentAnswer(l))
	require.NoError(t, err)
	assert.True(t, res.RawCorrect)

	l.Mu.Lock()
	assert.Equal(t, 3, l.Member(hostID).Lives, "correct answers never touch lives")
	l.Mu.Unlock()

	d, ok := store.lastDelta(hostID)
	require.True(t, ok)
	assert.Equal(t, economy.RankedRatingWin, d.Rating)
	assert.Equal(t, 1, d.RankedCorrect)
	assert.Zero(t, d.Points)
}

func TestThreeWrongAnswersEliminate(t *testing.T) {
	e, store, _, l, hostID, guestID := setupMatch(t, Config{Mode: "casual_quiz", Capacity: 2, InitialLives: 3})

	for i := 0; i < 2; i++ {
		res, err := e.SubmitAnswer(context.Background(), l.ID, hostID, "wrong")
		require.NoError(t, err)
		assert.False(t, res.Eliminated)

		_, err = e.SubmitAnswer(context.Background(), l.ID, guestID, currentAnswer(l))
		require.NoError(t, err)
	}

	res, err := e.SubmitAnswer(context.Background(), l.ID, hostID, "wrong")
	require.NoError(t, err)
	assert.True(t, res.Eliminated, "third wrong answer is the last")
	assert.True(t, res.Finished)
	assert.Equal(t, guestID, res.Winner)

	store.mu.Lock()
	payout := store.tokens[guestID]
	store.mu.Unlock()
	assert.GreaterOrEqual(t, payout, economy.WinPayoutBase)
}

func TestSubmitAnswerWrongRanked(t *testing.T) {
	e, store, _, l, hostID, _ := setupMatch(t, Config{Mode: "ranked_quiz", Capacity: 2})

	res, err := e.SubmitAnswer(context.Background(), l.ID, hostID, "definitely wrong")
	require.NoError(t, err)

	assert.False(t, res.RawCorrect)
	assert.False(t, res.EffectiveCorrect)

	l.Mu.Lock()
	host := l.Member(hostID)
	assert.Equal(t, -50, host.Score)
	assert.Equal(t, 2, host.Lives)
	l.Mu.Unlock()

	d, ok := store.lastDelta(hostID)
	require.True(t, ok)
	assert.Equal(t, economy.RankedRatingLoss, d.Rating)
	assert.Equal(t, 0, d.RankedCorrect)
	assert.Equal(t, 1, d.RankedTotal)
}

func TestSubmitAnswerCaseInsensitive(t *testing.T) {
	e, _, _, l, hostID, _ := setupMatch(t, Config{Mode: "casual_quiz", Capacity: 2})

	answer := "  " + currentAnswer(l) + "  "
	res, err := e.SubmitAnswer(context.Background(), l.ID, hostID, answer)
	require.NoError(t, err)
	assert.True(t, res.RawCorrect, "matching is trimmed and case-insensitive")
}

func TestShieldInterceptsLifeLossButNotLedger(t *testing.T) {
	e, store, _, l, hostID, _ := setupMatch(t, Config{Mode: "ranked_quiz", Capacity: 2})

	l.Mu.Lock()
	l.Member(hostID).Shields = 1
	l.Mu.Unlock()

	res, err := e.SubmitAnswer(context.Background(), l.ID, hostID, "wrong")
	require.NoError(t, err)

	assert.False(t, res.RawCorrect)
	assert.True(t, res.ShieldConsumed)
	assert.True(t, res.EffectiveCorrect)

	l.Mu.Lock()
	host := l.Member(hostID)
	assert.Equal(t, 3, host.Lives, "shield absorbs the life loss")
	assert.Equal(t, 100, host.Score, "shielded answer scores as correct")
	assert.Equal(t, 0, host.Shields)
	l.Mu.Unlock()

	d, ok := store.lastDelta(hostID)
	require.True(t, ok)
	assert.Equal(t, economy.RankedRatingLoss, d.Rating, "ledger always follows raw correctness")
}

func TestNotYourTurn(t *testing.T) {
	e, _, _, l, _, guestID := setupMatch(t, Config{Mode: "casual_quiz", Capacity: 2})

	_, err := e.SubmitAnswer(context.Background(), l.ID, guestID, "anything")
	assert.ErrorIs(t, err, ErrNotYourTurn)
}

func TestSubmitBeforeStart(t *testing.T) {
	store := newMockStore()
	e := NewEngine(store)
	host := testUser("host")
	l, err := e.CreateLobby(host, Config{Mode: "casual_quiz", Capacity: 2})
	require.NoError(t, err)

	_, err = e.SubmitAnswer(context.Background(), l.ID, host.ID, "x")
	assert.ErrorIs(t, err, ErrGameNotStarted)
}

func TestLedgerFailureLeavesLobbyUntouched(t *testing.T) {
	e, store, _, l, hostID, _ := setupMatch(t, Config{Mode: "ranked_quiz", Capacity: 2})

	store.mu.Lock()
	store.failErr = errors.New("pg down")
	store.mu.Unlock()

	_, err := e.SubmitAnswer(context.Background(), l.ID, hostID, "wrong")
	assert.ErrorIs(t, err, ErrDependency)

	l.Mu.Lock()
	host := l.Member(hostID)
	assert.Equal(t, 3, host.Lives, "failed settlement must not mutate the lobby")
	assert.Equal(t, 0, host.Total)
	assert.Equal(t, hostID, l.Players[l.CurrentPlayerIndex].UserID, "turn does not advance")
	l.Mu.Unlock()
}

func TestEliminationEndsHeadToHead(t *testing.T) {
	e, store, mb, l, hostID, guestID := setupMatch(t, Config{Mode: "ranked_quiz", Capacity: 2, InitialLives: 1})

	res, err := e.SubmitAnswer(context.Background(), l.ID, hostID, "wrong")
	require.NoError(t, err)

	assert.True(t, res.Eliminated)
	assert.True(t, res.Finished)
	assert.Equal(t, guestID, res.Winner)

	l.Mu.Lock()
	assert.True(t, l.Finished)
	assert.False(t, l.Started)
	assert.Nil(t, l.Member(hostID), "eliminated player is spliced out")
	l.Mu.Unlock()

	store.mu.Lock()
	payout := store.tokens[guestID]
	store.mu.Unlock()
	assert.Equal(t, economy.WinPayoutBase+economy.WinPayoutRanked, payout)

	last := mb.lastLobbyEvent()
	require.NotNil(t, last)
	assert.Equal(t, broadcast.EventGameEnded, last.Type)
}

func TestCustomWinPayout(t *testing.T) {
	e, store, _, l, hostID, guestID := setupMatch(t, Config{Mode: "custom_quiz", Capacity: 2, InitialLives: 1})

	_, err := e.SubmitAnswer(context.Background(), l.ID, hostID, "wrong")
	require.NoError(t, err)

	store.mu.Lock()
	payout := store.tokens[guestID]
	store.mu.Unlock()
	assert.Equal(t, economy.WinPayoutBase+economy.WinPayoutCustom, payout)
}

func TestQuestionDeckWraps(t *testing.T) {
	e, _, _, l, hostID, guestID := setupMatch(t, Config{Mode: "casual_quiz", Capacity: 2, InitialLives: 100})

	l.Mu.Lock()
	deckLen := len(l.Questions)
	l.Mu.Unlock()

	turns := [2]uuid.UUID{hostID, guestID}
	for i := 0; i < deckLen; i++ {
		_, err := e.SubmitAnswer(context.Background(), l.ID, turns[i%2], currentAnswer(l))
		require.NoError(t, err)
	}

	l.Mu.Lock()
	assert.Equal(t, 0, l.CurrentQuestion, "deck replays from the top without reshuffle")
	assert.False(t, l.Finished)
	l.Mu.Unlock()
}

func TestFrenzyCardCadence(t *testing.T) {
	e, _, _, l, hostID, guestID := setupMatch(t, Config{Mode: "custom_quiz", Capacity: 2, Frenzy: true, InitialLives: 10})

	l.Mu.Lock()
	for _, p := range l.Players {
		require.Len(t, p.Hand, 3, "frenzy start deals a full hand")
	}
	l.Mu.Unlock()

	// Two players: a deal fires every 4 cycles.
	turns := [2]uuid.UUID{hostID, guestID}
	for i := 0; i < 4; i++ {
		_, err := e.SubmitAnswer(context.Background(), l.ID, turns[i%2], currentAnswer(l))
		require.NoError(t, err)
	}

	l.Mu.Lock()
	for _, p := range l.Players {
		assert.Len(t, p.Hand, 4, "cadence deals one card to every seat")
	}
	l.Mu.Unlock()
}

func TestNonFrenzyNeverDeals(t *testing.T) {
	e, _, _, l, hostID, guestID := setupMatch(t, Config{Mode: "casual_quiz", Capacity: 2, InitialLives: 10})

	turns := [2]uuid.UUID{hostID, guestID}
	for i := 0; i < 8; i++ {
		_, err := e.SubmitAnswer(context.Background(), l.ID, turns[i%2], currentAnswer(l))
		require.NoError(t, err)
	}

	l.Mu.Lock()
	for _, p := range l.Players {
		assert.Empty(t, p.Hand)
	}
	l.Mu.Unlock()
}

func TestBotTurnsResolveThroughSamePipeline(t *testing.T) {
	store := newMockStore()
	e := NewEngine(store)
	e.BotCorrectChance = 1.0 // deterministic

	host := testUser("host")
	l, err := e.CreateLobby(host, Config{Mode: "casual_quiz", Capacity: 3})
	require.NoError(t, err)
	guest := testUser("guest")
	_, err = e.Join(l.ID, guest)
	require.NoError(t, err)

	_, err = e.ToggleReady(l.ID, host.ID)
	require.NoError(t, err)
	_, err = e.ToggleReady(l.ID, guest.ID)
	require.NoError(t, err)

	_, err = e.StartMatch(context.Background(), l.ID, host.ID)
	require.NoError(t, err)

	// Seat order is host, guest, bot. After the humans answer, the bot
	// plays automatically and the turn returns to the host.
	_, err = e.SubmitAnswer(context.Background(), l.ID, host.ID, currentAnswer(l))
	require.NoError(t, err)
	_, err = e.SubmitAnswer(context.Background(), l.ID, guest.ID, currentAnswer(l))
	require.NoError(t, err)

	l.Mu.Lock()
	current := l.Players[l.CurrentPlayerIndex]
	var bot uuid.UUID
	for _, p := range l.Players {
		if p.IsBot {
			bot = p.UserID
			assert.Equal(t, 1, p.Total, "bot resolved exactly one turn")
		}
	}
	l.Mu.Unlock()

	assert.Equal(t, host.ID, current.UserID)
	store.mu.Lock()
	_, botSettled := store.deltas[bot]
	store.mu.Unlock()
	assert.False(t, botSettled, "bots never touch the ledger")
}

// setupSolo builds a started solo lobby: one human host plus bot seats.
func setupSolo(t *testing.T, cfg Config) (*Engine, *mockStore, *Lobby, uuid.UUID) {
	t.Helper()

	store := newMockStore()
	e := NewEngine(store)
	e.Bcast = newMockBroadcaster()
	e.BotCorrectChance = 1.0

	host := testUser("host")
	l, err := e.CreateLobby(host, cfg)
	require.NoError(t, err)

	if !l.Ranked {
		_, err = e.ToggleReady(l.ID, host.ID)
		require.NoError(t, err)
	}
	_, err = e.StartMatch(context.Background(), l.ID, host.ID)
	require.NoError(t, err)

	return e, store, l, host.ID
}

func TestSoloGameContinuesPastFirstAnswer(t *testing.T) {
	e, store, l, hostID := setupSolo(t, Config{Mode: "casual_solo", Capacity: 2})

	res, err := e.SubmitAnswer(context.Background(), l.ID, hostID, currentAnswer(l))
	require.NoError(t, err)

	assert.False(t, res.Finished, "a lone human against bots keeps playing")
	l.Mu.Lock()
	assert.True(t, l.Started)
	assert.False(t, l.Finished)
	l.Mu.Unlock()

	store.mu.Lock()
	assert.Zero(t, store.tokens[hostID], "no payout while the game runs")
	store.mu.Unlock()
}

func TestSoloGameEndsWhenHumanFalls(t *testing.T) {
	e, store, l, hostID := setupSolo(t, Config{Mode: "casual_solo", Capacity: 2, InitialLives: 1})

	res, err := e.SubmitAnswer(context.Background(), l.ID, hostID, "wrong")
	require.NoError(t, err)

	assert.True(t, res.Eliminated)
	assert.True(t, res.Finished)
	assert.Equal(t, uuid.Nil, res.Winner, "bots cannot win")

	store.mu.Lock()
	assert.Zero(t, store.tokens[hostID], "a fallen human earns no payout")
	store.mu.Unlock()
}

func TestSoloWinWhenBotsFall(t *testing.T) {
	e, store, l, hostID := setupSolo(t, Config{Mode: "casual_solo", Capacity: 2, InitialLives: 1})
	e.BotCorrectChance = 0

	res, err := e.SubmitAnswer(context.Background(), l.ID, hostID, currentAnswer(l))
	require.NoError(t, err)

	assert.True(t, res.Finished, "outlasting the last bot ends the game")
	assert.Equal(t, hostID, res.Winner)

	store.mu.Lock()
	assert.Equal(t, economy.WinPayoutBase, store.tokens[hostID])
	store.mu.Unlock()
}

func TestSoloFrenzyBotTurnsDoNotRedeal(t *testing.T) {
	e, _, l, hostID := setupSolo(t, Config{Mode: "custom_solo", Capacity: 2, Frenzy: true, InitialLives: 10})

	// Two seats: a deal fires when the counter reaches 4. Only the human
	// turn advances the counter, and only that turn may deal, even though
	// the interleaved bot turn resolves while the counter sits at 4.
	for i := 0; i < 4; i++ {
		_, err := e.SubmitAnswer(context.Background(), l.ID, hostID, currentAnswer(l))
		require.NoError(t, err)
	}

	l.Mu.Lock()
	for _, p := range l.Players {
		assert.Len(t, p.Hand, 4, "exactly one deal across four rounds")
	}
	l.Mu.Unlock()
}

func TestCodeAnswerGradedThroughJudge(t *testing.T) {
	e, store, _, l, hostID, _ := setupMatch(t, Config{Mode: "ranked_blank", Capacity: 2})
	e.Judge = stubJudge{v: judge.Verdict{Correct: true, Accuracy: 95, Graded: true}}

	l.Mu.Lock()
	l.Questions[l.CurrentQuestion] = models.Question{
		ID:       uuid.New(),
		Kind:     models.KindCode,
		Prompt:   "Write a program that prints ok.",
		Answer:   "ok",
		Expected: "ok",
	}
	l.Mu.Unlock()

	res, err := e.SubmitAnswer(context.Background(), l.ID, hostID, "print('ok')")
	require.NoError(t, err)

	assert.True(t, res.RawCorrect)
	assert.True(t, res.Verdict.Graded)
	assert.Equal(t, 95, res.Verdict.Accuracy)

	d, ok := store.lastDelta(hostID)
	require.True(t, ok)
	assert.Equal(t, economy.RankedRatingWin, d.Rating)
}

func TestCodeAnswerUngradedSkipsLedger(t *testing.T) {
	e, store, _, l, hostID, _ := setupMatch(t, Config{Mode: "ranked_blank", Capacity: 2})
	e.Judge = stubJudge{err: errors.New("judge down")}

	l.Mu.Lock()
	l.Questions[l.CurrentQuestion] = models.Question{
		ID:       uuid.New(),
		Kind:     models.KindCode,
		Prompt:   "Write a program that prints ok.",
		Answer:   "ok",
		Expected: "ok",
	}
	l.Mu.Unlock()

	res, err := e.SubmitAnswer(context.Background(), l.ID, hostID, "print('ok')")
	require.NoError(t, err)

	assert.False(t, res.Verdict.Graded)
	assert.False(t, res.RawCorrect)

	_, ok := store.lastDelta(hostID)
	assert.False(t, ok, "ungraded answers never charge the ledger")

	l.Mu.Lock()
	assert.Equal(t, 2, l.Member(hostID).Lives, "the life loss still applies")
	l.Mu.Unlock()
}

func TestCreateLobbyWhilePenalized(t *testing.T) {
	e := NewEngine(newMockStore())
	host := testUser("host")
	host.PenaltyUntil = timeInFuture()

	_, err := e.CreateLobby(host, Config{Mode: "casual_quiz", Capacity: 2})
	assert.ErrorIs(t, err, ErrPenaltyActive)
}

func TestJoinWhilePenalized(t *testing.T) {
	e := NewEngine(newMockStore())
	host := testUser("host")
	l, err := e.CreateLobby(host, Config{Mode: "casual_quiz", Capacity: 2})
	require.NoError(t, err)

	guest := testUser("guest")
	guest.PenaltyUntil = timeInFuture()
	_, err = e.Join(l.ID, guest)
	assert.ErrorIs(t, err, ErrPenaltyActive)
}

func TestLeaveCascadeDeletesLobby(t *testing.T) {
	e := NewEngine(newMockStore())
	host := testUser("host")
	l, err := e.CreateLobby(host, Config{Mode: "casual_quiz", Capacity: 2})
	require.NoError(t, err)

	res, err := e.Leave(l.ID, host.ID)
	require.NoError(t, err)
	assert.True(t, res.Deleted)

	_, ok := e.Lobbies.Get(l.ID)
	assert.False(t, ok, "OnEmpty removes the lobby from the registry")
}

func TestLeaveMidGameEndsWhenOneHumanRemains(t *testing.T) {
	store := newMockStore()
	e := NewEngine(store)
	e.Bcast = newMockBroadcaster()
	e.BotCorrectChance = 1.0

	host := testUser("host")
	guest := testUser("guest")
	l, err := e.CreateLobby(host, Config{Mode: "casual_quiz", Capacity: 3})
	require.NoError(t, err)
	_, err = e.Join(l.ID, guest)
	require.NoError(t, err)
	_, err = e.ToggleReady(l.ID, host.ID)
	require.NoError(t, err)
	_, err = e.ToggleReady(l.ID, guest.ID)
	require.NoError(t, err)
	_, err = e.StartMatch(context.Background(), l.ID, host.ID)
	require.NoError(t, err)

	_, err = e.SubmitAnswer(context.Background(), l.ID, host.ID, currentAnswer(l))
	require.NoError(t, err)

	res, err := e.Leave(l.ID, guest.ID)
	require.NoError(t, err)
	assert.True(t, res.Removed)

	l.Mu.Lock()
	assert.True(t, l.Finished, "the last human standing ends the game")
	l.Mu.Unlock()

	store.mu.Lock()
	assert.Equal(t, economy.WinPayoutBase, store.tokens[host.ID])
	store.mu.Unlock()
}

func TestLeaveMidGameDrivesBotTurn(t *testing.T) {
	store := newMockStore()
	e := NewEngine(store)
	e.Bcast = newMockBroadcaster()
	e.BotCorrectChance = 1.0

	host := testUser("host")
	g1 := testUser("g1")
	g2 := testUser("g2")
	l, err := e.CreateLobby(host, Config{Mode: "casual_quiz", Capacity: 4, InitialLives: 10})
	require.NoError(t, err)
	_, err = e.Join(l.ID, g1)
	require.NoError(t, err)
	_, err = e.Join(l.ID, g2)
	require.NoError(t, err)
	for _, id := range []uuid.UUID{host.ID, g1.ID, g2.ID} {
		_, err = e.ToggleReady(l.ID, id)
		require.NoError(t, err)
	}
	_, err = e.StartMatch(context.Background(), l.ID, host.ID)
	require.NoError(t, err)

	// Seats are host, g1, g2, bot. Advance the turn to g2, then remove g2:
	// the pointer lands on the bot seat, which must play out immediately so
	// the remaining humans are never stuck waiting on it.
	_, err = e.SubmitAnswer(context.Background(), l.ID, host.ID, currentAnswer(l))
	require.NoError(t, err)
	_, err = e.SubmitAnswer(context.Background(), l.ID, g1.ID, currentAnswer(l))
	require.NoError(t, err)

	res, err := e.Leave(l.ID, g2.ID)
	require.NoError(t, err)
	assert.True(t, res.Removed)

	l.Mu.Lock()
	assert.False(t, l.Finished)
	current := l.Players[l.CurrentPlayerIndex]
	l.Mu.Unlock()
	assert.Equal(t, host.ID, current.UserID, "bot turn resolved on departure")

	_, err = e.SubmitAnswer(context.Background(), l.ID, host.ID, currentAnswer(l))
	assert.NoError(t, err, "play continues for the remaining humans")
}

func TestForceLeaveKicksFromLobby(t *testing.T) {
	store := newMockStore()
	mb := newMockBroadcaster()
	e := NewEngine(store)
	e.Bcast = mb

	host := testUser("host")
	guest := testUser("guest")
	l, err := e.CreateLobby(host, Config{Mode: "casual_quiz", Capacity: 3})
	require.NoError(t, err)
	_, err = e.Join(l.ID, guest)
	require.NoError(t, err)

	e.ForceLeave(guest.ID)

	l.Mu.Lock()
	member := l.Member(guest.ID)
	l.Mu.Unlock()
	assert.Nil(t, member)

	mb.mu.Lock()
	evts := mb.userEvts[guest.ID]
	mb.mu.Unlock()
	require.NotEmpty(t, evts)
	assert.Equal(t, broadcast.EventKickedFromGame, evts[len(evts)-1].Type)
}

func TestSendChat(t *testing.T) {
	e, _, mb, l, hostID, _ := setupMatch(t, Config{Mode: "casual_quiz", Capacity: 2})

	require.NoError(t, e.SendChat(l.ID, hostID, "glhf"))
	assert.ErrorIs(t, e.SendChat(l.ID, uuid.New(), "hi"), ErrNotMember)

	l.Mu.Lock()
	require.Len(t, l.Chat, 1)
	assert.Equal(t, "glhf", l.Chat[0].Text)
	l.Mu.Unlock()

	last := mb.lastLobbyEvent()
	require.NotNil(t, last)
	assert.Equal(t, broadcast.EventChatMessage, last.Type)
}
