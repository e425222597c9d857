// internal/cards/cards.go
package cards

import (
	"math/rand"
	"sync"
	"time"

	"github.com/quizarena/quizarena/internal/models"
)

// Catalog is the fixed set of ability cards. Entries are immutable; hands
// hold copies referencing them by id+name. Effects beyond the shield are
// executed client-side or by dedicated handlers, not by the turn engine.
var Catalog = []models.Card{
	{ID: "copy", Name: "Copy", Effect: "Duplicate another player's last card."},
	{ID: "control", Name: "Control", Effect: "Force the next question's category."},
	{ID: "golden-defense", Name: "Golden Defense", Effect: "Gain a shield that absorbs one wrong answer."},
	{ID: "meta-vision", Name: "Meta Vision", Effect: "Reveal one wrong choice on your next question."},
	{ID: "evolved-meta-vision", Name: "Evolved Meta Vision", Effect: "Reveal two wrong choices on your next question."},
}

// HandSize is the number of cards dealt at every dealing event in frenzy
// lobbies. Non-frenzy lobbies always deal empty hands.
const HandSize = 3

var (
	rngMu sync.Mutex
	rng   = rand.New(rand.NewSource(time.Now().UnixNano()))
)

// Lookup returns the catalog entry for the given id, if present.
func Lookup(id string) (models.Card, bool) {
	for _, c := range Catalog {
		if c.ID == id {
			return c, true
		}
	}
	return models.Card{}, false
}

// Random draws one card uniformly at random, with replacement.
func Random() models.Card {
	rngMu.Lock()
	defer rngMu.Unlock()
	return Catalog[rng.Intn(len(Catalog))]
}

// Deal produces a fresh hand under the distribution rule: frenzy lobbies
// get exactly HandSize uniformly-random cards, everything else gets none.
func Deal(frenzy bool) []models.Card {
	if !frenzy {
		return nil
	}
	hand := make([]models.Card, 0, HandSize)
	for i := 0; i < HandSize; i++ {
		hand = append(hand, Random())
	}
	return hand
}
