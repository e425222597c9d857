// internal/questions/bank_test.go
package questions

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quizarena/quizarena/internal/models"
)

func TestBankSelection(t *testing.T) {
	assert.NotEmpty(t, Bank(FamilyQuiz))
	assert.NotEmpty(t, Bank(FamilyBlank))
	assert.Equal(t, Bank(FamilyQuiz), Bank(Family("unknown")), "unknown families fall back to quiz")
}

func TestBlankBankCarriesCodeChallenges(t *testing.T) {
	codeCount := 0
	for _, q := range Bank(FamilyBlank) {
		if q.Kind != models.KindCode {
			continue
		}
		codeCount++
		assert.NotEmpty(t, q.Expected, "code questions carry expected output for the judge")
		assert.NotEmpty(t, q.Answer, "code questions keep a canonical short answer")
	}
	assert.NotZero(t, codeCount)
}

func TestShuffledDeckIsPermutation(t *testing.T) {
	bank := Bank(FamilyQuiz)
	deck := ShuffledDeck(FamilyQuiz)
	require.Len(t, deck, len(bank))

	seen := make(map[uuid.UUID]bool, len(deck))
	for _, q := range deck {
		seen[q.ID] = true
	}
	for _, q := range bank {
		assert.True(t, seen[q.ID], "every bank question appears exactly once")
	}
}

func TestShuffledDeckDoesNotMutateBank(t *testing.T) {
	before := make([]uuid.UUID, 0)
	for _, q := range Bank(FamilyBlank) {
		before = append(before, q.ID)
	}
	_ = ShuffledDeck(FamilyBlank)
	for i, q := range Bank(FamilyBlank) {
		assert.Equal(t, before[i], q.ID)
	}
}
