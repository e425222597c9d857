// internal/questions/bank.go
package questions

import (
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/quizarena/quizarena/internal/models"
)

// Family selects which static bank a lobby draws from.
type Family string

const (
	FamilyQuiz  Family = "quiz"
	FamilyBlank Family = "blank"
)

var quizBank = build(models.KindQuiz, [][2]string{
	{"What is the largest planet in the solar system?", "Jupiter"},
	{"Which element has the chemical symbol O?", "Oxygen"},
	{"In what year did the first moon landing take place?", "1969"},
	{"What is the capital of Japan?", "Tokyo"},
	{"How many sides does a hexagon have?", "6"},
	{"Which ocean is the deepest?", "Pacific"},
	{"Who painted the Mona Lisa?", "Leonardo da Vinci"},
	{"What is the smallest prime number?", "2"},
	{"Which country invented paper?", "China"},
	{"What gas do plants absorb from the atmosphere?", "Carbon dioxide"},
	{"How many continents are there?", "7"},
	{"What is the longest river in the world?", "Nile"},
})

var blankBank = append(build(models.KindBlank, [][2]string{
	{"Water boils at ___ degrees Celsius at sea level.", "100"},
	{"The speed of light is approximately 300,000 ___ per second.", "kilometers"},
	{"A group of lions is called a ___.", "pride"},
	{"The Great Wall is located in ___.", "China"},
	{"DNA stands for deoxyribonucleic ___.", "acid"},
	{"The currency of the United Kingdom is the ___.", "pound"},
	{"Mount Everest lies on the border of Nepal and ___.", "China"},
	{"The human body has ___ pairs of chromosomes.", "23"},
	{"Photosynthesis produces glucose and ___.", "oxygen"},
	{"The Eiffel Tower is in ___.", "Paris"},
}), codeChallenges()...)

// codeChallenges builds the code-kind questions mixed into the blank bank.
// They carry the expected program output for the external judge; Answer
// doubles as the canonical short form for bot turns, which bypass grading.
func codeChallenges() []models.Question {
	rows := [][3]string{
		{"Write a program that prints the integers 1 through 5, one per line.", "1 2 3 4 5", "1\n2\n3\n4\n5"},
		{"Write a program that prints the sum of 17 and 25.", "42", "42"},
		{"Write a program that prints the string 'hello' reversed.", "olleh", "olleh"},
	}
	qs := make([]models.Question, 0, len(rows))
	for _, row := range rows {
		qs = append(qs, models.Question{
			ID:       uuid.New(),
			Kind:     models.KindCode,
			Prompt:   row[0],
			Answer:   row[1],
			Expected: row[2],
		})
	}
	return qs
}

func build(kind models.QuestionKind, rows [][2]string) []models.Question {
	qs := make([]models.Question, 0, len(rows))
	for _, row := range rows {
		qs = append(qs, models.Question{
			ID:     uuid.New(),
			Kind:   kind,
			Prompt: row[0],
			Answer: row[1],
		})
	}
	return qs
}

// Bank returns the static question bank for a family. Unknown families
// default to the quiz bank.
func Bank(f Family) []models.Question {
	switch f {
	case FamilyBlank:
		return blankBank
	default:
		return quizBank
	}
}

// ShuffledDeck copies the family's bank and applies a uniform random
// permutation. The deck is replayed cyclically during long games rather
// than reshuffled.
func ShuffledDeck(f Family) []models.Question {
	bank := Bank(f)
	deck := make([]models.Question, len(bank))
	copy(deck, bank)

	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	r.Shuffle(len(deck), func(i, j int) {
		deck[i], deck[j] = deck[j], deck[i]
	})
	return deck
}
