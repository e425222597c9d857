package models

import "github.com/google/uuid"

// QuestionKind selects how an answer is graded.
type QuestionKind string

const (
	// KindQuiz is a plain trivia question graded by case-insensitive
	// comparison against the canonical answer.
	KindQuiz QuestionKind = "quiz"
	// KindBlank is a fill-in-the-blank prompt, graded the same way.
	KindBlank QuestionKind = "blank"
	// KindCode is graded by the external judge against expected output.
	KindCode QuestionKind = "code"
)

// Question is one entry in a mode family's question bank.
type Question struct {
	ID     uuid.UUID    `json:"id"`
	Kind   QuestionKind `json:"kind"`
	Prompt string       `json:"prompt"`
	Answer string       `json:"answer"`

	// Expected holds the expected program output for KindCode questions.
	Expected string `json:"expected,omitempty"`
}
