package models

import (
	"time"

	"github.com/google/uuid"
)

// ChatMessage is an append-only entry in a lobby's chat log.
type ChatMessage struct {
	Sender    uuid.UUID `json:"sender"`
	Username  string    `json:"username"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"ts"`
}
