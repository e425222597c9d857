package models

// Card is an immutable ability-card catalog entry. Hands reference cards by
// id+name; entries are never mutated after catalog construction.
type Card struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Effect string `json:"effect"`
}
