package domain

import "time"

// Column is a named lane of the board. Position orders columns left to right.
type Column struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Position  int        `json:"position"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
}
