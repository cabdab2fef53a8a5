package domain

import "time"

// Post is a single timeline entry. Posts are never edited; only a full reset removes them.
type Post struct {
	ID         string    `json:"id"`
	Sequence   int       `json:"sequence"`
	AuthorID   string    `json:"author_id"`
	AuthorName string    `json:"author_name"`
	Avatar     string    `json:"avatar,omitempty"`
	Content    string    `json:"content"`
	Manual     bool      `json:"manual,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// ContextTurn is an (author, text) pair handed to the generation service.
type ContextTurn struct {
	Author string `json:"author"`
	Text   string `json:"text"`
}

// Order selects the direction in which the timeline is read.
type Order string

const (
	OrderAscending  Order = "asc"
	OrderDescending Order = "desc"
)

// ParseOrder maps loose user input onto an Order. Unknown values read ascending.
func ParseOrder(s string) Order {
	switch s {
	case "desc", "reverse", "newest":
		return OrderDescending
	default:
		return OrderAscending
	}
}
