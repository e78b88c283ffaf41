package model

import "time"

// Book is a catalog entry. All four content fields are required and stored
// trimmed. AddedBy is the id of the user who created the entry.
type Book struct {
	ID          string       `json:"id"          db:"id"`
	Title       string       `json:"title"       db:"title"`
	Author      string       `json:"author"      db:"author"`
	Genre       string       `json:"genre"       db:"genre"`
	Description string       `json:"description" db:"description"`
	AddedBy     string       `json:"-"           db:"added_by"`
	Adder       *UserSummary `json:"addedBy,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"   db:"created_at"`
	UpdatedAt   time.Time    `json:"updatedAt"   db:"updated_at"`
}

// BookFields is the full content field set. Updates always carry all four
// fields; partial updates are not supported.
type BookFields struct {
	Title       string `json:"title"`
	Author      string `json:"author"`
	Genre       string `json:"genre"`
	Description string `json:"description"`
}

// BookSummary is the projection returned alongside a book's reviews.
type BookSummary struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Author      string `json:"author"`
	Genre       string `json:"genre"`
	Description string `json:"description"`
}
