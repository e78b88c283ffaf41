package model

import "time"

// Review is one user's rating of one book. At most one review exists per
// (BookID, UserID); the store enforces it with a unique index.
type Review struct {
	ID        string    `json:"id"        db:"id"`
	BookID    string    `json:"bookId"    db:"book_id"`
	UserID    string    `json:"userId"    db:"user_id"`
	Rating    int       `json:"rating"    db:"rating"` // 1..5
	Comment   string    `json:"comment"   db:"comment"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// ReviewDetail is a review joined with its author's summary.
type ReviewDetail struct {
	Review
	User UserSummary `json:"user"`
}

// BookReviews is the result of the single aggregation pass over a book's
// reviews: the book itself, the full-set rollup (count and raw average) and
// one window of reviews, newest first.
type BookReviews struct {
	Book          BookSummary
	TotalReviews  int
	AverageRating float64
	Reviews       []ReviewDetail
}
