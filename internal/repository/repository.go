// Package repository declares the storage contracts the services depend on.
//
// Services take these interfaces, never a concrete store, so tests can inject
// in-memory fakes and the SQLite implementation stays swappable.
package repository

import (
	"context"

	"github.com/sakif/book-catalog/internal/model"
)

// ListOptions is a skip/limit window.
type ListOptions struct {
	Limit  int
	Offset int
}

// UserRepository is the credential store.
type UserRepository interface {
	// CreateUser fills ID and timestamps. A duplicate email yields apperror.ErrConflict.
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	// GetUserByEmail matches case-insensitively.
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	// UpdatePassword overwrites the hash and increments the token version.
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	SetActive(ctx context.Context, id string, active bool) error
}

// BookRepository is the book half of the catalog store.
type BookRepository interface {
	CreateBook(ctx context.Context, book *model.Book) error
	// CreateBooks inserts all books or none.
	CreateBooks(ctx context.Context, books []*model.Book) error
	GetBookByID(ctx context.Context, id string) (*model.Book, error)
	// UpdateBook overwrites the four content fields.
	UpdateBook(ctx context.Context, book *model.Book) error
	// ListBooks returns one window ordered by insertion recency (newest first)
	// and the total number of books matching the same filter.
	ListBooks(ctx context.Context, filter BookFilter, opts ListOptions) ([]model.Book, int, error)
}

// ReviewRepository is the review half of the catalog store.
type ReviewRepository interface {
	// CreateReview yields apperror.ErrConflict when (BookID, UserID) already has a review.
	CreateReview(ctx context.Context, review *model.Review) error
	GetReviewByID(ctx context.Context, id string) (*model.Review, error)
	FindUserReview(ctx context.Context, bookID, userID string) (*model.Review, error)
	UpdateReview(ctx context.Context, review *model.Review) error
	DeleteReview(ctx context.Context, id string) error
	// ReviewsForBook runs the aggregation pass: book summary, full-set count
	// and average, and one window of reviews in a single read.
	ReviewsForBook(ctx context.Context, bookID string, opts ListOptions) (*model.BookReviews, error)
}
