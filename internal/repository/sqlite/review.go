package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/book-catalog/internal/apperror"
	"github.com/sakif/book-catalog/internal/model"
	"github.com/sakif/book-catalog/internal/repository"
)

var _ repository.ReviewRepository = (*DB)(nil)

const reviewColumns = `id, book_id, user_id, rating, comment, created_at, updated_at`

// CreateReview inserts a review, filling in ID and timestamps.
//
// The UNIQUE (book_id, user_id) index is what actually guarantees one review
// per user per book: when two requests race past the service's lookup, the
// second INSERT fails here and becomes apperror.ErrConflict.
func (db *DB) CreateReview(ctx context.Context, review *model.Review) error {
	now := time.Now().UTC()
	review.ID = xid.New().String()
	review.CreatedAt = now
	review.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO reviews (`+reviewColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		review.ID,
		review.BookID,
		review.UserID,
		review.Rating,
		review.Comment,
		review.CreatedAt,
		review.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.ConflictMessage("You have already reviewed this book")
		}
		return fmt.Errorf("sqlite: inserting review for book %s: %w", review.BookID, err)
	}
	return nil
}

func (db *DB) GetReviewByID(ctx context.Context, id string) (*model.Review, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+reviewColumns+` FROM reviews WHERE id = ?`, id)

	r, err := scanReview(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("review", id)
		}
		return nil, fmt.Errorf("sqlite: getting review %s: %w", id, err)
	}
	return r, nil
}

// FindUserReview returns the caller's review of a book, or ErrNotFound.
func (db *DB) FindUserReview(ctx context.Context, bookID, userID string) (*model.Review, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+reviewColumns+` FROM reviews WHERE book_id = ? AND user_id = ?`,
		bookID, userID)

	r, err := scanReview(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFoundMessage("review not found for this user and book")
		}
		return nil, fmt.Errorf("sqlite: finding review of book %s by user %s: %w", bookID, userID, err)
	}
	return r, nil
}

// UpdateReview overwrites rating and comment. The book and user references
// never change after creation.
func (db *DB) UpdateReview(ctx context.Context, review *model.Review) error {
	review.UpdatedAt = time.Now().UTC()

	result, err := db.conn.ExecContext(ctx,
		`UPDATE reviews SET rating = ?, comment = ?, updated_at = ? WHERE id = ?`,
		review.Rating, review.Comment, review.UpdatedAt, review.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating review %s: %w", review.ID, err)
	}
	return requireOneRow(result, "review", review.ID)
}

func (db *DB) DeleteReview(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM reviews WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting review %s: %w", id, err)
	}
	return requireOneRow(result, "review", id)
}

// reviewsForBookSQL is the aggregation pass. One statement yields:
//
//   - the book summary (repeated on every row),
//   - the count and average over ALL of the book's reviews (stats),
//   - one window of reviews, newest first, each joined to its author (page).
//
// The book is the driving table and both joins are LEFT, so a book with no
// reviews (or a page past the end) still comes back as one row with NULL
// review columns. No row at all means the book does not exist.
const reviewsForBookSQL = `
SELECT b.id, b.title, b.author, b.genre, b.description,
       COALESCE(stats.total, 0), COALESCE(stats.average, 0),
       page.id, page.user_id, page.rating, page.comment, page.created_at, page.updated_at,
       u.name
FROM books b
LEFT JOIN (
    SELECT book_id, COUNT(*) AS total, AVG(rating) AS average
    FROM reviews WHERE book_id = ? GROUP BY book_id
) stats ON stats.book_id = b.id
LEFT JOIN (
    SELECT id, book_id, user_id, rating, comment, created_at, updated_at, rowid AS seq
    FROM reviews WHERE book_id = ?
    ORDER BY created_at DESC, rowid DESC
    LIMIT ? OFFSET ?
) page ON page.book_id = b.id
LEFT JOIN users u ON u.id = page.user_id
WHERE b.id = ?
ORDER BY page.created_at DESC, page.seq DESC`

// ReviewsForBook runs the aggregation pass for one book.
// The average is returned unrounded; presentation rounding is the caller's.
func (db *DB) ReviewsForBook(ctx context.Context, bookID string, opts repository.ListOptions) (*model.BookReviews, error) {
	rows, err := db.conn.QueryContext(ctx, reviewsForBookSQL,
		bookID, bookID, opts.Limit, opts.Offset, bookID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: aggregating reviews for book %s: %w", bookID, err)
	}
	defer rows.Close()

	var (
		out   *model.BookReviews
		found bool
	)
	for rows.Next() {
		var (
			book     model.BookSummary
			total    int
			average  float64
			id       sql.NullString
			userID   sql.NullString
			rating   sql.NullInt64
			comment  sql.NullString
			created  nullTime
			updated  nullTime
			userName sql.NullString
		)
		if err := rows.Scan(
			&book.ID, &book.Title, &book.Author, &book.Genre, &book.Description,
			&total, &average,
			&id, &userID, &rating, &comment, &created, &updated,
			&userName,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning review aggregate for book %s: %w", bookID, err)
		}

		if !found {
			found = true
			out = &model.BookReviews{
				Book:          book,
				TotalReviews:  total,
				AverageRating: average,
				Reviews:       []model.ReviewDetail{},
			}
		}

		// NULL review columns: the book exists but this page is empty.
		if !id.Valid {
			continue
		}
		out.Reviews = append(out.Reviews, model.ReviewDetail{
			Review: model.Review{
				ID:        id.String,
				BookID:    book.ID,
				UserID:    userID.String,
				Rating:    int(rating.Int64),
				Comment:   comment.String,
				CreatedAt: created.Time,
				UpdatedAt: updated.Time,
			},
			User: model.UserSummary{ID: userID.String, Name: userName.String},
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating review aggregate for book %s: %w", bookID, err)
	}

	if !found {
		return nil, apperror.NotFound("book", bookID)
	}
	return out, nil
}

func scanReview(row rowScanner) (*model.Review, error) {
	var r model.Review
	err := row.Scan(
		&r.ID,
		&r.BookID,
		&r.UserID,
		&r.Rating,
		&r.Comment,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}
