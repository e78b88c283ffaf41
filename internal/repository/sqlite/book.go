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

var _ repository.BookRepository = (*DB)(nil)

// The adder's summary is fetched with an explicit join at the point of use.
const bookSelect = `SELECT b.id, b.title, b.author, b.genre, b.description, b.added_by,
	b.created_at, b.updated_at, u.name
	FROM books b LEFT JOIN users u ON u.id = b.added_by`

// CreateBook inserts a single book, filling in ID and timestamps.
func (db *DB) CreateBook(ctx context.Context, book *model.Book) error {
	stampNewBook(book, time.Now().UTC())

	if _, err := db.conn.ExecContext(ctx, insertBookSQL, bookInsertArgs(book)...); err != nil {
		return fmt.Errorf("sqlite: inserting book: %w", err)
	}
	return nil
}

// CreateBooks inserts every book inside one transaction.
//
// TRANSACTIONS:
// BeginTx hands out a single connection. Every statement run on tx sees the
// same uncommitted state; Commit publishes it all at once and Rollback throws
// it all away. The deferred Rollback is a no-op after a successful Commit.
func (db *DB) CreateBooks(ctx context.Context, books []*model.Book) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning bulk insert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insertBookSQL)
	if err != nil {
		return fmt.Errorf("sqlite: preparing bulk insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for i, book := range books {
		stampNewBook(book, now)
		if _, err := stmt.ExecContext(ctx, bookInsertArgs(book)...); err != nil {
			return fmt.Errorf("sqlite: inserting book %d of %d: %w", i+1, len(books), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing bulk insert: %w", err)
	}
	return nil
}

const insertBookSQL = `INSERT INTO books (id, title, author, genre, description, added_by, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

func stampNewBook(book *model.Book, now time.Time) {
	book.ID = xid.New().String()
	book.CreatedAt = now
	book.UpdatedAt = now
}

func bookInsertArgs(book *model.Book) []any {
	return []any{
		book.ID,
		book.Title,
		book.Author,
		book.Genre,
		book.Description,
		book.AddedBy,
		book.CreatedAt,
		book.UpdatedAt,
	}
}

// GetBookByID returns apperror.ErrNotFound if no book has this id.
func (db *DB) GetBookByID(ctx context.Context, id string) (*model.Book, error) {
	row := db.conn.QueryRowContext(ctx, bookSelect+` WHERE b.id = ?`, id)

	book, err := scanBook(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("book", id)
		}
		return nil, fmt.Errorf("sqlite: getting book %s: %w", id, err)
	}
	return book, nil
}

// UpdateBook overwrites the content fields of an existing book.
func (db *DB) UpdateBook(ctx context.Context, book *model.Book) error {
	book.UpdatedAt = time.Now().UTC()

	result, err := db.conn.ExecContext(ctx,
		`UPDATE books SET title = ?, author = ?, genre = ?, description = ?, updated_at = ?
		 WHERE id = ?`,
		book.Title,
		book.Author,
		book.Genre,
		book.Description,
		book.UpdatedAt,
		book.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating book %s: %w", book.ID, err)
	}
	return requireOneRow(result, "book", book.ID)
}

// ListBooks returns one page of books, newest insert first, and the number
// of books matching the filter overall.
//
// rowid grows with every insert, so ordering by it is insertion order even
// when two books share a timestamp.
func (db *DB) ListBooks(ctx context.Context, filter repository.BookFilter, opts repository.ListOptions) ([]model.Book, int, error) {
	where, args, err := compileBookFilter(filter)
	if err != nil {
		return nil, 0, err
	}

	var total int
	if err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM books b`+where, args...,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("sqlite: counting books: %w", err)
	}

	rows, err := db.conn.QueryContext(ctx,
		bookSelect+where+` ORDER BY b.rowid DESC LIMIT ? OFFSET ?`,
		append(args, opts.Limit, opts.Offset)...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: listing books: %w", err)
	}
	defer rows.Close()

	// Start from an empty slice so an empty page encodes as [] and not null.
	books := []model.Book{}
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("sqlite: scanning book row: %w", err)
		}
		books = append(books, *book)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("sqlite: iterating book rows: %w", err)
	}

	return books, total, nil
}

func scanBook(row rowScanner) (*model.Book, error) {
	var (
		b         model.Book
		adderName sql.NullString
	)
	err := row.Scan(
		&b.ID,
		&b.Title,
		&b.Author,
		&b.Genre,
		&b.Description,
		&b.AddedBy,
		&b.CreatedAt,
		&b.UpdatedAt,
		&adderName,
	)
	if err != nil {
		return nil, err
	}
	if adderName.Valid {
		b.Adder = &model.UserSummary{ID: b.AddedBy, Name: adderName.String}
	}
	return &b, nil
}
