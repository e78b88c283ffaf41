// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, enforces rules, orchestrates
//	Repository (Data layer)  → reads/writes to the database
//
// Services take repository interfaces, never *sqlite.DB, so tests pass
// in-memory fakes and the handlers never learn about SQL.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/book-catalog/internal/apperror"
	"github.com/sakif/book-catalog/internal/model"
	"github.com/sakif/book-catalog/internal/repository"
)

// BookService is the book directory: create, bulk create, update, list
// and search.
type BookService struct {
	books  repository.BookRepository
	logger *slog.Logger
}

func NewBookService(books repository.BookRepository, logger *slog.Logger) *BookService {
	return &BookService{books: books, logger: logger}
}

// BookQuery holds the optional listing filters.
type BookQuery struct {
	Genre  string // exact match
	Author string // case-insensitive substring
}

// BookPage is one window of books plus the numbers needed to page on.
type BookPage struct {
	Books []model.Book
	Total int
	Page  PageRequest
	Pages int
}

// Create stores one book on behalf of addedBy. Duplicates are allowed.
func (s *BookService) Create(ctx context.Context, fields model.BookFields, addedBy string) (*model.Book, error) {
	book, err := newBook(fields, addedBy, "")
	if err != nil {
		return nil, err
	}

	if err := s.books.CreateBook(ctx, book); err != nil {
		return nil, internalError(s.logger, "creating book", err)
	}

	s.logger.Info("book created", slog.String("bookID", book.ID), slog.String("addedBy", addedBy))
	return book, nil
}

// CreateBulk stores every book or none of them.
func (s *BookService) CreateBulk(ctx context.Context, list []model.BookFields, addedBy string) ([]*model.Book, error) {
	if len(list) == 0 {
		return nil, apperror.ValidationFailed("books", "at least one book is required")
	}

	books := make([]*model.Book, 0, len(list))
	for i, fields := range list {
		book, err := newBook(fields, addedBy, indexPrefix("books", i))
		if err != nil {
			return nil, err
		}
		books = append(books, book)
	}

	if err := s.books.CreateBooks(ctx, books); err != nil {
		return nil, internalError(s.logger, "creating books in bulk", err)
	}

	s.logger.Info("books created in bulk", slog.Int("count", len(books)), slog.String("addedBy", addedBy))
	return books, nil
}

// Update overwrites all four content fields of book id. There is no
// partial update: callers resend the full field set.
func (s *BookService) Update(ctx context.Context, id string, fields model.BookFields) error {
	book, err := newBook(fields, "", "")
	if err != nil {
		return err
	}
	book.ID = id

	if err := s.books.UpdateBook(ctx, book); err != nil {
		return internalError(s.logger, "updating book", err)
	}
	return nil
}

// List returns one page of books matching q, newest first.
func (s *BookService) List(ctx context.Context, q BookQuery, page PageRequest) (*BookPage, error) {
	filter := repository.BookFilter{}
	if genre := strings.TrimSpace(q.Genre); genre != "" {
		filter = filter.Where(repository.Equals(repository.FieldGenre, genre))
	}
	if author := strings.TrimSpace(q.Author); author != "" {
		filter = filter.Where(repository.Contains(repository.FieldAuthor, author))
	}
	return s.list(ctx, filter, page)
}

// Search matches query against title OR author, case-insensitively.
// An empty query is rejected before the store is touched.
func (s *BookService) Search(ctx context.Context, query string, page PageRequest) (*BookPage, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperror.ValidationFailed("q", "search query is required")
	}

	filter := repository.BookFilter{}.Where(repository.AnyOf(
		repository.Contains(repository.FieldTitle, query),
		repository.Contains(repository.FieldAuthor, query),
	))
	return s.list(ctx, filter, page)
}

func (s *BookService) list(ctx context.Context, filter repository.BookFilter, page PageRequest) (*BookPage, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	page = NewPageRequest(page.Page, page.Limit)

	books, total, err := s.books.ListBooks(ctx, filter, page.Options())
	if err != nil {
		return nil, internalError(s.logger, "listing books", err)
	}

	return &BookPage{
		Books: books,
		Total: total,
		Page:  page,
		Pages: Pages(total, page.Limit),
	}, nil
}

// newBook trims the content fields and rejects blank ones. prefix names
// the item in a bulk request ("books[2].") so errors point at it.
func newBook(f model.BookFields, addedBy, prefix string) (*model.Book, error) {
	book := &model.Book{
		Title:       strings.TrimSpace(f.Title),
		Author:      strings.TrimSpace(f.Author),
		Genre:       strings.TrimSpace(f.Genre),
		Description: strings.TrimSpace(f.Description),
		AddedBy:     addedBy,
	}

	missing := map[string]string{}
	for name, value := range map[string]string{
		"title":       book.Title,
		"author":      book.Author,
		"genre":       book.Genre,
		"description": book.Description,
	} {
		if value == "" {
			missing[prefix+name] = prefix + name + " is required"
		}
	}
	if len(missing) > 0 {
		return nil, apperror.ValidationWithDetails("Validation Error", missing)
	}
	return book, nil
}

func indexPrefix(field string, i int) string {
	return fmt.Sprintf("%s[%d].", field, i)
}
