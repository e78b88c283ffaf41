package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sakif/book-catalog/internal/apperror"
	"github.com/sakif/book-catalog/internal/model"
	"github.com/sakif/book-catalog/internal/repository"
)

// =========================================================================
// FAKE STORE
// =========================================================================
//
// fakeStore is an in-memory implementation of all three repository
// interfaces. Using a hand-written fake (not a mock framework) keeps tests
// easy to read: you can see exactly what the fake does.
//
// Set failWith to simulate a database failure on every call, and calls
// counts how often the store was touched.

type fakeStore struct {
	mu       sync.Mutex
	users    map[string]*model.User
	books    []*model.Book // insertion order
	reviews  []*model.Review
	nextID   int
	failWith error
	calls    int
}

func newFakeStore() *fakeStore {
	return &fakeStore{users: make(map[string]*model.User)}
}

var (
	_ repository.UserRepository   = (*fakeStore)(nil)
	_ repository.BookRepository   = (*fakeStore)(nil)
	_ repository.ReviewRepository = (*fakeStore)(nil)
)

// newTestLogger discards everything below ERROR so test output stays quiet.
func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// fail counts the call and returns the injected failure, if any.
// Callers hold f.mu.
func (f *fakeStore) fail() error {
	f.calls++
	return f.failWith
}

func (f *fakeStore) id(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s-%d", prefix, f.nextID)
}

// --- users ---

func (f *fakeStore) CreateUser(_ context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail(); err != nil {
		return err
	}
	for _, existing := range f.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return apperror.ConflictMessage("User already exists")
		}
	}
	u.ID = f.id("user")
	u.CreatedAt, u.UpdatedAt = time.Now(), time.Now()
	stored := *u
	f.users[u.ID] = &stored
	return nil
}

func (f *fakeStore) GetUserByID(_ context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail(); err != nil {
		return nil, err
	}
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	out := *u
	return &out, nil
}

func (f *fakeStore) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail(); err != nil {
		return nil, err
	}
	for _, u := range f.users {
		if strings.EqualFold(u.Email, email) {
			out := *u
			return &out, nil
		}
	}
	return nil, apperror.NotFoundMessage("User not found")
}

func (f *fakeStore) UpdatePassword(_ context.Context, id, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail(); err != nil {
		return err
	}
	u, ok := f.users[id]
	if !ok {
		return apperror.NotFound("user", id)
	}
	u.PasswordHash = hash
	u.TokenVersion++
	return nil
}

func (f *fakeStore) SetActive(_ context.Context, id string, active bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail(); err != nil {
		return err
	}
	u, ok := f.users[id]
	if !ok {
		return apperror.NotFound("user", id)
	}
	u.Active = active
	return nil
}

// --- books ---

func (f *fakeStore) CreateBook(_ context.Context, b *model.Book) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail(); err != nil {
		return err
	}
	b.ID = f.id("book")
	stored := *b
	f.books = append(f.books, &stored)
	return nil
}

func (f *fakeStore) CreateBooks(_ context.Context, books []*model.Book) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail(); err != nil {
		return err
	}
	for _, b := range books {
		b.ID = f.id("book")
		stored := *b
		f.books = append(f.books, &stored)
	}
	return nil
}

func (f *fakeStore) GetBookByID(_ context.Context, id string) (*model.Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail(); err != nil {
		return nil, err
	}
	for _, b := range f.books {
		if b.ID == id {
			out := *b
			return &out, nil
		}
	}
	return nil, apperror.NotFound("book", id)
}

func (f *fakeStore) UpdateBook(_ context.Context, book *model.Book) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail(); err != nil {
		return err
	}
	for _, b := range f.books {
		if b.ID == book.ID {
			b.Title, b.Author, b.Genre, b.Description = book.Title, book.Author, book.Genre, book.Description
			return nil
		}
	}
	return apperror.NotFound("book", book.ID)
}

func (f *fakeStore) ListBooks(_ context.Context, filter repository.BookFilter, opts repository.ListOptions) ([]model.Book, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail(); err != nil {
		return nil, 0, err
	}

	var matched []model.Book
	for i := len(f.books) - 1; i >= 0; i-- { // newest first
		if matchesAll(f.books[i], filter.All) {
			matched = append(matched, *f.books[i])
		}
	}
	return window(matched, opts), len(matched), nil
}

func matchesAll(b *model.Book, conds []repository.Condition) bool {
	for _, c := range conds {
		if !matches(b, c) {
			return false
		}
	}
	return true
}

func matches(b *model.Book, c repository.Condition) bool {
	value := map[repository.Field]string{
		repository.FieldTitle:  b.Title,
		repository.FieldAuthor: b.Author,
		repository.FieldGenre:  b.Genre,
	}[c.Field]
	switch c.Op {
	case repository.OpEquals:
		return value == c.Value
	case repository.OpContains:
		return strings.Contains(strings.ToLower(value), strings.ToLower(c.Value))
	case repository.OpAnyOf:
		for _, sub := range c.Any {
			if matches(b, sub) {
				return true
			}
		}
	}
	return false
}

func window[T any](items []T, opts repository.ListOptions) []T {
	out := []T{}
	if opts.Offset >= len(items) {
		return out
	}
	items = items[opts.Offset:]
	if opts.Limit < len(items) {
		items = items[:opts.Limit]
	}
	return append(out, items...)
}

// --- reviews ---

func (f *fakeStore) CreateReview(_ context.Context, r *model.Review) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail(); err != nil {
		return err
	}
	for _, existing := range f.reviews {
		if existing.BookID == r.BookID && existing.UserID == r.UserID {
			return apperror.ConflictMessage("You have already reviewed this book")
		}
	}
	r.ID = f.id("review")
	// Strictly increasing timestamps keep "newest first" deterministic.
	r.CreatedAt = time.Unix(int64(f.nextID), 0)
	stored := *r
	f.reviews = append(f.reviews, &stored)
	return nil
}

func (f *fakeStore) GetReviewByID(_ context.Context, id string) (*model.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail(); err != nil {
		return nil, err
	}
	for _, r := range f.reviews {
		if r.ID == id {
			out := *r
			return &out, nil
		}
	}
	return nil, apperror.NotFound("review", id)
}

func (f *fakeStore) FindUserReview(_ context.Context, bookID, userID string) (*model.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail(); err != nil {
		return nil, err
	}
	for _, r := range f.reviews {
		if r.BookID == bookID && r.UserID == userID {
			out := *r
			return &out, nil
		}
	}
	return nil, apperror.NotFoundMessage("review not found for this user and book")
}

func (f *fakeStore) UpdateReview(_ context.Context, review *model.Review) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail(); err != nil {
		return err
	}
	for _, r := range f.reviews {
		if r.ID == review.ID {
			r.Rating, r.Comment = review.Rating, review.Comment
			return nil
		}
	}
	return apperror.NotFound("review", review.ID)
}

func (f *fakeStore) DeleteReview(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail(); err != nil {
		return err
	}
	for i, r := range f.reviews {
		if r.ID == id {
			f.reviews = append(f.reviews[:i], f.reviews[i+1:]...)
			return nil
		}
	}
	return apperror.NotFound("review", id)
}

func (f *fakeStore) ReviewsForBook(_ context.Context, bookID string, opts repository.ListOptions) (*model.BookReviews, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail(); err != nil {
		return nil, err
	}

	var book *model.Book
	for _, b := range f.books {
		if b.ID == bookID {
			book = b
		}
	}
	if book == nil {
		return nil, apperror.NotFound("book", bookID)
	}

	var (
		all []model.ReviewDetail
		sum int
	)
	for _, r := range f.reviews {
		if r.BookID != bookID {
			continue
		}
		sum += r.Rating
		name := ""
		if u, ok := f.users[r.UserID]; ok {
			name = u.Name
		}
		all = append(all, model.ReviewDetail{Review: *r, User: model.UserSummary{ID: r.UserID, Name: name}})
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	avg := 0.0
	if len(all) > 0 {
		avg = float64(sum) / float64(len(all))
	}
	return &model.BookReviews{
		Book: model.BookSummary{
			ID: book.ID, Title: book.Title, Author: book.Author, Genre: book.Genre, Description: book.Description,
		},
		TotalReviews:  len(all),
		AverageRating: avg,
		Reviews:       window(all, opts),
	}, nil
}
