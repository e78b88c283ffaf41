package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/book-catalog/internal/model"
	"github.com/sakif/book-catalog/internal/response"
	"github.com/sakif/book-catalog/internal/service"
)

// BookService is what the book routes need from service.BookService.
type BookService interface {
	Create(ctx context.Context, fields model.BookFields, addedBy string) (*model.Book, error)
	CreateBulk(ctx context.Context, list []model.BookFields, addedBy string) ([]*model.Book, error)
	Update(ctx context.Context, id string, fields model.BookFields) error
	List(ctx context.Context, q service.BookQuery, page service.PageRequest) (*service.BookPage, error)
	Search(ctx context.Context, query string, page service.PageRequest) (*service.BookPage, error)
}

// BookHandler serves the book directory. Every route sits behind
// auth.RequireAuth.
type BookHandler struct {
	books    BookService
	validate Validator
	logger   *slog.Logger
}

func NewBookHandler(books BookService, v Validator, logger *slog.Logger) *BookHandler {
	return &BookHandler{books: books, validate: v, logger: logger}
}

// bookListResponse is the listing payload shared by GET /books and GET /search.
//
//	{"count": 2, "pagination": {"totalBooks": 12, "page": 1, "pages": 6, "limit": 2},
//	 "data": {"books": [...]}}
type bookListResponse struct {
	Count      int            `json:"count"`
	Pagination bookPagination `json:"pagination"`
	Data       bookListData   `json:"data"`
}

type bookPagination struct {
	TotalBooks int `json:"totalBooks"`
	Page       int `json:"page"`
	Pages      int `json:"pages"`
	Limit      int `json:"limit"`
}

type bookListData struct {
	Books []model.Book `json:"books"`
}

func newBookListResponse(p *service.BookPage) bookListResponse {
	books := p.Books
	if books == nil {
		books = []model.Book{}
	}
	return bookListResponse{
		Count: len(books),
		Pagination: bookPagination{
			TotalBooks: p.Total,
			Page:       p.Page.Page,
			Pages:      p.Pages,
			Limit:      p.Page.Limit,
		},
		Data: bookListData{Books: books},
	}
}

// HandleCreate adds one book on behalf of the caller.
//
// HTTP: POST /books
// REQUEST BODY: {"title": "...", "author": "...", "genre": "...", "description": "..."}
func (h *BookHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r.Context())
	if err != nil {
		response.Error(w, err)
		return
	}

	var req bookRequest
	if err := decodeAndValidate(w, r, h.validate, &req); err != nil {
		response.Error(w, err)
		return
	}

	book, err := h.books.Create(r.Context(), req.fields(), user.ID)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.Created(w, "BOOK ENTRY CREATED", book)
}

// HandleCreateBulk adds every book in the array or none of them.
//
// HTTP: POST /bulk-books
// REQUEST BODY: [{"title": ...}, {"title": ...}]
func (h *BookHandler) HandleCreateBulk(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r.Context())
	if err != nil {
		response.Error(w, err)
		return
	}

	var req bulkBooksRequest
	if err := decodeJSON(w, r, &req.Books); err != nil {
		response.Error(w, err)
		return
	}
	if err := h.validate.Validate(&req); err != nil {
		response.Error(w, err)
		return
	}

	list := make([]model.BookFields, len(req.Books))
	for i, b := range req.Books {
		list[i] = b.fields()
	}

	books, err := h.books.CreateBulk(r.Context(), list, user.ID)
	if err != nil {
		response.Error(w, err)
		return
	}

	h.logger.Info("bulk books created",
		slog.Int("count", len(books)),
		slog.String("userID", user.ID),
	)
	response.Created(w, "BOOK ENTRY CREATED", books)
}

// HandleUpdate replaces all four content fields of a book.
//
// HTTP: PUT /books/{id}
//
// URL PARAMETERS:
// chi.URLParam(r, "id") returns the {id} segment of the matched route.
func (h *BookHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req bookRequest
	if err := decodeAndValidate(w, r, h.validate, &req); err != nil {
		response.Error(w, err)
		return
	}

	if err := h.books.Update(r.Context(), chi.URLParam(r, "id"), req.fields()); err != nil {
		response.Error(w, err)
		return
	}

	response.OK(w, "BOOK DATA UPDATED", nil)
}

// HandleList returns one page of books, newest first.
//
// HTTP: GET /books?genre=Fantasy&author=tolkien&page=1&limit=10
//
// genre is an exact match; author is a case-insensitive substring match.
func (h *BookHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := h.books.List(r.Context(), service.BookQuery{
		Genre:  q.Get("genre"),
		Author: q.Get("author"),
	}, pageFromQuery(r))
	if err != nil {
		response.Error(w, err)
		return
	}

	response.OK(w, "DATA FETCHED SUCCESSFULLY", newBookListResponse(page))
}

// HandleSearch matches q against title or author.
//
// HTTP: GET /search?q=tolkien&page=1&limit=10
func (h *BookHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	page, err := h.books.Search(r.Context(), r.URL.Query().Get("q"), pageFromQuery(r))
	if err != nil {
		response.Error(w, err)
		return
	}

	response.OK(w, "DATA FETCHED SUCCESSFULLY", newBookListResponse(page))
}
