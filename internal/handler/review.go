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

// ReviewService is what the review routes need from service.ReviewService.
type ReviewService interface {
	Create(ctx context.Context, bookID, userID string, rating int, comment string) (*model.Review, error)
	ListForBook(ctx context.Context, bookID string, page service.PageRequest) (*service.BookReviewsPage, error)
	Update(ctx context.Context, reviewID, callerID string, rating int, comment string) error
	Delete(ctx context.Context, reviewID, callerID string) error
}

// ReviewHandler serves a book's detail page (the book plus its reviews)
// and the review write routes.
type ReviewHandler struct {
	reviews  ReviewService
	validate Validator
	logger   *slog.Logger
}

func NewReviewHandler(reviews ReviewService, v Validator, logger *slog.Logger) *ReviewHandler {
	return &ReviewHandler{reviews: reviews, validate: v, logger: logger}
}

// bookDetailResponse is the payload of GET /books/{id}:
//
//	{"book": {...}, "averageRating": 4.25,
//	 "reviews": {"count": 2, "pagination": {"totalReviews": 4, ...}, "data": [...]}}
//
// averageRating covers ALL the book's reviews, not just the page.
type bookDetailResponse struct {
	Book          model.BookSummary `json:"book"`
	AverageRating float64           `json:"averageRating"`
	Reviews       reviewsSection    `json:"reviews"`
}

type reviewsSection struct {
	Count      int                  `json:"count"`
	Pagination reviewPagination     `json:"pagination"`
	Data       []model.ReviewDetail `json:"data"`
}

type reviewPagination struct {
	TotalReviews int `json:"totalReviews"`
	Page         int `json:"page"`
	Pages        int `json:"pages"`
	Limit        int `json:"limit"`
}

// HandleGetBook returns a book with one page of its reviews, newest first.
//
// HTTP: GET /books/{id}?page=1&limit=10
func (h *ReviewHandler) HandleGetBook(w http.ResponseWriter, r *http.Request) {
	p, err := h.reviews.ListForBook(r.Context(), chi.URLParam(r, "id"), pageFromQuery(r))
	if err != nil {
		response.Error(w, err)
		return
	}

	reviews := p.Reviews
	if reviews == nil {
		reviews = []model.ReviewDetail{}
	}
	response.OK(w, "BOOK DATA FETCHED SUCCESSFULLY", bookDetailResponse{
		Book:          p.Book,
		AverageRating: p.AverageRating,
		Reviews: reviewsSection{
			Count: len(reviews),
			Pagination: reviewPagination{
				TotalReviews: p.TotalReviews,
				Page:         p.Page.Page,
				Pages:        p.Pages,
				Limit:        p.Page.Limit,
			},
			Data: reviews,
		},
	})
}

// HandleCreate adds the caller's review of a book. A second review of the
// same book by the same user is a 409.
//
// HTTP: POST /books/{id}/review
// REQUEST BODY: {"rating": 4, "comment": "..."}
func (h *ReviewHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r.Context())
	if err != nil {
		response.Error(w, err)
		return
	}

	var req reviewRequest
	if err := decodeAndValidate(w, r, h.validate, &req); err != nil {
		response.Error(w, err)
		return
	}

	review, err := h.reviews.Create(r.Context(), chi.URLParam(r, "id"), user.ID, req.Rating, req.Comment)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.Created(w, "BOOK REVIEW SUBMITTED", review)
}

// HandleUpdate changes the caller's own review.
//
// HTTP: PUT /reviews/{id}
func (h *ReviewHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r.Context())
	if err != nil {
		response.Error(w, err)
		return
	}

	var req reviewRequest
	if err := decodeAndValidate(w, r, h.validate, &req); err != nil {
		response.Error(w, err)
		return
	}

	if err := h.reviews.Update(r.Context(), chi.URLParam(r, "id"), user.ID, req.Rating, req.Comment); err != nil {
		response.Error(w, err)
		return
	}

	response.OK(w, "BOOK REVIEW UPDATED", nil)
}

// HandleDelete removes the caller's own review.
//
// HTTP: DELETE /reviews/{id}
func (h *ReviewHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r.Context())
	if err != nil {
		response.Error(w, err)
		return
	}

	if err := h.reviews.Delete(r.Context(), chi.URLParam(r, "id"), user.ID); err != nil {
		response.Error(w, err)
		return
	}

	h.logger.Debug("review deleted via API", slog.String("userID", user.ID))
	response.OK(w, "BOOK REVIEW DELETED", nil)
}
