package handler_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sakif/book-catalog/internal/apperror"
	"github.com/sakif/book-catalog/internal/handler"
	"github.com/sakif/book-catalog/internal/model"
	"github.com/sakif/book-catalog/internal/service"
	"github.com/sakif/book-catalog/internal/validation"
)

func TestReviewHandler_HandleGetBook(t *testing.T) {
	svc := &MockReviewService{ReturnPage: &service.BookReviewsPage{
		Book:          model.BookSummary{ID: "b1", Title: "Dune"},
		AverageRating: 4.25,
		TotalReviews:  4,
		Reviews: []model.ReviewDetail{
			{Review: model.Review{ID: "r4", Rating: 3, CreatedAt: time.Unix(4, 0)}, User: model.UserSummary{ID: "u4", Name: "Dee"}},
			{Review: model.Review{ID: "r3", Rating: 4, CreatedAt: time.Unix(3, 0)}, User: model.UserSummary{ID: "u3", Name: "Cy"}},
		},
		Page:  service.PageRequest{Page: 1, Limit: 2},
		Pages: 2,
	}}
	h := handler.NewReviewHandler(svc, validation.New(), testLogger())

	rr := serve(http.MethodGet, "/books/{id}", "/books/b1?page=1&limit=2", "", caller, h.HandleGetBook)

	assert.Equal(t, http.StatusOK, rr.Code)
	env := decodeEnvelope(t, rr)
	assert.Equal(t, "BOOK DATA FETCHED SUCCESSFULLY", env.Message)

	var got struct {
		Book          model.BookSummary `json:"book"`
		AverageRating float64           `json:"averageRating"`
		Reviews       struct {
			Count      int `json:"count"`
			Pagination struct {
				TotalReviews int `json:"totalReviews"`
				Page         int `json:"page"`
				Pages        int `json:"pages"`
				Limit        int `json:"limit"`
			} `json:"pagination"`
			Data []model.ReviewDetail `json:"data"`
		} `json:"reviews"`
	}
	decodeData(t, env, &got)

	assert.Equal(t, "Dune", got.Book.Title)
	assert.Equal(t, 4.25, got.AverageRating)
	assert.Equal(t, 2, got.Reviews.Count)
	assert.Equal(t, 4, got.Reviews.Pagination.TotalReviews)
	assert.Equal(t, 2, got.Reviews.Pagination.Pages)
	assert.Equal(t, "r4", got.Reviews.Data[0].ID)
	assert.Equal(t, "Dee", got.Reviews.Data[0].User.Name)

	assert.Equal(t, "b1", svc.CapturedBookID)
	assert.Equal(t, service.PageRequest{Page: 1, Limit: 2}, svc.CapturedPage)
}

func TestReviewHandler_HandleGetBook_NoReviews(t *testing.T) {
	svc := &MockReviewService{ReturnPage: &service.BookReviewsPage{
		Book: model.BookSummary{ID: "b1"},
		Page: service.NewPageRequest(0, 0),
	}}
	h := handler.NewReviewHandler(svc, validation.New(), testLogger())

	rr := serve(http.MethodGet, "/books/{id}", "/books/b1", "", caller, h.HandleGetBook)

	assert.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, `"averageRating":0`)
	assert.Contains(t, body, `"data":[]`)
}

func TestReviewHandler_HandleGetBook_Unknown(t *testing.T) {
	svc := &MockReviewService{ReturnErr: apperror.NotFound("book", "nope")}
	h := handler.NewReviewHandler(svc, validation.New(), testLogger())

	rr := serve(http.MethodGet, "/books/{id}", "/books/nope", "", caller, h.HandleGetBook)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestReviewHandler_HandleCreate(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		svcErr     error
		wantStatus int
		wantCalls  int
	}{
		{"created", `{"rating":4,"comment":"Great"}`, nil, http.StatusCreated, 1},
		{"duplicate", `{"rating":4,"comment":"Again"}`, apperror.ConflictMessage("You have already reviewed this book"), http.StatusConflict, 1},
		{"unknown book", `{"rating":4,"comment":"x"}`, apperror.NotFound("book", "b9"), http.StatusNotFound, 1},
		{"rating too high", `{"rating":6,"comment":"x"}`, nil, http.StatusBadRequest, 0},
		{"rating missing", `{"comment":"x"}`, nil, http.StatusBadRequest, 0},
		{"rating not integer", `{"rating":4.5,"comment":"x"}`, nil, http.StatusBadRequest, 0},
		{"blank comment", `{"rating":3,"comment":"  "}`, nil, http.StatusBadRequest, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &MockReviewService{ReturnReview: &model.Review{ID: "r1"}, ReturnErr: tt.svcErr}
			h := handler.NewReviewHandler(svc, validation.New(), testLogger())

			rr := serve(http.MethodPost, "/books/{id}/review", "/books/b9/review", tt.body, caller, h.HandleCreate)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, tt.wantCalls, svc.Calls)
			if tt.wantStatus == http.StatusCreated {
				assert.Equal(t, "BOOK REVIEW SUBMITTED", decodeEnvelope(t, rr).Message)
				assert.Equal(t, "b9", svc.CapturedBookID)
				assert.Equal(t, "user-1", svc.CapturedUserID)
				assert.Equal(t, 4, svc.CapturedRating)
			}
		})
	}
}

func TestReviewHandler_HandleUpdate(t *testing.T) {
	t.Run("own review", func(t *testing.T) {
		svc := &MockReviewService{}
		h := handler.NewReviewHandler(svc, validation.New(), testLogger())

		rr := serve(http.MethodPut, "/reviews/{id}", "/reviews/r1", `{"rating":5,"comment":"Better"}`, caller, h.HandleUpdate)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "BOOK REVIEW UPDATED", decodeEnvelope(t, rr).Message)
		assert.Equal(t, "r1", svc.CapturedReviewID)
		assert.Equal(t, "user-1", svc.CapturedUserID)
	})

	t.Run("someone else's review", func(t *testing.T) {
		svc := &MockReviewService{ReturnErr: apperror.Forbidden("You can only change your own reviews")}
		h := handler.NewReviewHandler(svc, validation.New(), testLogger())

		rr := serve(http.MethodPut, "/reviews/{id}", "/reviews/r1", `{"rating":5,"comment":"x"}`, caller, h.HandleUpdate)
		assert.Equal(t, http.StatusForbidden, rr.Code)
	})
}

func TestReviewHandler_HandleDelete(t *testing.T) {
	tests := []struct {
		name       string
		svcErr     error
		wantStatus int
	}{
		{"deleted", nil, http.StatusOK},
		{"missing", apperror.NotFoundMessage("REVIEW NOT FOUND"), http.StatusNotFound},
		{"not owner", apperror.Forbidden("You can only change your own reviews"), http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &MockReviewService{ReturnErr: tt.svcErr}
			h := handler.NewReviewHandler(svc, validation.New(), testLogger())

			rr := serve(http.MethodDelete, "/reviews/{id}", "/reviews/r1", "", caller, h.HandleDelete)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, "r1", svc.CapturedReviewID)
		})
	}
}
