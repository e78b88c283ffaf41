package service

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"

	"github.com/sakif/book-catalog/internal/apperror"
	"github.com/sakif/book-catalog/internal/model"
	"github.com/sakif/book-catalog/internal/repository"
)

// Ratings are whole stars. Anything outside [MinRating, MaxRating] is a
// validation error.
const (
	MinRating = 1 // lowest accepted rating
	MaxRating = 5 // highest accepted rating
)

// ReviewService is the review aggregation core: it keeps one review per
// user per book and builds the paginated review listing with its rating
// rollup.
type ReviewService struct {
	books   repository.BookRepository
	reviews repository.ReviewRepository
	logger  *slog.Logger
}

func NewReviewService(books repository.BookRepository, reviews repository.ReviewRepository, logger *slog.Logger) *ReviewService {
	return &ReviewService{books: books, reviews: reviews, logger: logger}
}

// BookReviewsPage is a book, its rounded average rating over ALL its reviews
// and one page of those reviews.
type BookReviewsPage struct {
	Book          model.BookSummary
	AverageRating float64
	TotalReviews  int
	Reviews       []model.ReviewDetail
	Page          PageRequest
	Pages         int
}

// Create adds userID's review of bookID.
//
// CHECK-THEN-ACT:
// The lookup below only produces the friendly error. Two concurrent requests
// can both pass it; the store's unique (book, user) index then rejects the
// second insert, which also surfaces as Conflict.
func (s *ReviewService) Create(ctx context.Context, bookID, userID string, rating int, comment string) (*model.Review, error) {
	comment, err := validateReview(rating, comment)
	if err != nil {
		return nil, err
	}

	if _, err := s.books.GetBookByID(ctx, bookID); err != nil {
		return nil, internalError(s.logger, "loading book for review", err)
	}

	if _, err := s.reviews.FindUserReview(ctx, bookID, userID); err == nil {
		return nil, apperror.ConflictMessage("You have already reviewed this book")
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return nil, internalError(s.logger, "checking for an existing review", err)
	}

	review := &model.Review{
		BookID:  bookID,
		UserID:  userID,
		Rating:  rating,
		Comment: comment,
	}
	if err := s.reviews.CreateReview(ctx, review); err != nil {
		return nil, internalError(s.logger, "creating review", err)
	}

	s.logger.Info("review created",
		slog.String("reviewID", review.ID),
		slog.String("bookID", bookID),
		slog.String("userID", userID),
	)
	return review, nil
}

// ListForBook runs the store's single aggregation pass and rounds the
// average to two decimals.
func (s *ReviewService) ListForBook(ctx context.Context, bookID string, page PageRequest) (*BookReviewsPage, error) {
	page = NewPageRequest(page.Page, page.Limit)

	agg, err := s.reviews.ReviewsForBook(ctx, bookID, page.Options())
	if err != nil {
		return nil, internalError(s.logger, "aggregating reviews", err)
	}

	return &BookReviewsPage{
		Book:          agg.Book,
		AverageRating: roundRating(agg.AverageRating),
		TotalReviews:  agg.TotalReviews,
		Reviews:       agg.Reviews,
		Page:          page,
		Pages:         Pages(agg.TotalReviews, page.Limit),
	}, nil
}

// Update overwrites rating and comment of the caller's own review.
func (s *ReviewService) Update(ctx context.Context, reviewID, callerID string, rating int, comment string) error {
	comment, err := validateReview(rating, comment)
	if err != nil {
		return err
	}

	review, err := s.ownedReview(ctx, reviewID, callerID)
	if err != nil {
		return err
	}

	review.Rating = rating
	review.Comment = comment
	if err := s.reviews.UpdateReview(ctx, review); err != nil {
		return internalError(s.logger, "updating review", err)
	}
	return nil
}

// Delete removes the caller's own review.
func (s *ReviewService) Delete(ctx context.Context, reviewID, callerID string) error {
	if _, err := s.ownedReview(ctx, reviewID, callerID); err != nil {
		return err
	}

	if err := s.reviews.DeleteReview(ctx, reviewID); err != nil {
		return internalError(s.logger, "deleting review", err)
	}

	s.logger.Info("review deleted", slog.String("reviewID", reviewID), slog.String("userID", callerID))
	return nil
}

func (s *ReviewService) ownedReview(ctx context.Context, reviewID, callerID string) (*model.Review, error) {
	review, err := s.reviews.GetReviewByID(ctx, reviewID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.NotFoundMessage("REVIEW NOT FOUND")
		}
		return nil, internalError(s.logger, "loading review", err)
	}
	if review.UserID != callerID {
		return nil, apperror.Forbidden("You can only change your own reviews")
	}
	return review, nil
}

func validateReview(rating int, comment string) (string, error) {
	if rating < MinRating || rating > MaxRating {
		return "", apperror.ValidationFailed("rating", "rating must be between 1 and 5")
	}
	comment = strings.TrimSpace(comment)
	if comment == "" {
		return "", apperror.ValidationFailed("comment", "comment is required")
	}
	return comment, nil
}

// roundRating rounds to two decimal places (4.256 → 4.26).
func roundRating(avg float64) float64 {
	return math.Round(avg*100) / 100
}
