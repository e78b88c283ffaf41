package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/sakif/book-catalog/internal/apperror"
	"github.com/sakif/book-catalog/internal/auth"
	"github.com/sakif/book-catalog/internal/model"
	"github.com/sakif/book-catalog/internal/service"
)

// maxBodyBytes caps every JSON request body. A bulk import of a hundred
// books with long descriptions still fits comfortably.
const maxBodyBytes = 1 << 20

// Validator is the gate every decoded payload passes before reaching a
// service. *validation.Validator implements it.
type Validator interface {
	Validate(s any) error
}

// decodeJSON reads exactly one JSON value from the body into dst.
//
// JSON DECODING:
// json.NewDecoder streams the body instead of buffering it, and
// DisallowUnknownFields turns a typo in a field name into a 400 rather than
// a silently ignored value. http.MaxBytesReader stops oversized bodies.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return apperror.ValidationFailed("body", "request body is too large")
		case errors.Is(err, io.EOF):
			return apperror.ValidationFailed("body", "request body is required")
		default:
			return apperror.ValidationFailed("body", "Invalid JSON body")
		}
	}
	if dec.More() {
		return apperror.ValidationFailed("body", "request body must hold a single JSON value")
	}
	return nil
}

// decodeAndValidate is decodeJSON followed by the validation gate.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, v Validator, dst any) error {
	if err := decodeJSON(w, r, dst); err != nil {
		return err
	}
	return v.Validate(dst)
}

// pageFromQuery reads ?page= and ?limit=. Missing or non-numeric values
// fall back to the defaults, the same as an explicit 0.
func pageFromQuery(r *http.Request) service.PageRequest {
	q := r.URL.Query()
	page, _ := strconv.Atoi(strings.TrimSpace(q.Get("page")))
	limit, _ := strconv.Atoi(strings.TrimSpace(q.Get("limit")))
	return service.NewPageRequest(page, limit)
}

// currentUser returns the caller resolved by auth.RequireAuth.
func currentUser(ctx context.Context) (*model.User, error) {
	user, ok := auth.UserFromContext(ctx)
	if !ok {
		return nil, apperror.Unauthorized("No token provided")
	}
	return user, nil
}

// =========================================================================
// REQUEST BODIES
// =========================================================================
//
// Each request type carries validate tags for go-playground/validator.
// Field names in error messages come from the json tags.

type signupRequest struct {
	Name     string `json:"name"     validate:"max=100"`
	Email    string `json:"email"    validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,max=72"`
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type changePasswordRequest struct {
	Email       string `json:"email"       validate:"required,email"`
	NewPassword string `json:"newPassword" validate:"required,max=72"`
}

type bookRequest struct {
	Title       string `json:"title"       validate:"notblank,max=300"`
	Author      string `json:"author"      validate:"notblank,max=200"`
	Genre       string `json:"genre"       validate:"notblank,max=100"`
	Description string `json:"description" validate:"notblank,max=5000"`
}

func (b bookRequest) fields() model.BookFields {
	return model.BookFields{
		Title:       b.Title,
		Author:      b.Author,
		Genre:       b.Genre,
		Description: b.Description,
	}
}

// bulkBooksRequest wraps the bare JSON array the client sends so dive can
// validate every element ("books[3].title is required"). One request holds
// at most 100 books because the whole batch is a single transaction.
type bulkBooksRequest struct {
	Books []bookRequest `json:"books" validate:"required,min=1,max=100,dive"`
}

type reviewRequest struct {
	Rating  int    `json:"rating"  validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"notblank,max=2000"`
}
