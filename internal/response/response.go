// Package response writes the JSON envelope every endpoint answers with and
// maps domain errors to HTTP status codes.
//
// CONSISTENT RESPONSE FORMAT:
// Every response, success or failure, has the same shape:
//
//	{"statusCode": 404, "message": "book not found with id abc", "data": {}, "success": 0}
//
// so clients always know which fields to expect. It lives in its own package
// because both the handlers and the auth middleware write it.
package response

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/book-catalog/internal/apperror"
)

// Envelope is the uniform response wrapper. Success is 1 for 2xx and 0
// otherwise.
type Envelope struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Data       any    `json:"data"`
	Success    int    `json:"success"`
}

// empty is sent as data when there is nothing to return, so "data" is
// always an object and never null.
var empty = struct{}{}

// JSON sends the envelope with the given status code.
//
// HEADER ORDER MATTERS:
// Headers and status must be set BEFORE writing the body. Once the body
// starts, the headers are on the wire and later changes are ignored.
func JSON(w http.ResponseWriter, status int, message string, data any) {
	if data == nil {
		data = empty
	}
	success := 0
	if status >= 200 && status < 300 {
		success = 1
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(Envelope{
		StatusCode: status,
		Message:    message,
		Data:       data,
		Success:    success,
	}); err != nil {
		// The status line is already sent, so all we can do is log.
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

func OK(w http.ResponseWriter, message string, data any) {
	JSON(w, http.StatusOK, message, data)
}

func Created(w http.ResponseWriter, message string, data any) {
	JSON(w, http.StatusCreated, message, data)
}

// StatusFor maps an error to its HTTP status code.
//
// errors.Is walks the whole chain via Unwrap, so a wrapped AppError still
// matches its sentinel kind. Anything without a kind is a 500.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, apperror.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperror.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, apperror.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperror.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, apperror.ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Error translates err into an envelope.
//
// NEVER expose internal error details to the client: a raw store error can
// contain SQL, file paths or other sensitive text. Internal errors and
// errors without a kind always get the generic message.
func Error(w http.ResponseWriter, err error) {
	status := StatusFor(err)

	var appErr *apperror.AppError
	if status == http.StatusInternalServerError || !errors.As(err, &appErr) {
		JSON(w, http.StatusInternalServerError, "An internal error occurred", nil)
		return
	}

	var data any
	switch {
	case len(appErr.Details) > 0:
		data = appErr.Details
	case appErr.Field != "":
		data = map[string]string{appErr.Field: appErr.Message}
	}
	JSON(w, status, appErr.Message, data)
}
