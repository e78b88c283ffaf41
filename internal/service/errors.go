package service

import (
	"log/slog"

	"github.com/sakif/book-catalog/internal/apperror"
)

// internalError passes domain errors (NotFound, Conflict, ...) through and
// turns anything else into an Internal error after logging it. The raw cause
// stays in the chain for logs and tests but never reaches a client.
func internalError(logger *slog.Logger, op string, err error) error {
	if apperror.IsKind(err) {
		return err
	}
	logger.Error("store failure", slog.String("op", op), slog.String("error", err.Error()))
	return apperror.Internal(op, err)
}
