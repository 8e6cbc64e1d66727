// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/noah-isme/beacon/internal/shared"
)

// RespondError maps domain errors to HTTP responses using RFC7807.
// Deliberate, recoverable errors keep their message; everything else is
// surfaced as an opaque internal failure with detail logged server-side only.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, shared.ErrEmailTaken):
		Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, shared.ErrInvalidCredentials):
		Problem(w, http.StatusUnauthorized, "Unauthorized", shared.ErrInvalidCredentials.Error())
	case errors.Is(err, shared.ErrTokenInvalid), errors.Is(err, shared.ErrTokenExpired):
		// One category for expired and forged tokens.
		Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid or expired token")
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
