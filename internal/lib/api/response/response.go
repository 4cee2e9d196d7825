package response

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/linemk/commerce-core/internal/lib/apperr"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Kind    apperr.Kind `json:"kind"`
	Message string      `json:"message"`
}

// StatusFor maps error kinds to HTTP codes. Conflicts are reported as 400,
// matching the registration contract.
func StatusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation, apperr.KindConflict:
		return http.StatusBadRequest
	case apperr.KindUnauthenticated:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func JSON(w http.ResponseWriter, log *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("failed to encode response", slog.Any("error", err))
	}
}

// Error writes err as {kind, message}. Anything that is not an *apperr.Error
// becomes a generic internal error; the full cause is only logged.
func Error(w http.ResponseWriter, log *slog.Logger, err error) {
	var appErr *apperr.Error
	if apperr.Is(err, apperr.KindInternal) || !errors.As(err, &appErr) {
		log.Error("request failed", slog.Any("error", err))
		Fail(w, log, apperr.KindInternal, "internal server error")
		return
	}
	log.Warn("request failed", slog.String("kind", string(appErr.Kind)), slog.Any("error", err))
	Fail(w, log, appErr.Kind, appErr.Message)
}

// Fail is a shortcut for transport-level failures that never reached a service.
func Fail(w http.ResponseWriter, log *slog.Logger, kind apperr.Kind, msg string) {
	JSON(w, log, StatusFor(kind), ErrorResponse{Kind: kind, Message: msg})
}
