package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dkolesov/todovault/internal/domain"
	"github.com/dkolesov/todovault/internal/logging"
)

type apiError struct {
	Kind    string   `json:"kind"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

type errorResponse struct {
	Error apiError `json:"error"`
}

// envelope is the success response shape shared by all endpoints.
type envelope struct {
	Data    any    `json:"data"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respond(w http.ResponseWriter, status int, data any, message string) {
	writeJSON(w, status, envelope{Data: data, Message: message})
}

// statusFor maps error kinds to HTTP statuses. Ownership failures get a
// distinct 403, separate from the 401 authentication class.
func statusFor(kind domain.Kind) int {
	switch kind {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindUnauthorized, domain.KindInvalidCredentials,
		domain.KindTokenInvalid, domain.KindTokenExpired, domain.KindSessionRevoked:
		return http.StatusUnauthorized
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindNotFound:
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// writeError translates a domain error into its response. 500-class failures
// are logged with full detail but rendered as a generic internal error so
// nothing leaks to the client.
func writeError(ctx context.Context, w http.ResponseWriter, logger logging.Logger, err error) {
	var de *domain.Error
	if !errors.As(err, &de) {
		de = domain.ErrInternal
	}

	status := statusFor(de.Kind)
	if status == http.StatusInternalServerError {
		logger.Error(ctx, "request failed", "kind", de.Kind.String(), "err", err.Error())
		writeJSON(w, status, errorResponse{Error: apiError{
			Kind:    domain.KindInternal.String(),
			Message: "internal error",
		}})
		return
	}

	writeJSON(w, status, errorResponse{Error: apiError{
		Kind:    de.Kind.String(),
		Message: de.Message,
		Details: de.Details,
	}})
}

// unauthorized writes the uniform 401 used wherever the concrete failure
// mode must stay hidden from the client.
func unauthorized(w http.ResponseWriter) {
	writeJSON(w, http.StatusUnauthorized, errorResponse{Error: apiError{
		Kind:    domain.KindUnauthorized.String(),
		Message: "unauthorized",
	}})
}
