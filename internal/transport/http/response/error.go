package response

import (
	"errors"
	"net/http"

	"github.com/baechuer/member-portal/internal/domain"
	"github.com/baechuer/member-portal/internal/logger"
	pkgctx "github.com/baechuer/member-portal/internal/pkg/context"
)

type ErrorBody struct {
	Error ErrorPayload `json:"error"`
}

type ErrorPayload struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Meta      map[string]string `json:"meta,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

// Conflicts answer 400: the web client treats them as form errors.
var kindStatus = map[domain.ErrKind]int{
	domain.KindValidation:     http.StatusBadRequest,
	domain.KindConflict:       http.StatusBadRequest,
	domain.KindAuth:           http.StatusUnauthorized,
	domain.KindForbidden:      http.StatusForbidden,
	domain.KindNotFound:       http.StatusNotFound,
	domain.KindRateLimited:    http.StatusTooManyRequests,
	domain.KindInfrastructure: http.StatusServiceUnavailable,
	domain.KindDependency:     http.StatusInternalServerError,
	domain.KindInternal:       http.StatusInternalServerError,
}

// StatusFromKind maps a domain error kind to its HTTP status; unknown kinds are 500.
func StatusFromKind(kind domain.ErrKind) int {
	if s, ok := kindStatus[kind]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// WriteError renders err as {"error": {...}}. Errors outside the domain
// taxonomy are reported as internal_error and never leak their text.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, payload := describe(err)
	payload.RequestID = pkgctx.GetRequestID(r.Context())

	if status >= http.StatusInternalServerError {
		logger.WithCtx(r.Context()).Error().
			Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Str("code", payload.Code).
			Msg("request failed")
	}

	w.Header().Set("Content-Type", contentTypeJSON)
	WriteJSON(w, status, ErrorBody{Error: payload})
}

func describe(err error) (int, ErrorPayload) {
	var de *domain.Error
	if !errors.As(err, &de) {
		return http.StatusInternalServerError, ErrorPayload{Code: "internal_error", Message: "internal error"}
	}
	return StatusFromKind(de.Kind), ErrorPayload{Code: de.Code, Message: de.Message, Meta: de.Meta}
}
