package response

import (
	"encoding/json"
	"net/http"

	"github.com/baechuer/member-portal/internal/logger"
)

const contentTypeJSON = "application/json; charset=utf-8"

// Envelope wraps successful payloads as {"data": ...}.
type Envelope struct {
	Data any `json:"data"`
}

// Message is the data of an acknowledgement with no resource attached.
type Message struct {
	Message string `json:"message"`
}

// WriteJSON marshals v before touching the response, so an encoding failure
// becomes a bare 500 instead of a truncated body. A Content-Type already set
// by the caller is kept.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		lg := logger.Component("response")
		lg.Error().Err(err).Int("status", status).Msg("encode response")
		http.Error(w, `{"error":{"code":"internal_error","message":"internal error"}}`, http.StatusInternalServerError)
		return
	}
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", contentTypeJSON)
	}
	w.WriteHeader(status)
	_, _ = w.Write(append(b, '\n'))
}

func OK(w http.ResponseWriter, data any)      { WriteJSON(w, http.StatusOK, Envelope{Data: data}) }
func Created(w http.ResponseWriter, data any) { WriteJSON(w, http.StatusCreated, Envelope{Data: data}) }

// Ack answers 200 with {"data": {"message": msg}}.
func Ack(w http.ResponseWriter, msg string) { OK(w, Message{Message: msg}) }
