package response

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/baechuer/member-portal/internal/domain"
)

// maxBodyBytes caps request bodies; contact messages are the largest payload.
const maxBodyBytes = 64 << 10

// DecodeJSON decodes a JSON request body into dst.
// It rejects unknown fields and multiple JSON values. An empty body is an
// invalid_json error.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := io.Reader(r.Body)
	if w != nil {
		body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	}
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return domain.ErrInvalidJSON(err)
	}

	// Disallow trailing data: {}{}
	if err := dec.Decode(&struct{}{}); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return domain.ErrInvalidJSON(err)
	}

	return domain.ErrInvalidJSON(errors.New("multiple JSON values"))
}
