package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// MaxBodyBytes bounds decoded request bodies.
const MaxBodyBytes = 1 << 20

// ErrorBody is the JSON envelope for every error response.
type ErrorBody struct {
	Error        string            `json:"error"`
	Fields       map[string]string `json:"fields,omitempty"`
	RequiredTier string            `json:"requiredTier,omitempty"`
	Upgrade      any               `json:"upgrade,omitempty"`
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// Error writes {"error": message}.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, ErrorBody{Error: message})
}

// ErrorWith writes a fully populated error envelope.
func ErrorWith(w http.ResponseWriter, status int, body ErrorBody) {
	JSON(w, status, body)
}

// NoContent writes 204.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// ErrInvalidBody wraps any failure to decode a request body.
var ErrInvalidBody = errors.New("invalid request body")

// Decode reads a single JSON value from the request body into dst.
func Decode(r *http.Request, dst any) error {
	if r.Body == nil {
		return fmt.Errorf("%w: body is required", ErrInvalidBody)
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, MaxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: body is required", ErrInvalidBody)
		}
		return fmt.Errorf("%w: %s", ErrInvalidBody, strings.TrimPrefix(err.Error(), "json: "))
	}
	if dec.More() {
		return fmt.Errorf("%w: unexpected trailing data", ErrInvalidBody)
	}
	return nil
}
