package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/Togather-Foundation/conflicts/internal/api/problem"
)

type envelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: true, Data: data})
}

// decodeJSON reads a single JSON object from the request body into dst.
// Fields dst does not declare are rejected so a misspelt key fails loudly.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return err
		case errors.Is(err, io.EOF):
			return fmt.Errorf("%w: empty body", problem.ErrMalformedBody)
		default:
			return fmt.Errorf("%w: %w", problem.ErrMalformedBody, err)
		}
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data after JSON object", problem.ErrMalformedBody)
	}
	return nil
}

// writeDecodeError answers a body that could not be decoded.
func writeDecodeError(w http.ResponseWriter, r *http.Request, err error, env string) {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		problem.Write(w, r, http.StatusRequestEntityTooLarge, problem.TypeBadRequest, "Request body too large", err, env,
			problem.WithDetail(fmt.Sprintf("Request bodies are limited to %d bytes", maxErr.Limit)))
		return
	}
	problem.Error(w, r, err, env)
}
