package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/calm3366/bond-portfolio/internal/validation"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// parseJSON decodes the request body into T. Unknown fields are rejected.
func parseJSON[T any](r *http.Request) (T, error) {
	var req T
	if r.Body == nil {
		return req, errors.New("request body is empty")
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return req, errors.New("request body is empty")
		}
		return req, fmt.Errorf("invalid JSON: %w", err)
	}
	return req, nil
}

// validationDetails returns the per-field messages of a validation error, or
// the plain error text for anything else.
func validationDetails(err error) any {
	var verr *validation.Error
	if errors.As(err, &verr) {
		return verr.Fields
	}
	return err.Error()
}
