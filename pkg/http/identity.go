package http

import (
	"net/http"
	"strings"

	apperrors "lendly/pkg/errors"
)

// CallerHeader names the header carrying the acting user's id. Every
// operation that depends on identity requires it.
const CallerHeader = "X-Sharer-User-Id"

// CallerID extracts the acting user's id from the request headers.
func CallerID(r *http.Request) (string, error) {
	id := strings.TrimSpace(r.Header.Get(CallerHeader))
	if id == "" {
		return "", apperrors.InvalidInput("missing " + CallerHeader + " header")
	}
	return id, nil
}
