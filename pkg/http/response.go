package http

import (
	"encoding/json"
	"net/http"

	apperrors "lendly/pkg/errors"
)

// ErrorResponse is the JSON envelope for every failed request.
type ErrorResponse struct {
	Error   string         `json:"error"`
	Code    string         `json:"code,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// SuccessResponse wraps a single resource payload.
type SuccessResponse struct {
	Data any `json:"data"`
}

// PaginatedResponse wraps a list payload with its paging window.
type PaginatedResponse struct {
	Data   any   `json:"data"`
	Total  int64 `json:"total"`
	Limit  int   `json:"limit"`
	Offset int64 `json:"offset"`
}

// WriteJSON serializes v with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

// WriteError maps an error to its HTTP representation. AppErrors carry their
// own status code and machine-readable code; anything else becomes a 500 with
// the cause withheld from the caller.
func WriteError(w http.ResponseWriter, err error) error {
	appErr := apperrors.AsAppError(err)
	body := ErrorResponse{
		Error:   appErr.Message,
		Code:    appErr.Code,
		Details: appErr.Details,
	}
	if appErr.Code == apperrors.CodeInternal {
		body.Error = "internal server error"
		body.Details = nil
	}
	return WriteJSON(w, appErr.StatusCode(), body)
}

func WriteSuccess(w http.ResponseWriter, v any) error {
	return WriteJSON(w, http.StatusOK, SuccessResponse{Data: v})
}

func WriteCreated(w http.ResponseWriter, v any) error {
	return WriteJSON(w, http.StatusCreated, SuccessResponse{Data: v})
}

func WriteNoContent(w http.ResponseWriter) error {
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func WritePaginated(w http.ResponseWriter, data any, total int64, limit int, offset int64) error {
	return WriteJSON(w, http.StatusOK, PaginatedResponse{
		Data:   data,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}
