package http

import (
	"net/http"
	"strconv"

	"lendly/pkg/config"
)

// ExtractLimitOffset reads the "size" and "from" query parameters and
// normalizes them against the configured pagination cap. Absent or malformed
// values fall back to the defaults.
func ExtractLimitOffset(r *http.Request, maxLimit int) (limit int, offset int64) {
	if raw := r.URL.Query().Get("size"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			limit = v
		}
	}
	if raw := r.URL.Query().Get("from"); raw != "" {
		if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
			offset = v
		}
	}
	return config.NormalizeLimit(limit, maxLimit), config.NormalizeOffset(offset)
}
