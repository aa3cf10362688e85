package transport

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// PageDefaults carries the pagination bounds handlers clamp against
type PageDefaults struct {
	DefaultLimit int
	MaxLimit     int
}

// parsePagination reads page and limit query parameters. Page floors at 1,
// limit falls back to the default and is capped at the configured maximum.
func parsePagination(r *http.Request, defaults PageDefaults) (page, limit int) {
	page = 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			page = v
		}
	}

	limit = defaults.DefaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			limit = v
		}
	}
	if defaults.MaxLimit > 0 && limit > defaults.MaxLimit {
		limit = defaults.MaxLimit
	}

	return page, limit
}

// parseIDParam extracts and parses the {id} URL parameter
func parseIDParam(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, "id"))
}
