package api

import (
	"net/http"
	"strconv"

	"agora/core"
)

// maxPage caps the page parameter to keep skip counts bounded
const maxPage = 100000

// ParsePaginationParams extracts page and limit query parameters. Missing or
// malformed values fall back to page 1 and defaultLimit; limit is capped at
// maxLimit.
func ParsePaginationParams(r *http.Request, defaultLimit int, maxLimit int) core.Page {
	page := 1
	limit := defaultLimit

	if p := r.URL.Query().Get("page"); p != "" {
		if parsed, err := strconv.Atoi(p); err == nil && parsed > 0 {
			page = parsed
			if page > maxPage {
				page = maxPage
			}
		}
	}

	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
			if limit > maxLimit {
				limit = maxLimit
			}
		}
	}

	return core.Page{Page: page, Limit: limit}
}
