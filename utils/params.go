package utils

import (
	"net/http"
	"strconv"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 50
)

// Page is a limit/skip window parsed from ?limit=&skip=.
type Page struct {
	Limit int64
	Skip  int64
}

// ParsePage clamps limit to (0, 50] with a default of 20; negative skips become 0.
func ParsePage(r *http.Request) Page {
	q := r.URL.Query()

	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit <= 0 || limit > maxPageLimit {
		limit = defaultPageLimit
	}
	skip, _ := strconv.Atoi(q.Get("skip"))
	if skip < 0 {
		skip = 0
	}
	return Page{Limit: int64(limit), Skip: int64(skip)}
}
