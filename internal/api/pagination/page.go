package pagination

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/Togather-Foundation/conflicts/internal/validation"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Page is a coerced offset page request.
type Page struct {
	Page  int
	Limit int
}

// Meta describes the page returned alongside a list.
type Meta struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int64 `json:"pages"`
}

// Coerce clamps page to at least 1 and limit to [1, MaxLimit].
func Coerce(page, limit int) Page {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 1
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return Page{Page: page, Limit: limit}
}

// Parse reads page and limit from a query string. Absent values take the
// defaults; values that are not integers are validation errors.
func Parse(values url.Values) (Page, error) {
	errs := validation.Errors{}
	page := parseInt(values, "page", 1, errs)
	limit := parseInt(values, "limit", DefaultLimit, errs)
	if err := errs.Err(); err != nil {
		return Page{}, err
	}
	return Coerce(page, limit), nil
}

func parseInt(values url.Values, key string, fallback int, errs validation.Errors) int {
	raw := strings.TrimSpace(values.Get(key))
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		errs.Add(key, key+" must be an integer")
		return fallback
	}
	return n
}

// Offset is the number of rows skipped before this page.
func (p Page) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

// TotalPages is ceil(total/limit), zero for an empty result.
func TotalPages(total int64, limit int) int64 {
	if total <= 0 || limit <= 0 {
		return 0
	}
	return (total + int64(limit) - 1) / int64(limit)
}

// Meta builds the response metadata for this page.
func (p Page) Meta(total int64) Meta {
	return Meta{
		Page:  p.Page,
		Limit: p.Limit,
		Total: total,
		Pages: TotalPages(total, p.Limit),
	}
}
