package service

import (
	"math"

	"github.com/sakif/book-catalog/internal/repository"
)

// Pagination defaults shared by every listing endpoint.
const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100

	// MaxPage keeps (page-1)*limit inside int32 for any allowed limit, so the
	// store never sees an overflowed (negative) OFFSET.
	MaxPage = math.MaxInt32 / MaxLimit
)

// PageRequest is a normalised page/limit pair. Build it with NewPageRequest.
type PageRequest struct {
	Page  int
	Limit int
}

// NewPageRequest falls back to the defaults for non-positive values, caps
// limit at MaxLimit and page at MaxPage.
func NewPageRequest(page, limit int) PageRequest {
	if page < 1 {
		page = DefaultPage
	}
	if page > MaxPage {
		page = MaxPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return PageRequest{Page: page, Limit: limit}
}

// Options converts the page into the store's skip/limit window.
func (p PageRequest) Options() repository.ListOptions {
	p = NewPageRequest(p.Page, p.Limit)
	return repository.ListOptions{Limit: p.Limit, Offset: (p.Page - 1) * p.Limit}
}

// Pages is ceil(total / limit), and 0 when there is nothing to page through.
func Pages(total, limit int) int {
	if total <= 0 || limit <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}
