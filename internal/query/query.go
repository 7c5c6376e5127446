// Package query translates listing parameters into a storage filter, sort
// order, and page window. Pure functions; the service layer resolves author
// usernames before calling Build.
package query

import (
	"time"

	"github.com/syn-press/syn-api/internal/repository"
)

const (
	DefaultLimit   = 10
	MaxLimit       = 50
	TrendingWindow = 7 * 24 * time.Hour
)

// Params are the optional listing filters as they arrive from the query
// string, except that Author has already been resolved to an internal id.
type Params struct {
	Category string
	AuthorID string
	Search   string
	Featured bool
	Sort     string // newest | oldest | popular | trending
}

// Build composes the conjunctive filter and sort order for a listing request.
//
// "trending" is compound: popularity order plus an implicit filter to posts
// created within the trailing seven days of now. Unrecognized sort values
// silently fall back to newest.
func Build(p Params, now time.Time) (repository.PostFilter, repository.PostSort) {
	filter := repository.PostFilter{
		Category:     p.Category,
		AuthorID:     p.AuthorID,
		Search:       p.Search,
		FeaturedOnly: p.Featured,
	}

	sort := repository.SortNewest
	switch p.Sort {
	case "newest":
		sort = repository.SortNewest
	case "oldest":
		sort = repository.SortOldest
	case "popular":
		sort = repository.SortPopular
	case "trending":
		sort = repository.SortPopular
		filter.CreatedAfter = now.Add(-TrendingWindow)
	}

	return filter, sort
}

// ClampPage clamps a page number to 1 or greater.
func ClampPage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

// ClampLimit clamps a page size to [1, MaxLimit], defaulting to DefaultLimit
// when unset or negative.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// Paginate computes the offset for a (page, limit) window and whether more
// results exist past it. Total must be counted under the same filter as the
// page query.
func Paginate(page, limit, total int) (offset int, hasMore bool) {
	offset = (page - 1) * limit
	hasMore = page*limit < total
	return offset, hasMore
}
