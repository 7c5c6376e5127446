package query

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/syn-press/syn-api/internal/repository"
)

func TestBuildSortModes(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		sort       string
		wantSort   repository.PostSort
		wantWindow bool
	}{
		{"newest", "newest", repository.SortNewest, false},
		{"oldest", "oldest", repository.SortOldest, false},
		{"popular", "popular", repository.SortPopular, false},
		{"trending adds time window", "trending", repository.SortPopular, true},
		{"absent falls back to newest", "", repository.SortNewest, false},
		{"unrecognized falls back to newest", "loudest", repository.SortNewest, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filter, sort := Build(Params{Sort: tt.sort}, now)
			assert.Equal(t, tt.wantSort, sort)
			if tt.wantWindow {
				assert.Equal(t, now.Add(-TrendingWindow), filter.CreatedAfter)
			} else {
				assert.True(t, filter.CreatedAfter.IsZero())
			}
		})
	}
}

func TestBuildFiltersAreConjunctive(t *testing.T) {
	now := time.Now()
	filter, sort := Build(Params{
		Category: "tech",
		AuthorID: "u1",
		Search:   "golang",
		Featured: true,
		Sort:     "trending",
	}, now)

	assert.Equal(t, "tech", filter.Category)
	assert.Equal(t, "u1", filter.AuthorID)
	assert.Equal(t, "golang", filter.Search)
	assert.True(t, filter.FeaturedOnly)
	assert.False(t, filter.CreatedAfter.IsZero(), "trending window narrows the same set")
	assert.Equal(t, repository.SortPopular, sort)
}

func TestClampPage(t *testing.T) {
	assert.Equal(t, 1, ClampPage(0))
	assert.Equal(t, 1, ClampPage(-3))
	assert.Equal(t, 1, ClampPage(1))
	assert.Equal(t, 7, ClampPage(7))
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, DefaultLimit, ClampLimit(0))
	assert.Equal(t, DefaultLimit, ClampLimit(-1))
	assert.Equal(t, 1, ClampLimit(1))
	assert.Equal(t, MaxLimit, ClampLimit(999))
	assert.Equal(t, 25, ClampLimit(25))
}

func TestPaginate(t *testing.T) {
	tests := []struct {
		name        string
		page, limit int
		total       int
		wantOffset  int
		wantHasMore bool
	}{
		{"first page of many", 1, 10, 25, 0, true},
		{"middle page", 2, 10, 25, 10, true},
		{"last short page", 3, 10, 25, 20, false},
		{"exactly full last page", 2, 10, 20, 10, false},
		{"page past the end", 5, 10, 25, 40, false},
		{"empty set", 1, 10, 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			offset, hasMore := Paginate(tt.page, tt.limit, tt.total)
			assert.Equal(t, tt.wantOffset, offset)
			assert.Equal(t, tt.wantHasMore, hasMore)
		})
	}
}

// Walking pages from 1 until hasMore is false covers the whole set exactly
// once: offsets tile [0, total) with no overlap and no gap.
func TestPaginateCoversSetExactly(t *testing.T) {
	for _, total := range []int{0, 1, 9, 10, 11, 25, 100} {
		limit := 10
		covered := 0
		for page := 1; ; page++ {
			offset, hasMore := Paginate(page, limit, total)
			assert.Equal(t, covered, offset, "total=%d page=%d", total, page)
			remaining := total - offset
			if remaining > limit {
				covered += limit
			} else if remaining > 0 {
				covered += remaining
			}
			if !hasMore {
				break
			}
		}
		assert.Equal(t, total, covered, "total=%d", total)
	}
}
