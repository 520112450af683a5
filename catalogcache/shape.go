package catalogcache

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/goliatone/go-storefront/cache"
)

const (
	// DefaultPage is used when the page is missing, unparsable or below 1.
	DefaultPage = 1
	// DefaultLimit is used when the page size is missing, unparsable or below 1.
	DefaultLimit = 20
	// MaxLimit caps the page size.
	MaxLimit = 100
	// MaxPage caps the page number so page*limit stays within int.
	MaxPage = math.MaxInt / MaxLimit
	// DefaultSortBy orders by creation time.
	DefaultSortBy = "createdAt"
	// AllCategories disables the category filter.
	AllCategories = "all"
	// NoSearch marks the absence of a search term in keys.
	NoSearch = "none"

	keyPrefix = "products"
)

// SortOrder is the listing direction, 1 ascending and -1 descending.
type SortOrder int

const (
	Ascending  SortOrder = 1
	Descending SortOrder = -1
)

// ParseSortOrder maps "asc" to Ascending and anything else to Descending.
func ParseSortOrder(raw string) SortOrder {
	if strings.EqualFold(strings.TrimSpace(raw), "asc") {
		return Ascending
	}
	return Descending
}

// String returns "asc" or "desc".
func (o SortOrder) String() string {
	if o == Ascending {
		return "asc"
	}
	return "desc"
}

// RawQuery carries listing parameters exactly as received.
type RawQuery struct {
	Page      string
	Limit     string
	Category  string
	Search    string
	SortBy    string
	SortOrder string
}

// QueryShape is the normalized tuple of pagination, filter and sort
// parameters. Two shapes with equal fields share a cache entry; any
// difference yields a different key.
type QueryShape struct {
	Page      int
	Limit     int
	Category  string
	Search    string
	SortBy    string
	SortOrder SortOrder
}

// ParseQuery normalizes raw listing parameters into a QueryShape.
func ParseQuery(raw RawQuery) QueryShape {
	return QueryShape{
		Page:      parsePositive(raw.Page, 0),
		Limit:     parsePositive(raw.Limit, 0),
		Category:  raw.Category,
		Search:    raw.Search,
		SortBy:    raw.SortBy,
		SortOrder: ParseSortOrder(raw.SortOrder),
	}.Normalize()
}

func parsePositive(raw string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fallback
	}
	return n
}

// Normalize applies defaults and bounds. It is idempotent.
func (q QueryShape) Normalize() QueryShape {
	if q.Page < 1 {
		q.Page = DefaultPage
	}
	if q.Page > MaxPage {
		q.Page = MaxPage
	}
	if q.Limit < 1 {
		q.Limit = DefaultLimit
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}

	q.Category = strings.TrimSpace(q.Category)
	if q.Category == AllCategories {
		q.Category = ""
	}

	q.Search = strings.TrimSpace(q.Search)

	q.SortBy = strings.TrimSpace(q.SortBy)
	if q.SortBy == "" {
		q.SortBy = DefaultSortBy
	}

	if q.SortOrder != Ascending {
		q.SortOrder = Descending
	}
	return q
}

// HasCategory reports whether the shape filters by category.
func (q QueryShape) HasCategory() bool {
	return q.Category != ""
}

// HasSearch reports whether the shape carries a search term.
func (q QueryShape) HasSearch() bool {
	return q.Search != ""
}

// Skip is the number of records before the requested page.
func (q QueryShape) Skip() int {
	return (q.Page - 1) * q.Limit
}

// CacheKey builds the deterministic key for the normalized shape. User
// supplied strings are quoted so separators inside them cannot make two
// shapes collide, and a literal "none" search never matches the no-search key.
func (q QueryShape) CacheKey() string {
	q = q.Normalize()

	category := AllCategories
	if q.HasCategory() {
		category = strconv.Quote(q.Category)
	}
	search := NoSearch
	if q.HasSearch() {
		search = strconv.Quote(q.Search)
	}

	return strings.Join([]string{
		keyPrefix,
		fmt.Sprintf("page=%d", q.Page),
		fmt.Sprintf("limit=%d", q.Limit),
		"category=" + category,
		"search=" + search,
		"sortBy=" + strconv.Quote(q.SortBy),
		fmt.Sprintf("sortOrder=%d", q.SortOrder),
	}, cache.KeySeparator)
}

var _ cache.Keyer = QueryShape{}
