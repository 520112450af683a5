package catalog

import (
	"github.com/goliatone/go-storefront/catalogcache"
)

// Filter restricts which products a listing covers.
type Filter struct {
	// Category is matched exactly; empty matches every category.
	Category string
	// Search is a case-insensitive substring of name or description.
	Search string
}

// Sort is a column ordering. Stores break ties on id ascending.
type Sort struct {
	Column string
	Desc   bool
}

// Sortable columns.
const (
	SortCreatedAt = "created_at"
	SortPrice     = "price"
	SortName      = "name"
	SortRating    = "rating"
)

// FilterFor derives the store filter from a normalized shape.
func FilterFor(shape catalogcache.QueryShape) Filter {
	return Filter{Category: shape.Category, Search: shape.Search}
}

// SortFor maps the shape's sortBy onto a column. price, name and rating honour
// the requested order; newest and oldest fix the direction on created_at;
// anything else falls back to newest first.
func SortFor(shape catalogcache.QueryShape) Sort {
	desc := shape.SortOrder != catalogcache.Ascending
	switch shape.SortBy {
	case "price":
		return Sort{Column: SortPrice, Desc: desc}
	case "name":
		return Sort{Column: SortName, Desc: desc}
	case "rating":
		return Sort{Column: SortRating, Desc: desc}
	case "oldest":
		return Sort{Column: SortCreatedAt, Desc: false}
	default:
		return Sort{Column: SortCreatedAt, Desc: true}
	}
}

// SearchQuery parameterizes ranked search.
type SearchQuery struct {
	Term     string
	Category string
	Limit    int
}

const (
	// DefaultSearchLimit applies when the search limit is absent or invalid.
	DefaultSearchLimit = 10
	// MaxSearchLimit caps search results.
	MaxSearchLimit = 100
)
