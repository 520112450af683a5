package catalogcache

import (
	"math"
	"strings"
	"testing"
)

func TestParseQuery_Defaults(t *testing.T) {
	got := ParseQuery(RawQuery{})
	want := QueryShape{Page: 1, Limit: 20, SortBy: "createdAt", SortOrder: Descending}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestParseQuery_Normalization(t *testing.T) {
	tests := []struct {
		name string
		raw  RawQuery
		want QueryShape
	}{
		{
			name: "unparsable numbers fall back",
			raw:  RawQuery{Page: "abc", Limit: "x"},
			want: QueryShape{Page: 1, Limit: 20, SortBy: "createdAt", SortOrder: Descending},
		},
		{
			name: "non positive numbers fall back",
			raw:  RawQuery{Page: "0", Limit: "-5"},
			want: QueryShape{Page: 1, Limit: 20, SortBy: "createdAt", SortOrder: Descending},
		},
		{
			name: "limit is capped",
			raw:  RawQuery{Page: "3", Limit: "1000"},
			want: QueryShape{Page: 3, Limit: MaxLimit, SortBy: "createdAt", SortOrder: Descending},
		},
		{
			name: "page is capped",
			raw:  RawQuery{Page: "461168601842738791", Limit: "20"},
			want: QueryShape{Page: MaxPage, Limit: 20, SortBy: "createdAt", SortOrder: Descending},
		},
		{
			name: "page beyond int falls back",
			raw:  RawQuery{Page: "99999999999999999999999"},
			want: QueryShape{Page: 1, Limit: 20, SortBy: "createdAt", SortOrder: Descending},
		},
		{
			name: "all category clears filter",
			raw:  RawQuery{Category: "all"},
			want: QueryShape{Page: 1, Limit: 20, SortBy: "createdAt", SortOrder: Descending},
		},
		{
			name: "filters and sort kept",
			raw:  RawQuery{Page: "2", Limit: "10", Category: " Electronics ", Search: "phone", SortBy: "price", SortOrder: "asc"},
			want: QueryShape{Page: 2, Limit: 10, Category: "Electronics", Search: "phone", SortBy: "price", SortOrder: Ascending},
		},
		{
			name: "unknown sort order is descending",
			raw:  RawQuery{SortOrder: "sideways"},
			want: QueryShape{Page: 1, Limit: 20, SortBy: "createdAt", SortOrder: Descending},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseQuery(tt.raw); got != tt.want {
				t.Fatalf("expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestQueryShape_NormalizeIsIdempotent(t *testing.T) {
	shape := QueryShape{Page: -1, Limit: 500, Category: " all ", Search: "  lamp ", SortOrder: 7}
	once := shape.Normalize()
	if twice := once.Normalize(); once != twice {
		t.Fatalf("normalize not idempotent: %+v vs %+v", once, twice)
	}
}

func TestQueryShape_Skip(t *testing.T) {
	if got := (QueryShape{Page: 3, Limit: 20}).Skip(); got != 40 {
		t.Fatalf("expected skip 40, got %d", got)
	}
	huge := QueryShape{Page: math.MaxInt, Limit: math.MaxInt}.Normalize()
	if got := huge.Skip(); got < 0 || got != (MaxPage-1)*MaxLimit {
		t.Fatalf("expected skip %d for the last page, got %d", (MaxPage-1)*MaxLimit, got)
	}
}

func TestQueryShape_CacheKeyDefaults(t *testing.T) {
	want := `products::page=1::limit=20::category=all::search=none::sortBy="createdAt"::sortOrder=-1`
	if got := (QueryShape{}).CacheKey(); got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestQueryShape_CacheKeyDeterministic(t *testing.T) {
	a := ParseQuery(RawQuery{Page: "2", Category: "Books", Search: "go", SortBy: "price", SortOrder: "asc"})
	b := QueryShape{Page: 2, Limit: 20, Category: "Books", Search: "go", SortBy: "price", SortOrder: Ascending}
	if a.CacheKey() != b.CacheKey() {
		t.Fatalf("equal shapes produced different keys: %s vs %s", a.CacheKey(), b.CacheKey())
	}
}

func TestQueryShape_CacheKeyDistinct(t *testing.T) {
	base := QueryShape{Page: 1, Limit: 20, Category: "Books", Search: "go", SortBy: "price", SortOrder: Ascending}

	variants := []QueryShape{
		base,
		{Page: 2, Limit: 20, Category: "Books", Search: "go", SortBy: "price", SortOrder: Ascending},
		{Page: 1, Limit: 10, Category: "Books", Search: "go", SortBy: "price", SortOrder: Ascending},
		{Page: 1, Limit: 20, Category: "Music", Search: "go", SortBy: "price", SortOrder: Ascending},
		{Page: 1, Limit: 20, Search: "go", SortBy: "price", SortOrder: Ascending},
		{Page: 1, Limit: 20, Category: "Books", Search: "rust", SortBy: "price", SortOrder: Ascending},
		{Page: 1, Limit: 20, Category: "Books", SortBy: "price", SortOrder: Ascending},
		{Page: 1, Limit: 20, Category: "Books", Search: "go", SortBy: "name", SortOrder: Ascending},
		{Page: 1, Limit: 20, Category: "Books", Search: "go", SortBy: "price", SortOrder: Descending},
	}

	seen := map[string]int{}
	for i, v := range variants {
		key := v.CacheKey()
		if prev, ok := seen[key]; ok {
			t.Fatalf("variants %d and %d share key %s", prev, i, key)
		}
		seen[key] = i
	}
}

func TestQueryShape_CacheKeyResistsSeparatorInjection(t *testing.T) {
	a := QueryShape{Category: "a::search=b"}
	b := QueryShape{Category: "a", Search: "b"}
	if a.CacheKey() == b.CacheKey() {
		t.Fatalf("separator inside category collided: %s", a.CacheKey())
	}

	none := QueryShape{Search: "none"}
	if none.CacheKey() == (QueryShape{}).CacheKey() {
		t.Fatal("literal none search must not match the no-search key")
	}

	quoted := QueryShape{Category: "all"}
	if !strings.Contains(quoted.CacheKey(), "category=all") {
		t.Fatalf("expected all category marker, got %s", quoted.CacheKey())
	}
}

func TestParseSortOrder(t *testing.T) {
	if ParseSortOrder("ASC") != Ascending {
		t.Fatal("expected case insensitive asc")
	}
	if ParseSortOrder("") != Descending {
		t.Fatal("expected descending default")
	}
	if Ascending.String() != "asc" || Descending.String() != "desc" {
		t.Fatal("unexpected sort order strings")
	}
}
