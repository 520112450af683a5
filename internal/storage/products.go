package storage

import (
	"context"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"

	"github.com/goliatone/go-storefront/catalog"
)

const likeEscape = '!'

var likeReplacer = strings.NewReplacer(
	string(likeEscape), string(likeEscape)+string(likeEscape),
	"%", string(likeEscape)+"%",
	"_", string(likeEscape)+"_",
)

// likePattern turns term into a substring pattern for LOWER(column) LIKE,
// with wildcards in the term escaped. The term is folded the way the
// database's LOWER folds: fully when unicodeLower is set, ASCII only
// otherwise (SQLite).
func likePattern(term string, unicodeLower bool) string {
	if unicodeLower {
		term = strings.ToLower(term)
	} else {
		term = asciiLower(term)
	}
	return "%" + likeReplacer.Replace(term) + "%"
}

func asciiLower(s string) string {
	return strings.Map(func(r rune) rune {
		if 'A' <= r && r <= 'Z' {
			return r + ('a' - 'A')
		}
		return r
	}, s)
}

// ProductStore runs the catalog's read queries.
type ProductStore struct {
	db           bun.IDB
	unicodeLower bool
}

var _ catalog.Store = (*ProductStore)(nil)

// NewProductStore builds a ProductStore over db.
func NewProductStore(db bun.IDB) *ProductStore {
	return &ProductStore{
		db:           db,
		unicodeLower: db.Dialect().Name() == dialect.PG,
	}
}

func (s *ProductStore) selectProducts() *bun.SelectQuery {
	return s.db.NewSelect().Model((*catalog.Product)(nil))
}

func (s *ProductStore) applyFilter(q *bun.SelectQuery, filter catalog.Filter) *bun.SelectQuery {
	if filter.Category != "" {
		q = q.Where("p.category = ?", filter.Category)
	}
	if filter.Search != "" {
		pattern := likePattern(filter.Search, s.unicodeLower)
		q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				Where("LOWER(p.name) LIKE ? ESCAPE '!'", pattern).
				WhereOr("LOWER(p.description) LIKE ? ESCAPE '!'", pattern)
		})
	}
	return q
}

// Count returns the number of products matching filter.
func (s *ProductStore) Count(ctx context.Context, filter catalog.Filter) (int, error) {
	return s.applyFilter(s.selectProducts(), filter).Count(ctx)
}

// FindPage returns limit summaries after skip, ordered by sort then id.
func (s *ProductStore) FindPage(ctx context.Context, filter catalog.Filter, sort catalog.Sort, skip, limit int) ([]catalog.Summary, error) {
	direction := "ASC"
	if sort.Desc {
		direction = "DESC"
	}
	column := sort.Column
	if column == "" {
		column = catalog.SortCreatedAt
	}

	rows := make([]catalog.Summary, 0, limit)
	err := s.applyFilter(s.selectProducts().Column(catalog.SummaryColumns...), filter).
		OrderExpr("p.? "+direction, bun.Ident(column)).
		OrderExpr("p.id ASC").
		Offset(skip).
		Limit(limit).
		Scan(ctx, &rows)
	if err != nil {
		return nil, err
	}
	return normalizeSummaries(rows), nil
}

// Search ranks name matches before description matches, newest first within
// each group.
func (s *ProductStore) Search(ctx context.Context, query catalog.SearchQuery) ([]catalog.Summary, error) {
	pattern := likePattern(query.Term, s.unicodeLower)

	q := s.applyFilter(s.selectProducts().Column(catalog.SummaryColumns...), catalog.Filter{
		Category: query.Category,
		Search:   query.Term,
	})

	rows := make([]catalog.Summary, 0, query.Limit)
	err := q.
		OrderExpr("CASE WHEN LOWER(p.name) LIKE ? ESCAPE '!' THEN 0 ELSE 1 END ASC", pattern).
		OrderExpr("p.created_at DESC").
		OrderExpr("p.id ASC").
		Limit(query.Limit).
		Scan(ctx, &rows)
	if err != nil {
		return nil, err
	}
	return normalizeSummaries(rows), nil
}

// Stats aggregates totals, category counts, prices and ratings.
func (s *ProductStore) Stats(ctx context.Context, recentSince time.Time) (catalog.Stats, error) {
	var stats catalog.Stats
	var err error

	if stats.TotalProducts, err = s.selectProducts().Count(ctx); err != nil {
		return stats, err
	}
	if stats.TrendingProducts, err = s.selectProducts().Where("p.is_trending = ?", true).Count(ctx); err != nil {
		return stats, err
	}
	if stats.TopProducts, err = s.selectProducts().Where("p.is_top_product = ?", true).Count(ctx); err != nil {
		return stats, err
	}
	if stats.RecentProducts, err = s.selectProducts().Where("p.created_at >= ?", recentSince).Count(ctx); err != nil {
		return stats, err
	}

	stats.CategoryStats = []catalog.CategoryCount{}
	if err = s.selectProducts().
		ColumnExpr("p.category AS category").
		ColumnExpr("COUNT(*) AS count").
		Group("p.category").
		OrderExpr("count DESC").
		OrderExpr("p.category ASC").
		Scan(ctx, &stats.CategoryStats); err != nil {
		return stats, err
	}

	if stats.TotalProducts == 0 {
		return stats, nil
	}

	if err = s.selectProducts().
		ColumnExpr("AVG(p.price) AS avg_price").
		ColumnExpr("MIN(p.price) AS min_price").
		ColumnExpr("MAX(p.price) AS max_price").
		Scan(ctx, &stats.PriceStats); err != nil {
		return stats, err
	}

	if err = s.selectProducts().
		ColumnExpr("AVG(p.rating) AS avg_rating").
		ColumnExpr("COUNT(*) AS total_rated").
		Scan(ctx, &stats.RatingStats); err != nil {
		return stats, err
	}
	return stats, nil
}

func normalizeSummaries(rows []catalog.Summary) []catalog.Summary {
	for i := range rows {
		if rows[i].Images == nil {
			rows[i].Images = []string{}
		}
	}
	return rows
}
