package storage

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-storefront/catalog"
)

type productIndex struct {
	name    string
	columns []string
}

var productIndexes = []productIndex{
	{"idx_products_category", []string{"category"}},
	{"idx_products_price", []string{"price"}},
	{"idx_products_name", []string{"name"}},
	{"idx_products_is_trending", []string{"is_trending"}},
	{"idx_products_is_top_product", []string{"is_top_product"}},
	{"idx_products_created_at", []string{"created_at"}},
	{"idx_products_category_price", []string{"category", "price"}},
}

// Migrate creates the products table and its indexes when missing.
func Migrate(ctx context.Context, db bun.IDB) error {
	if _, err := db.NewCreateTable().
		Model((*catalog.Product)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "create products table")
	}

	for _, idx := range productIndexes {
		if _, err := db.NewCreateIndex().
			Model((*catalog.Product)(nil)).
			Index(idx.name).
			Column(idx.columns...).
			IfNotExists().
			Exec(ctx); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "create index "+idx.name)
		}
	}
	return nil
}
