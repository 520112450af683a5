package storage

import (
	"context"
	"errors"
	"strings"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-storefront/catalog"
)

const pgUniqueViolation = "23505"

// NewProductRepository returns the go-repository-bun repository for products.
// Unique violations on insert and update surface as catalog conflicts.
func NewProductRepository(db *bun.DB) repository.Repository[*catalog.Product] {
	base := repository.NewRepository[*catalog.Product](db, repository.ModelHandlers[*catalog.Product]{
		NewRecord: func() *catalog.Product {
			return &catalog.Product{}
		},
		GetID: func(p *catalog.Product) uuid.UUID {
			if p == nil {
				return uuid.Nil
			}
			return p.ID
		},
		SetID: func(p *catalog.Product, id uuid.UUID) {
			p.ID = id
		},
		GetIdentifier: func() string {
			return "sku"
		},
	})
	return &conflictMapping[*catalog.Product]{Repository: base}
}

// IsUniqueViolation reports whether err is a uniqueness constraint failure
// from sqlite or postgres.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == pgUniqueViolation
	}

	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value violates unique constraint")
}

func mapWriteError(err error) error {
	if IsUniqueViolation(err) {
		return catalog.ErrConflict(err, "A product with the same SKU already exists")
	}
	return err
}

// conflictMapping translates driver uniqueness errors on the write paths the
// catalog uses.
type conflictMapping[T any] struct {
	repository.Repository[T]
}

func (r *conflictMapping[T]) Create(ctx context.Context, record T, criteria ...repository.InsertCriteria) (T, error) {
	out, err := r.Repository.Create(ctx, record, criteria...)
	return out, mapWriteError(err)
}

func (r *conflictMapping[T]) CreateTx(ctx context.Context, tx bun.IDB, record T, criteria ...repository.InsertCriteria) (T, error) {
	out, err := r.Repository.CreateTx(ctx, tx, record, criteria...)
	return out, mapWriteError(err)
}

func (r *conflictMapping[T]) Update(ctx context.Context, record T, criteria ...repository.UpdateCriteria) (T, error) {
	out, err := r.Repository.Update(ctx, record, criteria...)
	return out, mapWriteError(err)
}

func (r *conflictMapping[T]) UpdateTx(ctx context.Context, tx bun.IDB, record T, criteria ...repository.UpdateCriteria) (T, error) {
	out, err := r.Repository.UpdateTx(ctx, tx, record, criteria...)
	return out, mapWriteError(err)
}

func (r *conflictMapping[T]) Upsert(ctx context.Context, record T, criteria ...repository.UpdateCriteria) (T, error) {
	out, err := r.Repository.Upsert(ctx, record, criteria...)
	return out, mapWriteError(err)
}
