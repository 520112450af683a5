package catalog

import (
	"database/sql"
	"errors"
	"net/http"

	goerrors "github.com/goliatone/go-errors"
)

// Text codes carried by catalog errors and echoed in error responses.
const (
	// TextCodeNotFound marks a missing product.
	TextCodeNotFound = "PRODUCT_NOT_FOUND"
	// TextCodeInvalid marks rejected product input.
	TextCodeInvalid = "PRODUCT_INVALID"
	// TextCodeConflict marks a uniqueness violation.
	TextCodeConflict = "PRODUCT_CONFLICT"
	// TextCodeStore marks a backing store failure.
	TextCodeStore = "CATALOG_STORE_ERROR"
)

// ErrNotFound reports a missing product.
func ErrNotFound() *goerrors.Error {
	return goerrors.New("Product not found", goerrors.CategoryNotFound).
		WithCode(http.StatusNotFound).
		WithTextCode(TextCodeNotFound)
}

// ErrInvalid reports rejected product input.
func ErrInvalid(message string) *goerrors.Error {
	return goerrors.New(message, goerrors.CategoryValidation).
		WithCode(http.StatusBadRequest).
		WithTextCode(TextCodeInvalid)
}

// ErrConflict reports a uniqueness violation, such as a duplicate SKU.
func ErrConflict(source error, message string) *goerrors.Error {
	return categorized(source, goerrors.CategoryConflict, message).
		WithCode(http.StatusConflict).
		WithTextCode(TextCodeConflict)
}

// ErrStore wraps a failure of the backing store.
func ErrStore(source error, message string) *goerrors.Error {
	return categorized(source, goerrors.CategoryInternal, message).
		WithCode(http.StatusInternalServerError).
		WithTextCode(TextCodeStore)
}

// categorized wraps source under category. goerrors.Wrap keeps the category
// of a source that is already a *goerrors.Error, so the result is rebuilt.
func categorized(source error, category goerrors.Category, message string) *goerrors.Error {
	err := goerrors.New(message, category)
	err.Source = source
	return err
}

// HasCategory reports whether err carries the given go-errors category.
func HasCategory(err error, category goerrors.Category) bool {
	var gerr *goerrors.Error
	if errors.As(err, &gerr) {
		return gerr.Category == category
	}
	return false
}

// IsNotFound reports whether err means the record does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows) || HasCategory(err, goerrors.CategoryNotFound)
}

// IsConflict reports whether err is a uniqueness violation.
func IsConflict(err error) bool {
	return HasCategory(err, goerrors.CategoryConflict)
}

// IsValidation reports whether err is rejected input.
func IsValidation(err error) bool {
	return HasCategory(err, goerrors.CategoryValidation) || HasCategory(err, goerrors.CategoryBadInput)
}

// passthrough keeps categorized errors intact and wraps anything else as a store failure.
func passthrough(err error, message string) error {
	switch {
	case IsNotFound(err):
		return ErrNotFound()
	case IsConflict(err), IsValidation(err):
		return err
	default:
		return ErrStore(err, message)
	}
}
