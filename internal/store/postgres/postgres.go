// Package postgres implements the store interfaces on top of a pgx
// connection pool. All queries run against a schema owned by the
// deployment; this package never creates or alters tables.
package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/letterboxhq/letterbox/internal/store"
)

// notFound maps pgx.ErrNoRows to the store-level sentinel so callers
// never depend on the driver.
func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}
