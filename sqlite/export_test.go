package sqlite

import (
	"context"
	"database/sql"
)

// QueryRowContext runs a single-row query against the underlying connection.
func (db *DB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return db.db.QueryRowContext(ctx, query, args...)
}
