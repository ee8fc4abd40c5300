package utils

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// ErrNoRowsAffected means a guarded UPDATE matched nothing, usually because
// another writer already moved the row on.
var ErrNoRowsAffected = errors.New("no rows affected")

// ExecGuarded runs a compare-and-set style statement and fails with
// ErrNoRowsAffected when its WHERE guard matched no row.
func ExecGuarded(ctx context.Context, db sqlx.ExecerContext, query string, args ...any) error {
	result, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to execute query: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNoRowsAffected
	}
	return nil
}
