// Package versioned implements the effective-dated ledger pattern shared by
// pricing, exchange-rate and limit records: append-only tables where at most
// one row per partition has end_at IS NULL, that row being the current
// version. A new version is published by closing the open row and inserting
// the new one inside a single database transaction.
package versioned

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// ErrNoCurrentRecord means a partition has never been seeded with an initial
// version. Every partition is expected to be seeded at provisioning time, so
// this is an operational error, not user error.
var ErrNoCurrentRecord = errors.New("no current versioned record")

// Record is embedded by every effective-dated entity.
type Record struct {
	ID    uuid.UUID
	Start time.Time
	End   *time.Time
}

// Current reports whether this is the open (current) version.
func (r Record) Current() bool {
	return r.End == nil
}

// CloseOpen ends the currently open row of table, scoped to site when site is
// non-nil. It must run inside the same transaction as the insert of the
// superseding row, otherwise two open rows could coexist.
//
// If nothing was open but the partition has prior rows, that is a
// data-consistency bug: it is logged as a warning and the publish proceeds.
func CloseOpen(ctx context.Context, tx *sql.Tx, table string, site *string, now time.Time) error {
	query, args := closeOpenQuery(table, site, now)

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("closing open record in %s: %w", table, err)
	}

	closed, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("closing open record in %s: %w", table, err)
	}

	if closed == 0 {
		prior, err := countRows(ctx, tx, table, site)
		if err != nil {
			return err
		}

		if staleLedger(closed, prior) {
			slog.Warn("versioned table had prior records but no open one",
				"table", table, "site", siteLabel(site))
		}
	}

	return nil
}

// closeOpenQuery ends only the open row: the end_at IS NULL predicate is
// what keeps the one-open-row invariant when the insert follows in the
// same transaction.
func closeOpenQuery(table string, site *string, now time.Time) (string, []any) {
	if site != nil {
		return fmt.Sprintf("UPDATE %s SET end_at = $1 WHERE site = $2 AND end_at IS NULL", table),
			[]any{now, *site}
	}

	return fmt.Sprintf("UPDATE %s SET end_at = $1 WHERE end_at IS NULL", table), []any{now}
}

func countRowsQuery(table string, site *string) (string, []any) {
	if site != nil {
		return fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE site = $1", table), []any{*site}
	}

	return fmt.Sprintf("SELECT COUNT(*) FROM %s", table), nil
}

// staleLedger reports the data-consistency bug: the partition has history
// but no open row, so something closed a version without superseding it.
func staleLedger(closed int64, prior int) bool {
	return closed == 0 && prior > 0
}

func countRows(ctx context.Context, tx *sql.Tx, table string, site *string) (int, error) {
	query, args := countRowsQuery(table, site)

	var n int
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting records in %s: %w", table, err)
	}

	return n, nil
}

func siteLabel(site *string) string {
	if site == nil {
		return "<global>"
	}

	return *site
}
