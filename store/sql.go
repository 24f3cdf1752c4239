package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/statorhq/stator/row"
)

// dialect captures the handful of ways the supported backends diverge for
// the queries RowStore issues: placeholder syntax, and whether the driver
// supports a non-blocking row lock (SELECT ... FOR UPDATE SKIP LOCKED).
// SQLite has neither row-level locking nor SKIP LOCKED, so its dialect
// carries an empty lockClause and SQLStore falls back to an in-process
// mutex for claims (documented on SQLiteStore).
type dialect struct {
	name        string
	placeholder func(n int) string
	lockClause  string
}

var postgresDialect = dialect{
	name:        "postgres",
	placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
	lockClause:  "FOR UPDATE SKIP LOCKED",
}

var mysqlDialect = dialect{
	name:        "mysql",
	placeholder: func(int) string { return "?" },
	lockClause:  "FOR UPDATE SKIP LOCKED",
}

var sqliteDialect = dialect{
	name:        "sqlite",
	placeholder: func(int) string { return "?" },
	lockClause:  "",
}

// SQLStore is a database/sql-backed RowStore[R], shared by the Postgres,
// MySQL, and SQLite backends. It implements the store contract against a
// single table carrying the four managed columns: an id column, state,
// state_changed, and state_next. Those are the only columns the engine
// ever writes; any other columns in the table are the caller's concern and
// are read back through Scanner when reconstructing R.
type SQLStore[R row.Row] struct {
	db      *sql.DB
	dialect dialect
	table   string
	scanner Scanner[R]

	selectColumns []string
	idColumn      string
	stateColumn   string
	changedColumn string
	nextColumn    string

	// claimMu serializes ClaimReady on dialects without SKIP LOCKED
	// (sqlite). It is a no-op on Postgres/MySQL, where the database's own
	// row locks do the job across processes, not just goroutines.
	claimMu sync.Mutex
}

// SQLStoreConfig describes the table SQLStore manages.
type SQLStoreConfig[R row.Row] struct {
	// Table is the managed table's name.
	Table string
	// SelectColumns lists every column Scanner expects to read, in order.
	// It must include the id, state, state_changed, and state_next columns.
	SelectColumns []string
	// Scanner reconstructs an R from a row returned by SelectColumns.
	Scanner Scanner[R]
	// IDColumn, StateColumn, ChangedColumn, NextColumn name the four
	// managed columns. They default to "id", "state", "state_changed",
	// and "state_next".
	IDColumn, StateColumn, ChangedColumn, NextColumn string
}

func newSQLStore[R row.Row](db *sql.DB, d dialect, cfg SQLStoreConfig[R]) *SQLStore[R] {
	s := &SQLStore[R]{
		db:            db,
		dialect:       d,
		table:         cfg.Table,
		scanner:       cfg.Scanner,
		selectColumns: cfg.SelectColumns,
		idColumn:      cfg.IDColumn,
		stateColumn:   cfg.StateColumn,
		changedColumn: cfg.ChangedColumn,
		nextColumn:    cfg.NextColumn,
	}
	if s.idColumn == "" {
		s.idColumn = "id"
	}
	if s.stateColumn == "" {
		s.stateColumn = "state"
	}
	if s.changedColumn == "" {
		s.changedColumn = "state_changed"
	}
	if s.nextColumn == "" {
		s.nextColumn = "state_next"
	}
	return s
}

// ClaimReady selects up to n rows due for a check, ordered ascending by
// state_next, locking them against concurrent claims, and advances their
// state_next to now+2*lockPeriod (the visibility timeout) within the same
// transaction.
func (s *SQLStore[R]) ClaimReady(ctx context.Context, n int, lockPeriod time.Duration) ([]R, error) {
	if s.dialect.lockClause == "" {
		s.claimMu.Lock()
		defer s.claimMu.Unlock()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "store: begin claim transaction")
	}
	defer func() { _ = tx.Rollback() }()

	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s <= %s ORDER BY %s ASC LIMIT %s %s",
		strings.Join(s.selectColumns, ", "), s.table, s.nextColumn,
		s.dialect.placeholder(1), s.nextColumn, s.dialect.placeholder(2), s.dialect.lockClause)

	rows, err := tx.QueryContext(ctx, query, time.Now().UTC(), n)
	if err != nil {
		return nil, errors.Wrap(err, "store: claim select")
	}
	var claimed []R
	var ids []any
	for rows.Next() {
		r, err := s.scanner(rows.Scan)
		if err != nil {
			_ = rows.Close()
			return nil, errors.Wrap(err, "store: scan claimed row")
		}
		claimed = append(claimed, r)
		ids = append(ids, r.RowID())
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, errors.Wrap(err, "store: claim iteration")
	}
	_ = rows.Close()

	if len(claimed) == 0 {
		return nil, tx.Commit()
	}

	visibleAt := time.Now().UTC().Add(2 * lockPeriod)
	placeholders := make([]string, len(ids))
	args := make([]any, 0, len(ids)+1)
	args = append(args, visibleAt)
	for i, id := range ids {
		placeholders[i] = s.dialect.placeholder(i + 2)
		args = append(args, id)
	}
	updateQuery := fmt.Sprintf("UPDATE %s SET %s = %s WHERE %s IN (%s)",
		s.table, s.nextColumn, s.dialect.placeholder(1), s.idColumn, strings.Join(placeholders, ", "))
	if _, err := tx.ExecContext(ctx, updateQuery, args...); err != nil {
		return nil, errors.Wrap(err, "store: claim visibility-timeout update")
	}
	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "store: claim commit")
	}

	for _, r := range claimed {
		t := visibleAt
		r.SetStateNext(&t)
	}
	return claimed, nil
}

// Reschedule writes r's current state_next without touching state or
// state_changed. Model.TransitionCheck uses ApplyTransition instead; this
// exists for callers that only ever defer a row.
func (s *SQLStore[R]) Reschedule(ctx context.Context, r R) error {
	return s.ApplyTransition(ctx, []R{r})
}

// ApplyTransition writes state, state_changed, and state_next for every row
// in rows. ClaimReady also writes state_next, for the visibility timeout.
func (s *SQLStore[R]) ApplyTransition(ctx context.Context, rows []R) error {
	if len(rows) == 0 {
		return nil
	}
	query := fmt.Sprintf("UPDATE %s SET %s = %s, %s = %s, %s = %s WHERE %s = %s",
		s.table,
		s.stateColumn, s.dialect.placeholder(1),
		s.changedColumn, s.dialect.placeholder(2),
		s.nextColumn, s.dialect.placeholder(3),
		s.idColumn, s.dialect.placeholder(4))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "store: begin transition transaction")
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return errors.Wrap(err, "store: prepare transition update")
	}
	defer func() { _ = stmt.Close() }()

	for _, r := range rows {
		var next any
		if t := r.StateNext(); t != nil {
			next = t.UTC()
		}
		if _, err := stmt.ExecContext(ctx, r.State(), r.StateChanged().UTC(), next, r.RowID()); err != nil {
			return errors.Wrapf(err, "store: transition update row %v", r.RowID())
		}
	}
	return errors.Wrap(tx.Commit(), "store: transition commit")
}

// DeleteBefore deletes up to limit rows in state whose state_changed is at
// or before cutoff, returning the count removed. Rows are selected first
// and deleted by id, since DELETE ... LIMIT is not portable across
// Postgres, MySQL, and SQLite.
func (s *SQLStore[R]) DeleteBefore(ctx context.Context, state string, cutoff time.Time, limit int) (int, error) {
	selectQuery := fmt.Sprintf("SELECT %s FROM %s WHERE %s = %s AND %s <= %s LIMIT %s",
		s.idColumn, s.table, s.stateColumn, s.dialect.placeholder(1),
		s.changedColumn, s.dialect.placeholder(2), s.dialect.placeholder(3))

	rows, err := s.db.QueryContext(ctx, selectQuery, state, cutoff.UTC(), limit)
	if err != nil {
		return 0, errors.Wrap(err, "store: delete candidate select")
	}
	var ids []any
	for rows.Next() {
		var id any
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return 0, errors.Wrap(err, "store: scan delete candidate")
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return 0, errors.Wrap(err, "store: delete candidate iteration")
	}
	_ = rows.Close()

	if len(ids) == 0 {
		return 0, nil
	}

	placeholders := make([]string, len(ids))
	for i := range ids {
		placeholders[i] = s.dialect.placeholder(i + 1)
	}
	deleteQuery := fmt.Sprintf("DELETE FROM %s WHERE %s IN (%s)", s.table, s.idColumn, strings.Join(placeholders, ", "))
	res, err := s.db.ExecContext(ctx, deleteQuery, ids...)
	if err != nil {
		return 0, errors.Wrap(err, "store: delete batch")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return len(ids), nil
	}
	return int(n), nil
}

// CountPending returns the number of rows with state_next <= now.
func (s *SQLStore[R]) CountPending(ctx context.Context, now time.Time) (int, error) {
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s <= %s", s.table, s.nextColumn, s.dialect.placeholder(1))
	var count int
	if err := s.db.QueryRowContext(ctx, query, now.UTC()).Scan(&count); err != nil {
		return 0, errors.Wrap(err, "store: count pending")
	}
	return count, nil
}

// Close closes the underlying database connection pool.
func (s *SQLStore[R]) Close() error {
	return s.db.Close()
}
