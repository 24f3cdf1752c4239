package store

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/statorhq/stator/row"
)

// SQLiteStore is a SQLite-backed RowStore[R], intended for local
// development, single-process deployments, and tests that want the real
// SQL code path instead of store.MemoryStore.
//
// SQLite has no row-level locking and does not support SKIP LOCKED, so it
// cannot provide a cross-process non-blocking claim on its own. SQLStore
// compensates with an in-process mutex around ClaimReady
// (see SQLStore.claimMu), which is correct for a single stator process but
// does not extend to multiple processes sharing one SQLite file — that
// configuration is not supported.
type SQLiteStore[R row.Row] struct {
	*SQLStore[R]
}

// NewSQLiteStore opens path (e.g. "file:stator.db?_pragma=busy_timeout(5000)"
// or ":memory:") and wraps it as a RowStore[R] over cfg.Table.
func NewSQLiteStore[R row.Row](ctx context.Context, path string, cfg SQLStoreConfig[R]) (*SQLiteStore[R], error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "store: open sqlite connection")
	}
	// A single writer connection sidesteps SQLITE_BUSY under the
	// claimMu serialization SQLStore already applies for this dialect.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "store: ping sqlite")
	}

	return &SQLiteStore[R]{SQLStore: newSQLStore(db, sqliteDialect, cfg)}, nil
}
