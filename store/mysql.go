package store

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"

	"github.com/statorhq/stator/row"
)

// MySQLStore is a MySQL/MariaDB-backed RowStore[R]. MySQL 8+ and MariaDB
// 10.6+ support SELECT ... FOR UPDATE SKIP LOCKED, giving the same
// non-blocking claim semantics as PostgresStore. Older servers silently
// ignore SKIP LOCKED and fall back to blocking locks, which degrades claim
// throughput under contention but does not break correctness.
type MySQLStore[R row.Row] struct {
	*SQLStore[R]
}

// NewMySQLStore opens a connection pool to dsn (e.g.
// "user:pass@tcp(127.0.0.1:3306)/dbname?parseTime=true") and wraps it as a
// RowStore[R] over cfg.Table. parseTime=true is required so state_changed
// and state_next round-trip as time.Time rather than []byte.
func NewMySQLStore[R row.Row](ctx context.Context, dsn string, cfg SQLStoreConfig[R]) (*MySQLStore[R], error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "store: open mysql connection")
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "store: ping mysql")
	}

	return &MySQLStore[R]{SQLStore: newSQLStore(db, mysqlDialect, cfg)}, nil
}
