package countydata

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	_ "github.com/jackc/pgx/stdlib"
	_ "modernc.org/sqlite"
)

// Connect opens a database of the given dialect and wraps it in a Dialect.
//
// The dsn is passed to the driver: a clickhouse:// URL, a postgres connection string or a sqlite file
// name (":memory:" for an in-memory database).
func Connect(dialect, dsn string) (*Dialect, error) {
	var (
		db *sql.DB
		e  error
	)

	switch strings.ToLower(dialect) {
	case ch:
		db, e = connectCH(dsn)
	case pg:
		db, e = sql.Open("pgx", dsn)
	case sl:
		if db, e = sql.Open("sqlite", dsn); e == nil {
			// each connection to ":memory:" is a separate database
			db.SetMaxOpenConns(1)
		}
	default:
		return nil, fmt.Errorf("unsupported dialect %s", dialect)
	}

	if e != nil {
		return nil, e
	}

	if e = db.Ping(); e != nil {
		_ = db.Close()
		return nil, e
	}

	return NewDialect(dialect, db)
}

func connectCH(dsn string) (*sql.DB, error) {
	opts, e := clickhouse.ParseDSN(dsn)
	if e != nil {
		return nil, e
	}

	if opts.DialTimeout == 0 {
		opts.DialTimeout = 300 * time.Second
	}

	if opts.Compression == nil {
		opts.Compression = &clickhouse.Compression{Method: clickhouse.CompressionLZ4}
	}

	return clickhouse.OpenDB(opts), nil
}
