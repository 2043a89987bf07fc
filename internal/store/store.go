// Package store is the persistence layer: one repository per entity, all of
// them bound to a transaction opened by Store.WithTx. SQLite (modernc) is the
// default backend; a postgres:// DSN switches to pgx.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// sqlitePragmas are applied to every pooled connection. WAL lets readers
// proceed while a writer holds the lock and busy_timeout makes writers wait
// instead of failing with SQLITE_BUSY.
const sqlitePragmas = "_pragma=foreign_keys(1)" +
	"&_pragma=busy_timeout(5000)" +
	"&_pragma=journal_mode(WAL)" +
	"&_pragma=synchronous(NORMAL)" +
	"&_time_format=sqlite"

// Write transactions take the lock up front so two of them cannot deadlock
// on upgrade. Read transactions stay deferred on query_only connections.
const (
	sqliteWriter = "&_txlock=immediate"
	sqliteReader = "&_txlock=deferred&_pragma=query_only(1)"
)

type dialect uint8

const (
	dialectSQLite dialect = iota
	dialectPostgres
)

func (d dialect) String() string {
	if d == dialectPostgres {
		return "postgres"
	}
	return "sqlite"
}

// rebind rewrites ? placeholders to $n for postgres.
func (d dialect) rebind(query string) string {
	if d != dialectPostgres || !strings.Contains(query, "?") {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// Store owns the connection pools. It is opened once at startup and closed
// at shutdown; all data access goes through WithTx or View.
type Store struct {
	db      *sql.DB
	ro      *sql.DB // read-only pool; the same as db on postgres
	dialect dialect
	logger  *slog.Logger
}

// Open connects to dsn. A postgres:// or postgresql:// URL selects pgx;
// anything else is treated as a SQLite file path (an optional sqlite://
// prefix is stripped) whose directory is created if missing.
func Open(ctx context.Context, dsn string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	d, driver, source, err := parseDSN(dsn)
	if err != nil {
		return nil, err
	}
	if d == dialectPostgres {
		db, err := openPool(ctx, d, driver, source, 0)
		if err != nil {
			return nil, err
		}
		return &Store{db: db, ro: db, dialect: d, logger: logger}, nil
	}

	// The writer is pinged first so journal_mode is switched to WAL before
	// any query_only connection exists.
	db, err := openPool(ctx, d, driver, source+sqliteWriter, 4)
	if err != nil {
		return nil, err
	}
	ro, err := openPool(ctx, d, driver, source+sqliteReader, 8)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, ro: ro, dialect: d, logger: logger}, nil
}

func openPool(ctx context.Context, d dialect, driver, source string, maxConns int) (*sql.DB, error) {
	db, err := sql.Open(driver, source)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d, err)
	}
	if maxConns > 0 {
		db.SetMaxOpenConns(maxConns)
		db.SetMaxIdleConns(maxConns)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", d, err)
	}
	return db, nil
}

func parseDSN(dsn string) (dialect, string, string, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return dialectPostgres, "pgx", dsn, nil
	}
	path := strings.TrimPrefix(strings.TrimPrefix(dsn, "sqlite://"), "sqlite:")
	if path == "" {
		return 0, "", "", fmt.Errorf("store: empty database path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, "", "", err
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return dialectSQLite, "sqlite", "file:" + path + sep + sqlitePragmas, nil
}

// Close closes the underlying connection pools.
func (s *Store) Close() error {
	if s.ro != s.db {
		_ = s.ro.Close()
	}
	return s.db.Close()
}

// Dialect names the active backend ("sqlite" or "postgres").
func (s *Store) Dialect() string { return s.dialect.String() }

// WithTx runs fn inside one transaction. It commits when fn returns nil and
// rolls back on error or panic; panics are re-raised after rollback.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx *Tx) error) error {
	return s.run(ctx, s.db, nil, fn)
}

// View runs fn inside a read-only transaction. On SQLite it never takes the
// write lock, so views proceed while a WithTx transaction is open. Writes
// attempted through tx fail.
func (s *Store) View(ctx context.Context, fn func(ctx context.Context, tx *Tx) error) error {
	var opts *sql.TxOptions
	if s.dialect == dialectPostgres {
		opts = &sql.TxOptions{ReadOnly: true}
	}
	return s.run(ctx, s.ro, opts, fn)
}

func (s *Store) run(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn func(ctx context.Context, tx *Tx) error) (err error) {
	sqlTx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = sqlTx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := sqlTx.Rollback(); rbErr != nil {
				s.logger.WarnContext(ctx, "rollback failed", "err", rbErr)
			}
			return
		}
		if cErr := sqlTx.Commit(); cErr != nil {
			err = fmt.Errorf("commit: %w", classify(cErr))
		}
	}()
	return fn(ctx, &Tx{c: conn{q: sqlTx, d: s.dialect}})
}

// Tx hands out repositories bound to one open transaction.
type Tx struct {
	c conn
}

func (t *Tx) Users() *Users { return &Users{c: t.c} }
func (t *Tx) Posts() *Posts { return &Posts{c: t.c} }
func (t *Tx) Comments() *Comments { return &Comments{c: t.c} }
func (t *Tx) Categories() *Categories { return &Categories{c: t.c} }
func (t *Tx) Tags() *Tags { return &Tags{c: t.c} }
func (t *Tx) Tasks() *Tasks { return &Tasks{c: t.c} }
func (t *Tx) Products() *Products { return &Products{c: t.c} }
func (t *Tx) Orders() *Orders { return &Orders{c: t.c} }
