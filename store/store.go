// Package store opens the account database and applies the embedded
// migrations.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/sethvargo/go-retry"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/schema"

	auth "github.com/yapyap/go-auth"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Options struct {
	Driver         string
	DSN            string
	MaxOpenConns   int
	ConnectRetries uint64
	ConnectBackoff time.Duration
	Logger         auth.Logger
}

// Open connects to the database, retrying the initial ping with an
// exponential backoff so the service can start before its database.
func Open(ctx context.Context, opts Options) (*bun.DB, error) {
	sqlDB, err := openSQL(opts.Driver, opts.DSN)
	if err != nil {
		return nil, err
	}

	if opts.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.Driver == DriverSQLite {
		// sqlite serialises writers; one connection avoids SQLITE_BUSY.
		sqlDB.SetMaxOpenConns(1)
	}

	backoff := opts.ConnectBackoff
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}
	b := retry.WithMaxRetries(opts.ConnectRetries, retry.NewExponential(backoff))

	attempt := 0
	err = retry.Do(ctx, b, func(ctx context.Context) error {
		attempt++
		if err := sqlDB.PingContext(ctx); err != nil {
			if opts.Logger != nil {
				opts.Logger.Warn("database ping failed", "attempt", attempt, "error", err)
			}
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("connect to %s database: %w", opts.Driver, err)
	}

	return bun.NewDB(sqlDB, dialectFor(opts.Driver)), nil
}

func openSQL(driver, dsn string) (*sql.DB, error) {
	switch driver {
	case DriverSQLite:
		return sql.Open(sqliteshim.ShimName, dsn)
	case DriverPostgres:
		return sql.Open("pgx", dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

func dialectFor(driver string) schema.Dialect {
	if driver == DriverPostgres {
		return pgdialect.New()
	}
	return sqlitedialect.New()
}

func gooseDialect(db *bun.DB) string {
	if db.Dialect().Name() == dialect.PG {
		return "postgres"
	}
	return "sqlite3"
}

func prepareGoose(db *bun.DB) error {
	goose.SetBaseFS(auth.GetMigrationsFS())
	return goose.SetDialect(gooseDialect(db))
}

// Migrate applies every pending migration.
func Migrate(ctx context.Context, db *bun.DB) error {
	if err := prepareGoose(db); err != nil {
		return err
	}
	return goose.UpContext(ctx, db.DB, auth.MigrationsDir)
}

// Rollback reverts the most recent migration.
func Rollback(ctx context.Context, db *bun.DB) error {
	if err := prepareGoose(db); err != nil {
		return err
	}
	return goose.DownContext(ctx, db.DB, auth.MigrationsDir)
}

// Status logs the state of every migration.
func Status(ctx context.Context, db *bun.DB) error {
	if err := prepareGoose(db); err != nil {
		return err
	}
	return goose.StatusContext(ctx, db.DB, auth.MigrationsDir)
}
