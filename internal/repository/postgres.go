package repository

import (
	"context"
	"io/fs"
	"slices"

	"github.com/go-faster/errors"
	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/order-pricer/db"
)

// ledgerMaxConns bounds the pool: orders are written by a single consumer.
const ledgerMaxConns = 2

// Connect opens a small pool for the ledger, with NUMERIC columns mapped to
// shopspring/decimal, and checks that the server answers.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse database url")
	}
	cfg.MaxConns = ledgerMaxConns
	cfg.AfterConnect = registerDecimal

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "ping database")
	}
	return pool, nil
}

func registerDecimal(_ context.Context, conn *pgx.Conn) error {
	pgxdecimal.Register(conn.TypeMap())
	return nil
}

// Migrate applies the embedded ledger migrations.
func Migrate(ctx context.Context, conn DB) error {
	return migrate(ctx, conn, db.Migrations)
}

func migrate(ctx context.Context, conn DB, fsys fs.FS) error {
	names, err := fs.Glob(fsys, "migrations/*.sql")
	if err != nil {
		return errors.Wrap(err, "list migrations")
	}
	if len(names) == 0 {
		return errors.New("no migrations found")
	}
	slices.Sort(names)

	for _, name := range names {
		ddl, err := fs.ReadFile(fsys, name)
		if err != nil {
			return errors.Wrapf(err, "read %s", name)
		}
		if _, err := conn.Exec(ctx, string(ddl)); err != nil {
			return errors.Wrapf(err, "apply %s", name)
		}
	}
	return nil
}
