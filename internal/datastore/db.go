package datastore

import (
	"context"
	"database/sql"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/pgdriver"
	_ "modernc.org/sqlite"
)

func NewPostgres(dsn string, password string) *bun.DB {
	opts := []pgdriver.Option{pgdriver.WithDSN(dsn)}
	if password != "" {
		opts = append(opts, pgdriver.WithPassword(password))
	}
	sqldb := sql.OpenDB(pgdriver.NewConnector(opts...))

	return bun.NewDB(sqldb, pgdialect.New())
}

// NewSQLite opens a SQLite database behind a single connection, so every
// transaction is serialized by the pool.
func NewSQLite(dsn string) (*bun.DB, error) {
	sqldb, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	sqldb.SetMaxOpenConns(1)

	return bun.NewDB(sqldb, sqlitedialect.New()), nil
}

func CreateTables(ctx context.Context, db bun.IDB) error {
	creates := []func(context.Context, bun.IDB) error{
		CreateTableUser,
		CreateTablePrize,
		CreateTableWinEvent,
		CreateTableConfig,
	}
	for _, create := range creates {
		if err := create(ctx, db); err != nil {
			return err
		}
	}

	return nil
}
