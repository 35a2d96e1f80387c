// Package mysql stores checkpoints in a MySQL table.
package mysql

import (
	"context"
	"database/sql"

	"github.com/go-sql-driver/mysql"

	"github.com/ajitpratap0/partsync/pkg/checkpoint"
	"github.com/ajitpratap0/partsync/pkg/checkpoint/stores/sqlstore"
	"github.com/ajitpratap0/partsync/pkg/config"
	"github.com/ajitpratap0/partsync/pkg/errors"
)

func init() {
	checkpoint.RegisterStore(config.StoreMySQL, func(ctx context.Context, cfg *config.CheckpointConfig) (checkpoint.Store, error) {
		return Open(ctx, cfg.MySQL)
	})
}

// Dialect is the MySQL statement set.
var Dialect = sqlstore.Dialect{
	Name:  config.StoreMySQL,
	Quote: func(ident string) string { return "`" + ident + "`" },
	CreateTable: `CREATE TABLE IF NOT EXISTS {table} (
	stream     VARCHAR(255) NOT NULL PRIMARY KEY,
	state      LONGBLOB NOT NULL,
	updated_at TIMESTAMP(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6)
)`,
	Upsert: "INSERT INTO {table} (stream, state, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP(6)) " +
		"ON DUPLICATE KEY UPDATE state = VALUES(state), updated_at = VALUES(updated_at)",
	Select: "SELECT state FROM {table} WHERE stream = ?",
	Delete: "DELETE FROM {table} WHERE stream = ?",
	List:   "SELECT stream FROM {table} ORDER BY stream",
}

// Open parses cfg.DSN with the driver's DSN parser and opens the store.
func Open(ctx context.Context, cfg config.SQLStoreConfig) (*sqlstore.Store, error) {
	driverConfig, err := mysql.ParseDSN(cfg.DSN)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid mysql dsn")
	}
	driverConfig.ParseTime = true

	connector, err := mysql.NewConnector(driverConfig)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid mysql configuration")
	}
	db := sql.OpenDB(connector)

	store, err := sqlstore.New(ctx, db, Dialect, cfg)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}
