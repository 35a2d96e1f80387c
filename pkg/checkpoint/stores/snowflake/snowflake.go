// Package snowflake stores checkpoints in a Snowflake table. States are kept
// base64-encoded in a VARCHAR column and written with MERGE.
package snowflake

import (
	"context"
	"database/sql"
	"strings"

	_ "github.com/snowflakedb/gosnowflake" // registers the "snowflake" driver

	"github.com/ajitpratap0/partsync/pkg/checkpoint"
	"github.com/ajitpratap0/partsync/pkg/checkpoint/stores/sqlstore"
	"github.com/ajitpratap0/partsync/pkg/config"
	"github.com/ajitpratap0/partsync/pkg/errors"
)

func init() {
	checkpoint.RegisterStore(config.StoreSnowflake, func(ctx context.Context, cfg *config.CheckpointConfig) (checkpoint.Store, error) {
		return Open(ctx, cfg.Snowflake)
	})
}

// Dialect is the Snowflake statement set.
var Dialect = sqlstore.Dialect{
	Name:  config.StoreSnowflake,
	Quote: func(ident string) string { return `"` + strings.ToUpper(ident) + `"` },
	CreateTable: `CREATE TABLE IF NOT EXISTS {table} (
	STREAM     VARCHAR(255) NOT NULL PRIMARY KEY,
	STATE      VARCHAR NOT NULL,
	UPDATED_AT TIMESTAMP_TZ NOT NULL DEFAULT CURRENT_TIMESTAMP()
)`,
	Upsert: `MERGE INTO {table} t
USING (SELECT ? AS STREAM, ? AS STATE) s
ON t.STREAM = s.STREAM
WHEN MATCHED THEN UPDATE SET t.STATE = s.STATE, t.UPDATED_AT = CURRENT_TIMESTAMP()
WHEN NOT MATCHED THEN INSERT (STREAM, STATE, UPDATED_AT) VALUES (s.STREAM, s.STATE, CURRENT_TIMESTAMP())`,
	Select:    "SELECT STATE FROM {table} WHERE STREAM = ?",
	Delete:    "DELETE FROM {table} WHERE STREAM = ?",
	List:      "SELECT STREAM FROM {table} ORDER BY STREAM",
	TextState: true,
}

// Open connects with a gosnowflake DSN
// (user:password@account/database/schema?warehouse=wh).
func Open(ctx context.Context, cfg config.SQLStoreConfig) (*sqlstore.Store, error) {
	db, err := sql.Open("snowflake", cfg.DSN)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid snowflake dsn")
	}
	store, err := sqlstore.New(ctx, db, Dialect, cfg)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}
