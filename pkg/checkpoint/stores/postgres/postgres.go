// Package postgres stores checkpoints in a PostgreSQL table through a pgx
// connection pool.
package postgres

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ajitpratap0/partsync/pkg/checkpoint"
	"github.com/ajitpratap0/partsync/pkg/config"
	"github.com/ajitpratap0/partsync/pkg/errors"
)

func init() {
	checkpoint.RegisterStore(config.StorePostgres, func(ctx context.Context, cfg *config.CheckpointConfig) (checkpoint.Store, error) {
		return Open(ctx, cfg.Postgres)
	})
}

// Store keeps one row per stream:
//
//	stream TEXT PRIMARY KEY, state BYTEA, updated_at TIMESTAMPTZ
type Store struct {
	pool  *pgxpool.Pool
	table string

	upsertSQL string
	selectSQL string
	deleteSQL string
	listSQL   string
}

// Open connects to cfg.DSN and, with CreateTable set, creates the table.
func Open(ctx context.Context, cfg config.SQLStoreConfig) (*Store, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid postgres dsn")
	}
	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxOpenConns) //nolint:gosec // small configured value
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to create postgres pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to reach postgres")
	}

	table := pgx.Identifier(strings.Split(cfg.Table, ".")).Sanitize()
	s := &Store{
		pool:  pool,
		table: table,
		upsertSQL: "INSERT INTO " + table + " (stream, state, updated_at) VALUES ($1, $2, now()) " +
			"ON CONFLICT (stream) DO UPDATE SET state = EXCLUDED.state, updated_at = EXCLUDED.updated_at",
		selectSQL: "SELECT state FROM " + table + " WHERE stream = $1",
		deleteSQL: "DELETE FROM " + table + " WHERE stream = $1",
		listSQL:   "SELECT stream FROM " + table + " ORDER BY stream",
	}

	if cfg.CreateTable {
		_, err := pool.Exec(ctx, "CREATE TABLE IF NOT EXISTS "+table+` (
	stream     TEXT PRIMARY KEY,
	state      BYTEA NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`)
		if err != nil {
			pool.Close()
			return nil, errors.Wrap(err, errors.ErrorTypeQuery, "failed to create checkpoint table").
				WithDetail("table", cfg.Table)
		}
	}
	return s, nil
}

func (s *Store) Name() string { return config.StorePostgres }

func (s *Store) Save(ctx context.Context, stream string, data []byte) error {
	if _, err := s.pool.Exec(ctx, s.upsertSQL, stream, data); err != nil {
		return errors.Wrap(err, errors.ErrorTypeQuery, "failed to save checkpoint").WithDetail("stream", stream)
	}
	return nil
}

func (s *Store) Load(ctx context.Context, stream string) ([]byte, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, s.selectSQL, stream).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, checkpoint.NewNotFoundError(s.Name(), stream)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeQuery, "failed to load checkpoint").WithDetail("stream", stream)
	}
	return data, nil
}

func (s *Store) Delete(ctx context.Context, stream string) error {
	if _, err := s.pool.Exec(ctx, s.deleteSQL, stream); err != nil {
		return errors.Wrap(err, errors.ErrorTypeQuery, "failed to delete checkpoint").WithDetail("stream", stream)
	}
	return nil
}

func (s *Store) List(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, s.listSQL)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeQuery, "failed to list checkpoints")
	}
	streams, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeQuery, "failed to read checkpoint list")
	}
	return streams, nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
