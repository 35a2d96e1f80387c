// Package sqlstore implements a checkpoint store over database/sql. Dialects
// supply the statements; the mysql and snowflake stores are built on it.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/base64"
	"regexp"
	"strings"

	"github.com/ajitpratap0/partsync/pkg/checkpoint"
	"github.com/ajitpratap0/partsync/pkg/config"
	"github.com/ajitpratap0/partsync/pkg/errors"
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*){0,2}$`)

// Dialect holds the statements of one database. Every statement contains
// the placeholder {table}, replaced with the quoted table name.
type Dialect struct {
	// Name is the registered store name
	Name string
	// Quote quotes one identifier
	Quote func(ident string) string

	CreateTable string
	// Upsert takes (stream, state)
	Upsert string
	// Select takes (stream) and returns one state column
	Select string
	// Delete takes (stream)
	Delete string
	// List returns the stream column of every row ordered by stream
	List string

	// TextState stores the state base64-encoded in a text column
	TextState bool
}

// Store is a database/sql checkpoint store.
type Store struct {
	db      *sql.DB
	dialect Dialect

	upsertSQL string
	selectSQL string
	deleteSQL string
	listSQL   string
}

// QuoteTable validates a possibly qualified table name and quotes each part.
func QuoteTable(table string, quote func(string) string) (string, error) {
	if !tableNamePattern.MatchString(table) {
		return "", errors.Newf(errors.ErrorTypeConfig, "invalid checkpoint table name %q", table)
	}
	parts := strings.Split(table, ".")
	for i, p := range parts {
		parts[i] = quote(p)
	}
	return strings.Join(parts, "."), nil
}

// New wraps an open database. It pings the database and creates the table
// when cfg.CreateTable is set.
func New(ctx context.Context, db *sql.DB, dialect Dialect, cfg config.SQLStoreConfig) (*Store, error) {
	table, err := QuoteTable(cfg.Table, dialect.Quote)
	if err != nil {
		return nil, err
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxOpenConns)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to reach "+dialect.Name)
	}

	render := func(stmt string) string { return strings.ReplaceAll(stmt, "{table}", table) }
	s := &Store{
		db:        db,
		dialect:   dialect,
		upsertSQL: render(dialect.Upsert),
		selectSQL: render(dialect.Select),
		deleteSQL: render(dialect.Delete),
		listSQL:   render(dialect.List),
	}

	if cfg.CreateTable {
		if _, err := db.ExecContext(ctx, render(dialect.CreateTable)); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeQuery, "failed to create checkpoint table").
				WithDetail("table", cfg.Table)
		}
	}
	return s, nil
}

// DB returns the underlying database handle.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Name() string { return s.dialect.Name }

func (s *Store) Save(ctx context.Context, stream string, data []byte) error {
	var state interface{} = data
	if s.dialect.TextState {
		state = base64.StdEncoding.EncodeToString(data)
	}
	if _, err := s.db.ExecContext(ctx, s.upsertSQL, stream, state); err != nil {
		return errors.Wrap(err, errors.ErrorTypeQuery, "failed to save checkpoint").WithDetail("stream", stream)
	}
	return nil
}

func (s *Store) Load(ctx context.Context, stream string) ([]byte, error) {
	row := s.db.QueryRowContext(ctx, s.selectSQL, stream)

	var data []byte
	var err error
	if s.dialect.TextState {
		var text string
		if err = row.Scan(&text); err == nil {
			data, err = base64.StdEncoding.DecodeString(text)
		}
	} else {
		err = row.Scan(&data)
	}

	if errors.Is(err, sql.ErrNoRows) {
		return nil, checkpoint.NewNotFoundError(s.Name(), stream)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeQuery, "failed to load checkpoint").WithDetail("stream", stream)
	}
	return data, nil
}

func (s *Store) Delete(ctx context.Context, stream string) error {
	if _, err := s.db.ExecContext(ctx, s.deleteSQL, stream); err != nil {
		return errors.Wrap(err, errors.ErrorTypeQuery, "failed to delete checkpoint").WithDetail("stream", stream)
	}
	return nil
}

func (s *Store) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, s.listSQL)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeQuery, "failed to list checkpoints")
	}
	defer rows.Close()

	var streams []string
	for rows.Next() {
		var stream string
		if err := rows.Scan(&stream); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeQuery, "failed to read checkpoint list")
		}
		streams = append(streams, stream)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeQuery, "failed to read checkpoint list")
	}
	return streams, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
