package sessionstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"clubworx-backend/internal/components/assert"
	"clubworx-backend/internal/components/chrono"
	"clubworx-backend/internal/scrapers/clubworx"

	_ "embed"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var Schema string

// Libsql selects either a local sqlite file or a remote libsql database.
type Libsql struct {
	File      string `json:"file"`
	Url       string `json:"url"`
	AuthToken string `json:"auth_token"`
}

func wrapOpenDB(err error) error {
	return fmt.Errorf("open db: %w", err)
}

// OpenDB opens the database and applies Schema.
func (config Libsql) OpenDB() (*sql.DB, error) {
	db, err := config.open()
	if err != nil {
		return nil, wrapOpenDB(err)
	}
	_, err = db.Exec(Schema)
	if err != nil {
		db.Close()
		return nil, wrapOpenDB(err)
	}
	return db, nil
}

func (config Libsql) open() (*sql.DB, error) {
	if config.Url != "" {
		dburl, err := url.Parse(config.Url)
		if err != nil {
			return nil, err
		}
		if config.AuthToken != "" {
			query := dburl.Query()
			query.Set("authToken", config.AuthToken)
			dburl.RawQuery = query.Encode()
		}
		return sql.Open("libsql", dburl.String())
	}

	path := config.File
	if path == "" {
		path = ":memory:"
	}
	if path != ":memory:" {
		err := os.MkdirAll(filepath.Dir(path), 0777)
		if err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// sqlite only allows a single writer
	db.SetMaxOpenConns(1)
	if path != ":memory:" {
		_, err = db.Exec("PRAGMA journal_mode=WAL")
		if err != nil {
			db.Close()
			return nil, err
		}
	}
	return db, nil
}

// SQLStore is a Store backed by the sessions table of a sqlite or libsql
// database.
type SQLStore struct {
	db    *sql.DB
	clock chrono.API
}

func NewSQLStore(db *sql.DB, clock chrono.API) SQLStore {
	assert.NotNil(db)
	assert.NotNil(clock)
	return SQLStore{db: db, clock: clock}
}

func (s SQLStore) Get(ctx context.Context, key string) (clubworx.SessionData, error) {
	var data string
	err := s.db.QueryRowContext(ctx, "select data from sessions where key = ?", key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return clubworx.SessionData{}, ErrNotFound
	}
	if err != nil {
		return clubworx.SessionData{}, fmt.Errorf("get session: %w", err)
	}
	return clubworx.ParseSessionData([]byte(data))
}

func (s SQLStore) Put(ctx context.Context, key string, data clubworx.SessionData) error {
	encoded, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("put session: %w", err)
	}
	now := s.clock.Now().Unix()
	_, err = s.db.ExecContext(
		ctx,
		`insert into sessions(key, data, created_at, updated_at) values (?, ?, ?, ?)
		on conflict (key) do update set data = excluded.data, updated_at = excluded.updated_at`,
		key, string(encoded), now, now,
	)
	if err != nil {
		return fmt.Errorf("put session: %w", err)
	}
	return nil
}

func (s SQLStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, "delete from sessions where key = ?", key)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
