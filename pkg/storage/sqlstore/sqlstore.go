// Package sqlstore implements storage.Driver on top of database/sql. The
// sqlite and postgres packages open a *sql.DB and hand it to New with their
// dialect.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/papercomputeco/worldstate/pkg/storage"
)

const tableName = "extension_settings"

// Dialect captures the SQL differences between backends.
type Dialect struct {
	// Name is used in error messages (e.g. "sqlite", "postgres").
	Name string

	// Numbered placeholders ($1, $2) instead of "?".
	Numbered bool
}

var (
	SQLite   = Dialect{Name: "sqlite"}
	Postgres = Dialect{Name: "postgres", Numbered: true}
)

// rebind rewrites "?" placeholders for dialects with numbered parameters.
// It does not skip "?" inside string literals or comments, so queries passed
// to it must keep every value in a placeholder. All callers use the constant
// queries in this file.
func (d Dialect) rebind(query string) string {
	if !d.Numbered {
		return query
	}

	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Driver stores each record as a JSON document in a single key/value table.
type Driver struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

// New creates the settings table if needed and returns a driver using db.
// The driver owns db and closes it on Close.
func New(ctx context.Context, db *sql.DB, dialect Dialect) (*Driver, error) {
	ddl := `CREATE TABLE IF NOT EXISTS ` + tableName + ` (
	key        TEXT PRIMARY KEY,
	record     TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL
)`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return nil, fmt.Errorf("creating %s schema: %w", dialect.Name, err)
	}

	return &Driver{
		db:      db,
		dialect: dialect,
		now:     time.Now,
	}, nil
}

// DB exposes the underlying handle (used by tests to inspect rows).
func (d *Driver) DB() *sql.DB {
	return d.db
}

// Read returns the record stored under key.
func (d *Driver) Read(ctx context.Context, key string) (storage.Record, error) {
	query := d.dialect.rebind(`SELECT record FROM ` + tableName + ` WHERE key = ?`)

	var raw string
	err := d.db.QueryRowContext(ctx, query, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.NotFoundError{Key: key}
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s record %q: %w", d.dialect.Name, key, err)
	}

	var rec storage.Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, fmt.Errorf("decoding record %q: %w", key, err)
	}
	if rec == nil {
		rec = storage.Record{}
	}

	return rec, nil
}

// Write upserts record under key.
func (d *Driver) Write(ctx context.Context, key string, record storage.Record) error {
	if record == nil {
		return errors.New("cannot store nil record")
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encoding record %q: %w", key, err)
	}

	query := d.dialect.rebind(`INSERT INTO ` + tableName + ` (key, record, updated_at) VALUES (?, ?, ?)
ON CONFLICT (key) DO UPDATE SET record = excluded.record, updated_at = excluded.updated_at`)

	if _, err := d.db.ExecContext(ctx, query, key, string(payload), d.now().UTC()); err != nil {
		return fmt.Errorf("writing %s record %q: %w", d.dialect.Name, key, err)
	}

	return nil
}

// Close closes the database handle.
func (d *Driver) Close() error {
	return d.db.Close()
}
