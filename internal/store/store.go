// Package store provides SQLite-backed persistence for notebooks, notes,
// and API keys.
package store

import (
	"crypto/rand"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Paul-Bonneville-Labs/neemee-mcp/internal/auth"
	"github.com/Paul-Bonneville-Labs/neemee-mcp/internal/notebook"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS notebooks (
	id          TEXT PRIMARY KEY,
	tenant_id   TEXT NOT NULL,
	name        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	created_at  DATETIME NOT NULL,
	updated_at  DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_notebooks_tenant ON notebooks(tenant_id);

CREATE TABLE IF NOT EXISTS notes (
	id          TEXT PRIMARY KEY,
	tenant_id   TEXT NOT NULL,
	title       TEXT NOT NULL DEFAULT '',
	content     TEXT NOT NULL,
	source_url  TEXT NOT NULL DEFAULT '',
	notebook_id TEXT REFERENCES notebooks(id) ON DELETE SET NULL,
	frontmatter TEXT NOT NULL DEFAULT '{}',
	tags        TEXT NOT NULL DEFAULT '[]',
	created_at  DATETIME NOT NULL,
	updated_at  DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_notes_tenant ON notes(tenant_id);
CREATE INDEX IF NOT EXISTS idx_notes_notebook ON notes(notebook_id);

CREATE TABLE IF NOT EXISTS api_keys (
	id           TEXT PRIMARY KEY,
	tenant_id    TEXT NOT NULL,
	key_hash     TEXT NOT NULL,
	scopes       TEXT NOT NULL DEFAULT '[]',
	expires_at   DATETIME,
	last_used_at DATETIME,
	created_at   DATETIME NOT NULL
);
`

// Store wraps a sql.DB with tenant-scoped persistence operations.
type Store struct {
	conn *sql.DB
}

// Compile-time checks: the store serves the resolver and the authenticator.
var (
	_ notebook.Lookup = (*Store)(nil)
	_ auth.KeyStore   = (*Store)(nil)
)

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*Store, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	return &Store{conn: conn}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

const idAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// NewID returns a fresh identifier in the 25-character "cm"-prefixed
// lowercase-alphanumeric token format.
func NewID() string {
	buf := make([]byte, 23)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	out := make([]byte, 0, 25)
	out = append(out, 'c', 'm')
	for _, b := range buf {
		out = append(out, idAlphabet[int(b)%len(idAlphabet)])
	}
	return string(out)
}
