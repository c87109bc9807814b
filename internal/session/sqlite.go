package session

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/pantry-finder/internal/model"
)

// SQLite implements Store using modernc.org/sqlite.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLite{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS session_filters (
	session_id TEXT PRIMARY KEY,
	selection  TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_session_filters_updated_at ON session_filters(updated_at);
`

// Migrate implements Store.
func (s *SQLite) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Close implements Store.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Load implements Store.
func (s *SQLite) Load(ctx context.Context, id string) (model.Categories, error) {
	if err := checkID(id); err != nil {
		return model.Categories{}, err
	}
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT selection FROM session_filters WHERE session_id = ?`, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Categories{}, nil
	}
	if err != nil {
		return model.Categories{}, eris.Wrapf(err, "sqlite: load session %s", id)
	}
	return decode([]byte(raw))
}

// Save implements Store.
func (s *SQLite) Save(ctx context.Context, id string, cats model.Categories) error {
	if err := checkID(id); err != nil {
		return err
	}
	b, err := encode(cats)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO session_filters (session_id, selection, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (session_id) DO UPDATE SET selection = excluded.selection, updated_at = excluded.updated_at`,
		id, string(b), time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: save session %s", id)
}

// Delete implements Store.
func (s *SQLite) Delete(ctx context.Context, id string) error {
	if err := checkID(id); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM session_filters WHERE session_id = ?`, id)
	return eris.Wrapf(err, "sqlite: delete session %s", id)
}
