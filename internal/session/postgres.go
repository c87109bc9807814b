package session

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/pantry-finder/internal/db"
	"github.com/sells-group/pantry-finder/internal/model"
)

// Postgres implements Store on a pgx pool.
type Postgres struct {
	pool    db.Pool
	closeFn func()
	save    string
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS session_filters (
	session_id TEXT PRIMARY KEY,
	selection  JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_session_filters_updated_at ON session_filters(updated_at);
`

var saveConfig = db.UpsertConfig{
	Table:        "session_filters",
	Columns:      []string{"session_id", "selection", "updated_at"},
	ConflictKeys: []string{"session_id"},
}

// NewPostgres connects to connString.
func NewPostgres(ctx context.Context, connString string, cfg db.PoolConfig) (*Postgres, error) {
	pool, err := db.Open(ctx, connString, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: open session store")
	}
	s, err := newPostgres(pool)
	if err != nil {
		pool.Close()
		return nil, err
	}
	s.closeFn = pool.Close
	return s, nil
}

func newPostgres(pool db.Pool) (*Postgres, error) {
	save, err := db.UpsertSQL(saveConfig)
	if err != nil {
		return nil, err
	}
	return &Postgres{pool: pool, save: save}, nil
}

// Migrate implements Store.
func (s *Postgres) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

// Close implements Store.
func (s *Postgres) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// Load implements Store.
func (s *Postgres) Load(ctx context.Context, id string) (model.Categories, error) {
	if err := checkID(id); err != nil {
		return model.Categories{}, err
	}
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT selection FROM session_filters WHERE session_id = $1`, id).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Categories{}, nil
	}
	if err != nil {
		return model.Categories{}, eris.Wrapf(err, "postgres: load session %s", id)
	}
	return decode(raw)
}

// Save implements Store.
func (s *Postgres) Save(ctx context.Context, id string, cats model.Categories) error {
	if err := checkID(id); err != nil {
		return err
	}
	b, err := encode(cats)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, s.save, id, b, time.Now().UTC())
	return eris.Wrapf(err, "postgres: save session %s", id)
}

// Delete implements Store.
func (s *Postgres) Delete(ctx context.Context, id string) error {
	if err := checkID(id); err != nil {
		return err
	}
	_, err := s.pool.Exec(ctx, `DELETE FROM session_filters WHERE session_id = $1`, id)
	return eris.Wrapf(err, "postgres: delete session %s", id)
}
