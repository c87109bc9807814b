// Package session persists each session's category selection between
// interactions.
package session

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/pantry-finder/internal/db"
	"github.com/sells-group/pantry-finder/internal/model"
)

// ErrInvalidID is returned for empty or oversized session ids.
var ErrInvalidID = eris.New("session: invalid session id")

const maxIDLen = 128

// Store loads and saves category selections by session id. Unknown sessions
// load an empty selection. Implementations are safe for concurrent use.
type Store interface {
	Load(ctx context.Context, id string) (model.Categories, error)
	Save(ctx context.Context, id string, cats model.Categories) error
	Delete(ctx context.Context, id string) error
	Migrate(ctx context.Context) error
	Close() error
}

// Config selects and configures a backend.
type Config struct {
	Driver      string        `mapstructure:"driver" validate:"oneof=memory sqlite postgres"`
	DatabaseURL string        `mapstructure:"database_url" validate:"required_unless=Driver memory"`
	Pool        db.PoolConfig `mapstructure:"pool"`
}

// Open creates the configured Store and migrates its schema.
func Open(ctx context.Context, cfg Config) (Store, error) {
	var (
		s   Store
		err error
	)
	switch cfg.Driver {
	case "", "memory":
		s = NewMemory()
	case "sqlite":
		s, err = NewSQLite(cfg.DatabaseURL)
	case "postgres":
		s, err = NewPostgres(ctx, cfg.DatabaseURL, cfg.Pool)
	default:
		return nil, eris.Errorf("session: unknown driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func checkID(id string) error {
	if strings.TrimSpace(id) == "" || len(id) > maxIDLen {
		return eris.Wrapf(ErrInvalidID, "session: id %q", id)
	}
	return nil
}

func encode(cats model.Categories) ([]byte, error) {
	b, err := json.Marshal(cats.Normalized())
	if err != nil {
		return nil, eris.Wrap(err, "session: encode selection")
	}
	return b, nil
}

func decode(b []byte) (model.Categories, error) {
	var cats model.Categories
	if len(b) == 0 {
		return cats, nil
	}
	if err := json.Unmarshal(b, &cats); err != nil {
		return model.Categories{}, eris.Wrap(err, "session: decode selection")
	}
	return cats, nil
}
