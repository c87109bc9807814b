package refdata

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Refresher reloads reference data in the background so edits to the tables
// are picked up without a restart. Unchanged files are not reparsed. As a
// dataset source it serves the last good dataset, so a broken edit never
// interrupts searches.
type Refresher struct {
	loader   *Loader
	interval time.Duration
}

// NewRefresher creates a Refresher polling every interval. A non-positive
// interval defaults to five minutes.
func NewRefresher(loader *Loader, interval time.Duration) *Refresher {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Refresher{loader: loader, interval: interval}
}

// Load returns the last successfully loaded dataset, loading it first if
// nothing has been loaded yet.
func (r *Refresher) Load(ctx context.Context) (*Dataset, error) {
	if ds := r.loader.Current(); ds != nil {
		return ds, nil
	}
	return r.loader.Load(ctx)
}

// Run starts the refresh loop. It blocks until ctx is cancelled. A failed
// reload keeps serving the previous dataset.
func (r *Refresher) Run(ctx context.Context) {
	log := zap.L().With(zap.String("component", "refdata.refresher"))
	log.Info("starting reference data refresher", zap.Duration("interval", r.interval))

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("reference data refresher stopped")
			return
		case <-ticker.C:
			r.refresh(ctx, log)
		}
	}
}

func (r *Refresher) refresh(ctx context.Context, log *zap.Logger) {
	ds, err := r.loader.Load(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		log.Error("refdata: refresh failed, keeping previous dataset", zap.Error(err))
		return
	}
	log.Debug("refdata: refresh complete", zap.Time("loaded_at", ds.LoadedAt))
}
