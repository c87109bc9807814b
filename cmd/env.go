package main

import (
	"context"
	"net/http"

	"github.com/rotisserie/eris"

	"github.com/sells-group/pantry-finder/internal/config"
	"github.com/sells-group/pantry-finder/internal/pantry"
	"github.com/sells-group/pantry-finder/internal/refdata"
	"github.com/sells-group/pantry-finder/internal/session"
	"github.com/sells-group/pantry-finder/pkg/geocode"
)

// searchEnv holds everything the find and serve commands need.
type searchEnv struct {
	Loader    *refdata.Loader
	Refresher *refdata.Refresher // serve only; nil when refresh is disabled
	Engine    *pantry.Engine
	Sessions  session.Store
}

// Close releases resources held by the environment.
func (se *searchEnv) Close() {
	if se.Sessions != nil {
		_ = se.Sessions.Close()
	}
}

// initSearch validates the config for mode, opens the session store and
// builds the engine, applying tune to the engine config first. Reference data
// is loaded lazily on first search. Callers should defer env.Close().
func initSearch(ctx context.Context, c *config.Config, mode string, tune ...func(*pantry.Config)) (*searchEnv, error) {
	if err := c.Validate(mode); err != nil {
		return nil, err
	}

	engineCfg, err := c.EngineConfig()
	if err != nil {
		return nil, err
	}
	for _, fn := range tune {
		fn(&engineCfg)
	}

	sessions, err := session.Open(ctx, c.Session)
	if err != nil {
		return nil, eris.Wrap(err, "open session store")
	}

	env := &searchEnv{Loader: refdata.NewLoader(c.RefdataPaths()), Sessions: sessions}
	var source pantry.DatasetSource = env.Loader
	if mode == "serve" && c.Data.RefreshSecs > 0 {
		env.Refresher = refdata.NewRefresher(env.Loader, c.RefreshInterval())
		source = env.Refresher
	}
	env.Engine = pantry.NewEngine(source, newGeocoder(c), engineCfg)
	return env, nil
}

func newGeocoder(c *config.Config) geocode.Client {
	opts := []geocode.Option{
		geocode.WithHTTPClient(&http.Client{Timeout: c.GeocodeTimeout()}),
		geocode.WithRateLimit(c.Geocode.RateLimit),
		geocode.WithRetry(c.Geocode.Retry),
		geocode.WithCache(c.Geocode.CacheSize, c.GeocodeCacheTTL()),
	}
	if c.Geocode.GoogleAPIKey != "" {
		opts = append(opts, geocode.WithGoogleAPIKey(c.Geocode.GoogleAPIKey))
	}
	return geocode.NewClient(opts...)
}

// loadData validates the data section and loads the reference tables.
func loadData(ctx context.Context, c *config.Config) (*refdata.Dataset, error) {
	if err := c.Validate("data"); err != nil {
		return nil, err
	}
	return refdata.NewLoader(c.RefdataPaths()).Load(ctx)
}
