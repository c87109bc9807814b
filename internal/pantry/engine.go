package pantry

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/pantry-finder/internal/geo"
	"github.com/sells-group/pantry-finder/internal/hours"
	"github.com/sells-group/pantry-finder/internal/model"
	"github.com/sells-group/pantry-finder/internal/odm"
	"github.com/sells-group/pantry-finder/internal/refdata"
	"github.com/sells-group/pantry-finder/internal/tabular"
	"github.com/sells-group/pantry-finder/pkg/geocode"
)

var (
	// ErrUnresolvableLocation means the query location could not be turned
	// into an origin: the address did not geocode or no tract contains it.
	ErrUnresolvableLocation = eris.New("pantry: location could not be resolved")

	// ErrInvalidQuery means the query names no usable location.
	ErrInvalidQuery = eris.New("pantry: invalid query")
)

// Result messages shown alongside the rows.
const (
	MessageFallback     = "No agencies within %g minutes of your location. Showing agencies within %g minutes instead."
	MessageNoCandidates = "No agencies are reachable from your location."
	MessageNothingOpen  = "No agencies are open at the selected time."
	MessageNoMatches    = "No agencies match the selected filters."
)

var zipPattern = regexp.MustCompile(`^\d{5}(-\d{4})?$`)

// LocationError reports why a location could not be resolved. It matches
// ErrUnresolvableLocation with errors.Is and unwraps to the cause.
type LocationError struct {
	Reason string
	Err    error
}

func (e *LocationError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", ErrUnresolvableLocation, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %v", ErrUnresolvableLocation, e.Reason, e.Err)
}

// Unwrap returns the underlying cause.
func (e *LocationError) Unwrap() error { return e.Err }

// Is reports whether target is ErrUnresolvableLocation.
func (e *LocationError) Is(target error) bool { return target == ErrUnresolvableLocation }

// Geocoder turns a free-form address into coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, addr geocode.AddressInput) (*geocode.Result, error)
}

// DatasetSource supplies the current reference data.
type DatasetSource interface {
	Load(ctx context.Context) (*refdata.Dataset, error)
}

// SelectionStore holds per-session category selections.
type SelectionStore interface {
	Load(ctx context.Context, sessionID string) (model.Categories, error)
}

// Query is one search request. Exactly one of Point, ZIP or Address is used,
// in that order of precedence. A zero At means now.
type Query struct {
	Address    string
	ZIP        string
	Point      *model.Point
	At         time.Time
	Categories model.Categories
}

// Origin describes where a search started from.
type Origin struct {
	Point   *model.Point `json:"point,omitempty" yaml:"point,omitempty"`
	GEOID   int64        `json:"geoid,omitempty" yaml:"geoid,omitempty"`
	ZIP     string       `json:"zip,omitempty" yaml:"zip,omitempty"`
	Address string       `json:"address,omitempty" yaml:"address,omitempty"`
	Source  string       `json:"geocoder,omitempty" yaml:"geocoder,omitempty"`
}

// Response is the outcome of a search. An empty Rows is not an error.
type Response struct {
	Origin        Origin            `json:"origin" yaml:"origin"`
	At            time.Time         `json:"at" yaml:"at"`
	Moment        hours.Moment      `json:"moment" yaml:"moment"`
	Fallback      bool              `json:"fallback" yaml:"fallback"`
	BudgetMinutes float64           `json:"budget_minutes,omitempty" yaml:"budget_minutes,omitempty"`
	Candidates    int               `json:"candidates" yaml:"candidates"`
	Categories    model.Categories  `json:"categories" yaml:"categories"`
	Message       string            `json:"message,omitempty" yaml:"message,omitempty"`
	Rows          []model.ResultRow `json:"rows" yaml:"rows"`
}

// Config controls how the Engine searches.
type Config struct {
	Budget   odm.Budget
	Stages   Stages
	Location *time.Location
}

// DefaultConfig returns the 20/60 minute budget with every stage enabled,
// evaluated in UTC.
func DefaultConfig() Config {
	return Config{Budget: odm.DefaultBudget(), Stages: AllStages(), Location: time.UTC}
}

// Option configures the Engine.
type Option func(*Engine)

// WithClock overrides the time source used when a query has no At.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// Engine runs searches against a DatasetSource.
type Engine struct {
	source   DatasetSource
	geocoder Geocoder
	cfg      Config
	now      func() time.Time
	log      *zap.Logger
}

// NewEngine creates an Engine. geocoder may be nil when only point and ZIP
// queries are served.
func NewEngine(source DatasetSource, geocoder Geocoder, cfg Config, opts ...Option) *Engine {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	e := &Engine{
		source:   source,
		geocoder: geocoder,
		cfg:      cfg,
		now:      time.Now,
		log:      zap.L().With(zap.String("component", "pantry")),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Config returns the engine configuration.
func (e *Engine) Config() Config { return e.cfg }

// SearchSession runs q with the category selection stored for sessionID.
func (e *Engine) SearchSession(ctx context.Context, store SelectionStore, sessionID string, q Query) (*Response, error) {
	cats, err := store.Load(ctx, sessionID)
	if err != nil {
		return nil, eris.Wrapf(err, "pantry: load selection for session %s", sessionID)
	}
	q.Categories = cats
	return e.Search(ctx, q)
}

// Search resolves the query location, collects candidates within the travel
// budget and returns the agencies open at the query time.
func (e *Engine) Search(ctx context.Context, q Query) (*Response, error) {
	ds, err := e.source.Load(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "pantry: load reference data")
	}

	at := q.At
	if at.IsZero() {
		at = e.now()
	}
	at = at.In(e.cfg.Location)

	resp := &Response{
		At:         at,
		Moment:     hours.NewMoment(at),
		Categories: q.Categories.Normalized(),
	}

	cands, err := e.candidates(ctx, ds, q, &resp.Origin)
	if err != nil {
		return nil, err
	}
	resp.Fallback = cands.Fallback
	resp.BudgetMinutes = cands.BudgetMinutes
	resp.Candidates = len(cands.Agencies)

	resp.Rows = BuildResults(cands, ds.Hours, resp.Moment, resp.Categories, e.cfg.Stages)
	if resp.Origin.Point != nil {
		for i := range resp.Rows {
			if pt, ok := resp.Rows[i].Point(); ok {
				miles := round2(geo.Miles(*resp.Origin.Point, pt))
				resp.Rows[i].StraightLineMiles = &miles
			}
		}
	}
	resp.Message = e.message(resp, cands)

	e.log.Debug("pantry: search complete",
		zap.Int64("geoid", resp.Origin.GEOID),
		zap.String("zip", resp.Origin.ZIP),
		zap.Stringer("moment", resp.Moment),
		zap.Bool("fallback", resp.Fallback),
		zap.Int("candidates", resp.Candidates),
		zap.Int("rows", len(resp.Rows)),
	)
	return resp, nil
}

func (e *Engine) candidates(ctx context.Context, ds *refdata.Dataset, q Query, origin *Origin) (odm.CandidateSet, error) {
	address := strings.TrimSpace(q.Address)
	zip := strings.TrimSpace(q.ZIP)

	switch {
	case q.Point != nil:
		if !q.Point.Valid() {
			return odm.CandidateSet{}, eris.Wrapf(ErrInvalidQuery, "coordinates out of range: %v", *q.Point)
		}
		pt := *q.Point
		origin.Point = &pt
		return e.byPoint(ds, origin)

	case zip != "":
		if !e.cfg.Stages.ZIPLookup {
			return odm.CandidateSet{}, eris.Wrap(ErrInvalidQuery, "zip lookup is disabled")
		}
		if !zipPattern.MatchString(zip) {
			return odm.CandidateSet{}, eris.Wrapf(ErrInvalidQuery, "malformed zip %q", zip)
		}
		return e.byZIP(ds, zip, origin), nil

	case address != "":
		if e.cfg.Stages.ZIPLookup && zipPattern.MatchString(address) {
			return e.byZIP(ds, address, origin), nil
		}
		origin.Address = address
		pt, source, err := e.geocode(ctx, address)
		if err != nil {
			return odm.CandidateSet{}, err
		}
		origin.Point, origin.Source = &pt, source
		return e.byPoint(ds, origin)

	default:
		return odm.CandidateSet{}, eris.Wrap(ErrInvalidQuery, "an address, zip or coordinates are required")
	}
}

func (e *Engine) byZIP(ds *refdata.Dataset, zip string, origin *Origin) odm.CandidateSet {
	origin.ZIP = tabular.NormalizeZIP(zip)
	return ds.Travel.ByZIP(origin.ZIP)
}

func (e *Engine) byPoint(ds *refdata.Dataset, origin *Origin) (odm.CandidateSet, error) {
	if ds.Tracts == nil {
		return odm.CandidateSet{}, eris.New("pantry: tract boundaries are not loaded")
	}
	geoid, err := ds.Tracts.Resolve(origin.Point.Longitude, origin.Point.Latitude)
	if err != nil {
		return odm.CandidateSet{}, &LocationError{Reason: "no census tract contains the location", Err: err}
	}
	origin.GEOID = geoid
	return ds.Travel.ByTract(geoid, e.cfg.Budget), nil
}

func (e *Engine) geocode(ctx context.Context, address string) (model.Point, string, error) {
	if e.geocoder == nil {
		return model.Point{}, "", eris.New("pantry: no geocoder configured")
	}
	res, err := e.geocoder.Geocode(ctx, geocode.AddressInput{Line: address})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return model.Point{}, "", eris.Wrap(err, "pantry: geocode")
		}
		return model.Point{}, "", &LocationError{Reason: "geocoding failed", Err: err}
	}
	if res == nil || !res.Matched {
		return model.Point{}, "", &LocationError{Reason: fmt.Sprintf("address %q did not match", address)}
	}
	return model.Point{Latitude: res.Latitude, Longitude: res.Longitude}, res.Source, nil
}

func (e *Engine) message(resp *Response, cands odm.CandidateSet) string {
	switch {
	case len(cands.Agencies) == 0:
		return MessageNoCandidates
	case len(resp.Rows) == 0 && e.cfg.Stages.Categories && !resp.Categories.Empty():
		return MessageNoMatches
	case len(resp.Rows) == 0 && e.cfg.Stages.Hours:
		return MessageNothingOpen
	case len(resp.Rows) == 0:
		return MessageNoMatches
	case resp.Fallback:
		return fmt.Sprintf(MessageFallback, e.cfg.Budget.PrimaryMinutes, e.cfg.Budget.FallbackMinutes)
	default:
		return ""
	}
}
