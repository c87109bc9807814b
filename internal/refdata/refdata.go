// Package refdata loads and caches the immutable reference tables a search runs
// against: tract boundaries, the travel-time matrix, and the hours schedule.
package refdata

import (
	"context"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/pantry-finder/internal/hours"
	"github.com/sells-group/pantry-finder/internal/odm"
	"github.com/sells-group/pantry-finder/internal/tabular"
	"github.com/sells-group/pantry-finder/internal/tract"
)

// Paths locates the reference files. TractsPath may be empty when only ZIP and
// no address lookups are served.
type Paths struct {
	HoursPath  string
	TravelPath string
	TractsPath string
}

// Dataset is one consistent, read-only snapshot of the reference data.
type Dataset struct {
	Tracts   *tract.Index
	Travel   *odm.Index
	Hours    *hours.Schedule
	Reports  []tabular.Report
	LoadedAt time.Time
}

// fileKey identifies a file version by path, size and modification time.
type fileKey struct {
	path    string
	size    int64
	modTime int64
}

type identity []fileKey

func (a identity) equal(b identity) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Loader loads a Dataset and reuses it while the underlying files are unchanged.
// It is safe for concurrent use. Loads are serialized; Current never waits on
// one.
type Loader struct {
	paths Paths

	current atomic.Pointer[Dataset]

	mu   sync.Mutex // guards keys and serializes loads
	keys [3]identity
}

// NewLoader creates a Loader for the given paths.
func NewLoader(paths Paths) *Loader {
	return &Loader{paths: paths}
}

// Current returns the last successfully loaded Dataset, or nil.
func (l *Loader) Current() *Dataset {
	return l.current.Load()
}

// Load returns the cached Dataset when every file is unchanged; otherwise only
// the changed tables are reparsed, concurrently.
func (l *Loader) Load(ctx context.Context) (*Dataset, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var keys [3]identity
	var err error
	if keys[0], err = stat(l.paths.HoursPath); err != nil {
		return nil, err
	}
	if keys[1], err = stat(l.paths.TravelPath); err != nil {
		return nil, err
	}
	if l.paths.TractsPath != "" {
		if keys[2], err = statShapefile(l.paths.TractsPath); err != nil {
			return nil, err
		}
	}

	prev := l.current.Load()
	if prev != nil && keys[0].equal(l.keys[0]) && keys[1].equal(l.keys[1]) && keys[2].equal(l.keys[2]) {
		return prev, nil
	}

	next := &Dataset{LoadedAt: time.Now()}
	var reports [3]*tabular.Report
	g, gctx := errgroup.WithContext(ctx)

	if prev != nil && keys[0].equal(l.keys[0]) {
		next.Hours = prev.Hours
	} else {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			tbl, err := tabular.Read(l.paths.HoursPath)
			if err != nil {
				return err
			}
			s, rep, err := hours.Load(tbl)
			if err != nil {
				return err
			}
			next.Hours, reports[0] = s, &rep
			return nil
		})
	}

	if prev != nil && keys[1].equal(l.keys[1]) {
		next.Travel = prev.Travel
	} else {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			tbl, err := tabular.Read(l.paths.TravelPath)
			if err != nil {
				return err
			}
			idx, rep, err := odm.Load(tbl)
			if err != nil {
				return err
			}
			next.Travel, reports[1] = idx, &rep
			return nil
		})
	}

	switch {
	case l.paths.TractsPath == "":
	case prev != nil && keys[2].equal(l.keys[2]):
		next.Tracts = prev.Tracts
	default:
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			polys, rep, err := tract.LoadShapefile(l.paths.TractsPath)
			if err != nil {
				return err
			}
			next.Tracts, reports[2] = tract.NewIndex(polys), &rep
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "refdata: load")
	}

	next.Reports = mergeReports(reports, prev)
	l.keys = keys
	l.current.Store(next)

	zap.L().Info("refdata: reference data loaded",
		zap.Int("windows", next.Hours.Len()),
		zap.Int("travel_rows", next.Travel.Len()),
		zap.Int("tracts", tractCount(next.Tracts)),
	)
	return next, nil
}

// mergeReports keeps the previous report for tables that were not reparsed.
func mergeReports(fresh [3]*tabular.Report, prev *Dataset) []tabular.Report {
	var out []tabular.Report
	for _, r := range fresh {
		if r != nil {
			out = append(out, *r)
		}
	}
	if prev == nil {
		return out
	}
	for _, old := range prev.Reports {
		replaced := false
		for _, r := range out {
			if r.Source == old.Source {
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, old)
		}
	}
	return out
}

func tractCount(idx *tract.Index) int {
	if idx == nil {
		return 0
	}
	return idx.Len()
}

func stat(path string) (identity, error) {
	if path == "" {
		return nil, eris.New("refdata: path not configured")
	}
	fi, err := os.Stat(path)
	if err != nil {
		return nil, eris.Wrapf(err, "refdata: stat %s", path)
	}
	return identity{{path: path, size: fi.Size(), modTime: fi.ModTime().UnixNano()}}, nil
}

// statShapefile identifies a shapefile by its .shp plus whichever of its .dbf
// and .prj companions exist.
func statShapefile(path string) (identity, error) {
	id, err := stat(path)
	if err != nil {
		return nil, err
	}
	base := strings.TrimSuffix(path, ".shp")
	for _, ext := range []string{".dbf", ".prj"} {
		fi, err := os.Stat(base + ext)
		if err != nil {
			continue
		}
		id = append(id, fileKey{path: base + ext, size: fi.Size(), modTime: fi.ModTime().UnixNano()})
	}
	return id, nil
}
