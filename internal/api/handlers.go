package api

import (
	"encoding/json"
	"net/http"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/pantry-finder/internal/model"
	"github.com/sells-group/pantry-finder/internal/pantry"
	"github.com/sells-group/pantry-finder/internal/render"
)

var errBadRequest = eris.New("api: bad request")

const maxBodyBytes = 64 << 10

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// findPantries handles GET /v1/pantries.
func (s *Server) findPantries(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()

	format := render.JSON
	if raw := params.Get("format"); raw != "" {
		f, err := render.ParseFormat(raw)
		if err != nil || (f != render.JSON && f != render.GeoJSON) {
			s.writeError(w, r, eris.Wrapf(errBadRequest, "format %q is not served over http, want json or geojson", raw))
			return
		}
		format = f
	}

	pt, err := pantry.ParsePoint(params.Get("lat"), params.Get("lon"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	at, err := pantry.ParseAt(params.Get("at"), s.engine.Config().Location)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	id := sessionID(w, r)
	resp, err := s.engine.SearchSession(r.Context(), s.sessions, id, pantry.Query{
		Address: params.Get("address"),
		ZIP:     params.Get("zip"),
		Point:   pt,
		At:      at,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if resp.Rows == nil {
		resp.Rows = []model.ResultRow{}
	}

	if format == render.GeoJSON {
		w.Header().Set("Content-Type", "application/geo+json")
	} else {
		w.Header().Set("Content-Type", "application/json")
	}
	w.WriteHeader(http.StatusOK)
	if err := render.Response(w, format, resp); err != nil {
		s.log.Warn("api: write response failed", zap.Error(err))
	}
}

// categories handles GET /v1/categories.
func (s *Server) categories(w http.ResponseWriter, r *http.Request) {
	ds, err := s.data.Load(r.Context())
	if err != nil {
		s.writeError(w, r, eris.Wrap(err, "api: load reference data"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"facets": ds.Travel.Facets()})
}

// tracts handles GET /v1/tracts.
func (s *Server) tracts(w http.ResponseWriter, r *http.Request) {
	pt, err := pantry.ParsePoint(r.URL.Query().Get("lat"), r.URL.Query().Get("lon"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if pt == nil {
		s.writeError(w, r, eris.Wrap(errBadRequest, "lat and lon are required"))
		return
	}
	ds, err := s.data.Load(r.Context())
	if err != nil {
		s.writeError(w, r, eris.Wrap(err, "api: load reference data"))
		return
	}
	if ds.Tracts == nil {
		s.writeError(w, r, eris.New("api: tract boundaries are not loaded"))
		return
	}
	geoid, err := ds.Tracts.Resolve(pt.Longitude, pt.Latitude)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"geoid": geoid, "point": pt})
}

type filtersBody struct {
	Session    string           `json:"session"`
	Categories model.Categories `json:"categories"`
}

// getFilters handles GET /v1/session/filters.
func (s *Server) getFilters(w http.ResponseWriter, r *http.Request) {
	id := sessionID(w, r)
	cats, err := s.sessions.Load(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, filtersBody{Session: id, Categories: cats})
}

// putFilters handles PUT /v1/session/filters. The body is a categories
// object and replaces the stored selection.
func (s *Server) putFilters(w http.ResponseWriter, r *http.Request) {
	id := sessionID(w, r)

	var cats model.Categories
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cats); err != nil {
		s.writeError(w, r, eris.Wrapf(errBadRequest, "invalid filters body: %v", err))
		return
	}
	cats = cats.Normalized()
	if err := s.sessions.Save(r.Context(), id, cats); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, filtersBody{Session: id, Categories: cats})
}

// deleteFilters handles DELETE /v1/session/filters.
func (s *Server) deleteFilters(w http.ResponseWriter, r *http.Request) {
	id := sessionID(w, r)
	if err := s.sessions.Delete(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
