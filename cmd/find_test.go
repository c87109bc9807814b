package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/pantry-finder/internal/model"
	"github.com/sells-group/pantry-finder/internal/pantry"
	"github.com/sells-group/pantry-finder/internal/session"
)

func newTestEnv(t *testing.T) *searchEnv {
	t.Helper()
	c := writeTestData(t)
	env, err := initSearch(context.Background(), c, "find")
	require.NoError(t, err)
	t.Cleanup(env.Close)
	return env
}

func pantryCategories(filter1 ...string) model.Categories {
	return model.Categories{Filter1: filter1}
}

func findJSON(t *testing.T, env *searchEnv, opts findOptions) pantry.Response {
	t.Helper()
	opts.Format = "json"
	var buf bytes.Buffer
	require.NoError(t, runFind(context.Background(), &buf, env.Engine, env.Sessions, opts))
	var resp pantry.Response
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp), buf.String())
	return resp
}

func TestRunFind_Point(t *testing.T) {
	env := newTestEnv(t)

	resp := findJSON(t, env, findOptions{Lat: 35.5, Lon: -78.5, HasPoint: true, At: "2024-01-01 12:00"})
	require.Len(t, resp.Rows, 2)
	assert.Equal(t, "Foodbank A", resp.Rows[0].Agency)
	assert.InDelta(t, 15.00, resp.Rows[0].TravelMinutes, 1e-9)
	assert.InDelta(t, 3.20, resp.Rows[0].DistanceMiles, 1e-9)
	assert.NotEmpty(t, resp.Rows[0].Window)
	assert.NotNil(t, resp.Rows[0].StraightLineMiles)
}

func TestRunFind_ZIPAsAddress(t *testing.T) {
	env := newTestEnv(t)

	resp := findJSON(t, env, findOptions{Address: "27601", At: "2024-01-01 12:00"})
	require.Len(t, resp.Rows, 1)
	assert.Equal(t, "27601", resp.Origin.ZIP)
	assert.InDelta(t, 12.0, resp.Rows[0].TravelMinutes, 1e-9)
}

func TestRunFind_FiltersSavedToSession(t *testing.T) {
	env := newTestEnv(t)

	resp := findJSON(t, env, findOptions{
		Lat: 35.5, Lon: -78.5, HasPoint: true, At: "2024-01-01 12:00",
		Filter1: []string{"Meal"}, HasFilters: true, Session: "kitchen-01",
	})
	require.Len(t, resp.Rows, 1)
	assert.Equal(t, "Foodbank B", resp.Rows[0].Agency)

	// The next interaction in the same session reuses the selection.
	resp = findJSON(t, env, findOptions{Lat: 35.5, Lon: -78.5, HasPoint: true, At: "2024-01-01 12:00", Session: "kitchen-01"})
	require.Len(t, resp.Rows, 1)
	assert.Equal(t, "Foodbank B", resp.Rows[0].Agency)

	// Other sessions are unaffected.
	resp = findJSON(t, env, findOptions{Lat: 35.5, Lon: -78.5, HasPoint: true, At: "2024-01-01 12:00", Session: "kitchen-02"})
	assert.Len(t, resp.Rows, 2)
}

func TestRunFind_NothingOpen(t *testing.T) {
	env := newTestEnv(t)

	var buf bytes.Buffer
	err := runFind(context.Background(), &buf, env.Engine, env.Sessions, findOptions{
		Lat: 35.5, Lon: -78.5, HasPoint: true, At: "2024-01-02 03:00", Format: "table",
	})
	require.NoError(t, err)
	assert.Equal(t, pantry.MessageNothingOpen+"\n", buf.String())
}

func TestRunFind_NoHours(t *testing.T) {
	c := writeTestData(t)
	env, err := initSearch(context.Background(), c, "find", func(pc *pantry.Config) { pc.Stages.Hours = false })
	require.NoError(t, err)
	defer env.Close()

	resp := findJSON(t, env, findOptions{Lat: 35.5, Lon: -78.5, HasPoint: true, At: "2024-01-02 03:00"})
	assert.Len(t, resp.Rows, 2)
}

func TestRunFind_Errors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	var buf bytes.Buffer

	err := runFind(ctx, &buf, env.Engine, env.Sessions, findOptions{Format: "table"})
	assert.ErrorIs(t, err, pantry.ErrInvalidQuery)

	err = runFind(ctx, &buf, env.Engine, env.Sessions, findOptions{ZIP: "27601", At: "whenever"})
	assert.ErrorIs(t, err, pantry.ErrInvalidQuery)

	err = runFind(ctx, &buf, env.Engine, env.Sessions, findOptions{ZIP: "27601", Format: "xml"})
	assert.Error(t, err)

	err = runFind(ctx, &buf, env.Engine, env.Sessions, findOptions{Lat: 10, Lon: 10, HasPoint: true})
	assert.ErrorIs(t, err, pantry.ErrUnresolvableLocation)
}

func TestShowSession(t *testing.T) {
	st := session.NewMemory()
	ctx := context.Background()

	var buf bytes.Buffer
	require.NoError(t, showSession(ctx, &buf, st, "s1", "table"))
	assert.Equal(t, "No filters saved.\n", buf.String())

	require.NoError(t, st.Save(ctx, "s1", pantryCategories("Pantry")))
	buf.Reset()
	require.NoError(t, showSession(ctx, &buf, st, "s1", "table"))
	assert.Contains(t, buf.String(), "[Pantry]")

	buf.Reset()
	require.NoError(t, showSession(ctx, &buf, st, "s1", "json"))
	assert.Contains(t, buf.String(), `"filter_1"`)
}

func TestSessionCommands(t *testing.T) {
	writeTestData(t)
	t.Setenv("PANTRY_SESSION_DRIVER", "sqlite")
	t.Setenv("PANTRY_SESSION_DATABASE_URL", "sessions.db")

	st, err := session.Open(context.Background(), session.Config{Driver: "sqlite", DatabaseURL: "sessions.db"})
	require.NoError(t, err)
	require.NoError(t, st.Save(context.Background(), "s1", pantryCategories("Meal")))
	require.NoError(t, st.Close())

	out, err := execute(t, "session", "show", "--session", "s1", "--format", "table")
	require.NoError(t, err)
	assert.Contains(t, out, "[Meal]")

	_, err = execute(t, "session", "clear", "--session", "s1")
	require.NoError(t, err)

	out, err = execute(t, "session", "show", "--session", "s1", "--format", "table")
	require.NoError(t, err)
	assert.Equal(t, "No filters saved.\n", out)
}
