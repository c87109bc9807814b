package session

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/pantry-finder/internal/model"
)

// exerciseStore checks the behavior every backend shares.
func exerciseStore(t *testing.T, s Store) {
	ctx := context.Background()

	got, err := s.Load(ctx, "unknown")
	require.NoError(t, err)
	assert.True(t, got.Empty())

	want := model.Categories{Filter1: []string{"Pantry", " Meal ", "Pantry"}, ChoiceOnly: true}
	require.NoError(t, s.Save(ctx, "s1", want))

	got, err = s.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Meal", "Pantry"}, got.Filter1)
	assert.True(t, got.ChoiceOnly)

	other, err := s.Load(ctx, "s2")
	require.NoError(t, err)
	assert.True(t, other.Empty(), "selections do not leak across sessions")

	require.NoError(t, s.Save(ctx, "s1", model.Categories{Filter2: []string{"Halal"}}))
	got, err = s.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, got.Filter1)
	assert.Equal(t, []string{"Halal"}, got.Filter2)
	assert.False(t, got.ChoiceOnly)

	require.NoError(t, s.Delete(ctx, "s1"))
	got, err = s.Load(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, got.Empty())

	require.NoError(t, s.Delete(ctx, "never-saved"))

	assert.ErrorIs(t, s.Save(ctx, "", want), ErrInvalidID)
	_, err = s.Load(ctx, strings.Repeat("x", maxIDLen+1))
	assert.ErrorIs(t, err, ErrInvalidID)
}

func TestMemory(t *testing.T) {
	exerciseStore(t, NewMemory())
}

func TestMemory_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	require.NoError(t, s.Save(ctx, "s1", model.Categories{Filter1: []string{"Pantry"}}))

	got, err := s.Load(ctx, "s1")
	require.NoError(t, err)
	got.Filter1[0] = "mutated"

	again, err := s.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Pantry"}, again.Filter1)
}

func TestMemory_Concurrent(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := fmt.Sprintf("s%d", i)
			cats := model.Categories{Filter1: []string{id}}
			assert.NoError(t, s.Save(ctx, id, cats))
			got, err := s.Load(ctx, id)
			assert.NoError(t, err)
			assert.Equal(t, []string{id}, got.Filter1)
		}()
	}
	wg.Wait()
}

func TestSQLite(t *testing.T) {
	s, err := NewSQLite(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(context.Background()))

	exerciseStore(t, s)
}

func TestSQLite_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "sessions.db")

	s, err := Open(ctx, Config{Driver: "sqlite", DatabaseURL: path})
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, "s1", model.Categories{Filter1: []string{"Pantry"}}))
	require.NoError(t, s.Close())

	s, err = Open(ctx, Config{Driver: "sqlite", DatabaseURL: path})
	require.NoError(t, err)
	defer s.Close() //nolint:errcheck

	got, err := s.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Pantry"}, got.Filter1)
}

func TestOpen_Drivers(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, Config{})
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, s)

	_, err = Open(ctx, Config{Driver: "redis"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown driver")
}

func TestDecode_Corrupt(t *testing.T) {
	_, err := decode([]byte("{"))
	require.Error(t, err)

	cats, err := decode(nil)
	require.NoError(t, err)
	assert.True(t, cats.Empty())
}
