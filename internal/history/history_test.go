package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRecordAndRecent(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		err := store.Record(ctx, Entry{
			ID:             uuid.New().String(),
			Decision:       "enhance",
			Confidence:     0.8,
			ReactionTimeMS: 420,
			WorkflowMode:   "research_assembly",
			Iteration:      i,
			ContentLength:  1200,
			CreatedAt:      base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	entries, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	// Most recent first.
	assert.Equal(t, 2, entries[0].Iteration)
	assert.Equal(t, 0, entries[2].Iteration)
	assert.Equal(t, "enhance", entries[0].Decision)
	assert.False(t, entries[0].TimedOut)
}

func TestRecentLimit(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Record(ctx, Entry{
			ID:           uuid.New().String(),
			Decision:     "research",
			WorkflowMode: "news_analysis",
		}))
	}

	entries, err := store.Recent(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestRecordRequiresID(t *testing.T) {
	store := newTestStore(t)
	assert.Error(t, store.Record(context.Background(), Entry{Decision: "complete"}))
}

func TestCount(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)

	require.NoError(t, store.Record(ctx, Entry{ID: uuid.New().String(), Decision: "complete", TimedOut: true}))

	n, err = store.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	entries, err := store.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].TimedOut)
}
