package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRunLog(t *testing.T) *RunLog {
	t.Helper()
	path := filepath.Join(t.TempDir(), "runs.db")
	l, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() }) //nolint:errcheck
	require.NoError(t, l.Migrate(context.Background()))
	return l
}

func TestRunLog_StartAndComplete(t *testing.T) {
	l := newTestRunLog(t)
	ctx := context.Background()

	id, err := l.Start(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	err = l.Complete(ctx, id, RunResult{Pages: 3, RowsSeen: 30, NewRecords: 12})
	require.NoError(t, err)

	entries, err := l.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	e := entries[0]
	assert.Equal(t, id, e.ID)
	assert.Equal(t, RunStatusComplete, e.Status)
	assert.Equal(t, 3, e.Pages)
	assert.Equal(t, 30, e.RowsSeen)
	assert.Equal(t, 12, e.NewRecords)
	assert.NotNil(t, e.FinishedAt)
	assert.Empty(t, e.Error)
}

func TestRunLog_Fail(t *testing.T) {
	l := newTestRunLog(t)
	ctx := context.Background()

	id, err := l.Start(ctx)
	require.NoError(t, err)

	require.NoError(t, l.Fail(ctx, id, "driver did not start"))

	entries, err := l.ListRecent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, RunStatusFailed, entries[0].Status)
	assert.Equal(t, "driver did not start", entries[0].Error)
}

func TestRunLog_ListRecent_Limit(t *testing.T) {
	l := newTestRunLog(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := l.Start(ctx)
		require.NoError(t, err)
	}

	entries, err := l.ListRecent(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	for _, e := range entries {
		assert.Equal(t, RunStatusRunning, e.Status)
	}
}

func TestRunLog_ListRecent_Empty(t *testing.T) {
	l := newTestRunLog(t)

	entries, err := l.ListRecent(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRunLog_MigrateIsIdempotent(t *testing.T) {
	l := newTestRunLog(t)
	require.NoError(t, l.Migrate(context.Background()))
}
