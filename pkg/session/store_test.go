package session

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agora/pkg/budget"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "usage.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRecordAndAggregate(t *testing.T) {
	store := openTestStore(t)

	require.NoError(t, store.RecordTurn("anthropic", "claude-sonnet", budget.Usage{InputTokens: 100, OutputTokens: 50, TotalTokens: 150}))
	require.NoError(t, store.RecordTurn("anthropic", "claude-sonnet", budget.Usage{InputTokens: 20, OutputTokens: 10, TotalTokens: 30}))
	require.NoError(t, store.RecordTurn("openai", "gpt-4o", budget.Usage{InputTokens: 7, OutputTokens: 3}))

	totals, err := store.SessionTotals()
	require.NoError(t, err)
	require.Len(t, totals, 2)

	assert.Equal(t, "anthropic", totals[0].Provider)
	assert.Equal(t, int64(2), totals[0].Turns)
	assert.Equal(t, int64(120), totals[0].InputTokens)
	assert.Equal(t, int64(180), totals[0].TotalTokens)

	// total derived when the provider did not report it
	assert.Equal(t, int64(10), totals[1].TotalTokens)
}

func TestSessionsIsolated(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "usage.db")

	first, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, first.RecordTurn("anthropic", "m", budget.Usage{InputTokens: 1, OutputTokens: 1}))
	require.NoError(t, first.Close())

	second, err := Open(path)
	require.NoError(t, err)
	defer second.Close()

	assert.NotEqual(t, first.SessionID(), second.SessionID())
	totals, err := second.SessionTotals()
	require.NoError(t, err)
	assert.Empty(t, totals)
}
