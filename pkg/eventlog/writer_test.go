package eventlog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agora/pkg/event"
)

func TestWriteAndReadBack(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, w.Write(event.AgentStart{AgentID: "a1", AgentName: "claude", Time: time.Now()}))
	require.NoError(t, w.Write(event.AgentEnd{AgentID: "a1", DurationMs: 42, Time: time.Now()}))

	records, err := ReadRecords(w.CurrentLogFile())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, event.TypeAgentStart, records[0].Type)
	assert.Equal(t, event.TypeAgentEnd, records[1].Type)
	assert.Contains(t, string(records[0].Payload), `"claude"`)
}

func TestListLogFiles(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir)
	require.NoError(t, err)
	require.NoError(t, w.Write(event.Done{Time: time.Now()}))
	require.NoError(t, w.Close())

	files, err := ListLogFiles(dir)
	require.NoError(t, err)
	assert.Len(t, files, 1)
}
