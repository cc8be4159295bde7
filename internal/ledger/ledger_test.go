package ledger

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dokzlo13/tuyactl/internal/db"
)

func openLedger(t *testing.T) *Ledger {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return New(database.DB)
}

func TestAppendAndRecent(t *testing.T) {
	l := openLedger(t)
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	tick := 0
	l.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}

	require.NoError(t, l.AppendWithSource(EventCommandCompleted, "Lamp", "", "", map[string]any{"command": "on"}))
	require.NoError(t, l.AppendWithSource(EventCommandFailed, "Plug", "cli", "batch-1", map[string]any{"command": "off", "error": "timeout"}))
	require.NoError(t, l.AppendWithSource(EventCommandCompleted, "Lamp", "lua", "batch-1", nil))

	entries, err := l.Recent(10)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, "lua", entries[0].Source)
	assert.Nil(t, entries[0].Payload)

	assert.Equal(t, EventCommandFailed, entries[1].EventType)
	assert.Equal(t, "Plug", entries[1].Device)
	assert.Equal(t, "off", entries[1].Command())
	assert.Equal(t, "timeout", entries[1].Payload["error"])
	assert.Equal(t, base.Add(2*time.Second), entries[1].Timestamp)

	limited, err := l.Recent(1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	lamp, err := l.GetByDevice("Lamp", 10)
	require.NoError(t, err)
	assert.Len(t, lamp, 2)

	batch, err := l.GetByBatch("batch-1")
	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.Equal(t, "Plug", batch[0].Device)
}

func TestDeleteOlderThan(t *testing.T) {
	l := openLedger(t)
	now := time.Now()

	l.now = func() time.Time { return now.Add(-48 * time.Hour) }
	require.NoError(t, l.AppendWithSource(EventCommandCompleted, "Old", "", "", nil))
	l.now = func() time.Time { return now }
	require.NoError(t, l.AppendWithSource(EventCommandCompleted, "New", "", "", nil))

	deleted, err := l.DeleteOlderThan(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	entries, err := l.Recent(10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "New", entries[0].Device)
}
