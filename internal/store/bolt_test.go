package store

import (
	"path/filepath"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lolwierd/cric-commentary/internal/extract"
	"github.com/lolwierd/cric-commentary/internal/tracker"
)

const match = "https://example.test/live/1"

func openStore(t *testing.T, path string) *BoltStore {
	t.Helper()
	s := New(path, zap.NewNop())
	require.NoError(t, s.Open())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSaveAndLoadAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "cricwatch.db")
	last := 49.2
	want := tracker.Snapshot{
		Keys: []tracker.Key{
			{Position: "49.1", Prefix: "Shami to Bracewell, 1 run"},
			{Position: "49.2", Prefix: "Shami to Bracewell, FOUR!"},
		},
		HighWatermark: 49.2,
		LastNotified:  &last,
	}

	s := openStore(t, path)
	require.NoError(t, s.Save(match, want))
	require.NoError(t, s.Close())

	s = openStore(t, path)
	got, ok, err := s.Load(match)
	require.NoError(t, err)
	require.True(t, ok)

	sort.Slice(got.Keys, func(i, j int) bool { return got.Keys[i].Position < got.Keys[j].Position })
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadUnknownMatch(t *testing.T) {
	s := openStore(t, filepath.Join(t.TempDir(), "cricwatch.db"))
	require.NoError(t, s.Save(match, tracker.Snapshot{HighWatermark: 3.1}))

	_, ok, err := s.Load("https://example.test/live/2")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTrackerRoundTripThroughStore(t *testing.T) {
	s := openStore(t, filepath.Join(t.TempDir(), "cricwatch.db"))

	tr := tracker.New(tracker.Options{})
	rows := trackerRows()
	events := tr.Admit(rows, "NZ 251/4 (49.2)")
	require.Len(t, events, 2)
	_, ok := tr.NextNotification(events)
	require.True(t, ok)
	require.NoError(t, s.Save(match, tr.Snapshot()))

	snap, ok, err := s.Load(match)
	require.NoError(t, err)
	require.True(t, ok)

	restored := tracker.New(tracker.Options{})
	restored.Restore(snap)
	assert.Empty(t, restored.Admit(rows, "NZ 251/4 (49.2)"))
	last, ok := restored.LastNotified()
	assert.True(t, ok)
	assert.Equal(t, 49.2, last)
}

func TestUseBeforeOpen(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "x.db"), zap.NewNop())
	assert.ErrorIs(t, s.Save(match, tracker.Snapshot{}), ErrNotOpen)
	_, _, err := s.Load(match)
	assert.ErrorIs(t, err, ErrNotOpen)
	assert.NoError(t, s.Close())
}

func trackerRows() []extract.Row {
	return []extract.Row{
		{Position: "49.1", Text: "Shami to Bracewell, 1 run, pushed to long on"},
		{Position: "49.2", Text: "Shami to Bracewell, FOUR! cracking shot"},
		{Position: "49.3", Text: "Shami to Bracewell, that's the end of the over"},
	}
}
