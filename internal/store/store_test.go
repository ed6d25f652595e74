package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"icalfeed/internal/ics"
	"icalfeed/internal/model"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "icalfeed.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestEntries(t *testing.T) {
	s := openTemp(t)

	_, err := s.LoadEntry("missing")
	assert.ErrorIs(t, err, ErrNotFound)

	in := ics.CacheEntry{
		URL:       "https://example.com/cal.ics",
		ETag:      `"abc"`,
		UpdatedAt: time.Date(2024, 7, 4, 12, 0, 0, 0, time.UTC),
		Body:      []byte("BEGIN:VCALENDAR"),
	}
	require.NoError(t, s.SaveEntry("k", in))

	out, err := s.LoadEntry("k")
	require.NoError(t, err)
	assert.Equal(t, in.URL, out.URL)
	assert.Equal(t, in.ETag, out.ETag)
	assert.Equal(t, in.Body, out.Body)
	assert.True(t, in.UpdatedAt.Equal(out.UpdatedAt))
}

func TestSnapshot(t *testing.T) {
	s := openTemp(t)

	_, err := s.LoadSnapshot()
	assert.ErrorIs(t, err, ErrNotFound)

	start := time.Date(2024, 7, 4, 9, 0, 0, 0, time.UTC)
	require.NoError(t, s.SaveSnapshot(model.Snapshot{
		Version: 3,
		Status:  model.StatusLoaded,
		Events:  []model.Event{{UID: "a", Summary: "A", Start: start, End: start.Add(time.Hour)}},
	}))

	snap, err := s.LoadSnapshot()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), snap.Version)
	assert.Equal(t, model.StatusLoaded, snap.Status)
	require.Len(t, snap.Events, 1)
	assert.Equal(t, "A", snap.Events[0].Summary)
	assert.True(t, start.Equal(snap.Events[0].Start))
}

func TestOpenEmptyPath(t *testing.T) {
	_, err := Open("")
	assert.Error(t, err)
}

func TestStoreSatisfiesCacheStore(t *testing.T) {
	var _ ics.CacheStore = openTemp(t)
}
