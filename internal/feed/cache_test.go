package feed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"icalfeed/internal/model"
)

func TestCacheVersionOnlyOnChange(t *testing.T) {
	c := NewCache()
	now := time.Date(2024, 7, 4, 12, 0, 0, 0, time.UTC)
	start := now.Add(time.Hour)

	assert.False(t, c.Update("u", nil, now), "empty to empty is not a change")
	assert.Equal(t, uint64(0), c.Version())

	events := []model.Event{{UID: "a", Summary: "A", Start: start}}
	assert.True(t, c.Update("u", events, now))
	assert.Equal(t, uint64(1), c.Version())

	// Same instant in another zone compares equal.
	same := []model.Event{{UID: "a", Summary: "A", Start: start.In(time.FixedZone("X", 3600))}}
	assert.False(t, c.Update("u", same, now))
	assert.Equal(t, uint64(1), c.Version())

	assert.True(t, c.Update("u", []model.Event{{UID: "a", Summary: "B", Start: start}}, now))
	assert.Equal(t, uint64(2), c.Version())
}

func TestCacheSnapshotIsCopy(t *testing.T) {
	c := NewCache()
	c.SetStatus(model.StatusLoaded)
	c.Update("u", []model.Event{{UID: "a"}}, time.Time{})

	snap := c.Snapshot()
	snap.Events[0].UID = "mutated"

	assert.Equal(t, "a", c.Snapshot().Events[0].UID)
	assert.Equal(t, model.StatusLoaded, snap.Status)
	assert.Equal(t, "u", snap.Source)
}

func TestCacheRestore(t *testing.T) {
	c := NewCache()
	c.SetStatus(model.StatusError)
	c.Restore(model.Snapshot{Version: 9, Status: model.StatusLoaded, Events: []model.Event{{UID: "x"}}, Source: "u"})

	snap := c.Snapshot()
	assert.Equal(t, uint64(9), snap.Version)
	assert.Equal(t, model.StatusError, snap.Status)
	assert.Len(t, snap.Events, 1)
}
