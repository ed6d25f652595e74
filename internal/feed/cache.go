package feed

import (
	"slices"
	"sync"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"icalfeed/internal/model"
)

// Cache is the published feed state. The poller is its only writer; HTTP
// handlers read snapshots concurrently.
type Cache struct {
	mu        sync.RWMutex
	version   uint64
	status    model.Status
	events    []model.Event
	source    string
	updatedAt time.Time
}

func NewCache() *Cache {
	return &Cache{events: []model.Event{}}
}

// SetStatus records the state of the current fetch cycle.
func (c *Cache) SetStatus(s model.Status) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = s
}

// Update replaces the event list. The version is incremented only when the
// new list differs from the current one; the return value reports that.
func (c *Cache) Update(source string, events []model.Event, now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	changed := !cmp.Equal(c.events, events, cmpopts.EquateEmpty())
	if changed {
		c.version++
	}
	c.events = slices.Clone(events)
	c.source = source
	c.updatedAt = now
	return changed
}

// Snapshot returns a copy of the current state.
func (c *Cache) Snapshot() model.Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	events := slices.Clone(c.events)
	if events == nil {
		events = []model.Event{}
	}
	return model.Snapshot{
		Version:   c.version,
		Status:    c.status,
		Events:    events,
		Source:    c.source,
		UpdatedAt: c.updatedAt,
	}
}

// Version returns the current version.
func (c *Cache) Version() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

// Restore loads a persisted snapshot. Status is not restored; it always
// reflects the running process.
func (c *Cache) Restore(s model.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.version = s.Version
	c.events = slices.Clone(s.Events)
	c.source = s.Source
	c.updatedAt = s.UpdatedAt
}
