package feed

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"icalfeed/internal/ics"
	"icalfeed/internal/model"
)

const pollBody = "BEGIN:VCALENDAR\r\nBEGIN:VEVENT\r\nUID:a\r\nSUMMARY:Standup\r\nDTSTART:20240704T130000Z\r\nEND:VEVENT\r\nEND:VCALENDAR\r\n"

type fetchFunc func(ctx context.Context, src ics.Source) (ics.FetchResult, error)

func (f fetchFunc) Fetch(ctx context.Context, src ics.Source) (ics.FetchResult, error) {
	return f(ctx, src)
}

func bodyFetcher(body string) fetchFunc {
	return func(_ context.Context, src ics.Source) (ics.FetchResult, error) {
		return ics.FetchResult{Source: src, Body: []byte(body)}, nil
	}
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

// After never fires; tests drive the loop through wake-ups and cancellation.
func (c *fakeClock) After(time.Duration) <-chan time.Time { return nil }

type memSnapshots struct {
	mu    sync.Mutex
	snap  *model.Snapshot
	saves int
}

func (m *memSnapshots) LoadSnapshot() (model.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snap == nil {
		return model.Snapshot{}, errors.New("empty")
	}
	return *m.snap, nil
}

func (m *memSnapshots) SaveSnapshot(s model.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap = &s
	m.saves++
	return nil
}

var testSource = ics.Source{ID: "work", URL: "https://cal.example.com/work.ics"}

func newTestPoller(f Fetcher, opts Options) (*Poller, *Cache) {
	if opts.Clock == nil {
		opts.Clock = &fakeClock{now: time.Date(2024, 7, 4, 12, 0, 0, 0, time.UTC)}
	}
	opts.Parser = ics.NewParser(ics.WithLocation(time.UTC))
	cache := NewCache()
	return NewPoller(cache, f, testSource, opts), cache
}

func TestPollerCyclePublishes(t *testing.T) {
	store := &memSnapshots{}
	var updates []model.Snapshot
	p, cache := newTestPoller(bodyFetcher(pollBody), Options{
		Store:    store,
		OnUpdate: func(s model.Snapshot) { updates = append(updates, s) },
	})

	wait := p.cycle(context.Background())
	assert.Equal(t, 5*time.Minute, wait)

	snap := cache.Snapshot()
	assert.Equal(t, model.StatusLoaded, snap.Status)
	assert.Equal(t, uint64(1), snap.Version)
	require.Len(t, snap.Events, 1)
	assert.Equal(t, "Standup", snap.Events[0].Summary)
	assert.Equal(t, testSource.URL, snap.Source)
	assert.Equal(t, 1, store.saves)

	// Unchanged content keeps the version and skips persistence.
	p.cycle(context.Background())
	assert.Equal(t, uint64(1), cache.Version())
	assert.Equal(t, 1, store.saves)
	assert.Len(t, updates, 2)
}

func TestPollerInvalidSource(t *testing.T) {
	var calls atomic.Int32
	f := fetchFunc(func(context.Context, ics.Source) (ics.FetchResult, error) {
		calls.Add(1)
		return ics.FetchResult{}, nil
	})
	p, cache := newTestPoller(f, Options{InvalidRetry: 3 * time.Second})
	p.SetSource(ics.Source{ID: "bad", URL: "ftp://example.com/x.ics"})

	assert.Equal(t, 3*time.Second, p.cycle(context.Background()))
	assert.Equal(t, model.StatusInvalid, cache.Snapshot().Status)
	assert.Zero(t, calls.Load())
}

func TestPollerFetchErrorReschedules(t *testing.T) {
	f := fetchFunc(func(context.Context, ics.Source) (ics.FetchResult, error) {
		return ics.FetchResult{}, errors.New("503 Service Unavailable")
	})
	sched, err := ParseSchedule("@every 2m")
	require.NoError(t, err)
	p, cache := newTestPoller(f, Options{Schedule: sched})

	assert.Equal(t, 2*time.Minute, p.cycle(context.Background()))
	assert.Equal(t, model.StatusError, cache.Snapshot().Status)
}

func TestPollerDiscardsStaleResult(t *testing.T) {
	var p *Poller
	f := fetchFunc(func(_ context.Context, src ics.Source) (ics.FetchResult, error) {
		// The source is replaced while this fetch is in flight.
		p.SetSource(ics.Source{ID: "home", URL: "https://cal.example.com/home.ics"})
		return ics.FetchResult{Source: src, Body: []byte(pollBody)}, nil
	})
	p, cache := newTestPoller(f, Options{})

	assert.Zero(t, p.cycle(context.Background()))
	assert.Zero(t, cache.Version())
	assert.Empty(t, cache.Snapshot().Events)
	assert.Equal(t, "home", p.Source().ID)
}

func TestPollerRestore(t *testing.T) {
	stored := model.Snapshot{Version: 7, Source: testSource.URL, Events: []model.Event{{UID: "x"}}}
	p, cache := newTestPoller(bodyFetcher(pollBody), Options{Store: &memSnapshots{snap: &stored}})
	p.restore()
	assert.Equal(t, uint64(7), cache.Version())

	other := stored
	other.Source = "https://cal.example.com/other.ics"
	p, cache = newTestPoller(bodyFetcher(pollBody), Options{Store: &memSnapshots{snap: &other}})
	p.restore()
	assert.Zero(t, cache.Version())
}

func TestPollerRunWakesOnSourceChange(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first := make(chan struct{})
	var calls atomic.Int32
	var seen sync.Map
	f := fetchFunc(func(ctx context.Context, src ics.Source) (ics.FetchResult, error) {
		seen.Store(src.ID, true)
		if calls.Add(1) == 1 {
			close(first)
			return ics.FetchResult{Source: src, Body: []byte(pollBody)}, nil
		}
		cancel()
		return ics.FetchResult{}, ctx.Err()
	})
	p, _ := newTestPoller(f, Options{})

	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	<-first
	p.SetSource(ics.Source{ID: "home", URL: "https://cal.example.com/home.ics"})

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("poller did not stop")
	}
	_, ok := seen.Load("home")
	assert.True(t, ok)
}

func TestParseSchedule(t *testing.T) {
	sched, err := ParseSchedule("*/15 * * * *")
	require.NoError(t, err)
	from := time.Date(2024, 7, 4, 12, 7, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 7, 4, 12, 15, 0, 0, time.UTC), sched.Next(from))

	_, err = ParseSchedule("every now and then")
	assert.Error(t, err)
}
