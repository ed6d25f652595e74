package feed

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"icalfeed/internal/ics"
	appLog "icalfeed/internal/log"
	"icalfeed/internal/model"
)

// DefaultInvalidRetry is the delay before re-checking an invalid source URL.
const DefaultInvalidRetry = time.Second

// Fetcher retrieves calendar text for a source.
type Fetcher interface {
	Fetch(ctx context.Context, src ics.Source) (ics.FetchResult, error)
}

// Clock abstracts time for the poller.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// SnapshotStore persists the published state across restarts.
type SnapshotStore interface {
	LoadSnapshot() (model.Snapshot, error)
	SaveSnapshot(model.Snapshot) error
}

// ParseSchedule parses a cron expression or descriptor such as
// "*/15 * * * *" or "@every 5m".
func ParseSchedule(expr string) (cron.Schedule, error) {
	return cron.ParseStandard(expr)
}

// Options configures a Poller. Zero values get defaults.
type Options struct {
	// Schedule decides the delay after each completed cycle: the next run
	// is Schedule.Next(completion time). Defaults to every 5 minutes.
	Schedule     cron.Schedule
	InvalidRetry time.Duration
	Filter       Filter
	Parser       *ics.Parser
	Clock        Clock
	Store        SnapshotStore
	Metrics      *Metrics
	// OnUpdate is called after every successful cycle with the new state.
	OnUpdate func(model.Snapshot)
}

// Poller fetches one source at a time, publishes the filtered events to a
// Cache and reschedules itself after every cycle, failed or not.
type Poller struct {
	cache   *Cache
	fetcher Fetcher
	opts    Options

	mu    sync.Mutex
	src   ics.Source
	token uint64

	wake chan struct{}
}

// NewPoller creates a Poller for src.
func NewPoller(cache *Cache, fetcher Fetcher, src ics.Source, opts Options) *Poller {
	if opts.Schedule == nil {
		opts.Schedule = cron.Every(5 * time.Minute)
	}
	if opts.InvalidRetry <= 0 {
		opts.InvalidRetry = DefaultInvalidRetry
	}
	if opts.Parser == nil {
		opts.Parser = ics.NewParser()
	}
	if opts.Clock == nil {
		opts.Clock = realClock{}
	}
	return &Poller{
		cache:   cache,
		fetcher: fetcher,
		opts:    opts,
		src:     src,
		wake:    make(chan struct{}, 1),
	}
}

// SetSource switches to a new source. A fetch already in flight for the
// previous source is discarded when it completes.
func (p *Poller) SetSource(src ics.Source) {
	p.mu.Lock()
	p.src = src
	p.token++
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Source returns the current source.
func (p *Poller) Source() ics.Source {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.src
}

func (p *Poller) current() (ics.Source, uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.src, p.token
}

func (p *Poller) isCurrent(token uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.token == token
}

// Run polls until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) error {
	p.restore()

	for {
		// A wake-up queued during the cycle is already served by it.
		select {
		case <-p.wake:
		default:
		}

		wait := p.cycle(ctx)
		if err := ctx.Err(); err != nil {
			return err
		}
		if wait <= 0 {
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.wake:
		case <-p.opts.Clock.After(wait):
		}
	}
}

// cycle runs one fetch and returns the delay before the next one. A zero
// delay means the source changed while fetching.
func (p *Poller) cycle(ctx context.Context) time.Duration {
	src, token := p.current()

	if _, err := ics.ValidateURL(src.URL); err != nil {
		p.cache.SetStatus(model.StatusInvalid)
		p.opts.Metrics.fetch(resultInvalid)
		appLog.Error("feed: invalid source, retrying", err, "id", src.ID, "url", appLog.RedactURL(src.URL))
		return p.opts.InvalidRetry
	}

	p.cache.SetStatus(model.StatusLoading)
	res, err := p.fetcher.Fetch(ctx, src)

	if !p.isCurrent(token) {
		p.opts.Metrics.fetch(resultStale)
		appLog.Info("feed: discarding result for replaced source", "id", src.ID, "url", appLog.RedactURL(src.URL))
		return 0
	}

	if err != nil {
		p.cache.SetStatus(model.StatusError)
		if !errors.Is(err, context.Canceled) {
			p.opts.Metrics.fetch(resultError)
			appLog.Error("feed: fetch failed", err, "id", src.ID, "url", appLog.RedactURL(src.URL))
		}
		return p.nextDelay()
	}

	if res.FromCache {
		p.opts.Metrics.fetch(resultCached)
	} else {
		p.opts.Metrics.fetch(resultOK)
	}

	started := p.opts.Clock.Now()
	cal := p.opts.Parser.Parse(string(res.Body))
	events := p.opts.Filter.Apply(cal, started)
	p.opts.Metrics.parsed(p.opts.Clock.Now().Sub(started))

	changed := p.cache.Update(src.URL, events, started)
	p.cache.SetStatus(model.StatusLoaded)
	snap := p.cache.Snapshot()
	p.opts.Metrics.published(snap.Version, len(snap.Events))

	if changed {
		appLog.Info("feed: events changed", "id", src.ID, "version", snap.Version, "event_count", len(snap.Events))
		p.persist(snap)
	}
	if p.opts.OnUpdate != nil {
		p.opts.OnUpdate(snap)
	}
	return p.nextDelay()
}

func (p *Poller) nextDelay() time.Duration {
	now := p.opts.Clock.Now()
	d := p.opts.Schedule.Next(now).Sub(now)
	if d <= 0 {
		// A schedule with no future activation would spin.
		d = time.Minute
	}
	return d
}

func (p *Poller) persist(snap model.Snapshot) {
	if p.opts.Store == nil {
		return
	}
	if err := p.opts.Store.SaveSnapshot(snap); err != nil {
		appLog.Error("feed: snapshot save failed", err)
	}
}

// restore seeds the cache from the store when the stored snapshot belongs
// to the current source.
func (p *Poller) restore() {
	if p.opts.Store == nil {
		return
	}
	snap, err := p.opts.Store.LoadSnapshot()
	if err != nil {
		appLog.Debug("feed: no snapshot restored", "reason", err.Error())
		return
	}
	src, _ := p.current()
	if snap.Source != src.URL {
		return
	}
	p.cache.Restore(snap)
	p.opts.Metrics.published(snap.Version, len(snap.Events))
	appLog.Info("feed: restored snapshot", "version", snap.Version, "event_count", len(snap.Events))
}
