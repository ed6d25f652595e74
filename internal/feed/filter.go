package feed

import (
	"cmp"
	"slices"
	"time"

	"icalfeed/internal/ics"
	appLog "icalfeed/internal/log"
	"icalfeed/internal/model"
)

const (
	fieldAllDay     = "MICROSOFT-CDO-ALLDAYEVENT"
	fieldBusyStatus = "x-microsoft-cdo-busystatus"
)

// DefaultSpread is the width of the display window centred on now.
const DefaultSpread = 36 * time.Hour

// Filter selects the events worth displaying from a parsed calendar.
type Filter struct {
	// Spread is the total window; events starting within Spread/2 either
	// side of now are kept.
	Spread time.Duration
	// IncludeAllDay keeps all-day events, which are dropped by default.
	IncludeAllDay bool
}

// Apply walks the top-level VEVENTs of cal. A recurring event with
// overrides contributes its override records instead of itself. The result
// is sorted by start time.
func (f Filter) Apply(cal *ics.Calendar, now time.Time) []model.Event {
	if f.Spread <= 0 {
		f.Spread = DefaultSpread
	}
	out := make([]model.Event, 0)
	if cal == nil {
		return out
	}
	out = f.collect(out, cal.Components, now)

	slices.SortFunc(out, func(a, b model.Event) int {
		return cmp.Or(
			a.Start.Compare(b.Start),
			cmp.Compare(a.UID, b.UID),
			a.End.Compare(b.End),
			cmp.Compare(a.Summary, b.Summary),
		)
	})
	return out
}

func (f Filter) collect(out []model.Event, records map[string]*ics.Record, now time.Time) []model.Event {
	for _, rec := range records {
		if rec.Type != "VEVENT" {
			continue
		}
		if len(rec.Recurrences) > 0 {
			out = f.collect(out, rec.Recurrences, now)
			continue
		}
		ev, ok := toEvent(rec)
		if !ok {
			continue
		}
		if !f.IncludeAllDay && isAllDay(rec) {
			continue
		}
		if !f.within(ev.Start, now) {
			continue
		}
		out = append(out, ev)
	}
	return out
}

func (f Filter) within(t, now time.Time) bool {
	half := f.Spread / 2
	return !t.Before(now.Add(-half)) && !t.After(now.Add(half))
}

func isAllDay(rec *ics.Record) bool {
	if v, ok := rec.Text(fieldAllDay); ok && v == "TRUE" {
		return true
	}
	start, ok := rec.Date("start")
	return ok && start.DateOnly
}

func toEvent(rec *ics.Record) (model.Event, bool) {
	start, ok := rec.Date("start")
	if !ok {
		uid, _ := rec.UID()
		appLog.Debug("feed: skipping event without usable start", "uid", uid)
		return model.Event{}, false
	}
	ev := model.Event{Start: start.Time}
	ev.UID, _ = rec.UID()
	ev.Summary, _ = rec.Text("summary")
	ev.BusyStatus, _ = rec.Text(fieldBusyStatus)
	if end, ok := rec.Date("end"); ok {
		ev.End = end.Time
	}
	return ev, true
}
