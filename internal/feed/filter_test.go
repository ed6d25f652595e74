package feed

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"icalfeed/internal/ics"
	"icalfeed/internal/model"
)

var filterNow = time.Date(2024, 7, 4, 12, 0, 0, 0, time.UTC)

const filterFixture = `BEGIN:VCALENDAR
BEGIN:VEVENT
UID:late
SUMMARY:Late
DTSTART:20240704T150000Z
DTEND:20240704T160000Z
X-MICROSOFT-CDO-BUSYSTATUS:BUSY
END:VEVENT
BEGIN:VEVENT
UID:early
SUMMARY:Early
DTSTART:20240704T090000Z
END:VEVENT
BEGIN:VEVENT
UID:far
SUMMARY:Far future
DTSTART:20240710T090000Z
END:VEVENT
BEGIN:VEVENT
UID:outlook-allday
SUMMARY:OOO
DTSTART:20240704T000000Z
X-MICROSOFT-CDO-ALLDAYEVENT:TRUE
END:VEVENT
BEGIN:VEVENT
UID:date-only
SUMMARY:Holiday
DTSTART;VALUE=DATE:20240704
END:VEVENT
BEGIN:VEVENT
UID:nostart
SUMMARY:Broken
DTSTART:sometime
END:VEVENT
BEGIN:VTODO
UID:todo
DTSTART:20240704T100000Z
END:VTODO
BEGIN:VEVENT
UID:series
SUMMARY:Series base
DTSTART:20240627T130000Z
RRULE:FREQ=WEEKLY
END:VEVENT
BEGIN:VEVENT
UID:series
RECURRENCE-ID:20240704T130000Z
SUMMARY:Series moved
DTSTART:20240704T140000Z
END:VEVENT
END:VCALENDAR`

func parseFixture(t *testing.T) *ics.Calendar {
	t.Helper()
	cal := ics.NewParser(ics.WithLocation(time.UTC)).Parse(strings.ReplaceAll(filterFixture, "\n", "\r\n"))
	require.NotNil(t, cal)
	return cal
}

func uids(events []model.Event) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.UID + "/" + e.Summary
	}
	return out
}

func TestFilterApply(t *testing.T) {
	got := Filter{Spread: 36 * time.Hour}.Apply(parseFixture(t), filterNow)

	assert.Equal(t, []string{"early/Early", "series/Series moved", "late/Late"}, uids(got))

	late := got[2]
	assert.Equal(t, "BUSY", late.BusyStatus)
	assert.True(t, late.End.Equal(time.Date(2024, 7, 4, 16, 0, 0, 0, time.UTC)))
	assert.True(t, got[0].End.IsZero())
}

func TestFilterIncludeAllDay(t *testing.T) {
	got := Filter{Spread: 36 * time.Hour, IncludeAllDay: true}.Apply(parseFixture(t), filterNow)
	assert.Contains(t, uids(got), "outlook-allday/OOO")
	assert.Contains(t, uids(got), "date-only/Holiday")
}

func TestFilterWindowEdges(t *testing.T) {
	f := Filter{Spread: 4 * time.Hour}
	assert.True(t, f.within(filterNow.Add(2*time.Hour), filterNow))
	assert.True(t, f.within(filterNow.Add(-2*time.Hour), filterNow))
	assert.False(t, f.within(filterNow.Add(2*time.Hour+time.Second), filterNow))
}

func TestFilterDefaults(t *testing.T) {
	assert.Empty(t, Filter{}.Apply(nil, filterNow))
	got := Filter{}.Apply(parseFixture(t), filterNow)
	assert.Len(t, got, 3)
}
