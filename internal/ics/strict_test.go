package ics

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rawStart renders d the way it appears in a DTSTART value.
func rawStart(d Date) string {
	switch {
	case d.DateOnly:
		return d.Time.Format("20060102")
	case d.TZ == "" && d.Time.Location() == time.UTC:
		return d.Time.Format("20060102T150405") + "Z"
	default:
		return d.Time.Format("20060102T150405")
	}
}

func TestStrictParserAgreesOnFixture(t *testing.T) {
	data, err := os.ReadFile("testdata/outlook.ics")
	require.NoError(t, err)
	text := string(data)

	cal := NewParser(WithLocation(time.UTC)).Parse(text)
	report := CrossCheck(cal, text)
	require.Empty(t, report.Error)
	assert.Empty(t, report.Missing)
	assert.Empty(t, report.Mismatched)
	require.Len(t, report.Events, 5)

	for _, se := range report.Events {
		rec := cal.Components[se.UID]
		require.NotNil(t, rec, se.UID)
		if se.RecurrenceID != "" {
			var found bool
			for _, o := range rec.Recurrences {
				if start, ok := o.Date("start"); ok && rawStart(start) == se.Start {
					found = true
				}
			}
			assert.True(t, found, "override start %s of %s", se.Start, se.UID)
			continue
		}
		start, ok := rec.Date("start")
		require.True(t, ok, se.UID)
		assert.Equal(t, se.Start, rawStart(start), se.UID)
	}
}

func TestCrossCheckReportsDifferences(t *testing.T) {
	text := calendar(
		"BEGIN:VEVENT",
		"UID:a",
		"SUMMARY:First",
		"DTSTART:20240704T090000Z",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"UID:a",
		"SUMMARY:Second",
		"DTSTART:20240704T090000Z",
		"END:VEVENT",
	)
	report := CrossCheck(ParseICS(text), text)
	require.Empty(t, report.Error)
	// The duplicate UID is merged into one record carrying the later summary.
	assert.Equal(t, []string{"a"}, report.Mismatched)
	assert.Empty(t, report.Missing)

	other := CrossCheck(&Calendar{Components: map[string]*Record{}}, text)
	assert.Equal(t, []string{"a"}, other.Missing)
}

func TestCrossCheckStrictFailure(t *testing.T) {
	// No VCALENDAR wrapper: the tolerant parser still keys the event.
	text := "BEGIN:VEVENT\r\nUID:a\r\nEND:VEVENT\r\n"
	cal := ParseICS(text)
	assert.Contains(t, cal.Components, "a")
	report := CrossCheck(cal, text)
	assert.NotEmpty(t, report.Error)
	assert.Empty(t, report.Events)
}
