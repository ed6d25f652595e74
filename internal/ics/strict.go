package ics

import (
	"fmt"
	"slices"
	"strings"

	ical "github.com/arran4/golang-ical"
)

// StrictEvent is a VEVENT as read by golang-ical's RFC 5545 parser.
type StrictEvent struct {
	UID     string `json:"uid"`
	Summary string `json:"summary,omitempty"`
	// Start is the raw DTSTART value.
	Start string `json:"start,omitempty"`
	// RecurrenceID is the raw RECURRENCE-ID value of an override.
	RecurrenceID string `json:"recurrenceId,omitempty"`
}

// StrictReport compares the tolerant graph with a strict parse of the same
// text.
type StrictReport struct {
	// Error is set when the strict parser rejected the text.
	Error  string        `json:"error,omitempty"`
	Events []StrictEvent `json:"events"`
	// Missing lists strict UIDs absent from the graph.
	Missing []string `json:"missing,omitempty"`
	// Mismatched lists UIDs whose summary differs between the two parses.
	Mismatched []string `json:"mismatched,omitempty"`
}

// StrictEvents parses text with golang-ical and returns its VEVENTs in
// document order.
func StrictEvents(text string) ([]StrictEvent, error) {
	cal, err := ical.ParseCalendar(strings.NewReader(text))
	if err != nil {
		return nil, fmt.Errorf("ics: strict parse: %w", err)
	}

	events := cal.Events()
	out := make([]StrictEvent, 0, len(events))
	for _, ev := range events {
		se := StrictEvent{UID: ev.Id()}
		if p := ev.GetProperty(ical.ComponentPropertySummary); p != nil {
			se.Summary = unescapeText(p.Value)
		}
		if p := ev.GetProperty(ical.ComponentPropertyDtStart); p != nil {
			se.Start = p.Value
		}
		if p := ev.GetProperty(ical.ComponentPropertyRecurrenceId); p != nil {
			se.RecurrenceID = p.Value
		}
		out = append(out, se)
	}
	return out, nil
}

// CrossCheck runs the strict parser over text and reports where it
// disagrees with cal. An override is matched against the recurrences of
// its base record.
func CrossCheck(cal *Calendar, text string) StrictReport {
	events, err := StrictEvents(text)
	if err != nil {
		return StrictReport{Error: err.Error(), Events: []StrictEvent{}}
	}

	report := StrictReport{Events: events}
	for _, se := range events {
		rec, ok := cal.Components[se.UID]
		if !ok {
			if !slices.Contains(report.Missing, se.UID) {
				report.Missing = append(report.Missing, se.UID)
			}
			continue
		}
		if !summaryMatches(rec, se) && !slices.Contains(report.Mismatched, se.UID) {
			report.Mismatched = append(report.Mismatched, se.UID)
		}
	}
	return report
}

func summaryMatches(rec *Record, se StrictEvent) bool {
	candidates := []*Record{rec}
	if se.RecurrenceID != "" {
		candidates = nil
		for _, r := range rec.Recurrences {
			candidates = append(candidates, r)
		}
	}
	for _, r := range candidates {
		if s, _ := r.Text("summary"); s == se.Summary {
			return true
		}
	}
	return false
}
