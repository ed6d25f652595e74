// Package ics parses iCalendar text into a tolerant object graph and fetches
// remote calendar feeds.
package ics

import (
	"time"

	appLog "icalfeed/internal/log"
)

// Parser converts iCalendar text into a Calendar graph. It tolerates
// malformed and vendor-specific input and never fails.
type Parser struct {
	loc   *time.Location
	zones ZoneResolver
}

// Option configures a Parser.
type Option func(*Parser)

// WithLocation sets the zone used for floating and date-only values.
// Defaults to time.Local.
func WithLocation(loc *time.Location) Option {
	return func(p *Parser) {
		if loc != nil {
			p.loc = loc
		}
	}
}

// WithZones replaces the TZID lookup table. Defaults to WindowsZones.
func WithZones(z ZoneResolver) Option {
	return func(p *Parser) {
		if z != nil {
			p.zones = z
		}
	}
}

// NewParser creates a Parser.
func NewParser(opts ...Option) *Parser {
	p := &Parser{
		loc:   time.Local,
		zones: WindowsZones,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ParseICS parses text with a default Parser.
func ParseICS(text string) *Calendar {
	return NewParser().Parse(text)
}

// Parse runs a single pass over the logical lines of text:
//
//   - lines without a structural colon are dropped
//   - BEGIN/END maintain the component stack
//   - everything else goes through the property dispatch table
//
// The graph is returned once END:VCALENDAR is seen. Input without one
// yields whatever record was current when the text ran out.
func (p *Parser) Parse(text string) *Calendar {
	b := newBuilder()
	lines := LogicalLines(text)

	dropped := 0
	for _, l := range lines {
		cl, ok := splitContentLine(l)
		if !ok {
			if l != "" {
				dropped++
			}
			continue
		}

		switch cl.name {
		case "BEGIN":
			b.begin(cl.value, cl.params)
		case "END":
			if b.end(cl.value) {
				return p.finish(b.curr, len(lines), dropped)
			}
		default:
			p.handleProperty(b.curr, cl.name, cl.value, cl.params, b.nested())
		}
	}
	return p.finish(b.curr, len(lines), dropped)
}

func (p *Parser) finish(root *Record, lines, dropped int) *Calendar {
	appLog.Debug("ics parse completed", "lines", lines, "dropped", dropped, "components", len(root.Children))
	return &Calendar{
		Fields:     root.Fields,
		Components: root.Children,
	}
}
