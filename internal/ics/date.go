package ics

import (
	"regexp"
	"strconv"
	"time"
)

var (
	dateOnlyRe = regexp.MustCompile(`^(\d{4})(\d{2})(\d{2})$`)
	dateTimeRe = regexp.MustCompile(`^(\d{4})(\d{2})(\d{2})T(\d{2})(\d{2})(\d{2})(Z)?$`)
)

const isoWithOffset = "2006-01-02T15:04:05-07:00"

// decodeDate turns a DATE or DATE-TIME value into a Date. When neither
// shape matches, the unescaped text is returned instead.
func (p *Parser) decodeDate(val string, tokens []string) Value {
	params := parseParams(tokens)
	tz := tzidParam(params)

	if len(tokens) > 0 && tokens[0] == "VALUE=DATE" {
		if m := dateOnlyRe.FindStringSubmatch(val); m != nil {
			return Date{
				Time:     time.Date(atoi(m[1]), time.Month(atoi(m[2])), atoi(m[3]), 0, 0, 0, 0, p.loc),
				DateOnly: true,
				TZ:       tz,
			}
		}
	}

	m := dateTimeRe.FindStringSubmatch(val)
	if m == nil {
		return Text(unescapeText(val))
	}

	if m[7] == "Z" {
		return Date{
			Time: time.Date(atoi(m[1]), time.Month(atoi(m[2])), atoi(m[3]), atoi(m[4]), atoi(m[5]), atoi(m[6]), 0, time.UTC),
			TZ:   tz,
		}
	}

	if tz != "" {
		if off, ok := p.zones.Offset(tz); ok {
			iso := m[1] + "-" + m[2] + "-" + m[3] + "T" + m[4] + ":" + m[5] + ":" + m[6] + off
			if t, err := time.Parse(isoWithOffset, iso); err == nil {
				return Date{Time: t, TZ: tz}
			}
		}
	}

	// Floating time, or a TZID we cannot place.
	return Date{
		Time: time.Date(atoi(m[1]), time.Month(atoi(m[2])), atoi(m[3]), atoi(m[4]), atoi(m[5]), atoi(m[6]), 0, p.loc),
		TZ:   tz,
	}
}

// atoi is only called on regexp-matched digit groups.
func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
