package ics

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	appLog "icalfeed/internal/log"
)

const (
	componentVCalendar = string(ical.ComponentVCalendar)
	componentVEvent    = string(ical.ComponentVEvent)

	propBusyStatus = "X-MICROSOFT-CDO-BUSYSTATUS"
)

// handler stores one property line into curr.
type handler func(p *Parser, curr *Record, val string, tokens []string)

// handlers is the per-property dispatch table. Names are matched
// case-sensitively.
var handlers = map[string]handler{
	string(ical.PropertySummary):         storeText("summary"),
	string(ical.PropertyDescription):     storeText("description"),
	string(ical.PropertyUrl):             storeText("url"),
	string(ical.PropertyUid):             storeText("uid"),
	string(ical.PropertyLocation):        storeText("location"),
	string(ical.PropertyTransp):          storeText("transp"),
	string(ical.PropertyPercentComplete): storeText("percent-complete"),
	propBusyStatus:                       storeText("x-microsoft-cdo-busystatus"),

	string(ical.PropertyDtstart):      storeDate("start"),
	string(ical.PropertyDtend):        storeDate("end"),
	string(ical.PropertyDtstamp):      storeDate("dtstamp"),
	string(ical.PropertyCreated):      storeDate("created"),
	string(ical.PropertyLastModified): storeDate("lastmodified"),
	string(ical.PropertyCompleted):    storeDate("completed"),
	string(ical.PropertyRecurrenceId): storeDate("recurrenceid"),

	string(ical.PropertyExdate):     storeExDates("exdate"),
	string(ical.PropertyGeo):        storeGeo("geo"),
	string(ical.PropertyCategories): storeCategories("categories"),
	string(ical.PropertyFreebusy):   storeFreeBusy("freebusy"),
	string(ical.PropertyRrule):      storeRRule("rrule"),
}

// vendorRe matches extension names such as X-WR-CALNAME.
var vendorRe = regexp.MustCompile(`^X-[\w-]+`)

func (p *Parser) handleProperty(curr *Record, name, val string, tokens []string, nested bool) {
	if h, ok := handlers[name]; ok {
		h(p, curr, val, tokens)
		return
	}
	if nested && vendorRe.MatchString(name) {
		storeText(name[2:])(p, curr, val, tokens)
		return
	}
	storeText(strings.ToLower(name))(p, curr, val, tokens)
}

// accumulate stores v under name: the first value is kept bare, the second
// turns the field into a two-element sequence and later ones append.
func accumulate(curr *Record, name string, v Value) {
	switch existing := curr.Fields[name].(type) {
	case nil:
		curr.Fields[name] = v
	case Values:
		curr.Fields[name] = append(existing, v)
	default:
		curr.Fields[name] = Values{existing, v}
	}
}

// textValue unescapes val and attaches the line's parameters when they are
// not trivial.
func textValue(val string, tokens []string) Value {
	if plainParams(tokens) {
		return Text(unescapeText(val))
	}
	return ParamText{Params: parseParams(tokens), Val: unescapeText(val)}
}

func storeText(name string) handler {
	return func(_ *Parser, curr *Record, val string, tokens []string) {
		accumulate(curr, name, textValue(val, tokens))
	}
}

func storeDate(name string) handler {
	return func(p *Parser, curr *Record, val string, tokens []string) {
		accumulate(curr, name, p.decodeDate(val, tokens))
	}
}

var listSep = regexp.MustCompile(`\s*,\s*`)

func splitList(val string) []string {
	if val == "" {
		return nil
	}
	return listSep.Split(val, -1)
}

// storeExDates indexes each comma-separated entry by its date key. Time of
// day is dropped on purpose so floating and zoned exclusions both match.
func storeExDates(name string) handler {
	return func(p *Parser, curr *Record, val string, tokens []string) {
		set, ok := curr.Fields[name].(ExDates)
		if !ok {
			set = ExDates{}
			curr.Fields[name] = set
		}
		for _, entry := range splitList(val) {
			if entry == "" {
				continue
			}
			d, ok := p.decodeDate(entry, tokens).(Date)
			if !ok {
				appLog.Error("ics: skipping undecodable EXDATE entry", errUndecodableDate, "value", entry)
				continue
			}
			set[d.Key()] = d
		}
	}
}

func storeGeo(name string) handler {
	return func(_ *Parser, curr *Record, val string, _ []string) {
		lat, lon, _ := strings.Cut(val, ";")
		curr.Fields[name] = Geo{Lat: parseNumber(lat), Lon: parseNumber(lon)}
	}
}

func parseNumber(s string) float64 {
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return math.NaN()
	}
	return n
}

func storeCategories(name string) handler {
	return func(_ *Parser, curr *Record, val string, _ []string) {
		existing, ok := curr.Fields[name].(Categories)
		if !ok {
			existing = Categories{}
		}
		curr.Fields[name] = append(existing, splitList(val)...)
	}
}

func storeFreeBusy(name string) handler {
	return func(p *Parser, curr *Record, val string, tokens []string) {
		fbType := "BUSY"
		if t, ok := parseParams(tokens).String("FBTYPE"); ok {
			fbType = t
		}
		start, end, _ := strings.Cut(val, "/")
		fb := &FreeBusy{
			Type:  fbType,
			Value: textValue(val, tokens),
			Start: p.decodeDate(start, tokens),
			End:   p.decodeDate(end, tokens),
		}
		list, _ := curr.Fields[name].(FreeBusyList)
		curr.Fields[name] = append(list, fb)
	}
}

// storeRRule keeps rules rrule-go understands as RRule and everything else
// as text.
func storeRRule(name string) handler {
	return func(p *Parser, curr *Record, val string, tokens []string) {
		opts, err := rrule.StrToROption(val)
		if err != nil {
			appLog.Debug("ics: keeping RRULE as text", "rrule", val, "reason", err.Error())
			accumulate(curr, name, textValue(val, tokens))
			return
		}
		accumulate(curr, name, RRule{Raw: val, Options: opts})
	}
}
