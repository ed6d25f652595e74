package ics

import (
	"time"

	"github.com/teambition/rrule-go"
)

// Params holds decoded property parameters. Values are bool for TRUE/FALSE,
// float64 for numeric strings and string otherwise.
type Params map[string]any

// String returns the parameter as a string, formatting bools and numbers
// back to their textual form.
func (p Params) String(name string) (string, bool) {
	v, ok := p[name]
	if !ok {
		return "", false
	}
	switch t := v.(type) {
	case string:
		return t, true
	default:
		return formatScalar(t), true
	}
}

// Value is a decoded property value stored on a Record. The concrete type is
// one of Text, ParamText, Date, Geo, Categories, FreeBusyList, ExDates, RRule
// or Values.
type Value interface {
	isValue()
}

// Text is an unescaped TEXT value carried without parameters.
type Text string

// ParamText pairs an unescaped value with the parameters of its line.
type ParamText struct {
	Params Params
	Val    string
}

// Date is a decoded DATE or DATE-TIME value.
type Date struct {
	Time time.Time
	// DateOnly is set for VALUE=DATE values.
	DateOnly bool
	// TZ is the TZID parameter of the line, quotes removed. It is recorded
	// even when no offset could be applied.
	TZ string
}

// Key returns the date-only ISO key (YYYY-MM-DD) used by exception-date and
// recurrence-override maps. The date is taken in the value's own location.
func (d Date) Key() string {
	return d.Time.Format("2006-01-02")
}

// Geo is a decoded GEO value.
type Geo struct {
	Lat float64
	Lon float64
}

// Categories accumulates CATEGORIES entries across lines.
type Categories []string

// FreeBusy is one FREEBUSY line.
type FreeBusy struct {
	// Type is the FBTYPE parameter, "BUSY" when absent.
	Type string
	// Value is the raw period, stored the same way as a text property.
	Value Value
	// Start and End are Date when decodable, Text otherwise.
	Start Value
	End   Value
}

// FreeBusyList accumulates FREEBUSY lines in order.
type FreeBusyList []*FreeBusy

// ExDates maps date-only ISO keys to the excluded dates.
type ExDates map[string]Date

// RRule is a recurrence rule decoded by rrule-go. Only decoding happens
// here; occurrences are never expanded.
type RRule struct {
	Raw     string
	Options *rrule.ROption
}

// Values is the ordered sequence produced by repeated properties.
type Values []Value

func (Text) isValue()         {}
func (ParamText) isValue()    {}
func (Date) isValue()         {}
func (Geo) isValue()          {}
func (Categories) isValue()   {}
func (FreeBusyList) isValue() {}
func (ExDates) isValue()      {}
func (RRule) isValue()        {}
func (Values) isValue()       {}

// TextOf returns the textual content of v. For a sequence the first
// element is used.
func TextOf(v Value) (string, bool) {
	switch t := v.(type) {
	case Text:
		return string(t), true
	case ParamText:
		return t.Val, true
	case RRule:
		return t.Raw, true
	case Values:
		if len(t) == 0 {
			return "", false
		}
		return TextOf(t[0])
	default:
		return "", false
	}
}

// Record is a component under construction or finished: a VEVENT, VTIMEZONE,
// VCALENDAR and so on. Parent links are never stored; the builder keeps an
// explicit stack instead.
type Record struct {
	Type   string
	Params Params
	// Fields maps lower-cased property names (or aliases like "start") to
	// their values.
	Fields map[string]Value
	// Children holds nested components keyed by UID or a generated key.
	Children map[string]*Record
	// Recurrences maps RECURRENCE-ID date keys to override records.
	Recurrences map[string]*Record
}

func newRecord(typ string, params Params) *Record {
	return &Record{
		Type:     typ,
		Params:   params,
		Fields:   map[string]Value{},
		Children: map[string]*Record{},
	}
}

// Text returns the textual content of field name.
func (r *Record) Text(name string) (string, bool) {
	v, ok := r.Fields[name]
	if !ok {
		return "", false
	}
	return TextOf(v)
}

// Date returns field name when it decoded as a single Date.
func (r *Record) Date(name string) (Date, bool) {
	d, ok := r.Fields[name].(Date)
	return d, ok
}

// UID returns the record's uid field as a key.
func (r *Record) UID() (string, bool) {
	return r.Text("uid")
}

// Calendar is the parsed object graph: the outermost component's own
// non-scalar fields plus its child components keyed by UID.
type Calendar struct {
	Fields     map[string]Value
	Components map[string]*Record
}

// Events returns the top-level VEVENT records.
func (c *Calendar) Events() []*Record {
	out := make([]*Record, 0, len(c.Components))
	for _, r := range c.Components {
		if r.Type == componentVEvent {
			out = append(out, r)
		}
	}
	return out
}
