package ics

import (
	"maps"
	"strconv"
	"strings"

	appLog "icalfeed/internal/log"
)

// builder is the BEGIN/END state machine. curr is the record receiving
// properties; stack holds its ancestors, innermost last.
type builder struct {
	curr  *Record
	stack []*Record
	// anon counts generated keys per parent record.
	anon map[*Record]int
}

func newBuilder() *builder {
	return &builder{
		curr: newRecord("", nil),
		anon: map[*Record]int{},
	}
}

func (b *builder) nested() bool {
	return len(b.stack) > 0
}

func (b *builder) begin(typ string, tokens []string) {
	b.stack = append(b.stack, b.curr)
	b.curr = newRecord(typ, parseParams(tokens))
}

// end closes the current component. It reports true when the outermost
// calendar has been closed and b.curr holds the finished graph.
func (b *builder) end(typ string) bool {
	if typ == componentVCalendar {
		for k, v := range b.curr.Fields {
			if _, ok := v.(Text); ok {
				delete(b.curr.Fields, k)
			}
		}
		return true
	}

	if len(b.stack) == 0 {
		appLog.Debug("ics: ignoring END without matching BEGIN", "type", typ)
		return false
	}

	child := b.curr
	parent := b.stack[len(b.stack)-1]
	b.stack = b.stack[:len(b.stack)-1]
	b.curr = parent

	uid, ok := child.UID()
	if !ok {
		parent.Children[b.generatedKey(parent, child.Type)] = child
		return false
	}

	stored, seen := parent.Children[uid]
	if !seen {
		parent.Children[uid] = child
		stored = child
	} else if _, isOverride := child.Fields["recurrenceid"]; !isOverride {
		// Same UID without RECURRENCE-ID: the newer record wins field by
		// field, fields it lacks are kept.
		mergeInto(stored, child)
	}

	if rid, isOverride := child.Fields["recurrenceid"]; isOverride {
		d, ok := rid.(Date)
		if ok {
			if stored.Recurrences == nil {
				stored.Recurrences = map[string]*Record{}
			}
			stored.Recurrences[d.Key()] = cloneOverride(child)
		} else {
			appLog.Error("ics: cannot key RECURRENCE-ID", errUndecodableDate, "uid", uid)
		}
	}

	// An override seen before its rule leaves recurrenceid on the base.
	if _, hasRule := stored.Fields["rrule"]; hasRule {
		delete(stored.Fields, "recurrenceid")
	}
	return false
}

// generatedKey returns "<type>-<n>" for a record without UID, skipping keys
// already taken in parent.
func (b *builder) generatedKey(parent *Record, typ string) string {
	prefix := strings.ToLower(typ)
	if prefix == "" {
		prefix = "component"
	}
	for {
		b.anon[parent]++
		key := prefix + "-" + strconv.Itoa(b.anon[parent])
		if _, taken := parent.Children[key]; !taken {
			return key
		}
	}
}

func mergeInto(dst, src *Record) {
	dst.Type = src.Type
	dst.Params = src.Params
	maps.Copy(dst.Fields, src.Fields)
	maps.Copy(dst.Children, src.Children)
	if src.Recurrences != nil {
		dst.Recurrences = src.Recurrences
	}
}

// cloneOverride copies the record's own data without its recurrences so
// the override never shares a map with the base record.
func cloneOverride(r *Record) *Record {
	return &Record{
		Type:     r.Type,
		Params:   r.Params,
		Fields:   maps.Clone(r.Fields),
		Children: maps.Clone(r.Children),
	}
}
