package main

import (
	"encoding/json"
	"errors"
	"io"
	"os"
	"slices"
	"time"

	"github.com/urfave/cli"

	"icalfeed/internal/feed"
	"icalfeed/internal/ics"
)

var parseCmd = cli.Command{
	Name:      "parse",
	Usage:     "Parse a local .ics file and print a summary of its components",
	ArgsUsage: "FILE",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "tz",
			Usage: "IANA zone for floating times (default: system zone)",
		},
		&cli.BoolFlag{
			Name:  "strict",
			Usage: "Also parse with the RFC 5545 parser and report where it disagrees",
		},
	},
	Action: parseFile,
}

var eventsCmd = cli.Command{
	Name:      "events",
	Usage:     "Print the events of a local .ics file around a point in time",
	ArgsUsage: "FILE",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "tz",
			Usage: "IANA zone for floating times (default: system zone)",
		},
		&cli.StringFlag{
			Name:  "now",
			Usage: "Centre of the window as RFC 3339 (default: current time)",
		},
		&cli.DurationFlag{
			Name:  "spread",
			Usage: "Width of the window",
			Value: feed.DefaultSpread,
		},
		&cli.BoolFlag{
			Name:  "all-day",
			Usage: "Include all-day events",
		},
	},
	Action: listEvents,
}

// componentSummary is the printable outline of one record.
type componentSummary struct {
	Key         string             `json:"key"`
	Type        string             `json:"type"`
	Summary     string             `json:"summary,omitempty"`
	Start       *time.Time         `json:"start,omitempty"`
	Fields      []string           `json:"fields"`
	Recurrences []string           `json:"recurrences,omitempty"`
	Children    []componentSummary `json:"children,omitempty"`
}

type calendarSummary struct {
	Fields     []string           `json:"fields"`
	Components []componentSummary `json:"components"`
	Strict     *ics.StrictReport  `json:"strict,omitempty"`
}

func summarize(cal *ics.Calendar) calendarSummary {
	return calendarSummary{
		Fields:     sortedKeys(cal.Fields),
		Components: summarizeChildren(cal.Components),
	}
}

func summarizeChildren(records map[string]*ics.Record) []componentSummary {
	out := make([]componentSummary, 0, len(records))
	for _, key := range sortedKeys(records) {
		rec := records[key]
		s := componentSummary{
			Key:         key,
			Type:        rec.Type,
			Fields:      sortedKeys(rec.Fields),
			Recurrences: sortedKeys(rec.Recurrences),
			Children:    summarizeChildren(rec.Children),
		}
		s.Summary, _ = rec.Text("summary")
		if d, ok := rec.Date("start"); ok {
			s.Start = &d.Time
		}
		out = append(out, s)
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func parserFromFlags(c *cli.Context) (*ics.Parser, error) {
	name := c.String("tz")
	if name == "" {
		return ics.NewParser(), nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, err
	}
	return ics.NewParser(ics.WithLocation(loc)), nil
}

func readArg(c *cli.Context) (string, error) {
	path := c.Args().First()
	if path == "" {
		return "", errors.New("missing FILE argument")
	}
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		return string(data), err
	}
	data, err := os.ReadFile(path)
	return string(data), err
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseFile(c *cli.Context) error {
	p, err := parserFromFlags(c)
	if err != nil {
		return err
	}
	text, err := readArg(c)
	if err != nil {
		return err
	}
	cal := p.Parse(text)
	out := summarize(cal)
	if c.Bool("strict") {
		report := ics.CrossCheck(cal, text)
		out.Strict = &report
	}
	return printJSON(os.Stdout, out)
}

func listEvents(c *cli.Context) error {
	p, err := parserFromFlags(c)
	if err != nil {
		return err
	}
	text, err := readArg(c)
	if err != nil {
		return err
	}

	now := time.Now()
	if v := c.String("now"); v != "" {
		if now, err = time.Parse(time.RFC3339, v); err != nil {
			return err
		}
	}

	f := feed.Filter{Spread: c.Duration("spread"), IncludeAllDay: c.Bool("all-day")}
	return printJSON(os.Stdout, f.Apply(p.Parse(text), now))
}
