package ics

import (
	"regexp"
	"strconv"
	"strings"
)

// lineBreak detects the line-break convention from the first embedded
// break. The first character is skipped so a leading newline does not
// decide the result.
func lineBreak(text string) string {
	lf := -1
	if len(text) > 1 {
		if i := strings.IndexByte(text[1:], '\n'); i >= 0 {
			lf = i + 1
		}
	}
	if lf == -1 {
		if strings.IndexByte(text, '\r') >= 0 {
			return "\r"
		}
		return "\n"
	}
	if text[lf-1] == '\r' {
		return "\r\n"
	}
	return "\n"
}

// splitLines splits text into physical lines. For CRLF input a bare LF is
// also accepted as a break, matching feeds that mix the two.
func splitLines(text, brk string) []string {
	switch brk {
	case "\r\n":
		lines := strings.Split(text, "\n")
		for i, l := range lines {
			lines[i] = strings.TrimSuffix(l, "\r")
		}
		return lines
	default:
		return strings.Split(text, brk)
	}
}

// unfold reverses RFC 5545 section 3.1 folding: a physical line starting
// with a space or tab continues the previous logical line.
func unfold(lines []string) []string {
	out := make([]string, 0, len(lines))
	for i := 0; i < len(lines); i++ {
		var b strings.Builder
		b.WriteString(lines[i])
		for i+1 < len(lines) && isContinuation(lines[i+1]) {
			b.WriteString(lines[i+1][1:])
			i++
		}
		out = append(out, b.String())
	}
	return out
}

func isContinuation(l string) bool {
	return len(l) > 0 && (l[0] == ' ' || l[0] == '\t')
}

// LogicalLines returns the unfolded content lines of text.
func LogicalLines(text string) []string {
	return unfold(splitLines(text, lineBreak(text)))
}

// contentLine is one logical line split into its parts.
type contentLine struct {
	name   string
	params []string
	value  string
}

// splitContentLine splits at the first colon outside double quotes. Lines
// without such a colon are reported as not ok.
func splitContentLine(l string) (contentLine, bool) {
	quoted := false
	at := -1
	for i := 0; i < len(l); i++ {
		switch l[i] {
		case '"':
			quoted = !quoted
		case ':':
			if !quoted {
				at = i
			}
		}
		if at >= 0 {
			break
		}
	}
	if at < 0 {
		return contentLine{}, false
	}
	parts := strings.Split(l[:at], ";")
	return contentLine{
		name:   parts[0],
		params: parts[1:],
		value:  l[at+1:],
	}, true
}

// parseParams decodes KEY=VALUE tokens. Tokens without '=' are ignored.
func parseParams(tokens []string) Params {
	out := Params{}
	for _, tok := range tokens {
		k, v, ok := strings.Cut(tok, "=")
		if !ok {
			continue
		}
		out[k] = parseScalar(v)
	}
	return out
}

func parseScalar(v string) any {
	switch v {
	case "TRUE":
		return true
	case "FALSE":
		return false
	case "":
		return v
	}
	t := strings.TrimSpace(v)
	if !decimalRe.MatchString(t) {
		return v
	}
	// Overflow reports an error, so the result is always finite here.
	if n, err := strconv.ParseFloat(t, 64); err == nil {
		return n
	}
	return v
}

// decimalRe limits numeric parameters to plain decimal notation; words such
// as NaN or Inf and hex floats stay strings.
var decimalRe = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)

func formatScalar(v any) string {
	switch t := v.(type) {
	case bool:
		if t {
			return "TRUE"
		}
		return "FALSE"
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case string:
		return t
	default:
		return ""
	}
}

// plainParams reports whether the raw tokens amount to "no parameters".
// A lone CHARSET=utf-8 is treated as absent.
func plainParams(tokens []string) bool {
	return len(tokens) == 0 || (len(tokens) == 1 && tokens[0] == "CHARSET=utf-8")
}

// unescapeText decodes RFC 5545 section 3.3.11 escapes. The order is fixed:
// backslash last, so escaped commas, semicolons and newlines are not
// processed twice.
func unescapeText(s string) string {
	s = strings.ReplaceAll(s, `\,`, ",")
	s = strings.ReplaceAll(s, `\;`, ";")
	s = strings.ReplaceAll(s, `\n`, "\n")
	s = strings.ReplaceAll(s, `\N`, "\n")
	return strings.ReplaceAll(s, `\\`, `\`)
}
