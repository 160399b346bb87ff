package proposal

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var codeFence = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*(.*?)\\s*```")

// extractObject strips markdown fences and returns the text between the
// first '{' and the last '}'.
func extractObject(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if m := codeFence.FindStringSubmatch(s); m != nil && strings.Contains(m[1], "{") {
		s = m[1]
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", ErrNoJSON
	}
	return s[start : end+1], nil
}

// repairs are applied cumulatively; decoding is retried after each one.
var repairs = []func(string) string{
	escapeControlChars,
	insertMissingCommas,
	quoteBareKeys,
	convertSingleQuotes,
	insertMissingCommas,
	quoteBareValues,
	insertMissingCommas,
	dropTrailingCommas,
}

func decodeLenient(obj string) (map[string]any, error) {
	if m, err := decode(obj); err == nil {
		return m, nil
	}
	s := obj
	for _, repair := range repairs {
		s = repair(s)
		if m, err := decode(s); err == nil {
			return m, nil
		}
	}
	return nil, ErrUnrecoverable
}

func decode(s string) (map[string]any, error) {
	var m map[string]any
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	if err := dec.Decode(&m); err != nil {
		return nil, err
	}
	return m, nil
}

// segment is a run of text either inside a double-quoted string (quotes
// included) or outside of one.
type segment struct {
	text   string
	quoted bool
}

func split(s string) []segment {
	var segs []segment
	start, in, escaped := 0, false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !in {
			if c == '"' {
				if i > start {
					segs = append(segs, segment{text: s[start:i]})
				}
				start, in = i, true
			}
			continue
		}
		switch {
		case escaped:
			escaped = false
		case c == '\\':
			escaped = true
		case c == '"':
			segs = append(segs, segment{text: s[start : i+1], quoted: true})
			start, in = i+1, false
		}
	}
	if start < len(s) {
		segs = append(segs, segment{text: s[start:], quoted: in})
	}
	return segs
}

func join(segs []segment) string {
	var b strings.Builder
	for _, sg := range segs {
		b.WriteString(sg.text)
	}
	return b.String()
}

// mapOutside rewrites only the text outside string literals.
func mapOutside(s string, fn func(string) string) string {
	segs := split(s)
	for i := range segs {
		if !segs[i].quoted {
			segs[i].text = fn(segs[i].text)
		}
	}
	return join(segs)
}

func escapeControlChars(s string) string {
	segs := split(s)
	for i := range segs {
		if !segs[i].quoted {
			continue
		}
		var b strings.Builder
		for _, r := range segs[i].text {
			switch {
			case r == '\n':
				b.WriteString(`\n`)
			case r == '\r':
				b.WriteString(`\r`)
			case r == '\t':
				b.WriteString(`\t`)
			case r < 0x20:
				fmt.Fprintf(&b, `\u%04x`, r)
			default:
				b.WriteRune(r)
			}
		}
		segs[i].text = b.String()
	}
	return join(segs)
}

var valueEnd = regexp.MustCompile(`([0-9}\]]|\btrue|\bfalse|\bnull)(\s*)$`)

// insertMissingCommas handles `"value" "key":` and `1 "key":`.
func insertMissingCommas(s string) string {
	segs := split(s)
	for i := range segs {
		if segs[i].quoted || i+1 >= len(segs) || !segs[i+1].quoted {
			continue
		}
		t := segs[i].text
		if i > 0 && segs[i-1].quoted && strings.TrimSpace(t) == "" {
			segs[i].text = "," + t
			continue
		}
		segs[i].text = valueEnd.ReplaceAllString(t, "$1,$2")
	}
	return join(segs)
}

var bareKey = regexp.MustCompile(`([{,]\s*)([A-Za-z_][A-Za-z0-9_]*)(\s*:)`)

func quoteBareKeys(s string) string {
	return mapOutside(s, func(t string) string {
		return bareKey.ReplaceAllString(t, `$1"$2"$3`)
	})
}

var singleQuoted = regexp.MustCompile(`'([^']*)'`)

func convertSingleQuotes(s string) string {
	return mapOutside(s, func(t string) string {
		return singleQuoted.ReplaceAllStringFunc(t, func(m string) string {
			return quote(m[1 : len(m)-1])
		})
	})
}

var bareValue = regexp.MustCompile(`:(\s*)([A-Za-z][^,{}\[\]:\n]*)`)

func quoteBareValues(s string) string {
	return mapOutside(s, func(t string) string {
		return bareValue.ReplaceAllStringFunc(t, func(m string) string {
			sub := bareValue.FindStringSubmatch(m)
			val := strings.TrimRight(sub[2], " \t\r")
			trail := sub[2][len(val):]
			switch val {
			case "true", "false", "null":
				return m
			}
			return ":" + sub[1] + quote(val) + trail
		})
	})
}

var trailingComma = regexp.MustCompile(`,(\s*[}\]])`)

func dropTrailingCommas(s string) string {
	return mapOutside(s, func(t string) string {
		return trailingComma.ReplaceAllString(t, "$1")
	})
}

func quote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
