package stanza

import (
	"bufio"
	"io"
	"maps"
	"slices"
	"strings"
)

// maxLineSize bounds a single index line. Some Description and Files
// fields run to tens of kilobytes.
const maxLineSize = 4 * 1024 * 1024

// Stanza is one parsed block of an index.
type Stanza struct {
	// Fields maps field names to their values. Later occurrences of the
	// same key within a stanza replace earlier ones.
	Fields map[string]FieldValue
	// Keys lists field names in order of first appearance.
	Keys []string
	// Raw is the stanza text exactly as it appeared in the input.
	Raw string
}

// Get returns the value of key and whether it was present.
func (s Stanza) Get(key string) (FieldValue, bool) {
	v, ok := s.Fields[key]
	return v, ok
}

// Value returns the scalar value of key, or "" if it is absent or a list.
func (s Stanza) Value(key string) string {
	return s.Fields[key].Scalar()
}

// Equal reports whether two stanzas have the same fields, key order and raw text.
func (s Stanza) Equal(o Stanza) bool {
	return s.Raw == o.Raw &&
		slices.Equal(s.Keys, o.Keys) &&
		maps.EqualFunc(s.Fields, o.Fields, FieldValue.Equal)
}

// Parse splits text into stanzas at empty lines and parses each one.
// Stanzas that are empty after trimming produce nothing.
func Parse(text string) []Stanza {
	var out []Stanza
	sc := NewScanner(strings.NewReader(text))
	for sc.Scan() {
		out = append(out, sc.Stanza())
	}
	// strings.Reader never fails and lines are bounded by maxLineSize.
	return out
}

// ParseStanza parses a single stanza. Blank lines inside text are ignored.
func ParseStanza(text string) Stanza {
	return parseLines(strings.Split(normalizeNewlines(text), "\n"), text)
}

// Scanner reads stanzas one at a time from an io.Reader.
type Scanner struct {
	lines *bufio.Scanner
	cur   Stanza
	err   error
}

// NewScanner returns a Scanner reading from r.
func NewScanner(r io.Reader) *Scanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &Scanner{lines: sc}
}

// Scan advances to the next non-empty stanza. It returns false at the end
// of input or on a read error; check [Scanner.Err] afterwards.
func (s *Scanner) Scan() bool {
	if s.err != nil {
		return false
	}
	var block []string
	for s.lines.Scan() {
		line := strings.TrimSuffix(s.lines.Text(), "\r")
		// Only an empty line separates stanzas; whitespace-only lines stay
		// inside the block and parseLines skips them.
		if line == "" {
			if hasContent(block) {
				s.cur = parseLines(block, strings.Join(block, "\n"))
				return true
			}
			continue
		}
		block = append(block, line)
	}
	s.err = s.lines.Err()
	if s.err == nil && hasContent(block) {
		s.cur = parseLines(block, strings.Join(block, "\n"))
		return true
	}
	return false
}

// Stanza returns the stanza produced by the last successful call to Scan.
func (s *Scanner) Stanza() Stanza { return s.cur }

// Err returns the first read error, if any.
func (s *Scanner) Err() error { return s.err }

func parseLines(lines []string, raw string) Stanza {
	st := Stanza{Fields: make(map[string]FieldValue), Raw: raw}
	current := ""

	set := func(key string, v FieldValue) {
		if _, seen := st.Fields[key]; !seen {
			st.Keys = append(st.Keys, key)
		}
		st.Fields[key] = v
		current = key
	}

	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if isContinuation(line) {
			v, ok := st.Fields[current]
			if !ok {
				continue // nothing to continue
			}
			st.Fields[current] = v.extend(strings.TrimSpace(line))
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			continue
		}
		if value = strings.TrimSpace(value); value != "" {
			set(key, ScalarValue(value))
		} else {
			set(key, ListValue())
		}
	}
	return st
}

// hasContent reports whether block holds a non-whitespace line.
func hasContent(block []string) bool {
	return slices.ContainsFunc(block, func(l string) bool { return strings.TrimSpace(l) != "" })
}

func isContinuation(line string) bool {
	return line[0] == ' ' || line[0] == '\t'
}

func normalizeNewlines(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}
