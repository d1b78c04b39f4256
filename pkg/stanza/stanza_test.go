package stanza

import (
	"errors"
	"io"
	"slices"
	"strings"
	"testing"
	"testing/iotest"
)

func TestParse_FoldedScalar(t *testing.T) {
	s := ParseStanza("Package: foo\nDescription: foo\n bar")

	got := s.Value("Description")
	if got != "foobar" {
		t.Errorf("Description = %q, want %q", got, "foobar")
	}
}

func TestParse_ListField(t *testing.T) {
	s := ParseStanza("Package: src\nFiles:\n x\n y")

	v, ok := s.Get("Files")
	if !ok {
		t.Fatal("Files field missing")
	}
	if !v.IsList() {
		t.Fatalf("Files kind = %v, want list", v.Kind())
	}
	if got := v.Items(); !slices.Equal(got, []string{"x", "y"}) {
		t.Errorf("Files = %v, want [x y]", got)
	}
}

func TestParse_LineShapes(t *testing.T) {
	tests := []struct {
		name  string
		input string
		key   string
		want  FieldValue
	}{
		{"scalar trimmed", "Version:   1.2-3  ", "Version", ScalarValue("1.2-3")},
		{"colon in value", "Homepage: https://example.org", "Homepage", ScalarValue("https://example.org")},
		{"empty list", "Files:", "Files", ListValue()},
		{"trailing whitespace is list", "Files:   ", "Files", ListValue()},
		{"tab continuation", "Files:\n\tabc 12 a.dsc", "Files", ListValue("abc 12 a.dsc")},
		{"continuation with colon", "Description: a\n note: b", "Description", ScalarValue("anote: b")},
		{"redefined key", "A: 1\nA: 2", "A", ScalarValue("2")},
		{"scalar replaced by list", "A: 1\nA:\n x", "A", ListValue("x")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := ParseStanza(tt.input)
			got, ok := s.Get(tt.key)
			if !ok {
				t.Fatalf("field %q missing", tt.key)
			}
			if !got.Equal(tt.want) {
				t.Errorf("%s = %v (%v), want %v (%v)", tt.key, got, got.Kind(), tt.want, tt.want.Kind())
			}
		})
	}
}

func TestParse_IgnoresMalformedLines(t *testing.T) {
	s := ParseStanza(" orphan continuation\nno colon here\n: empty key\nPackage: ok")

	if len(s.Keys) != 1 || s.Keys[0] != "Package" {
		t.Errorf("Keys = %v, want [Package]", s.Keys)
	}
	if s.Value("Package") != "ok" {
		t.Errorf("Package = %q, want ok", s.Value("Package"))
	}
}

func TestParse_KeyOrder(t *testing.T) {
	s := ParseStanza("Package: a\nVersion: 1\nDepends: b\nVersion: 2")

	want := []string{"Package", "Version", "Depends"}
	if !slices.Equal(s.Keys, want) {
		t.Errorf("Keys = %v, want %v", s.Keys, want)
	}
}

func TestParse_MultipleStanzas(t *testing.T) {
	text := "Package: a\nVersion: 1\n\nPackage: b\nVersion: 2\n\n\n\nPackage: c\n"

	stanzas := Parse(text)
	if len(stanzas) != 3 {
		t.Fatalf("got %d stanzas, want 3", len(stanzas))
	}
	for i, name := range []string{"a", "b", "c"} {
		if got := stanzas[i].Value("Package"); got != name {
			t.Errorf("stanza %d Package = %q, want %q", i, got, name)
		}
	}
	if stanzas[0].Raw != "Package: a\nVersion: 1" {
		t.Errorf("Raw = %q", stanzas[0].Raw)
	}
}

func TestParse_SkipsBlankStanzas(t *testing.T) {
	for _, text := range []string{"", "\n\n\n", "   \n\t\n"} {
		if got := Parse(text); len(got) != 0 {
			t.Errorf("Parse(%q) = %d stanzas, want 0", text, len(got))
		}
	}
}

func TestParse_WhitespaceLineInsideStanza(t *testing.T) {
	for _, ws := range []string{" ", "\t", "  \t "} {
		stanzas := Parse("Package: a\n" + ws + "\nDepends: b\n")
		if len(stanzas) != 1 {
			t.Fatalf("whitespace line %q: got %d stanzas, want 1", ws, len(stanzas))
		}
		if got := stanzas[0].Value("Depends"); got != "b" {
			t.Errorf("whitespace line %q: Depends = %q, want %q", ws, got, "b")
		}
		if !slices.Equal(stanzas[0].Keys, []string{"Package", "Depends"}) {
			t.Errorf("whitespace line %q: Keys = %v", ws, stanzas[0].Keys)
		}
	}
}

func TestParse_IndentedFieldIsContinuation(t *testing.T) {
	s := ParseStanza("Package: a\nDescription: x\n note: b")
	if got := s.Value("Description"); got != "xnote: b" {
		t.Errorf("Description = %q, want %q", got, "xnote: b")
	}
	if _, ok := s.Get(" note"); ok {
		t.Error("indented line started a new field")
	}
}

func TestParse_CRLF(t *testing.T) {
	stanzas := Parse("Package: a\r\nFiles:\r\n x\r\n\r\nPackage: b\r\n")

	if len(stanzas) != 2 {
		t.Fatalf("got %d stanzas, want 2", len(stanzas))
	}
	if v, _ := stanzas[0].Get("Files"); !v.Equal(ListValue("x")) {
		t.Errorf("Files = %v, want [x]", v)
	}
}

func TestParse_Idempotent(t *testing.T) {
	text := "Package: a\nDescription: x\n y\nFiles:\n 1\n 2\n\nPackage: b\n"

	first, second := Parse(text), Parse(text)
	if len(first) != len(second) {
		t.Fatalf("lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if !first[i].Equal(second[i]) {
			t.Errorf("stanza %d differs between parses", i)
		}
	}
}

func TestScanner_ReadError(t *testing.T) {
	boom := errors.New("boom")
	sc := NewScanner(io.MultiReader(strings.NewReader("Package: a\n"), iotest.ErrReader(boom)))

	for sc.Scan() {
	}
	if !errors.Is(sc.Err(), boom) {
		t.Errorf("Err() = %v, want %v", sc.Err(), boom)
	}
	if sc.Scan() {
		t.Error("Scan() after error should return false")
	}
}

func TestFieldValue(t *testing.T) {
	s := ScalarValue("x")
	if s.IsList() || s.Items() != nil || s.String() != "x" {
		t.Errorf("scalar accessors wrong: %+v", s)
	}

	l := ListValue("a", "b")
	if !l.IsList() || l.Scalar() != "" || l.String() != "a\nb" {
		t.Errorf("list accessors wrong: %+v", l)
	}

	items := l.Items()
	items[0] = "mutated"
	if l.Items()[0] != "a" {
		t.Error("Items() should return a copy")
	}

	if s.Equal(ListValue("x")) {
		t.Error("scalar and list should not be equal")
	}
	if Scalar.String() != "scalar" || List.String() != "list" {
		t.Error("Kind.String() wrong")
	}
}
