package stanza

import (
	"slices"
	"strings"
)

// Kind tells which variant a [FieldValue] holds.
type Kind int

const (
	// Scalar is a single folded string ("Key: value").
	Scalar Kind = iota
	// List is an ordered sequence of continuation lines ("Key:" + indented lines).
	List
)

// String returns "scalar" or "list".
func (k Kind) String() string {
	if k == List {
		return "list"
	}
	return "scalar"
}

// FieldValue is either a scalar string or a list of strings.
// The zero value is an empty scalar.
type FieldValue struct {
	kind   Kind
	scalar string
	items  []string
}

// ScalarValue returns a scalar FieldValue holding s.
func ScalarValue(s string) FieldValue {
	return FieldValue{kind: Scalar, scalar: s}
}

// ListValue returns a list FieldValue holding items. The slice is copied.
// A call with no items yields an empty (non-nil) list.
func ListValue(items ...string) FieldValue {
	if items == nil {
		items = []string{}
	}
	return FieldValue{kind: List, items: slices.Clone(items)}
}

// Kind reports which variant v holds.
func (v FieldValue) Kind() Kind { return v.kind }

// IsList reports whether v is a list.
func (v FieldValue) IsList() bool { return v.kind == List }

// Scalar returns the scalar string, or "" for a list.
func (v FieldValue) Scalar() string {
	if v.kind == List {
		return ""
	}
	return v.scalar
}

// Items returns a copy of the list items, or nil for a scalar.
func (v FieldValue) Items() []string {
	if v.kind != List {
		return nil
	}
	return slices.Clone(v.items)
}

// String renders the value as text. Lists are joined with newlines.
func (v FieldValue) String() string {
	if v.kind == List {
		return strings.Join(v.items, "\n")
	}
	return v.scalar
}

// Equal reports whether two values hold the same variant and content.
func (v FieldValue) Equal(o FieldValue) bool {
	if v.kind != o.kind {
		return false
	}
	if v.kind == List {
		return slices.Equal(v.items, o.items)
	}
	return v.scalar == o.scalar
}

// extend applies a continuation line to the value.
func (v FieldValue) extend(text string) FieldValue {
	if v.kind == List {
		v.items = append(slices.Clip(v.items), text)
		return v
	}
	v.scalar += text
	return v
}
