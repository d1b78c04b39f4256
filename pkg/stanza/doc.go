// Package stanza parses the blank-line separated "Key: value" format used by
// Debian package indexes (Packages, Sources).
//
// # Format
//
// An index is a sequence of stanzas separated by empty lines. A line holding
// only whitespace does not end a stanza; it is skipped. Each stanza is a list
// of lines of three shapes:
//
//   - "Key: value" starts a scalar field. The value is trimmed.
//   - "Key:" with nothing after the colon starts a list field.
//   - " continuation" (leading space or tab) extends the current field. A
//     scalar is folded by direct concatenation of the trimmed text; a list
//     gets the trimmed text appended as a new item.
//
// A line with leading whitespace is always a continuation, even when it also
// looks like "Key: value"; a classifier that tries the field shapes first
// would start a new field there instead.
//
// Anything else is ignored. Parsing never fails on malformed input; the
// worst case is a stanza with fewer fields than expected.
//
// # Field Values
//
// [FieldValue] is a tagged variant: the grammar above decides at parse time
// whether a field is a [Scalar] or a [List], so callers switch on
// [FieldValue.Kind] instead of inspecting types.
//
// # Usage
//
// Small inputs can be parsed in one call:
//
//	stanzas := stanza.Parse(text)
//
// Large index files (a Debian Packages file is well over 100 MB) are better
// streamed with a [Scanner]:
//
//	sc := stanza.NewScanner(f)
//	for sc.Scan() {
//	    s := sc.Stanza()
//	    fmt.Println(s.Value("Package"))
//	}
//	if err := sc.Err(); err != nil {
//	    return err
//	}
package stanza
