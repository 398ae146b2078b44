// Package dn implements the distinguished-name model: parsing,
// normalization, and the hierarchical prefix relations the conflict
// detector relies on.
package dn

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bobboyms/dirtxncore/pkg/direrrors"
)

// caseIgnoreAttrs lists attribute types with a known case-insensitive,
// whitespace-collapsing syntax. Anything not in this set still compares
// case-insensitively but keeps its value otherwise as-is.
var caseIgnoreAttrs = map[string]bool{
	"cn": true, "ou": true, "o": true, "dc": true, "uid": true,
	"sn": true, "gn": true, "l": true, "st": true, "c": true, "mail": true,
}

// AVA is one attribute=value assertion within an RDN.
type AVA struct {
	Type  string // original casing
	Value string // original casing

	normType  string
	normValue string
}

func newAVA(rawType, rawValue string) AVA {
	a := AVA{Type: rawType, Value: rawValue}
	a.normType = strings.ToLower(strings.TrimSpace(rawType))
	a.normValue = normalizeValue(a.normType, rawValue)
	return a
}

func normalizeValue(normType, value string) string {
	v := strings.TrimSpace(value)
	if caseIgnoreAttrs[normType] {
		v = strings.ToLower(v)
		v = collapseSpaces(v)
		return v
	}
	// Unknown attribute: fold case for comparison purposes, preserve the
	// rest of the byte sequence untouched.
	return strings.ToLower(v)
}

func collapseSpaces(s string) string {
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}

// RDN is one Relative Distinguished Name component: one or more AVAs
// joined by '+'.
type RDN struct {
	AVAs []AVA
}

// String renders the RDN the way it was (or would be) written: "type=value"
// pairs joined by '+', with ',', '+' and '\' in values backslash-escaped.
func (r RDN) String() string {
	parts := make([]string, len(r.AVAs))
	for i, a := range r.AVAs {
		var v strings.Builder
		for j := 0; j < len(a.Value); j++ {
			if c := a.Value[j]; c == ',' || c == '+' || c == '\\' {
				v.WriteByte('\\')
			}
			v.WriteByte(a.Value[j])
		}
		parts[i] = a.Type + "=" + v.String()
	}
	return strings.Join(parts, "+")
}

// equalsNormalized compares two RDNs on their normalized form, independent
// of AVA ordering within a multi-valued RDN.
func (r RDN) equalsNormalized(o RDN) bool {
	if len(r.AVAs) != len(o.AVAs) {
		return false
	}
	a := sortedNorm(r.AVAs)
	b := sortedNorm(o.AVAs)
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func sortedNorm(avas []AVA) []string {
	out := make([]string, len(avas))
	for i, a := range avas {
		out[i] = a.normType + "=" + a.normValue
	}
	sort.Strings(out)
	return out
}

// DN is an ordered sequence of RDNs, index 0 is the leaf, the last index is
// the root suffix component.
type DN struct {
	RDNs []RDN
}

// Empty reports whether this is the root/empty DN.
func (d DN) Empty() bool { return len(d.RDNs) == 0 }

// String round-trips through Parse: leaf-first, comma-separated RDNs.
func (d DN) String() string {
	parts := make([]string, len(d.RDNs))
	for i, r := range d.RDNs {
		parts[i] = r.String()
	}
	return strings.Join(parts, ",")
}

// Parse parses a textual DN into its normalized form. Malformed RDNs
// (missing '=', empty attribute type) yield direrrors.InvalidSyntaxError.
func Parse(text string) (DN, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return DN{}, nil
	}

	comps, err := splitUnescaped(trimmed, ',')
	if err != nil {
		return DN{}, direrrors.NewInvalidSyntax(text, err)
	}

	rdns := make([]RDN, 0, len(comps))
	for _, comp := range comps {
		rdn, err := parseRDN(comp)
		if err != nil {
			return DN{}, direrrors.NewInvalidSyntax(text, err)
		}
		rdns = append(rdns, rdn)
	}
	return DN{RDNs: rdns}, nil
}

func parseRDN(text string) (RDN, error) {
	avaTexts, err := splitUnescaped(text, '+')
	if err != nil {
		return RDN{}, err
	}
	if len(avaTexts) == 0 {
		return RDN{}, errSyntax("empty RDN component")
	}

	avas := make([]AVA, 0, len(avaTexts))
	for _, avaText := range avaTexts {
		eq := strings.IndexByte(avaText, '=')
		if eq <= 0 {
			return RDN{}, errSyntax("missing '=' in RDN component %q", avaText)
		}
		attrType := strings.TrimSpace(avaText[:eq])
		attrVal := unescapeValue(strings.TrimSpace(avaText[eq+1:]))
		if attrType == "" {
			return RDN{}, errSyntax("empty attribute type in %q", avaText)
		}
		avas = append(avas, newAVA(attrType, attrVal))
	}
	return RDN{AVAs: avas}, nil
}

// splitUnescaped splits s on sep, honoring backslash escapes so that
// "cn=Acme\\, Inc." does not split on the embedded comma.
func splitUnescaped(s string, sep byte) ([]string, error) {
	var out []string
	var cur strings.Builder
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			cur.WriteByte(c)
			escaped = false
		case c == '\\':
			cur.WriteByte(c)
			escaped = true
		case c == sep:
			out = append(out, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	if escaped {
		return nil, errSyntax("dangling escape character")
	}
	out = append(out, cur.String())
	return out, nil
}

func unescapeValue(s string) string {
	if !strings.Contains(s, "\\") {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
			b.WriteByte(s[i])
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func errSyntax(format string, args ...any) error {
	return fmt.Errorf(format, args...)
}

// Normalize returns the normalized form of d. Parse already normalizes,
// so this is idempotent.
func Normalize(d DN) DN {
	return d
}

// Equals reports whether two DNs are equal on their normalized RDN
// sequences.
func Equals(a, b DN) bool {
	if len(a.RDNs) != len(b.RDNs) {
		return false
	}
	for i := range a.RDNs {
		if !a.RDNs[i].equalsNormalized(b.RDNs[i]) {
			return false
		}
	}
	return true
}

// IsAncestorOf reports whether a's RDN sequence is a proper suffix of b's.
func IsAncestorOf(a, b DN) bool {
	if len(a.RDNs) >= len(b.RDNs) {
		return false
	}
	offset := len(b.RDNs) - len(a.RDNs)
	for i := range a.RDNs {
		if !a.RDNs[i].equalsNormalized(b.RDNs[offset+i]) {
			return false
		}
	}
	return true
}

// IsAncestorOrEqual reports whether a equals b or is an ancestor of b.
func IsAncestorOrEqual(a, b DN) bool {
	return Equals(a, b) || IsAncestorOf(a, b)
}

// IsImmediateParentOf reports whether a is the immediate parent of b:
// an ancestor whose sequence is exactly one RDN shorter.
func IsImmediateParentOf(a, b DN) bool {
	return len(b.RDNs) == len(a.RDNs)+1 && IsAncestorOf(a, b)
}

// Parent returns the immediate parent DN, or nil for the root/empty DN.
func Parent(d DN) *DN {
	if len(d.RDNs) == 0 {
		return nil
	}
	p := DN{RDNs: d.RDNs[1:]}
	return &p
}
