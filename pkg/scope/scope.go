// Package scope implements the SearchScope enumeration and a scoped set:
// a collection of (DN, scope) entries supporting scope-aware intersection
// queries.
package scope

import (
	"sync"

	"github.com/bobboyms/dirtxncore/pkg/dn"
)

// SearchScope selects the point-set a DN denotes.
type SearchScope int

const (
	// Object denotes the DN itself.
	Object SearchScope = iota
	// Onelevel denotes the immediate children of the DN, not itself.
	Onelevel
	// Subtree denotes the DN and all of its descendants.
	Subtree
)

func (s SearchScope) String() string {
	switch s {
	case Object:
		return "OBJECT"
	case Onelevel:
		return "ONELEVEL"
	case Subtree:
		return "SUBTREE"
	default:
		return "UNKNOWN"
	}
}

// Entry is a (DN, scope) pair.
type Entry struct {
	DN    dn.DN
	Scope SearchScope
}

// Matches reports whether two entries are in potential conflict. The rule
// is symmetric and depends on the pair of scopes:
//   - OBJECT/OBJECT: the DNs are equal.
//   - OBJECT/ONELEVEL: the ONELEVEL DN is the immediate parent of the
//     OBJECT DN.
//   - OBJECT/SUBTREE: the SUBTREE DN is an ancestor of, or equal to, the
//     OBJECT DN.
//   - ONELEVEL/ONELEVEL: the DNs are equal, or one is the immediate parent
//     of the other.
//   - ONELEVEL/SUBTREE: the SUBTREE DN is an ancestor of, or equal to, the
//     parent of the ONELEVEL DN (never for a ONELEVEL entry at the root DN).
//   - SUBTREE/SUBTREE: either DN is an ancestor of, or equal to, the other.
//
// This is not an exact point-set intersection test: a parent/child pair of
// ONELEVEL entries matches although their children are disjoint, and a
// ONELEVEL entry does not match a SUBTREE rooted at its own DN or at one of
// its children.
func Matches(l, r Entry) bool {
	switch l.Scope {
	case Object:
		switch r.Scope {
		case Object:
			return dn.Equals(l.DN, r.DN)
		case Onelevel:
			return dn.IsImmediateParentOf(r.DN, l.DN)
		case Subtree:
			return dn.IsAncestorOrEqual(r.DN, l.DN)
		}
	case Onelevel:
		switch r.Scope {
		case Object:
			return dn.IsImmediateParentOf(l.DN, r.DN)
		case Onelevel:
			return dn.Equals(l.DN, r.DN) ||
				dn.IsImmediateParentOf(l.DN, r.DN) ||
				dn.IsImmediateParentOf(r.DN, l.DN)
		case Subtree:
			parent := dn.Parent(l.DN)
			if parent == nil {
				return false
			}
			return dn.IsAncestorOrEqual(r.DN, *parent)
		}
	case Subtree:
		switch r.Scope {
		case Object:
			return dn.IsAncestorOrEqual(l.DN, r.DN)
		case Onelevel:
			parent := dn.Parent(r.DN)
			if parent == nil {
				return false
			}
			return dn.IsAncestorOrEqual(l.DN, *parent)
		case Subtree:
			return dn.IsAncestorOrEqual(l.DN, r.DN) || dn.IsAncestorOrEqual(r.DN, l.DN)
		}
	}
	return false
}

// Set is a collection of Entry values indexed by normalized DN text for
// Add and Contains lookups; Intersects compares every entry of one set with
// every entry of the other.
//
// Set is safe for concurrent read access once the owning transaction has
// left ACTIVE; Add is only ever called by the owning caller while the
// transaction is ACTIVE.
type Set struct {
	mu      sync.RWMutex
	byDN    map[string][]Entry
	entries []Entry
}

// New returns an empty ScopedSet.
func New() *Set {
	return &Set{byDN: make(map[string][]Entry)}
}

// Add inserts entry, idempotently.
func (s *Set) Add(d dn.DN, sc SearchScope) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := d.String()
	for _, e := range s.byDN[key] {
		if e.Scope == sc {
			return // already present
		}
	}
	e := Entry{DN: d, Scope: sc}
	s.byDN[key] = append(s.byDN[key], e)
	s.entries = append(s.entries, e)
}

// Contains reports whether (d, sc) is already in the set.
func (s *Set) Contains(d dn.DN, sc SearchScope) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.byDN[d.String()] {
		if e.Scope == sc {
			return true
		}
	}
	return false
}

// Entries returns a snapshot copy of the set's entries.
func (s *Set) Entries() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Len reports the number of entries.
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Intersects reports whether any entry of s matches any entry of other.
// A single true match suffices.
func (s *Set) Intersects(other *Set) bool {
	if s == nil || other == nil {
		return false
	}
	mine := s.Entries()
	theirs := other.Entries()
	for _, a := range mine {
		for _, b := range theirs {
			if Matches(a, b) {
				return true
			}
		}
	}
	return false
}
