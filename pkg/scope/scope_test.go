package scope

import (
	"testing"

	"github.com/bobboyms/dirtxncore/pkg/dn"
)

func mustParse(t *testing.T, text string) dn.DN {
	t.Helper()
	d, err := dn.Parse(text)
	if err != nil {
		t.Fatalf("Parse(%q) failed: %v", text, err)
	}
	return d
}

func TestMatches_ObjectObject(t *testing.T) {
	a := mustParse(t, "cn=alice,dc=example,dc=com")
	b := mustParse(t, "cn=alice,dc=example,dc=com")
	c := mustParse(t, "cn=bob,dc=example,dc=com")

	if !Matches(Entry{a, Object}, Entry{b, Object}) {
		t.Errorf("identical DNs at OBJECT scope should match")
	}
	if Matches(Entry{a, Object}, Entry{c, Object}) {
		t.Errorf("distinct DNs at OBJECT scope should not match")
	}
}

func TestMatches_ObjectOnelevel(t *testing.T) {
	parent := mustParse(t, "ou=people,dc=example,dc=com")
	child := mustParse(t, "cn=alice,ou=people,dc=example,dc=com")
	grandchild := mustParse(t, "cn=alice,cn=sub,ou=people,dc=example,dc=com")

	if !Matches(Entry{child, Object}, Entry{parent, Onelevel}) {
		t.Errorf("child OBJECT should match parent ONELEVEL")
	}
	if Matches(Entry{grandchild, Object}, Entry{parent, Onelevel}) {
		t.Errorf("grandchild OBJECT should not match parent ONELEVEL")
	}
}

func TestMatches_ObjectSubtree(t *testing.T) {
	root := mustParse(t, "ou=people,dc=example,dc=com")
	descendant := mustParse(t, "cn=alice,cn=sub,ou=people,dc=example,dc=com")
	outside := mustParse(t, "ou=groups,dc=example,dc=com")

	if !Matches(Entry{descendant, Object}, Entry{root, Subtree}) {
		t.Errorf("descendant OBJECT should match ancestor SUBTREE")
	}
	if !Matches(Entry{root, Object}, Entry{root, Subtree}) {
		t.Errorf("the subtree root itself should match its own SUBTREE")
	}
	if Matches(Entry{outside, Object}, Entry{root, Subtree}) {
		t.Errorf("an unrelated DN should not match SUBTREE")
	}
}

func TestMatches_OnelevelOnelevel(t *testing.T) {
	parent := mustParse(t, "ou=people,dc=example,dc=com")
	child := mustParse(t, "cn=alice,ou=people,dc=example,dc=com")
	sibling := mustParse(t, "ou=groups,dc=example,dc=com")

	if !Matches(Entry{parent, Onelevel}, Entry{parent, Onelevel}) {
		t.Errorf("a ONELEVEL entry should match itself")
	}
	if !Matches(Entry{parent, Onelevel}, Entry{child, Onelevel}) {
		t.Errorf("a parent ONELEVEL overlaps a child ONELEVEL (the child itself is one of the parent's onelevel members)")
	}
	if Matches(Entry{parent, Onelevel}, Entry{sibling, Onelevel}) {
		t.Errorf("unrelated siblings' ONELEVEL sets should not match")
	}
}

func TestMatches_OnelevelSubtree(t *testing.T) {
	grandparent := mustParse(t, "dc=example,dc=com")
	parent := mustParse(t, "ou=people,dc=example,dc=com")
	unrelated := mustParse(t, "dc=other,dc=com")

	if !Matches(Entry{parent, Onelevel}, Entry{grandparent, Subtree}) {
		t.Errorf("a ONELEVEL entry whose parent is within a SUBTREE should match")
	}
	if Matches(Entry{parent, Onelevel}, Entry{unrelated, Subtree}) {
		t.Errorf("unrelated SUBTREE should not match")
	}
}

func TestMatches_SubtreeSubtree(t *testing.T) {
	root := mustParse(t, "dc=example,dc=com")
	sub := mustParse(t, "ou=people,dc=example,dc=com")
	other := mustParse(t, "dc=other,dc=com")

	if !Matches(Entry{root, Subtree}, Entry{sub, Subtree}) {
		t.Errorf("overlapping SUBTREEs should match")
	}
	if Matches(Entry{root, Subtree}, Entry{other, Subtree}) {
		t.Errorf("disjoint SUBTREEs should not match")
	}
}

func TestMatches_Symmetric(t *testing.T) {
	scopes := []SearchScope{Object, Onelevel, Subtree}
	dns := []dn.DN{
		mustParse(t, "dc=example,dc=com"),
		mustParse(t, "ou=people,dc=example,dc=com"),
		mustParse(t, "cn=alice,ou=people,dc=example,dc=com"),
		mustParse(t, "dc=other,dc=com"),
	}

	for _, sl := range scopes {
		for _, sr := range scopes {
			for _, dl := range dns {
				for _, dr := range dns {
					l := Entry{dl, sl}
					r := Entry{dr, sr}
					if Matches(l, r) != Matches(r, l) {
						t.Errorf("Matches not symmetric for l=%v/%s r=%v/%s", dl, sl, dr, sr)
					}
				}
			}
		}
	}
}

func TestSet_AddIsIdempotent(t *testing.T) {
	s := New()
	d := mustParse(t, "cn=alice,dc=example,dc=com")
	s.Add(d, Object)
	s.Add(d, Object)
	if s.Len() != 1 {
		t.Errorf("expected Add to be idempotent, got len=%d", s.Len())
	}
	if !s.Contains(d, Object) {
		t.Errorf("expected set to contain added entry")
	}
}

func TestSet_DistinctScopesAreDistinctEntries(t *testing.T) {
	s := New()
	d := mustParse(t, "cn=alice,dc=example,dc=com")
	s.Add(d, Object)
	s.Add(d, Subtree)
	if s.Len() != 2 {
		t.Errorf("expected 2 entries for same DN different scopes, got %d", s.Len())
	}
}

func TestSet_Intersects(t *testing.T) {
	a := New()
	b := New()

	a.Add(mustParse(t, "cn=alice,ou=people,dc=example,dc=com"), Object)
	b.Add(mustParse(t, "ou=people,dc=example,dc=com"), Subtree)

	if !a.Intersects(b) {
		t.Errorf("expected sets to intersect")
	}
	if !b.Intersects(a) {
		t.Errorf("Intersects should be symmetric")
	}
}

func TestSet_IntersectsDisjoint(t *testing.T) {
	a := New()
	b := New()

	a.Add(mustParse(t, "cn=alice,dc=example,dc=com"), Object)
	b.Add(mustParse(t, "cn=bob,dc=example,dc=com"), Object)

	if a.Intersects(b) {
		t.Errorf("expected disjoint sets not to intersect")
	}
}

func TestSet_IntersectsNilIsFalse(t *testing.T) {
	a := New()
	a.Add(mustParse(t, "cn=alice,dc=example,dc=com"), Object)
	if a.Intersects(nil) {
		t.Errorf("Intersects against nil should be false")
	}
}
