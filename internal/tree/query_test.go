package tree

import (
	"errors"
	"testing"
)

func TestAncestors(t *testing.T) {
	s := specForest(t)

	tests := []struct {
		name        string
		id          int64
		includeSelf bool
		want        []int64
	}{
		{name: "leaf with self", id: 4, includeSelf: true, want: []int64{1, 2, 4}},
		{name: "leaf without self", id: 4, includeSelf: false, want: []int64{1, 2}},
		{name: "root with self", id: 1, includeSelf: true, want: []int64{1}},
		{name: "root without self", id: 1, includeSelf: false, want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Ancestors(s, tt.id, tt.includeSelf)
			if err != nil {
				t.Fatalf("Ancestors: %v", err)
			}
			assertIDs(t, got, tt.want)
		})
	}

	if _, err := Ancestors(s, 42, true); !errors.Is(err, ErrNotFound) {
		t.Errorf("Ancestors of missing id: got %v, want ErrNotFound", err)
	}
}

func TestDescendantsPreOrder(t *testing.T) {
	s := specForest(t)

	got, err := Descendants(s, 1, true)
	if err != nil {
		t.Fatalf("Descendants: %v", err)
	}
	// Pre-order: 1, then 2's branch, then 3.
	assertIDs(t, got, []int64{1, 2, 4, 3})

	got, err = Descendants(s, 1, false)
	if err != nil {
		t.Fatalf("Descendants: %v", err)
	}
	assertIDs(t, got, []int64{2, 4, 3})

	got, err = Descendants(s, 4, false)
	if err != nil {
		t.Fatalf("Descendants: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("leaf has %d strict descendants, want 0", len(got))
	}
}

func TestAncestorDescendantDuality(t *testing.T) {
	s := rebuilt(t,
		rec{id: 1, key: "a"},
		rec{id: 2, parent: 1, key: "b"},
		rec{id: 3, parent: 1, key: "c"},
		rec{id: 4, parent: 2, key: "d"},
		rec{id: 5, parent: 4, key: "e"},
		rec{id: 6, key: "f"},
		rec{id: 7, parent: 6, key: "g"},
	)

	ids := []int64{1, 2, 3, 4, 5, 6, 7}
	for _, a := range ids {
		desc, err := Descendants(s, a, false)
		if err != nil {
			t.Fatalf("Descendants(%d): %v", a, err)
		}
		inDesc := make(map[int64]bool)
		for _, d := range desc {
			inDesc[d.ID] = true
		}
		for _, b := range ids {
			anc, err := Ancestors(s, b, false)
			if err != nil {
				t.Fatalf("Ancestors(%d): %v", b, err)
			}
			inAnc := false
			for _, x := range anc {
				if x.ID == a {
					inAnc = true
				}
			}
			if inDesc[b] != inAnc {
				t.Errorf("duality broken for (%d,%d): descendants says %v, ancestors says %v", a, b, inDesc[b], inAnc)
			}
		}
	}
}

func TestChildrenOrder(t *testing.T) {
	s := rebuilt(t,
		rec{id: 1, key: "root"},
		rec{id: 2, parent: 1, key: "zeta"},
		rec{id: 3, parent: 1, key: "alpha"},
		rec{id: 4, parent: 1, key: "alpha"},
	)

	got, err := Children(s, 1)
	if err != nil {
		t.Fatalf("Children: %v", err)
	}
	assertIDs(t, got, []int64{3, 4, 2})
}

func TestRootsBySize(t *testing.T) {
	// Two trees of sizes 5 and 2: the bigger root lists first.
	s := rebuilt(t,
		rec{id: 1, key: "a"},
		rec{id: 2, parent: 1, key: "b"},
		rec{id: 10, key: "z"},
		rec{id: 11, parent: 10, key: "c"},
		rec{id: 12, parent: 10, key: "d"},
		rec{id: 13, parent: 11, key: "e"},
		rec{id: 14, parent: 11, key: "f"},
	)

	roots := Roots(s, RootsBySize)
	assertIDs(t, roots, []int64{10, 1})

	roots = Roots(s, RootsBySortKey)
	assertIDs(t, roots, []int64{1, 10})
}

func TestSubtreeDepthBound(t *testing.T) {
	s := rebuilt(t,
		rec{id: 1, key: "a"},
		rec{id: 2, parent: 1, key: "b"},
		rec{id: 3, parent: 2, key: "c"},
		rec{id: 4, parent: 3, key: "d"},
	)

	tests := []struct {
		maxDepth  int
		wantDepth int
	}{
		{maxDepth: 0, wantDepth: 0},
		{maxDepth: 1, wantDepth: 1},
		{maxDepth: 2, wantDepth: 2},
		{maxDepth: 10, wantDepth: 3},
	}
	for _, tt := range tests {
		sub, err := SubtreeOf(s, 1, tt.maxDepth)
		if err != nil {
			t.Fatalf("SubtreeOf: %v", err)
		}
		if got := subtreeDepth(sub); got != tt.wantDepth {
			t.Errorf("maxDepth %d: materialized %d levels, want %d", tt.maxDepth, got, tt.wantDepth)
		}
	}

	if _, err := SubtreeOf(s, 42, 1); !errors.Is(err, ErrNotFound) {
		t.Errorf("SubtreeOf missing id: got %v, want ErrNotFound", err)
	}
}

func TestDescendantCountMatchesWalk(t *testing.T) {
	s := rebuilt(t,
		rec{id: 1, key: "a"},
		rec{id: 2, parent: 1, key: "b"},
		rec{id: 3, parent: 1, key: "c"},
		rec{id: 4, parent: 2, key: "d"},
		rec{id: 5, parent: 2, key: "e"},
		rec{id: 6, parent: 5, key: "f"},
	)
	checkInvariants(t, s) // includes the naive parent-walk comparison

	for id, want := range map[int64]int{1: 5, 2: 3, 5: 1, 6: 0} {
		got, err := DescendantCount(s, id)
		if err != nil {
			t.Fatalf("DescendantCount(%d): %v", id, err)
		}
		if got != want {
			t.Errorf("DescendantCount(%d) = %d, want %d", id, got, want)
		}
	}
}

func assertIDs(t *testing.T, got []Node, want []int64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d nodes, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].ID != want[i] {
			gotIDs := make([]int64, len(got))
			for j, n := range got {
				gotIDs[j] = n.ID
			}
			t.Fatalf("got ids %v, want %v", gotIDs, want)
		}
	}
}

func subtreeDepth(s *Subtree) int {
	max := 0
	for _, c := range s.Children {
		if d := 1 + subtreeDepth(c); d > max {
			max = d
		}
	}
	return max
}
