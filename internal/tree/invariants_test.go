package tree

import (
	"sort"
	"testing"
)

func ptr(v int64) *int64 { return &v }

type rec struct {
	id     int64
	parent int64 // 0 means no parent
	key    string
}

func buildStore(t *testing.T, recs ...rec) *Store {
	t.Helper()
	s := NewStore()
	for _, r := range recs {
		n := Node{ID: r.id, SortKey: r.key}
		if r.parent != 0 {
			n.ParentID = ptr(r.parent)
		}
		if err := s.Add(n); err != nil {
			t.Fatalf("Add(%d): %v", r.id, err)
		}
	}
	return s
}

func rebuilt(t *testing.T, recs ...rec) *Store {
	t.Helper()
	s := buildStore(t, recs...)
	if err := Rebuild(s); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	return s
}

// checkInvariants verifies every structural invariant of the numbering
// against the parent pointers, the slow way.
func checkInvariants(t *testing.T, s *Store) {
	t.Helper()

	nodes := s.All()
	byID := make(map[int64]Node, len(nodes))
	byTree := make(map[int][]Node)
	seen := make(map[[3]int]int64)
	for _, n := range nodes {
		byID[n.ID] = n
		byTree[n.TreeID] = append(byTree[n.TreeID], n)

		if n.Left >= n.Right {
			t.Errorf("node %d: left %d not below right %d", n.ID, n.Left, n.Right)
		}
		if (n.Right-n.Left)%2 != 1 {
			t.Errorf("node %d: interval width [%d,%d] not odd", n.ID, n.Left, n.Right)
		}
		key := [3]int{n.Left, n.Right, n.TreeID}
		if other, dup := seen[key]; dup {
			t.Errorf("nodes %d and %d share (left,right,tree_id) %v", n.ID, other, key)
		}
		seen[key] = n.ID
	}

	// Parent containment, same tree, depth step of one.
	naiveDesc := make(map[int64]int)
	for _, n := range nodes {
		if n.ParentID == nil {
			if n.Depth != 0 {
				t.Errorf("root %d: depth %d", n.ID, n.Depth)
			}
			continue
		}
		p, ok := byID[*n.ParentID]
		if !ok {
			// Unresolved parent: degraded to root behavior.
			if n.Depth != 0 {
				t.Errorf("orphan %d: depth %d", n.ID, n.Depth)
			}
			continue
		}
		if p.TreeID != n.TreeID {
			t.Errorf("node %d: tree %d differs from parent tree %d", n.ID, n.TreeID, p.TreeID)
		}
		if !(p.Left < n.Left && n.Right < p.Right) {
			t.Errorf("node %d [%d,%d] not contained in parent %d [%d,%d]", n.ID, n.Left, n.Right, p.ID, p.Left, p.Right)
		}
		if n.Depth != p.Depth+1 {
			t.Errorf("node %d: depth %d, parent depth %d", n.ID, n.Depth, p.Depth)
		}
		// Count descendants by walking parent pointers up.
		for cur := n; cur.ParentID != nil; {
			up, ok := byID[*cur.ParentID]
			if !ok {
				break
			}
			naiveDesc[up.ID]++
			cur = up
		}
	}

	for _, n := range nodes {
		if got, want := n.DescendantCount(), naiveDesc[n.ID]; got != want {
			t.Errorf("node %d: descendant count %d from numbering, %d from parent walk", n.ID, got, want)
		}
	}

	// Proper nesting per tree: intervals either disjoint or fully contained.
	for treeID, members := range byTree {
		sort.Slice(members, func(i, j int) bool { return members[i].Left < members[j].Left })
		var stack []Node
		for _, n := range members {
			for len(stack) > 0 && stack[len(stack)-1].Right < n.Left {
				stack = stack[:len(stack)-1]
			}
			if len(stack) > 0 && n.Right > stack[len(stack)-1].Right {
				t.Errorf("tree %d: node %d [%d,%d] partially overlaps %d [%d,%d]",
					treeID, n.ID, n.Left, n.Right, stack[len(stack)-1].ID, stack[len(stack)-1].Left, stack[len(stack)-1].Right)
			}
			stack = append(stack, n)
		}
	}

	// Sibling order: ascending (SortKey, ID), intervals in the same order.
	kids := make(map[int64][]Node)
	for _, n := range nodes {
		if n.ParentID != nil {
			if _, ok := byID[*n.ParentID]; ok {
				kids[*n.ParentID] = append(kids[*n.ParentID], n)
			}
		}
	}
	for pid, siblings := range kids {
		sort.Slice(siblings, func(i, j int) bool { return siblings[i].Left < siblings[j].Left })
		for i := 1; i < len(siblings); i++ {
			a, b := siblings[i-1], siblings[i]
			if a.SortKey > b.SortKey || (a.SortKey == b.SortKey && a.ID > b.ID) {
				t.Errorf("children of %d: %d(%q) numbered before %d(%q) against sort order", pid, a.ID, a.SortKey, b.ID, b.SortKey)
			}
			if a.Right >= b.Left {
				t.Errorf("children of %d: intervals of %d and %d overlap", pid, a.ID, b.ID)
			}
		}
	}
}

func mustGet(t *testing.T, s *Store, id int64) Node {
	t.Helper()
	n, err := s.Get(id)
	if err != nil {
		t.Fatalf("Get(%d): %v", id, err)
	}
	return n
}
