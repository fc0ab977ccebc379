package tree

import (
	"fmt"
	"sort"
)

// RootOrder selects the ordering of Roots listings.
type RootOrder int

const (
	// RootsBySize orders by descendant count descending, ties by id.
	RootsBySize RootOrder = iota
	// RootsBySortKey orders by (SortKey, ID) ascending.
	RootsBySortKey
	// RootsByID orders by id ascending.
	RootsByID
)

// Subtree is a depth-bounded materialization of a node and its descendants,
// nested in sibling order.
type Subtree struct {
	Node
	Children []*Subtree
}

// Ancestors returns the chain from the root down to the node, read off the
// numbering: same tree, enclosing interval, ordered by left ascending.
func Ancestors(s *Store, id int64, includeSelf bool) ([]Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := s.nodes[id]
	if n == nil {
		return nil, fmt.Errorf("node %d: %w", id, ErrNotFound)
	}

	var out []Node
	for mid := range s.treeMembers(n.TreeID) {
		m := s.nodes[mid]
		if m.Left <= n.Left && m.Right >= n.Right {
			if mid == id && !includeSelf {
				continue
			}
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Left < out[j].Left })
	return out, nil
}

// Descendants returns the node's subtree in pre-order (left ascending),
// which is the natural display order.
func Descendants(s *Store, id int64, includeSelf bool) ([]Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := s.nodes[id]
	if n == nil {
		return nil, fmt.Errorf("node %d: %w", id, ErrNotFound)
	}

	lo, hi := n.Left, n.Right
	if !includeSelf {
		lo, hi = lo+1, hi-1
	}
	var out []Node
	for mid := range s.treeMembers(n.TreeID) {
		m := s.nodes[mid]
		if m.Left >= lo && m.Left <= hi {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Left < out[j].Left })
	return out, nil
}

// Children returns the immediate children in sibling order, straight from
// the parent index rather than an interval scan.
func Children(s *Store, id int64) ([]Node, error) {
	return s.ChildrenOf(id)
}

// DescendantCount returns the number of strict descendants in O(1).
func DescendantCount(s *Store, id int64) (int, error) {
	n, err := s.Get(id)
	if err != nil {
		return 0, err
	}
	return n.DescendantCount(), nil
}

// Roots lists the forest's roots — nodes without a parent, plus nodes whose
// parent id does not resolve — in the requested order.
func Roots(s *Store, order RootOrder) []Node {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Node
	for _, n := range s.nodes {
		if n.ParentID == nil || s.nodes[*n.ParentID] == nil {
			out = append(out, *n)
		}
	}
	switch order {
	case RootsBySortKey:
		sort.Slice(out, func(i, j int) bool {
			if out[i].SortKey != out[j].SortKey {
				return out[i].SortKey < out[j].SortKey
			}
			return out[i].ID < out[j].ID
		})
	case RootsByID:
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	default:
		sort.Slice(out, func(i, j int) bool {
			ci, cj := out[i].DescendantCount(), out[j].DescendantCount()
			if ci != cj {
				return ci > cj
			}
			return out[i].ID < out[j].ID
		})
	}
	return out
}

// SubtreeOf materializes the node and up to maxDepth levels below it,
// breadth-first via the children index. maxDepth 0 yields the bare node;
// depth-bounding is why this is built level by level instead of as a single
// interval scan.
func SubtreeOf(s *Store, id int64, maxDepth int) (*Subtree, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := s.nodes[id]
	if n == nil {
		return nil, fmt.Errorf("node %d: %w", id, ErrNotFound)
	}

	root := &Subtree{Node: *n}
	if maxDepth <= 0 {
		return root, nil
	}

	type item struct {
		sub       *Subtree
		remaining int
	}
	queue := []item{{sub: root, remaining: maxDepth}}
	for len(queue) > 0 {
		it := queue[0]
		queue = queue[1:]
		for _, c := range s.childrenOf(it.sub.ID) {
			child := &Subtree{Node: c}
			it.sub.Children = append(it.sub.Children, child)
			if it.remaining > 1 {
				queue = append(queue, item{sub: child, remaining: it.remaining - 1})
			}
		}
	}
	return root, nil
}
