package tree

import "fmt"

// Move reparents a single node, keeping the whole forest's numbering valid
// without a full rebuild. The work is proportional to the moved subtree plus
// the nodes of the affected tree(s) whose intervals shift; other trees are
// never touched.
//
// The subtree's interval is detached and the gap compacted, a gap of the
// same span is opened after the new parent's position among its re-sorted
// children, and the subtree is re-inserted at a constant offset with depths
// adjusted. A nil newParentID promotes the node to a root of a brand-new
// tree.
//
// Every failure (NotFound, InvalidReparentError) is detected before any
// mutation, so the store is untouched on error.
func Move(s *Store, id int64, newParentID *int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.nodes[id]
	if n == nil {
		return fmt.Errorf("node %d: %w", id, ErrNotFound)
	}
	if sameParent(n.ParentID, newParentID) {
		return nil
	}

	var p *Node
	if newParentID != nil {
		p = s.nodes[*newParentID]
		if p == nil {
			return fmt.Errorf("node %d: %w", *newParentID, ErrNotFound)
		}
		if p.ID == n.ID || (p.TreeID == n.TreeID && n.Left <= p.Left && p.Right <= n.Right) {
			return &InvalidReparentError{NodeID: id, NewParentID: p.ID}
		}
	}

	// Snapshot the subtree before anything shifts. The walk is iterative for
	// the same reason Rebuild's is: subtree depth is unbounded.
	sub := make(map[int64]struct{})
	stack := []int64{id}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		sub[cur] = struct{}{}
		stack = append(stack, s.children[cur]...)
	}

	span := n.Span()
	oldTree := n.TreeID
	oldLeft, oldRight := n.Left, n.Right
	oldDepth := n.Depth

	// Detach: close the gap the subtree leaves in its old tree.
	for mid := range s.treeMembers(oldTree) {
		if _, moved := sub[mid]; moved {
			continue
		}
		m := s.nodes[mid]
		if m.Left > oldRight {
			m.Left -= span
		}
		if m.Right > oldRight {
			m.Right -= span
		}
	}

	var newTree, insertLeft, depthDelta int
	if p != nil {
		// p's interval reflects the compaction when both share a tree.
		newTree = p.TreeID
		depthDelta = p.Depth + 1 - oldDepth

		// Slot among the new siblings, ordered by (SortKey, ID).
		insertLeft = p.Left + 1
		for _, cid := range s.children[p.ID] {
			c := s.nodes[cid]
			if !s.lessChild(c, n) {
				break
			}
			insertLeft = c.Right + 1
		}

		// Re-open a gap of the subtree's span at the insertion point.
		for mid := range s.treeMembers(newTree) {
			if _, moved := sub[mid]; moved {
				continue
			}
			m := s.nodes[mid]
			if m.Left >= insertLeft {
				m.Left += span
			}
			if m.Right >= insertLeft {
				m.Right += span
			}
		}
	} else {
		newTree = s.nextTreeID()
		insertLeft = 1
		depthDelta = -oldDepth
	}

	// Re-insert the subtree at a constant offset, preserving its relative
	// interval structure.
	offset := insertLeft - oldLeft
	for mid := range sub {
		m := s.nodes[mid]
		if err := s.setNumbering(mid, m.Left+offset, m.Right+offset, newTree, m.Depth+depthDelta); err != nil {
			return err
		}
	}

	return s.setParent(id, newParentID)
}

func sameParent(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
