package tree

import "sort"

// Rebuild computes a fresh numbering for every node in the store from the
// parent pointers and sort keys alone. Existing numbering is discarded.
//
// Roots (nodes without a parent, plus nodes whose parent id does not resolve
// to a live node) are ordered by (SortKey, ID) and assigned tree ids 1..n.
// Each tree is then walked pre-order with an explicit stack — referral
// chains can be tens of thousands of levels deep, far past any safe
// recursion depth — and left/right/depth are assigned along the walk.
//
// The operation is all-or-nothing: on CycleError nothing is written and the
// previous numbering stays live. An empty store is a valid no-op.
func Rebuild(s *Store) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.nodes) == 0 {
		return nil
	}

	if err := s.checkAcyclic(); err != nil {
		return err
	}

	roots := make([]*Node, 0)
	for _, n := range s.nodes {
		if n.ParentID == nil || s.nodes[*n.ParentID] == nil {
			roots = append(roots, n)
		}
	}
	sort.Slice(roots, func(i, j int) bool {
		return s.lessChild(roots[i], roots[j])
	})

	type numbering struct {
		left, right, treeID, depth int
	}
	staged := make(map[int64]*numbering, len(s.nodes))

	type frame struct {
		id    int64
		child int // index of the next child to visit
	}
	for treeIdx, root := range roots {
		treeID := treeIdx + 1
		counter := 1

		stack := []frame{{id: root.ID}}
		staged[root.ID] = &numbering{left: counter, treeID: treeID, depth: 0}
		counter++

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			kids := s.children[top.id]
			if top.child < len(kids) {
				childID := kids[top.child]
				top.child++
				staged[childID] = &numbering{left: counter, treeID: treeID, depth: len(stack)}
				counter++
				stack = append(stack, frame{id: childID})
				continue
			}
			staged[top.id].right = counter
			counter++
			stack = stack[:len(stack)-1]
		}
	}

	// The walk cannot fail past this point, so the staged numbering is
	// complete; commit it in one pass.
	for id, g := range staged {
		if err := s.setNumbering(id, g.left, g.right, g.treeID, g.depth); err != nil {
			return err
		}
	}
	return nil
}

// checkAcyclic walks the parent chain of every node, marking visited ids, and
// returns a CycleError naming the offending id chain if any walk revisits a
// node currently on its own path. Caller holds the write lock.
func (s *Store) checkAcyclic() error {
	const (
		unvisited = 0
		onPath    = 1
		done      = 2
	)
	state := make(map[int64]uint8, len(s.nodes))
	var path []int64

	for id := range s.nodes {
		if state[id] != unvisited {
			continue
		}
		path = path[:0]
		cur := id
		for {
			switch state[cur] {
			case done:
				// Joins a chain already proven to terminate.
			case onPath:
				// cur repeats within the current walk: report the loop.
				start := 0
				for i, pid := range path {
					if pid == cur {
						start = i
						break
					}
				}
				chain := append(append([]int64{}, path[start:]...), cur)
				return &CycleError{Chain: chain}
			default:
				state[cur] = onPath
				path = append(path, cur)
				n := s.nodes[cur]
				if n.ParentID != nil && s.nodes[*n.ParentID] != nil {
					cur = *n.ParentID
					continue
				}
			}
			break
		}
		for _, pid := range path {
			state[pid] = done
		}
	}
	return nil
}
