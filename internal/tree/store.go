package tree

import (
	"fmt"
	"sort"
	"sync"
)

// Store holds a forest of nodes keyed by id. Lookup is O(1) and a
// parent->children index keeps siblings ordered by (SortKey, ID), so
// children listings never scan the whole forest.
//
// The store exclusively owns the derived numbering fields: SetNumbering is
// the only mutation entry point for left/right/tree_id/depth, and it is
// called only by Builder and Mutator. Concurrent readers are safe against
// each other; Builder and Mutator take the write lock for their whole
// operation, so queries always observe a consistent numbering.
type Store struct {
	mu       sync.RWMutex
	nodes    map[int64]*Node
	children map[int64][]int64
	byTree   map[int]map[int64]struct{}

	// treeIDFloor is the lowest tree id Mutator may hand out when a node is
	// promoted to a root. Callers that load only part of a persisted forest
	// raise it so fresh ids do not collide with trees that were not loaded.
	treeIDFloor int
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		nodes:    make(map[int64]*Node),
		children: make(map[int64][]int64),
		byTree:   make(map[int]map[int64]struct{}),
	}
}

// Add inserts a node. The numbering fields of n are ignored; they are
// assigned later by Builder or Mutator. Returns DuplicateIDError if the id
// is already present.
func (s *Store) Add(n Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.nodes[n.ID]; ok {
		return &DuplicateIDError{ID: n.ID}
	}
	n.Left, n.Right, n.TreeID, n.Depth = 0, 0, 0, 0
	s.nodes[n.ID] = &n
	if n.ParentID != nil {
		s.insertChild(*n.ParentID, n.ID)
	}
	return nil
}

// Get returns a copy of the node with the given id.
func (s *Store) Get(id int64) (Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := s.nodes[id]
	if n == nil {
		return Node{}, fmt.Errorf("node %d: %w", id, ErrNotFound)
	}
	return *n, nil
}

// Len returns the number of nodes in the store.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes)
}

// All returns copies of every node, in no particular order.
func (s *Store) All() []Node {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Node, 0, len(s.nodes))
	for _, n := range s.nodes {
		out = append(out, *n)
	}
	return out
}

// ChildrenOf returns the node's children ordered by (SortKey, ID). The cost
// is proportional to the number of children, not the forest size.
func (s *Store) ChildrenOf(id int64) ([]Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.nodes[id] == nil {
		return nil, fmt.Errorf("node %d: %w", id, ErrNotFound)
	}
	return s.childrenOf(id), nil
}

// SetNumbering writes the derived numbering fields for one node. It is the
// only way numbering changes; Builder and Mutator funnel through it so the
// per-tree index stays coherent.
func (s *Store) SetNumbering(id int64, left, right, treeID, depth int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setNumbering(id, left, right, treeID, depth)
}

// SetParent rewires a node's parent pointer and fixes the children index.
// It does not touch the numbering; Mutator pairs it with the interval moves.
func (s *Store) SetParent(id int64, parentID *int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setParent(id, parentID)
}

// ReserveTreeIDs guarantees that any tree id handed out for a new root is at
// least floor. Used when the store holds only the trees affected by a
// reparent while higher tree ids exist in the backing storage.
func (s *Store) ReserveTreeIDs(floor int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if floor > s.treeIDFloor {
		s.treeIDFloor = floor
	}
}

// unlocked internals — callers hold s.mu.

func (s *Store) get(id int64) *Node {
	return s.nodes[id]
}

func (s *Store) childrenOf(id int64) []Node {
	ids := s.children[id]
	out := make([]Node, 0, len(ids))
	for _, cid := range ids {
		out = append(out, *s.nodes[cid])
	}
	return out
}

func (s *Store) setNumbering(id int64, left, right, treeID, depth int) error {
	n := s.nodes[id]
	if n == nil {
		return fmt.Errorf("node %d: %w", id, ErrNotFound)
	}
	if old := n.TreeID; old != treeID {
		if set := s.byTree[old]; set != nil {
			delete(set, id)
			if len(set) == 0 {
				delete(s.byTree, old)
			}
		}
		if treeID != 0 {
			set := s.byTree[treeID]
			if set == nil {
				set = make(map[int64]struct{})
				s.byTree[treeID] = set
			}
			set[id] = struct{}{}
		}
	}
	if treeID >= s.treeIDFloor {
		s.treeIDFloor = treeID + 1
	}
	n.Left, n.Right, n.TreeID, n.Depth = left, right, treeID, depth
	return nil
}

func (s *Store) setParent(id int64, parentID *int64) error {
	n := s.nodes[id]
	if n == nil {
		return fmt.Errorf("node %d: %w", id, ErrNotFound)
	}
	if n.ParentID != nil {
		s.removeChild(*n.ParentID, id)
	}
	n.ParentID = parentID
	if parentID != nil {
		s.insertChild(*parentID, id)
	}
	return nil
}

// treeMembers returns the ids belonging to one tree. The returned set is the
// live index; callers must not mutate it.
func (s *Store) treeMembers(treeID int) map[int64]struct{} {
	return s.byTree[treeID]
}

// nextTreeID picks an id for a brand-new tree.
func (s *Store) nextTreeID() int {
	if s.treeIDFloor < 1 {
		return 1
	}
	return s.treeIDFloor
}

// insertChild keeps s.children[parentID] ordered by (SortKey, ID). The
// child's node must already be in s.nodes.
func (s *Store) insertChild(parentID, childID int64) {
	ids := s.children[parentID]
	c := s.nodes[childID]
	i := sort.Search(len(ids), func(i int) bool {
		return s.lessChild(c, s.nodes[ids[i]])
	})
	ids = append(ids, 0)
	copy(ids[i+1:], ids[i:])
	ids[i] = childID
	s.children[parentID] = ids
}

func (s *Store) removeChild(parentID, childID int64) {
	ids := s.children[parentID]
	for i, cid := range ids {
		if cid == childID {
			s.children[parentID] = append(ids[:i], ids[i+1:]...)
			return
		}
	}
}

// lessChild orders siblings: ascending SortKey, ties broken by id.
func (s *Store) lessChild(a, b *Node) bool {
	if a.SortKey != b.SortKey {
		return a.SortKey < b.SortKey
	}
	return a.ID < b.ID
}
