// Package tree implements the nested-set (modified preorder tree traversal)
// encoding used for the referral hierarchy: every node carries a left/right
// interval, a tree id grouping it into a forest, and a depth. Containment of
// intervals mirrors the ancestor/descendant relation, so subtree size and
// descendant listings come straight out of the numbering without recursion.
//
// The package is split the way the data flows: Store holds the forest,
// Builder computes a fresh numbering from parent pointers, Mutator reparents
// a single node while keeping the numbering valid, and Query answers
// read-only questions against a consistent Store.
package tree

// Node is one entity in a hierarchy. ID and ParentID come from the source
// data; SortKey determines sibling order (ties broken by ID). The four
// numbering fields are derived and owned by the Store: they are written only
// through Builder or Mutator, never directly.
type Node struct {
	ID       int64
	ParentID *int64
	SortKey  string

	Left   int
	Right  int
	TreeID int
	Depth  int
}

// IsRoot reports whether the node has no parent pointer. A node whose parent
// id does not resolve to a live node is also treated as a root by Builder and
// Query, but that resolution requires a Store.
func (n Node) IsRoot() bool {
	return n.ParentID == nil
}

// Span is the width of the node's interval, which is always twice the
// subtree size (the node itself plus its strict descendants).
func (n Node) Span() int {
	return n.Right - n.Left + 1
}

// DescendantCount is the number of strict descendants, read directly off the
// numbering in O(1).
func (n Node) DescendantCount() int {
	return (n.Right - n.Left - 1) / 2
}

// contains reports whether other lies strictly inside n's interval. Only
// meaningful when both nodes share a tree id.
func (n Node) contains(other Node) bool {
	return n.Left < other.Left && other.Right < n.Right
}
