package tree

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrNotFound is returned when a referenced node id is absent from the store.
var ErrNotFound = errors.New("node not found")

// CycleError reports a cycle in the parent-pointer graph. Chain holds the
// ids along the offending parent walk, ending at the first repeated id.
type CycleError struct {
	Chain []int64
}

func (e *CycleError) Error() string {
	parts := make([]string, len(e.Chain))
	for i, id := range e.Chain {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return "cycle detected in parent chain: " + strings.Join(parts, " -> ")
}

// DuplicateIDError reports two input rows claiming the same node id.
type DuplicateIDError struct {
	ID int64
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("duplicate node id %d", e.ID)
}

// InvalidReparentError reports an attempt to move a node under itself or one
// of its own descendants.
type InvalidReparentError struct {
	NodeID      int64
	NewParentID int64
}

func (e *InvalidReparentError) Error() string {
	return fmt.Sprintf("cannot move node %d under %d: target is the node itself or one of its descendants", e.NodeID, e.NewParentID)
}
