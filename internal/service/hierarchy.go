package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"refgraph/internal/config"
	"refgraph/internal/domain"
	"refgraph/internal/domain/models"
	"refgraph/internal/domain/repositories"
	"refgraph/internal/tree"
)

// HierarchyService serves the tree-shaped endpoints and the reparent
// operation. Reads go straight to the repository, which answers them off the
// nested-set numbering. Writes (reparent) rebuild the affected trees in
// memory with the tree package and persist the numbering diff.
type HierarchyService struct {
	userRepo  repositories.UserRepository
	txManager repositories.TransactionManager
	logger    *slog.Logger

	// writerGate serializes tree writers. TryLock instead of Lock: a writer
	// that would wait returns ErrRebuildInProgress so the client can retry,
	// instead of queueing mutations against a numbering it has not seen.
	writerGate sync.Mutex
}

// NewHierarchyService creates a new hierarchy service
func NewHierarchyService(
	userRepo repositories.UserRepository,
	txManager repositories.TransactionManager,
	logger *slog.Logger,
) *HierarchyService {
	return &HierarchyService{
		userRepo:  userRepo,
		txManager: txManager,
		logger:    logger,
	}
}

// clampDepth applies the default and maximum subtree depths.
func clampDepth(depth int) int {
	if depth <= 0 {
		return config.DefaultTreeDepth
	}
	if depth > config.MaxTreeDepth {
		return config.MaxTreeDepth
	}
	return depth
}

// GetTree returns the user's subtree nested to the given depth.
func (s *HierarchyService) GetTree(ctx context.Context, platform string, originalID int64, depth int) (*models.UserTreeNode, error) {
	flat, err := s.userRepo.Subtree(ctx, platform, originalID, clampDepth(depth))
	if err != nil {
		return nil, err
	}
	if len(flat) == 0 {
		return nil, fmt.Errorf("user %d: %w", originalID, domain.ErrNotFound)
	}

	roots := nestUsers(flat)
	return roots[0], nil
}

// GetAncestors returns the root-to-self path, self included.
func (s *HierarchyService) GetAncestors(ctx context.Context, platform string, originalID int64) ([]models.UserWithTotals, error) {
	return s.userRepo.Ancestors(ctx, platform, originalID)
}

// ListRoots pages through root users, largest subtree first. With depth > 0
// each root carries its nested children down to that depth.
func (s *HierarchyService) ListRoots(ctx context.Context, platform string, depth, limit, offset int) ([]*models.UserTreeNode, int64, error) {
	limit = clampLimit(limit)
	if offset < 0 {
		offset = 0
	}

	roots, total, err := s.userRepo.Roots(ctx, platform, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	nodes := make([]*models.UserTreeNode, 0, len(roots))
	for _, root := range roots {
		if depth <= 0 {
			nodes = append(nodes, &models.UserTreeNode{
				UserWithTotals: root,
				Children:       []*models.UserTreeNode{},
			})
			continue
		}

		flat, err := s.userRepo.Subtree(ctx, platform, root.OriginalID, clampDepth(depth))
		if err != nil {
			return nil, 0, err
		}
		nested := nestUsers(flat)
		nodes = append(nodes, nested[0])
	}

	return nodes, total, nil
}

// nestUsers folds a pre-order flat listing into nested tree nodes. Nodes
// whose parent is not part of the listing become roots; for a subtree query
// that is exactly the queried node.
func nestUsers(flat []models.UserWithTotals) []*models.UserTreeNode {
	byID := make(map[int64]*models.UserTreeNode, len(flat))
	for i := range flat {
		byID[flat[i].OriginalID] = &models.UserTreeNode{
			UserWithTotals: flat[i],
			Children:       []*models.UserTreeNode{},
		}
	}

	var roots []*models.UserTreeNode
	for i := range flat {
		node := byID[flat[i].OriginalID]
		p := flat[i].ParentOriginalID
		if p == nil {
			roots = append(roots, node)
			continue
		}
		parent, ok := byID[*p]
		if !ok {
			roots = append(roots, node)
			continue
		}
		// flat is in pre-order, so children arrive already sorted
		parent.Children = append(parent.Children, node)
	}
	return roots
}

// Reparent moves one user under a new parent (or to root when newParentID is
// nil). The affected trees are loaded into an in-memory store, the move is
// applied there, and the resulting numbering diff is written back in the
// same transaction. Returns ErrRebuildInProgress when another writer holds
// the gate.
func (s *HierarchyService) Reparent(ctx context.Context, platform string, originalID int64, newParentID *int64) error {
	if !s.writerGate.TryLock() {
		return domain.ErrRebuildInProgress
	}
	defer s.writerGate.Unlock()

	if newParentID != nil && *newParentID == originalID {
		return &domain.InvalidTreeError{
			Cause: &tree.InvalidReparentError{NodeID: originalID, NewParentID: *newParentID},
		}
	}

	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		node, err := s.userRepo.GetByOriginalID(txCtx, platform, originalID)
		if err != nil {
			return err
		}

		treeIDs := []int{node.TreeID}
		if newParentID != nil {
			parent, err := s.userRepo.GetByOriginalID(txCtx, platform, *newParentID)
			if err != nil {
				return err
			}
			if parent.TreeID != node.TreeID {
				treeIDs = append(treeIDs, parent.TreeID)
			}
		}

		records, err := s.userRepo.TreeNodes(txCtx, platform, treeIDs)
		if err != nil {
			return err
		}

		store, err := loadStore(records)
		if err != nil {
			return err
		}

		// New roots must not reuse a tree id belonging to a tree we did not
		// load.
		maxTree, err := s.userRepo.MaxTreeID(txCtx, platform)
		if err != nil {
			return err
		}
		store.ReserveTreeIDs(maxTree + 1)

		if err := tree.Move(store, originalID, newParentID); err != nil {
			return mapTreeError(err)
		}

		updates := numberingDiff(store, records)
		if len(updates) == 0 {
			return nil
		}

		if err := s.userRepo.ApplyNumbering(txCtx, platform, updates); err != nil {
			return err
		}

		s.logger.Info("user reparented",
			"platform", platform,
			"user", originalID,
			"new_parent", newParentID,
			"rows_renumbered", len(updates),
		)
		return nil
	})
	return err
}

// loadStore reconstructs an in-memory forest from persisted tree rows.
func loadStore(records []repositories.TreeNodeRecord) (*tree.Store, error) {
	store := tree.NewStore()
	for _, rec := range records {
		err := store.Add(tree.Node{
			ID:       rec.OriginalID,
			ParentID: rec.ParentOriginalID,
			SortKey:  rec.Username,
		})
		if err != nil {
			return nil, mapTreeError(err)
		}
	}
	for _, rec := range records {
		if err := store.SetNumbering(rec.OriginalID, rec.Lft, rec.Rght, rec.TreeID, rec.Depth); err != nil {
			return nil, mapTreeError(err)
		}
	}
	return store, nil
}

// numberingDiff collects the rows whose numbering or parent changed.
func numberingDiff(store *tree.Store, records []repositories.TreeNodeRecord) []repositories.NumberingUpdate {
	var updates []repositories.NumberingUpdate
	for _, rec := range records {
		n, err := store.Get(rec.OriginalID)
		if err != nil {
			continue
		}
		if n.Left == rec.Lft && n.Right == rec.Rght &&
			n.TreeID == rec.TreeID && n.Depth == rec.Depth &&
			sameParentID(n.ParentID, rec.ParentOriginalID) {
			continue
		}
		updates = append(updates, repositories.NumberingUpdate{
			OriginalID:       rec.OriginalID,
			ParentOriginalID: n.ParentID,
			Lft:              n.Left,
			Rght:             n.Right,
			TreeID:           n.TreeID,
			Depth:            n.Depth,
		})
	}
	return updates
}

func sameParentID(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// mapTreeError translates tree package errors into the domain taxonomy so
// the handler layer can map them onto HTTP statuses.
func mapTreeError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, tree.ErrNotFound) {
		return fmt.Errorf("%v: %w", err, domain.ErrNotFound)
	}

	var reparentErr *tree.InvalidReparentError
	var cycleErr *tree.CycleError
	var dupErr *tree.DuplicateIDError
	if errors.As(err, &reparentErr) || errors.As(err, &cycleErr) || errors.As(err, &dupErr) {
		return &domain.InvalidTreeError{Cause: err}
	}
	return err
}
