package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"

	"refgraph/internal/config"
	"refgraph/internal/domain"
	"refgraph/internal/domain/models"
	"refgraph/internal/domain/repositories"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// fakeTxManager runs the function without a database.
type fakeTxManager struct{}

func (fakeTxManager) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	return fn(ctx)
}

// fakeUserRepo keeps an in-memory forest keyed by original id.
type fakeUserRepo struct {
	users map[int64]*models.UserWithTotals

	lastFilter repositories.UserFilter
	applied    []repositories.NumberingUpdate
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[int64]*models.UserWithTotals)}
}

func (f *fakeUserRepo) add(id int64, username string, parent *int64, lft, rght, treeID, depth int) {
	f.users[id] = &models.UserWithTotals{
		User: models.User{
			OriginalID:       id,
			Username:         username,
			ParentOriginalID: parent,
			Lft:              lft,
			Rght:             rght,
			TreeID:           treeID,
			Depth:            depth,
		},
	}
}

func (f *fakeUserRepo) BulkInsert(ctx context.Context, users []models.User) error { return nil }
func (f *fakeUserRepo) DeletePlatform(ctx context.Context, platform string) error { return nil }

func (f *fakeUserRepo) GetByOriginalID(ctx context.Context, platform string, originalID int64) (*models.UserWithTotals, error) {
	u, ok := f.users[originalID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserRepo) List(ctx context.Context, platform string, filter repositories.UserFilter) ([]models.UserWithTotals, int64, error) {
	f.lastFilter = filter
	return nil, 0, nil
}

func (f *fakeUserRepo) Search(ctx context.Context, platform, query string, limit int) ([]models.UserWithTotals, error) {
	return nil, nil
}

func (f *fakeUserRepo) Ancestors(ctx context.Context, platform string, originalID int64) ([]models.UserWithTotals, error) {
	return nil, nil
}

func (f *fakeUserRepo) Subtree(ctx context.Context, platform string, originalID int64, maxDepth int) ([]models.UserWithTotals, error) {
	root, ok := f.users[originalID]
	if !ok {
		return nil, nil
	}
	var flat []models.UserWithTotals
	for _, u := range f.users {
		if u.TreeID == root.TreeID && u.Lft >= root.Lft && u.Rght <= root.Rght &&
			u.Depth <= root.Depth+maxDepth {
			flat = append(flat, *u)
		}
	}
	// pre-order
	for i := range flat {
		for j := i + 1; j < len(flat); j++ {
			if flat[j].Lft < flat[i].Lft {
				flat[i], flat[j] = flat[j], flat[i]
			}
		}
	}
	return flat, nil
}

func (f *fakeUserRepo) Roots(ctx context.Context, platform string, limit, offset int) ([]models.UserWithTotals, int64, error) {
	return nil, 0, nil
}

func (f *fakeUserRepo) Counts(ctx context.Context, platform string) (int64, int64, error) {
	var roots int64
	for _, u := range f.users {
		if u.ParentOriginalID == nil {
			roots++
		}
	}
	return int64(len(f.users)), roots, nil
}

func (f *fakeUserRepo) TreeNodes(ctx context.Context, platform string, treeIDs []int) ([]repositories.TreeNodeRecord, error) {
	var records []repositories.TreeNodeRecord
	for _, u := range f.users {
		for _, id := range treeIDs {
			if u.TreeID == id {
				records = append(records, repositories.TreeNodeRecord{
					OriginalID:       u.OriginalID,
					ParentOriginalID: u.ParentOriginalID,
					Username:         u.Username,
					Lft:              u.Lft,
					Rght:             u.Rght,
					TreeID:           u.TreeID,
					Depth:            u.Depth,
				})
			}
		}
	}
	return records, nil
}

func (f *fakeUserRepo) MaxTreeID(ctx context.Context, platform string) (int, error) {
	max := 0
	for _, u := range f.users {
		if u.TreeID > max {
			max = u.TreeID
		}
	}
	return max, nil
}

func (f *fakeUserRepo) ApplyNumbering(ctx context.Context, platform string, updates []repositories.NumberingUpdate) error {
	f.applied = append(f.applied, updates...)
	for _, up := range updates {
		u, ok := f.users[up.OriginalID]
		if !ok {
			return domain.ErrNotFound
		}
		u.ParentOriginalID = up.ParentOriginalID
		u.Lft, u.Rght, u.TreeID, u.Depth = up.Lft, up.Rght, up.TreeID, up.Depth
	}
	return nil
}

type fakePurchaseRepo struct {
	count  int64
	volume decimal.Decimal
}

func (f *fakePurchaseRepo) BulkInsert(ctx context.Context, purchases []models.Purchase) error {
	return nil
}
func (f *fakePurchaseRepo) DeletePlatform(ctx context.Context, platform string) error { return nil }
func (f *fakePurchaseRepo) List(ctx context.Context, platform string, filter repositories.PurchaseFilter) ([]models.Purchase, int64, error) {
	return nil, 0, nil
}
func (f *fakePurchaseRepo) CompletedTotals(ctx context.Context, platform string) (int64, decimal.Decimal, error) {
	return f.count, f.volume, nil
}

type fakeEarningRepo struct {
	withdrawn decimal.Decimal
}

func (f *fakeEarningRepo) BulkInsert(ctx context.Context, earnings []models.Earning) error {
	return nil
}
func (f *fakeEarningRepo) DeletePlatform(ctx context.Context, platform string) error { return nil }
func (f *fakeEarningRepo) List(ctx context.Context, platform string, filter repositories.EarningFilter) ([]models.Earning, int64, error) {
	return nil, 0, nil
}
func (f *fakeEarningRepo) WithdrawnTotal(ctx context.Context, platform string) (decimal.Decimal, error) {
	return f.withdrawn, nil
}

func ptr(v int64) *int64 { return &v }

func TestListUsersClampsLimit(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewUserService(repo, &fakePurchaseRepo{}, &fakeEarningRepo{}, testLogger())

	tests := []struct {
		name  string
		limit int
		want  int
	}{
		{"default", 0, config.DefaultPageSize},
		{"capped", 10000, config.MaxPageSize},
		{"passthrough", 25, 25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.ListUsers(context.Background(), "limitless", &ListUsersRequest{Limit: tt.limit})
			if err != nil {
				t.Fatalf("ListUsers: %v", err)
			}
			if repo.lastFilter.Limit != tt.want {
				t.Errorf("limit = %d, want %d", repo.lastFilter.Limit, tt.want)
			}
		})
	}
}

func TestListUsersRejectsBadOrdering(t *testing.T) {
	svc := NewUserService(newFakeUserRepo(), &fakePurchaseRepo{}, &fakeEarningRepo{}, testLogger())

	_, _, err := svc.ListUsers(context.Background(), "limitless", &ListUsersRequest{OrderBy: "wallet; DROP TABLE"})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSearchRejectsShortQuery(t *testing.T) {
	svc := NewUserService(newFakeUserRepo(), &fakePurchaseRepo{}, &fakeEarningRepo{}, testLogger())

	_, err := svc.SearchUsers(context.Background(), "limitless", "a", 10)
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestGetStats(t *testing.T) {
	repo := newFakeUserRepo()
	repo.add(1, "root", nil, 1, 4, 1, 0)
	repo.add(2, "child", ptr(1), 2, 3, 1, 1)

	purchases := &fakePurchaseRepo{count: 3, volume: decimal.RequireFromString("750.25")}
	earnings := &fakeEarningRepo{withdrawn: decimal.RequireFromString("50")}
	svc := NewUserService(repo, purchases, earnings, testLogger())

	stats, err := svc.GetStats(context.Background(), "limitless")
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if stats.TotalUsers != 2 || stats.RootUsers != 1 {
		t.Errorf("users: total=%d roots=%d", stats.TotalUsers, stats.RootUsers)
	}
	if stats.TotalPurchases != 3 || !stats.TotalVolume.Equal(purchases.volume) {
		t.Errorf("purchases: %d %s", stats.TotalPurchases, stats.TotalVolume)
	}
	if !stats.TotalEarnings.Equal(earnings.withdrawn) {
		t.Errorf("earnings: %s", stats.TotalEarnings)
	}
}

// seedForest builds the shape used across hierarchy tests:
//
//	1 [1,8] d0
//	├── 2 "a" [2,5] d1
//	│   └── 4 [3,4] d2
//	└── 3 "b" [6,7] d1
func seedForest() *fakeUserRepo {
	repo := newFakeUserRepo()
	repo.add(1, "root", nil, 1, 8, 1, 0)
	repo.add(2, "a", ptr(1), 2, 5, 1, 1)
	repo.add(4, "leaf", ptr(2), 3, 4, 1, 2)
	repo.add(3, "b", ptr(1), 6, 7, 1, 1)
	return repo
}

func TestGetTreeNesting(t *testing.T) {
	svc := NewHierarchyService(seedForest(), fakeTxManager{}, testLogger())

	node, err := svc.GetTree(context.Background(), "limitless", 1, 2)
	if err != nil {
		t.Fatalf("GetTree: %v", err)
	}
	if node.OriginalID != 1 || len(node.Children) != 2 {
		t.Fatalf("root: id=%d children=%d", node.OriginalID, len(node.Children))
	}
	// children sorted by username via pre-order: "a" before "b"
	if node.Children[0].OriginalID != 2 || node.Children[1].OriginalID != 3 {
		t.Errorf("child order: %d, %d", node.Children[0].OriginalID, node.Children[1].OriginalID)
	}
	if len(node.Children[0].Children) != 1 || node.Children[0].Children[0].OriginalID != 4 {
		t.Errorf("grandchild missing")
	}
}

func TestGetTreeDepthBound(t *testing.T) {
	svc := NewHierarchyService(seedForest(), fakeTxManager{}, testLogger())

	node, err := svc.GetTree(context.Background(), "limitless", 1, 1)
	if err != nil {
		t.Fatalf("GetTree: %v", err)
	}
	if len(node.Children) != 2 {
		t.Fatalf("children = %d", len(node.Children))
	}
	if len(node.Children[0].Children) != 0 {
		t.Errorf("depth bound ignored, grandchildren present")
	}
}

func TestGetTreeUnknownUser(t *testing.T) {
	svc := NewHierarchyService(seedForest(), fakeTxManager{}, testLogger())

	_, err := svc.GetTree(context.Background(), "limitless", 999, 2)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestReparentMovesSubtree(t *testing.T) {
	repo := seedForest()
	svc := NewHierarchyService(repo, fakeTxManager{}, testLogger())

	// move 3 under 4
	if err := svc.Reparent(context.Background(), "limitless", 3, ptr(4)); err != nil {
		t.Fatalf("Reparent: %v", err)
	}

	moved := repo.users[3]
	if moved.ParentOriginalID == nil || *moved.ParentOriginalID != 4 {
		t.Fatalf("parent not updated: %v", moved.ParentOriginalID)
	}
	if moved.Lft != 4 || moved.Rght != 5 || moved.Depth != 3 {
		t.Errorf("numbering: lft=%d rght=%d depth=%d", moved.Lft, moved.Rght, moved.Depth)
	}
	if repo.users[1].Rght != 8 {
		t.Errorf("root width changed: %d", repo.users[1].Rght)
	}
}

func TestReparentToRootGetsFreshTree(t *testing.T) {
	repo := seedForest()
	svc := NewHierarchyService(repo, fakeTxManager{}, testLogger())

	if err := svc.Reparent(context.Background(), "limitless", 2, nil); err != nil {
		t.Fatalf("Reparent: %v", err)
	}

	moved := repo.users[2]
	if moved.ParentOriginalID != nil {
		t.Fatalf("expected root, parent=%v", moved.ParentOriginalID)
	}
	if moved.TreeID == 1 {
		t.Errorf("expected a fresh tree id, still %d", moved.TreeID)
	}
	if moved.Depth != 0 || repo.users[4].Depth != 1 {
		t.Errorf("depths: moved=%d child=%d", moved.Depth, repo.users[4].Depth)
	}
}

func TestReparentRejectsDescendant(t *testing.T) {
	svc := NewHierarchyService(seedForest(), fakeTxManager{}, testLogger())

	err := svc.Reparent(context.Background(), "limitless", 2, ptr(4))
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestReparentRejectsSelf(t *testing.T) {
	svc := NewHierarchyService(seedForest(), fakeTxManager{}, testLogger())

	err := svc.Reparent(context.Background(), "limitless", 2, ptr(2))
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestReparentUnknownTarget(t *testing.T) {
	svc := NewHierarchyService(seedForest(), fakeTxManager{}, testLogger())

	err := svc.Reparent(context.Background(), "limitless", 2, ptr(999))
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestReparentGateBusy(t *testing.T) {
	svc := NewHierarchyService(seedForest(), fakeTxManager{}, testLogger())

	svc.writerGate.Lock()
	defer svc.writerGate.Unlock()

	err := svc.Reparent(context.Background(), "limitless", 3, ptr(4))
	if !errors.Is(err, domain.ErrRebuildInProgress) {
		t.Fatalf("expected rebuild-in-progress, got %v", err)
	}
}

// fakeAssignmentRepo stores claims keyed by (seller, platform, target).
type fakeAssignmentRepo struct {
	claims map[string]models.SellerAssignment
}

func newFakeAssignmentRepo() *fakeAssignmentRepo {
	return &fakeAssignmentRepo{claims: make(map[string]models.SellerAssignment)}
}

func claimKey(sellerID, platform string, target int64) string {
	return fmt.Sprintf("%s|%s|%d", sellerID, platform, target)
}

func (f *fakeAssignmentRepo) Create(ctx context.Context, a *models.SellerAssignment) error {
	key := claimKey(a.SellerID, a.Platform, a.TargetUserID)
	if _, ok := f.claims[key]; ok {
		return &domain.ConflictError{Message: "duplicate claim", ResourceType: "assignment"}
	}
	f.claims[key] = *a
	return nil
}

func (f *fakeAssignmentRepo) Delete(ctx context.Context, sellerID, platform string, targetUserID int64) (bool, error) {
	key := claimKey(sellerID, platform, targetUserID)
	if _, ok := f.claims[key]; !ok {
		return false, nil
	}
	delete(f.claims, key)
	return true, nil
}

func (f *fakeAssignmentRepo) CountForWallet(ctx context.Context, platform string, targetUserID int64) (int, error) {
	count := 0
	for _, a := range f.claims {
		if a.Platform == platform && a.TargetUserID == targetUserID {
			count++
		}
	}
	return count, nil
}

func (f *fakeAssignmentRepo) ListBySeller(ctx context.Context, sellerID, platform string) ([]models.SellerAssignment, error) {
	var out []models.SellerAssignment
	for _, a := range f.claims {
		if a.SellerID == sellerID && a.Platform == platform {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeAssignmentRepo) ListForUser(ctx context.Context, platform string, targetUserID int64) ([]models.SellerAssignment, error) {
	var out []models.SellerAssignment
	for _, a := range f.claims {
		if a.Platform == platform && a.TargetUserID == targetUserID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeAssignmentRepo) ListForUsers(ctx context.Context, platform string, targetUserIDs []int64) (map[int64][]models.SellerAssignment, error) {
	out := make(map[int64][]models.SellerAssignment)
	for _, id := range targetUserIDs {
		list, _ := f.ListForUser(ctx, platform, id)
		if len(list) > 0 {
			out[id] = list
		}
	}
	return out, nil
}

func sellerClaims(sub string) *models.SellerClaims {
	c := &models.SellerClaims{}
	c.Subject = sub
	c.FullName = "Seller " + sub
	c.IsSeller = true
	return c
}

func TestClaimAndUnclaim(t *testing.T) {
	users := seedForest()
	users.users[1].Wallet = "0x1234567890abcdef"
	repo := newFakeAssignmentRepo()
	svc := NewAssignmentService(repo, users, fakeTxManager{}, testLogger())

	a, err := svc.Claim(context.Background(), sellerClaims("s1"), &ClaimRequest{
		Platform:     "limitless",
		TargetUserID: 1,
	})
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if a.WalletAddress != "0x1234567890abcdef" {
		t.Errorf("wallet not cached: %q", a.WalletAddress)
	}

	// repeat claim conflicts
	_, err = svc.Claim(context.Background(), sellerClaims("s1"), &ClaimRequest{
		Platform:     "limitless",
		TargetUserID: 1,
	})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	if err := svc.Unclaim(context.Background(), sellerClaims("s1"), &UnclaimRequest{
		Platform:     "limitless",
		TargetUserID: 1,
	}); err != nil {
		t.Fatalf("Unclaim: %v", err)
	}

	// unclaiming again is a 404
	err = svc.Unclaim(context.Background(), sellerClaims("s1"), &UnclaimRequest{
		Platform:     "limitless",
		TargetUserID: 1,
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestClaimWalletCap(t *testing.T) {
	users := seedForest()
	repo := newFakeAssignmentRepo()
	svc := NewAssignmentService(repo, users, fakeTxManager{}, testLogger())

	for i := 0; i < models.MaxSellersPerWallet; i++ {
		_, err := svc.Claim(context.Background(), sellerClaims(string(rune('a'+i))), &ClaimRequest{
			Platform:     "limitless",
			TargetUserID: 1,
		})
		if err != nil {
			t.Fatalf("claim %d: %v", i, err)
		}
	}

	_, err := svc.Claim(context.Background(), sellerClaims("overflow"), &ClaimRequest{
		Platform:     "limitless",
		TargetUserID: 1,
	})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict at cap, got %v", err)
	}
}

func TestClaimUnknownUser(t *testing.T) {
	svc := NewAssignmentService(newFakeAssignmentRepo(), seedForest(), fakeTxManager{}, testLogger())

	_, err := svc.Claim(context.Background(), sellerClaims("s1"), &ClaimRequest{
		Platform:     "limitless",
		TargetUserID: 999,
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestBulkValidatesSize(t *testing.T) {
	svc := NewAssignmentService(newFakeAssignmentRepo(), seedForest(), fakeTxManager{}, testLogger())

	ids := make([]int64, config.MaxBulkUsers+1)
	for i := range ids {
		ids[i] = int64(i + 1)
	}

	_, err := svc.Bulk(context.Background(), "limitless", ids)
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
