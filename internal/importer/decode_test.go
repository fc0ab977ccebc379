package importer

import (
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"refgraph/internal/csvutil"
	"refgraph/internal/domain"
	"refgraph/internal/domain/models"
)

func mustRows(t *testing.T, csv string) []csvutil.Row {
	t.Helper()
	rows, err := csvutil.ReadAll(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	return rows
}

func TestDecodeUsers(t *testing.T) {
	rows := mustRows(t, `id,username,email,parent_id,is_active,wallet,date_joined
1,alice,alice@example.com,,true,0xabc,2023-01-15 10:30:00
2,bob,,1,true,0xdef,
3,carol,,999,false,,
,broken,,,,,`)

	users := DecodeUsers("limitless", rows)

	if len(users) != 3 {
		t.Fatalf("expected 3 users (row without id skipped), got %d", len(users))
	}

	alice := users[0]
	if alice.OriginalID != 1 || alice.Username != "alice" {
		t.Errorf("unexpected first user: %+v", alice)
	}
	if alice.Email == nil || *alice.Email != "alice@example.com" {
		t.Errorf("expected email set, got %v", alice.Email)
	}
	if alice.ParentOriginalID != nil {
		t.Errorf("expected alice to be a root")
	}
	if alice.DateJoined == nil {
		t.Errorf("expected date_joined parsed")
	}

	bob := users[1]
	if bob.ParentOriginalID == nil || *bob.ParentOriginalID != 1 {
		t.Errorf("expected bob's parent to be 1, got %v", bob.ParentOriginalID)
	}
	if bob.Email != nil {
		t.Errorf("blank email should decode to nil, got %q", *bob.Email)
	}

	// carol's parent 999 is not in the sheet, so she becomes a root
	carol := users[2]
	if carol.ParentOriginalID != nil {
		t.Errorf("dangling parent should be dropped, got %v", carol.ParentOriginalID)
	}
	if carol.IsActive {
		t.Errorf("expected carol inactive")
	}
}

func TestBuildForestNumbering(t *testing.T) {
	one := int64(1)
	users := []models.User{
		{OriginalID: 1, Username: "root"},
		{OriginalID: 2, Username: "a", ParentOriginalID: &one},
		{OriginalID: 3, Username: "b", ParentOriginalID: &one},
	}

	if err := BuildForest(users); err != nil {
		t.Fatalf("BuildForest: %v", err)
	}

	root := users[0]
	if root.Lft != 1 || root.Rght != 6 || root.Depth != 0 {
		t.Errorf("root numbering: lft=%d rght=%d depth=%d", root.Lft, root.Rght, root.Depth)
	}
	if root.DescendantCount() != 2 {
		t.Errorf("expected 2 descendants, got %d", root.DescendantCount())
	}
	// siblings ordered by username: a before b
	if users[1].Lft != 2 || users[2].Lft != 4 {
		t.Errorf("sibling order: a.lft=%d b.lft=%d", users[1].Lft, users[2].Lft)
	}
	for _, u := range users[1:] {
		if u.TreeID != root.TreeID || u.Depth != 1 {
			t.Errorf("child %d: tree=%d depth=%d", u.OriginalID, u.TreeID, u.Depth)
		}
	}
}

func TestBuildForestRejectsCycle(t *testing.T) {
	one, two := int64(1), int64(2)
	users := []models.User{
		{OriginalID: 1, Username: "a", ParentOriginalID: &two},
		{OriginalID: 2, Username: "b", ParentOriginalID: &one},
	}

	err := BuildForest(users)
	if err == nil {
		t.Fatal("expected cycle error")
	}
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestDecodePurchases(t *testing.T) {
	rows := mustRows(t, `id,buyer_id,amount_usdt,payment_status,metadata,created_at
10,1,250.50,COMPLETED,"{""pack"":""gold""}",2023-06-01 12:00:00
11,2,100,,,
,x,,,,`)

	purchases := DecodePurchases("limitless", rows)

	if len(purchases) != 2 {
		t.Fatalf("expected 2 purchases, got %d", len(purchases))
	}

	p := purchases[0]
	if p.OriginalID != 10 || p.BuyerOriginalID == nil || *p.BuyerOriginalID != 1 {
		t.Errorf("unexpected purchase: %+v", p)
	}
	if want := decimal.RequireFromString("250.50"); !p.AmountUSDT.Equal(want) {
		t.Errorf("amount: %s", p.AmountUSDT)
	}
	if p.Metadata["pack"] != "gold" {
		t.Errorf("metadata: %v", p.Metadata)
	}

	// defaults for blank cells
	q := purchases[1]
	if q.PaymentStatus != models.PaymentPending {
		t.Errorf("expected PENDING default, got %q", q.PaymentStatus)
	}
	if q.CreatedAt.IsZero() {
		t.Errorf("expected created_at fallback")
	}
	if q.Metadata == nil {
		t.Errorf("metadata should never be nil")
	}
}

func TestDecodeEarnings(t *testing.T) {
	rows := mustRows(t, `id,recipient_id,buyer_id,purchase_id,earning_type,level,percentage,amount_usdt,status,is_grace_period
20,1,2,10,NETWORK,3,5.00,12.525,WITHDRAWN,true
21,,,,,,,,,`)

	earnings := DecodeEarnings("limitless", rows)

	if len(earnings) != 2 {
		t.Fatalf("expected 2 earnings, got %d", len(earnings))
	}

	e := earnings[0]
	if e.RecipientOriginalID == nil || *e.RecipientOriginalID != 1 {
		t.Errorf("recipient: %v", e.RecipientOriginalID)
	}
	if e.Level == nil || *e.Level != 3 {
		t.Errorf("level: %v", e.Level)
	}
	if e.Status != models.EarningWithdrawn || !e.IsGracePeriod {
		t.Errorf("unexpected earning: %+v", e)
	}

	blank := earnings[1]
	if blank.EarningType != models.EarningTypeNetwork || blank.Status != models.EarningPending {
		t.Errorf("expected type/status defaults, got %q/%q", blank.EarningType, blank.Status)
	}
	if blank.RecipientOriginalID != nil {
		t.Errorf("blank recipient should be nil")
	}
}
