package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// User is one member of a platform's referral hierarchy, imported from the
// source system's CSV export. OriginalID is the id the source system (and
// the public API) uses; ID is our surrogate key.
//
// The four numbering fields (Lft, Rght, TreeID, Depth) encode the user's
// position in the nested-set representation of the hierarchy. They are
// derived data: the import pipeline and the reparent operation are the only
// writers.
type User struct {
	ID         int64  `json:"-"`
	Platform   string `json:"platform"`
	OriginalID int64  `json:"id"`

	Username              string  `json:"username"`
	Email                 *string `json:"email,omitempty"`
	PasswordHash          string  `json:"-"`
	ReferralCode          string  `json:"referral_code"`
	ReferralCodeConfirmed bool    `json:"referral_code_confirmed"`
	Wallet                string  `json:"wallet"`

	ParentOriginalID *int64 `json:"parent_id"`

	IsStaff   bool `json:"is_staff"`
	IsActive  bool `json:"is_active"`
	IsDeleted bool `json:"is_deleted"`
	IsBlocked bool `json:"is_blocked"`

	DateJoined      *time.Time `json:"date_joined,omitempty"`
	ParentChangedAt *time.Time `json:"parent_changed_at,omitempty"`

	Lft    int `json:"-"`
	Rght   int `json:"-"`
	TreeID int `json:"-"`
	Depth  int `json:"depth"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DescendantCount reads the strict-descendant count off the numbering.
func (u *User) DescendantCount() int {
	if u.Rght <= u.Lft {
		return 0
	}
	return (u.Rght - u.Lft - 1) / 2
}

// ShortWallet renders the wallet for display, e.g. "0x1a2b...9f0e".
func (u *User) ShortWallet() string {
	if len(u.Wallet) < 12 {
		return u.Wallet
	}
	return fmt.Sprintf("%s...%s", u.Wallet[:6], u.Wallet[len(u.Wallet)-4:])
}

// UserWithTotals is a User plus the aggregate columns the tree endpoints
// display for each node.
type UserWithTotals struct {
	User
	ChildrenCount   int             `json:"children_count"`
	DescendantTotal int             `json:"descendant_count"`
	PurchasesCount  int             `json:"purchases_count"`
	DirectVolume    decimal.Decimal `json:"direct_volume"`
	TotalEarnings   decimal.Decimal `json:"total_earnings"`
}

// UserTreeNode is a depth-bounded nested rendering of a user's subtree.
type UserTreeNode struct {
	UserWithTotals
	Children []*UserTreeNode `json:"children"`
}
