package models

import (
	"time"

	"github.com/google/uuid"
)

// MaxSellersPerWallet caps how many sellers can claim the same wallet.
const MaxSellersPerWallet = 5

// SellerAssignment records that a seller has claimed association with a
// platform user's wallet. At most MaxSellersPerWallet sellers per wallet,
// and a given seller can claim a wallet only once.
type SellerAssignment struct {
	ID uuid.UUID `json:"id"`

	SellerID   string `json:"seller_id"` // JWT subject of the claiming seller
	SellerName string `json:"seller_name"`

	Platform     string `json:"platform"`
	TargetUserID int64  `json:"target_user_id"`

	// Wallet address cached at claim time for display.
	WalletAddress string `json:"wallet_address"`
	Notes         string `json:"notes,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
