package models

import "github.com/shopspring/decimal"

// PlatformStats are the headline totals for one platform.
type PlatformStats struct {
	Platform       string          `json:"platform"`
	TotalUsers     int64           `json:"total_users"`
	TotalPurchases int64           `json:"total_purchases"`
	TotalVolume    decimal.Decimal `json:"total_volume"`
	TotalEarnings  decimal.Decimal `json:"total_earnings"`
	RootUsers      int64           `json:"root_users"`
}
