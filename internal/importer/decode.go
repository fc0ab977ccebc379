package importer

import (
	"time"

	"refgraph/internal/csvutil"
	"refgraph/internal/domain"
	"refgraph/internal/domain/models"
	"refgraph/internal/tree"
)

// DecodeUsers converts user rows into models. Rows without a parseable id are
// skipped. Parents are wired in a second pass; a parent_id pointing outside
// the sheet is dropped, which makes the user a root, matching how the source
// system's own importer handled dangling references.
func DecodeUsers(platform string, rows []csvutil.Row) []models.User {
	users := make([]models.User, 0, len(rows))
	seen := make(map[int64]struct{}, len(rows))

	for _, row := range rows {
		id, ok := row.Int("id")
		if !ok {
			continue
		}
		seen[id] = struct{}{}

		email := row.Str("email")
		var emailPtr *string
		if email != "" {
			emailPtr = &email
		}

		users = append(users, models.User{
			Platform:              platform,
			OriginalID:            id,
			Username:              row.Str("username"),
			Email:                 emailPtr,
			PasswordHash:          row.Str("password"),
			ReferralCode:          row.Str("referral_code"),
			ReferralCodeConfirmed: row.Bool("referral_code_confirmed"),
			Wallet:                row.Str("wallet"),
			ParentOriginalID:      row.OptionalInt("parent_id"),
			IsStaff:               row.Bool("is_staff"),
			IsActive:              row.Bool("is_active"),
			IsDeleted:             row.Bool("is_deleted"),
			IsBlocked:             row.Bool("is_blocked"),
			DateJoined:            row.Time("date_joined"),
			ParentChangedAt:       row.Time("parent_changed_at"),
		})
	}

	// Second pass: drop parent references to users missing from the sheet.
	for i := range users {
		if p := users[i].ParentOriginalID; p != nil {
			if _, ok := seen[*p]; !ok {
				users[i].ParentOriginalID = nil
			}
		}
	}

	return users
}

// BuildForest computes the nested-set numbering for the decoded users in
// place. A cycle or duplicate id aborts the whole import.
func BuildForest(users []models.User) error {
	store := tree.NewStore()
	for i := range users {
		u := &users[i]
		node := tree.Node{
			ID:       u.OriginalID,
			ParentID: u.ParentOriginalID,
			SortKey:  u.Username,
		}
		if err := store.Add(node); err != nil {
			return &domain.InvalidTreeError{Cause: err}
		}
	}

	if err := tree.Rebuild(store); err != nil {
		return &domain.InvalidTreeError{Cause: err}
	}

	for i := range users {
		n, err := store.Get(users[i].OriginalID)
		if err != nil {
			return err
		}
		users[i].Lft = n.Left
		users[i].Rght = n.Right
		users[i].TreeID = n.TreeID
		users[i].Depth = n.Depth
	}

	return nil
}

// DecodePurchases converts purchase rows. Missing created_at falls back to
// import time.
func DecodePurchases(platform string, rows []csvutil.Row) []models.Purchase {
	purchases := make([]models.Purchase, 0, len(rows))
	for _, row := range rows {
		id, ok := row.Int("id")
		if !ok {
			continue
		}

		status := row.Str("payment_status")
		if status == "" {
			status = models.PaymentPending
		}

		p := models.Purchase{
			Platform:             platform,
			OriginalID:           id,
			BuyerOriginalID:      row.OptionalInt("buyer_id"),
			AmountUSDT:           row.Decimal("amount_usdt"),
			TxHash:               row.Str("tx_hash"),
			BlockNumber:          row.OptionalInt("block_number"),
			ContractAddress:      row.Str("contract_address"),
			Metadata:             row.JSON("metadata"),
			PaymentStatus:        status,
			ReferralSystemStatus: row.OptionalInt("referral_system_status"),
			PackID:               row.OptionalInt("pack_id"),
		}
		if t := row.Time("created_at"); t != nil {
			p.CreatedAt = *t
		} else {
			p.CreatedAt = time.Now().UTC()
		}

		purchases = append(purchases, p)
	}
	return purchases
}

// DecodeEarnings converts referral earning rows.
func DecodeEarnings(platform string, rows []csvutil.Row) []models.Earning {
	earnings := make([]models.Earning, 0, len(rows))
	for _, row := range rows {
		id, ok := row.Int("id")
		if !ok {
			continue
		}

		earningType := row.Str("earning_type")
		if earningType == "" {
			earningType = models.EarningTypeNetwork
		}
		status := row.Str("status")
		if status == "" {
			status = models.EarningPending
		}

		e := models.Earning{
			Platform:            platform,
			OriginalID:          id,
			RecipientOriginalID: row.OptionalInt("recipient_id"),
			BuyerOriginalID:     row.OptionalInt("buyer_id"),
			PurchaseOriginalID:  row.OptionalInt("purchase_id"),
			EarningType:         earningType,
			Level:               row.OptionalInt("level"),
			Percentage:          row.Decimal("percentage"),
			AmountUSDT:          row.Decimal("amount_usdt"),
			Status:              status,
			IsGracePeriod:       row.Bool("is_grace_period"),
			RecipientWasActive:  row.Bool("recipient_was_active"),
			CompressionApplied:  row.Bool("compression_applied"),
			SharesCount:         row.OptionalInt("shares_count"),
			DistributionID:      row.OptionalInt("distribution_id"),
		}
		if t := row.Time("created_at"); t != nil {
			e.CreatedAt = *t
		} else {
			e.CreatedAt = time.Now().UTC()
		}

		earnings = append(earnings, e)
	}
	return earnings
}
