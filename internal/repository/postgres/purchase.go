package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"refgraph/internal/domain"
	"refgraph/internal/domain/models"
	"refgraph/internal/domain/repositories"
)

// PostgresPurchaseRepository implements the PurchaseRepository interface
type PostgresPurchaseRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewPurchaseRepository creates a new purchase repository
func NewPurchaseRepository(config *RepositoryConfig) repositories.PurchaseRepository {
	return &PostgresPurchaseRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// BulkInsert loads imported purchases via COPY.
func (r *PostgresPurchaseRepository) BulkInsert(ctx context.Context, purchases []models.Purchase) error {
	if len(purchases) == 0 {
		return nil
	}

	exec := GetExecutor(ctx, r.pool)

	columns := []string{
		"platform", "original_id", "buyer_original_id", "amount_usdt",
		"tx_hash", "block_number", "contract_address", "metadata",
		"payment_status", "referral_system_status", "pack_id", "created_at",
	}

	_, err := exec.CopyFrom(ctx,
		pgx.Identifier{r.tables.Purchases},
		columns,
		pgx.CopyFromSlice(len(purchases), func(i int) ([]any, error) {
			p := purchases[i]
			return []any{
				p.Platform, p.OriginalID, p.BuyerOriginalID, p.AmountUSDT,
				p.TxHash, p.BlockNumber, p.ContractAddress, p.Metadata,
				p.PaymentStatus, p.ReferralSystemStatus, p.PackID, p.CreatedAt,
			}, nil
		}),
	)
	if err != nil {
		if IsPgDuplicateError(err) {
			return fmt.Errorf("bulk insert purchases: %w", domain.ErrConflict)
		}
		return fmt.Errorf("bulk insert purchases: %w", err)
	}

	return nil
}

// DeletePlatform removes every purchase of one platform.
func (r *PostgresPurchaseRepository) DeletePlatform(ctx context.Context, platform string) error {
	exec := GetExecutor(ctx, r.pool)
	query := fmt.Sprintf(`DELETE FROM %s WHERE platform = $1`, r.tables.Purchases)
	if _, err := exec.Exec(ctx, query, platform); err != nil {
		return fmt.Errorf("delete platform purchases: %w", err)
	}
	return nil
}

// List pages through purchases with optional status, buyer and pack filters.
func (r *PostgresPurchaseRepository) List(ctx context.Context, platform string, filter repositories.PurchaseFilter) ([]models.Purchase, int64, error) {
	conditions := []string{"platform = $1"}
	args := []any{platform}

	if filter.PaymentStatus != "" {
		args = append(args, filter.PaymentStatus)
		conditions = append(conditions, fmt.Sprintf("payment_status = $%d", len(args)))
	}
	if filter.BuyerOriginalID != nil {
		args = append(args, *filter.BuyerOriginalID)
		conditions = append(conditions, fmt.Sprintf("buyer_original_id = $%d", len(args)))
	}
	if filter.PackID != nil {
		args = append(args, *filter.PackID)
		conditions = append(conditions, fmt.Sprintf("pack_id = $%d", len(args)))
	}

	where := strings.Join(conditions, " AND ")
	exec := GetExecutor(ctx, r.pool)

	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE %s`, r.tables.Purchases, where)
	var total int64
	if err := exec.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count purchases: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT id, platform, original_id, buyer_original_id, amount_usdt,
			tx_hash, block_number, contract_address, metadata,
			payment_status, referral_system_status, pack_id, created_at
		FROM %s
		WHERE %s
		ORDER BY created_at DESC, original_id DESC
		LIMIT $%d OFFSET $%d
	`, r.tables.Purchases, where, len(args)+1, len(args)+2)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := exec.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list purchases: %w", err)
	}
	defer rows.Close()

	var purchases []models.Purchase
	for rows.Next() {
		var p models.Purchase
		if err := rows.Scan(
			&p.ID, &p.Platform, &p.OriginalID, &p.BuyerOriginalID, &p.AmountUSDT,
			&p.TxHash, &p.BlockNumber, &p.ContractAddress, &p.Metadata,
			&p.PaymentStatus, &p.ReferralSystemStatus, &p.PackID, &p.CreatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scan purchase: %w", err)
		}
		purchases = append(purchases, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate purchases: %w", err)
	}

	return purchases, total, nil
}

// CompletedTotals returns the count and summed volume of completed purchases.
func (r *PostgresPurchaseRepository) CompletedTotals(ctx context.Context, platform string) (int64, decimal.Decimal, error) {
	query := fmt.Sprintf(`
		SELECT COUNT(*), COALESCE(SUM(amount_usdt), 0)
		FROM %s
		WHERE platform = $1 AND payment_status = 'COMPLETED'
	`, r.tables.Purchases)

	exec := GetExecutor(ctx, r.pool)
	var count int64
	var volume decimal.Decimal
	if err := exec.QueryRow(ctx, query, platform).Scan(&count, &volume); err != nil {
		return 0, decimal.Zero, fmt.Errorf("purchase totals: %w", err)
	}
	return count, volume, nil
}
