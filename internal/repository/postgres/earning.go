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

// PostgresEarningRepository implements the EarningRepository interface
type PostgresEarningRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewEarningRepository creates a new earning repository
func NewEarningRepository(config *RepositoryConfig) repositories.EarningRepository {
	return &PostgresEarningRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// BulkInsert loads imported earnings via COPY.
func (r *PostgresEarningRepository) BulkInsert(ctx context.Context, earnings []models.Earning) error {
	if len(earnings) == 0 {
		return nil
	}

	exec := GetExecutor(ctx, r.pool)

	columns := []string{
		"platform", "original_id", "recipient_original_id", "buyer_original_id",
		"purchase_original_id", "earning_type", "level", "percentage", "amount_usdt",
		"status", "is_grace_period", "recipient_was_active", "compression_applied",
		"shares_count", "distribution_id", "created_at",
	}

	_, err := exec.CopyFrom(ctx,
		pgx.Identifier{r.tables.Earnings},
		columns,
		pgx.CopyFromSlice(len(earnings), func(i int) ([]any, error) {
			e := earnings[i]
			return []any{
				e.Platform, e.OriginalID, e.RecipientOriginalID, e.BuyerOriginalID,
				e.PurchaseOriginalID, e.EarningType, e.Level, e.Percentage, e.AmountUSDT,
				e.Status, e.IsGracePeriod, e.RecipientWasActive, e.CompressionApplied,
				e.SharesCount, e.DistributionID, e.CreatedAt,
			}, nil
		}),
	)
	if err != nil {
		if IsPgDuplicateError(err) {
			return fmt.Errorf("bulk insert earnings: %w", domain.ErrConflict)
		}
		return fmt.Errorf("bulk insert earnings: %w", err)
	}

	return nil
}

// DeletePlatform removes every earning of one platform.
func (r *PostgresEarningRepository) DeletePlatform(ctx context.Context, platform string) error {
	exec := GetExecutor(ctx, r.pool)
	query := fmt.Sprintf(`DELETE FROM %s WHERE platform = $1`, r.tables.Earnings)
	if _, err := exec.Exec(ctx, query, platform); err != nil {
		return fmt.Errorf("delete platform earnings: %w", err)
	}
	return nil
}

// List pages through earnings with optional status, type and recipient filters.
func (r *PostgresEarningRepository) List(ctx context.Context, platform string, filter repositories.EarningFilter) ([]models.Earning, int64, error) {
	conditions := []string{"platform = $1"}
	args := []any{platform}

	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.EarningType != "" {
		args = append(args, filter.EarningType)
		conditions = append(conditions, fmt.Sprintf("earning_type = $%d", len(args)))
	}
	if filter.RecipientOriginalID != nil {
		args = append(args, *filter.RecipientOriginalID)
		conditions = append(conditions, fmt.Sprintf("recipient_original_id = $%d", len(args)))
	}

	where := strings.Join(conditions, " AND ")
	exec := GetExecutor(ctx, r.pool)

	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE %s`, r.tables.Earnings, where)
	var total int64
	if err := exec.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count earnings: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT id, platform, original_id, recipient_original_id, buyer_original_id,
			purchase_original_id, earning_type, level, percentage, amount_usdt,
			status, is_grace_period, recipient_was_active, compression_applied,
			shares_count, distribution_id, created_at
		FROM %s
		WHERE %s
		ORDER BY created_at DESC, original_id DESC
		LIMIT $%d OFFSET $%d
	`, r.tables.Earnings, where, len(args)+1, len(args)+2)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := exec.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list earnings: %w", err)
	}
	defer rows.Close()

	var earnings []models.Earning
	for rows.Next() {
		var e models.Earning
		if err := rows.Scan(
			&e.ID, &e.Platform, &e.OriginalID, &e.RecipientOriginalID, &e.BuyerOriginalID,
			&e.PurchaseOriginalID, &e.EarningType, &e.Level, &e.Percentage, &e.AmountUSDT,
			&e.Status, &e.IsGracePeriod, &e.RecipientWasActive, &e.CompressionApplied,
			&e.SharesCount, &e.DistributionID, &e.CreatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scan earning: %w", err)
		}
		earnings = append(earnings, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate earnings: %w", err)
	}

	return earnings, total, nil
}

// WithdrawnTotal sums withdrawn earnings.
func (r *PostgresEarningRepository) WithdrawnTotal(ctx context.Context, platform string) (decimal.Decimal, error) {
	query := fmt.Sprintf(`
		SELECT COALESCE(SUM(amount_usdt), 0)
		FROM %s
		WHERE platform = $1 AND status = 'WITHDRAWN'
	`, r.tables.Earnings)

	exec := GetExecutor(ctx, r.pool)
	var total decimal.Decimal
	if err := exec.QueryRow(ctx, query, platform).Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("withdrawn total: %w", err)
	}
	return total, nil
}
