package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"refgraph/internal/domain"
	"refgraph/internal/domain/models"
	"refgraph/internal/domain/repositories"
)

// PostgresAssignmentRepository implements the AssignmentRepository interface
type PostgresAssignmentRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewAssignmentRepository creates a new assignment repository
func NewAssignmentRepository(config *RepositoryConfig) repositories.AssignmentRepository {
	return &PostgresAssignmentRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

const assignmentColumns = `id, seller_id, seller_name, platform, target_user_id, wallet_address, notes, created_at`

// Create inserts a claim. The unique (seller, platform, target user) index
// turns a repeat claim into a ConflictError.
func (r *PostgresAssignmentRepository) Create(ctx context.Context, assignment *models.SellerAssignment) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (seller_id, seller_name, platform, target_user_id, wallet_address, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, r.tables.Assignments)

	exec := GetExecutor(ctx, r.pool)
	err := exec.QueryRow(ctx, query,
		assignment.SellerID,
		assignment.SellerName,
		assignment.Platform,
		assignment.TargetUserID,
		assignment.WalletAddress,
		assignment.Notes,
	).Scan(&assignment.ID, &assignment.CreatedAt)

	if err != nil {
		if IsPgDuplicateError(err) {
			return &domain.ConflictError{
				Message:      "wallet already claimed by this seller",
				ResourceType: "assignment",
				ResourceID:   fmt.Sprintf("%s/%d", assignment.Platform, assignment.TargetUserID),
			}
		}
		return fmt.Errorf("create assignment: %w", err)
	}

	return nil
}

// Delete removes the seller's claim; reports whether a row existed.
func (r *PostgresAssignmentRepository) Delete(ctx context.Context, sellerID, platform string, targetUserID int64) (bool, error) {
	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE seller_id = $1 AND platform = $2 AND target_user_id = $3
	`, r.tables.Assignments)

	exec := GetExecutor(ctx, r.pool)
	result, err := exec.Exec(ctx, query, sellerID, platform, targetUserID)
	if err != nil {
		return false, fmt.Errorf("delete assignment: %w", err)
	}

	return result.RowsAffected() > 0, nil
}

// CountForWallet counts how many sellers have claimed the user's wallet.
func (r *PostgresAssignmentRepository) CountForWallet(ctx context.Context, platform string, targetUserID int64) (int, error) {
	query := fmt.Sprintf(`
		SELECT COUNT(*) FROM %s
		WHERE platform = $1 AND target_user_id = $2
	`, r.tables.Assignments)

	exec := GetExecutor(ctx, r.pool)
	var count int
	if err := exec.QueryRow(ctx, query, platform, targetUserID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count assignments: %w", err)
	}
	return count, nil
}

// ListBySeller returns the seller's claims on one platform, newest first.
func (r *PostgresAssignmentRepository) ListBySeller(ctx context.Context, sellerID, platform string) ([]models.SellerAssignment, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE seller_id = $1 AND platform = $2
		ORDER BY created_at DESC
	`, assignmentColumns, r.tables.Assignments)

	exec := GetExecutor(ctx, r.pool)
	rows, err := exec.Query(ctx, query, sellerID, platform)
	if err != nil {
		return nil, fmt.Errorf("list seller assignments: %w", err)
	}
	return collectAssignments(rows)
}

// ListForUser returns every claim on one user's wallet.
func (r *PostgresAssignmentRepository) ListForUser(ctx context.Context, platform string, targetUserID int64) ([]models.SellerAssignment, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE platform = $1 AND target_user_id = $2
		ORDER BY created_at ASC
	`, assignmentColumns, r.tables.Assignments)

	exec := GetExecutor(ctx, r.pool)
	rows, err := exec.Query(ctx, query, platform, targetUserID)
	if err != nil {
		return nil, fmt.Errorf("list user assignments: %w", err)
	}
	return collectAssignments(rows)
}

// ListForUsers groups claims for many users in one query.
func (r *PostgresAssignmentRepository) ListForUsers(ctx context.Context, platform string, targetUserIDs []int64) (map[int64][]models.SellerAssignment, error) {
	if len(targetUserIDs) == 0 {
		return map[int64][]models.SellerAssignment{}, nil
	}

	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE platform = $1 AND target_user_id = ANY($2)
		ORDER BY target_user_id ASC, created_at ASC
	`, assignmentColumns, r.tables.Assignments)

	exec := GetExecutor(ctx, r.pool)
	rows, err := exec.Query(ctx, query, platform, targetUserIDs)
	if err != nil {
		return nil, fmt.Errorf("list bulk assignments: %w", err)
	}

	assignments, err := collectAssignments(rows)
	if err != nil {
		return nil, err
	}

	grouped := make(map[int64][]models.SellerAssignment, len(targetUserIDs))
	for _, a := range assignments {
		grouped[a.TargetUserID] = append(grouped[a.TargetUserID], a)
	}
	return grouped, nil
}

func collectAssignments(rows pgx.Rows) ([]models.SellerAssignment, error) {
	defer rows.Close()

	var assignments []models.SellerAssignment
	for rows.Next() {
		var a models.SellerAssignment
		if err := rows.Scan(
			&a.ID, &a.SellerID, &a.SellerName, &a.Platform,
			&a.TargetUserID, &a.WalletAddress, &a.Notes, &a.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		assignments = append(assignments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assignments: %w", err)
	}
	return assignments, nil
}
