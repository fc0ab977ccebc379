package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"refgraph/internal/domain"
	"refgraph/internal/domain/models"
	"refgraph/internal/domain/repositories"
)

// PostgresUserRepository implements the UserRepository interface
type PostgresUserRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewUserRepository creates a new user repository
func NewUserRepository(config *RepositoryConfig) repositories.UserRepository {
	return &PostgresUserRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// userColumns is the column list shared by every user SELECT, in Scan order.
const userColumns = `u.id, u.platform, u.original_id, u.username, u.email, u.password_hash,
	u.referral_code, u.referral_code_confirmed, u.wallet, u.parent_original_id,
	u.is_staff, u.is_active, u.is_deleted, u.is_blocked,
	u.date_joined, u.parent_changed_at,
	u.lft, u.rght, u.tree_id, u.depth,
	u.created_at, u.updated_at`

// annotatedSelect builds a SELECT over the users table aliased "u" that adds
// the per-node aggregates the API exposes. The count of children comes from a
// correlated subquery on parent_original_id; purchase and earning totals only
// count COMPLETED purchases and WITHDRAWN earnings.
func (r *PostgresUserRepository) annotatedSelect() string {
	return fmt.Sprintf(`
		SELECT %s,
			(SELECT COUNT(*) FROM %s c
				WHERE c.platform = u.platform AND c.parent_original_id = u.original_id) AS children_count,
			(SELECT COUNT(*) FROM %s p
				WHERE p.platform = u.platform AND p.buyer_original_id = u.original_id
				AND p.payment_status = 'COMPLETED') AS purchases_count,
			(SELECT COALESCE(SUM(p.amount_usdt), 0) FROM %s p
				WHERE p.platform = u.platform AND p.buyer_original_id = u.original_id
				AND p.payment_status = 'COMPLETED') AS direct_volume,
			(SELECT COALESCE(SUM(e.amount_usdt), 0) FROM %s e
				WHERE e.platform = u.platform AND e.recipient_original_id = u.original_id
				AND e.status = 'WITHDRAWN') AS total_earnings
		FROM %s u
	`, userColumns, r.tables.Users, r.tables.Purchases, r.tables.Purchases, r.tables.Earnings, r.tables.Users)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAnnotatedUser(row rowScanner) (*models.UserWithTotals, error) {
	var u models.UserWithTotals
	err := row.Scan(
		&u.ID,
		&u.Platform,
		&u.OriginalID,
		&u.Username,
		&u.Email,
		&u.PasswordHash,
		&u.ReferralCode,
		&u.ReferralCodeConfirmed,
		&u.Wallet,
		&u.ParentOriginalID,
		&u.IsStaff,
		&u.IsActive,
		&u.IsDeleted,
		&u.IsBlocked,
		&u.DateJoined,
		&u.ParentChangedAt,
		&u.Lft,
		&u.Rght,
		&u.TreeID,
		&u.Depth,
		&u.CreatedAt,
		&u.UpdatedAt,
		&u.ChildrenCount,
		&u.PurchasesCount,
		&u.DirectVolume,
		&u.TotalEarnings,
	)
	if err != nil {
		return nil, err
	}
	// The numbering already encodes the subtree size, no aggregate needed.
	u.DescendantTotal = u.User.DescendantCount()
	return &u, nil
}

func collectAnnotatedUsers(rows pgx.Rows) ([]models.UserWithTotals, error) {
	defer rows.Close()

	var users []models.UserWithTotals
	for rows.Next() {
		u, err := scanAnnotatedUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

// BulkInsert loads imported users via COPY, numbering included.
func (r *PostgresUserRepository) BulkInsert(ctx context.Context, users []models.User) error {
	if len(users) == 0 {
		return nil
	}

	exec := GetExecutor(ctx, r.pool)

	columns := []string{
		"platform", "original_id", "username", "email", "password_hash",
		"referral_code", "referral_code_confirmed", "wallet", "parent_original_id",
		"is_staff", "is_active", "is_deleted", "is_blocked",
		"date_joined", "parent_changed_at",
		"lft", "rght", "tree_id", "depth",
	}

	_, err := exec.CopyFrom(ctx,
		pgx.Identifier{r.tables.Users},
		columns,
		pgx.CopyFromSlice(len(users), func(i int) ([]any, error) {
			u := users[i]
			return []any{
				u.Platform, u.OriginalID, u.Username, u.Email, u.PasswordHash,
				u.ReferralCode, u.ReferralCodeConfirmed, u.Wallet, u.ParentOriginalID,
				u.IsStaff, u.IsActive, u.IsDeleted, u.IsBlocked,
				u.DateJoined, u.ParentChangedAt,
				u.Lft, u.Rght, u.TreeID, u.Depth,
			}, nil
		}),
	)
	if err != nil {
		if IsPgDuplicateError(err) {
			return fmt.Errorf("bulk insert users: %w", domain.ErrConflict)
		}
		return fmt.Errorf("bulk insert users: %w", err)
	}

	return nil
}

// DeletePlatform removes every user of one platform.
func (r *PostgresUserRepository) DeletePlatform(ctx context.Context, platform string) error {
	exec := GetExecutor(ctx, r.pool)
	query := fmt.Sprintf(`DELETE FROM %s WHERE platform = $1`, r.tables.Users)
	if _, err := exec.Exec(ctx, query, platform); err != nil {
		return fmt.Errorf("delete platform users: %w", err)
	}
	return nil
}

// GetByOriginalID retrieves one user with its aggregates.
func (r *PostgresUserRepository) GetByOriginalID(ctx context.Context, platform string, originalID int64) (*models.UserWithTotals, error) {
	query := r.annotatedSelect() + ` WHERE u.platform = $1 AND u.original_id = $2`

	exec := GetExecutor(ctx, r.pool)
	user, err := scanAnnotatedUser(exec.QueryRow(ctx, query, platform, originalID))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("user %d: %w", originalID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	return user, nil
}

// List pages through platform users with optional search and activity filters.
func (r *PostgresUserRepository) List(ctx context.Context, platform string, filter repositories.UserFilter) ([]models.UserWithTotals, int64, error) {
	conditions := []string{"u.platform = $1"}
	args := []any{platform}

	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := len(args)
		conditions = append(conditions, fmt.Sprintf(
			"(u.username ILIKE $%d OR u.wallet ILIKE $%d OR u.referral_code ILIKE $%d OR u.email ILIKE $%d)",
			n, n, n, n))
	}
	if filter.IsActive != nil {
		args = append(args, *filter.IsActive)
		conditions = append(conditions, fmt.Sprintf("u.is_active = $%d", len(args)))
	}

	where := strings.Join(conditions, " AND ")

	exec := GetExecutor(ctx, r.pool)

	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM %s u WHERE %s`, r.tables.Users, where)
	var total int64
	if err := exec.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	query := r.annotatedSelect() + ` WHERE ` + where +
		` ORDER BY ` + orderClause(filter.OrderBy) +
		fmt.Sprintf(` LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := exec.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}

	users, err := collectAnnotatedUsers(rows)
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// orderClause maps the API's order_by parameter to a safe ORDER BY. Unknown
// values fall back to original_id, never into the SQL string.
func orderClause(orderBy string) string {
	switch orderBy {
	case "username":
		return "u.username ASC, u.original_id ASC"
	case "created_at":
		return "u.created_at ASC, u.original_id ASC"
	case "-created_at":
		return "u.created_at DESC, u.original_id DESC"
	default:
		return "u.original_id ASC"
	}
}

// Search returns prefix matches on username, wallet and referral code for
// autocomplete.
func (r *PostgresUserRepository) Search(ctx context.Context, platform, query string, limit int) ([]models.UserWithTotals, error) {
	sql := r.annotatedSelect() + `
		WHERE u.platform = $1
		AND (u.username ILIKE $2 OR u.wallet ILIKE $2 OR u.referral_code ILIKE $2)
		ORDER BY u.username ASC, u.original_id ASC
		LIMIT $3`

	exec := GetExecutor(ctx, r.pool)
	rows, err := exec.Query(ctx, sql, platform, query+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}

	return collectAnnotatedUsers(rows)
}

// numbering is the interval position of one node, fetched before every
// hierarchy query.
type numbering struct {
	Lft    int
	Rght   int
	TreeID int
	Depth  int
}

func (r *PostgresUserRepository) getNumbering(ctx context.Context, platform string, originalID int64) (*numbering, error) {
	query := fmt.Sprintf(`
		SELECT lft, rght, tree_id, depth FROM %s
		WHERE platform = $1 AND original_id = $2
	`, r.tables.Users)

	exec := GetExecutor(ctx, r.pool)
	var n numbering
	err := exec.QueryRow(ctx, query, platform, originalID).Scan(&n.Lft, &n.Rght, &n.TreeID, &n.Depth)
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("user %d: %w", originalID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get user numbering: %w", err)
	}
	return &n, nil
}

// Ancestors returns the root-to-self path, self included. An ancestor's
// interval encloses the node's, so this is a single scan of the node's tree.
func (r *PostgresUserRepository) Ancestors(ctx context.Context, platform string, originalID int64) ([]models.UserWithTotals, error) {
	n, err := r.getNumbering(ctx, platform, originalID)
	if err != nil {
		return nil, err
	}

	query := r.annotatedSelect() + `
		WHERE u.platform = $1 AND u.tree_id = $2 AND u.lft <= $3 AND u.rght >= $4
		ORDER BY u.lft ASC`

	exec := GetExecutor(ctx, r.pool)
	rows, err := exec.Query(ctx, query, platform, n.TreeID, n.Lft, n.Rght)
	if err != nil {
		return nil, fmt.Errorf("list ancestors: %w", err)
	}

	return collectAnnotatedUsers(rows)
}

// Subtree returns the node and up to maxDepth levels below it, in pre-order.
func (r *PostgresUserRepository) Subtree(ctx context.Context, platform string, originalID int64, maxDepth int) ([]models.UserWithTotals, error) {
	n, err := r.getNumbering(ctx, platform, originalID)
	if err != nil {
		return nil, err
	}

	query := r.annotatedSelect() + `
		WHERE u.platform = $1 AND u.tree_id = $2
		AND u.lft >= $3 AND u.rght <= $4
		AND u.depth <= $5
		ORDER BY u.lft ASC`

	exec := GetExecutor(ctx, r.pool)
	rows, err := exec.Query(ctx, query, platform, n.TreeID, n.Lft, n.Rght, n.Depth+maxDepth)
	if err != nil {
		return nil, fmt.Errorf("list subtree: %w", err)
	}

	return collectAnnotatedUsers(rows)
}

// Roots pages through root users, largest subtree first. Subtree size reads
// straight off the interval width, so no join is needed for the ordering.
func (r *PostgresUserRepository) Roots(ctx context.Context, platform string, limit, offset int) ([]models.UserWithTotals, int64, error) {
	exec := GetExecutor(ctx, r.pool)

	countQuery := fmt.Sprintf(`
		SELECT COUNT(*) FROM %s u
		WHERE u.platform = $1 AND u.parent_original_id IS NULL
	`, r.tables.Users)
	var total int64
	if err := exec.QueryRow(ctx, countQuery, platform).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count roots: %w", err)
	}

	query := r.annotatedSelect() + `
		WHERE u.platform = $1 AND u.parent_original_id IS NULL
		ORDER BY (u.rght - u.lft) DESC, u.original_id ASC
		LIMIT $2 OFFSET $3`

	rows, err := exec.Query(ctx, query, platform, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list roots: %w", err)
	}

	users, err := collectAnnotatedUsers(rows)
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// Counts returns total and root user counts for stats.
func (r *PostgresUserRepository) Counts(ctx context.Context, platform string) (int64, int64, error) {
	query := fmt.Sprintf(`
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE parent_original_id IS NULL)
		FROM %s WHERE platform = $1
	`, r.tables.Users)

	exec := GetExecutor(ctx, r.pool)
	var total, roots int64
	if err := exec.QueryRow(ctx, query, platform).Scan(&total, &roots); err != nil {
		return 0, 0, fmt.Errorf("count users: %w", err)
	}
	return total, roots, nil
}

// TreeNodes loads every node of the given trees, in pre-order, for in-memory
// renumbering.
func (r *PostgresUserRepository) TreeNodes(ctx context.Context, platform string, treeIDs []int) ([]repositories.TreeNodeRecord, error) {
	if len(treeIDs) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`
		SELECT original_id, parent_original_id, username, lft, rght, tree_id, depth
		FROM %s
		WHERE platform = $1 AND tree_id = ANY($2)
		ORDER BY tree_id ASC, lft ASC
	`, r.tables.Users)

	exec := GetExecutor(ctx, r.pool)
	rows, err := exec.Query(ctx, query, platform, treeIDs)
	if err != nil {
		return nil, fmt.Errorf("load tree nodes: %w", err)
	}
	defer rows.Close()

	var records []repositories.TreeNodeRecord
	for rows.Next() {
		var rec repositories.TreeNodeRecord
		if err := rows.Scan(&rec.OriginalID, &rec.ParentOriginalID, &rec.Username,
			&rec.Lft, &rec.Rght, &rec.TreeID, &rec.Depth); err != nil {
			return nil, fmt.Errorf("scan tree node: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tree nodes: %w", err)
	}
	return records, nil
}

// MaxTreeID returns the highest tree id in use, 0 when the platform is empty.
func (r *PostgresUserRepository) MaxTreeID(ctx context.Context, platform string) (int, error) {
	query := fmt.Sprintf(`SELECT COALESCE(MAX(tree_id), 0) FROM %s WHERE platform = $1`, r.tables.Users)

	exec := GetExecutor(ctx, r.pool)
	var max int
	if err := exec.QueryRow(ctx, query, platform).Scan(&max); err != nil {
		return 0, fmt.Errorf("max tree id: %w", err)
	}
	return max, nil
}

// ApplyNumbering writes recomputed numbering rows in one batch. The update
// only touches parent_changed_at when the parent actually changed, so
// renumbered-but-unmoved nodes keep their history.
func (r *PostgresUserRepository) ApplyNumbering(ctx context.Context, platform string, updates []repositories.NumberingUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	query := fmt.Sprintf(`
		UPDATE %s SET
			parent_changed_at = CASE
				WHEN parent_original_id IS DISTINCT FROM $3 THEN NOW()
				ELSE parent_changed_at
			END,
			parent_original_id = $3,
			lft = $4,
			rght = $5,
			tree_id = $6,
			depth = $7,
			updated_at = NOW()
		WHERE platform = $1 AND original_id = $2
	`, r.tables.Users)

	batch := &pgx.Batch{}
	for _, up := range updates {
		batch.Queue(query, platform, up.OriginalID, up.ParentOriginalID,
			up.Lft, up.Rght, up.TreeID, up.Depth)
	}

	exec := GetExecutor(ctx, r.pool)
	results := exec.SendBatch(ctx, batch)
	defer results.Close()

	for i := range updates {
		tag, err := results.Exec()
		if err != nil {
			return fmt.Errorf("apply numbering for user %d: %w", updates[i].OriginalID, err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("user %d: %w", updates[i].OriginalID, domain.ErrNotFound)
		}
	}

	return nil
}
