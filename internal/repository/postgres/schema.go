package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureSchema creates all tables and indexes if they don't exist.
// The importer runs this before loading; the server assumes it has run.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool, tables *TableNames, tablePrefix string) error {
	// Enable UUID extension
	if _, err := pool.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`); err != nil {
		return err
	}

	createUsers := `
		CREATE TABLE IF NOT EXISTS ` + tables.Users + ` (
			id BIGSERIAL PRIMARY KEY,
			platform TEXT NOT NULL,
			original_id BIGINT NOT NULL,
			username TEXT NOT NULL,
			email TEXT,
			password_hash TEXT NOT NULL DEFAULT '',
			referral_code TEXT NOT NULL DEFAULT '',
			referral_code_confirmed BOOLEAN NOT NULL DEFAULT FALSE,
			wallet TEXT NOT NULL DEFAULT '',
			parent_original_id BIGINT,
			is_staff BOOLEAN NOT NULL DEFAULT FALSE,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			is_deleted BOOLEAN NOT NULL DEFAULT FALSE,
			is_blocked BOOLEAN NOT NULL DEFAULT FALSE,
			date_joined TIMESTAMPTZ,
			parent_changed_at TIMESTAMPTZ,
			lft INTEGER NOT NULL DEFAULT 0,
			rght INTEGER NOT NULL DEFAULT 0,
			tree_id INTEGER NOT NULL DEFAULT 0,
			depth INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ DEFAULT NOW(),
			updated_at TIMESTAMPTZ DEFAULT NOW(),
			UNIQUE(platform, original_id)
		)
	`
	if _, err := pool.Exec(ctx, createUsers); err != nil {
		return err
	}

	createPurchases := `
		CREATE TABLE IF NOT EXISTS ` + tables.Purchases + ` (
			id BIGSERIAL PRIMARY KEY,
			platform TEXT NOT NULL,
			original_id BIGINT NOT NULL,
			buyer_original_id BIGINT,
			amount_usdt NUMERIC(38, 18) NOT NULL DEFAULT 0,
			tx_hash TEXT NOT NULL DEFAULT '',
			block_number BIGINT,
			contract_address TEXT NOT NULL DEFAULT '',
			metadata JSONB NOT NULL DEFAULT '{}',
			payment_status TEXT NOT NULL DEFAULT 'PENDING',
			referral_system_status BIGINT,
			pack_id BIGINT,
			created_at TIMESTAMPTZ DEFAULT NOW(),
			UNIQUE(platform, original_id)
		)
	`
	if _, err := pool.Exec(ctx, createPurchases); err != nil {
		return err
	}

	createEarnings := `
		CREATE TABLE IF NOT EXISTS ` + tables.Earnings + ` (
			id BIGSERIAL PRIMARY KEY,
			platform TEXT NOT NULL,
			original_id BIGINT NOT NULL,
			recipient_original_id BIGINT,
			buyer_original_id BIGINT,
			purchase_original_id BIGINT,
			earning_type TEXT NOT NULL DEFAULT 'NETWORK',
			level BIGINT,
			percentage NUMERIC(38, 18) NOT NULL DEFAULT 0,
			amount_usdt NUMERIC(38, 18) NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'PENDING',
			is_grace_period BOOLEAN NOT NULL DEFAULT FALSE,
			recipient_was_active BOOLEAN NOT NULL DEFAULT FALSE,
			compression_applied BOOLEAN NOT NULL DEFAULT FALSE,
			shares_count BIGINT,
			distribution_id BIGINT,
			created_at TIMESTAMPTZ DEFAULT NOW(),
			UNIQUE(platform, original_id)
		)
	`
	if _, err := pool.Exec(ctx, createEarnings); err != nil {
		return err
	}

	createAssignments := `
		CREATE TABLE IF NOT EXISTS ` + tables.Assignments + ` (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			seller_id TEXT NOT NULL,
			seller_name TEXT NOT NULL DEFAULT '',
			platform TEXT NOT NULL,
			target_user_id BIGINT NOT NULL,
			wallet_address TEXT NOT NULL DEFAULT '',
			notes TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ DEFAULT NOW(),
			UNIQUE(seller_id, platform, target_user_id)
		)
	`
	if _, err := pool.Exec(ctx, createAssignments); err != nil {
		return err
	}

	// The (platform, tree_id, lft) index backs every interval query: subtree,
	// ancestors and pre-order listing all scan it.
	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `users_tree ON ` + tables.Users + `(platform, tree_id, lft)`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `users_parent ON ` + tables.Users + `(platform, parent_original_id)`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `users_username ON ` + tables.Users + `(platform, username)`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `users_wallet ON ` + tables.Users + `(platform, wallet)`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `purchases_buyer ON ` + tables.Purchases + `(platform, buyer_original_id)`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `purchases_status ON ` + tables.Purchases + `(platform, payment_status)`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `earnings_recipient ON ` + tables.Earnings + `(platform, recipient_original_id)`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `earnings_status ON ` + tables.Earnings + `(platform, status)`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `assignments_target ON ` + tables.Assignments + `(platform, target_user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `assignments_seller ON ` + tables.Assignments + `(seller_id, platform)`,
	}

	for _, indexSQL := range indexes {
		if _, err := pool.Exec(ctx, indexSQL); err != nil {
			return err
		}
	}

	return nil
}

// DropAllTables drops every table. Import tooling only; refused for prod
// prefixes at the call site.
func DropAllTables(ctx context.Context, pool *pgxpool.Pool, tables *TableNames) error {
	tableNames := []string{
		tables.Assignments,
		tables.Earnings,
		tables.Purchases,
		tables.Users,
	}

	for _, table := range tableNames {
		if _, err := pool.Exec(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE"); err != nil {
			return err
		}
	}

	return nil
}
