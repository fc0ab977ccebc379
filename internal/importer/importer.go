// Package importer loads a platform's CSV export into the database: decode,
// in-memory tree rebuild, then one all-or-nothing transaction.
package importer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"refgraph/internal/config"
	"refgraph/internal/csvutil"
	"refgraph/internal/domain/repositories"
)

// Importer runs the CSV import pipeline for one platform at a time.
type Importer struct {
	users     repositories.UserRepository
	purchases repositories.PurchaseRepository
	earnings  repositories.EarningRepository
	txManager repositories.TransactionManager
	logger    *slog.Logger
}

// New creates an importer.
func New(
	users repositories.UserRepository,
	purchases repositories.PurchaseRepository,
	earnings repositories.EarningRepository,
	txManager repositories.TransactionManager,
	logger *slog.Logger,
) *Importer {
	return &Importer{
		users:     users,
		purchases: purchases,
		earnings:  earnings,
		txManager: txManager,
		logger:    logger,
	}
}

// Result summarizes one platform import.
type Result struct {
	Users     int
	Trees     int
	Purchases int
	Earnings  int
}

// ImportPlatform reads the platform's sheets from dir and loads them. The
// users sheet is required; purchases and earnings sheets are optional. The
// tree rebuild runs before the transaction opens, so a cycle or duplicate id
// leaves the database untouched. With clear set, existing platform data is
// replaced inside the same transaction.
func (im *Importer) ImportPlatform(ctx context.Context, platform config.Platform, dir string, clear bool) (*Result, error) {
	userRows, err := readSheet(filepath.Join(dir, platform.UsersCSV))
	if err != nil {
		return nil, fmt.Errorf("users sheet: %w", err)
	}

	users := DecodeUsers(platform.Name, userRows)
	if err := BuildForest(users); err != nil {
		return nil, err
	}

	trees := 0
	for i := range users {
		if users[i].ParentOriginalID == nil {
			trees++
		}
	}
	im.logger.Info("decoded users",
		"platform", platform.Name,
		"users", len(users),
		"trees", trees,
	)

	purchases, err := readOptionalSheet(im.logger, filepath.Join(dir, platform.PurchasesCSV), platform.Name, DecodePurchases)
	if err != nil {
		return nil, fmt.Errorf("purchases sheet: %w", err)
	}
	earnings, err := readOptionalSheet(im.logger, filepath.Join(dir, platform.EarningsCSV), platform.Name, DecodeEarnings)
	if err != nil {
		return nil, fmt.Errorf("earnings sheet: %w", err)
	}

	err = im.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if clear {
			if err := im.earnings.DeletePlatform(txCtx, platform.Name); err != nil {
				return err
			}
			if err := im.purchases.DeletePlatform(txCtx, platform.Name); err != nil {
				return err
			}
			if err := im.users.DeletePlatform(txCtx, platform.Name); err != nil {
				return err
			}
		}

		if err := im.users.BulkInsert(txCtx, users); err != nil {
			return err
		}
		if err := im.purchases.BulkInsert(txCtx, purchases); err != nil {
			return err
		}
		return im.earnings.BulkInsert(txCtx, earnings)
	})
	if err != nil {
		return nil, fmt.Errorf("import %s: %w", platform.Name, err)
	}

	return &Result{
		Users:     len(users),
		Trees:     trees,
		Purchases: len(purchases),
		Earnings:  len(earnings),
	}, nil
}

// readSheet reads and parses one CSV file.
func readSheet(path string) ([]csvutil.Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return csvutil.ReadAll(f)
}

// readOptionalSheet reads a sheet that may be absent from the export; a
// missing file decodes to nothing.
func readOptionalSheet[T any](logger *slog.Logger, path, platform string, decode func(string, []csvutil.Row) []T) ([]T, error) {
	rows, err := readSheet(path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Warn("sheet not found, skipping", "path", path)
			return nil, nil
		}
		return nil, err
	}
	return decode(platform, rows), nil
}
