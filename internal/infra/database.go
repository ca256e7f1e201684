package infra

import (
	"fmt"

	"goldledger/internal/model"

	"github.com/rs/zerolog/log"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase opens the postgres connection pool and brings the ledger schema
// up to date. TranslateError is required: repositories rely on
// gorm.ErrDuplicatedKey to detect a second open lot for one identity.
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}
	if err := db.Use(otelgorm.NewPlugin()); err != nil {
		log.Warn().Err(err).Msg("otelgorm plugin not installed; queries will not be traced")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if err := RunMigrations(db); err != nil {
		return nil, err
	}
	return db, nil
}

// RunMigrations creates the tables and applies the constraints AutoMigrate
// cannot express. Safe to run repeatedly; integration tests call it directly.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Supplier{},
		&model.Product{},
		&model.User{},
		&model.OwnershipLot{},
		&model.OwnershipMovement{},
		&model.KaratConversion{},
		&model.ConsolidationBatch{},
		&model.ConsolidationSource{},
	); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	if err := applySchemaPatches(db); err != nil {
		return fmt.Errorf("schema patches: %w", err)
	}
	return nil
}

// applySchemaPatches runs idempotent DDL: the open-lot partial unique index and
// the non-negativity checks that back the service-level validation.
func applySchemaPatches(db *gorm.DB) error {
	patches := []struct{ descr, sql string }{
		{"one open lot per identity", `
CREATE UNIQUE INDEX IF NOT EXISTS uq_ownership_lots_open_identity
    ON ownership_lots (item_key, branch_id, supplier_id)
    WHERE status = 'open'`},
		{"non-negative lot balances", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_ownership_lots_non_negative') THEN
    ALTER TABLE ownership_lots ADD CONSTRAINT chk_ownership_lots_non_negative
      CHECK (total_weight >= 0 AND total_quantity >= 0 AND amount_paid >= 0 AND amount_owed >= 0);
  END IF;
END $$`},
		{"owed equals cost minus paid", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_ownership_lots_owed') THEN
    ALTER TABLE ownership_lots ADD CONSTRAINT chk_ownership_lots_owed
      CHECK (amount_owed = total_cost - amount_paid);
  END IF;
END $$`},
		{"owed lots lookup", `
CREATE INDEX IF NOT EXISTS idx_ownership_lots_owed
    ON ownership_lots (supplier_id)
    WHERE amount_owed > 0`},
	}
	for _, p := range patches {
		if err := db.Exec(p.sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", p.descr, err)
		}
	}
	return nil
}
