package database

import (
	"errors"
	"time"

	"github.com/archivara/backend/internal/papers"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const migrationBackfillPendingTier = "2026-08-12_backfill_pending_visibility_tier"

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	apply func(*gorm.DB) error
}

func applyMigrations(db *gorm.DB, logger *zap.Logger) error {
	migrations := []migrationDefinition{
		{name: migrationBackfillPendingTier, apply: backfillPendingVisibilityTier},
	}

	for _, migration := range migrations {
		var record migrationRecord
		err := db.Where("name = ?", migration.name).Take(&record).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := migration.apply(db); err != nil {
			return err
		}
		appliedAt := time.Now().UTC().Unix()
		if err := db.Create(&migrationRecord{Name: migration.name, AppliedAtSeconds: appliedAt}).Error; err != nil {
			return err
		}
		if logger != nil {
			logger.Info("database migration applied", zap.String("migration", migration.name))
		}
	}
	return nil
}

// Papers written before tier assignment existed carry an empty tier; park
// them in raw until the next reprocess recomputes it.
func backfillPendingVisibilityTier(db *gorm.DB) error {
	return db.Model(&papers.Paper{}).
		Where("visibility_tier = '' OR visibility_tier IS NULL").
		Update("visibility_tier", papers.VisibilityTierRaw).Error
}
