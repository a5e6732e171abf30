package database

import (
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ospreychat/chatstore/internal/store"
)

const migrationBackfillGroupAuthStatus = "2026-06-14_backfill_group_auth_status"

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
		{name: migrationBackfillGroupAuthStatus, apply: backfillGroupAuthStatus},
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

// backfillGroupAuthStatus derives the group lifecycle status for rows written
// when the legacy accepted flag was the only membership signal.
func backfillGroupAuthStatus(db *gorm.DB) error {
	if err := db.Model(&store.Group{}).
		Where("auth_status = ? AND accepted = ?", "", true).
		Update("auth_status", store.GroupAuthStatusParticipating).Error; err != nil {
		return err
	}
	return db.Model(&store.Group{}).
		Where("auth_status = ? AND accepted = ?", "", false).
		Update("auth_status", store.GroupAuthStatusPending).Error
}
