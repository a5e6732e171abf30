package database

import (
	"os"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Wipe drops every entity table. Used by the backup/restore collaborator
// before a restore overwrites existing data. The next OpenSQLite recreates
// the schema.
func Wipe(db *gorm.DB, logger *zap.Logger) error {
	if err := db.Migrator().DropTable(entityModels()...); err != nil {
		return err
	}
	if logger != nil {
		logger.Info("database wiped")
	}
	return nil
}

// Destroy removes the backing file and its WAL siblings. Used when the
// account is deleted. Missing files are not an error.
func Destroy(path string, logger *zap.Logger) error {
	for _, candidate := range []string{path, path + "-wal", path + "-shm"} {
		if err := os.Remove(candidate); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	if logger != nil {
		logger.Info("database destroyed", zap.String("path", path))
	}
	return nil
}
