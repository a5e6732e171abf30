package database

import (
	"fmt"
	"os"

	sqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ospreychat/chatstore/internal/store"
)

// storeFileMode keeps the backing file readable by the owning user only. The
// at-rest protection policy beyond that is the platform's contract.
const storeFileMode = os.FileMode(0o600)

// OpenSQLite opens the single-file store, applies connection pragmas and
// performs schema migrations. Foreign keys are enforced; their resolution is
// deferred per writing transaction by the storage manager, since SQLite
// resets defer_foreign_keys at every commit. A failed migration leaves the
// store unusable and is returned as-is.
func OpenSQLite(path string, busyTimeoutMS int, logger *zap.Logger) (*gorm.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	dsn := fmt.Sprintf(
		"%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)",
		path, busyTimeoutMS,
	)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(4)

	if err := db.AutoMigrate(entityModels()...); err != nil {
		return nil, err
	}

	if err := applyMigrations(db, logger); err != nil {
		return nil, err
	}

	// The WAL siblings carry page content too and must not be left at
	// default permissions.
	for _, candidate := range []string{path, path + "-wal", path + "-shm"} {
		if err := os.Chmod(candidate, storeFileMode); err != nil && !os.IsNotExist(err) {
			return nil, err
		}
	}

	if logger != nil {
		logger.Info("database initialized", zap.String("path", path))
	}

	return db, nil
}

func entityModels() []any {
	return []any{
		&store.Contact{},
		&store.Message{},
		&store.Group{},
		&store.GroupMember{},
		&store.GroupMessage{},
		&store.FileTransfer{},
		&migrationRecord{},
	}
}
