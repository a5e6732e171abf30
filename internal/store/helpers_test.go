package store

import (
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

const testClockSeconds = 1700000000

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "store.db")
	dsn := path + "?_pragma=foreign_keys(1)"

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&Contact{}, &Message{}, &Group{}, &GroupMember{}, &GroupMessage{}, &FileTransfer{},
	); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}
	return db
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	manager, err := NewManager(ManagerConfig{
		Database: openTestDB(t),
		Clock:    func() time.Time { return time.Unix(testClockSeconds, 0) },
	})
	if err != nil {
		t.Fatalf("failed to construct manager: %v", err)
	}
	return manager
}

func mustSave[E Entity](t *testing.T, m *Manager, entity E) E {
	t.Helper()
	saved, err := Save(t.Context(), m, entity)
	if err != nil {
		t.Fatalf("unexpected save error: %v", err)
	}
	return saved
}

func testContact(userID byte, status ContactAuthStatus) Contact {
	return Contact{
		UserID:     []byte{userID},
		Username:   "user-" + string(rune('a'+userID)),
		AuthStatus: status,
		Marshaled:  []byte{0xCA, userID},
	}
}

func testGroup(groupID byte, status GroupAuthStatus) Group {
	return Group{
		GroupID:    []byte{groupID},
		Leader:     []byte{0x01},
		Name:       "group-" + string(rune('a'+groupID)),
		Serialize:  []byte{0xBE, groupID},
		Accepted:   status == GroupAuthStatusParticipating,
		AuthStatus: status,
	}
}
