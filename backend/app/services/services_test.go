package services

import (
	"path/filepath"
	"sync"
	"testing"

	"growlink/backend/app/db"
	"growlink/backend/app/models"
	"growlink/backend/app/repo"

	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := db.Connect(db.Config{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "test.db")})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := gdb.AutoMigrate(&models.User{}, &models.Device{}, &models.Command{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return gdb
}

func seedUser(t *testing.T, gdb *gorm.DB, username string) *models.User {
	t.Helper()
	u := &models.User{Username: username, Email: username + "@example.com", PasswordHash: "x", Role: "user"}
	if err := gdb.Create(u).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

// captureNotifier records every terminal notification for assertions.
type captureNotifier struct {
	mu       sync.Mutex
	finished []uint
}

func (n *captureNotifier) CommandFinished(cmd *models.Command) {
	n.mu.Lock()
	n.finished = append(n.finished, cmd.ID)
	n.mu.Unlock()
}

func (n *captureNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.finished)
}

type fixture struct {
	gdb      *gorm.DB
	devices  *repo.DeviceRepository
	commands *repo.CommandRepository
	users    *repo.UserRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gdb := newTestDB(t)
	return &fixture{
		gdb:      gdb,
		devices:  repo.NewDeviceRepository(gdb),
		commands: repo.NewCommandRepository(gdb),
		users:    repo.NewUserRepository(gdb),
	}
}
