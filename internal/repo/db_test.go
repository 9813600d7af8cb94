package repo

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/aiflownow/support-bot/internal/domain"
)

// newTestDB opens a throwaway SQLite database with the full schema applied.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("repo_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	// Ensure the file handle is released before TempDir cleanup (Windows needs this).
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	if err := AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func TestOpen_SQLiteCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "open_test.db")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	// Second run must be a no-op, not an error.
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate (idempotent): %v", err)
	}
}

func TestOpen_SQLiteMissingParentDir(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "no-such-dir", "x.db")); err == nil {
		t.Fatalf("expected error for missing parent directory")
	}
}

func TestAutoMigrate_CreatesTables(t *testing.T) {
	db := newTestDB(t)

	if !db.Migrator().HasTable(&domain.Ticket{}) {
		t.Fatalf("tickets table missing")
	}
	if !db.Migrator().HasTable(&domain.Manager{}) {
		t.Fatalf("managers table missing")
	}
}
