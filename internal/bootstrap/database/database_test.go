package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"journalflow/internal/bootstrap/config"
)

func TestOpenSQLiteCreatesDirectory(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "nested", "dir", "journal.sqlite")

	db, err := Open(context.Background(), config.DatabaseConfig{Driver: "sqlite", DSN: dsn})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("DB() error = %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.Exec("CREATE TABLE probe (id INTEGER)").Error; err != nil {
		t.Fatalf("create probe table: %v", err)
	}
	if _, err := os.Stat(filepath.Dir(dsn)); err != nil {
		t.Fatalf("sqlite directory missing: %v", err)
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), config.DatabaseConfig{Driver: "oracle", DSN: "x"}); err == nil {
		t.Fatalf("Open() expected error for unsupported driver")
	}
}
