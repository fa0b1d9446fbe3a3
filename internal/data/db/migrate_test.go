package db_test

import (
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/hostguard/guardian-backend/internal/data/db"
)

func TestAutoMigrateAll(t *testing.T) {
	gdb, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrateAll(gdb); err != nil {
		t.Fatalf("AutoMigrateAll: %v", err)
	}
	// Idempotent on an already migrated schema.
	if err := db.AutoMigrateAll(gdb); err != nil {
		t.Fatalf("AutoMigrateAll (second run): %v", err)
	}
	for _, table := range []string{"user", "chatbot", "guest", "conversation", "message", "guardian_analysis", "guardian_alert"} {
		if !gdb.Migrator().HasTable(table) {
			t.Fatalf("missing table %q", table)
		}
	}

	if err := db.EnsureForeignKeys(gdb); err != nil {
		t.Fatalf("EnsureForeignKeys on sqlite should be a no-op: %v", err)
	}
}
