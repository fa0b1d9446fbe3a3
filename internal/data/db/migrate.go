package db

import (
	"fmt"

	types "github.com/hostguard/guardian-backend/internal/domain"
	"gorm.io/gorm"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(types.Models()...)
}

type foreignKey struct {
	table    string
	column   string
	refTable string
	onDelete string
}

var foreignKeys = []foreignKey{
	{table: "chatbot", column: "user_id", refTable: "user", onDelete: "CASCADE"},
	{table: "conversation", column: "chatbot_id", refTable: "chatbot", onDelete: "CASCADE"},
	{table: "conversation", column: "guest_id", refTable: "guest", onDelete: "SET NULL"},
	{table: "message", column: "conversation_id", refTable: "conversation", onDelete: "CASCADE"},
	{table: "guardian_analysis", column: "conversation_id", refTable: "conversation", onDelete: "CASCADE"},
	{table: "guardian_alert", column: "conversation_id", refTable: "conversation", onDelete: "CASCADE"},
	{table: "guardian_alert", column: "user_id", refTable: "user", onDelete: "CASCADE"},
}

// EnsureForeignKeys adds the ownership constraints on Postgres. Other
// dialects are left alone.
func EnsureForeignKeys(db *gorm.DB) error {
	if db.Dialector.Name() != "postgres" {
		return nil
	}
	for _, fk := range foreignKeys {
		name := fmt.Sprintf("fk_%s_%s", fk.table, fk.column)
		stmt := fmt.Sprintf(`
DO $$
BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = '%s') THEN
    ALTER TABLE "%s" ADD CONSTRAINT "%s" FOREIGN KEY ("%s") REFERENCES "%s"("id") ON DELETE %s;
  END IF;
END $$;`, name, fk.table, name, fk.column, fk.refTable, fk.onDelete)
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("add %s: %w", name, err)
		}
	}
	return nil
}
