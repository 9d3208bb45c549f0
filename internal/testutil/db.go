// Package testutil provides a shared sqlite-backed GORM harness for package
// tests. Schema matches production via the same AutoMigrate model set.
package testutil

import (
	"path/filepath"
	"testing"

	"github.com/tastecircle/tastecircle/internal/model"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenDB opens a file-backed sqlite database in the test's temp dir and
// migrates the full schema. TranslateError is enabled so unique-constraint
// violations surface as gorm.ErrDuplicatedKey, same as the postgres setup.
func OpenDB(t *testing.T) *gorm.DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := db.AutoMigrate(model.AllModels...); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}
