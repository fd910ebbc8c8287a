package testutil

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/calm3366/bond-portfolio/internal/database"
)

// SetupTestDB creates a migrated SQLite database in a per-test temporary file.
// The database is automatically cleaned up when the test completes.
//
// A file is used instead of :memory: because every pooled connection to an
// in-memory database gets its own empty schema.
//
// Example usage:
//
//	func TestSomething(t *testing.T) {
//	    db := testutil.SetupTestDB(t)
//	    // db is ready to use with schema created
//	}
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		db.Close()
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	// Cleanup when test ends
	t.Cleanup(func() {
		db.Close()
	})

	return db
}
