// Package dbtest opens throwaway sqlite databases for tests.
package dbtest

import (
	"path/filepath"
	"testing"

	"training-enrollment/internal/infrastructure/database"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// NewSQLite returns a migrated sqlite database that lives for the duration of t
func NewSQLite(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := database.NewConnection(database.Config{
		Driver:   database.DriverSQLite,
		Path:     filepath.Join(t.TempDir(), "enrollment.db"),
		LogLevel: "silent",
	})
	require.NoError(t, err)
	require.NoError(t, database.RunMigrations(db))

	t.Cleanup(func() {
		_ = database.Close(db)
	})
	return db
}
