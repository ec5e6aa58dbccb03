package database

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	domain "training-enrollment/internal/domain/enrollment"
	"training-enrollment/pkg/logger"

	"gorm.io/gorm"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type Migration struct {
	ID          string
	Description string
	SQL         string
	AppliedAt   *time.Time
}

type MigrationRunner struct {
	db            *gorm.DB
	files         fs.FS
	migrationsDir string
}

func NewMigrationRunner(db *gorm.DB, files fs.FS, migrationsDir string) *MigrationRunner {
	return &MigrationRunner{
		db:            db,
		files:         files,
		migrationsDir: migrationsDir,
	}
}

// NewEmbeddedMigrationRunner runs the migrations compiled into the binary
func NewEmbeddedMigrationRunner(db *gorm.DB) *MigrationRunner {
	return NewMigrationRunner(db, migrationsFS, "migrations")
}

func (mr *MigrationRunner) createMigrationsTable() error {
	sql := `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		id VARCHAR(255) PRIMARY KEY,
		description TEXT NOT NULL,
		applied_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
	);`

	return mr.db.Exec(sql).Error
}

func (mr *MigrationRunner) getAppliedMigrations() (map[string]time.Time, error) {
	var rows []struct {
		ID        string
		AppliedAt time.Time
	}
	err := mr.db.Raw("SELECT id, applied_at FROM schema_migrations ORDER BY id").Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	applied := make(map[string]time.Time, len(rows))
	for _, row := range rows {
		applied[row.ID] = row.AppliedAt
	}

	return applied, nil
}

func (mr *MigrationRunner) getMigrationFiles() ([]string, error) {
	entries, err := fs.ReadDir(mr.files, mr.migrationsDir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, path.Join(mr.migrationsDir, entry.Name()))
		}
	}

	sort.Strings(files)
	return files, nil
}

func (mr *MigrationRunner) readMigrationFile(filePath string) (*Migration, error) {
	content, err := fs.ReadFile(mr.files, filePath)
	if err != nil {
		return nil, err
	}

	filename := path.Base(filePath)
	parts := strings.SplitN(filename, "_", 2)
	if len(parts) < 2 {
		return nil, fmt.Errorf("invalid migration filename format: %s", filename)
	}

	description := strings.TrimSuffix(parts[1], ".sql")
	description = strings.ReplaceAll(description, "_", " ")

	return &Migration{
		ID:          parts[0],
		Description: description,
		SQL:         string(content),
	}, nil
}

func (mr *MigrationRunner) RunMigrations() (int, error) {
	if err := mr.createMigrationsTable(); err != nil {
		return 0, fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := mr.getAppliedMigrations()
	if err != nil {
		return 0, fmt.Errorf("failed to get applied migrations: %w", err)
	}

	files, err := mr.getMigrationFiles()
	if err != nil {
		return 0, fmt.Errorf("failed to get migration files: %w", err)
	}

	pendingCount := 0
	for _, file := range files {
		migration, err := mr.readMigrationFile(file)
		if err != nil {
			return pendingCount, fmt.Errorf("failed to read migration file %s: %w", file, err)
		}

		if _, ok := applied[migration.ID]; ok {
			continue
		}

		err = mr.db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Exec(migration.SQL).Error; err != nil {
				return fmt.Errorf("failed to execute migration %s: %w", migration.ID, err)
			}

			if err := tx.Exec("INSERT INTO schema_migrations (id, description) VALUES (?, ?)",
				migration.ID, migration.Description).Error; err != nil {
				return fmt.Errorf("failed to record migration %s: %w", migration.ID, err)
			}

			return nil
		})
		if err != nil {
			return pendingCount, err
		}

		logger.Info("Applied migration: %s - %s", migration.ID, migration.Description)
		pendingCount++
	}

	if pendingCount == 0 {
		logger.Info("No pending migrations to apply")
	} else {
		logger.Info("Successfully applied %d migrations", pendingCount)
	}

	return pendingCount, nil
}

func (mr *MigrationRunner) GetMigrationStatus() ([]Migration, error) {
	if err := mr.createMigrationsTable(); err != nil {
		return nil, fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := mr.getAppliedMigrations()
	if err != nil {
		return nil, fmt.Errorf("failed to get applied migrations: %w", err)
	}

	files, err := mr.getMigrationFiles()
	if err != nil {
		return nil, fmt.Errorf("failed to get migration files: %w", err)
	}

	var migrations []Migration
	for _, file := range files {
		migration, err := mr.readMigrationFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read migration file %s: %w", file, err)
		}

		if appliedAt, ok := applied[migration.ID]; ok {
			migration.AppliedAt = &appliedAt
		}

		migrations = append(migrations, *migration)
	}

	return migrations, nil
}

// AutoMigrate creates the schema from the domain models. Used for sqlite,
// where the PostgreSQL migration files do not apply.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Topic{},
		&domain.TopicPrerequisite{},
		&domain.CompletedTopic{},
		&domain.Session{},
		&domain.Booking{},
		&domain.Notification{},
	)
}

// RunMigrations brings the schema up to date for the connection's dialect
func RunMigrations(db *gorm.DB) error {
	logger.Info("Running database migrations for %s", db.Dialector.Name())

	if db.Dialector.Name() == DriverSQLite {
		if err := AutoMigrate(db); err != nil {
			return fmt.Errorf("failed to auto-migrate sqlite schema: %w", err)
		}
		return nil
	}

	if _, err := NewEmbeddedMigrationRunner(db).RunMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Info("Database migrations completed successfully")
	return nil
}
