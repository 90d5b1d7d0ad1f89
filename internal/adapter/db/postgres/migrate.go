package postgres

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed migrations
var migrationsFS embed.FS

// Migrate applies the unapplied SQL migrations for the dialect behind db.
// Applied files are tracked in the schema_migrations table.
func Migrate(ctx context.Context, db *gorm.DB, log *zap.Logger) error {
	dialect := db.Dialector.Name()
	dir := "migrations/" + dialect
	if _, err := fs.Stat(migrationsFS, dir); err != nil {
		return fmt.Errorf("no migrations for dialect %q", dialect)
	}

	tx := db.WithContext(ctx)
	if err := tx.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		filename TEXT PRIMARY KEY,
		applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`).Error; err != nil {
		return fmt.Errorf("ensure migrations table: %w", err)
	}

	var applied []string
	if err := tx.Table("schema_migrations").Pluck("filename", &applied).Error; err != nil {
		return fmt.Errorf("get applied migrations: %w", err)
	}
	done := make(map[string]bool, len(applied))
	for _, f := range applied {
		done[f] = true
	}

	files, err := listMigrationFiles(dir)
	if err != nil {
		return fmt.Errorf("list migration files: %w", err)
	}

	for _, name := range files {
		if done[name] {
			log.Debug("migration already applied", zap.String("file", name))
			continue
		}

		content, err := fs.ReadFile(migrationsFS, dir+"/"+name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}

		err = tx.Transaction(func(t *gorm.DB) error {
			if err := t.Exec(string(content)).Error; err != nil {
				return fmt.Errorf("execute sql: %w", err)
			}
			return t.Exec("INSERT INTO schema_migrations (filename) VALUES (?)", name).Error
		})
		if err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
		log.Info("migration applied", zap.String("file", name), zap.String("dialect", dialect))
	}

	return nil
}

func listMigrationFiles(dir string) ([]string, error) {
	entries, err := fs.ReadDir(migrationsFS, dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}
