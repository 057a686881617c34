package state

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/pressly/goose/v3"
)

// schema holds the verify_runs and verify_checks migrations.
//
//go:embed migrations/*.sql
var schema embed.FS

// schemaProvider returns a goose provider over the embedded schema. Each
// store gets its own provider, so stores opened in parallel do not share
// goose's package-level dialect and filesystem.
func schemaProvider(db *sql.DB) (*goose.Provider, error) {
	fsys, err := fs.Sub(schema, "migrations")
	if err != nil {
		return nil, err
	}
	p, err := goose.NewProvider(goose.DialectSQLite3, db, fsys)
	if err != nil {
		return nil, fmt.Errorf("failed to load state schema: %w", err)
	}
	return p, nil
}

// upgradeSchema brings the run history tables to the latest version.
func upgradeSchema(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	p, err := schemaProvider(db)
	if err != nil {
		return err
	}
	applied, err := p.Up(ctx)
	if err != nil {
		return fmt.Errorf("failed to upgrade state schema: %w", err)
	}
	for _, r := range applied {
		logger.Debug("state schema upgraded",
			slog.Int64("version", r.Source.Version),
			slog.Duration("took", r.Duration))
	}
	return nil
}

// SchemaVersion returns the schema version of the open history database.
func (s *SQLiteStore) SchemaVersion(ctx context.Context) (int64, error) {
	if s.db == nil {
		return 0, fmt.Errorf("database not opened")
	}
	p, err := schemaProvider(s.db)
	if err != nil {
		return 0, err
	}
	return p.GetDBVersion(ctx)
}
