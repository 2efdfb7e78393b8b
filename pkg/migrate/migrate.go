package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/pressly/goose/v3"

	"github.com/angelmondragon/sweetshop-backend/pkg/logger"
)

// DefaultDir is the on-disk location used by the create/validate commands.
const DefaultDir = "pkg/migrate/migrations"

// EmbeddedDir selects the migrations compiled into the binary.
const EmbeddedDir = "migrations"

//go:embed migrations/*.sql
var embedded embed.FS

// Embedded exposes the compiled-in migrations, rooted at EmbeddedDir.
func Embedded() fs.FS {
	return embedded
}

// sourceFS resolves dir to a filesystem whose root holds the .sql files.
func sourceFS(dir string) (fs.FS, error) {
	switch dir {
	case "":
		return nil, errors.New("migrate: dir is required")
	case EmbeddedDir:
		return fs.Sub(embedded, EmbeddedDir)
	}
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return os.DirFS(dir), nil
}

func newProvider(db *sql.DB, dir string) (*goose.Provider, error) {
	if db == nil {
		return nil, errors.New("migrate: db is required")
	}
	fsys, err := sourceFS(dir)
	if err != nil {
		return nil, err
	}
	// The provider is not closed: it would close db, which the caller owns.
	p, err := goose.NewProvider(goose.DialectPostgres, db, fsys)
	if err != nil {
		return nil, fmt.Errorf("migrate: provider: %w", err)
	}
	return p, nil
}

// Run executes up, down or status against dir. Results are logged one entry
// per migration.
func Run(ctx context.Context, logg *logger.Logger, db *sql.DB, dir, command string) error {
	p, err := newProvider(db, dir)
	if err != nil {
		return err
	}

	switch command {
	case "up":
		results, err := p.Up(ctx)
		logResults(ctx, logg, results...)
		if err != nil {
			return fmt.Errorf("goose up: %w", err)
		}
		if len(results) == 0 {
			logg.Info(ctx, "schema already current")
		}
	case "down":
		result, err := p.Down(ctx)
		if result != nil {
			logResults(ctx, logg, result)
		}
		if err != nil {
			return fmt.Errorf("goose down: %w", err)
		}
	case "status":
		statuses, err := p.Status(ctx)
		if err != nil {
			return fmt.Errorf("goose status: %w", err)
		}
		for _, s := range statuses {
			fields := map[string]any{
				"version": s.Source.Version,
				"file":    s.Source.Path,
				"state":   string(s.State),
			}
			if !s.AppliedAt.IsZero() {
				fields["applied_at"] = s.AppliedAt
			}
			logg.Info(logg.WithFields(ctx, fields), "migration status")
		}
	default:
		return fmt.Errorf("migrate: unsupported command %q", command)
	}
	return nil
}

// MigrateToVersion moves the schema up or down until version is the newest
// applied migration. version uses the YYYYMMDDHHMMSS file prefix.
func MigrateToVersion(ctx context.Context, logg *logger.Logger, db *sql.DB, dir, version string) error {
	target, err := strconv.ParseInt(version, 10, 64)
	if err != nil || !isVersion(version) {
		return fmt.Errorf("migrate: invalid version %q (expected YYYYMMDDHHMMSS)", version)
	}
	p, err := newProvider(db, dir)
	if err != nil {
		return err
	}

	current, err := p.GetDBVersion(ctx)
	if err != nil {
		return fmt.Errorf("goose version: %w", err)
	}

	var results []*goose.MigrationResult
	switch {
	case current == target:
		logg.Info(logg.WithField(ctx, "version", current), "schema already at target version")
		return nil
	case current < target:
		results, err = p.UpTo(ctx, target)
	default:
		results, err = p.DownTo(ctx, target)
	}
	logResults(ctx, logg, results...)
	if err != nil {
		return fmt.Errorf("goose migrate %d -> %d: %w", current, target, err)
	}
	return nil
}

func logResults(ctx context.Context, logg *logger.Logger, results ...*goose.MigrationResult) {
	for _, res := range results {
		if res == nil || res.Source == nil {
			continue
		}
		entry := logg.WithFields(ctx, map[string]any{
			"version":     res.Source.Version,
			"file":        res.Source.Path,
			"direction":   res.Direction,
			"duration_ms": res.Duration.Milliseconds(),
		})
		if res.Error != nil {
			logg.Error(entry, "migration failed", res.Error)
			continue
		}
		logg.Info(entry, "migration applied")
	}
}
