package migrate

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/multierr"
)

func TestShippedMigrationsAreValid(t *testing.T) {
	if err := ValidateDir("migrations"); err != nil {
		t.Fatalf("shipped migrations failed validation: %v", err)
	}
}

func TestEmbeddedMigrationsMatchDisk(t *testing.T) {
	embeddedFiles, err := fs.Glob(Embedded(), "migrations/*.sql")
	if err != nil {
		t.Fatalf("glob embedded: %v", err)
	}
	diskFiles, err := filepath.Glob(filepath.Join("migrations", "*.sql"))
	if err != nil {
		t.Fatalf("glob disk: %v", err)
	}
	if len(embeddedFiles) == 0 || len(embeddedFiles) != len(diskFiles) {
		t.Fatalf("expected embedded (%d) and disk (%d) migrations to match", len(embeddedFiles), len(diskFiles))
	}
}

func TestSweetsMigrationGuardsStock(t *testing.T) {
	content := readMigration(t, "*_create_sweets.sql")
	for _, sub := range []string{
		"CREATE TABLE IF NOT EXISTS sweets",
		"CHECK (stock >= 0)",
		"CHECK (price >= 0)",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_sweets_name",
		"DROP TABLE IF EXISTS sweets",
	} {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestCartMigrationEnforcesOneLinePerSweet(t *testing.T) {
	content := readMigration(t, "*_create_carts.sql")
	for _, sub := range []string{
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_carts_user_id ON carts (user_id)",
		"ux_cart_items_cart_sweet ON cart_items (cart_id, sweet_id)",
		"CHECK (quantity >= 1)",
	} {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestOrderItemsDoNotReferenceSweets(t *testing.T) {
	content := readMigration(t, "*_create_orders.sql")
	if strings.Contains(content, "REFERENCES sweets") {
		t.Fatal("order items must not hold a foreign key to sweets")
	}
	if !strings.Contains(content, "FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE") {
		t.Fatal("expected order items to cascade with their order")
	}
}

func TestEmbeddedMigrationsValidate(t *testing.T) {
	if err := ValidateFS(Embedded(), EmbeddedDir); err != nil {
		t.Fatalf("embedded migrations failed validation: %v", err)
	}
}

func TestCreateSQLMigrationAndValidate(t *testing.T) {
	fixed := time.Date(2025, 7, 1, 12, 30, 0, 0, time.UTC)
	now = func() time.Time { return fixed }
	t.Cleanup(func() { now = time.Now })

	dir := t.TempDir()
	path, err := CreateSQLMigration(dir, "  Add Sweet--Tags! ")
	if err != nil {
		t.Fatalf("create migration: %v", err)
	}
	if filepath.Base(path) != "20250701123000_add_sweet_tags.sql" {
		t.Fatalf("unexpected filename %s", path)
	}
	if err := ValidateDir(dir); err != nil {
		t.Fatalf("generated migration failed validation: %v", err)
	}
	if _, err := CreateSQLMigration(dir, "add sweet tags"); err == nil {
		t.Fatal("expected an existing migration to be left untouched")
	}
	if _, err := CreateSQLMigration(dir, "!!!"); err == nil {
		t.Fatal("expected an unusable name to be rejected")
	}
}

func TestValidateDirCollectsEveryProblem(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"bad.sql":                      "-- +goose Up\n-- +goose Down\n",
		"20250101000000_one.sql":       "-- +goose Up\n-- +goose Down\n",
		"20250101000000_two.sql":       "-- +goose Up\n-- +goose Down\n",
		"20250102000000_no_down.sql":   "-- +goose Up\n",
		"20250103000000_backwards.sql": "-- +goose Down\n-- +goose Up\n",
		"20250104000000_fine.sql":      "-- +goose Up\nSELECT 1;\n-- +goose Down\n",
		"notes.txt":                    "ignored",
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	err := ValidateDir(dir)
	if err == nil {
		t.Fatal("expected validation errors")
	}
	if got := len(multierr.Errors(err)); got != 4 {
		t.Fatalf("expected 4 problems, got %d: %v", got, err)
	}
}

func readMigration(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no migration matching %s", pattern)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func TestSourceFSRootsAtMigrationFiles(t *testing.T) {
	fsys, err := sourceFS(EmbeddedDir)
	if err != nil {
		t.Fatalf("embedded source: %v", err)
	}
	files, err := fs.Glob(fsys, "*.sql")
	if err != nil || len(files) == 0 {
		t.Fatalf("expected sql files at the root of the embedded source, got %v (%v)", files, err)
	}

	if _, err := sourceFS(""); err == nil {
		t.Fatal("expected error for empty dir")
	}
	if _, err := sourceFS(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("expected error for missing dir")
	}
}

func TestOnlineCommandsRejectBadInput(t *testing.T) {
	ctx := context.Background()
	if err := Run(ctx, nil, nil, EmbeddedDir, "up"); err == nil {
		t.Fatal("expected error for nil db")
	}
	for _, v := range []string{"", "latest", "2025"} {
		if err := MigrateToVersion(ctx, nil, nil, EmbeddedDir, v); err == nil {
			t.Fatalf("expected error for version %q", v)
		}
	}
}
