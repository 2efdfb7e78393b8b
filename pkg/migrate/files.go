package migrate

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"go.uber.org/multierr"
)

const (
	versionLayout = "20060102150405"
	upMarker      = "-- +goose Up"
	downMarker    = "-- +goose Down"
)

var skeleton = upMarker + `
-- +goose StatementBegin
-- migrate up: %[1]s
-- +goose StatementEnd

` + downMarker + `
-- +goose StatementBegin
-- migrate down: %[1]s
-- +goose StatementEnd
`

// now is swapped in tests.
var now = time.Now

// CreateSQLMigration writes an empty goose migration named
// <dir>/<version>_<slug>.sql and returns its path.
func CreateSQLMigration(dir, name string) (string, error) {
	if dir == "" {
		return "", fmt.Errorf("migrations dir is required")
	}
	slug := slugify(name)
	if slug == "" {
		return "", fmt.Errorf("migration name %q has no usable characters", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating %s: %w", dir, err)
	}

	full := filepath.Join(dir, now().UTC().Format(versionLayout)+"_"+slug+".sql")
	f, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", full, err)
	}
	_, werr := fmt.Fprintf(f, skeleton, slug)
	if err := multierr.Append(werr, f.Close()); err != nil {
		return "", fmt.Errorf("writing %s: %w", full, err)
	}
	return full, nil
}

// slugify lowercases name and collapses every run of other characters into a
// single underscore.
func slugify(name string) string {
	var b strings.Builder
	gap := false
	for _, r := range strings.ToLower(name) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			if gap && b.Len() > 0 {
				b.WriteByte('_')
			}
			gap = false
			b.WriteRune(r)
			continue
		}
		gap = true
	}
	return b.String()
}

// ValidateDir checks the migrations on disk. See ValidateFS.
func ValidateDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("migrations dir is required")
	}
	return ValidateFS(os.DirFS(dir), ".")
}

// ValidateFS reports every .sql file under dir whose name is not
// <14 digit version>_<slug>.sql, whose version repeats, or which lacks goose
// Up and Down sections in that order. An empty directory is valid.
func ValidateFS(fsys fs.FS, dir string) error {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return fmt.Errorf("listing migrations: %w", err)
	}

	var problems error
	versions := make(map[string]string, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || path.Ext(name) != ".sql" {
			continue
		}

		version, slug, ok := strings.Cut(strings.TrimSuffix(name, ".sql"), "_")
		if !ok || !isVersion(version) || slug == "" || slugify(slug) != slug {
			problems = multierr.Append(problems, fmt.Errorf("%s: want <YYYYMMDDHHMMSS>_<name>.sql", name))
			continue
		}
		if other, dup := versions[version]; dup {
			problems = multierr.Append(problems, fmt.Errorf("%s: version %s already used by %s", name, version, other))
			continue
		}
		versions[version] = name

		body, err := fs.ReadFile(fsys, path.Join(dir, name))
		if err != nil {
			problems = multierr.Append(problems, fmt.Errorf("%s: %w", name, err))
			continue
		}
		text := string(body)
		up, down := strings.Index(text, upMarker), strings.Index(text, downMarker)
		switch {
		case up < 0:
			problems = multierr.Append(problems, fmt.Errorf("%s: missing %q", name, upMarker))
		case down < 0:
			problems = multierr.Append(problems, fmt.Errorf("%s: missing %q", name, downMarker))
		case down < up:
			problems = multierr.Append(problems, fmt.Errorf("%s: Down section precedes Up", name))
		}
	}
	return problems
}

func isVersion(s string) bool {
	if len(s) != len(versionLayout) {
		return false
	}
	_, err := time.Parse(versionLayout, s)
	return err == nil
}
