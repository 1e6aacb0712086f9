package migrate

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"
	"unicode"
)

const (
	maxNameLen    = 64
	versionLayout = "20060102150405"
)

// now is replaced in tests to pin the version stamp.
var now = time.Now

var sqlTemplate = template.Must(template.New("migration").Parse(`-- +goose Up
-- +goose StatementBegin
-- {{.}}
-- +goose StatementEnd

-- +goose Down
-- +goose StatementBegin
-- rollback {{.}}
-- +goose StatementEnd
`))

// CreateSQLMigration writes an empty goose migration at
// <dir>/<YYYYMMDDHHMMSS>_<name>.sql and returns its path. It never
// overwrites an existing file.
func CreateSQLMigration(dir, name string) (string, error) {
	if dir == "" {
		return "", errors.New("migrate: dir is required")
	}
	slug, err := sanitizeName(name)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("migrate: mkdir %q: %w", dir, err)
	}

	path := filepath.Join(dir, now().UTC().Format(versionLayout)+"_"+slug+".sql")
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return "", fmt.Errorf("migrate: %s already exists", path)
	}
	if err != nil {
		return "", fmt.Errorf("migrate: create %q: %w", path, err)
	}

	if err := sqlTemplate.Execute(f, slug); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("migrate: write %q: %w", path, err)
	}
	return path, f.Close()
}

// sanitizeName lower-cases name and collapses every run of characters other
// than ASCII letters and digits into a single underscore.
func sanitizeName(name string) (string, error) {
	words := strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return r > unicode.MaxASCII || !(unicode.IsLetter(r) || unicode.IsDigit(r))
	})
	slug := strings.Join(words, "_")
	switch {
	case slug == "":
		return "", fmt.Errorf("migrate: name %q has no usable characters", name)
	case len(slug) > maxNameLen:
		return "", fmt.Errorf("migrate: name longer than %d characters", maxNameLen)
	}
	return slug, nil
}
