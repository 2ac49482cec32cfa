package migration

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"text/template"
	"time"
)

const (
	upSuffix      = ".up.sql"
	downSuffix    = ".down.sql"
	versionDigits = 6
)

var (
	upTemplate = template.Must(template.New("up").Parse(`-- Migration: {{.Name}}
-- Created: {{.Timestamp}}
{{- if .Description}}
-- {{.Description}}
{{- end}}

`))
	downTemplate = template.Must(template.New("down").Parse(`-- Rollback: {{.Name}}
-- Created: {{.Timestamp}}

`))
)

// MigrationFile is a generated up/down pair
type MigrationFile struct {
	Version     string
	Name        string
	Description string
	Timestamp   string
	UpPath      string
	DownPath    string
}

// CreateMigration writes an empty up/down pair numbered one past the highest
// existing version, e.g. 000002_add_meter_serial.up.sql
func CreateMigration(migrationsDir, name, description string) (*MigrationFile, error) {
	slug := sanitizeName(name)
	if slug == "" {
		return nil, fmt.Errorf("migration name %q has no usable characters", name)
	}
	if err := os.MkdirAll(migrationsDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create migrations directory: %w", err)
	}

	next, err := NextVersion(migrationsDir)
	if err != nil {
		return nil, err
	}
	version := fmt.Sprintf("%0*d", versionDigits, next)
	base := version + "_" + slug

	mf := &MigrationFile{
		Version:     version,
		Name:        name,
		Description: description,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		UpPath:      filepath.Join(migrationsDir, base+upSuffix),
		DownPath:    filepath.Join(migrationsDir, base+downSuffix),
	}

	if err := writeTemplate(mf.UpPath, upTemplate, mf); err != nil {
		return nil, fmt.Errorf("failed to create up migration: %w", err)
	}
	if err := writeTemplate(mf.DownPath, downTemplate, mf); err != nil {
		_ = os.Remove(mf.UpPath)
		return nil, fmt.Errorf("failed to create down migration: %w", err)
	}
	return mf, nil
}

// NextVersion returns the version a new migration in dir should take
func NextVersion(dir string) (uint64, error) {
	names, err := ListMigrations(dir)
	if err != nil {
		return 0, err
	}
	var highest uint64
	for _, n := range names {
		prefix, _, _ := strings.Cut(n, "_")
		v, err := strconv.ParseUint(prefix, 10, 64)
		if err != nil {
			continue
		}
		highest = max(highest, v)
	}
	return highest + 1, nil
}

// ListMigrations returns the base names of the up files in dir, sorted. A
// missing directory has no migrations.
func ListMigrations(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if base, ok := strings.CutSuffix(e.Name(), upSuffix); ok && base != "" {
			names = append(names, base)
		}
	}
	sort.Strings(names)
	return names, nil
}

func writeTemplate(path string, tmpl *template.Template, data *MigrationFile) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", path, err)
	}
	if err := tmpl.Execute(f, data); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to render %s: %w", path, err)
	}
	return f.Close()
}

// sanitizeName lowercases name and joins its words with single underscores
func sanitizeName(name string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			pendingSep = true
		}
	}
	return b.String()
}
