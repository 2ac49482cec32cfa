package migration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"add meter serial", "add_meter_serial"},
		{"Add-Meter-Serial", "add_meter_serial"},
		{"ADD_METER_SERIAL", "add_meter_serial"},
		{"add__meter__serial", "add_meter_serial"},
		{"Index bills 2", "index_bills_2"},
		{"   spaces   ", "spaces"},
		{"special!@#$chars", "specialchars"},
		{"trailing_", "trailing"},
		{"_leading", "leading"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeName(tt.input))
		})
	}
}

func touch(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, n := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), []byte("-- test"), 0o644))
	}
}

func TestCreateMigration(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "000001_init.up.sql", "000001_init.down.sql")

	mf, err := CreateMigration(dir, "add meter serial", "Serial numbers are unique per apartment")
	require.NoError(t, err)
	assert.Equal(t, "000002", mf.Version)
	assert.Equal(t, filepath.Join(dir, "000002_add_meter_serial.up.sql"), mf.UpPath)
	assert.Equal(t, filepath.Join(dir, "000002_add_meter_serial.down.sql"), mf.DownPath)

	up, err := os.ReadFile(mf.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(up), "-- Migration: add meter serial")
	assert.Contains(t, string(up), "Serial numbers are unique per apartment")

	down, err := os.ReadFile(mf.DownPath)
	require.NoError(t, err)
	assert.Contains(t, string(down), "-- Rollback: add meter serial")

	next, err := CreateMigration(dir, "second", "")
	require.NoError(t, err)
	assert.Equal(t, "000003", next.Version)
}

func TestCreateMigration_CreatesDirectory(t *testing.T) {
	nested := filepath.Join(t.TempDir(), "nested", "migrations")

	mf, err := CreateMigration(nested, "init", "")
	require.NoError(t, err)
	assert.Equal(t, "000001", mf.Version)

	info, err := os.Stat(nested)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestCreateMigration_RejectsEmptyName(t *testing.T) {
	_, err := CreateMigration(t.TempDir(), "!!!", "")
	assert.Error(t, err)
}

func TestListMigrations(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir,
		"000002_add_index.up.sql", "000002_add_index.down.sql",
		"000001_init.up.sql", "000001_init.down.sql",
		"README.md", ".gitkeep",
	)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "000009_dir.up.sql"), 0o755))

	names, err := ListMigrations(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"000001_init", "000002_add_index"}, names)
}

func TestListMigrations_MissingDirectory(t *testing.T) {
	names, err := ListMigrations(filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestNextVersion_IgnoresUnnumberedFiles(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "000004_tariffs.up.sql", "scratch.up.sql")

	v, err := NextVersion(dir)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), v)
}
