package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		filename string
		ok       bool
		version  int
		name     string
	}{
		{"0001_transactions.sql", true, 1, "transactions"},
		{"0042_add_column.sql", true, 42, "add_column"},
		{"001_short_version.sql", false, 0, ""},
		{"0001_no_extension", false, 0, ""},
		{"0001.sql", false, 0, ""},
		{"notes.txt", false, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			version, name, ok := parseMigrationFilename(tt.filename)
			if ok != tt.ok {
				t.Fatalf("parseMigrationFilename(%q) ok = %v, want %v", tt.filename, ok, tt.ok)
			}
			if version != tt.version || name != tt.name {
				t.Errorf("parseMigrationFilename(%q) = (%d, %q), want (%d, %q)",
					tt.filename, version, name, tt.version, tt.name)
			}
		})
	}
}

func TestChecksumStableAndDistinct(t *testing.T) {
	a := checksum([]byte("CREATE TABLE t (id INT64);"))
	b := checksum([]byte("CREATE TABLE t (id INT64);"))
	c := checksum([]byte("CREATE TABLE other (id INT64);"))

	if a != b {
		t.Error("same content should produce the same checksum")
	}
	if a == c {
		t.Error("different content should produce different checksums")
	}
	if len(a) != 64 {
		t.Errorf("checksum length = %d, want 64 hex chars", len(a))
	}
}

func TestReadMigrationsExpandsPlaceholdersAndSorts(t *testing.T) {
	dir := t.TempDir()

	writeFile(t, dir, "0002_second.sql", "CREATE TABLE `{{PROJECT_ID}}.{{DATASET_ID}}.second` (id STRING);")
	writeFile(t, dir, "0001_first.sql", "CREATE TABLE `{{PROJECT_ID}}.{{DATASET_ID}}.first` (id STRING);")
	writeFile(t, dir, "README.md", "not a migration")

	migrations, err := readMigrations(dir, "my-project", "pesowise")
	if err != nil {
		t.Fatalf("readMigrations: %v", err)
	}
	if len(migrations) != 2 {
		t.Fatalf("got %d migrations, want 2", len(migrations))
	}
	if migrations[0].Version != 1 || migrations[1].Version != 2 {
		t.Errorf("migrations not sorted by version: %d, %d", migrations[0].Version, migrations[1].Version)
	}
	if !strings.Contains(migrations[0].SQL, "`my-project.pesowise.first`") {
		t.Errorf("placeholders not expanded: %s", migrations[0].SQL)
	}
	if strings.Contains(migrations[0].SQL, "{{") {
		t.Errorf("unexpanded placeholder remains: %s", migrations[0].SQL)
	}
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
