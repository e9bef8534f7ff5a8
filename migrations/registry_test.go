package migrations

import (
	"context"
	"database/sql"
	"io/fs"
	"strings"
	"testing"

	install "github.com/goliatone/go-install"
	_ "github.com/mattn/go-sqlite3"
)

func TestFilesystems_ReturnsPostgresAndSQLite(t *testing.T) {
	filesystems, err := Filesystems()
	if err != nil {
		t.Fatalf("filesystems: %v", err)
	}
	if len(filesystems) != 2 {
		t.Fatalf("expected 2 filesystems, got %d", len(filesystems))
	}

	var postgresFound bool
	var sqliteFound bool
	for _, entry := range filesystems {
		matches, globErr := fs.Glob(entry.FS, "*.up.sql")
		if globErr != nil {
			t.Fatalf("glob %s: %v", entry.Dialect, globErr)
		}
		if len(matches) == 0 {
			t.Fatalf("expected %s migration files, got none", entry.Dialect)
		}
		switch entry.Dialect {
		case DialectPostgres:
			postgresFound = true
		case DialectSQLite:
			sqliteFound = true
		}
	}

	if !postgresFound {
		t.Fatalf("expected postgres filesystem")
	}
	if !sqliteFound {
		t.Fatalf("expected sqlite filesystem")
	}
}

func TestRegister_UsesValidationTargets(t *testing.T) {
	var calls []string
	_, err := Register(context.Background(), func(_ context.Context, dialect string, _ string, _ fs.FS) error {
		calls = append(calls, dialect)
		return nil
	}, WithValidationTargets(DialectSQLite))
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if len(calls) != 1 {
		t.Fatalf("expected 1 registration call, got %d", len(calls))
	}
	if calls[0] != DialectSQLite {
		t.Fatalf("expected sqlite registration, got %q", calls[0])
	}
}

func TestInstallFoundationMigrationPair_ExistsForBothDialects(t *testing.T) {
	root := install.GetMigrationsFS()
	paths := []string{
		"data/sql/migrations/0001_install.up.sql",
		"data/sql/migrations/0001_install.down.sql",
		"data/sql/migrations/sqlite/0001_install.up.sql",
		"data/sql/migrations/sqlite/0001_install.down.sql",
	}
	for _, migrationPath := range paths {
		content, err := fs.ReadFile(root, migrationPath)
		if err != nil {
			t.Fatalf("read migration %s: %v", migrationPath, err)
		}
		if strings.TrimSpace(string(content)) == "" {
			t.Fatalf("expected migration %s to have SQL content", migrationPath)
		}
	}
}

func TestSQLiteMigrations_ApplyCleanly(t *testing.T) {
	filesystems, err := Filesystems()
	if err != nil {
		t.Fatalf("filesystems: %v", err)
	}

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer db.Close()

	for _, entry := range filesystems {
		if entry.Dialect != DialectSQLite {
			continue
		}
		matches, globErr := fs.Glob(entry.FS, "*.up.sql")
		if globErr != nil {
			t.Fatalf("glob sqlite migrations: %v", globErr)
		}
		for _, name := range matches {
			content, readErr := fs.ReadFile(entry.FS, name)
			if readErr != nil {
				t.Fatalf("read %s: %v", name, readErr)
			}
			if _, execErr := db.Exec(string(content)); execErr != nil {
				t.Fatalf("apply %s: %v", name, execErr)
			}
		}
	}

	for _, table := range []string{"install_installations", "install_states"} {
		var name string
		row := db.QueryRow("SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table)
		if scanErr := row.Scan(&name); scanErr != nil {
			t.Fatalf("expected table %s to exist: %v", table, scanErr)
		}
	}
}
