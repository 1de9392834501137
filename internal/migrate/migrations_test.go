package migrate_test

import (
	"testing"

	"checkline/internal/db"
	"checkline/internal/migrate"
)

func TestMigrateCreatesSchema(t *testing.T) {
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer conn.Close()

	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	for _, table := range []string{"procedures", "procedure_fields", "templates", "executions", "categories", "events", "api_keys"} {
		var name string
		err := conn.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		if err != nil {
			t.Fatalf("table %s missing after migrate: %v", table, err)
		}
	}

	var version int
	if err := conn.QueryRow(`SELECT version FROM schema_version`).Scan(&version); err != nil {
		t.Fatalf("read schema_version: %v", err)
	}
	if version < 1 {
		t.Fatalf("schema_version = %d, want at least 1", version)
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer conn.Close()

	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("first Migrate: %v", err)
	}
	var before int
	if err := conn.QueryRow(`SELECT version FROM schema_version`).Scan(&before); err != nil {
		t.Fatalf("read schema_version: %v", err)
	}

	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
	var rows, after int
	if err := conn.QueryRow(`SELECT COUNT(*), MAX(version) FROM schema_version`).Scan(&rows, &after); err != nil {
		t.Fatalf("read schema_version: %v", err)
	}
	if rows != 1 {
		t.Fatalf("schema_version has %d rows, want 1", rows)
	}
	if after != before {
		t.Fatalf("version changed on rerun: %d -> %d", before, after)
	}
}
