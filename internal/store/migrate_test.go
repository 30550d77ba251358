package store

import (
	"sort"
	"strings"
	"testing"
)

func TestMigrationNames(t *testing.T) {
	names, err := migrationNames()
	if err != nil {
		t.Fatalf("migrationNames failed: %v", err)
	}
	if len(names) == 0 {
		t.Fatal("no embedded migrations")
	}
	if !sort.StringsAreSorted(names) {
		t.Errorf("migrations not in apply order: %v", names)
	}
	for _, name := range names {
		if !strings.HasSuffix(name, ".up.sql") {
			t.Errorf("unexpected migration name %q", name)
		}
	}
	if names[0] != "0001_init.up.sql" {
		t.Errorf("first migration = %q, want 0001_init.up.sql", names[0])
	}
}

func TestInitialMigrationCreatesCollections(t *testing.T) {
	contents, err := migrationFiles.ReadFile("migrations/0001_init.up.sql")
	if err != nil {
		t.Fatalf("read initial migration: %v", err)
	}
	for _, table := range []string{"guidelines", "branches", "approvals", "users"} {
		if !strings.Contains(string(contents), "CREATE TABLE IF NOT EXISTS "+table) {
			t.Errorf("initial migration missing %s table", table)
		}
	}
}
