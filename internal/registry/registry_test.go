package registry

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/Jokerealm/ai-slides/internal/backends"
)

func newScript(version, name, connection, backend string) *backends.MigrationScript {
	return &backends.MigrationScript{
		Version:    version,
		Name:       name,
		Connection: connection,
		Backend:    backend,
		UpSQL:      "DROP TABLE IF EXISTS " + name + ";",
		DownSQL:    "CREATE TABLE " + name + " (id INTEGER);",
	}
}

func TestNewInMemoryRegistry(t *testing.T) {
	reg := NewInMemoryRegistry()
	if reg == nil {
		t.Fatal("NewInMemoryRegistry() returned nil")
	}
	if len(reg.GetAll()) != 0 {
		t.Error("Expected empty registry initially")
	}
}

func TestInMemoryRegistry_Register(t *testing.T) {
	tests := []struct {
		name        string
		migration   *backends.MigrationScript
		errContains string
	}{
		{"valid", newScript("20250610000000", "remove_auth_tables", "core", "sqlite"), ""},
		{"nil", nil, "nil"},
		{"short version", newScript("2025", "x", "core", "sqlite"), "invalid migration version"},
		{"missing name", newScript("20250610000000", "", "core", "sqlite"), "has no name"},
		{"missing backend", newScript("20250610000000", "x", "core", ""), "has no backend"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewInMemoryRegistry().Register(tt.migration)
			if tt.errContains == "" {
				if err != nil {
					t.Errorf("Register() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.errContains) {
				t.Errorf("Register() error = %v, want containing %q", err, tt.errContains)
			}
		})
	}
}

func TestInMemoryRegistry_RegisterDuplicate(t *testing.T) {
	reg := NewInMemoryRegistry()

	if err := reg.Register(newScript("20250610000000", "remove_auth_tables", "core", "sqlite")); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	err := reg.Register(newScript("20250610000000", "remove_auth_tables", "core", "sqlite"))
	if !errors.Is(err, ErrDuplicateMigration) {
		t.Errorf("expected ErrDuplicateMigration, got %v", err)
	}

	// Same migration for another backend is a different entry.
	if err := reg.Register(newScript("20250610000000", "remove_auth_tables", "core", "postgresql")); err != nil {
		t.Errorf("Register() for another backend error = %v", err)
	}
	if len(reg.GetAll()) != 2 {
		t.Errorf("Expected 2 migrations, got %d", len(reg.GetAll()))
	}
}

func TestInMemoryRegistry_Find(t *testing.T) {
	reg := NewInMemoryRegistry()
	_ = reg.Register(newScript("20250610000000", "remove_auth_tables", "core", "sqlite"))
	_ = reg.Register(newScript("20250610000000", "remove_auth_tables", "core", "postgresql"))
	_ = reg.Register(newScript("20250612000000", "remove_speech_scripts_table", "core", "sqlite"))
	_ = reg.Register(newScript("20250701000000", "remove_speech_scripts_table", "core", "sqlite"))

	got, err := reg.Find("remove_auth_tables", "postgresql")
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if got.Backend != "postgresql" {
		t.Errorf("Find() backend = %s, want postgresql", got.Backend)
	}

	_, err = reg.Find("remove_auth_tables", "mysql")
	if !errors.Is(err, ErrMigrationNotFound) {
		t.Errorf("expected ErrMigrationNotFound, got %v", err)
	}

	_, err = reg.Find("remove_speech_scripts_table", "sqlite")
	if err == nil || !strings.Contains(err.Error(), "ambiguous") {
		t.Errorf("expected ambiguity error, got %v", err)
	}
}

func TestInMemoryRegistry_FindByTarget(t *testing.T) {
	reg := NewInMemoryRegistry()
	_ = reg.Register(newScript("20240101120000", "migration1", "test", "postgresql"))
	_ = reg.Register(newScript("20240101120001", "migration2", "test", "postgresql"))
	_ = reg.Register(newScript("20240101120000", "migration3", "other", "postgresql"))
	_ = reg.Register(newScript("20240101120000", "migration1", "test", "sqlite"))

	tests := []struct {
		name    string
		target  *MigrationTarget
		wantLen int
	}{
		{"filter by connection", &MigrationTarget{Connection: "test"}, 3},
		{"filter by backend", &MigrationTarget{Backend: "postgresql"}, 3},
		{"filter by connection and backend", &MigrationTarget{Connection: "test", Backend: "postgresql"}, 2},
		{"filter by version", &MigrationTarget{Version: "20240101120000"}, 3},
		{"filter by name", &MigrationTarget{Name: "migration1"}, 2},
		{"no match", &MigrationTarget{Backend: "mysql"}, 0},
		{"empty target", &MigrationTarget{}, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := reg.FindByTarget(tt.target)
			if err != nil {
				t.Errorf("FindByTarget() error = %v", err)
			}
			if len(results) != tt.wantLen {
				t.Errorf("Expected %d results, got %d", tt.wantLen, len(results))
			}
		})
	}

	if _, err := reg.FindByTarget(nil); err == nil {
		t.Error("FindByTarget(nil) expected error")
	}
}

func TestInMemoryRegistry_SortedByVersion(t *testing.T) {
	reg := NewInMemoryRegistry()
	_ = reg.Register(newScript("20250612000000", "b", "core", "sqlite"))
	_ = reg.Register(newScript("20250610000000", "a", "core", "sqlite"))
	_ = reg.Register(newScript("20250611000000", "c", "core", "sqlite"))

	all := reg.GetByBackend("sqlite")
	want := []string{"20250610000000", "20250611000000", "20250612000000"}
	for i, m := range all {
		if m.Version != want[i] {
			t.Errorf("position %d: version = %s, want %s", i, m.Version, want[i])
		}
	}
}

func TestInMemoryRegistry_Lookups(t *testing.T) {
	reg := NewInMemoryRegistry()
	_ = reg.Register(newScript("20240101120000", "migration1", "test", "postgresql"))
	_ = reg.Register(newScript("20240101120001", "migration2", "other", "mysql"))

	if got := reg.GetByConnection("test"); len(got) != 1 || got[0].Name != "migration1" {
		t.Errorf("GetByConnection(test) = %v", got)
	}
	if got := reg.GetByConnection("nonexistent"); len(got) != 0 {
		t.Errorf("Expected 0 migrations for nonexistent connection, got %d", len(got))
	}
	if got := reg.GetByBackend("mysql"); len(got) != 1 || got[0].Name != "migration2" {
		t.Errorf("GetByBackend(mysql) = %v", got)
	}
	if got := reg.GetMigrationByName("migration2"); len(got) != 1 {
		t.Errorf("GetMigrationByName(migration2) returned %d", len(got))
	}
	if got := reg.GetMigrationByVersion("20240101120000"); len(got) != 1 {
		t.Errorf("GetMigrationByVersion() returned %d", len(got))
	}
}

func TestInMemoryRegistry_ConcurrentAccess(t *testing.T) {
	reg := NewInMemoryRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			version := "202501010000" + string(rune('0'+i/10)) + string(rune('0'+i%10))
			_ = reg.Register(newScript(version, "m", "core", "sqlite"))
			_ = reg.GetAll()
		}(i)
	}
	wg.Wait()

	if len(reg.GetAll()) != 20 {
		t.Errorf("Expected 20 migrations, got %d", len(reg.GetAll()))
	}
}
