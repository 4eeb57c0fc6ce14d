package registry

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"sync"

	"github.com/Jokerealm/ai-slides/internal/backends"
)

var (
	// ErrMigrationNotFound is returned when no migration matches a lookup.
	ErrMigrationNotFound = errors.New("migration not found")
	// ErrDuplicateMigration is returned when the same migration is registered twice.
	ErrDuplicateMigration = errors.New("migration already registered")
)

var versionPattern = regexp.MustCompile(`^\d{14}$`)

// MigrationTarget specifies which migrations to select. Empty fields match everything.
type MigrationTarget struct {
	Backend    string
	Connection string
	Version    string
	Name       string
}

// Registry manages migration script registration and lookup
type Registry interface {
	// Register registers a migration script
	Register(migration *backends.MigrationScript) error

	// Find returns the migration with the given name for a backend
	Find(name, backend string) (*backends.MigrationScript, error)

	// FindByTarget finds migrations matching a target specification
	FindByTarget(target *MigrationTarget) ([]*backends.MigrationScript, error)

	// GetAll returns all registered migrations
	GetAll() []*backends.MigrationScript

	// GetByConnection returns migrations for a specific connection
	GetByConnection(connectionName string) []*backends.MigrationScript

	// GetByBackend returns migrations for a specific backend
	GetByBackend(backendName string) []*backends.MigrationScript

	// GetMigrationByName finds migrations by name across all connections/backends
	GetMigrationByName(name string) []*backends.MigrationScript

	// GetMigrationByVersion finds migrations by version across all connections/backends
	GetMigrationByVersion(version string) []*backends.MigrationScript
}

// GlobalRegistry is the global migration registry instance
var GlobalRegistry Registry = NewInMemoryRegistry()

// NewInMemoryRegistry creates a new in-memory registry
func NewInMemoryRegistry() Registry {
	return &inMemoryRegistry{
		migrations: make(map[string]*backends.MigrationScript),
	}
}

type inMemoryRegistry struct {
	mu         sync.RWMutex
	migrations map[string]*backends.MigrationScript
}

func (r *inMemoryRegistry) Register(migration *backends.MigrationScript) error {
	if migration == nil {
		return fmt.Errorf("migration is nil")
	}
	if !versionPattern.MatchString(migration.Version) {
		return fmt.Errorf("invalid migration version %q: expected YYYYMMDDHHMMSS", migration.Version)
	}
	if migration.Name == "" {
		return fmt.Errorf("migration %s has no name", migration.Version)
	}
	if migration.Backend == "" {
		return fmt.Errorf("migration %s_%s has no backend", migration.Version, migration.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	migrationID := r.getMigrationID(migration)
	if _, exists := r.migrations[migrationID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateMigration, migrationID)
	}
	r.migrations[migrationID] = migration
	return nil
}

func (r *inMemoryRegistry) Find(name, backend string) (*backends.MigrationScript, error) {
	matches, _ := r.FindByTarget(&MigrationTarget{Name: name, Backend: backend})
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: %s (backend %s)", ErrMigrationNotFound, name, backend)
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("migration name %s is ambiguous for backend %s: %d versions registered", name, backend, len(matches))
	}
}

func (r *inMemoryRegistry) FindByTarget(target *MigrationTarget) ([]*backends.MigrationScript, error) {
	if target == nil {
		return nil, fmt.Errorf("target is nil")
	}
	return r.filter(func(m *backends.MigrationScript) bool {
		if target.Backend != "" && m.Backend != target.Backend {
			return false
		}
		if target.Connection != "" && m.Connection != target.Connection {
			return false
		}
		if target.Version != "" && m.Version != target.Version {
			return false
		}
		if target.Name != "" && m.Name != target.Name {
			return false
		}
		return true
	}), nil
}

func (r *inMemoryRegistry) GetAll() []*backends.MigrationScript {
	return r.filter(func(*backends.MigrationScript) bool { return true })
}

func (r *inMemoryRegistry) GetByConnection(connectionName string) []*backends.MigrationScript {
	return r.filter(func(m *backends.MigrationScript) bool { return m.Connection == connectionName })
}

func (r *inMemoryRegistry) GetByBackend(backendName string) []*backends.MigrationScript {
	return r.filter(func(m *backends.MigrationScript) bool { return m.Backend == backendName })
}

func (r *inMemoryRegistry) GetMigrationByName(name string) []*backends.MigrationScript {
	return r.filter(func(m *backends.MigrationScript) bool { return m.Name == name })
}

func (r *inMemoryRegistry) GetMigrationByVersion(version string) []*backends.MigrationScript {
	return r.filter(func(m *backends.MigrationScript) bool { return m.Version == version })
}

// filter returns matching migrations sorted by version, then name, then backend.
func (r *inMemoryRegistry) filter(match func(*backends.MigrationScript) bool) []*backends.MigrationScript {
	r.mu.RLock()
	results := make([]*backends.MigrationScript, 0)
	for _, migration := range r.migrations {
		if match(migration) {
			results = append(results, migration)
		}
	}
	r.mu.RUnlock()

	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Version != b.Version {
			return a.Version < b.Version
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.Backend < b.Backend
	})
	return results
}

func (r *inMemoryRegistry) getMigrationID(migration *backends.MigrationScript) string {
	// Migration ID format: {version}_{name}_{backend}_{connection}
	return fmt.Sprintf("%s_%s_%s_%s", migration.Version, migration.Name, migration.Backend, migration.Connection)
}
