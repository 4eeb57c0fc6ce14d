package executor

import (
	"errors"
	"fmt"
	"os"

	"github.com/Jokerealm/ai-slides/internal/backends"
	"github.com/Jokerealm/ai-slides/internal/codegen"
	"github.com/Jokerealm/ai-slides/internal/logger"
	"github.com/Jokerealm/ai-slides/internal/registry"
)

// Loader registers migration scripts read from a directory at runtime, next to the
// ones compiled into the binary
type Loader struct {
	path string
}

// NewLoader creates a new migration loader
func NewLoader(path string) *Loader {
	return &Loader{path: path}
}

// LoadAll registers every migration under the loader's directory and returns how many
// were added. A missing directory is not an error, and migrations that are already
// registered are left alone.
func (l *Loader) LoadAll(reg registry.Registry) (int, error) {
	if l.path == "" {
		return 0, nil
	}
	if _, err := os.Stat(l.path); os.IsNotExist(err) {
		logger.Warnf("Migrations directory does not exist: %s", l.path)
		return 0, nil
	}

	files, err := codegen.Discover(l.path)
	if err != nil {
		return 0, fmt.Errorf("error scanning migrations directory: %w", err)
	}

	var loadedCount int
	for _, f := range files {
		up, down, err := f.ReadScripts()
		if err != nil {
			return loadedCount, fmt.Errorf("failed to load migration %s: %w", f.Key(), err)
		}

		migration := &backends.MigrationScript{
			Version:    f.Version,
			Name:       f.Name,
			Connection: f.Connection,
			Backend:    f.Backend,
			UpSQL:      up,
			DownSQL:    down,
		}
		if err := reg.Register(migration); err != nil {
			if errors.Is(err, registry.ErrDuplicateMigration) {
				logger.Debugf("Migration %s is already registered, skipping %s", migration.ID(), f.Key())
				continue
			}
			return loadedCount, fmt.Errorf("failed to register migration %s: %w", f.Key(), err)
		}

		logger.Infof("Registered migration: %s (backend: %s, connection: %s)", migration.ID(), migration.Backend, migration.Connection)
		loadedCount++
	}

	logger.Infof("Loaded %d migration(s) from %s", loadedCount, l.path)
	return loadedCount, nil
}
