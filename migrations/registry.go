package migrations

import "github.com/Jokerealm/ai-slides/internal/registry"

// GlobalRegistry provides public access to the global migration registry.
var GlobalRegistry = registry.GlobalRegistry

// MustRegister registers a migration with the global registry and panics on failure.
// Generated files call it from init, where a broken migration set must stop the program.
func MustRegister(migration *MigrationScript) {
	if err := GlobalRegistry.Register(migration); err != nil {
		panic(err)
	}
}
