package migrations

import "github.com/Jokerealm/ai-slides/internal/backends"

// MigrationScript is a public alias for backends.MigrationScript
// This allows migration files outside this module to use this type
type MigrationScript = backends.MigrationScript
