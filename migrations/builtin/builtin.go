// Package builtin registers every migration shipped with the module. Import it for its
// side effects.
package builtin

import (
	_ "github.com/Jokerealm/ai-slides/migrations/postgresql/core"
	_ "github.com/Jokerealm/ai-slides/migrations/sqlite/core"
)
