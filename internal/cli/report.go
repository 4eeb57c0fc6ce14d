package cli

import (
	"fmt"
	"io"

	"github.com/Jokerealm/ai-slides/internal/backends"
)

// Report prints the console lines of a run: the step text of every statement whose
// work was kept, an error line for every failed one and, when the run succeeded, the
// summary message. Statements undone by a rollback print nothing.
func Report(out io.Writer, result *backends.MigrationResult) {
	for _, stmt := range result.Statements {
		switch stmt.Status {
		case backends.StatementSuccess:
			if stmt.Step != "" && !result.RolledBack {
				fmt.Fprintln(out, stmt.Step)
			}
		case backends.StatementFailed:
			fmt.Fprintf(out, "%s: %s\n", errorPrefix(stmt.OnError, result.Direction), stmt.Error)
		}
	}

	if result.Error != "" {
		fmt.Fprintf(out, "%s: %s\n", errorPrefix("", result.Direction), result.Error)
	}
	if result.Success && result.Message != "" {
		fmt.Fprintln(out, result.Message)
	}
}

func errorPrefix(onError string, direction backends.Direction) string {
	if onError != "" {
		return onError
	}
	return "Error during " + direction.Verb()
}
