// Command remove-auth-tables drops the users and user_sessions tables, or recreates
// them with --down.
package main

import (
	"os"

	"github.com/Jokerealm/ai-slides/internal/cli"
	_ "github.com/Jokerealm/ai-slides/migrations/builtin"
)

func main() {
	cmd := cli.NewScriptCommand("remove-auth-tables", "remove_auth_tables", "Remove the authentication tables")
	os.Exit(cli.Execute(cmd, cli.StdIO(), os.Args[1:]))
}
