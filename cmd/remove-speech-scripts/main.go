// Command remove-speech-scripts drops the speech_scripts table, or recreates it with --down.
package main

import (
	"os"

	"github.com/Jokerealm/ai-slides/internal/cli"
	_ "github.com/Jokerealm/ai-slides/migrations/builtin"
)

func main() {
	cmd := cli.NewScriptCommand("remove-speech-scripts", "remove_speech_scripts_table", "Remove the speech scripts table")
	os.Exit(cli.Execute(cmd, cli.StdIO(), os.Args[1:]))
}
