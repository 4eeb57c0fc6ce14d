package main

import (
	"os"

	"github.com/Jokerealm/ai-slides/internal/cli"
	_ "github.com/Jokerealm/ai-slides/migrations/builtin"
)

func main() {
	os.Exit(cli.Execute(cli.NewRootCommand(), cli.StdIO(), os.Args[1:]))
}
