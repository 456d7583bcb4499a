package main

import (
	"fmt"
	"os"

	"github.com/elkhart-labs/actorcore/cmd/actorcored/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
