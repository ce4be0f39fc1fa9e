package main

import (
	"fmt"
	"os"

	"github.com/lydakis/shelld/internal/cli"
	"github.com/lydakis/shelld/internal/daemon"
)

func main() {
	// The spawned daemon re-enters this binary with the internal argv
	// "__daemon <session> [shell]" before any CLI parsing.
	if len(os.Args) > 2 && os.Args[1] == "__daemon" {
		shellOverride := ""
		if len(os.Args) > 3 {
			shellOverride = os.Args[3]
		}
		if err := daemon.Run(os.Args[2], shellOverride); err != nil {
			fmt.Fprintf(os.Stderr, "shelld daemon: %v\n", err)
			os.Exit(1)
		}
		return
	}

	os.Exit(cli.Run(os.Args[1:]))
}
