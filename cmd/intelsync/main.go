package main

import (
	"fmt"
	"os"

	"github.com/syntrixbase/intelsync/internal/cli"
)

// Set with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cli.SetVersion(version)
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
