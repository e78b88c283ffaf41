// Package main is the entry point for the book catalog.
//
// MAIN PACKAGE IN GO:
// Every Go program starts execution in the main() function of the "main" package.
// The main package should be kept minimal: it builds the cobra command tree
// and executes it. All actual logic lives in internal/ packages.
//
// WHY cmd/catalog/?
// The cmd/ directory is a Go convention for executable entry points.
// One binary carries every operational task as a subcommand:
//
//	catalog serve                           → run the HTTP API
//	catalog migrate up|down|version         → manage the schema
//	catalog deactivate-user --email x@y.z   → lock an account out
package main

import (
	"fmt"
	"os"
)

// Version information set at build time with -ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	cmd := NewRootCmd()
	cmd.Version = fmt.Sprintf("%s (commit: %s)", version, commit)

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
