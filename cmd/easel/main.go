// Package main provides the entry point for the easel launcher.
// The process exit status mirrors the sketch subprocess: validation
// failures exit 2, everything else is the interpreter's own status.
package main

import (
	"errors"
	"os"

	"github.com/easel-graphics/easel/internal/cli"
	"github.com/easel-graphics/easel/internal/launch"
)

func main() {
	if err := cli.Execute(); err != nil {
		var exitErr *launch.ExitStatusError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(2)
	}
}
