// Package main provides the castellan CLI entrypoint: the CLI
// collaborator this module describes by interface contract only.
//
// Exit codes:
//
//	0  success
//	1  user-facing error (FileNotFound, NoSuitablePlugin, extraction refused)
//	2  system error (I/O, memory cap)
//	3  aborted by operator
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

// version is stamped at build time via -ldflags; "dev" otherwise.
var version = "dev"

const (
	exitSuccess       = 0
	exitUserFacing    = 1
	exitSystem        = 2
	exitOperatorAbort = 3
)

func main() {
	app := &cli.App{
		Name:           "castellan",
		Usage:          "compliance-aware game-asset extraction",
		Version:        version,
		ExitErrHandler: exitErrHandler,
		Commands: []*cli.Command{
			extractCommand(),
			batchCommand(),
			recipeCommand(),
			auditCommand(),
			serveCommand(),
			versionCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		os.Exit(exitSystem)
	}
}

// exitErrHandler preserves exit codes set via cli.Exit(...) and otherwise
// falls back to exitSystem.
func exitErrHandler(_ *cli.Context, err error) {
	if err == nil {
		return
	}

	var exitCoder cli.ExitCoder
	if errors.As(err, &exitCoder) {
		code := exitCoder.ExitCode()
		msg := exitCoder.Error()
		if msg != "" && msg != fmt.Sprintf("exit status %d", code) {
			fmt.Fprintln(os.Stderr, msg)
		}
		os.Exit(code)
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(exitSystem)
}
