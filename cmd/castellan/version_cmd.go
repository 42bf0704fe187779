package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/castellan/extract/types"
)

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "print castellan and core schema versions",
		Action: func(c *cli.Context) error {
			fmt.Fprintf(c.App.Writer, "castellan %s (core %s)\n", c.App.Version, types.CoreVersion)
			return nil
		},
	}
}
