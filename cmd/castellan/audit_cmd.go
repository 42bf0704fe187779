package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/castellan/extract/audit"
)

func auditCommand() *cli.Command {
	return &cli.Command{
		Name:  "audit",
		Usage: "inspect and verify the hash-chained audit log (C9)",
		Subcommands: []*cli.Command{
			{
				Name:      "verify",
				Usage:     "verify an audit log's hash chain against its sidecar",
				UsageText: "castellan audit verify --log <extraction-<job-id>.jsonl>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "log", Required: true},
				},
				Action: runAuditVerify,
			},
		},
	}
}

func runAuditVerify(c *cli.Context) error {
	if err := audit.Verify(c.String("log")); err != nil {
		return cli.Exit(fmt.Sprintf("audit log failed verification: %v", err), exitUserFacing)
	}
	fmt.Fprintln(c.App.Writer, "audit log verified: hash chain intact")
	return nil
}
