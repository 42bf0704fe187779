package main

import (
	"fmt"
	"net/http"

	"github.com/urfave/cli/v2"

	"github.com/castellan/extract/controlplane"
	"github.com/castellan/extract/decompress"
	"github.com/castellan/extract/eventbus"
	"github.com/castellan/extract/extract"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:      "serve",
		Usage:     "run the HTTP+SSE control plane",
		UsageText: "castellan serve --addr :8080",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Value: ":8080", Usage: "listen address"},
			&cli.StringFlag{Name: "config", Usage: "path to a castellan.yaml config file"},
			&cli.StringFlag{Name: "compliance-dir", Usage: "directory of per-publisher compliance profile YAML files"},
			&cli.BoolFlag{Name: "override-compliance", Usage: "operator override for high-risk compliance profiles"},
		},
		Action: runServe,
	}
}

func runServe(c *cli.Context) error {
	cfg, err := loadConfigFlag(c)
	if err != nil {
		return cli.Exit(err.Error(), exitUserFacing)
	}

	complianceRegistry, err := loadCompliance(c.String("compliance-dir"))
	if err != nil {
		return cli.Exit(err.Error(), exitUserFacing)
	}

	bus := eventbus.New(eventbus.DefaultCapacity)
	x := extract.New(extract.Config{
		Registry:         buildRegistry(complianceRegistry),
		Bus:              bus,
		Limits:           decompress.DefaultLimits(),
		MemoryCapBytes:   cfg.MaxMemoryBytes(),
		OperatorOverride: c.Bool("override-compliance"),
	})

	srv := controlplane.NewServer(x, bus)

	fmt.Fprintf(c.App.Writer, "listening on %s\n", c.String("addr"))
	if err := http.ListenAndServe(c.String("addr"), srv.Router()); err != nil {
		return cli.Exit(err.Error(), exitSystem)
	}
	return nil
}
