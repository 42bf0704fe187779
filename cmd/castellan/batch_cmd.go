package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v2"

	"github.com/castellan/extract/decompress"
	"github.com/castellan/extract/export"
	"github.com/castellan/extract/extract"
	"github.com/castellan/extract/types"
)

func batchCommand() *cli.Command {
	return &cli.Command{
		Name:      "batch",
		Usage:     "extract every source archive in a directory",
		UsageText: "castellan batch --source-dir <dir> --output <dir>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "source-dir", Required: true, Usage: "directory of source archives"},
			&cli.StringFlag{Name: "output", Required: true, Usage: "output directory for exported assets"},
			&cli.StringFlag{Name: "config", Usage: "path to a castellan.yaml config file"},
			&cli.StringFlag{Name: "compliance-dir", Usage: "directory of per-publisher compliance profile YAML files"},
			&cli.BoolFlag{Name: "override-compliance", Usage: "operator override for high-risk compliance profiles"},
		},
		Action: runBatch,
	}
}

func runBatch(c *cli.Context) error {
	cfg, err := loadConfigFlag(c)
	if err != nil {
		return cli.Exit(err.Error(), exitUserFacing)
	}

	complianceRegistry, err := loadCompliance(c.String("compliance-dir"))
	if err != nil {
		return cli.Exit(err.Error(), exitUserFacing)
	}

	entries, err := os.ReadDir(c.String("source-dir"))
	if err != nil {
		return cli.Exit(err.Error(), exitUserFacing)
	}

	var jobs []*types.Job
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		src := filepath.Join(c.String("source-dir"), e.Name())
		out := filepath.Join(c.String("output"), e.Name())
		jobs = append(jobs, types.NewJob(uuid.NewString(), src, out))
	}
	if len(jobs) == 0 {
		return cli.Exit("no source files found in --source-dir", exitUserFacing)
	}

	x := extract.New(extract.Config{
		Registry:         buildRegistry(complianceRegistry),
		Limits:           decompress.DefaultLimits(),
		MemoryCapBytes:   cfg.MaxMemoryBytes(),
		OperatorOverride: c.Bool("override-compliance"),
	})

	bar := progressbar.NewOptions(len(jobs),
		progressbar.OptionSetDescription("extracting"),
		progressbar.OptionSetWriter(c.App.ErrWriter),
		progressbar.OptionShowCount(),
	)

	results := make([]extract.BatchResult, 0, len(jobs))
	for _, job := range jobs {
		res, runErr := x.Run(c.Context, job)
		results = append(results, extract.BatchResult{Job: job, Result: res, Err: runErr})

		if runErr == nil {
			if err := exportJob(c, job, res); err != nil {
				results[len(results)-1].Err = err
			}
		}
		bar.Add(1)
	}
	fmt.Fprintln(c.App.ErrWriter)

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Fprintf(c.App.ErrWriter, "%s: %v\n", r.Job.SourcePath, r.Err)
		}
	}

	fmt.Fprintf(c.App.Writer, "batch complete: %d/%d succeeded\n", len(jobs)-failed, len(jobs))
	if failed == len(jobs) {
		return cli.Exit("every job in the batch failed", exitSystem)
	}
	return nil
}

func exportJob(c *cli.Context, job *types.Job, result *extract.Result) error {
	backend := export.NewFSBackend(job.OutputDir)
	exporter := export.New(backend, export.Options{CompressionEnabled: true})
	manifest, err := exporter.ExportAll(c.Context, job.ID, result.Resources)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	return exporter.WriteManifest(c.Context, "manifest.json", manifest, result.Provenance)
}
