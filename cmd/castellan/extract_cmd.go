package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/castellan/extract/audit"
	"github.com/castellan/extract/config"
	"github.com/castellan/extract/decompress"
	"github.com/castellan/extract/export"
	"github.com/castellan/extract/extract"
	"github.com/castellan/extract/log"
	"github.com/castellan/extract/types"
)

func extractCommand() *cli.Command {
	return &cli.Command{
		Name:      "extract",
		Usage:     "extract a single source archive",
		UsageText: "castellan extract --source <path> --output <dir>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "source", Required: true, Usage: "path to the source archive"},
			&cli.StringFlag{Name: "output", Required: true, Usage: "output directory for exported assets"},
			&cli.StringFlag{Name: "config", Usage: "path to a castellan.yaml config file"},
			&cli.StringFlag{Name: "compliance-dir", Usage: "directory of per-publisher compliance profile YAML files"},
			&cli.StringFlag{Name: "game-id", Usage: "game id used to resolve a compliance profile"},
			&cli.BoolFlag{Name: "override-compliance", Usage: "operator override for high-risk compliance profiles"},
		},
		Action: runExtract,
	}
}

func runExtract(c *cli.Context) error {
	cfg, err := loadConfigFlag(c)
	if err != nil {
		return cli.Exit(err.Error(), exitUserFacing)
	}

	complianceRegistry, err := loadCompliance(c.String("compliance-dir"))
	if err != nil {
		return cli.Exit(err.Error(), exitUserFacing)
	}

	logger := log.NewLogger(log.Context{JobID: uuid.NewString()})

	var auditLogger *audit.Logger
	if cfg.Enterprise.EnableAuditLogs {
		dir := cfg.Enterprise.AuditLogDir
		if dir == "" {
			dir = filepath.Join(c.String("output"), "audit")
		}
		auditLogger, err = audit.Open(dir, uuid.NewString())
		if err != nil {
			return cli.Exit(fmt.Sprintf("opening audit log: %v", err), exitSystem)
		}
		defer auditLogger.Close()
	}

	x := extract.New(extract.Config{
		Registry:         buildRegistry(complianceRegistry),
		Limits:           decompress.DefaultLimits(),
		MemoryCapBytes:   cfg.MaxMemoryBytes(),
		OperatorOverride: c.Bool("override-compliance"),
	})

	job := types.NewJob(uuid.NewString(), c.String("source"), c.String("output"))
	result, runErr := x.Run(c.Context, job)

	if auditLogger != nil {
		logAuditTrail(auditLogger, job, result)
	}

	if runErr != nil {
		logger.Error("extraction failed", map[string]any{"error": runErr.Error()})
		return cli.Exit(runErr.Error(), classifyExitCode(runErr))
	}

	for _, w := range result.Warnings {
		logger.Warn("entry skipped", map[string]any{"entry_id": string(w.EntryID), "error": w.Err.Error()})
	}

	backend := export.NewFSBackend(c.String("output"))
	exporter := export.New(backend, export.Options{CompressionEnabled: true})
	manifest, err := exporter.ExportAll(c.Context, job.ID, result.Resources)
	if err != nil {
		return cli.Exit(fmt.Sprintf("export failed: %v", err), exitSystem)
	}
	if err := exporter.WriteManifest(c.Context, "manifest.json", manifest, result.Provenance); err != nil {
		return cli.Exit(fmt.Sprintf("writing manifest: %v", err), exitSystem)
	}

	fmt.Fprintf(c.App.Writer, "extracted %d resources (%d warnings) to %s\n",
		len(result.Resources), len(result.Warnings), c.String("output"))
	return nil
}

func loadConfigFlag(c *cli.Context) (config.Config, error) {
	path := c.String("config")
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

// logAuditTrail replays the job's terminal outcome into the audit log.
// The extractor itself publishes events onto an in-process bus; the CLI
// is the one collaborator both running the job and owning the audit
// logger's lifetime, so it bridges the two explicitly rather than making
// every Extractor carry an audit dependency.
func logAuditTrail(logger *audit.Logger, job *types.Job, result *extract.Result) {
	msg := ""
	if job.State == types.JobFailed {
		msg = "extraction failed"
	}
	_ = logger.LogEvent(types.NewJobStateChange(job.ID, time.Now(), job.State, msg))
	if result != nil {
		_ = logger.LogEvent(types.NewAssetIndexingProgress(job.ID, time.Now(), len(result.Resources), len(result.Resources)+len(result.Warnings)))
	}
}
