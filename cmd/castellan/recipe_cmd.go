package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"lukechampine.com/blake3"

	"github.com/castellan/extract/decompress"
	"github.com/castellan/extract/failure"
	"github.com/castellan/extract/plugin"
	"github.com/castellan/extract/recipe"
)

func recipeCommand() *cli.Command {
	return &cli.Command{
		Name:  "recipe",
		Usage: "build or apply patch recipes (C7)",
		Subcommands: []*cli.Command{
			{
				Name:      "build",
				Usage:     "build a patch recipe against a source archive",
				UsageText: "castellan recipe build --source <path> --out <recipe.json> [--compliance-dir <dir>]",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "source", Required: true},
					&cli.StringFlag{Name: "out", Required: true},
					&cli.StringFlag{Name: "compliance-dir"},
				},
				Action: runRecipeBuild,
			},
			{
				Name:      "apply",
				Usage:     "reconstruct outputs from a recipe against a pinned source",
				UsageText: "castellan recipe apply --recipe <recipe.json> --source <path> --output <dir>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "recipe", Required: true},
					&cli.StringFlag{Name: "source", Required: true},
					&cli.StringFlag{Name: "output", Required: true},
				},
				Action: runRecipeApply,
			},
		},
	}
}

func runRecipeBuild(c *cli.Context) error {
	complianceRegistry, err := loadCompliance(c.String("compliance-dir"))
	if err != nil {
		return cli.Exit(err.Error(), exitUserFacing)
	}

	registry := buildRegistry(complianceRegistry)

	header, err := readHeader(c.String("source"))
	if err != nil {
		return cli.Exit(err.Error(), exitUserFacing)
	}
	factory, err := registry.FindFactory(c.String("source"), header)
	if err != nil {
		return cli.Exit(err.Error(), exitUserFacing)
	}
	handler, err := factory.Create(c.Context, c.String("source"))
	if err != nil {
		return cli.Exit(err.Error(), exitSystem)
	}
	defer handler.Close()

	offsetReporter, ok := handler.(plugin.OffsetReporter)
	if !ok {
		return cli.Exit(fmt.Sprintf("%s's format does not expose fixed entry offsets; recipe build requires an OffsetReporter handler", factory.Name()), exitUserFacing)
	}

	info, err := os.Stat(c.String("source"))
	if err != nil {
		return cli.Exit(err.Error(), exitUserFacing)
	}

	builder := recipe.NewBuilder(handler.Provenance(), info.Size())

	entries, err := handler.ListEntries(c.Context)
	if err != nil {
		return cli.Exit(err.Error(), exitSystem)
	}

	skipped := 0
	for _, e := range entries {
		offset, compressedSize, ok := offsetReporter.EntryOffset(e.ID)
		if !ok {
			skipped++
			continue
		}

		compressed, algo, expectedSize, err := handler.ReadEntry(c.Context, e.ID)
		if err != nil {
			skipped++
			continue
		}

		decoded, _, err := decompress.Decompress(c.Context, compressed, expectedSize, algo, decompress.DefaultLimits())
		if err != nil {
			skipped++
			continue
		}
		h := blake3.New(32, nil)
		h.Write(decoded)
		outputHash := fmt.Sprintf("%x", h.Sum(nil))

		builder.AddAssetMetadata(e)
		builder.AddDelta(recipe.DeltaPatch{
			TargetFilename: e.LogicalPath,
			SourceOffset:   offset,
			SourceLength:   compressedSize,
			Operations: []recipe.Operation{{
				Kind:         recipe.OpDecompress,
				Algorithm:    string(algo),
				ExpectedSize: expectedSize,
			}},
			ExpectedOutputHash: outputHash,
			ExpectedOutputSize: expectedSize,
		})
	}

	doc, err := recipe.MarshalDocument(builder.Build(nil))
	if err != nil {
		return cli.Exit(err.Error(), exitSystem)
	}
	if err := os.WriteFile(c.String("out"), doc, 0o644); err != nil {
		return cli.Exit(err.Error(), exitSystem)
	}

	fmt.Fprintf(c.App.Writer, "wrote recipe with %d deltas (%d entries skipped: no fixed offset, unreadable, or not decodable) to %s\n",
		len(entries)-skipped, skipped, c.String("out"))
	return nil
}

func runRecipeApply(c *cli.Context) error {
	doc, err := os.ReadFile(c.String("recipe"))
	if err != nil {
		return cli.Exit(err.Error(), exitUserFacing)
	}
	r, err := recipe.UnmarshalDocument(doc)
	if err != nil {
		return cli.Exit(err.Error(), exitUserFacing)
	}

	result, err := recipe.Apply(c.Context, r, c.String("source"), c.String("output"))
	if err != nil {
		return cli.Exit(err.Error(), classifyExitCode(err))
	}

	for _, w := range result.Warnings {
		fmt.Fprintf(c.App.ErrWriter, "warning: %v\n", w)
	}
	fmt.Fprintf(c.App.Writer, "reconstructed %d file(s) (%d warnings)\n", len(result.Written), len(result.Warnings))
	return nil
}

func readHeader(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, failure.ErrFileNotFound
		}
		return nil, err
	}
	defer f.Close()

	header := make([]byte, plugin.HeaderPeekSize)
	n, err := f.Read(header)
	if err != nil && n == 0 {
		return nil, err
	}
	return header[:n], nil
}
