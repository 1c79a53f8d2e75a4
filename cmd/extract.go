package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/datamermaid/covariates-cli/internal/catalog"
	"github.com/datamermaid/covariates-cli/internal/export"
	"github.com/datamermaid/covariates-cli/internal/extract"
	"github.com/datamermaid/covariates-cli/internal/model"
	"github.com/datamermaid/covariates-cli/internal/zonal"
)

// maxErrorsShown caps the inline failure listing; the rest is summarized
// as a count.
const maxErrorsShown = 5

var extractFlags struct {
	collections []string
	stats       []string
	concurrency int
	buffer      float64
	outPath     string
	xlsxPath    string
}

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Run the covariate extraction pipeline and export the results",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		client := newMermaidClient()

		events, err := fetchFilteredEvents(ctx, client)
		if err != nil {
			return err
		}
		if len(events) == 0 {
			return eris.New("no sample events match the given filters")
		}

		resolver := catalog.NewResolver(catalog.NewClient(cfg.Catalog.BaseURL))
		all, err := resolver.CollectionsWithCapabilities(ctx)
		if err != nil {
			return err
		}
		collections, err := selectCollections(all, extractFlags.collections)
		if err != nil {
			return err
		}

		stats := extractFlags.stats
		if len(stats) == 0 {
			stats = cfg.Extract.DefaultStats
		}

		concurrency := extractFlags.concurrency
		if concurrency == 0 {
			concurrency = cfg.Extract.Concurrency
		}
		buffer := extractFlags.buffer
		if buffer == 0 {
			buffer = float64(cfg.Zonal.BufferMeters)
		}

		executor := extract.New(
			resolver,
			zonal.NewClient(cfg.Zonal.BaseURL),
			extract.WithConcurrency(concurrency),
			extract.WithBufferRadius(buffer),
		)

		results, taskErrors, err := executor.Run(ctx, events, collections, stats,
			func(completed, total int) {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "\rextracting %d/%d", completed, total)
			})
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(cmd.ErrOrStderr())

		formatErrorSummary(cmd.OutOrStdout(), taskErrors)

		csvText := export.BuildCSV(events, results, collections, stats)
		if err := os.WriteFile(extractFlags.outPath, []byte(csvText), 0o644); err != nil {
			return eris.Wrapf(err, "write %s", extractFlags.outPath)
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d sample events)\n", extractFlags.outPath, len(events))

		if extractFlags.xlsxPath == "" {
			return nil
		}
		return writeWorkbook(cmd, client, events, results, collections, stats)
	},
}

// writeWorkbook downloads per-protocol observation CSVs and writes the
// multi-sheet workbook alongside the flat export.
func writeWorkbook(cmd *cobra.Command, fetcher export.ProtocolFetcher, events []model.SampleEvent, results model.ExtractionResults, collections []model.Collection, stats []string) error {
	fetches := export.RequiredFetches(events)
	tables, err := export.FetchProtocolData(cmd.Context(), fetcher, fetches, cfg.Extract.ProtocolConcurrency,
		func(completed, total int) {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "\rfetching protocol data %d/%d", completed, total)
		})
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(cmd.ErrOrStderr())

	selected := make(map[string]bool, len(events))
	for _, se := range events {
		selected[se.SampleEventID] = true
	}

	file, err := export.BuildWorkbook(tables, results, collections, stats, selected)
	if err != nil {
		return err
	}

	out, err := os.Create(extractFlags.xlsxPath)
	if err != nil {
		return eris.Wrapf(err, "create %s", extractFlags.xlsxPath)
	}
	defer func() { _ = out.Close() }()

	if err := export.WriteWorkbook(file, out); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d sheets)\n", extractFlags.xlsxPath, len(file.Sheets))
	return nil
}

// selectCollections resolves the requested collection IDs against the
// catalog listing. An empty request selects every usable collection.
func selectCollections(all []model.Collection, requested []string) ([]model.Collection, error) {
	if len(requested) == 0 {
		var usable []model.Collection
		for _, c := range all {
			if c.Capability.Usable() {
				usable = append(usable, c)
			}
		}
		if len(usable) == 0 {
			return nil, eris.New("no usable collections in catalog")
		}
		return usable, nil
	}

	byID := make(map[string]model.Collection, len(all))
	for _, c := range all {
		byID[c.ID] = c
	}

	selected := make([]model.Collection, 0, len(requested))
	for _, id := range requested {
		c, ok := byID[id]
		if !ok {
			return nil, eris.Errorf("unknown collection %q", id)
		}
		if !c.Capability.Usable() {
			zap.L().Warn("collection has no usable assets", zap.String("collection", id))
			continue
		}
		selected = append(selected, c)
	}
	if len(selected) == 0 {
		return nil, eris.New("none of the requested collections have usable assets")
	}
	return selected, nil
}

func formatErrorSummary(out io.Writer, taskErrors []model.ExtractionError) {
	if len(taskErrors) == 0 {
		return
	}

	_, _ = fmt.Fprintf(out, "%d tasks failed:\n", len(taskErrors))
	shown := taskErrors
	if len(shown) > maxErrorsShown {
		shown = shown[:maxErrorsShown]
	}
	for _, te := range shown {
		_, _ = fmt.Fprintf(out, "  %s / %s: %s\n", te.SiteName, te.CollectionName, te.Message)
	}
	if remainder := len(taskErrors) - len(shown); remainder > 0 {
		_, _ = fmt.Fprintf(out, "  ... and %d more\n", remainder)
	}
}

func init() {
	addEventFilterFlags(extractCmd)
	extractCmd.Flags().StringSliceVar(&extractFlags.collections, "collection", nil, "collection ID to extract from (repeatable; default: all usable)")
	extractCmd.Flags().StringSliceVar(&extractFlags.stats, "stat", nil, "statistic to compute (repeatable; default from config)")
	extractCmd.Flags().IntVar(&extractFlags.concurrency, "concurrency", 0, "max concurrent extraction tasks (default from config)")
	extractCmd.Flags().Float64Var(&extractFlags.buffer, "buffer", 0, "AOI buffer radius in meters (default from config)")
	extractCmd.Flags().StringVar(&extractFlags.outPath, "out", "covariates.csv", "CSV output path")
	extractCmd.Flags().StringVar(&extractFlags.xlsxPath, "xlsx", "", "also write a per-protocol XLSX workbook to this path")
	rootCmd.AddCommand(extractCmd)
}
