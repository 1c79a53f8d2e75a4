package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/datamermaid/covariates-cli/internal/catalog"
	"github.com/datamermaid/covariates-cli/internal/model"
)

var collectionsCmd = &cobra.Command{
	Use:   "collections",
	Short: "List catalog collections and their asset capabilities",
	RunE: func(cmd *cobra.Command, args []string) error {
		resolver := catalog.NewResolver(catalog.NewClient(cfg.Catalog.BaseURL))

		collections, err := resolver.CollectionsWithCapabilities(cmd.Context())
		if err != nil {
			return err
		}

		formatCollectionsList(cmd.OutOrStdout(), collections)
		return nil
	},
}

func formatCollectionsList(out io.Writer, collections []model.Collection) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tTITLE\tRASTER\tVECTOR\tCOLUMNS")
	_, _ = fmt.Fprintln(w, "--\t-----\t------\t------\t-------")

	for _, c := range collections {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			c.ID,
			truncate(c.DisplayTitle(), 40),
			yesNo(c.Capability.HasRaster),
			yesNo(c.Capability.HasVector),
			strings.Join(c.Capability.VectorColumns, ","),
		)
	}
	_ = w.Flush()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n-3] + "..."
	}
	return s
}

func init() {
	rootCmd.AddCommand(collectionsCmd)
}
