package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/datamermaid/covariates-cli/internal/model"
	"github.com/datamermaid/covariates-cli/pkg/mermaid"
)

var eventsFilter struct {
	projects      []string
	countries     []string
	organizations []string
	startDate     string
	endDate       string
	memberOnly    bool
}

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Fetch and filter sample events",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newMermaidClient()

		events, err := fetchFilteredEvents(cmd.Context(), client)
		if err != nil {
			return err
		}

		formatEventsList(cmd.OutOrStdout(), events)
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "\n%d sample events\n", len(events))
		return nil
	},
}

func newMermaidClient() mermaid.Client {
	return mermaid.NewClient(
		cfg.Mermaid.BaseURL,
		mermaid.StaticToken(cfg.Mermaid.Token),
		mermaid.WithPageSize(cfg.Mermaid.PageSize),
	)
}

// fetchFilteredEvents pulls every project summary page, flattens the
// records, and applies the shared event filter flags.
func fetchFilteredEvents(ctx context.Context, client mermaid.Client) ([]model.SampleEvent, error) {
	summaries, err := client.ProjectSummarySampleEvents(ctx, func(loaded, total int) {
		zap.L().Debug("mermaid: loading summaries", zap.Int("loaded", loaded), zap.Int("total", total))
	})
	if err != nil {
		return nil, err
	}

	if eventsFilter.memberOnly {
		user, err := client.Me(ctx)
		if err != nil {
			return nil, err
		}
		summaries = mermaid.MemberProjects(summaries, user)
	}

	filter := mermaid.EventFilter{
		ProjectIDs:    eventsFilter.projects,
		Countries:     eventsFilter.countries,
		Organizations: eventsFilter.organizations,
		StartDate:     eventsFilter.startDate,
		EndDate:       eventsFilter.endDate,
	}
	return filter.Apply(mermaid.FlattenRecords(summaries)), nil
}

func formatEventsList(out io.Writer, events []model.SampleEvent) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "SAMPLE_EVENT_ID\tPROJECT\tSITE\tDATE\tCOUNTRY\tPROTOCOLS")
	_, _ = fmt.Fprintln(w, "---------------\t-------\t----\t----\t-------\t---------")

	for _, se := range events {
		protocols := se.ActiveProtocols()
		sort.Strings(protocols)
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			se.SampleEventID,
			truncate(se.ProjectName, 30),
			truncate(se.SiteName, 25),
			se.SampleDate,
			se.CountryName,
			strings.Join(protocols, ","),
		)
	}
	_ = w.Flush()
}

func addEventFilterFlags(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&eventsFilter.projects, "project", nil, "filter by project ID (repeatable)")
	cmd.Flags().StringSliceVar(&eventsFilter.countries, "country", nil, "filter by country name (repeatable)")
	cmd.Flags().StringSliceVar(&eventsFilter.organizations, "organization", nil, "filter by organization tag (repeatable)")
	cmd.Flags().StringVar(&eventsFilter.startDate, "start-date", "", "earliest sample date (YYYY-MM-DD, inclusive)")
	cmd.Flags().StringVar(&eventsFilter.endDate, "end-date", "", "latest sample date (YYYY-MM-DD, inclusive)")
	cmd.Flags().BoolVar(&eventsFilter.memberOnly, "member-only", false, "restrict to projects the authenticated user belongs to")
}

func init() {
	addEventFilterFlags(eventsCmd)
	rootCmd.AddCommand(eventsCmd)
}
