package export

import (
	"context"
	"sort"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/datamermaid/covariates-cli/internal/model"
	"github.com/datamermaid/covariates-cli/pkg/mermaid"
)

// ProtocolFetcher fetches one per-project protocol CSV export.
type ProtocolFetcher interface {
	ProtocolCSV(ctx context.Context, projectID, protocol string) (string, error)
}

// Fetch identifies one per-project protocol CSV to download.
type Fetch struct {
	ProjectID string
	Protocol  string
}

// ProtocolTable holds one protocol's rows merged across projects.
type ProtocolTable struct {
	Headers []string
	Rows    []map[string]string
}

// RequiredFetches returns the distinct (project, protocol) pairs to fetch:
// protocols with a positive sample-unit count on at least one selected
// event and a known export endpoint. Pairs are sorted for deterministic
// scheduling order.
func RequiredFetches(events []model.SampleEvent) []Fetch {
	byProject := make(map[string]map[string]bool)
	for _, se := range events {
		for protocol, info := range se.Protocols {
			if info.SampleUnitCount <= 0 || !mermaid.KnownProtocol(protocol) {
				continue
			}
			protocols, ok := byProject[se.ProjectID]
			if !ok {
				protocols = make(map[string]bool)
				byProject[se.ProjectID] = protocols
			}
			protocols[protocol] = true
		}
	}

	var fetches []Fetch
	for projectID, protocols := range byProject {
		for protocol := range protocols {
			fetches = append(fetches, Fetch{ProjectID: projectID, Protocol: protocol})
		}
	}
	sort.Slice(fetches, func(i, j int) bool {
		if fetches[i].ProjectID != fetches[j].ProjectID {
			return fetches[i].ProjectID < fetches[j].ProjectID
		}
		return fetches[i].Protocol < fetches[j].Protocol
	})
	return fetches
}

// FetchProtocolData downloads and parses the protocol CSVs under a bounded
// worker pool, merging rows by protocol across projects. Individual fetch
// failures are logged and skipped; zero successful fetches is an error.
func FetchProtocolData(
	ctx context.Context,
	fetcher ProtocolFetcher,
	fetches []Fetch,
	concurrency int,
	onProgress model.ProgressFunc,
) (map[string]*ProtocolTable, error) {
	if len(fetches) == 0 {
		return nil, eris.New("export: no protocol data available for selected sample events")
	}
	if concurrency <= 0 {
		concurrency = 5
	}

	var (
		mu        sync.Mutex
		tables    = make(map[string]*ProtocolTable)
		completed int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, f := range fetches {
		g.Go(func() error {
			text, err := fetcher.ProtocolCSV(gctx, f.ProjectID, f.Protocol)

			var headers []string
			var records []map[string]string
			if err == nil {
				var rows [][]string
				rows, err = ParseCSV(text)
				if err == nil {
					headers, records = RowsToRecords(rows)
				}
			}

			mu.Lock()
			defer mu.Unlock()
			completed++
			if onProgress != nil {
				onProgress(completed, len(fetches))
			}

			if err != nil {
				zap.L().Warn("export: protocol fetch failed",
					zap.String("project_id", f.ProjectID),
					zap.String("protocol", f.Protocol),
					zap.Error(err),
				)
				return nil // skip this fetch, keep the rest
			}

			table, ok := tables[f.Protocol]
			if !ok {
				table = &ProtocolTable{Headers: headers}
				tables[f.Protocol] = table
			}
			table.Rows = append(table.Rows, records...)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "export: fetch protocol data")
	}

	if len(tables) == 0 {
		return nil, eris.New("export: no protocol data could be fetched")
	}
	return tables, nil
}
