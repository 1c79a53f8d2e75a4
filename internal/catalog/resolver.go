package catalog

import (
	"context"
	"slices"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/datamermaid/covariates-cli/internal/model"
)

// Resolver matches catalog items to sample dates and classifies collection
// capabilities. Construct one per session; it carries no cross-run state.
type Resolver struct {
	client *Client
}

// NewResolver creates a resolver over the given catalog client.
func NewResolver(client *Client) *Resolver {
	return &Resolver{client: client}
}

// ResolveForDate finds the best-matching item for a sample date. Priority is
// the most recent item on or before the date; the fallback is the earliest
// item after it. A nil item with nil error means no imagery exists for the
// date at all, which is a legitimate outcome, not an error.
func (r *Resolver) ResolveForDate(ctx context.Context, collectionID, date string) (*Item, error) {
	item, err := r.client.Search(ctx, collectionID, "../"+date+"T23:59:59Z", "desc")
	if err != nil {
		return nil, err
	}
	if item != nil {
		return item, nil
	}

	return r.client.Search(ctx, collectionID, date+"T00:00:00Z/..", "asc")
}

// Capability probes one representative item of the collection and reports
// what asset types it offers. Probe failures (network, non-2xx, empty
// collection) classify as "no capability" rather than erroring: the worst
// consequence is a collection the user cannot select.
func (r *Resolver) Capability(ctx context.Context, collectionID string) model.Capability {
	item, err := r.client.SampleItem(ctx, collectionID)
	if err != nil {
		zap.L().Debug("catalog: capability probe failed",
			zap.String("collection", collectionID),
			zap.Error(err),
		)
		return model.Capability{}
	}
	if item == nil {
		return model.Capability{}
	}

	var capability model.Capability
	if _, ok := ExtractRaster(item); ok {
		capability.HasRaster = true
	}
	if ref, ok := ExtractVector(item); ok {
		capability.HasVector = true
		capability.VectorColumns = ref.Columns
	}
	return capability
}

// CollectionsWithCapabilities lists all collections with their capabilities
// probed in parallel, raster-capable collections first, then by title.
func (r *Resolver) CollectionsWithCapabilities(ctx context.Context) ([]model.Collection, error) {
	collections, err := r.client.Collections(ctx)
	if err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i := range collections {
		g.Go(func() error {
			collections[i].Capability = r.Capability(gctx, collections[i].ID)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	coll := collate.New(language.English, collate.Loose)
	slices.SortStableFunc(collections, func(a, b model.Collection) int {
		if a.Capability.HasRaster != b.Capability.HasRaster {
			if a.Capability.HasRaster {
				return -1
			}
			return 1
		}
		return coll.CompareString(a.DisplayTitle(), b.DisplayTitle())
	})

	return collections, nil
}
