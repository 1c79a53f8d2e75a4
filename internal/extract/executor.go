// Package extract runs the covariate extraction pipeline: the cross-product
// of selected sample events and collections, executed under a bounded worker
// pool with per-(collection,date) memoized catalog resolution.
package extract

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/datamermaid/covariates-cli/internal/catalog"
	"github.com/datamermaid/covariates-cli/internal/model"
)

// Task failure messages surfaced to the user.
const (
	msgNoImagery     = "No imagery found for this date"
	msgNoRasterURL   = "No COG URL in item"
	msgNoVectorURL   = "No GeoParquet URL in item"
	msgNoColumns     = "No numeric columns in vector asset"
	msgNoCoordinates = "Site has no coordinates"
)

// Resolver matches catalog items to sample dates.
type Resolver interface {
	ResolveForDate(ctx context.Context, collectionID, date string) (*catalog.Item, error)
}

// StatsClient requests zonal statistics for an asset.
type StatsClient interface {
	RasterStats(ctx context.Context, point *geom.Point, radiusMeters float64, stats []string, assetURL string) (model.StatResult, error)
	VectorStats(ctx context.Context, point *geom.Point, radiusMeters float64, stats []string, assetURL string, columns []string) (model.StatResult, error)
}

// Executor runs extraction pipelines. It is stateless across runs: every
// run owns its own cache and accumulators.
type Executor struct {
	resolver    Resolver
	stats       StatsClient
	concurrency int
	radius      float64
}

// Option configures the executor.
type Option func(*Executor)

// WithConcurrency sets the worker cap (default 10).
func WithConcurrency(n int) Option {
	return func(e *Executor) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// WithBufferRadius sets the AOI buffer radius in meters (default 1000).
func WithBufferRadius(meters float64) Option {
	return func(e *Executor) {
		if meters > 0 {
			e.radius = meters
		}
	}
}

// New creates an executor.
func New(resolver Resolver, stats StatsClient, opts ...Option) *Executor {
	e := &Executor{
		resolver:    resolver,
		stats:       stats,
		concurrency: 10,
		radius:      1000,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes the full task set and returns the aggregated results plus
// the per-task error list. A task's failure never aborts the run: the run
// completes once every task has completed, and partial results stay valid.
func (e *Executor) Run(
	ctx context.Context,
	events []model.SampleEvent,
	collections []model.Collection,
	statNames []string,
	onProgress model.ProgressFunc,
) (model.ExtractionResults, []model.ExtractionError, error) {
	if len(events) == 0 {
		return nil, nil, eris.New("extract: no sample events selected")
	}
	if len(collections) == 0 {
		return nil, nil, eris.New("extract: no collections selected")
	}
	if len(statNames) == 0 {
		return nil, nil, eris.New("extract: no statistics selected")
	}

	tasks := buildTasks(events, collections)
	total := len(tasks)

	log := zap.L().With(
		zap.String("run_id", uuid.NewString()),
		zap.Int("events", len(events)),
		zap.Int("collections", len(collections)),
		zap.Int("tasks", total),
	)
	log.Info("extract: starting run")

	byID := make(map[string]model.Collection, len(collections))
	for _, col := range collections {
		byID[col.ID] = col
	}

	run := &runState{
		results: make(model.ExtractionResults),
		cache:   newResolutionCache(e.resolver),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	for _, task := range tasks {
		g.Go(func() error {
			stats, taskErr := e.processTask(gctx, run, task, byID[task.CollectionID], statNames)

			run.mu.Lock()
			if taskErr != nil {
				run.errors = append(run.errors, model.ExtractionError{
					SampleEventID:  task.Event.SampleEventID,
					SiteName:       task.Event.SiteName,
					CollectionID:   task.CollectionID,
					CollectionName: task.CollectionName,
					Message:        taskErr.Error(),
				})
			} else {
				run.results.Insert(task.Event.SampleEventID, task.CollectionID, stats)
			}
			run.completed++
			completed := run.completed
			run.mu.Unlock()

			if onProgress != nil {
				onProgress(completed, total)
			}
			return nil // individual failures never abort the run
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, eris.Wrap(err, "extract: run")
	}

	log.Info("extract: run complete",
		zap.Int("succeeded", total-len(run.errors)),
		zap.Int("failed", len(run.errors)),
	)

	return run.results, run.errors, nil
}

// runState is the mutable state owned by a single run.
type runState struct {
	mu        sync.Mutex
	results   model.ExtractionResults
	errors    []model.ExtractionError
	completed int
	cache     *resolutionCache
}

// buildTasks produces the eager cross-product task set: outer loop over
// events, inner loop over collections, both in caller-supplied order.
func buildTasks(events []model.SampleEvent, collections []model.Collection) []model.ExtractionTask {
	tasks := make([]model.ExtractionTask, 0, len(events)*len(collections))
	for _, se := range events {
		for _, col := range collections {
			tasks = append(tasks, model.ExtractionTask{
				Event:          se,
				CollectionID:   col.ID,
				CollectionName: col.DisplayTitle(),
			})
		}
	}
	return tasks
}

// processTask resolves the asset for one task and requests its statistics.
// Every returned error becomes one ExtractionError entry.
func (e *Executor) processTask(
	ctx context.Context,
	run *runState,
	task model.ExtractionTask,
	collection model.Collection,
	statNames []string,
) (model.StatResult, error) {
	se := task.Event
	if !se.HasCoordinates() {
		return nil, eris.New(msgNoCoordinates)
	}

	item, err := run.cache.resolve(ctx, task.CollectionID, se.SampleDate)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, eris.New(msgNoImagery)
	}

	point, err := geom.NewPoint(geom.XY).SetCoords(geom.Coord{*se.Longitude, *se.Latitude})
	if err != nil {
		return nil, eris.Wrap(err, "build point")
	}

	capability := collection.Capability
	switch {
	case capability.HasRaster || !capability.HasVector:
		ref, ok := catalog.ExtractRaster(item)
		if !ok {
			return nil, eris.New(msgNoRasterURL)
		}
		return e.stats.RasterStats(ctx, point, e.radius, statNames, ref.URL)

	default:
		ref, ok := catalog.ExtractVector(item)
		if !ok {
			return nil, eris.New(msgNoVectorURL)
		}
		columns := ref.Columns
		if len(columns) == 0 {
			columns = capability.VectorColumns
		}
		if len(columns) == 0 {
			return nil, eris.New(msgNoColumns)
		}
		return e.stats.VectorStats(ctx, point, e.radius, statNames, ref.URL, columns)
	}
}
