package model

// StatResult maps a band or column key to a statistic-name→value map. A
// sparse or empty map is valid: the stats service can return no bands.
type StatResult map[string]map[string]float64

// ExtractionResults accumulates successful task outcomes, keyed by sample
// event ID, then collection ID. It grows monotonically during one run and is
// never mutated after the run completes.
type ExtractionResults map[string]map[string]StatResult

// Insert stores a task result, creating intermediate maps on first use.
func (r ExtractionResults) Insert(sampleEventID, collectionID string, stats StatResult) {
	byCollection, ok := r[sampleEventID]
	if !ok {
		byCollection = make(map[string]StatResult)
		r[sampleEventID] = byCollection
	}
	byCollection[collectionID] = stats
}

// Lookup returns the stats for one (event, collection) pair, or nil.
func (r ExtractionResults) Lookup(sampleEventID, collectionID string) StatResult {
	return r[sampleEventID][collectionID]
}

// ExtractionError records one failed task with enough context for display.
// Entries are appended in completion order, which under concurrency is not
// input order.
type ExtractionError struct {
	SampleEventID  string
	SiteName       string
	CollectionID   string
	CollectionName string
	Message        string
}

// ExtractionTask is one (sample event, collection) unit of work. Tasks are
// derived from the selection and regenerated on every run.
type ExtractionTask struct {
	Event          SampleEvent
	CollectionID   string
	CollectionName string
}

// ProgressFunc receives (completed, total) after every finished task.
type ProgressFunc func(completed, total int)
