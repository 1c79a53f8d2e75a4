// Package export derives tabular output schemas from extraction results and
// materializes them as CSV and multi-sheet XLSX workbooks.
package export

import (
	"regexp"
	"sort"
	"strconv"

	"github.com/datamermaid/covariates-cli/internal/model"
)

// defaultBandKey stands in when a collection's results carry no band or
// column metadata at all.
const defaultBandKey = "band_1"

var whitespaceRe = regexp.MustCompile(`\s+`)

// sanitizeToken collapses whitespace runs to underscores for column names.
func sanitizeToken(s string) string {
	return whitespaceRe.ReplaceAllString(s, "_")
}

// CollectionBands returns the band/column keys discovered per collection
// across all events in the results, sorted lexicographically for
// deterministic column order.
func CollectionBands(results model.ExtractionResults) map[string][]string {
	keysByCollection := make(map[string]map[string]bool)
	for _, byCollection := range results {
		for collectionID, stats := range byCollection {
			keys, ok := keysByCollection[collectionID]
			if !ok {
				keys = make(map[string]bool)
				keysByCollection[collectionID] = keys
			}
			for key := range stats {
				keys[key] = true
			}
		}
	}

	bands := make(map[string][]string, len(keysByCollection))
	for collectionID, keys := range keysByCollection {
		sorted := make([]string, 0, len(keys))
		for key := range keys {
			sorted = append(sorted, key)
		}
		sort.Strings(sorted)
		bands[collectionID] = sorted
	}
	return bands
}

// bandsFor returns the discovered keys for one collection, defaulting to
// the implicit single band.
func bandsFor(bands map[string][]string, collectionID string) []string {
	if keys := bands[collectionID]; len(keys) > 0 {
		return keys
	}
	return []string{defaultBandKey}
}

// CovariateHeaders derives the dynamic covariate column names: one column
// per collection, per discovered band/column key, per statistic, named
// <title>_<key>_<stat> with whitespace collapsed to underscores.
func CovariateHeaders(collections []model.Collection, stats []string, bands map[string][]string) []string {
	var headers []string
	for _, col := range collections {
		title := sanitizeToken(col.DisplayTitle())
		for _, key := range bandsFor(bands, col.ID) {
			cleanKey := sanitizeToken(key)
			for _, stat := range stats {
				headers = append(headers, title+"_"+cleanKey+"_"+stat)
			}
		}
	}
	return headers
}

// CovariateValues returns one value per covariate column for a sample
// event, in the same order as CovariateHeaders. Missing and NaN statistics
// render as empty strings, never as a literal "NaN" or "null".
func CovariateValues(sampleEventID string, results model.ExtractionResults, collections []model.Collection, stats []string, bands map[string][]string) []string {
	var values []string
	for _, col := range collections {
		statsByKey := results.Lookup(sampleEventID, col.ID)
		for _, key := range bandsFor(bands, col.ID) {
			keyStats := statsByKey[key]
			for _, stat := range stats {
				values = append(values, formatStat(keyStats, stat))
			}
		}
	}
	return values
}

func formatStat(keyStats map[string]float64, stat string) string {
	value, ok := keyStats[stat]
	if !ok || value != value { // NaN check
		return ""
	}
	return strconv.FormatFloat(value, 'g', -1, 64)
}
