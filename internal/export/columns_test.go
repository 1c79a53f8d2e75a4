package export

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/datamermaid/covariates-cli/internal/model"
)

func TestCollectionBands(t *testing.T) {
	results := model.ExtractionResults{
		"se-1": {
			"sst":   {"band_1": {"mean": 1}},
			"bathy": {"elevation": {"mean": 2}, "slope": {"mean": 3}},
		},
		"se-2": {
			"bathy": {"aspect": {"mean": 4}},
		},
	}

	bands := CollectionBands(results)
	assert.Equal(t, []string{"band_1"}, bands["sst"])
	assert.Equal(t, []string{"aspect", "elevation", "slope"}, bands["bathy"], "keys are the union across events, sorted")
}

func TestCovariateHeaders(t *testing.T) {
	collections := []model.Collection{
		{ID: "sst", Title: "Sea Surface Temperature"},
		{ID: "unknown-col"},
	}
	bands := map[string][]string{"sst": {"band_1"}}

	headers := CovariateHeaders(collections, []string{"mean", "max"}, bands)
	assert.Equal(t, []string{
		"Sea_Surface_Temperature_band_1_mean",
		"Sea_Surface_Temperature_band_1_max",
		// No title falls back to the ID; no band info defaults to band_1.
		"unknown-col_band_1_mean",
		"unknown-col_band_1_max",
	}, headers)
}

func TestCovariateValues(t *testing.T) {
	collections := []model.Collection{{ID: "sst", Title: "SST"}}
	results := model.ExtractionResults{
		"se-1": {"sst": {"band_1": {"mean": 27.45, "max": math.NaN()}}},
	}
	bands := CollectionBands(results)

	values := CovariateValues("se-1", results, collections, []string{"mean", "max", "std"}, bands)
	assert.Equal(t, []string{"27.45", "", ""}, values, "NaN and absent stats render empty, never as a token")

	// An event with no results at all renders all-empty cells.
	values = CovariateValues("se-unknown", results, collections, []string{"mean", "max", "std"}, bands)
	assert.Equal(t, []string{"", "", ""}, values)
}

func TestSanitizeToken(t *testing.T) {
	assert.Equal(t, "Sea_Surface_Temperature", sanitizeToken("Sea Surface  Temperature"))
	assert.Equal(t, "depth_m", sanitizeToken("depth_m"))
}
