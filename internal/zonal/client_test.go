package zonal

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

func testPoint(t *testing.T, lon, lat float64) *geom.Point {
	t.Helper()
	p, err := geom.NewPoint(geom.XY).SetCoords(geom.Coord{lon, lat})
	require.NoError(t, err)
	return p
}

func TestFilterVectorStats(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"passes through", []string{"mean", "min"}, []string{"mean", "min"}},
		{"filters majority", []string{"mean", "majority", "min"}, []string{"mean", "min"}},
		{"filters minority and histogram", []string{"minority", "std", "histogram"}, []string{"std"}},
		{"all filtered substitutes defaults", []string{"majority"}, []string{"mean", "min", "max"}},
		{"empty substitutes defaults", nil, []string{"mean", "min", "max"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FilterVectorStats(tt.in))
		})
	}
}

func TestRasterStats(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/zonal-stats/raster", r.URL.Path)

		var req struct {
			AOI struct {
				Type        string    `json:"type"`
				Coordinates []float64 `json:"coordinates"`
				Radius      float64   `json:"radius"`
			} `json:"aoi"`
			Stats       []string `json:"stats"`
			URL         string   `json:"url"`
			ApproxStats bool     `json:"approx_stats"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Point", req.AOI.Type)
		assert.Equal(t, []float64{178.42, -18.15}, req.AOI.Coordinates)
		assert.InDelta(t, 1000, req.AOI.Radius, 0.001)
		assert.Equal(t, []string{"mean", "std"}, req.Stats)
		assert.Equal(t, "https://x/sst.tif", req.URL)
		assert.True(t, req.ApproxStats, "approximate stats are requested deliberately")

		_, _ = io.WriteString(w, `{"band_1": {"mean": 27.4, "std": 0.8}}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	result, err := c.RasterStats(context.Background(), testPoint(t, 178.42, -18.15), 1000, []string{"mean", "std"}, "https://x/sst.tif")
	require.NoError(t, err)
	assert.InDelta(t, 27.4, result["band_1"]["mean"], 0.001)
	assert.InDelta(t, 0.8, result["band_1"]["std"], 0.001)
}

func TestVectorStats_FiltersRasterOnly(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/zonal-stats/vector", r.URL.Path)

		var req struct {
			Stats   []string `json:"stats"`
			Columns []string `json:"columns"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"mean", "min"}, req.Stats, "majority filtered out")
		assert.Equal(t, []string{"depth_m"}, req.Columns)

		_, _ = io.WriteString(w, `{"depth_m": {"mean": 12.5, "min": 3.0}}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	result, err := c.VectorStats(context.Background(), testPoint(t, 178.42, -18.15), 1000,
		[]string{"mean", "majority", "min"}, "https://x/reefs.parquet", []string{"depth_m"})
	require.NoError(t, err)
	assert.InDelta(t, 12.5, result["depth_m"]["mean"], 0.001)
}

func TestVectorStats_AllFilteredUsesDefaults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Stats []string `json:"stats"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"mean", "min", "max"}, req.Stats)
		_, _ = io.WriteString(w, `{}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	result, err := c.VectorStats(context.Background(), testPoint(t, 0, 0), 500,
		[]string{"majority"}, "https://x/reefs.parquet", []string{"depth_m"})
	require.NoError(t, err)
	assert.Empty(t, result, "empty stats map is a valid response")
}

func TestRasterStats_ServiceFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = io.WriteString(w, `{"detail": "COG not reachable"}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.RasterStats(context.Background(), testPoint(t, 0, 0), 1000, []string{"mean"}, "https://x/gone.tif")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "422")
	assert.Contains(t, err.Error(), "COG not reachable")
}
