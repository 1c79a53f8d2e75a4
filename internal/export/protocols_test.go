package export

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datamermaid/covariates-cli/internal/model"
)

type fakeFetcher struct {
	calls atomic.Int64
	fetch func(projectID, protocol string) (string, error)
}

func (f *fakeFetcher) ProtocolCSV(_ context.Context, projectID, protocol string) (string, error) {
	f.calls.Add(1)
	return f.fetch(projectID, protocol)
}

func protocolEvent(projectID string, protocols map[string]int) model.SampleEvent {
	infos := make(map[string]model.ProtocolInfo, len(protocols))
	for k, n := range protocols {
		infos[k] = model.ProtocolInfo{SampleUnitCount: n}
	}
	return model.SampleEvent{ProjectID: projectID, Protocols: infos}
}

func TestRequiredFetches(t *testing.T) {
	events := []model.SampleEvent{
		protocolEvent("p-1", map[string]int{"beltfish": 2, "benthicpit": 0}),
		protocolEvent("p-1", map[string]int{"beltfish": 1, "bleachingqc": 3}),
		protocolEvent("p-2", map[string]int{"beltfish": 1, "notaprotocol": 5}),
	}

	fetches := RequiredFetches(events)
	assert.Equal(t, []Fetch{
		{ProjectID: "p-1", Protocol: "beltfish"},
		{ProjectID: "p-1", Protocol: "bleachingqc"},
		{ProjectID: "p-2", Protocol: "beltfish"},
	}, fetches, "deduplicated, zero counts and unknown protocols excluded, sorted")
}

func TestFetchProtocolData_MergesAcrossProjects(t *testing.T) {
	fetcher := &fakeFetcher{fetch: func(projectID, protocol string) (string, error) {
		return "sample_event_id,biomass\n" + projectID + "-se,42\n", nil
	}}

	fetches := []Fetch{
		{ProjectID: "p-1", Protocol: "beltfish"},
		{ProjectID: "p-2", Protocol: "beltfish"},
		{ProjectID: "p-1", Protocol: "bleachingqc"},
	}

	var progress [][2]int
	tables, err := FetchProtocolData(context.Background(), fetcher, fetches, 2, func(completed, total int) {
		progress = append(progress, [2]int{completed, total})
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), fetcher.calls.Load())

	require.Contains(t, tables, "beltfish")
	assert.Len(t, tables["beltfish"].Rows, 2, "rows merged across projects by protocol")
	assert.Equal(t, []string{"sample_event_id", "biomass"}, tables["beltfish"].Headers)
	assert.Len(t, tables["bleachingqc"].Rows, 1)

	require.Len(t, progress, 3)
	assert.Equal(t, [2]int{3, 3}, progress[2])
}

func TestFetchProtocolData_SkipsFailedFetches(t *testing.T) {
	fetcher := &fakeFetcher{fetch: func(projectID, _ string) (string, error) {
		if projectID == "p-2" {
			return "", eris.New("mermaid: returned status 500")
		}
		return "sample_event_id\nse-1\n", nil
	}}

	tables, err := FetchProtocolData(context.Background(), fetcher, []Fetch{
		{ProjectID: "p-1", Protocol: "beltfish"},
		{ProjectID: "p-2", Protocol: "beltfish"},
	}, 5, nil)
	require.NoError(t, err, "individual fetch failures are skipped")
	assert.Len(t, tables["beltfish"].Rows, 1)
}

func TestFetchProtocolData_AllFailed(t *testing.T) {
	fetcher := &fakeFetcher{fetch: func(_, _ string) (string, error) {
		return "", eris.New("mermaid: returned status 500")
	}}

	_, err := FetchProtocolData(context.Background(), fetcher, []Fetch{
		{ProjectID: "p-1", Protocol: "beltfish"},
	}, 5, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no protocol data could be fetched")
}

func TestFetchProtocolData_NoFetches(t *testing.T) {
	_, err := FetchProtocolData(context.Background(), &fakeFetcher{}, nil, 5, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no protocol data available")
}
