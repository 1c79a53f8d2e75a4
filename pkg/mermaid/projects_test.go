package mermaid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datamermaid/covariates-cli/internal/model"
)

func sampleSummaries() []ProjectSummary {
	return []ProjectSummary{
		{
			ProjectID:   "p-2",
			ProjectName: "Zanzibar Reefs",
			Tags:        []model.Tag{{Name: "WCS"}},
			Records: []model.SampleEvent{
				{SampleEventID: "se-3", SiteName: "South Wall", SampleDate: "2023-04-01", CountryName: "Tanzania"},
				{SampleEventID: "se-4", SiteName: "North Wall", SampleDate: "2023-03-15", CountryName: "Tanzania"},
			},
		},
		{
			ProjectID:   "p-1",
			ProjectName: "Fiji Survey",
			Tags:        []model.Tag{{Name: "WCS"}, {Name: "USP"}},
			Records: []model.SampleEvent{
				{SampleEventID: "se-1", SiteName: "Votua", SampleDate: "2022-06-10", CountryName: "Fiji"},
			},
		},
		{
			ProjectID:   "p-empty",
			ProjectName: "No Data Yet",
			Tags:        []model.Tag{{Name: "Orphan Org"}},
		},
	}
}

func TestExtractProjects(t *testing.T) {
	projects := ExtractProjects(sampleSummaries())
	require.Len(t, projects, 2, "projects without records are excluded")
	assert.Equal(t, "Fiji Survey", projects[0].Name)
	assert.Equal(t, "Zanzibar Reefs", projects[1].Name)
	assert.Equal(t, 2, projects[1].RecordCount)
}

func TestExtractCountries(t *testing.T) {
	countries := ExtractCountries(sampleSummaries())
	assert.Equal(t, []string{"Fiji", "Tanzania"}, countries)
}

func TestExtractOrganizations(t *testing.T) {
	orgs := ExtractOrganizations(sampleSummaries())
	// Orphan Org belongs to a project with no records.
	assert.Equal(t, []string{"USP", "WCS"}, orgs)
}

func TestFlattenRecords(t *testing.T) {
	events := FlattenRecords(sampleSummaries())
	require.Len(t, events, 3)
	for _, se := range events {
		assert.NotEmpty(t, se.ProjectID)
	}
	// Tags propagated from project.
	assert.Equal(t, "WCS", events[0].ProjectTags[0].Name)
}

func TestEventFilter(t *testing.T) {
	events := FlattenRecords(sampleSummaries())

	t.Run("by project", func(t *testing.T) {
		got := EventFilter{ProjectIDs: []string{"p-1"}}.Apply(events)
		require.Len(t, got, 1)
		assert.Equal(t, "se-1", got[0].SampleEventID)
	})

	t.Run("by date range", func(t *testing.T) {
		got := EventFilter{StartDate: "2023-01-01", EndDate: "2023-03-31"}.Apply(events)
		require.Len(t, got, 1)
		assert.Equal(t, "se-4", got[0].SampleEventID)
	})

	t.Run("by country", func(t *testing.T) {
		got := EventFilter{Countries: []string{"Tanzania"}}.Apply(events)
		assert.Len(t, got, 2)
	})

	t.Run("by organization", func(t *testing.T) {
		got := EventFilter{Organizations: []string{"USP"}}.Apply(events)
		require.Len(t, got, 1)
		assert.Equal(t, "p-1", got[0].ProjectID)
	})

	t.Run("sorted by project, site, date", func(t *testing.T) {
		got := EventFilter{}.Apply(events)
		require.Len(t, got, 3)
		assert.Equal(t, "se-1", got[0].SampleEventID)
		assert.Equal(t, "se-4", got[1].SampleEventID, "North Wall before South Wall")
		assert.Equal(t, "se-3", got[2].SampleEventID)
	})
}

func TestMemberProjects(t *testing.T) {
	summaries := sampleSummaries()

	got := MemberProjects(summaries, &User{Projects: []UserProject{{ID: "p-2"}}})
	require.Len(t, got, 1)
	assert.Equal(t, "p-2", got[0].ProjectID)

	assert.Equal(t, summaries, MemberProjects(summaries, nil))
	assert.Equal(t, summaries, MemberProjects(summaries, &User{}))
}
