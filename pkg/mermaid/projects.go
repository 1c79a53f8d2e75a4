package mermaid

import (
	"slices"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/datamermaid/covariates-cli/internal/model"
)

// Project is a project extracted from the summary listing.
type Project struct {
	ID          string
	Name        string
	Tags        []model.Tag
	RecordCount int
}

// newCollator returns the collator used for user-facing sort order.
func newCollator() *collate.Collator {
	return collate.New(language.English, collate.Loose)
}

// ExtractProjects returns the projects with at least one sample event,
// sorted alphabetically by name.
func ExtractProjects(summaries []ProjectSummary) []Project {
	var projects []Project
	for _, s := range summaries {
		if len(s.Records) == 0 {
			continue
		}
		projects = append(projects, Project{
			ID:          s.ProjectID,
			Name:        s.ProjectName,
			Tags:        s.Tags,
			RecordCount: len(s.Records),
		})
	}

	coll := newCollator()
	slices.SortStableFunc(projects, func(a, b Project) int {
		return coll.CompareString(a.Name, b.Name)
	})
	return projects
}

// ExtractCountries returns the distinct country names across all records of
// projects with sample events, sorted.
func ExtractCountries(summaries []ProjectSummary) []string {
	seen := make(map[string]bool)
	var countries []string
	for _, s := range summaries {
		if len(s.Records) == 0 {
			continue
		}
		for _, rec := range s.Records {
			if rec.CountryName != "" && !seen[rec.CountryName] {
				seen[rec.CountryName] = true
				countries = append(countries, rec.CountryName)
			}
		}
	}

	coll := newCollator()
	slices.SortStableFunc(countries, coll.CompareString)
	return countries
}

// ExtractOrganizations returns the distinct organization tag names across
// projects with sample events, sorted.
func ExtractOrganizations(summaries []ProjectSummary) []string {
	seen := make(map[string]bool)
	var orgs []string
	for _, s := range summaries {
		if len(s.Records) == 0 {
			continue
		}
		for _, tag := range s.Tags {
			if tag.Name != "" && !seen[tag.Name] {
				seen[tag.Name] = true
				orgs = append(orgs, tag.Name)
			}
		}
	}

	coll := newCollator()
	slices.SortStableFunc(orgs, coll.CompareString)
	return orgs
}

// FlattenRecords flattens all sample events with their project ID and tags
// attached, for filtering without the project nesting.
func FlattenRecords(summaries []ProjectSummary) []model.SampleEvent {
	var events []model.SampleEvent
	for _, s := range summaries {
		for _, rec := range s.Records {
			rec.ProjectID = s.ProjectID
			rec.ProjectTags = s.Tags
			events = append(events, rec)
		}
	}
	return events
}

// EventFilter selects sample events by project, date range, country, and
// organization tag. Zero-valued fields match everything.
type EventFilter struct {
	ProjectIDs    []string
	Countries     []string
	Organizations []string
	StartDate     string // YYYY-MM-DD inclusive
	EndDate       string // YYYY-MM-DD inclusive
}

// Apply returns the matching events sorted by project name, site name, then
// sample date.
func (f EventFilter) Apply(events []model.SampleEvent) []model.SampleEvent {
	var matched []model.SampleEvent
	for _, se := range events {
		if len(f.ProjectIDs) > 0 && !slices.Contains(f.ProjectIDs, se.ProjectID) {
			continue
		}
		if f.StartDate != "" && se.SampleDate < f.StartDate {
			continue
		}
		if f.EndDate != "" && se.SampleDate > f.EndDate {
			continue
		}
		if len(f.Countries) > 0 && !slices.Contains(f.Countries, se.CountryName) {
			continue
		}
		if len(f.Organizations) > 0 && !matchesAnyTag(se.ProjectTags, f.Organizations) {
			continue
		}
		matched = append(matched, se)
	}

	coll := newCollator()
	slices.SortStableFunc(matched, func(a, b model.SampleEvent) int {
		if c := coll.CompareString(a.ProjectName, b.ProjectName); c != 0 {
			return c
		}
		if c := coll.CompareString(a.SiteName, b.SiteName); c != 0 {
			return c
		}
		return coll.CompareString(a.SampleDate, b.SampleDate)
	})
	return matched
}

func matchesAnyTag(tags []model.Tag, orgs []string) bool {
	for _, tag := range tags {
		if slices.Contains(orgs, tag.Name) {
			return true
		}
	}
	return false
}

// MemberProjects filters summaries down to projects the user is a member
// of. A nil user or a user with no project list passes everything through.
func MemberProjects(summaries []ProjectSummary, user *User) []ProjectSummary {
	if user == nil || len(user.Projects) == 0 {
		return summaries
	}
	member := make(map[string]bool, len(user.Projects))
	for _, p := range user.Projects {
		member[p.ID] = true
	}
	var out []ProjectSummary
	for _, s := range summaries {
		if member[s.ProjectID] {
			out = append(out, s)
		}
	}
	return out
}
