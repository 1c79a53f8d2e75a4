package model

// ProtocolInfo summarizes one survey protocol's presence on a sample event.
type ProtocolInfo struct {
	SampleUnitCount int `json:"sample_unit_count"`
}

// Observer is a named surveyor attached to a sample event.
type Observer struct {
	Name string `json:"name"`
}

// Tag is an organization tag attached to a project.
type Tag struct {
	Name string `json:"name"`
}

// SampleEvent is one geolocated, dated observation record. Events are owned
// by the MERMAID API; the pipeline treats them as read-only input.
// Latitude/Longitude are pointers because the API returns null coordinates
// for sites the owner has obscured.
type SampleEvent struct {
	SampleEventID  string                  `json:"sample_event_id"`
	ProjectID      string                  `json:"project_id"`
	ProjectName    string                  `json:"project_name"`
	SiteID         string                  `json:"site_id"`
	SiteName       string                  `json:"site_name"`
	Latitude       *float64                `json:"latitude"`
	Longitude      *float64                `json:"longitude"`
	CountryID      string                  `json:"country_id"`
	CountryName    string                  `json:"country_name"`
	ReefType       string                  `json:"reef_type"`
	ReefZone       string                  `json:"reef_zone"`
	ReefExposure   string                  `json:"reef_exposure"`
	ManagementID   string                  `json:"management_id"`
	ManagementName string                  `json:"management_name"`
	SampleDate     string                  `json:"sample_date"` // YYYY-MM-DD, no time component
	Protocols      map[string]ProtocolInfo `json:"protocols"`
	Observers      []Observer              `json:"observers"`
	ProjectTags    []Tag                   `json:"project_tags"`
}

// HasCoordinates reports whether the event carries a usable point.
func (se SampleEvent) HasCoordinates() bool {
	return se.Latitude != nil && se.Longitude != nil
}

// ActiveProtocols returns the protocol keys with a positive sample-unit
// count, in map order (callers sort as needed).
func (se SampleEvent) ActiveProtocols() []string {
	var keys []string
	for k, info := range se.Protocols {
		if info.SampleUnitCount > 0 {
			keys = append(keys, k)
		}
	}
	return keys
}
