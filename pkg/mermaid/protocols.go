package mermaid

// ProtocolEndpoint maps a protocol key to its CSV export endpoint name and
// display name.
type ProtocolEndpoint struct {
	Endpoint    string
	DisplayName string
}

// ProtocolEndpoints is the fixed table of protocols with known per-project
// CSV export endpoints. Protocols outside this table cannot be exported.
var ProtocolEndpoints = map[string]ProtocolEndpoint{
	"beltfish":          {Endpoint: "beltfishes", DisplayName: "Belt Fish"},
	"benthiclit":        {Endpoint: "benthiclits", DisplayName: "Benthic LIT"},
	"benthicpit":        {Endpoint: "benthicpits", DisplayName: "Benthic PIT"},
	"benthicpqt":        {Endpoint: "benthicpqts", DisplayName: "Benthic PQT"},
	"bleachingqc":       {Endpoint: "bleachingqcs", DisplayName: "Bleaching"},
	"habitatcomplexity": {Endpoint: "habitatcomplexities", DisplayName: "Habitat Complexity"},
}

// KnownProtocol reports whether the protocol has an export endpoint.
func KnownProtocol(protocol string) bool {
	_, ok := ProtocolEndpoints[protocol]
	return ok
}
