package model

// AssetKind distinguishes the two asset classes a collection can serve.
type AssetKind string

const (
	AssetKindRaster AssetKind = "raster"
	AssetKindVector AssetKind = "vector"
)

// Capability describes what asset types a collection offers. It is computed
// once per session by probing a single representative catalog item, so it is
// a best-effort classification: a later date match can still lack the asset.
type Capability struct {
	HasRaster     bool
	HasVector     bool
	VectorColumns []string
}

// Usable reports whether the collection offers any extractable asset.
func (c Capability) Usable() bool {
	return c.HasRaster || c.HasVector
}

// Collection is one named group of catalog items.
type Collection struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Capability  Capability
}

// DisplayTitle returns the title, falling back to the ID.
func (c Collection) DisplayTitle() string {
	if c.Title != "" {
		return c.Title
	}
	return c.ID
}

// AssetRef is a usable asset reference extracted from a matched catalog
// item: either a raster URL, or a vector URL plus its numeric columns.
type AssetRef struct {
	Kind    AssetKind
	URL     string
	Columns []string // vector only
}
