package catalog

import (
	"strings"

	"github.com/datamermaid/covariates-cli/internal/model"
)

// classifyRule matches one asset shape. Rules are checked in order; MIME
// markers are substring matches against the asset's media type, extensions
// are suffix matches against the href.
type classifyRule struct {
	Kind        model.AssetKind
	MIMEMarkers []string
	Extensions  []string
}

// classifyRules is the ordered classification table. The COG profile marker
// comes first so a cloud-optimized GeoTIFF is recognized before the generic
// TIFF rules.
var classifyRules = []classifyRule{
	{Kind: model.AssetKindRaster, MIMEMarkers: []string{"profile=cloud-optimized"}},
	{Kind: model.AssetKindRaster, MIMEMarkers: []string{"application=geotiff"}},
	{Kind: model.AssetKindRaster, MIMEMarkers: []string{"image/tiff"}},
	{Kind: model.AssetKindRaster, Extensions: []string{".tif", ".tiff"}},
	{Kind: model.AssetKindVector, MIMEMarkers: []string{"application/vnd.apache.parquet", "application/x-parquet"}},
	{Kind: model.AssetKindVector, Extensions: []string{".parquet"}},
}

// Well-known asset keys checked before scanning all assets, in priority
// order.
var (
	rasterAssetKeys = []string{"data", "cog", "visual", "image"}
	vectorAssetKeys = []string{"data", "geoparquet", "vector"}
)

// classifyAsset returns the asset kind, or "" when no rule matches.
func classifyAsset(a Asset) model.AssetKind {
	mime := strings.ToLower(a.Type)
	href := strings.ToLower(a.Href)
	for _, rule := range classifyRules {
		for _, marker := range rule.MIMEMarkers {
			if mime != "" && strings.Contains(mime, marker) {
				return rule.Kind
			}
		}
		for _, ext := range rule.Extensions {
			if strings.HasSuffix(href, ext) {
				return rule.Kind
			}
		}
	}
	return ""
}

// ExtractRaster finds a usable raster asset in the item. Well-known keys are
// checked first, then all assets are scanned.
func ExtractRaster(item *Item) (model.AssetRef, bool) {
	return extractKind(item, model.AssetKindRaster, rasterAssetKeys)
}

// ExtractVector finds a usable vector asset in the item, including its
// numeric column names.
func ExtractVector(item *Item) (model.AssetRef, bool) {
	ref, ok := extractKind(item, model.AssetKindVector, vectorAssetKeys)
	if !ok {
		return model.AssetRef{}, false
	}
	return ref, true
}

func extractKind(item *Item, kind model.AssetKind, wellKnown []string) (model.AssetRef, bool) {
	if item == nil {
		return model.AssetRef{}, false
	}

	for _, key := range wellKnown {
		if a, ok := item.Assets[key]; ok && classifyAsset(a) == kind && a.Href != "" {
			return assetRef(a, kind), true
		}
	}
	for _, a := range item.Assets {
		if classifyAsset(a) == kind && a.Href != "" {
			return assetRef(a, kind), true
		}
	}
	return model.AssetRef{}, false
}

func assetRef(a Asset, kind model.AssetKind) model.AssetRef {
	ref := model.AssetRef{Kind: kind, URL: a.Href}
	if kind == model.AssetKindVector {
		ref.Columns = vectorColumns(a)
	}
	return ref
}

// numericColumnTypes are the table-extension column types eligible for
// zonal statistics.
var numericColumnTypes = map[string]bool{
	"int8": true, "int16": true, "int32": true, "int64": true,
	"uint8": true, "uint16": true, "uint32": true, "uint64": true,
	"float": true, "float16": true, "float32": true, "float64": true,
	"double": true, "decimal": true, "number": true,
}

// vectorColumns reads column names from the table-schema extension field,
// filtered to numeric types, falling back to the plain columns field.
func vectorColumns(a Asset) []string {
	if len(a.TableColumns) > 0 {
		var cols []string
		for _, col := range a.TableColumns {
			if numericColumnTypes[strings.ToLower(col.Type)] {
				cols = append(cols, col.Name)
			}
		}
		return cols
	}
	return a.Columns
}
