package export

import (
	"io"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/datamermaid/covariates-cli/internal/model"
)

// sheetNameMax is the spreadsheet sheet-name length limit.
const sheetNameMax = 31

// illegalSheetChars are characters spreadsheet sheet names cannot contain.
const illegalSheetChars = `\/*?[]:`

// BuildWorkbook materializes one sheet per protocol with matching data:
// protocol rows filtered to the selected sample events, with the covariate
// columns appended. Covariate columns carry the same per-collection
// band/column granularity as the CSV export. Protocols with no matching
// rows are omitted; a workbook with zero sheets is an error, not an empty
// file.
func BuildWorkbook(
	tables map[string]*ProtocolTable,
	results model.ExtractionResults,
	collections []model.Collection,
	stats []string,
	selectedEventIDs map[string]bool,
) (*xlsx.File, error) {
	bands := CollectionBands(results)
	covariateHeaders := CovariateHeaders(collections, stats, bands)

	protocols := make([]string, 0, len(tables))
	for protocol := range tables {
		protocols = append(protocols, protocol)
	}
	sort.Strings(protocols)

	file := xlsx.NewFile()
	for _, protocol := range protocols {
		table := tables[protocol]

		var matching []map[string]string
		for _, row := range table.Rows {
			if selectedEventIDs[row["sample_event_id"]] {
				matching = append(matching, row)
			}
		}
		if len(matching) == 0 {
			continue
		}

		sheet, err := file.AddSheet(SanitizeSheetName(protocol))
		if err != nil {
			return nil, eris.Wrapf(err, "export: add sheet %q", protocol)
		}

		headerRow := sheet.AddRow()
		for _, h := range table.Headers {
			headerRow.AddCell().Value = h
		}
		for _, h := range covariateHeaders {
			headerRow.AddCell().Value = h
		}

		for _, rec := range matching {
			row := sheet.AddRow()
			for _, h := range table.Headers {
				row.AddCell().Value = rec[h]
			}
			values := CovariateValues(rec["sample_event_id"], results, collections, stats, bands)
			for _, v := range values {
				row.AddCell().Value = v
			}
		}
	}

	if len(file.Sheets) == 0 {
		return nil, eris.New("export: no protocol data matches the selected sample events")
	}
	return file, nil
}

// WriteWorkbook writes the workbook bytes to w.
func WriteWorkbook(file *xlsx.File, w io.Writer) error {
	if err := file.Write(w); err != nil {
		return eris.Wrap(err, "export: write workbook")
	}
	return nil
}

// SanitizeSheetName replaces characters sheet names cannot contain and
// truncates to the maximum length.
func SanitizeSheetName(name string) string {
	sanitized := strings.Map(func(r rune) rune {
		if strings.ContainsRune(illegalSheetChars, r) {
			return '_'
		}
		return r
	}, name)
	if len(sanitized) > sheetNameMax {
		sanitized = sanitized[:sheetNameMax]
	}
	return sanitized
}
