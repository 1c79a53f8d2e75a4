package export

import (
	"encoding/csv"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/datamermaid/covariates-cli/internal/model"
)

// seFields are the fixed identity/metadata columns, in output order.
var seFields = []string{
	"sample_event_id",
	"project_id",
	"project_name",
	"site_id",
	"site_name",
	"latitude",
	"longitude",
	"country_id",
	"country_name",
	"reef_type",
	"reef_zone",
	"reef_exposure",
	"management_id",
	"management_name",
	"sample_date",
}

// computedFields are the flattened list columns.
var computedFields = []string{"protocols", "observers", "organizations"}

// BuildCSV renders the summary CSV: a header row followed by one row per
// selected sample event in caller-supplied order. Rows are LF-separated.
func BuildCSV(events []model.SampleEvent, results model.ExtractionResults, collections []model.Collection, stats []string) string {
	bands := CollectionBands(results)

	headers := make([]string, 0, len(seFields)+len(computedFields))
	headers = append(headers, seFields...)
	headers = append(headers, computedFields...)
	headers = append(headers, CovariateHeaders(collections, stats, bands)...)

	var b strings.Builder
	writeCSVRow(&b, headers)

	for _, se := range events {
		row := make([]string, 0, len(headers))
		row = append(row, identityValues(se)...)
		row = append(row, protocolsList(se), observersList(se), tagsList(se))
		row = append(row, CovariateValues(se.SampleEventID, results, collections, stats, bands)...)
		writeCSVRow(&b, row)
	}

	return b.String()
}

func identityValues(se model.SampleEvent) []string {
	return []string{
		se.SampleEventID,
		se.ProjectID,
		se.ProjectName,
		se.SiteID,
		se.SiteName,
		formatCoord(se.Latitude),
		formatCoord(se.Longitude),
		se.CountryID,
		se.CountryName,
		se.ReefType,
		se.ReefZone,
		se.ReefExposure,
		se.ManagementID,
		se.ManagementName,
		se.SampleDate,
	}
}

func formatCoord(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'g', -1, 64)
}

// protocolsList flattens the protocols with a positive sample-unit count to
// a comma-joined string, sorted for stable output.
func protocolsList(se model.SampleEvent) string {
	keys := se.ActiveProtocols()
	sort.Strings(keys)
	return strings.Join(keys, ", ")
}

func observersList(se model.SampleEvent) string {
	names := make([]string, len(se.Observers))
	for i, o := range se.Observers {
		names[i] = o.Name
	}
	return strings.Join(names, ", ")
}

func tagsList(se model.SampleEvent) string {
	names := make([]string, len(se.ProjectTags))
	for i, t := range se.ProjectTags {
		names[i] = t.Name
	}
	return strings.Join(names, ", ")
}

// writeCSVRow appends one LF-terminated row, escaping each field.
func writeCSVRow(b *strings.Builder, fields []string) {
	for i, field := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(escapeField(field))
	}
	b.WriteByte('\n')
}

// escapeField quotes a field if and only if it contains a comma, a quote,
// or a line terminator, doubling internal quotes.
func escapeField(s string) string {
	if !strings.ContainsAny(s, ",\"\n\r") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// ParseCSV parses CSV text into rows of fields. It is the paired parser for
// both generated summaries and protocol CSV exports; rows that are entirely
// empty are dropped.
func ParseCSV(text string) ([][]string, error) {
	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1 // allow variable fields
	r.LazyQuotes = true

	var rows [][]string
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "export: parse csv")
		}
		if allEmpty(record) {
			continue
		}
		rows = append(rows, record)
	}
	return rows, nil
}

func allEmpty(record []string) bool {
	for _, field := range record {
		if field != "" {
			return false
		}
	}
	return true
}

// RowsToRecords converts parsed rows to header-keyed records using the
// first row as the header.
func RowsToRecords(rows [][]string) (headers []string, records []map[string]string) {
	if len(rows) == 0 {
		return nil, nil
	}
	headers = rows[0]
	for _, row := range rows[1:] {
		rec := make(map[string]string, len(headers))
		for i, h := range headers {
			if i < len(row) {
				rec[h] = row[i]
			} else {
				rec[h] = ""
			}
		}
		records = append(records, rec)
	}
	return headers, records
}
