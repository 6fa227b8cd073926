// Package report renders canonical query results into exportable artifacts
// and schedules asynchronous exports into blob storage.
package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"surveycore/pkg/domain"
)

// Format identifies an export rendering.
type Format string

const (
	FormatCSV      Format = "csv"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

// AllFormats returns the supported formats in presentation order.
func AllFormats() []Format {
	return []Format{FormatCSV, FormatJSON, FormatMarkdown}
}

// Valid reports whether the format is supported.
func (f Format) Valid() bool {
	switch f {
	case FormatCSV, FormatJSON, FormatMarkdown:
		return true
	default:
		return false
	}
}

// Extension returns the artifact file extension.
func (f Format) Extension() string {
	switch f {
	case FormatCSV:
		return "csv"
	case FormatJSON:
		return "json"
	case FormatMarkdown:
		return "md"
	default:
		return "bin"
	}
}

// ContentType returns the artifact MIME type.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv"
	case FormatJSON:
		return "application/json"
	case FormatMarkdown:
		return "text/markdown"
	default:
		return "application/octet-stream"
	}
}

// RenderQuery renders one query's rows from the bundle in the given format.
func RenderQuery(query domain.Query, results domain.Results, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		return renderJSON(query, results)
	case FormatCSV:
		headers, rows, err := Table(query, results)
		if err != nil {
			return nil, err
		}
		return renderCSV(headers, rows)
	case FormatMarkdown:
		headers, rows, err := Table(query, results)
		if err != nil {
			return nil, err
		}
		return renderMarkdown(headers, rows), nil
	default:
		return nil, fmt.Errorf("unsupported export format %s", format)
	}
}

func renderJSON(query domain.Query, results domain.Results) ([]byte, error) {
	var payload any
	switch query {
	case domain.QueryVisits:
		payload = results.VisitCounts
	case domain.QueryReadings:
		payload = results.ReadingCounts
	case domain.QueryMaxima:
		payload = results.MaxReadings
	default:
		return nil, fmt.Errorf("unknown query %s", query)
	}
	out, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", query, err)
	}
	return append(out, '\n'), nil
}

// Table flattens one query's rows into headers plus string cells. The CSV and
// Markdown renderers build on it, as does plain tabular output.
func Table(query domain.Query, results domain.Results) ([]string, [][]string, error) {
	switch query {
	case domain.QueryVisits:
		rows := make([][]string, 0, len(results.VisitCounts))
		for _, r := range results.VisitCounts {
			rows = append(rows, []string{r.Site, strconv.Itoa(r.Visits)})
		}
		return []string{"site", "visits"}, rows, nil
	case domain.QueryReadings:
		rows := make([][]string, 0, len(results.ReadingCounts))
		for _, r := range results.ReadingCounts {
			rows = append(rows, []string{r.Site, string(r.Quant), strconv.Itoa(r.Readings)})
		}
		return []string{"site", "quant", "readings"}, rows, nil
	case domain.QueryMaxima:
		rows := make([][]string, 0, len(results.MaxReadings))
		for _, r := range results.MaxReadings {
			rows = append(rows, []string{
				r.Personal,
				r.Family,
				domain.FormatDate(r.Dated),
				string(r.Quant),
				formatValue(r.Max),
			})
		}
		return []string{"personal", "family", "dated", "quant", "max"}, rows, nil
	default:
		return nil, nil, fmt.Errorf("unknown query %s", query)
	}
}

func renderCSV(headers []string, rows [][]string) ([]byte, error) {
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if err := writer.Write(headers); err != nil {
		return nil, err
	}
	for _, row := range rows {
		if err := writer.Write(row); err != nil {
			return nil, err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func renderMarkdown(headers []string, rows [][]string) []byte {
	buf := &strings.Builder{}
	buf.WriteString("| ")
	buf.WriteString(strings.Join(headers, " | "))
	buf.WriteString(" |\n|")
	for range headers {
		buf.WriteString(" --- |")
	}
	buf.WriteString("\n")
	for _, row := range rows {
		buf.WriteString("| ")
		buf.WriteString(strings.Join(row, " | "))
		buf.WriteString(" |\n")
	}
	return []byte(buf.String())
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
