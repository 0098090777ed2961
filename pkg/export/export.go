package export

import (
	"fmt"
	"strings"
	"time"
)

// Format identifies an output document format.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
	FormatPPTX Format = "pptx"

	// FormatZIP is only produced when a CSV report covers multiple tables.
	FormatZIP Format = "zip"
)

var contentTypes = map[Format]string{
	FormatXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	FormatCSV:  "text/csv",
	FormatPDF:  "application/pdf",
	FormatDOCX: "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	FormatPPTX: "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	FormatZIP:  "application/zip",
}

// ParseFormat normalizes a requested format token. An empty token
// defaults to xlsx.
func ParseFormat(s string) (Format, error) {
	if s == "" {
		return FormatXLSX, nil
	}
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case FormatXLSX, FormatCSV, FormatPDF, FormatDOCX, FormatPPTX:
		return f, nil
	}
	return "", fmt.Errorf("unsupported output format %q", s)
}

// ContentType returns the MIME type for a format.
func (f Format) ContentType() string {
	if ct, ok := contentTypes[f]; ok {
		return ct
	}
	return "application/octet-stream"
}

// Extension returns the file extension without the leading dot.
func (f Format) Extension() string { return string(f) }

// SupportsCharts reports whether the format can carry chart output.
// Plain CSV has nowhere to put an aggregate block.
func (f Format) SupportsCharts() bool { return f != FormatCSV }

// ColumnKind distinguishes schema-declared columns from discovered
// answer columns.
type ColumnKind int

const (
	ColumnStatic ColumnKind = iota
	ColumnAnswer
)

// Column is one rendered column of a table.
type Column struct {
	Path  string
	Label string
	Kind  ColumnKind
}

// Table is the format-independent tabular result for one entity.
type Table struct {
	Entity  string
	Name    string
	Columns []Column
	Rows    [][]interface{}
}

// ChartKind identifies a summary chart shape.
type ChartKind string

const (
	ChartBar  ChartKind = "bar"
	ChartPie  ChartKind = "pie"
	ChartLine ChartKind = "line"
)

// Category is one aggregated bucket of a chart.
type Category struct {
	Label string
	Count int
}

// ChartAggregate is a fully aggregated chart ready for rendering.
type ChartAggregate struct {
	Kind       ChartKind
	Title      string
	Column     string
	Categories []Category
}

// TableOptions tunes table styling where the format supports it.
type TableOptions struct {
	Style      string `json:"style,omitempty"`
	BandedRows bool   `json:"banded_rows,omitempty"`
	Autofilter bool   `json:"autofilter,omitempty"`
}

// Options carries the rendering knobs shared by every format.
type Options struct {
	Title            string
	GeneratedAt      time.Time
	Table            TableOptions
	IncludeDataTable bool
	MaxTableRows     int
}

// Artifact is one produced document.
type Artifact struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Renderer turns tables and their chart aggregates into one or more
// artifacts. Charts are keyed by entity name.
type Renderer interface {
	Render(tables []Table, charts map[string][]ChartAggregate, opts Options) ([]Artifact, error)
}

// FormatValue converts a cell value to its display string. Booleans
// render as Yes/No, timestamps as ISO 8601.
func FormatValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case bool:
		if val {
			return "Yes"
		}
		return "No"
	case time.Time:
		if val.Hour() == 0 && val.Minute() == 0 && val.Second() == 0 && val.Nanosecond() == 0 {
			return val.Format("2006-01-02")
		}
		return val.Format(time.RFC3339)
	case *time.Time:
		if val == nil {
			return ""
		}
		return FormatValue(*val)
	case string:
		return val
	case []byte:
		return string(val)
	case float64:
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%g", val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// Label derives a human heading from a dot-path, e.g.
// "role.is_super_user" becomes "Role Is Super User".
func Label(path string) string {
	cleaned := strings.NewReplacer(".", " ", "_", " ").Replace(path)
	words := strings.Fields(cleaned)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
