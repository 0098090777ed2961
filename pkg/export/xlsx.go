package export

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Worksheet names are capped by the file format.
const maxSheetNameLen = 31

var sheetNamePattern = regexp.MustCompile(`[\[\]:*?/\\]`)

// XLSXRenderer writes one worksheet per table with a styled header
// row and native embedded charts beside the data.
type XLSXRenderer struct{}

// NewXLSXRenderer creates a spreadsheet renderer.
func NewXLSXRenderer() *XLSXRenderer { return &XLSXRenderer{} }

// Render produces a single workbook artifact.
func (r *XLSXRenderer) Render(tables []Table, charts map[string][]ChartAggregate, opts Options) ([]Artifact, error) {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"4472C4"}},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("creating header style: %w", err)
	}

	used := make(map[string]bool)
	for i, table := range tables {
		sheet := sheetName(table.Name, used)
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sheet); err != nil {
				return nil, fmt.Errorf("naming sheet for %s: %w", table.Entity, err)
			}
		} else if _, err := f.NewSheet(sheet); err != nil {
			return nil, fmt.Errorf("adding sheet for %s: %w", table.Entity, err)
		}
		if err := r.writeTable(f, sheet, table, headerStyle, opts); err != nil {
			return nil, err
		}
		if err := r.writeCharts(f, sheet, table, charts[table.Entity]); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("writing workbook: %w", err)
	}
	return []Artifact{{ContentType: FormatXLSX.ContentType(), Content: buf.Bytes()}}, nil
}

func (r *XLSXRenderer) writeTable(f *excelize.File, sheet string, table Table, headerStyle int, opts Options) error {
	headers := make([]interface{}, len(table.Columns))
	for i, col := range table.Columns {
		headers[i] = col.Label
	}
	if err := f.SetSheetRow(sheet, "A1", &headers); err != nil {
		return fmt.Errorf("writing %s header: %w", table.Entity, err)
	}
	for i, row := range table.Rows {
		cells := make([]interface{}, len(row))
		for j, cell := range row {
			cells[j] = FormatValue(cell)
		}
		axis, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheet, axis, &cells); err != nil {
			return fmt.Errorf("writing %s row %d: %w", table.Entity, i+1, err)
		}
	}

	if len(table.Columns) == 0 {
		return nil
	}
	lastCol, _ := excelize.ColumnNumberToName(len(table.Columns))
	if err := f.SetCellStyle(sheet, "A1", lastCol+"1", headerStyle); err != nil {
		return fmt.Errorf("styling %s header: %w", table.Entity, err)
	}
	if err := f.SetColWidth(sheet, "A", lastCol, 18); err != nil {
		return fmt.Errorf("sizing %s columns: %w", table.Entity, err)
	}

	if len(table.Rows) > 0 && (opts.Table.BandedRows || opts.Table.Autofilter || opts.Table.Style != "") {
		style := opts.Table.Style
		if style == "" {
			style = "TableStyleMedium9"
		}
		stripes := opts.Table.BandedRows
		if err := f.AddTable(sheet, &excelize.Table{
			Range:          fmt.Sprintf("A1:%s%d", lastCol, len(table.Rows)+1),
			Name:           tableName(table.Entity),
			StyleName:      style,
			ShowRowStripes: &stripes,
		}); err != nil {
			return fmt.Errorf("styling %s table: %w", table.Entity, err)
		}
	}
	return nil
}

// writeCharts lays aggregate data to the right of the table and
// anchors a native chart object next to it.
func (r *XLSXRenderer) writeCharts(f *excelize.File, sheet string, table Table, aggs []ChartAggregate) error {
	dataCol := len(table.Columns) + 2
	row := 1
	for _, agg := range aggs {
		if len(agg.Categories) == 0 {
			continue
		}
		start := row
		for _, cat := range agg.Categories {
			axis, _ := excelize.CoordinatesToCellName(dataCol, row)
			if err := f.SetSheetRow(sheet, axis, &[]interface{}{cat.Label, cat.Count}); err != nil {
				return fmt.Errorf("writing chart data for %s: %w", table.Entity, err)
			}
			row++
		}

		labelCol, _ := excelize.ColumnNumberToName(dataCol)
		valueCol, _ := excelize.ColumnNumberToName(dataCol + 1)
		series := excelize.ChartSeries{
			Name:       fmt.Sprintf("'%s'!$%s$%d", sheet, valueCol, start),
			Categories: fmt.Sprintf("'%s'!$%s$%d:$%s$%d", sheet, labelCol, start, labelCol, row-1),
			Values:     fmt.Sprintf("'%s'!$%s$%d:$%s$%d", sheet, valueCol, start, valueCol, row-1),
		}
		anchor, _ := excelize.CoordinatesToCellName(dataCol+3, start)
		if err := f.AddChart(sheet, anchor, &excelize.Chart{
			Type:   chartType(agg.Kind),
			Series: []excelize.ChartSeries{series},
			Title:  []excelize.RichTextRun{{Text: agg.Title}},
		}); err != nil {
			return fmt.Errorf("adding %s chart for %s: %w", agg.Kind, table.Entity, err)
		}
		row += 2
	}
	return nil
}

func chartType(kind ChartKind) excelize.ChartType {
	switch kind {
	case ChartPie:
		return excelize.Pie
	case ChartLine:
		return excelize.Line
	default:
		// Vertical columns are what "bar chart" means upstream.
		return excelize.Col
	}
}

// sheetName sanitizes and deduplicates a worksheet name within the
// format's 31-character limit. Length counts runes so multi-byte
// names never get cut mid-character.
func sheetName(name string, used map[string]bool) string {
	s := sheetNamePattern.ReplaceAllString(name, " ")
	s = strings.TrimSpace(s)
	if s == "" {
		s = "Sheet"
	}
	base := []rune(s)
	if len(base) > maxSheetNameLen {
		base = base[:maxSheetNameLen]
	}
	s = string(base)
	for n := 2; used[s]; n++ {
		suffix := fmt.Sprintf(" %d", n)
		if len(base)+len(suffix) > maxSheetNameLen {
			s = string(base[:maxSheetNameLen-len(suffix)]) + suffix
		} else {
			s = string(base) + suffix
		}
	}
	used[s] = true
	return s
}

var tableNamePattern = regexp.MustCompile(`[^A-Za-z0-9_]`)

func tableName(entity string) string {
	return "tbl_" + tableNamePattern.ReplaceAllString(entity, "_")
}
