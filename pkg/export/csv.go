package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// CSVRenderer writes one delimited-text file per table. Charts have
// no representation in this format and are ignored.
type CSVRenderer struct{}

// NewCSVRenderer creates a CSV renderer.
func NewCSVRenderer() *CSVRenderer { return &CSVRenderer{} }

// Render produces one artifact per table; the orchestrator packages
// multi-table output into an archive.
func (r *CSVRenderer) Render(tables []Table, _ map[string][]ChartAggregate, _ Options) ([]Artifact, error) {
	artifacts := make([]Artifact, 0, len(tables))
	for _, table := range tables {
		var buf bytes.Buffer
		w := csv.NewWriter(&buf)

		headers := make([]string, len(table.Columns))
		for i, col := range table.Columns {
			headers[i] = col.Label
		}
		if err := w.Write(headers); err != nil {
			return nil, fmt.Errorf("writing %s header: %w", table.Entity, err)
		}
		record := make([]string, len(table.Columns))
		for _, row := range table.Rows {
			for i, cell := range row {
				record[i] = FormatValue(cell)
			}
			if err := w.Write(record); err != nil {
				return nil, fmt.Errorf("writing %s row: %w", table.Entity, err)
			}
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return nil, fmt.Errorf("flushing %s: %w", table.Entity, err)
		}
		artifacts = append(artifacts, Artifact{
			Filename:    table.Entity + ".csv",
			ContentType: FormatCSV.ContentType(),
			Content:     buf.Bytes(),
		})
	}
	return artifacts, nil
}
