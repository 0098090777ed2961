package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// PDFRenderer writes a paginated document: title block, one table
// section per entity and chart images where aggregates exist.
type PDFRenderer struct{}

// NewPDFRenderer creates a paginated-document renderer.
func NewPDFRenderer() *PDFRenderer { return &PDFRenderer{} }

const (
	pdfPageWidth  = 190.0
	pdfRowHeight  = 7.0
	pdfPageBottom = 277.0
)

// Render produces a single PDF artifact.
func (r *PDFRenderer) Render(tables []Table, charts map[string][]ChartAggregate, opts Options) ([]Artifact, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(pdfPageWidth, 10, opts.Title, "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	pdf.CellFormat(pdfPageWidth, 6,
		fmt.Sprintf("Generated at %s", opts.GeneratedAt.Format("2006-01-02 15:04:05 UTC")),
		"", 1, "C", false, 0, "")
	pdf.Ln(4)

	imageCount := 0
	for _, table := range tables {
		if err := r.writeTable(pdf, table); err != nil {
			return nil, err
		}
		for _, agg := range charts[table.Entity] {
			imageCount++
			if err := r.writeChart(pdf, agg, imageCount); err != nil {
				return nil, fmt.Errorf("embedding chart for %s: %w", table.Entity, err)
			}
		}
		pdf.Ln(6)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("writing pdf: %w", err)
	}
	return []Artifact{{ContentType: FormatPDF.ContentType(), Content: buf.Bytes()}}, nil
}

func (r *PDFRenderer) writeTable(pdf *gofpdf.Fpdf, table Table) error {
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(pdfPageWidth, 8, table.Name, "", 1, "L", false, 0, "")

	if len(table.Columns) == 0 {
		return nil
	}
	colWidth := pdfPageWidth / float64(len(table.Columns))

	writeHeader := func() {
		pdf.SetFont("Arial", "B", 8)
		pdf.SetFillColor(68, 114, 196)
		pdf.SetTextColor(255, 255, 255)
		for _, col := range table.Columns {
			pdf.CellFormat(colWidth, pdfRowHeight, truncate(col.Label, colWidth), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 8)
		pdf.SetTextColor(0, 0, 0)
	}
	writeHeader()

	for _, row := range table.Rows {
		if pdf.GetY()+pdfRowHeight > pdfPageBottom {
			pdf.AddPage()
			writeHeader()
		}
		for _, cell := range row {
			pdf.CellFormat(colWidth, pdfRowHeight, truncate(FormatValue(cell), colWidth), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}
	if pdf.Err() {
		return fmt.Errorf("rendering table %s: %v", table.Entity, pdf.Error())
	}
	return nil
}

func (r *PDFRenderer) writeChart(pdf *gofpdf.Fpdf, agg ChartAggregate, n int) error {
	png, err := RenderChartPNG(agg)
	if err != nil {
		return err
	}
	const imgWidth, imgHeight = 160.0, 100.0
	if pdf.GetY()+imgHeight+10 > pdfPageBottom {
		pdf.AddPage()
	}
	pdf.Ln(4)
	name := fmt.Sprintf("chart-%d", n)
	imgOpts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader(name, imgOpts, bytes.NewReader(png))
	pdf.ImageOptions(name, (210-imgWidth)/2, pdf.GetY(), imgWidth, imgHeight, true, imgOpts, 0, "")
	if pdf.Err() {
		return fmt.Errorf("placing chart image: %v", pdf.Error())
	}
	return nil
}

// truncate keeps cell text within its column, approximating glyph
// width at 1.8mm for the 8pt font. Cuts land on rune boundaries so
// multi-byte text stays valid.
func truncate(s string, colWidth float64) string {
	max := int(colWidth/1.8) - 1
	if max < 4 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
