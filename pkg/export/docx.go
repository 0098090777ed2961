package export

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
)

// DocxRenderer writes a word-processor document with the same
// structural content as the paginated renderer, as flowing headings,
// tables and chart images. The package is assembled directly from its
// OOXML parts.
type DocxRenderer struct{}

// NewDocxRenderer creates a word-processor document renderer.
func NewDocxRenderer() *DocxRenderer { return &DocxRenderer{} }

// Render produces a single docx artifact.
func (r *DocxRenderer) Render(tables []Table, charts map[string][]ChartAggregate, opts Options) ([]Artifact, error) {
	var body strings.Builder
	var images [][]byte

	body.WriteString(docxParagraph(opts.Title, 36, true))
	body.WriteString(docxParagraph(
		fmt.Sprintf("Generated at %s", opts.GeneratedAt.Format("2006-01-02 15:04:05 UTC")), 18, false))

	for _, table := range tables {
		body.WriteString(docxParagraph(table.Name, 28, true))
		body.WriteString(docxTable(table))
		for _, agg := range charts[table.Entity] {
			png, err := RenderChartPNG(agg)
			if err != nil {
				return nil, fmt.Errorf("chart for %s: %w", table.Entity, err)
			}
			images = append(images, png)
			body.WriteString(docxImage(len(images)))
		}
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	parts := map[string]string{
		"[Content_Types].xml":          docxContentTypes,
		"_rels/.rels":                  docxPackageRels,
		"word/document.xml":            fmt.Sprintf(docxDocumentTmpl, body.String()),
		"word/_rels/document.xml.rels": docxDocumentRels(len(images)),
	}
	for name, content := range parts {
		if err := writeZipPart(zw, name, []byte(content)); err != nil {
			return nil, err
		}
	}
	for i, png := range images {
		if err := writeZipPart(zw, fmt.Sprintf("word/media/image%d.png", i+1), png); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("closing docx package: %w", err)
	}
	return []Artifact{{ContentType: FormatDOCX.ContentType(), Content: buf.Bytes()}}, nil
}

func writeZipPart(zw *zip.Writer, name string, content []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("creating part %s: %w", name, err)
	}
	if _, err := w.Write(content); err != nil {
		return fmt.Errorf("writing part %s: %w", name, err)
	}
	return nil
}

// xmlEscape escapes text for embedding in an OOXML part.
func xmlEscape(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}

// docxParagraph emits a paragraph with direct bold/size formatting;
// size is in half-points.
func docxParagraph(text string, size int, bold bool) string {
	var props strings.Builder
	if bold {
		props.WriteString("<w:b/>")
	}
	fmt.Fprintf(&props, `<w:sz w:val="%d"/>`, size)
	return fmt.Sprintf(
		`<w:p><w:r><w:rPr>%s</w:rPr><w:t xml:space="preserve">%s</w:t></w:r></w:p>`,
		props.String(), xmlEscape(text))
}

func docxTable(table Table) string {
	var b strings.Builder
	b.WriteString(`<w:tbl><w:tblPr><w:tblW w:w="5000" w:type="pct"/>` +
		`<w:tblBorders>` +
		`<w:top w:val="single" w:sz="4" w:color="999999"/>` +
		`<w:left w:val="single" w:sz="4" w:color="999999"/>` +
		`<w:bottom w:val="single" w:sz="4" w:color="999999"/>` +
		`<w:right w:val="single" w:sz="4" w:color="999999"/>` +
		`<w:insideH w:val="single" w:sz="4" w:color="999999"/>` +
		`<w:insideV w:val="single" w:sz="4" w:color="999999"/>` +
		`</w:tblBorders></w:tblPr>`)

	b.WriteString("<w:tr>")
	for _, col := range table.Columns {
		fmt.Fprintf(&b,
			`<w:tc><w:tcPr><w:shd w:val="clear" w:fill="4472C4"/></w:tcPr>`+
				`<w:p><w:r><w:rPr><w:b/><w:color w:val="FFFFFF"/></w:rPr>`+
				`<w:t xml:space="preserve">%s</w:t></w:r></w:p></w:tc>`,
			xmlEscape(col.Label))
	}
	b.WriteString("</w:tr>")

	for _, row := range table.Rows {
		b.WriteString("<w:tr>")
		for _, cell := range row {
			fmt.Fprintf(&b,
				`<w:tc><w:p><w:r><w:t xml:space="preserve">%s</w:t></w:r></w:p></w:tc>`,
				xmlEscape(FormatValue(cell)))
		}
		b.WriteString("</w:tr>")
	}
	b.WriteString("</w:tbl><w:p/>")
	return b.String()
}

// docxImage emits an inline drawing referencing the n-th media part.
// Extents are EMUs: 5.5 by 3.4 inches.
func docxImage(n int) string {
	const cx, cy = 5029200, 3108960
	return fmt.Sprintf(`<w:p><w:r><w:drawing>`+
		`<wp:inline distT="0" distB="0" distL="0" distR="0">`+
		`<wp:extent cx="%d" cy="%d"/>`+
		`<wp:docPr id="%d" name="Chart %d"/>`+
		`<a:graphic xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main">`+
		`<a:graphicData uri="http://schemas.openxmlformats.org/drawingml/2006/picture">`+
		`<pic:pic xmlns:pic="http://schemas.openxmlformats.org/drawingml/2006/picture">`+
		`<pic:nvPicPr><pic:cNvPr id="%d" name="Chart %d"/><pic:cNvPicPr/></pic:nvPicPr>`+
		`<pic:blipFill><a:blip r:embed="rIdImg%d"/><a:stretch><a:fillRect/></a:stretch></pic:blipFill>`+
		`<pic:spPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="%d" cy="%d"/></a:xfrm>`+
		`<a:prstGeom prst="rect"><a:avLst/></a:prstGeom></pic:spPr>`+
		`</pic:pic></a:graphicData></a:graphic></wp:inline></w:drawing></w:r></w:p>`,
		cx, cy, n, n, n, n, n, cx, cy)
}

func docxDocumentRels(imageCount int) string {
	var b strings.Builder
	b.WriteString(xml.Header)
	b.WriteString(`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`)
	for i := 1; i <= imageCount; i++ {
		fmt.Fprintf(&b,
			`<Relationship Id="rIdImg%d" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/image" Target="media/image%d.png"/>`,
			i, i)
	}
	b.WriteString(`</Relationships>`)
	return b.String()
}

const docxContentTypes = xml.Header +
	`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
	`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
	`<Default Extension="xml" ContentType="application/xml"/>` +
	`<Default Extension="png" ContentType="image/png"/>` +
	`<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>` +
	`</Types>`

const docxPackageRels = xml.Header +
	`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
	`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>` +
	`</Relationships>`

const docxDocumentTmpl = xml.Header +
	`<w:document` +
	` xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"` +
	` xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"` +
	` xmlns:wp="http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing">` +
	`<w:body>%s<w:sectPr><w:pgSz w:w="11906" w:h="16838"/></w:sectPr></w:body></w:document>`
