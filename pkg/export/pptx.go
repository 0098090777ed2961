package export

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
)

// PptxRenderer writes a slide deck: a title slide, then per entity
// one slide per chart aggregate and, when requested, a trailing data
// table slide capped at the configured row limit. The package is
// assembled directly from its OOXML parts.
type PptxRenderer struct{}

// NewPptxRenderer creates a slide-deck renderer.
func NewPptxRenderer() *PptxRenderer { return &PptxRenderer{} }

// Slide geometry in EMUs, 16:9.
const (
	slideCX = 12192000
	slideCY = 6858000
)

type slide struct {
	xml    string
	images [][]byte
}

// Render produces a single pptx artifact.
func (r *PptxRenderer) Render(tables []Table, charts map[string][]ChartAggregate, opts Options) ([]Artifact, error) {
	slides := []slide{titleSlide(opts)}
	for _, table := range tables {
		for _, agg := range charts[table.Entity] {
			png, err := RenderChartPNG(agg)
			if err != nil {
				return nil, fmt.Errorf("chart for %s: %w", table.Entity, err)
			}
			slides = append(slides, chartSlide(agg.Title, png))
		}
		if opts.IncludeDataTable {
			slides = append(slides, tableSlide(table, opts.MaxTableRows))
		}
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	if err := writePptxParts(zw, slides); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("closing pptx package: %w", err)
	}
	return []Artifact{{ContentType: FormatPPTX.ContentType(), Content: buf.Bytes()}}, nil
}

func writePptxParts(zw *zip.Writer, slides []slide) error {
	parts := map[string][]byte{
		"[Content_Types].xml":                          []byte(pptxContentTypes(len(slides))),
		"_rels/.rels":                                  []byte(pptxPackageRels),
		"ppt/presentation.xml":                         []byte(pptxPresentation(len(slides))),
		"ppt/_rels/presentation.xml.rels":              []byte(pptxPresentationRels(len(slides))),
		"ppt/slideMasters/slideMaster1.xml":            []byte(pptxSlideMaster),
		"ppt/slideMasters/_rels/slideMaster1.xml.rels": []byte(pptxSlideMasterRels),
		"ppt/slideLayouts/slideLayout1.xml":            []byte(pptxSlideLayout),
		"ppt/slideLayouts/_rels/slideLayout1.xml.rels": []byte(pptxSlideLayoutRels),
		"ppt/theme/theme1.xml":                         []byte(pptxTheme),
	}
	imageIndex := 0
	for i, s := range slides {
		n := i + 1
		parts[fmt.Sprintf("ppt/slides/slide%d.xml", n)] = []byte(s.xml)

		var rels strings.Builder
		rels.WriteString(xml.Header)
		rels.WriteString(`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`)
		rels.WriteString(`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideLayout" Target="../slideLayouts/slideLayout1.xml"/>`)
		for j, png := range s.images {
			imageIndex++
			parts[fmt.Sprintf("ppt/media/image%d.png", imageIndex)] = png
			fmt.Fprintf(&rels,
				`<Relationship Id="rIdImg%d" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/image" Target="../media/image%d.png"/>`,
				j+1, imageIndex)
		}
		rels.WriteString(`</Relationships>`)
		parts[fmt.Sprintf("ppt/slides/_rels/slide%d.xml.rels", n)] = []byte(rels.String())
	}
	for name, content := range parts {
		if err := writeZipPart(zw, name, content); err != nil {
			return err
		}
	}
	return nil
}

func titleSlide(opts Options) slide {
	title := pptxTextBox(2, "Title", 914400, 2200000, slideCX-2*914400, 1200000,
		opts.Title, 4400, true)
	subtitle := pptxTextBox(3, "Subtitle", 914400, 3500000, slideCX-2*914400, 700000,
		fmt.Sprintf("Generated at %s", opts.GeneratedAt.Format("2006-01-02 15:04:05 UTC")), 1800, false)
	return slide{xml: pptxSlide(title + subtitle)}
}

func chartSlide(title string, png []byte) slide {
	heading := pptxTextBox(2, "Heading", 457200, 274638, slideCX-2*457200, 800000,
		title, 2800, true)
	const picW, picH = 8229600, 5143500
	pic := fmt.Sprintf(`<p:pic>`+
		`<p:nvPicPr><p:cNvPr id="3" name="Chart"/><p:cNvPicPr/><p:nvPr/></p:nvPicPr>`+
		`<p:blipFill><a:blip r:embed="rIdImg1"/><a:stretch><a:fillRect/></a:stretch></p:blipFill>`+
		`<p:spPr><a:xfrm><a:off x="%d" y="%d"/><a:ext cx="%d" cy="%d"/></a:xfrm>`+
		`<a:prstGeom prst="rect"><a:avLst/></a:prstGeom></p:spPr></p:pic>`,
		(slideCX-picW)/2, 1200000, picW, picH)
	return slide{xml: pptxSlide(heading + pic), images: [][]byte{png}}
}

// tableSlide caps the table at maxRows rows; the excess is summarized
// by a count rather than silently dropped.
func tableSlide(table Table, maxRows int) slide {
	heading := pptxTextBox(2, "Heading", 457200, 274638, slideCX-2*457200, 800000,
		table.Name, 2800, true)

	rows := table.Rows
	overflow := 0
	if maxRows > 0 && len(rows) > maxRows {
		overflow = len(rows) - maxRows
		rows = rows[:maxRows]
	}

	cols := len(table.Columns)
	if cols == 0 {
		return slide{xml: pptxSlide(heading)}
	}
	const tblW, tblX, tblY = 11277600, 457200, 1200000
	colW := tblW / cols

	var b strings.Builder
	b.WriteString(`<p:graphicFrame>` +
		`<p:nvGraphicFramePr><p:cNvPr id="3" name="Table"/><p:cNvGraphicFramePr/><p:nvPr/></p:nvGraphicFramePr>`)
	fmt.Fprintf(&b, `<p:xfrm><a:off x="%d" y="%d"/><a:ext cx="%d" cy="%d"/></p:xfrm>`,
		tblX, tblY, tblW, 370840*(len(rows)+1))
	b.WriteString(`<a:graphic><a:graphicData uri="http://schemas.openxmlformats.org/drawingml/2006/table">` +
		`<a:tbl><a:tblPr firstRow="1" bandRow="1"/><a:tblGrid>`)
	for i := 0; i < cols; i++ {
		fmt.Fprintf(&b, `<a:gridCol w="%d"/>`, colW)
	}
	b.WriteString(`</a:tblGrid>`)

	b.WriteString(`<a:tr h="370840">`)
	for _, col := range table.Columns {
		pptxTableCell(&b, col.Label, true)
	}
	b.WriteString(`</a:tr>`)
	for _, row := range rows {
		b.WriteString(`<a:tr h="370840">`)
		for _, cell := range row {
			pptxTableCell(&b, FormatValue(cell), false)
		}
		b.WriteString(`</a:tr>`)
	}
	if overflow > 0 {
		b.WriteString(`<a:tr h="370840">`)
		pptxTableCell(&b, fmt.Sprintf("and %d more rows", overflow), false)
		for i := 1; i < cols; i++ {
			pptxTableCell(&b, "", false)
		}
		b.WriteString(`</a:tr>`)
	}
	b.WriteString(`</a:tbl></a:graphicData></a:graphic></p:graphicFrame>`)
	return slide{xml: pptxSlide(heading + b.String())}
}

func pptxTableCell(b *strings.Builder, text string, bold bool) {
	boldAttr := ""
	if bold {
		boldAttr = ` b="1"`
	}
	fmt.Fprintf(b,
		`<a:tc><a:txBody><a:bodyPr/><a:p><a:r><a:rPr lang="en-US" sz="1200"%s/>`+
			`<a:t>%s</a:t></a:r></a:p></a:txBody><a:tcPr/></a:tc>`,
		boldAttr, xmlEscape(text))
}

func pptxTextBox(id int, name string, x, y, cx, cy int, text string, size int, bold bool) string {
	boldAttr := ""
	if bold {
		boldAttr = ` b="1"`
	}
	return fmt.Sprintf(`<p:sp>`+
		`<p:nvSpPr><p:cNvPr id="%d" name="%s"/><p:cNvSpPr txBox="1"/><p:nvPr/></p:nvSpPr>`+
		`<p:spPr><a:xfrm><a:off x="%d" y="%d"/><a:ext cx="%d" cy="%d"/></a:xfrm>`+
		`<a:prstGeom prst="rect"><a:avLst/></a:prstGeom></p:spPr>`+
		`<p:txBody><a:bodyPr/><a:p><a:pPr algn="ctr"/><a:r><a:rPr lang="en-US" sz="%d"%s/>`+
		`<a:t>%s</a:t></a:r></a:p></p:txBody></p:sp>`,
		id, name, x, y, cx, cy, size, boldAttr, xmlEscape(text))
}

func pptxSlide(shapes string) string {
	return xml.Header + `<p:sld` + pptxNamespaces + `><p:cSld><p:spTree>` +
		pptxGroupHeader + shapes +
		`</p:spTree></p:cSld><p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr></p:sld>`
}

const pptxNamespaces = ` xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main"` +
	` xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"` +
	` xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"`

const pptxGroupHeader = `<p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr>` +
	`<p:grpSpPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="0" cy="0"/>` +
	`<a:chOff x="0" y="0"/><a:chExt cx="0" cy="0"/></a:xfrm></p:grpSpPr>`

func pptxContentTypes(slideCount int) string {
	var b strings.Builder
	b.WriteString(xml.Header)
	b.WriteString(`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">`)
	b.WriteString(`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>`)
	b.WriteString(`<Default Extension="xml" ContentType="application/xml"/>`)
	b.WriteString(`<Default Extension="png" ContentType="image/png"/>`)
	b.WriteString(`<Override PartName="/ppt/presentation.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.presentation.main+xml"/>`)
	b.WriteString(`<Override PartName="/ppt/slideMasters/slideMaster1.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slideMaster+xml"/>`)
	b.WriteString(`<Override PartName="/ppt/slideLayouts/slideLayout1.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slideLayout+xml"/>`)
	b.WriteString(`<Override PartName="/ppt/theme/theme1.xml" ContentType="application/vnd.openxmlformats-officedocument.theme+xml"/>`)
	for i := 1; i <= slideCount; i++ {
		fmt.Fprintf(&b,
			`<Override PartName="/ppt/slides/slide%d.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slide+xml"/>`, i)
	}
	b.WriteString(`</Types>`)
	return b.String()
}

const pptxPackageRels = xml.Header +
	`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
	`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="ppt/presentation.xml"/>` +
	`</Relationships>`

func pptxPresentation(slideCount int) string {
	var b strings.Builder
	b.WriteString(xml.Header)
	b.WriteString(`<p:presentation` + pptxNamespaces + `>`)
	b.WriteString(`<p:sldMasterIdLst><p:sldMasterId id="2147483648" r:id="rId1"/></p:sldMasterIdLst>`)
	b.WriteString(`<p:sldIdLst>`)
	for i := 1; i <= slideCount; i++ {
		fmt.Fprintf(&b, `<p:sldId id="%d" r:id="rId%d"/>`, 255+i, i+1)
	}
	b.WriteString(`</p:sldIdLst>`)
	fmt.Fprintf(&b, `<p:sldSz cx="%d" cy="%d"/><p:notesSz cx="6858000" cy="9144000"/>`, slideCX, slideCY)
	b.WriteString(`</p:presentation>`)
	return b.String()
}

func pptxPresentationRels(slideCount int) string {
	var b strings.Builder
	b.WriteString(xml.Header)
	b.WriteString(`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`)
	b.WriteString(`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideMaster" Target="slideMasters/slideMaster1.xml"/>`)
	for i := 1; i <= slideCount; i++ {
		fmt.Fprintf(&b,
			`<Relationship Id="rId%d" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slide" Target="slides/slide%d.xml"/>`,
			i+1, i)
	}
	b.WriteString(`</Relationships>`)
	return b.String()
}

const pptxSlideMaster = xml.Header + `<p:sldMaster` + pptxNamespaces + `>` +
	`<p:cSld><p:spTree>` + pptxGroupHeader + `</p:spTree></p:cSld>` +
	`<p:clrMap bg1="lt1" tx1="dk1" bg2="lt2" tx2="dk2" accent1="accent1" accent2="accent2" accent3="accent3" accent4="accent4" accent5="accent5" accent6="accent6" hlink="hlink" folHlink="folHlink"/>` +
	`<p:sldLayoutIdLst><p:sldLayoutId id="2147483649" r:id="rId1"/></p:sldLayoutIdLst>` +
	`</p:sldMaster>`

const pptxSlideMasterRels = xml.Header +
	`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
	`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideLayout" Target="../slideLayouts/slideLayout1.xml"/>` +
	`<Relationship Id="rId2" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/theme" Target="../theme/theme1.xml"/>` +
	`</Relationships>`

const pptxSlideLayout = xml.Header + `<p:sldLayout` + pptxNamespaces + `>` +
	`<p:cSld><p:spTree>` + pptxGroupHeader + `</p:spTree></p:cSld>` +
	`<p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr></p:sldLayout>`

const pptxSlideLayoutRels = xml.Header +
	`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
	`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideMaster" Target="../slideMasters/slideMaster1.xml"/>` +
	`</Relationships>`

const pptxTheme = xml.Header +
	`<a:theme xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" name="Office">` +
	`<a:themeElements>` +
	`<a:clrScheme name="Office">` +
	`<a:dk1><a:sysClr val="windowText" lastClr="000000"/></a:dk1>` +
	`<a:lt1><a:sysClr val="window" lastClr="FFFFFF"/></a:lt1>` +
	`<a:dk2><a:srgbClr val="44546A"/></a:dk2>` +
	`<a:lt2><a:srgbClr val="E7E6E6"/></a:lt2>` +
	`<a:accent1><a:srgbClr val="4472C4"/></a:accent1>` +
	`<a:accent2><a:srgbClr val="ED7D31"/></a:accent2>` +
	`<a:accent3><a:srgbClr val="A5A5A5"/></a:accent3>` +
	`<a:accent4><a:srgbClr val="FFC000"/></a:accent4>` +
	`<a:accent5><a:srgbClr val="5B9BD5"/></a:accent5>` +
	`<a:accent6><a:srgbClr val="70AD47"/></a:accent6>` +
	`<a:hlink><a:srgbClr val="0563C1"/></a:hlink>` +
	`<a:folHlink><a:srgbClr val="954F72"/></a:folHlink>` +
	`</a:clrScheme>` +
	`<a:fontScheme name="Office">` +
	`<a:majorFont><a:latin typeface="Calibri Light"/><a:ea typeface=""/><a:cs typeface=""/></a:majorFont>` +
	`<a:minorFont><a:latin typeface="Calibri"/><a:ea typeface=""/><a:cs typeface=""/></a:minorFont>` +
	`</a:fontScheme>` +
	`<a:fmtScheme name="Office">` +
	`<a:fillStyleLst>` +
	`<a:solidFill><a:schemeClr val="phClr"/></a:solidFill>` +
	`<a:solidFill><a:schemeClr val="phClr"/></a:solidFill>` +
	`<a:solidFill><a:schemeClr val="phClr"/></a:solidFill>` +
	`</a:fillStyleLst>` +
	`<a:lnStyleLst>` +
	`<a:ln w="6350"><a:solidFill><a:schemeClr val="phClr"/></a:solidFill></a:ln>` +
	`<a:ln w="12700"><a:solidFill><a:schemeClr val="phClr"/></a:solidFill></a:ln>` +
	`<a:ln w="19050"><a:solidFill><a:schemeClr val="phClr"/></a:solidFill></a:ln>` +
	`</a:lnStyleLst>` +
	`<a:effectStyleLst>` +
	`<a:effectStyle><a:effectLst/></a:effectStyle>` +
	`<a:effectStyle><a:effectLst/></a:effectStyle>` +
	`<a:effectStyle><a:effectLst/></a:effectStyle>` +
	`</a:effectStyleLst>` +
	`<a:bgFillStyleLst>` +
	`<a:solidFill><a:schemeClr val="phClr"/></a:solidFill>` +
	`<a:solidFill><a:schemeClr val="phClr"/></a:solidFill>` +
	`<a:solidFill><a:schemeClr val="phClr"/></a:solidFill>` +
	`</a:bgFillStyleLst>` +
	`</a:fmtScheme>` +
	`</a:themeElements></a:theme>`
