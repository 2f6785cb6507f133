package docx

import (
	"bytes"
	"fmt"
	"image"
	_ "image/png"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// EMUPerInch is the number of English Metric Units in an inch.
const EMUPerInch = 914400

const hyperlinkColor = "0563C1"

// Paragraph is one w:p element of the document body.
type Paragraph struct {
	doc *Document
	el  *etree.Element
}

// Text concatenates the text of every run, including runs inside hyperlinks.
func (p *Paragraph) Text() string {
	var sb strings.Builder
	for _, t := range p.el.FindElements(".//w:t") {
		sb.WriteString(t.Text())
	}
	return sb.String()
}

// Clear removes all content and keeps paragraph properties.
func (p *Paragraph) Clear() {
	for _, c := range p.el.ChildElements() {
		if c.Space == "w" && c.Tag == "pPr" {
			continue
		}
		p.el.RemoveChild(c)
	}
}

// ReplaceText replaces the whole paragraph with a single run of text at the
// given font size in points.
func (p *Paragraph) ReplaceText(text string, sizePt float64) {
	p.Clear()
	r := p.newRun()
	halfPts := strconv.Itoa(int(sizePt * 2))
	rPr := r.CreateElement("w:rPr")
	rPr.CreateElement("w:sz").CreateAttr("w:val", halfPts)
	rPr.CreateElement("w:szCs").CreateAttr("w:val", halfPts)
	addText(r, text)
}

// InsertText appends a run. Newlines become line breaks.
func (p *Paragraph) InsertText(text string, bold bool) {
	r := p.newRun()
	if bold {
		r.CreateElement("w:rPr").CreateElement("w:b")
	}
	addText(r, text)
}

// InsertBreak appends a line break.
func (p *Paragraph) InsertBreak() {
	p.newRun().CreateElement("w:br")
}

// InsertHyperlink appends a clickable run pointing at url.
func (p *Paragraph) InsertHyperlink(text, url string) {
	id := p.doc.addRelationship(relTypeHyperlink, url, true)

	h := p.el.CreateElement("w:hyperlink")
	h.CreateAttr("r:id", id)
	h.CreateAttr("w:history", "1")

	r := h.CreateElement("w:r")
	rPr := r.CreateElement("w:rPr")
	rPr.CreateElement("w:color").CreateAttr("w:val", hyperlinkColor)
	rPr.CreateElement("w:u").CreateAttr("w:val", "single")
	addText(r, text)
}

// InsertImage appends a PNG as an inline picture widthEMU wide. Height keeps
// the image's aspect ratio.
func (p *Paragraph) InsertImage(png []byte, widthEMU int64) error {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(png))
	if err != nil {
		return fmt.Errorf("decode image: %w", err)
	}
	if format != "png" {
		return fmt.Errorf("unsupported image format %q", format)
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return fmt.Errorf("empty image")
	}
	heightEMU := widthEMU * int64(cfg.Height) / int64(cfg.Width)

	relID, name := p.doc.addMedia("png", "image/png", png)
	docPr := p.doc.nextDocPr
	p.doc.nextDocPr++

	frag := etree.NewDocument()
	if err := frag.ReadFromString(fmt.Sprintf(drawingTemplate,
		nsW, widthEMU, heightEMU, docPr, docPr, name, relID, widthEMU, heightEMU)); err != nil {
		return fmt.Errorf("build drawing: %w", err)
	}
	run := frag.Root()
	run.RemoveAttr("xmlns:w")
	p.el.AddChild(run)
	return nil
}

func (p *Paragraph) newRun() *etree.Element {
	return p.el.CreateElement("w:r")
}

func addText(r *etree.Element, text string) {
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			r.CreateElement("w:br")
		}
		if line == "" {
			continue
		}
		t := r.CreateElement("w:t")
		t.CreateAttr("xml:space", "preserve")
		t.SetText(line)
	}
}

const drawingTemplate = `<w:r xmlns:w="%s"><w:drawing>` +
	`<wp:inline distT="0" distB="0" distL="0" distR="0" xmlns:wp="http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing">` +
	`<wp:extent cx="%d" cy="%d"/>` +
	`<wp:docPr id="%d" name="Picture %d"/>` +
	`<wp:cNvGraphicFramePr><a:graphicFrameLocks xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" noChangeAspect="1"/></wp:cNvGraphicFramePr>` +
	`<a:graphic xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main">` +
	`<a:graphicData uri="http://schemas.openxmlformats.org/drawingml/2006/picture">` +
	`<pic:pic xmlns:pic="http://schemas.openxmlformats.org/drawingml/2006/picture">` +
	`<pic:nvPicPr><pic:cNvPr id="0" name="%s"/><pic:cNvPicPr/></pic:nvPicPr>` +
	`<pic:blipFill><a:blip r:embed="%s"/><a:stretch><a:fillRect/></a:stretch></pic:blipFill>` +
	`<pic:spPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="%d" cy="%d"/></a:xfrm><a:prstGeom prst="rect"><a:avLst/></a:prstGeom></pic:spPr>` +
	`</pic:pic></a:graphicData></a:graphic></wp:inline></w:drawing></w:r>`
