// Package docx edits the body paragraphs of a Word (OOXML) document in place:
// plain runs, hyperlinks with external relationships and inline PNG images.
package docx

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

const (
	documentPart     = "word/document.xml"
	relsPart         = "word/_rels/document.xml.rels"
	contentTypesPart = "[Content_Types].xml"

	nsW    = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	nsR    = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	nsRels = "http://schemas.openxmlformats.org/package/2006/relationships"

	relTypeHyperlink = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/hyperlink"
	relTypeImage     = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/image"
)

var relIDPattern = regexp.MustCompile(`^rId(\d+)$`)

type part struct {
	name string
	data []byte
}

// Document is an opened .docx package.
type Document struct {
	parts []part
	doc   *etree.Document
	rels  *etree.Document
	types *etree.Document

	nextRel   int
	nextDocPr int
	images    int
}

// Open parses a .docx package.
func Open(data []byte) (*Document, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open docx zip: %w", err)
	}

	d := &Document{nextRel: 1, nextDocPr: 1}
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open docx part %s: %w", f.Name, err)
		}
		b, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read docx part %s: %w", f.Name, err)
		}
		d.parts = append(d.parts, part{name: f.Name, data: b})
	}

	if d.doc, err = d.parseRequired(documentPart); err != nil {
		return nil, err
	}
	if d.types, err = d.parseRequired(contentTypesPart); err != nil {
		return nil, err
	}
	if d.rels, err = d.parseOptional(relsPart); err != nil {
		return nil, err
	}
	if d.rels == nil {
		d.rels = etree.NewDocument()
		d.rels.CreateProcInst("xml", `version="1.0" encoding="UTF-8" standalone="yes"`)
		root := d.rels.CreateElement("Relationships")
		root.CreateAttr("xmlns", nsRels)
		d.parts = append(d.parts, part{name: relsPart})
	}

	root := d.doc.Root()
	if root == nil || root.Tag != "document" {
		return nil, fmt.Errorf("%s: not a wordprocessing document", documentPart)
	}
	if root.SelectAttr("xmlns:r") == nil {
		root.CreateAttr("xmlns:r", nsR)
	}

	for _, rel := range d.rels.Root().SelectElements("Relationship") {
		if m := relIDPattern.FindStringSubmatch(rel.SelectAttrValue("Id", "")); m != nil {
			if n, _ := strconv.Atoi(m[1]); n >= d.nextRel {
				d.nextRel = n + 1
			}
		}
	}
	for _, el := range d.doc.FindElements("//wp:docPr") {
		if n, err := strconv.Atoi(el.SelectAttrValue("id", "")); err == nil && n >= d.nextDocPr {
			d.nextDocPr = n + 1
		}
	}
	return d, nil
}

// Paragraphs returns the top-level body paragraphs in document order.
// Paragraphs inside tables, headers and footers are not included.
func (d *Document) Paragraphs() []*Paragraph {
	body := d.doc.Root().SelectElement("w:body")
	if body == nil {
		return nil
	}
	els := body.SelectElements("w:p")
	out := make([]*Paragraph, 0, len(els))
	for _, el := range els {
		out = append(out, &Paragraph{doc: d, el: el})
	}
	return out
}

// Bytes serialises the package, keeping the part order it was read in.
func (d *Document) Bytes() ([]byte, error) {
	updated := map[string]*etree.Document{
		documentPart:     d.doc,
		relsPart:         d.rels,
		contentTypesPart: d.types,
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, p := range d.parts {
		data := p.data
		if x, ok := updated[p.name]; ok {
			b, err := x.WriteToBytes()
			if err != nil {
				return nil, fmt.Errorf("serialise %s: %w", p.name, err)
			}
			data = b
		}
		w, err := zw.Create(p.name)
		if err != nil {
			return nil, fmt.Errorf("write docx part %s: %w", p.name, err)
		}
		if _, err := w.Write(data); err != nil {
			return nil, fmt.Errorf("write docx part %s: %w", p.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close docx zip: %w", err)
	}
	return buf.Bytes(), nil
}

func (d *Document) parseRequired(name string) (*etree.Document, error) {
	x, err := d.parseOptional(name)
	if err != nil {
		return nil, err
	}
	if x == nil {
		return nil, fmt.Errorf("docx is missing %s", name)
	}
	return x, nil
}

func (d *Document) parseOptional(name string) (*etree.Document, error) {
	for _, p := range d.parts {
		if p.name != name {
			continue
		}
		x := etree.NewDocument()
		if err := x.ReadFromBytes(p.data); err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		return x, nil
	}
	return nil, nil
}

func (d *Document) addRelationship(relType, target string, external bool) string {
	id := fmt.Sprintf("rId%d", d.nextRel)
	d.nextRel++

	rel := d.rels.Root().CreateElement("Relationship")
	rel.CreateAttr("Id", id)
	rel.CreateAttr("Type", relType)
	rel.CreateAttr("Target", target)
	if external {
		rel.CreateAttr("TargetMode", "External")
	}
	return id
}

func (d *Document) addMedia(ext, contentType string, data []byte) (relID, name string) {
	d.images++
	name = fmt.Sprintf("wareport_image%d.%s", d.images, ext)
	d.parts = append(d.parts, part{name: "word/media/" + name, data: data})
	d.ensureDefaultContentType(ext, contentType)
	return d.addRelationship(relTypeImage, "media/"+name, false), name
}

func (d *Document) ensureDefaultContentType(ext, contentType string) {
	root := d.types.Root()
	for _, def := range root.SelectElements("Default") {
		if strings.EqualFold(def.SelectAttrValue("Extension", ""), ext) {
			return
		}
	}
	def := etree.NewElement("Default")
	def.CreateAttr("Extension", ext)
	def.CreateAttr("ContentType", contentType)
	root.InsertChildAt(0, def)
}
