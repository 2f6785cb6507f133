package report

import (
	"fmt"
	"strings"

	"wareport/internal/docx"
)

// Template placeholders. Matching is case-sensitive substring containment.
const (
	TokenCustomer    = "CUSTOMER"
	TokenHighRisk    = "{{highrisk}}"
	TokenMediumRisk  = "{{mediumrisk}}"
	TokenPillarGraph = "{{pillargraph}}"
)

const (
	customerFontPt = 20
	chartWidthEMU  = 4 * docx.EMUPerInch
)

// Paragraph is the rich-text surface the template is filled through.
type Paragraph interface {
	Text() string
	Clear()
	ReplaceText(text string, sizePt float64)
	InsertText(text string, bold bool)
	InsertBreak()
	InsertHyperlink(text, url string)
	InsertImage(png []byte, widthEMU int64) error
}

// Paragraphs adapts a slice of concrete paragraphs.
func Paragraphs[P Paragraph](in []P) []Paragraph {
	out := make([]Paragraph, len(in))
	for i, p := range in {
		out[i] = p
	}
	return out
}

// Content is what gets substituted into the template.
type Content struct {
	MilestoneName string
	High          []Finding
	Medium        []Finding
	Chart         []byte
}

// Fill substitutes placeholders. Each paragraph is acted on for the first
// token it contains, checked in the order CUSTOMER, {{highrisk}},
// {{mediumrisk}}, {{pillargraph}}; any other token in the same paragraph is
// left alone.
func Fill(paragraphs []Paragraph, c Content) error {
	for i, p := range paragraphs {
		text := p.Text()
		switch {
		case strings.Contains(text, TokenCustomer):
			p.ReplaceText(strings.ReplaceAll(text, TokenCustomer, c.MilestoneName), customerFontPt)
		case strings.Contains(text, TokenHighRisk):
			p.Clear()
			renderFindings(p, c.High, "No high risk items identified.")
		case strings.Contains(text, TokenMediumRisk):
			p.Clear()
			renderFindings(p, c.Medium, "No medium risk items identified.")
		case strings.Contains(text, TokenPillarGraph):
			p.Clear()
			if err := p.InsertImage(c.Chart, chartWidthEMU); err != nil {
				return fmt.Errorf("paragraph %d: insert chart: %w", i, err)
			}
		}
	}
	return nil
}

func renderFindings(p Paragraph, findings []Finding, empty string) {
	if len(findings) == 0 {
		p.InsertText(empty, false)
		return
	}
	for i, f := range findings {
		if i > 0 {
			p.InsertBreak()
		}
		p.InsertText(fmt.Sprintf("%s: %s", f.Pillar, f.QuestionTitle), true)
		p.InsertBreak()
		if f.Notes != "" {
			p.InsertText("Notes: "+f.Notes, false)
			p.InsertBreak()
		}
		p.InsertText("Improvement Plan:", false)
		p.InsertBreak()
		if len(f.ImprovementPlan) == 0 {
			p.InsertText(NoImprovementPlans, false)
			p.InsertBreak()
			continue
		}
		for _, item := range f.ImprovementPlan {
			if item.URL == "" {
				p.InsertText("- "+item.Title, false)
			} else {
				p.InsertText("- ", false)
				p.InsertHyperlink(item.Title, item.URL)
			}
			p.InsertBreak()
		}
	}
}
