package report

import (
	"wareport/internal/chart"
	"wareport/internal/review"
	"wareport/internal/risks"
)

// DocsBaseURL is where the Well-Architected Framework documents each best
// practice, one page per choice id.
const DocsBaseURL = "https://docs.aws.amazon.com/wellarchitected/latest/framework/"

// NoImprovementPlans is rendered when every choice of a question was selected.
const NoImprovementPlans = "No improvement plans available."

// PlanItem is one unselected best practice with its documentation link.
type PlanItem struct {
	Title string
	URL   string
}

// Finding is a HIGH or MEDIUM question classified into its pillar.
type Finding struct {
	Pillar          risks.Pillar
	Risk            risks.Risk
	QuestionID      string
	QuestionTitle   string
	Notes           string
	ImprovementPlan []PlanItem
}

// PlanURL returns the documentation page of a choice.
func PlanURL(choiceID string) string {
	return DocsBaseURL + choiceID + ".html"
}

// ImprovementPlan lists the choices not in selected, in service order.
func ImprovementPlan(choices []review.Choice, selected []string) []PlanItem {
	picked := make(map[string]bool, len(selected))
	for _, id := range selected {
		picked[id] = true
	}
	var plan []PlanItem
	for _, c := range choices {
		if picked[c.ID] {
			continue
		}
		plan = append(plan, PlanItem{Title: c.Title, URL: PlanURL(c.ID)})
	}
	return plan
}

// Counts is the number of findings per risk level of one pillar.
type Counts struct {
	High   int
	Medium int
}

// Tally counts findings per pillar.
type Tally map[risks.Pillar]Counts

func NewTally(findings []Finding) Tally {
	t := Tally{}
	for _, f := range findings {
		c := t[f.Pillar]
		switch f.Risk {
		case risks.RiskHigh:
			c.High++
		case risks.RiskMedium:
			c.Medium++
		default:
			continue
		}
		t[f.Pillar] = c
	}
	return t
}

// Series returns one entry per canonical pillar, zero-filled.
func (t Tally) Series() []chart.Series {
	out := make([]chart.Series, 0, len(risks.CanonicalPillars))
	for _, p := range risks.CanonicalPillars {
		c := t[p]
		out = append(out, chart.Series{Label: string(p), High: c.High, Medium: c.Medium})
	}
	return out
}

// ByPillar returns the findings with the given risk, grouped in canonical
// pillar order. Order within a pillar follows the input.
func ByPillar(findings []Finding, risk risks.Risk) []Finding {
	var out []Finding
	for _, p := range risks.CanonicalPillars {
		for _, f := range findings {
			if f.Pillar == p && f.Risk == risk {
				out = append(out, f)
			}
		}
	}
	return out
}
