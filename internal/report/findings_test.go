package report

import (
	"testing"
	"time"

	"wareport/internal/chart"
	"wareport/internal/review"
	"wareport/internal/risks"

	"github.com/stretchr/testify/assert"
)

func TestImprovementPlanIsUnselectedChoices(t *testing.T) {
	choices := []review.Choice{{ID: "A", Title: "Alpha"}, {ID: "B", Title: "Bravo"}, {ID: "C", Title: "Charlie"}}

	plan := ImprovementPlan(choices, []string{"A"})
	assert.Equal(t, []PlanItem{
		{Title: "Bravo", URL: DocsBaseURL + "B.html"},
		{Title: "Charlie", URL: DocsBaseURL + "C.html"},
	}, plan)

	assert.Empty(t, ImprovementPlan(choices, []string{"C", "B", "A"}))
	assert.Len(t, ImprovementPlan(choices, nil), 3)
}

func TestPlanURL(t *testing.T) {
	assert.Equal(t,
		"https://docs.aws.amazon.com/wellarchitected/latest/framework/sec_securely_operate_multi_accounts.html",
		PlanURL("sec_securely_operate_multi_accounts"))
}

func TestTallySeriesCanonicalAndZeroFilled(t *testing.T) {
	findings := []Finding{
		{Pillar: risks.PillarSustainability, Risk: risks.RiskMedium},
		{Pillar: risks.PillarSecurity, Risk: risks.RiskHigh},
		{Pillar: risks.PillarSecurity, Risk: risks.RiskHigh},
		{Pillar: risks.PillarSecurity, Risk: risks.RiskMedium},
		{Pillar: risks.PillarReliability, Risk: risks.RiskLow},
	}

	assert.Equal(t, []chart.Series{
		{Label: "Security", High: 2, Medium: 1},
		{Label: "Cost Optimization"},
		{Label: "Reliability"},
		{Label: "Operational Excellence"},
		{Label: "Performance Efficiency"},
		{Label: "Sustainability", Medium: 1},
	}, NewTally(findings).Series())
}

func TestByPillarOrdersCanonically(t *testing.T) {
	findings := []Finding{
		{Pillar: risks.PillarSustainability, Risk: risks.RiskHigh, QuestionID: "sus1"},
		{Pillar: risks.PillarReliability, Risk: risks.RiskHigh, QuestionID: "rel1"},
		{Pillar: risks.PillarSecurity, Risk: risks.RiskMedium, QuestionID: "sec-m"},
		{Pillar: risks.PillarSecurity, Risk: risks.RiskHigh, QuestionID: "sec1"},
		{Pillar: risks.PillarReliability, Risk: risks.RiskHigh, QuestionID: "rel2"},
	}

	var ids []string
	for _, f := range ByPillar(findings, risks.RiskHigh) {
		ids = append(ids, f.QuestionID)
	}
	assert.Equal(t, []string{"sec1", "rel1", "rel2", "sus1"}, ids)
	assert.Len(t, ByPillar(findings, risks.RiskMedium), 1)
}

func TestFilename(t *testing.T) {
	at := time.Date(2026, 3, 7, 15, 4, 5, 0, time.UTC)
	assert.Equal(t, "Acme Corp-07032026-well-architected-report.docx", Filename("Acme Corp", at))
	assert.Equal(t, Filename("Acme Corp", at), Filename("Acme Corp", at.Add(2*time.Hour)))
}
