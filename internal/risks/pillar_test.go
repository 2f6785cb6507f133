package risks

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatPillarID(t *testing.T) {
	cases := map[string]string{
		"costoptimization":       "Cost Optimization",
		"costOptimization":       "Cost Optimization",
		"operationalexcellence":  "Operational Excellence",
		"operationalExcellence":  "Operational Excellence",
		"performanceefficiency":  "Performance Efficiency",
		"reliability":            "Reliability",
		"security":               "Security",
		"sustainability":         "Sustainability",
		"operational_excellence": "Operational Excellence",
		"data protection":        "Data Protection",
		"serverlessLensPillar":   "Serverless Lens Pillar",
	}
	for in, want := range cases {
		assert.Equal(t, want, FormatPillarID(in), in)
	}
}

func TestParsePillar(t *testing.T) {
	cases := map[string]Pillar{
		"security":              PillarSecurity,
		"costOptimization":      PillarCostOptimization,
		"reliability":           PillarReliability,
		"operationalExcellence": PillarOperationalExcellence,
		"performance":           PillarPerformanceEfficiency,
		"performanceEfficiency": PillarPerformanceEfficiency,
		"sustainability":        PillarSustainability,
		"Cost Optimization":     PillarCostOptimization,
	}
	for in, want := range cases {
		got, ok := ParsePillar(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}

	_, ok := ParsePillar("customLensPillar")
	assert.False(t, ok)
}

func TestCanonicalPillarsOrder(t *testing.T) {
	assert.Equal(t, []Pillar{
		"Security", "Cost Optimization", "Reliability",
		"Operational Excellence", "Performance Efficiency", "Sustainability",
	}, CanonicalPillars)
}

func TestRiskReportable(t *testing.T) {
	assert.True(t, RiskHigh.Reportable())
	assert.True(t, RiskMedium.Reportable())
	for _, r := range []Risk{RiskLow, RiskNone, RiskUnanswered, RiskNotApplicable, ""} {
		assert.False(t, r.Reportable(), string(r))
	}
}
