package risks

import (
	"strings"
	"unicode"
)

// Pillar is one of the six Well-Architected categories.
type Pillar string

const (
	PillarSecurity              Pillar = "Security"
	PillarCostOptimization      Pillar = "Cost Optimization"
	PillarReliability           Pillar = "Reliability"
	PillarOperationalExcellence Pillar = "Operational Excellence"
	PillarPerformanceEfficiency Pillar = "Performance Efficiency"
	PillarSustainability        Pillar = "Sustainability"
)

// CanonicalPillars is the order pillars appear in in every report section and
// on the chart axis.
var CanonicalPillars = []Pillar{
	PillarSecurity,
	PillarCostOptimization,
	PillarReliability,
	PillarOperationalExcellence,
	PillarPerformanceEfficiency,
	PillarSustainability,
}

// FormatPillarID turns a review-service pillar id into a display name.
//
//	costOptimization      -> Cost Optimization
//	operational_excellence -> Operational Excellence
//	reliability           -> Reliability
func FormatPillarID(id string) string {
	switch strings.ToLower(id) {
	case "costoptimization":
		return string(PillarCostOptimization)
	case "operationalexcellence":
		return string(PillarOperationalExcellence)
	case "performanceefficiency":
		return string(PillarPerformanceEfficiency)
	}

	words := splitWords(id)
	for i, w := range words {
		r := []rune(strings.ToLower(w))
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

// ParsePillar maps a pillar id or display name to a Pillar. The review
// service uses "performance" for Performance Efficiency.
func ParsePillar(id string) (Pillar, bool) {
	name := FormatPillarID(id)
	if name == "Performance" {
		return PillarPerformanceEfficiency, true
	}
	for _, p := range CanonicalPillars {
		if string(p) == name {
			return p, true
		}
	}
	return "", false
}

// splitWords splits on '_', '-', whitespace and lower-to-upper case changes.
func splitWords(s string) []string {
	var (
		words []string
		cur   []rune
		prev  rune
	)
	flush := func() {
		if len(cur) > 0 {
			words = append(words, string(cur))
			cur = cur[:0]
		}
	}
	for _, r := range s {
		switch {
		case r == '_' || r == '-' || unicode.IsSpace(r):
			flush()
		case unicode.IsUpper(r) && unicode.IsLower(prev):
			flush()
			cur = append(cur, r)
		default:
			cur = append(cur, r)
		}
		prev = r
	}
	flush()
	return words
}
