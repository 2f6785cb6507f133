package chart

import (
	"bytes"
	"image"
	_ "image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderRiskChartProducesPNG(t *testing.T) {
	out, err := RenderRiskChart([]Series{
		{Label: "Security", High: 1},
		{Label: "Cost Optimization"},
		{Label: "Reliability", Medium: 1},
		{Label: "Operational Excellence"},
		{Label: "Performance Efficiency"},
		{Label: "Sustainability"},
	})
	require.NoError(t, err)

	cfg, format, err := image.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Greater(t, cfg.Width, cfg.Height)
}

func TestRenderRiskChartAllZero(t *testing.T) {
	out, err := RenderRiskChart([]Series{{Label: "Security"}, {Label: "Reliability"}})
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}

func TestRenderRiskChartNeedsCategories(t *testing.T) {
	_, err := RenderRiskChart(nil)
	assert.Error(t, err)
}
