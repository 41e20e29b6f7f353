package multimodal

import (
	"testing"

	"github.com/ledongthuc/pdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerdneilsfield/go-docingest/internal/config"
)

func tableLines() []Line {
	return []Line{
		{Y: 100, Spans: []Span{
			{X: 50, W: 40, Text: "Name"},
			{X: 150, W: 30, Text: "Qty"},
			{X: 250, W: 40, Text: "Price"},
		}},
		{Y: 115, Spans: []Span{
			{X: 50, W: 50, Text: "Widget"},
			{X: 150, W: 10, Text: "2"},
			{X: 250, W: 35, Text: "9.99"},
		}},
		{Y: 130, Spans: []Span{
			{X: 50, W: 50, Text: "Gadget"},
			{X: 150, W: 10, Text: "5"},
			{X: 250, W: 40, Text: "19.99"},
		}},
	}
}

func TestDetectGeometryAlignedColumns(t *testing.T) {
	cfg := config.Default().Detection

	candidates := DetectGeometry(1, tableLines(), cfg)
	require.Len(t, candidates, 1)

	c := candidates[0]
	assert.Equal(t, 1, c.Page)
	assert.Equal(t, OriginGeometry, c.Origin)
	assert.Equal(t, cfg.GeometryConfidence, c.Confidence)

	require.Len(t, c.Grid, 3)
	assert.Equal(t, []string{"Name", "Qty", "Price"}, c.Grid[0])
	assert.Equal(t, []string{"Widget", "2", "9.99"}, c.Grid[1])

	assert.Equal(t, 50.0, c.Region.X0)
	assert.Equal(t, 100.0, c.Region.Y0)
	assert.Equal(t, 130.0, c.Region.Y1)

	assert.Contains(t, c.RenderText(), "Widget | 2 | 9.99")
}

func TestDetectGeometryIgnoresProse(t *testing.T) {
	lines := []Line{
		{Y: 100, Spans: []Span{{X: 50, W: 400, Text: "A full sentence of running prose."}}},
		{Y: 115, Spans: []Span{{X: 50, W: 400, Text: "Another line continuing the paragraph."}}},
		{Y: 130, Spans: []Span{{X: 50, W: 400, Text: "And one more for good measure."}}},
	}

	assert.Empty(t, DetectGeometry(1, lines, config.Default().Detection))
}

func TestDetectGeometrySeparatesDistantBlocks(t *testing.T) {
	// 表格块和远处的散文块被垂直间距分开，只有表格成为候选
	lines := append(tableLines(),
		Line{Y: 400, Spans: []Span{{X: 60, W: 300, Text: "Footer prose far below the table."}}},
	)

	candidates := DetectGeometry(2, lines, config.Default().Detection)
	require.Len(t, candidates, 1)
	assert.Equal(t, 2, candidates[0].Page)
}

func TestDetectGeometryRequiresTwoColumns(t *testing.T) {
	lines := []Line{
		{Y: 100, Spans: []Span{{X: 50, W: 40, Text: "one"}, {X: 52, W: 40, Text: "two"}}},
		{Y: 115, Spans: []Span{{X: 50, W: 40, Text: "three"}, {X: 51, W: 40, Text: "four"}}},
	}

	// 所有跨度取整后落在同一列槽
	assert.Empty(t, DetectGeometry(1, lines, config.Default().Detection))
}

func TestBuildLinesFlipsToTopOrigin(t *testing.T) {
	// PDF 用户空间 Y 向上：表头在 Y=720，数据行在 Y=710
	frags := []pdf.Text{
		{S: "Widget", X: 50, W: 40, FontSize: 10, Y: 710},
		{S: "42", X: 150, W: 15, FontSize: 10, Y: 710},
		{S: "Name", X: 50, W: 30, FontSize: 10, Y: 720},
		{S: "Qty", X: 150, W: 20, FontSize: 10, Y: 720},
	}

	lines := buildLines(frags, 10, 792)
	require.Len(t, lines, 2)

	// 翻转后表头的纵坐标更小，排在数据行之前
	assert.Equal(t, 70.0, lines[0].Y)
	assert.Equal(t, "Name", lines[0].Spans[0].Text)
	assert.Equal(t, 80.0, lines[1].Y)
	assert.Equal(t, "Widget", lines[1].Spans[0].Text)

	candidates := DetectGeometry(1, lines, config.Default().Detection)
	require.Len(t, candidates, 1)

	// 网格按阅读序排列，表头行在前
	require.Len(t, candidates[0].Grid, 2)
	assert.Equal(t, []string{"Name", "Qty"}, candidates[0].Grid[0])
	assert.Equal(t, []string{"Widget", "42"}, candidates[0].Grid[1])
}

func TestDropEmptyColumns(t *testing.T) {
	grid := [][]string{
		{"a", "", "b"},
		{"c", " ", "d"},
	}
	assert.Equal(t, [][]string{{"a", "b"}, {"c", "d"}}, dropEmptyColumns(grid))
}
