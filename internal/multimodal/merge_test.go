package multimodal

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/ledongthuc/pdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerdneilsfield/go-docingest/internal/config"
	"github.com/nerdneilsfield/go-docingest/internal/ocr"
)

func TestMergeOverlappingKeepsHigherConfidence(t *testing.T) {
	candidates := []TableCandidate{
		{Page: 1, Region: Region{X0: 0, Y0: 0, X1: 100, Y1: 100}, Origin: OriginGeometry, Confidence: 0.8},
		{Page: 1, Region: Region{X0: 0, Y0: 30, X1: 100, Y1: 130}, Origin: OriginLinework, Confidence: 0.6},
	}

	merged := MergeCandidates(candidates)
	require.Len(t, merged, 1)
	assert.Equal(t, 0.8, merged[0].Confidence)
	assert.Equal(t, OriginGeometry, merged[0].Origin)
}

func TestMergeKeepsNonOverlapping(t *testing.T) {
	candidates := []TableCandidate{
		{Page: 1, Region: Region{X0: 0, Y0: 0, X1: 100, Y1: 100}, Confidence: 0.8},
		{Page: 1, Region: Region{X0: 0, Y0: 200, X1: 100, Y1: 300}, Confidence: 0.6},
	}

	assert.Len(t, MergeCandidates(candidates), 2)
}

func TestMergeIgnoresOtherPages(t *testing.T) {
	candidates := []TableCandidate{
		{Page: 1, Region: Region{X0: 0, Y0: 0, X1: 100, Y1: 100}, Confidence: 0.8},
		{Page: 2, Region: Region{X0: 0, Y0: 0, X1: 100, Y1: 100}, Confidence: 0.6},
	}

	merged := MergeCandidates(candidates)
	require.Len(t, merged, 2)
	assert.Equal(t, 1, merged[0].Page)
	assert.Equal(t, 2, merged[1].Page)
}

func TestMergeSmallOverlapKeepsBoth(t *testing.T) {
	// 交集 100×30，占较小面积的 30%，不足一半
	candidates := []TableCandidate{
		{Page: 1, Region: Region{X0: 0, Y0: 0, X1: 100, Y1: 100}, Confidence: 0.8},
		{Page: 1, Region: Region{X0: 0, Y0: 70, X1: 100, Y1: 170}, Confidence: 0.6},
	}

	assert.Len(t, MergeCandidates(candidates), 2)
}

func TestMergeIsIdempotent(t *testing.T) {
	candidates := []TableCandidate{
		{Page: 1, Region: Region{X0: 0, Y0: 0, X1: 100, Y1: 100}, Confidence: 0.8},
		{Page: 1, Region: Region{X0: 0, Y0: 30, X1: 100, Y1: 130}, Confidence: 0.6},
		{Page: 2, Region: Region{X0: 10, Y0: 10, X1: 200, Y1: 200}, Confidence: 0.6},
	}

	once := MergeCandidates(candidates)
	twice := MergeCandidates(once)
	assert.Equal(t, once, twice)
}

// TestMergeReconcilesBothDetectorPaths 同一张物理表被两路检测分别发现时合并为一个候选
// 几何路径的输入是 PDF 下原点坐标，线框路径是 144 DPI 栅格像素，
// 两者各自归一到同一个上原点磅坐标系后区域必须重叠
func TestMergeReconcilesBothDetectorPaths(t *testing.T) {
	cfg := config.Default().Detection

	// 几何路径：表格在 792 磅高页面的顶部，PDF 坐标 Y=700..720
	frags := []pdf.Text{
		{S: "Name", X: 50, W: 40, FontSize: 10, Y: 720},
		{S: "Qty", X: 150, W: 30, FontSize: 10, Y: 720},
		{S: "Price", X: 250, W: 40, FontSize: 10, Y: 720},
		{S: "Widget", X: 50, W: 50, FontSize: 10, Y: 710},
		{S: "2", X: 150, W: 10, FontSize: 10, Y: 710},
		{S: "9.99", X: 250, W: 35, FontSize: 10, Y: 710},
		{S: "Gadget", X: 50, W: 50, FontSize: 10, Y: 700},
		{S: "5", X: 150, W: 10, FontSize: 10, Y: 700},
		{S: "19.99", X: 250, W: 40, FontSize: 10, Y: 700},
	}
	geometry := DetectGeometry(1, buildLines(frags, cfg.PositionGrid, 792), cfg)
	require.Len(t, geometry, 1)

	// 线框路径：同一区域在 2 倍分辨率栅格上的表格边框
	img := image.NewRGBA(image.Rect(0, 0, 700, 450))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	for x := 100; x <= 580; x++ {
		img.Set(x, 140, color.Black)
		img.Set(x, 200, color.Black)
	}
	for y := 140; y <= 200; y++ {
		img.Set(100, y, color.Black)
		img.Set(580, y, color.Black)
	}
	fake := &ocr.Fake{Text: "Name Qty Price\nWidget 2 9.99\nGadget 5 19.99"}
	linework, skips := DetectLinework(context.Background(), img, 1, fake, cfg)
	require.Empty(t, skips)
	require.Len(t, linework, 1)

	// 两个候选描述同一张表，合并后保留置信度更高的几何候选
	merged := MergeCandidates(append(geometry, linework...))
	require.Len(t, merged, 1)
	assert.Equal(t, OriginGeometry, merged[0].Origin)
	assert.Equal(t, cfg.GeometryConfidence, merged[0].Confidence)
}

func TestMergeSortsByPageAndPosition(t *testing.T) {
	candidates := []TableCandidate{
		{Page: 2, Region: Region{X0: 0, Y0: 50, X1: 10, Y1: 60}, Confidence: 0.6},
		{Page: 1, Region: Region{X0: 0, Y0: 500, X1: 10, Y1: 510}, Confidence: 0.6},
		{Page: 1, Region: Region{X0: 0, Y0: 50, X1: 10, Y1: 60}, Confidence: 0.8},
	}

	merged := MergeCandidates(candidates)
	require.Len(t, merged, 3)
	assert.Equal(t, 1, merged[0].Page)
	assert.Equal(t, 50.0, merged[0].Region.Y0)
	assert.Equal(t, 500.0, merged[1].Region.Y0)
	assert.Equal(t, 2, merged[2].Page)
}
