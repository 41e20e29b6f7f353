package multimodal

import (
	"math"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/nerdneilsfield/go-docingest/internal/config"
)

// Span 行内一段连续文本及其横向位置
type Span struct {
	X    float64
	W    float64
	Text string
}

// Line 页面上对齐到同一基线的一行文本
type Line struct {
	Y     float64
	Spans []Span
}

// blockGap 超过该垂直间距的行属于不同文本块
const blockGap = 15.0

// DetectGeometry 基于文本跨度的几何对齐检测表格
// 行按垂直间距聚成块，块满足以下条件时视为表格：
// 至少两行、多数行有多个跨度、至少两个对齐列
func DetectGeometry(page int, lines []Line, cfg config.DetectionConfig) []TableCandidate {
	var candidates []TableCandidate
	for _, block := range clusterByGap(lines) {
		if candidate := analyzeBlock(page, block, cfg); candidate != nil {
			candidates = append(candidates, *candidate)
		}
	}
	return candidates
}

// clusterByGap 将行按垂直间距聚成块
func clusterByGap(lines []Line) [][]Line {
	if len(lines) == 0 {
		return nil
	}

	sorted := make([]Line, len(lines))
	copy(sorted, lines)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Y < sorted[j].Y })

	var blocks [][]Line
	current := []Line{sorted[0]}
	for _, line := range sorted[1:] {
		if line.Y-current[len(current)-1].Y > blockGap {
			blocks = append(blocks, current)
			current = nil
		}
		current = append(current, line)
	}
	blocks = append(blocks, current)
	return blocks
}

// analyzeBlock 判断块是否构成表格并构建网格
func analyzeBlock(page int, block []Line, cfg config.DetectionConfig) *TableCandidate {
	if len(block) < 2 {
		return nil
	}

	multiSpan := 0
	for _, line := range block {
		if len(line.Spans) > 1 {
			multiSpan++
		}
	}
	if float64(multiSpan) <= float64(len(block))/2 {
		return nil
	}

	columns := columnSlots(block, cfg.PositionGrid)
	if len(columns) < 2 {
		return nil
	}

	grid := buildGrid(block, columns, cfg.PositionGrid)
	grid = dropEmptyColumns(grid)
	if len(grid) == 0 || len(grid[0]) < 2 {
		return nil
	}

	return &TableCandidate{
		Page:       page,
		Region:     blockRegion(block),
		Origin:     OriginGeometry,
		Grid:       grid,
		Confidence: cfg.GeometryConfidence,
	}
}

// columnSlots 收集块内所有跨度的对齐列位置
func columnSlots(block []Line, grid float64) []float64 {
	seen := make(map[float64]struct{})
	for _, line := range block {
		for _, span := range line.Spans {
			seen[roundTo(span.X, grid)] = struct{}{}
		}
	}
	slots := make([]float64, 0, len(seen))
	for slot := range seen {
		slots = append(slots, slot)
	}
	sort.Float64s(slots)
	return slots
}

// buildGrid 每个跨度分配到最近的列槽，同槽多跨度以空格拼接
func buildGrid(block []Line, columns []float64, gridSize float64) [][]string {
	grid := make([][]string, len(block))
	for i, line := range block {
		row := make([]string, len(columns))
		for _, span := range line.Spans {
			col := nearestSlot(columns, roundTo(span.X, gridSize))
			if row[col] == "" {
				row[col] = span.Text
			} else {
				row[col] += " " + span.Text
			}
		}
		grid[i] = row
	}
	return grid
}

// nearestSlot 返回距离给定位置最近的列槽下标
func nearestSlot(columns []float64, x float64) int {
	best := 0
	bestDist := math.Abs(columns[0] - x)
	for i, c := range columns[1:] {
		if d := math.Abs(c - x); d < bestDist {
			best = i + 1
			bestDist = d
		}
	}
	return best
}

// dropEmptyColumns 移除所有行都为空的列
func dropEmptyColumns(grid [][]string) [][]string {
	if len(grid) == 0 {
		return grid
	}

	keep := make([]bool, len(grid[0]))
	for _, row := range grid {
		for i, cell := range row {
			if strings.TrimSpace(cell) != "" {
				keep[i] = true
			}
		}
	}

	result := make([][]string, len(grid))
	for r, row := range grid {
		var cells []string
		for i, cell := range row {
			if keep[i] {
				cells = append(cells, cell)
			}
		}
		result[r] = cells
	}
	return result
}

// blockRegion 计算块的外接矩形
func blockRegion(block []Line) Region {
	region := Region{X0: math.Inf(1), Y0: math.Inf(1), X1: math.Inf(-1), Y1: math.Inf(-1)}
	for _, line := range block {
		region.Y0 = min(region.Y0, line.Y)
		region.Y1 = max(region.Y1, line.Y)
		for _, span := range line.Spans {
			region.X0 = min(region.X0, span.X)
			region.X1 = max(region.X1, span.X+span.W)
		}
	}
	return region
}

// roundTo 将坐标对齐到网格
func roundTo(v, grid float64) float64 {
	if grid <= 0 {
		return v
	}
	return math.Round(v/grid) * grid
}

// letterHeight MediaBox 缺失时的页面高度兜底（US Letter，磅）
const letterHeight = 792.0

// PageLines 从 PDF 页面提取带位置的文本行
// 字符按对齐后的基线归入行，行内相邻字符拼成跨度
func PageLines(page pdf.Page, grid float64) []Line {
	if page.V.IsNull() {
		return nil
	}
	return buildLines(page.Content().Text, grid, mediaBoxHeight(page.V))
}

// buildLines 将带位置的字符聚成行
// PDF 用户空间以左下角为原点、Y 向上，这里统一翻转为上原点，
// 使行序即阅读序，且与栅格化检测的坐标系一致
func buildLines(frags []pdf.Text, grid, pageHeight float64) []Line {
	byLine := make(map[float64][]pdf.Text)
	for _, t := range frags {
		y := roundTo(pageHeight-t.Y, grid)
		byLine[y] = append(byLine[y], t)
	}

	lines := make([]Line, 0, len(byLine))
	for y, lineFrags := range byLine {
		sort.Slice(lineFrags, func(i, j int) bool { return lineFrags[i].X < lineFrags[j].X })
		lines = append(lines, Line{Y: y, Spans: mergeSpans(lineFrags)})
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].Y < lines[j].Y })
	return lines
}

// mediaBoxHeight 取页面 MediaBox 高度
// MediaBox 可以从父 Pages 节点继承，沿 Parent 链向上查找
func mediaBoxHeight(v pdf.Value) float64 {
	for depth := 0; depth < 32 && !v.IsNull(); depth++ {
		if box := v.Key("MediaBox"); box.Kind() == pdf.Array && box.Len() == 4 {
			return box.Index(3).Float64() - box.Index(1).Float64()
		}
		v = v.Key("Parent")
	}
	return letterHeight
}

// mergeSpans 将水平间距小的相邻字符合并为单个跨度
func mergeSpans(frags []pdf.Text) []Span {
	var spans []Span
	var current *Span
	var prevEnd float64

	for _, frag := range frags {
		gap := frag.FontSize * 0.5
		if gap <= 0 {
			gap = 3.0
		}
		if current == nil || frag.X-prevEnd > gap {
			spans = append(spans, Span{X: frag.X, Text: frag.S})
			current = &spans[len(spans)-1]
		} else {
			current.Text += frag.S
		}
		prevEnd = frag.X + frag.W
		current.W = prevEnd - current.X
	}
	return spans
}
