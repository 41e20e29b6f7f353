// Package multimodal 实现 PDF 的多模态提取
// 包含两路表格检测（文本几何与图像线框）、候选合并、内嵌图片提取与分类，
// 以及把检测结果渲染为富文本块的编排器
package multimodal

import (
	"fmt"
	"strings"

	"github.com/nerdneilsfield/go-docingest/pkg/document"
)

// TableOrigin 表格候选的检测来源
type TableOrigin string

const (
	// OriginGeometry 基于文本跨度几何对齐的检测
	OriginGeometry TableOrigin = "geometry"
	// OriginLinework 基于栅格化页面线框形态学的检测
	OriginLinework TableOrigin = "linework"
)

// ImageClass 图片的粗粒度分类
type ImageClass string

const (
	ClassTextImage    ImageClass = "text_image"
	ClassChartOrGraph ImageClass = "chart_or_graph"
	ClassDiagram      ImageClass = "diagram"
	ClassLogoOrIcon   ImageClass = "logo_or_icon"
	ClassPhotograph   ImageClass = "photograph"
)

// Region 页面坐标系下的矩形区域
type Region struct {
	X0 float64 `json:"x0"`
	Y0 float64 `json:"y0"`
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
}

// Area 区域面积
func (r Region) Area() float64 {
	w := r.X1 - r.X0
	h := r.Y1 - r.Y0
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// Intersect 两区域的交集面积
func (r Region) Intersect(other Region) float64 {
	x0 := max(r.X0, other.X0)
	y0 := max(r.Y0, other.Y0)
	x1 := min(r.X1, other.X1)
	y1 := min(r.Y1, other.Y1)
	return Region{X0: x0, Y0: y0, X1: x1, Y1: y1}.Area()
}

// TableCandidate 单个检测到的表格
type TableCandidate struct {
	// Page 从 1 开始的页号
	Page       int         `json:"page"`
	Region     Region      `json:"region"`
	Origin     TableOrigin `json:"origin"`
	Grid       [][]string  `json:"grid,omitempty"`
	Text       string      `json:"text,omitempty"`
	Confidence float64     `json:"confidence"`
}

// RenderText 表格候选的文本表示
// 几何候选按网格行渲染，线框候选直接使用识别文本
func (t *TableCandidate) RenderText() string {
	if len(t.Grid) > 0 {
		lines := make([]string, 0, len(t.Grid))
		for _, row := range t.Grid {
			lines = append(lines, strings.Join(row, " | "))
		}
		return strings.Join(lines, "\n")
	}
	return t.Text
}

// ImageRecord 单张提取出的内嵌图片
type ImageRecord struct {
	// Page 从 1 开始的页号
	Page       int        `json:"page"`
	Index      int        `json:"index"`
	Width      int        `json:"width"`
	Height     int        `json:"height"`
	Text       string     `json:"text,omitempty"`
	Confidence float64    `json:"confidence"`
	Class      ImageClass `json:"class"`
	// Data 增强前原图的 base64 PNG
	Data string `json:"data,omitempty"`
}

// Summary 全文档的多模态统计
type Summary struct {
	TotalTables     int                `json:"total_tables"`
	TotalImages     int                `json:"total_images"`
	ImagesWithText  int                `json:"images_with_text"`
	ImageTypes      map[ImageClass]int `json:"image_types"`
	PagesWithTables []int              `json:"pages_with_tables"`
	PagesWithImages []int              `json:"pages_with_images"`
}

// Result 多模态提取的完整结果
type Result struct {
	Tables  []TableCandidate      `json:"tables"`
	Images  []ImageRecord         `json:"images"`
	Blocks  []string              `json:"blocks"`
	Summary Summary               `json:"summary"`
	Skips   []document.SkipReason `json:"-"`
}

// EnrichedBlocks 渲染表格与图片块的富文本表示
// 没有识别出文本的图片只进统计，不产出内容块
func (r *Result) EnrichedBlocks() []string {
	blocks := make([]string, 0, len(r.Tables)+len(r.Images))
	for i := range r.Tables {
		t := &r.Tables[i]
		blocks = append(blocks, fmt.Sprintf("[TABLE on page %d]\n%s", t.Page, t.RenderText()))
	}
	for i := range r.Images {
		img := &r.Images[i]
		if img.Text == "" {
			continue
		}
		blocks = append(blocks, fmt.Sprintf("[IMAGE on page %d - %s]\nOCR Text: %s",
			img.Page, img.Class, img.Text))
	}
	return blocks
}
