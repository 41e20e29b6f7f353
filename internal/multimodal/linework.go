package multimodal

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	"strings"
	"unicode"

	"github.com/nerdneilsfield/go-docingest/internal/config"
	"github.com/nerdneilsfield/go-docingest/internal/render"
	"github.com/nerdneilsfield/go-docingest/pkg/document"
)

// lineworkDPI 线框检测的栅格化分辨率
const lineworkDPI = 2 * render.NativeDPI

// DetectLinework 基于栅格化页面的线框形态学检测表格
// 提取水平与垂直长线，合并后的连通区域裁剪出来做识别验证
func DetectLinework(ctx context.Context, img image.Image, page int, ocr document.Recognizer, cfg config.DetectionConfig) ([]TableCandidate, []document.SkipReason) {
	// 没有识别引擎时无法验证区域内容，线框检测整体关闭
	if ocr == nil {
		return nil, nil
	}

	mask := thresholdInk(img)
	lines := union(
		openHorizontal(mask, cfg.LineKernel),
		openVertical(mask, cfg.LineKernel),
	)
	regions := connectedComponents(lines, cfg.MinTableArea)

	scale := float64(lineworkDPI) / float64(render.NativeDPI)

	var candidates []TableCandidate
	var skips []document.SkipReason
	for _, rect := range regions {
		offset := rect.Add(img.Bounds().Min)
		crop := cropImage(img, offset)

		text, err := ocr.Recognize(ctx, crop)
		if err != nil {
			skips = append(skips, document.SkipReason{
				Page:  page,
				Stage: "table-linework",
				Err:   fmt.Errorf("failed to recognize table region: %w", err),
			})
			continue
		}
		if !looksLikeTableText(text) {
			continue
		}

		candidates = append(candidates, TableCandidate{
			Page: page,
			Region: Region{
				X0: float64(rect.Min.X) / scale,
				Y0: float64(rect.Min.Y) / scale,
				X1: float64(rect.Max.X) / scale,
				Y1: float64(rect.Max.Y) / scale,
			},
			Origin:     OriginLinework,
			Text:       strings.TrimSpace(text),
			Confidence: cfg.LineworkConfidence,
		})
	}
	return candidates, skips
}

// looksLikeTableText 识别文本需包含数字且至少两行有多个词
func looksLikeTableText(text string) bool {
	if !strings.ContainsFunc(text, unicode.IsDigit) {
		return false
	}
	multiWord := 0
	for _, line := range strings.Split(text, "\n") {
		if len(strings.Fields(line)) >= 2 {
			multiWord++
		}
	}
	return multiWord >= 2
}

// cropImage 裁剪矩形区域，无法共享底层存储时退化为复制
func cropImage(img image.Image, rect image.Rectangle) image.Image {
	rect = rect.Intersect(img.Bounds())
	type subImager interface {
		SubImage(r image.Rectangle) image.Image
	}
	if si, ok := img.(subImager); ok {
		return si.SubImage(rect)
	}
	dst := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	draw.Draw(dst, dst.Bounds(), img, rect.Min, draw.Src)
	return dst
}
