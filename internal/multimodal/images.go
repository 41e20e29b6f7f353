package multimodal

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"sort"
	"strings"
	"unicode"

	_ "image/gif"
	_ "image/jpeg"

	"github.com/disintegration/gift"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/nerdneilsfield/go-docingest/internal/config"
	"github.com/nerdneilsfield/go-docingest/pkg/document"
)

// textImageThreshold 识别文本超过该长度的图片归类为文字图片
const textImageThreshold = 50

// ExtractImages 提取 PDF 内嵌图片，做识别与分类
// 单张图片的解码或识别失败不会中断整体提取
func ExtractImages(ctx context.Context, filePath string, ocr document.Recognizer, det config.DetectionConfig, minTokenConfidence float64) ([]ImageRecord, []document.SkipReason, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	conf := model.NewDefaultConfiguration()
	pageImages, err := api.ExtractImagesRaw(f, nil, conf)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to extract images: %w", err)
	}

	var records []ImageRecord
	var skips []document.SkipReason
	indexByPage := make(map[int]int)

	for _, byObj := range pageImages {
		for _, raw := range sortedImages(byObj) {
			if err := ctx.Err(); err != nil {
				return nil, nil, err
			}

			record, skip := processImage(ctx, raw, ocr, det, minTokenConfidence, indexByPage)
			if skip != nil {
				skips = append(skips, *skip)
				continue
			}
			if record != nil {
				records = append(records, *record)
			}
		}
	}
	return records, skips, nil
}

// sortedImages 按对象号排序同页图片
// 直接遍历 map 会让同页多图的序号和输出顺序在多次运行间漂移
func sortedImages(byObj map[int]model.Image) []model.Image {
	objNrs := make([]int, 0, len(byObj))
	for nr := range byObj {
		objNrs = append(objNrs, nr)
	}
	sort.Ints(objNrs)

	images := make([]model.Image, 0, len(objNrs))
	for _, nr := range objNrs {
		images = append(images, byObj[nr])
	}
	return images
}

// processImage 解码、增强、识别并分类单张图片
// 尺寸过小的图片返回 nil 而不是跳过原因
func processImage(ctx context.Context, raw model.Image, ocr document.Recognizer, det config.DetectionConfig, minTokenConfidence float64, indexByPage map[int]int) (*ImageRecord, *document.SkipReason) {
	data, err := io.ReadAll(raw)
	if err != nil {
		return nil, &document.SkipReason{Page: raw.PageNr, Stage: "image-read",
			Err: fmt.Errorf("failed to read image stream: %w", err)}
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &document.SkipReason{Page: raw.PageNr, Stage: "image-decode",
			Err: fmt.Errorf("failed to decode %s image: %w", raw.FileType, err)}
	}

	bounds := img.Bounds()
	if bounds.Dx() < det.MinImageSize || bounds.Dy() < det.MinImageSize {
		return nil, nil
	}

	text := ""
	confidence := 0.0
	if ocr != nil {
		tokens, err := ocr.RecognizeTokens(ctx, EnhanceForOCR(img, det.OCRUpscaleTarget))
		if err != nil {
			return nil, &document.SkipReason{Page: raw.PageNr, Stage: "image-ocr",
				Err: fmt.Errorf("failed to recognize image: %w", err)}
		}
		text, confidence = filterTokens(tokens, minTokenConfidence)
	}

	encoded, err := encodePNG(img)
	if err != nil {
		return nil, &document.SkipReason{Page: raw.PageNr, Stage: "image-encode",
			Err: fmt.Errorf("failed to encode image: %w", err)}
	}

	indexByPage[raw.PageNr]++
	return &ImageRecord{
		Page:       raw.PageNr,
		Index:      indexByPage[raw.PageNr],
		Width:      bounds.Dx(),
		Height:     bounds.Dy(),
		Text:       text,
		Confidence: confidence,
		Class:      ClassifyImage(img, text),
		Data:       encoded,
	}, nil
}

// EnhanceForOCR 识别前的图像增强
// 灰度化，短边放大到目标尺寸，再做对比度、锐化与中值去噪
func EnhanceForOCR(img image.Image, upscaleTarget int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	filters := []gift.Filter{gift.Grayscale()}

	shorter := min(w, h)
	if upscaleTarget > 0 && shorter < upscaleTarget {
		scale := float64(upscaleTarget) / float64(shorter)
		filters = append(filters, gift.Resize(
			int(float64(w)*scale+0.5), int(float64(h)*scale+0.5), gift.LanczosResampling))
	}

	filters = append(filters,
		gift.Contrast(50),
		gift.UnsharpMask(1.0, 1.5, 0),
		gift.Median(3, true),
	)

	g := gift.New(filters...)
	dst := image.NewRGBA(g.Bounds(bounds))
	g.Draw(dst, img)
	return dst
}

// filterTokens 丢弃低置信度词条，返回拼接文本与保留词条的平均置信度
func filterTokens(tokens []document.Token, minConfidence float64) (string, float64) {
	var kept []string
	total := 0.0
	for _, tok := range tokens {
		word := strings.TrimSpace(tok.Text)
		if word == "" || tok.Confidence <= minConfidence {
			continue
		}
		kept = append(kept, word)
		total += tok.Confidence
	}
	if len(kept) == 0 {
		return "", 0
	}
	return strings.Join(kept, " "), total / float64(len(kept))
}

// ClassifyImage 根据识别文本与颜色特征做粗分类
func ClassifyImage(img image.Image, text string) ImageClass {
	if len([]rune(text)) > textImageThreshold {
		return ClassTextImage
	}
	if strings.ContainsFunc(text, unicode.IsDigit) {
		return ClassChartOrGraph
	}

	colors := countDistinctColors(img, 10)
	switch {
	case colors <= 2:
		return ClassDiagram
	case colors < 10:
		return ClassLogoOrIcon
	default:
		return ClassPhotograph
	}
}

// countDistinctColors 统计采样像素的不同颜色数，达到上限即提前返回
func countDistinctColors(img image.Image, limit int) int {
	bounds := img.Bounds()
	step := max(1, max(bounds.Dx(), bounds.Dy())/128)

	seen := make(map[[4]uint32]struct{})
	for y := bounds.Min.Y; y < bounds.Max.Y; y += step {
		for x := bounds.Min.X; x < bounds.Max.X; x += step {
			r, g, b, a := img.At(x, y).RGBA()
			seen[[4]uint32{r, g, b, a}] = struct{}{}
			if len(seen) >= limit {
				return len(seen)
			}
		}
	}
	return len(seen)
}

// encodePNG 编码为 base64 PNG
func encodePNG(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
