package multimodal

import (
	"image"
	"image/color"
	"strings"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerdneilsfield/go-docingest/pkg/document"
)

// uniformImage 纯色图
func uniformImage(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// stripedImage 按列循环使用给定颜色
func stripedImage(w, h int, palette []color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, palette[x%len(palette)])
		}
	}
	return img
}

// gradientImage 每个像素颜色都不同
func gradientImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: uint8(x + y), A: 255})
		}
	}
	return img
}

func TestClassifyImage(t *testing.T) {
	longText := strings.Repeat("word ", 15)
	twoColor := stripedImage(64, 64, []color.Color{color.White, color.Black})
	fiveColor := stripedImage(64, 64, []color.Color{
		color.White, color.Black,
		color.RGBA{R: 255, A: 255}, color.RGBA{G: 255, A: 255}, color.RGBA{B: 255, A: 255},
	})

	tests := []struct {
		name string
		img  image.Image
		text string
		want ImageClass
	}{
		{"long text wins over colors", gradientImage(64, 64), longText, ClassTextImage},
		{"short text with digits", gradientImage(64, 64), "Sales 2024: 42", ClassChartOrGraph},
		{"two colors", twoColor, "", ClassDiagram},
		{"uniform", uniformImage(64, 64, color.White), "", ClassDiagram},
		{"few colors", fiveColor, "", ClassLogoOrIcon},
		{"many colors", gradientImage(64, 64), "", ClassPhotograph},
		{"short prose falls through to colors", gradientImage(64, 64), "no numerals here", ClassPhotograph},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyImage(tt.img, tt.text))
		})
	}
}

func TestEnhanceForOCRUpscalesSmallImages(t *testing.T) {
	src := uniformImage(100, 80, color.White)

	dst := EnhanceForOCR(src, 300)
	bounds := dst.Bounds()
	assert.Equal(t, 375, bounds.Dx())
	assert.Equal(t, 300, bounds.Dy())
}

func TestEnhanceForOCRKeepsLargeImages(t *testing.T) {
	src := uniformImage(400, 350, color.White)

	dst := EnhanceForOCR(src, 300)
	bounds := dst.Bounds()
	assert.Equal(t, 400, bounds.Dx())
	assert.Equal(t, 350, bounds.Dy())
}

func TestFilterTokens(t *testing.T) {
	tokens := []document.Token{
		{Text: "hello", Confidence: 80},
		{Text: "noise", Confidence: 20},
		{Text: "world", Confidence: 60},
		{Text: "  ", Confidence: 95},
	}

	text, confidence := filterTokens(tokens, 30)
	assert.Equal(t, "hello world", text)
	assert.InDelta(t, 70.0, confidence, 0.001)
}

func TestSortedImagesStableOrder(t *testing.T) {
	byObj := map[int]model.Image{
		9: {PageNr: 1, FileType: "png"},
		2: {PageNr: 1, FileType: "jpg"},
		5: {PageNr: 1, FileType: "tiff"},
	}

	for i := 0; i < 5; i++ {
		images := sortedImages(byObj)
		require.Len(t, images, 3)
		assert.Equal(t, "jpg", images[0].FileType)
		assert.Equal(t, "tiff", images[1].FileType)
		assert.Equal(t, "png", images[2].FileType)
	}
}

func TestFilterTokensAllBelowThreshold(t *testing.T) {
	text, confidence := filterTokens([]document.Token{{Text: "x", Confidence: 5}}, 30)
	assert.Empty(t, text)
	assert.Zero(t, confidence)
}
