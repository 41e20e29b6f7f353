package pdf

import (
	"context"
	"errors"
	"image"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerdneilsfield/go-docingest/internal/ocr"
	"github.com/nerdneilsfield/go-docingest/internal/render"
	"github.com/nerdneilsfield/go-docingest/pkg/document"
)

// newTestProcessor 构造使用假后端的处理器
func newTestProcessor(t *testing.T, src render.PageSource, engine document.Recognizer) *Processor {
	t.Helper()

	p, err := NewProcessor(document.ProcessorOptions{
		ChunkSize:    1000,
		ChunkOverlap: 200,
		OCR:          engine,
	})
	require.NoError(t, err)

	p.opener = func(string) (render.PageSource, error) {
		return src, nil
	}
	return p
}

func TestProcessTextAndOCRFallback(t *testing.T) {
	// 三页文档：第一页有大段可选取文本，第二页只有扫描段落，第三页空白
	// 用不同尺寸的页图像让假引擎区分第二页和第三页
	scannedPage := image.NewGray(image.Rect(0, 0, 10, 10))
	blankPage := image.NewGray(image.Rect(0, 0, 20, 20))

	src := &render.FakeSource{
		Pages: []render.FakePage{
			{Text: strings.Repeat("selectable page text. ", 100)},
			{Image: scannedPage},
			{Image: blankPage},
		},
	}

	engine := &ocr.Fake{
		Func: func(img image.Image) (string, error) {
			if img.Bounds().Dx() == 10 {
				return "scanned paragraph recovered by recognition", nil
			}
			return "", nil
		},
	}

	p := newTestProcessor(t, src, engine)
	chunks, err := p.Process(context.Background(), "sample.pdf")
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	full := joinChunkText(chunks)

	// 第一页：文本出处；第二页：识别出处；第三页：无贡献
	assert.Contains(t, full, "[Page 1]")
	assert.Contains(t, full, "[Text]: selectable page text.")
	assert.Contains(t, full, "[Page 2]")
	assert.Contains(t, full, "[OCR]: scanned paragraph recovered by recognition")
	assert.NotContains(t, full, "[Page 3]")

	md := chunks[0].Metadata
	assert.Equal(t, "pdf", md["file_type"])
	assert.Equal(t, 2, md["page_count"])
	assert.Equal(t, "ocr-augmented", md["processor"])
}

func TestProcessTextOnlyVariant(t *testing.T) {
	src := &render.FakeSource{
		Pages: []render.FakePage{
			{Text: strings.Repeat("plain machine readable text. ", 20)},
		},
	}

	p := newTestProcessor(t, src, &ocr.Fake{Text: "should never be used"})
	chunks, err := p.Process(context.Background(), "text.pdf")
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	assert.Equal(t, "text", chunks[0].Metadata["processor"])
	assert.NotContains(t, joinChunkText(chunks), "[OCR]")
}

func TestProcessBlankDocumentIsNotAnError(t *testing.T) {
	src := &render.FakeSource{
		Pages: []render.FakePage{{Text: ""}, {Text: ""}},
	}

	p := newTestProcessor(t, src, &ocr.Fake{Text: ""})
	chunks, err := p.Process(context.Background(), "blank.pdf")
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestProcessOCRFailureDegradesToText(t *testing.T) {
	// 识别引擎失败时保留残余文本，不中断整份文件
	src := &render.FakeSource{
		Pages: []render.FakePage{
			{Text: "short text"},
			{Text: strings.Repeat("long selectable text. ", 50)},
		},
	}

	p := newTestProcessor(t, src, &ocr.Fake{Err: errors.New("engine unavailable")})
	chunks, err := p.Process(context.Background(), "degraded.pdf")
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	full := joinChunkText(chunks)
	assert.Contains(t, full, "[Text]: short text")
	assert.Contains(t, full, "[Text]: long selectable text.")
}

func TestProcessOpenFailure(t *testing.T) {
	p, err := NewProcessor(document.ProcessorOptions{})
	require.NoError(t, err)
	p.opener = func(string) (render.PageSource, error) {
		return nil, errors.New("corrupt container")
	}

	_, err = p.Process(context.Background(), "broken.pdf")
	require.Error(t, err)

	var extractionErr *document.ExtractionError
	require.ErrorAs(t, err, &extractionErr)
	assert.Equal(t, "broken.pdf", extractionErr.Path)
}

func TestProcessCancellation(t *testing.T) {
	src := &render.FakeSource{
		Pages: make([]render.FakePage, 50),
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := newTestProcessor(t, src, &ocr.Fake{Text: "anything"})
	_, err := p.Process(ctx, "cancelled.pdf")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func joinChunkText(chunks []document.Chunk) string {
	parts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		parts = append(parts, c.Text)
	}
	return strings.Join(parts, "\n")
}
