// Package pdf 实现页式文档处理器
// 每页先尝试机读文本抽取，文本不足时以 2 倍分辨率栅格化并做字符识别
package pdf

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nerdneilsfield/go-docingest/internal/config"
	registry "github.com/nerdneilsfield/go-docingest/internal/document"
	"github.com/nerdneilsfield/go-docingest/internal/formats/base"
	"github.com/nerdneilsfield/go-docingest/internal/render"
	"github.com/nerdneilsfield/go-docingest/pkg/document"
)

// ocrDPI 识别回退的栅格化分辨率（原生 72 DPI 的 2 倍）
const ocrDPI = 2 * render.NativeDPI

// Processor 页式文档处理器
type Processor struct {
	*base.Processor
	opener        render.Opener
	ocr           document.Recognizer
	minTextLength int
	concurrency   int
	logger        *zap.Logger
}

// NewProcessor 创建页式文档处理器
func NewProcessor(opts document.ProcessorOptions) (*Processor, error) {
	opts = opts.Normalize()

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = config.Default().Concurrency
	}

	return &Processor{
		Processor:     base.NewProcessor(opts),
		opener:        render.Open,
		ocr:           opts.OCR,
		minTextLength: config.Default().Detection.MinTextLength,
		concurrency:   concurrency,
		logger:        opts.Logger,
	}, nil
}

// Format 返回处理器支持的格式
func (p *Processor) Format() document.Format {
	return document.FormatPDF
}

// pageResult 单页的抽取结果
type pageResult struct {
	content []string
	ocrUsed bool
}

// Process 处理文件并返回有序分块
// 空白页不产出内容也不报错；只有容器结构无法打开时才返回 ExtractionError
func (p *Processor) Process(ctx context.Context, filePath string) ([]document.Chunk, error) {
	src, err := p.opener(filePath)
	if err != nil {
		return nil, document.NewExtractionError(filePath, document.FormatPDF, err)
	}
	defer src.Close()

	numPages := src.NumPages()
	results := make([]pageResult, numPages)

	var mu sync.Mutex
	skips := make([]document.SkipReason, 0)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	for i := 0; i < numPages; i++ {
		page := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			result, skip := p.processPage(gctx, src, page)
			results[page] = result

			if skip != nil {
				mu.Lock()
				skips = append(skips, *skip)
				mu.Unlock()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, document.NewExtractionError(filePath, document.FormatPDF, err)
	}

	for _, skip := range skips {
		p.logger.Debug("page extraction degraded",
			zap.String("file", filePath),
			zap.Int("page", skip.Page),
			zap.String("stage", skip.Stage),
			zap.Error(skip.Err))
	}

	// 按页序拼接非空页
	texts := make([]string, 0, numPages)
	ocrUsed := false
	for i, result := range results {
		if len(result.content) == 0 {
			continue
		}
		texts = append(texts, fmt.Sprintf("[Page %d]\n%s", i+1, strings.Join(result.content, "\n")))
		if result.ocrUsed {
			ocrUsed = true
		}
	}

	if len(texts) == 0 {
		return []document.Chunk{}, nil
	}

	variant := "text"
	if ocrUsed {
		variant = "ocr-augmented"
	}

	metadata := map[string]any{
		"source":     filePath,
		"filename":   filepath.Base(filePath),
		"file_type":  "pdf",
		"page_count": len(texts),
		"processor":  variant,
	}

	return p.BuildChunks(texts, metadata), nil
}

// processPage 抽取单页内容
// 机读文本超过阈值时直接采用；否则栅格化后识别，两种来源共存时都保留并各自标注出处
func (p *Processor) processPage(ctx context.Context, src render.PageSource, page int) (pageResult, *document.SkipReason) {
	text, err := src.Text(page)
	if err != nil {
		text = ""
	}
	text = strings.TrimSpace(text)

	if utf8.RuneCountInString(text) > p.minTextLength {
		return pageResult{content: []string{"[Text]: " + text}}, nil
	}

	// 文本不足，尝试识别回退
	if p.ocr != nil {
		result, skip := p.ocrPage(ctx, src, page)
		if skip == nil {
			if text != "" {
				result.content = append(result.content, "[Text]: "+text)
			}
			if len(result.content) > 0 {
				return result, nil
			}
			return pageResult{}, nil
		}

		// 识别失败降级为仅文本
		if text != "" {
			return pageResult{content: []string{"[Text]: " + text}}, skip
		}
		return pageResult{}, skip
	}

	if text != "" {
		return pageResult{content: []string{"[Text]: " + text}}, nil
	}
	return pageResult{}, nil
}

// ocrPage 栅格化并识别单页
func (p *Processor) ocrPage(ctx context.Context, src render.PageSource, page int) (pageResult, *document.SkipReason) {
	img, err := src.Render(page, ocrDPI)
	if err != nil {
		return pageResult{}, &document.SkipReason{Page: page + 1, Stage: "render", Err: err}
	}

	ocrText, err := p.ocr.Recognize(ctx, img)
	if err != nil {
		return pageResult{}, &document.SkipReason{Page: page + 1, Stage: "ocr", Err: err}
	}

	ocrText = strings.TrimSpace(ocrText)
	if ocrText == "" {
		return pageResult{}, nil
	}

	return pageResult{content: []string{"[OCR]: " + ocrText}, ocrUsed: true}, nil
}

// Factory 创建页式文档处理器的工厂函数
func Factory(opts document.ProcessorOptions) (document.Processor, error) {
	return NewProcessor(opts)
}

// init 注册页式文档处理器
func init() {
	_ = registry.Register(document.FormatPDF, Factory)
	registry.RegisterExtension(".pdf", document.FormatPDF)
}
