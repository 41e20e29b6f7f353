package multimodal

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nerdneilsfield/go-docingest/internal/config"
	"github.com/nerdneilsfield/go-docingest/internal/render"
	"github.com/nerdneilsfield/go-docingest/pkg/document"
)

// Extractor 多模态提取编排器
// 先并行跑两路表格检测，合并候选后再提取内嵌图片，
// 任一路检测失败只记录跳过原因，不影响其余结果
type Extractor struct {
	opener render.Opener
	ocr    document.Recognizer
	cfg    *config.Config
	logger *zap.Logger
}

// NewExtractor 创建多模态提取编排器
func NewExtractor(ocr document.Recognizer, cfg *config.Config, logger *zap.Logger) *Extractor {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{
		opener: render.Open,
		ocr:    ocr,
		cfg:    cfg,
		logger: logger,
	}
}

// Extract 对 PDF 执行完整的多模态提取
// 两路表格检测与图片提取各自持有独立文件句柄，三个阶段并发执行
func (e *Extractor) Extract(ctx context.Context, filePath string) (*Result, error) {
	if _, err := os.Stat(filePath); err != nil {
		return nil, document.NewExtractionError(filePath, document.FormatPDF,
			fmt.Errorf("failed to stat file: %w", err))
	}

	var (
		mu         sync.Mutex
		candidates []TableCandidate
		images     []ImageRecord
		allSkips   []document.SkipReason
	)
	collect := func(found []TableCandidate, skips []document.SkipReason) {
		mu.Lock()
		candidates = append(candidates, found...)
		allSkips = append(allSkips, skips...)
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		collect(e.geometryCandidates(filePath))
		return gctx.Err()
	})

	g.Go(func() error {
		collect(e.lineworkCandidates(gctx, filePath))
		return gctx.Err()
	})

	g.Go(func() error {
		found, skips, err := ExtractImages(gctx, filePath, e.ocr, e.cfg.Detection, e.cfg.OCR.MinTokenConfidence)
		if err != nil {
			if cerr := gctx.Err(); cerr != nil {
				return cerr
			}
			skips = append(skips, document.SkipReason{Stage: "image-extract", Err: err})
		}
		mu.Lock()
		images = append(images, found...)
		allSkips = append(allSkips, skips...)
		mu.Unlock()
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &Result{
		Tables: MergeCandidates(candidates),
		Images: images,
		Skips:  allSkips,
	}

	for _, skip := range result.Skips {
		e.logger.Debug("多模态阶段跳过",
			zap.Int("page", skip.Page),
			zap.String("stage", skip.Stage),
			zap.Error(skip.Err))
	}

	result.Blocks = result.EnrichedBlocks()
	result.Summary = buildSummary(result.Tables, result.Images)
	return result, nil
}

// geometryCandidates 对每页跑文本几何检测
// 底层解析库对畸形文件会 panic，统一转为跳过原因
func (e *Extractor) geometryCandidates(filePath string) (candidates []TableCandidate, skips []document.SkipReason) {
	defer func() {
		if r := recover(); r != nil {
			skips = append(skips, document.SkipReason{
				Stage: "table-geometry",
				Err:   fmt.Errorf("panic while parsing pdf: %v", r),
			})
		}
	}()

	f, reader, err := pdf.Open(filePath)
	if err != nil {
		skips = append(skips, document.SkipReason{
			Stage: "table-geometry",
			Err:   fmt.Errorf("failed to open pdf: %w", err),
		})
		return candidates, skips
	}
	defer f.Close()

	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		lines := PageLines(page, e.cfg.Detection.PositionGrid)
		candidates = append(candidates, DetectGeometry(i, lines, e.cfg.Detection)...)
	}
	return candidates, skips
}

// lineworkCandidates 并行栅格化每页并跑线框检测
func (e *Extractor) lineworkCandidates(ctx context.Context, filePath string) ([]TableCandidate, []document.SkipReason) {
	src, err := e.opener(filePath)
	if err != nil {
		return nil, []document.SkipReason{{
			Stage: "table-linework",
			Err:   fmt.Errorf("failed to open document for rendering: %w", err),
		}}
	}
	defer src.Close()

	var (
		mu         sync.Mutex
		candidates []TableCandidate
		skips      []document.SkipReason
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Concurrency)

	for i := 0; i < src.NumPages(); i++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			pageNum := i + 1

			img, err := src.Render(i, lineworkDPI)
			if err != nil {
				mu.Lock()
				skips = append(skips, document.SkipReason{
					Page:  pageNum,
					Stage: "table-linework",
					Err:   fmt.Errorf("failed to render page: %w", err),
				})
				mu.Unlock()
				return nil
			}

			found, pageSkips := DetectLinework(gctx, img, pageNum, e.ocr, e.cfg.Detection)

			mu.Lock()
			candidates = append(candidates, found...)
			skips = append(skips, pageSkips...)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		skips = append(skips, document.SkipReason{
			Stage: "table-linework",
			Err:   err,
		})
	}
	return candidates, skips
}

// buildSummary 汇总全文档的表格与图片统计
func buildSummary(tables []TableCandidate, images []ImageRecord) Summary {
	summary := Summary{
		TotalTables: len(tables),
		TotalImages: len(images),
		ImageTypes:  make(map[ImageClass]int),
	}

	tablePages := make(map[int]struct{})
	for _, t := range tables {
		tablePages[t.Page] = struct{}{}
	}
	imagePages := make(map[int]struct{})
	for _, img := range images {
		imagePages[img.Page] = struct{}{}
		summary.ImageTypes[img.Class]++
		if img.Text != "" {
			summary.ImagesWithText++
		}
	}

	summary.PagesWithTables = sortedPages(tablePages)
	summary.PagesWithImages = sortedPages(imagePages)
	return summary
}

func sortedPages(pages map[int]struct{}) []int {
	out := make([]int, 0, len(pages))
	for p := range pages {
		out = append(out, p)
	}
	sort.Ints(out)
	return out
}
