// Package pptx 实现演示文稿处理器
// 从 OOXML 压缩包解析 ppt/slides/slideN.xml，逐页抽取形状文本；
// 对内嵌图片执行字符识别，将识别文本以 [Image OCR] 行内标注并入同一文本流
package pptx

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	registry "github.com/nerdneilsfield/go-docingest/internal/document"
	"github.com/nerdneilsfield/go-docingest/internal/formats/base"
	"github.com/nerdneilsfield/go-docingest/pkg/document"
)

// slideFileRegex 匹配幻灯片文件名并捕获序号
var slideFileRegex = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

// Processor 演示文稿处理器
type Processor struct {
	*base.Processor
	ocr    document.Recognizer
	logger *zap.Logger
}

// NewProcessor 创建演示文稿处理器
func NewProcessor(opts document.ProcessorOptions) (*Processor, error) {
	opts = opts.Normalize()
	return &Processor{
		Processor: base.NewProcessor(opts),
		ocr:       opts.OCR,
		logger:    opts.Logger,
	}, nil
}

// Format 返回处理器支持的格式
func (p *Processor) Format() document.Format {
	return document.FormatPptx
}

// slideEntry 压缩包中的一张幻灯片
type slideEntry struct {
	num  int
	file *zip.File
}

// Process 处理文件并返回有序分块
func (p *Processor) Process(ctx context.Context, filePath string) ([]document.Chunk, error) {
	r, err := zip.OpenReader(filePath)
	if err != nil {
		return nil, document.NewExtractionError(filePath, document.FormatPptx,
			fmt.Errorf("failed to open archive: %w", err))
	}
	defer r.Close()

	slides, media := indexArchive(&r.Reader)
	if len(slides) == 0 {
		return []document.Chunk{}, nil
	}

	texts := make([]string, 0, len(slides))
	imagesFound := 0

	for _, slide := range slides {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		shapeTexts, imageRefs, err := parseSlide(&r.Reader, slide.file)
		if err != nil {
			return nil, document.NewExtractionError(filePath, document.FormatPptx,
				fmt.Errorf("failed to parse slide %d: %w", slide.num, err))
		}

		// 对引用的内嵌图片做字符识别；单张图片失败只跳过该图片
		for _, ref := range imageRefs {
			ocrText, err := p.recognizeImage(ctx, media, slide.num, ref)
			if err != nil {
				p.logger.Debug("slide image recognition skipped",
					zap.String("file", filePath),
					zap.Int("slide", slide.num),
					zap.Error(err))
				continue
			}
			if ocrText != "" {
				shapeTexts = append(shapeTexts, "[Image OCR]: "+ocrText)
				imagesFound++
			}
		}

		if len(shapeTexts) > 0 {
			texts = append(texts, fmt.Sprintf("Slide %d:\n%s", slide.num, strings.Join(shapeTexts, "\n")))
		}
	}

	if len(texts) == 0 {
		return []document.Chunk{}, nil
	}

	metadata := map[string]any{
		"source":       filePath,
		"file_type":    "powerpoint",
		"total_slides": len(slides),
		"images_found": imagesFound,
	}

	return p.BuildChunks(texts, metadata), nil
}

// recognizeImage 解码并识别单张内嵌图片
func (p *Processor) recognizeImage(ctx context.Context, media map[string][]byte, slideNum int, ref imageRef) (string, error) {
	if p.ocr == nil {
		return "", nil
	}

	target := resolveMediaTarget(ref.target)
	data, ok := media[target]
	if !ok {
		return "", fmt.Errorf("media %s not found", target)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to decode media %s: %w", target, err)
	}

	text, err := p.ocr.Recognize(ctx, img)
	if err != nil {
		return "", fmt.Errorf("recognition failed on slide %d: %w", slideNum, err)
	}
	return strings.TrimSpace(text), nil
}

// indexArchive 列出幻灯片（按序号排序）和媒体文件内容
func indexArchive(r *zip.Reader) ([]slideEntry, map[string][]byte) {
	slides := make([]slideEntry, 0)
	media := make(map[string][]byte)

	for _, f := range r.File {
		if m := slideFileRegex.FindStringSubmatch(f.Name); m != nil {
			num, _ := strconv.Atoi(m[1])
			slides = append(slides, slideEntry{num: num, file: f})
			continue
		}
		if strings.HasPrefix(f.Name, "ppt/media/") {
			rc, err := f.Open()
			if err != nil {
				continue
			}
			data, err := io.ReadAll(rc)
			rc.Close()
			if err != nil {
				continue
			}
			media[f.Name] = data
		}
	}

	sort.Slice(slides, func(i, j int) bool { return slides[i].num < slides[j].num })
	return slides, media
}

// imageRef 幻灯片对图片的引用
type imageRef struct {
	target string
}

// parseSlide 抽取一张幻灯片的形状文本和图片引用
// 形状边界（sp 元素）之间的文本运行合并为一条
func parseSlide(archive *zip.Reader, f *zip.File) ([]string, []imageRef, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", f.Name, err)
	}
	defer rc.Close()

	// 图片引用通过关系 id 指向媒体文件
	relTargets, err := parseRels(archive, f.Name)
	if err != nil {
		return nil, nil, err
	}

	decoder := xml.NewDecoder(rc)

	var shapeTexts []string
	var imageRefs []imageRef
	var shapeText strings.Builder
	var inText bool
	shapeDepth := 0

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to parse %s: %w", f.Name, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "sp":
				shapeDepth++
				if shapeDepth == 1 {
					shapeText.Reset()
				}
			case "t":
				inText = true
			case "blip":
				for _, attr := range t.Attr {
					if attr.Name.Local == "embed" {
						if target, ok := relTargets[attr.Value]; ok {
							imageRefs = append(imageRefs, imageRef{target: target})
						}
					}
				}
			}

		case xml.CharData:
			if inText {
				shapeText.Write(t)
			}

		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
				shapeText.WriteByte('\n')
			case "sp":
				shapeDepth--
				if shapeDepth == 0 {
					if text := strings.TrimSpace(shapeText.String()); text != "" {
						shapeTexts = append(shapeTexts, text)
					}
				}
			}
		}
	}

	return shapeTexts, imageRefs, nil
}

// parseRels 解析幻灯片的关系文件，返回关系 id 到目标路径的映射
// 没有关系文件的纯文本幻灯片返回空映射
func parseRels(archive *zip.Reader, slideName string) (map[string]string, error) {
	relName := path.Join("ppt/slides/_rels", path.Base(slideName)+".rels")

	targets := make(map[string]string)

	var relFile *zip.File
	for _, f := range archive.File {
		if f.Name == relName {
			relFile = f
			break
		}
	}
	if relFile == nil {
		return targets, nil
	}

	rc, err := relFile.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", relName, err)
	}
	defer rc.Close()

	var rels struct {
		Relationships []struct {
			ID     string `xml:"Id,attr"`
			Target string `xml:"Target,attr"`
		} `xml:"Relationship"`
	}
	if err := xml.NewDecoder(rc).Decode(&rels); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", relName, err)
	}

	for _, rel := range rels.Relationships {
		targets[rel.ID] = rel.Target
	}
	return targets, nil
}

// resolveMediaTarget 将关系目标（如 ../media/image1.png）归一化为压缩包内路径
func resolveMediaTarget(target string) string {
	if strings.HasPrefix(target, "../") {
		return "ppt/" + strings.TrimPrefix(target, "../")
	}
	return path.Join("ppt/slides", target)
}

// Factory 创建演示文稿处理器的工厂函数
func Factory(opts document.ProcessorOptions) (document.Processor, error) {
	return NewProcessor(opts)
}

// init 注册演示文稿处理器
func init() {
	_ = registry.Register(document.FormatPptx, Factory)
	registry.RegisterExtension(".pptx", document.FormatPptx)
	registry.RegisterExtension(".ppt", document.FormatPptx)
}
