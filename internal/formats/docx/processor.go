// Package docx 实现字处理文档处理器
// 直接从 OOXML 压缩包解析 word/document.xml，不依赖外部办公组件
package docx

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	registry "github.com/nerdneilsfield/go-docingest/internal/document"
	"github.com/nerdneilsfield/go-docingest/internal/formats/base"
	"github.com/nerdneilsfield/go-docingest/pkg/document"
)

// Processor 字处理文档处理器
type Processor struct {
	*base.Processor
}

// NewProcessor 创建字处理文档处理器
func NewProcessor(opts document.ProcessorOptions) (*Processor, error) {
	return &Processor{
		Processor: base.NewProcessor(opts),
	}, nil
}

// Format 返回处理器支持的格式
func (p *Processor) Format() document.Format {
	return document.FormatDocx
}

// Process 处理文件并返回有序分块
// 先按文档顺序抽取正文段落，再抽取表格（行内单元格以 " | " 连接）
func (p *Processor) Process(ctx context.Context, filePath string) ([]document.Chunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	paragraphs, tableLines, tableCount, err := extractDocument(filePath)
	if err != nil {
		return nil, document.NewExtractionError(filePath, document.FormatDocx, err)
	}

	texts := make([]string, 0, len(paragraphs)+len(tableLines))
	texts = append(texts, paragraphs...)
	texts = append(texts, tableLines...)

	if len(texts) == 0 {
		return []document.Chunk{}, nil
	}

	metadata := map[string]any{
		"source":          filePath,
		"filename":        filepath.Base(filePath),
		"file_type":       "docx",
		"paragraph_count": len(paragraphs),
		"table_count":     tableCount,
	}

	return p.BuildChunks(texts, metadata), nil
}

// extractDocument 流式解析 word/document.xml
// 表格内的段落归入单元格文本，不重复算作正文段落
func extractDocument(path string) (paragraphs, tableLines []string, tableCount int, err error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("failed to open archive: %w", err)
	}
	defer r.Close()

	var docFile *zip.File
	for _, f := range r.File {
		if f.Name == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return nil, nil, 0, fmt.Errorf("word/document.xml not found in archive")
	}

	rc, err := docFile.Open()
	if err != nil {
		return nil, nil, 0, fmt.Errorf("failed to open document.xml: %w", err)
	}
	defer rc.Close()

	decoder := xml.NewDecoder(rc)

	var currentText strings.Builder
	var cellText strings.Builder
	var currentRow []string
	var inParagraph bool
	var inCell bool
	tableDepth := 0

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, 0, fmt.Errorf("failed to parse document.xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "tbl":
				tableDepth++
			case "tr":
				if tableDepth > 0 {
					currentRow = currentRow[:0]
				}
			case "tc":
				inCell = true
				cellText.Reset()
			case "p":
				if tableDepth == 0 {
					inParagraph = true
					currentText.Reset()
				}
			}

		case xml.CharData:
			if inCell {
				cellText.Write(t)
			} else if inParagraph {
				currentText.Write(t)
			}

		case xml.EndElement:
			switch t.Name.Local {
			case "tbl":
				tableDepth--
				tableCount++
			case "tr":
				if tableDepth > 0 && len(currentRow) > 0 {
					tableLines = append(tableLines, strings.Join(currentRow, " | "))
				}
			case "tc":
				inCell = false
				if text := strings.TrimSpace(cellText.String()); text != "" {
					currentRow = append(currentRow, text)
				}
			case "p":
				if inCell {
					// 单元格内的段落边界折算成空格
					cellText.WriteByte(' ')
				} else if tableDepth == 0 && inParagraph {
					inParagraph = false
					if text := strings.TrimSpace(currentText.String()); text != "" {
						paragraphs = append(paragraphs, text)
					}
				}
			}
		}
	}

	return paragraphs, tableLines, tableCount, nil
}

// Factory 创建字处理文档处理器的工厂函数
func Factory(opts document.ProcessorOptions) (document.Processor, error) {
	return NewProcessor(opts)
}

// init 注册字处理文档处理器
func init() {
	_ = registry.Register(document.FormatDocx, Factory)
	registry.RegisterExtension(".docx", document.FormatDocx)
}
