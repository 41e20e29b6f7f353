// Package text 实现纯文本处理器
// 按固定顺序尝试字符编码，检测内容是否为结构化文本（分隔符或时间戳密集），
// 结构化内容按固定行数分组而不是按段落切分
package text

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	registry "github.com/nerdneilsfield/go-docingest/internal/document"
	"github.com/nerdneilsfield/go-docingest/internal/formats/base"
	"github.com/nerdneilsfield/go-docingest/pkg/document"
)

const (
	// structuredBlockLines 结构化文本的逻辑块行数
	structuredBlockLines = 20

	// detectionSampleLines 结构检测取样的行数
	detectionSampleLines = 10
)

// timestampRegex 日志式时间戳（日期或时刻）
var timestampRegex = regexp.MustCompile(`\d{4}-\d{2}-\d{2}|\d{2}:\d{2}:\d{2}`)

// structureDelimiters 表格式文本的常见分隔符
var structureDelimiters = []string{"\t", "|", ";", ","}

// Processor 纯文本处理器
type Processor struct {
	*base.Processor
}

// NewProcessor 创建纯文本处理器
func NewProcessor(opts document.ProcessorOptions) (*Processor, error) {
	return &Processor{
		Processor: base.NewProcessor(opts),
	}, nil
}

// Format 返回处理器支持的格式
func (p *Processor) Format() document.Format {
	return document.FormatText
}

// Process 处理文件并返回有序分块
func (p *Processor) Process(ctx context.Context, filePath string) ([]document.Chunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, document.NewExtractionError(filePath, document.FormatText,
			fmt.Errorf("failed to read file: %w", err))
	}

	content, encodingName, err := decode(data)
	if err != nil {
		return nil, document.NewExtractionError(filePath, document.FormatText, err)
	}

	lines := strings.Split(content, "\n")
	paragraphs := splitParagraphs(content)

	structured := detectStructure(lines)

	var texts []string
	if structured {
		texts = groupStructuredLines(lines)
	} else {
		texts = paragraphs
	}

	if len(texts) == 0 {
		return []document.Chunk{}, nil
	}

	metadata := map[string]any{
		"source":          filePath,
		"file_type":       "text",
		"encoding":        encodingName,
		"line_count":      len(lines),
		"paragraph_count": len(paragraphs),
		"is_structured":   structured,
		"file_size":       len(data),
	}

	return p.BuildChunks(texts, metadata), nil
}

// decode 按固定顺序尝试解码：utf-8 → utf-16（带 BOM）→ latin-1
// latin-1 对任意字节序列都合法，作为兜底
func decode(data []byte) (string, string, error) {
	if utf8.Valid(data) {
		return string(data), "utf-8", nil
	}

	if hasUTF16BOM(data) {
		decoder := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()
		decoded, err := decoder.Bytes(data)
		if err == nil {
			return string(decoded), "utf-16", nil
		}
	}

	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return "", "", fmt.Errorf("could not decode file with any supported encoding: %w", err)
	}
	return string(decoded), "latin-1", nil
}

// hasUTF16BOM 检查 UTF-16 字节序标记
func hasUTF16BOM(data []byte) bool {
	return bytes.HasPrefix(data, []byte{0xFF, 0xFE}) || bytes.HasPrefix(data, []byte{0xFE, 0xFF})
}

// detectStructure 检测文本是否有一致的结构（表格式分隔符或日志式时间戳）
func detectStructure(lines []string) bool {
	if len(lines) < 3 {
		return false
	}

	sample := lines
	if len(sample) > detectionSampleLines {
		sample = sample[:detectionSampleLines]
	}

	for _, delimiter := range structureDelimiters {
		count := 0
		for _, line := range sample {
			if strings.Contains(line, delimiter) {
				count++
			}
		}
		if count > 5 {
			return true
		}
	}

	timestampLines := 0
	for _, line := range sample {
		if timestampRegex.MatchString(line) {
			timestampLines++
		}
	}
	return timestampLines > 3
}

// groupStructuredLines 将结构化文本按逻辑块分组
// 空行作为块边界，超过固定行数也强制分块
func groupStructuredLines(lines []string) []string {
	blocks := make([]string, 0)
	current := make([]string, 0, structuredBlockLines)

	flush := func() {
		if len(current) > 0 {
			blocks = append(blocks, strings.Join(current, "\n"))
			current = current[:0]
		}
	}

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			flush()
			continue
		}
		current = append(current, line)
		if len(current) >= structuredBlockLines {
			flush()
		}
	}
	flush()

	return blocks
}

// splitParagraphs 按空行切分段落
func splitParagraphs(content string) []string {
	parts := strings.Split(content, "\n\n")
	paragraphs := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			paragraphs = append(paragraphs, trimmed)
		}
	}
	return paragraphs
}

// Factory 创建纯文本处理器的工厂函数
func Factory(opts document.ProcessorOptions) (document.Processor, error) {
	return NewProcessor(opts)
}

// init 注册纯文本处理器
func init() {
	_ = registry.Register(document.FormatText, Factory)
	registry.RegisterExtension(".txt", document.FormatText)
	registry.RegisterExtension(".text", document.FormatText)
	registry.RegisterExtension(".log", document.FormatText)
}
