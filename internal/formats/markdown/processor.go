// Package markdown 实现标记文本处理器
// 用 goldmark 解析为语法树，按标题边界切出章节，抽取文档级 front-matter
package markdown

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/yuin/goldmark"
	meta "github.com/yuin/goldmark-meta"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/parser"
	gtext "github.com/yuin/goldmark/text"

	registry "github.com/nerdneilsfield/go-docingest/internal/document"
	"github.com/nerdneilsfield/go-docingest/internal/formats/base"
	"github.com/nerdneilsfield/go-docingest/pkg/document"
)

// Processor 标记文本处理器
type Processor struct {
	*base.Processor
	md goldmark.Markdown
}

// NewProcessor 创建标记文本处理器
func NewProcessor(opts document.ProcessorOptions) (*Processor, error) {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			meta.Meta,
		),
	)

	return &Processor{
		Processor: base.NewProcessor(opts),
		md:        md,
	}, nil
}

// Format 返回处理器支持的格式
func (p *Processor) Format() document.Format {
	return document.FormatMarkdown
}

// Process 处理文件并返回有序分块
func (p *Processor) Process(ctx context.Context, filePath string) ([]document.Chunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	source, err := os.ReadFile(filePath)
	if err != nil {
		return nil, document.NewExtractionError(filePath, document.FormatMarkdown,
			fmt.Errorf("failed to read file: %w", err))
	}

	pctx := parser.NewContext()
	root := p.md.Parser().Parse(gtext.NewReader(source), parser.WithContext(pctx))

	frontMatter := meta.Get(pctx)
	if frontMatter == nil {
		frontMatter = map[string]any{}
	}

	sections, stats := collectSections(root, source)

	// 没有标题时回退为整篇文本
	if len(sections) == 0 {
		whole := strings.TrimSpace(nodeText(root, source))
		if whole != "" {
			sections = []string{whole}
		}
	}

	if len(sections) == 0 {
		return []document.Chunk{}, nil
	}

	metadata := map[string]any{
		"source":         filePath,
		"file_type":      "markdown",
		"headings_count": stats.headings,
		"front_matter":   frontMatter,
		"has_tables":     stats.tables > 0,
		"has_lists":      stats.lists > 0,
	}

	return p.BuildChunks(sections, metadata), nil
}

// sectionStats 解析过程中收集的结构统计
type sectionStats struct {
	headings int
	tables   int
	lists    int
}

// collectSections 按标题边界把顶层块切成章节
// 首个标题之前的内容作为无标题章节保留
func collectSections(root ast.Node, source []byte) ([]string, sectionStats) {
	var stats sectionStats
	sections := make([]string, 0)

	currentHeading := ""
	content := make([]string, 0)

	flush := func() {
		body := strings.TrimSpace(strings.Join(content, "\n"))
		if currentHeading == "" && body == "" {
			return
		}
		if body == "" {
			sections = append(sections, currentHeading)
			return
		}
		if currentHeading == "" {
			sections = append(sections, body)
			return
		}
		sections = append(sections, currentHeading+"\n"+body)
	}

	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		switch t := n.(type) {
		case *ast.Heading:
			flush()
			stats.headings++
			currentHeading = strings.TrimSpace(nodeText(t, source))
			content = content[:0]
		case *ast.List:
			stats.lists++
			if text := strings.TrimSpace(nodeText(n, source)); text != "" {
				content = append(content, text)
			}
		case *east.Table:
			stats.tables++
			if text := strings.TrimSpace(nodeText(n, source)); text != "" {
				content = append(content, text)
			}
		default:
			if text := strings.TrimSpace(nodeText(n, source)); text != "" {
				content = append(content, text)
			}
		}
	}
	flush()

	if stats.headings == 0 {
		// 调用方据此决定是否回退整篇
		return nil, stats
	}
	return sections, stats
}

// nodeText 递归抽取节点的纯文本
func nodeText(n ast.Node, source []byte) string {
	var sb strings.Builder
	writeNodeText(&sb, n, source)
	return sb.String()
}

func writeNodeText(sb *strings.Builder, n ast.Node, source []byte) {
	switch t := n.(type) {
	case *ast.Text:
		sb.Write(t.Segment.Value(source))
		if t.SoftLineBreak() || t.HardLineBreak() {
			sb.WriteByte('\n')
		}
	case *ast.String:
		sb.Write(t.Value)
	case *ast.FencedCodeBlock:
		writeLines(sb, t, source)
	case *ast.CodeBlock:
		writeLines(sb, t, source)
	case *east.TableCell:
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			writeNodeText(sb, c, source)
		}
		sb.WriteString(" | ")
	default:
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			writeNodeText(sb, c, source)
			if c.Type() == ast.TypeBlock {
				sb.WriteByte('\n')
			}
		}
	}
}

// writeLines 输出代码块的原始行
func writeLines(sb *strings.Builder, n ast.Node, source []byte) {
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		sb.Write(seg.Value(source))
	}
}

// Factory 创建标记文本处理器的工厂函数
func Factory(opts document.ProcessorOptions) (document.Processor, error) {
	return NewProcessor(opts)
}

// init 注册标记文本处理器
func init() {
	_ = registry.Register(document.FormatMarkdown, Factory)
	registry.RegisterExtension(".md", document.FormatMarkdown)
	registry.RegisterExtension(".markdown", document.FormatMarkdown)
}
