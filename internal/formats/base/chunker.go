// Package base 提供各格式处理器共享的分块与组装逻辑
package base

import (
	"strings"
	"unicode/utf8"

	"github.com/nerdneilsfield/go-docingest/pkg/document"
)

// defaultSeparators 递归分块的边界层级：段落 → 行 → 句子 → 词 → 字符
var defaultSeparators = []string{"\n\n", "\n", ". ", "。", "！", "？", "! ", "? ", " ", ""}

// RecursiveChunker 递归文本分块器
// 优先在最大的语义边界上切分，保证每段不超过最大长度，
// 相邻分块共享尾部内容以保留跨界上下文
type RecursiveChunker struct {
	separators []string
}

// NewRecursiveChunker 创建递归分块器
func NewRecursiveChunker() *RecursiveChunker {
	return &RecursiveChunker{
		separators: defaultSeparators,
	}
}

// Split 将文本切分为有序片段
// 确定性：相同输入和配置总是得到相同的切分
func (c *RecursiveChunker) Split(text string, opts document.ChunkOptions) []string {
	if opts.MaxSize <= 0 {
		if strings.TrimSpace(text) == "" {
			return nil
		}
		return []string{text}
	}

	overlap := opts.Overlap
	if overlap >= opts.MaxSize {
		// 重叠不能吞掉整个分块
		overlap = opts.MaxSize / 2
	}

	// 退化情形：整体不超限时返回单段
	if utf8.RuneCountInString(text) <= opts.MaxSize {
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			return nil
		}
		return []string{trimmed}
	}

	pieces := c.splitRecursive(text, opts.MaxSize, c.separators)
	return c.merge(pieces, opts.MaxSize, overlap)
}

// splitRecursive 按边界层级切分，直到每个片段都不超过 maxSize
func (c *RecursiveChunker) splitRecursive(text string, maxSize int, separators []string) []string {
	if utf8.RuneCountInString(text) <= maxSize {
		return []string{text}
	}

	if len(separators) == 0 {
		return splitRunes(text, maxSize)
	}

	sep := separators[0]
	rest := separators[1:]

	if sep == "" {
		return splitRunes(text, maxSize)
	}

	parts := strings.SplitAfter(text, sep)
	if len(parts) == 1 {
		// 当前边界不存在，下探更小的边界
		return c.splitRecursive(text, maxSize, rest)
	}

	pieces := make([]string, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			continue
		}
		if utf8.RuneCountInString(part) > maxSize {
			pieces = append(pieces, c.splitRecursive(part, maxSize, rest)...)
		} else {
			pieces = append(pieces, part)
		}
	}
	return pieces
}

// merge 将片段滑动合并为分块，并在相邻分块之间保留 overlap 个字符的共享内容
func (c *RecursiveChunker) merge(pieces []string, maxSize, overlap int) []string {
	chunks := make([]string, 0)
	window := make([]string, 0)
	windowLen := 0

	flush := func() {
		joined := strings.TrimSpace(strings.Join(window, ""))
		if joined != "" {
			chunks = append(chunks, joined)
		}
	}

	for _, piece := range pieces {
		pieceLen := utf8.RuneCountInString(piece)

		if windowLen+pieceLen > maxSize && windowLen > 0 {
			flush()

			// 从窗口头部弹出，直到剩余长度落入重叠区
			for windowLen > overlap || (windowLen+pieceLen > maxSize && windowLen > 0) {
				windowLen -= utf8.RuneCountInString(window[0])
				window = window[1:]
			}
		}

		window = append(window, piece)
		windowLen += pieceLen
	}

	if windowLen > 0 {
		flush()
	}

	return chunks
}

// splitRunes 字符级兜底切分
func splitRunes(text string, maxSize int) []string {
	runes := []rune(text)
	pieces := make([]string, 0, len(runes)/maxSize+1)
	for start := 0; start < len(runes); start += maxSize {
		end := start + maxSize
		if end > len(runes) {
			end = len(runes)
		}
		pieces = append(pieces, string(runes[start:end]))
	}
	return pieces
}
