// Package document 定义了文档摄取管线的公共数据模型
// 包括分块（Chunk）、格式标识、处理器接口和错误类型
package document

import (
	"context"
	"image"

	"go.uber.org/zap"
)

// Format 文档格式标识
type Format string

const (
	// FormatPDF 页式文档（.pdf）
	FormatPDF Format = "pdf"
	// FormatDocx 字处理文档（.docx）
	FormatDocx Format = "docx"
	// FormatPptx 演示文稿（.ppt, .pptx）
	FormatPptx Format = "powerpoint"
	// FormatSpreadsheet 电子表格（.xlsx, .csv）
	FormatSpreadsheet Format = "spreadsheet"
	// FormatMarkdown 标记文本（.md）
	FormatMarkdown Format = "markdown"
	// FormatText 纯文本（.txt）
	FormatText Format = "text"
	// FormatSQLite 表格数据库（.db, .sqlite）
	FormatSQLite Format = "database"
)

// Chunk 一个带元数据的文本分块，是交给下游索引的最小单元
// 创建后不可变，所有权完全转移给调用方
type Chunk struct {
	// Text 分块文本内容
	Text string `json:"text"`

	// Metadata 元数据映射
	// 公共键：source、file_type、document_id、chunk_index、chunk_count
	// 各格式处理器会补充自己的键（page_count、total_slides 等）
	Metadata map[string]any `json:"metadata"`
}

// ChunkOptions 分块配置
type ChunkOptions struct {
	// MaxSize 单个分块的最大字符数
	MaxSize int

	// Overlap 相邻分块之间共享的字符数
	Overlap int
}

// DefaultChunkSize 默认分块大小（字符数）
const DefaultChunkSize = 1000

// DefaultChunkOverlap 默认分块重叠（字符数）
const DefaultChunkOverlap = 200

// Token 识别引擎输出的单个词元及其置信度
type Token struct {
	Text       string
	Confidence float64
}

// Recognizer 光学字符识别引擎的最小接口
// 以显式句柄传入处理器，测试可以替换为假实现而无需改动进程级状态
type Recognizer interface {
	// Recognize 识别整幅图像，返回全部文本
	Recognize(ctx context.Context, img image.Image) (string, error)

	// RecognizeTokens 识别图像并返回带置信度的词元
	RecognizeTokens(ctx context.Context, img image.Image) ([]Token, error)
}

// Processor 格式处理器的核心接口
// 每个文档家族一个实现，除分块配置外无状态
type Processor interface {
	// Process 处理文件并返回有序分块
	// 结构合法但内容为空的文件返回空切片而不是错误
	Process(ctx context.Context, filePath string) ([]Chunk, error)

	// Format 返回处理器支持的格式
	Format() Format
}

// ProcessorFactory 处理器工厂函数
type ProcessorFactory func(opts ProcessorOptions) (Processor, error)

// ProcessorOptions 处理器选项
type ProcessorOptions struct {
	// ChunkSize 分块大小，<=0 时使用 DefaultChunkSize
	ChunkSize int

	// ChunkOverlap 分块重叠，<=0 时使用 DefaultChunkOverlap
	ChunkOverlap int

	// OCR 识别引擎，nil 时跳过所有识别路径（只取机读文本）
	OCR Recognizer

	// Concurrency 页级并行度，<=0 时由处理器自行决定
	Concurrency int

	// Tables 表格数据库处理器的显式表名列表，nil 时枚举全部表
	Tables []string

	// Metadata 附加到每个分块的额外元数据
	Metadata map[string]any

	// Logger 诊断日志，nil 时使用 zap.NewNop()
	Logger *zap.Logger
}

// Normalize 填充选项的默认值
func (o ProcessorOptions) Normalize() ProcessorOptions {
	if o.ChunkSize <= 0 {
		o.ChunkSize = DefaultChunkSize
	}
	if o.ChunkOverlap <= 0 {
		o.ChunkOverlap = DefaultChunkOverlap
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// Chunker 文本分块器接口
type Chunker interface {
	// Split 将文本切分为有序片段，每段不超过 opts.MaxSize
	Split(text string, opts ChunkOptions) []string
}
