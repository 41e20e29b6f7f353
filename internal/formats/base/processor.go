package base

import (
	"strings"

	"github.com/google/uuid"

	"github.com/nerdneilsfield/go-docingest/pkg/document"
)

// Processor 基础处理器，负责把各格式抽取出的文本块组装成分块序列
// 具体格式处理器内嵌本类型，只实现自己的抽取逻辑
type Processor struct {
	chunker document.Chunker
	opts    document.ProcessorOptions
}

// NewProcessor 创建基础处理器
func NewProcessor(opts document.ProcessorOptions) *Processor {
	return &Processor{
		chunker: NewRecursiveChunker(),
		opts:    opts.Normalize(),
	}
}

// Options 返回归一化后的处理器选项
func (p *Processor) Options() document.ProcessorOptions {
	return p.opts
}

// BuildChunks 将文本块列表切分并组装为带元数据的分块
// 每个分块携带 chunk_index（0..N-1 连续）与 chunk_count，
// 同一文档的所有分块共享同一个 document_id
func (p *Processor) BuildChunks(texts []string, metadata map[string]any) []document.Chunk {
	joined := strings.Join(texts, "\n")
	if strings.TrimSpace(joined) == "" {
		return []document.Chunk{}
	}

	segments := p.chunker.Split(joined, document.ChunkOptions{
		MaxSize: p.opts.ChunkSize,
		Overlap: p.opts.ChunkOverlap,
	})

	docID := uuid.NewString()
	chunks := make([]document.Chunk, 0, len(segments))

	for i, segment := range segments {
		md := make(map[string]any, len(metadata)+len(p.opts.Metadata)+3)
		for k, v := range p.opts.Metadata {
			md[k] = v
		}
		for k, v := range metadata {
			md[k] = v
		}
		md["document_id"] = docID
		md["chunk_index"] = i
		md["chunk_count"] = len(segments)

		chunks = append(chunks, document.Chunk{
			Text:     segment,
			Metadata: md,
		})
	}

	return chunks
}
