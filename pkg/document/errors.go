package document

import (
	"fmt"
)

// UnsupportedFormatError 工厂收到未注册的文件类型
// 对该文件致命，对批处理不致命
type UnsupportedFormatError struct {
	// Ext 未识别的扩展名（含点号，已小写）
	Ext string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported file type: %s", e.Ext)
}

// ExtractionError 处理器无法解析输入的顶层结构
// 携带源路径和底层原因，调用方可以据此决定降级或跳过
type ExtractionError struct {
	Path   string
	Format Format
	Err    error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("failed to process %s file %s: %v", e.Format, e.Path, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// NewExtractionError 包装处理器内部错误
func NewExtractionError(path string, format Format, err error) *ExtractionError {
	return &ExtractionError{Path: path, Format: format, Err: err}
}

// SkipReason 非致命的局部失败记录
// 某一页、某个表格候选或某张图片没有产出内容，但文件整体成功
// 聚合阶段收集这些记录供诊断，而不是静默丢弃
type SkipReason struct {
	// Page 源文档中的页号（1 起），0 表示与页无关
	Page int

	// Stage 失败发生的阶段（"ocr"、"render"、"image"、"table" 等）
	Stage string

	// Err 底层原因
	Err error
}

func (s SkipReason) String() string {
	if s.Page > 0 {
		return fmt.Sprintf("page %d: %s: %v", s.Page, s.Stage, s.Err)
	}
	return fmt.Sprintf("%s: %v", s.Stage, s.Err)
}
