// Package document 维护格式处理器注册表
// 各格式包在 init() 中注册自己，调用方通过扩展名获取处理器
package document

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/nerdneilsfield/go-docingest/pkg/document"
)

// Registry 格式处理器注册表
type Registry struct {
	mu         sync.RWMutex
	processors map[document.Format]document.ProcessorFactory
	extensions map[string]document.Format
}

// globalRegistry 全局注册表实例
var globalRegistry = &Registry{
	processors: make(map[document.Format]document.ProcessorFactory),
	extensions: make(map[string]document.Format),
}

// Register 注册处理器工厂
func Register(format document.Format, factory document.ProcessorFactory) error {
	return globalRegistry.Register(format, factory)
}

// RegisterExtension 注册文件扩展名映射
func RegisterExtension(ext string, format document.Format) {
	globalRegistry.RegisterExtension(ext, format)
}

// GetProcessor 获取指定格式的处理器
func GetProcessor(format document.Format, opts document.ProcessorOptions) (document.Processor, error) {
	return globalRegistry.GetProcessor(format, opts)
}

// GetProcessorByExtension 根据文件扩展名获取处理器
func GetProcessorByExtension(filename string, opts document.ProcessorOptions) (document.Processor, error) {
	return globalRegistry.GetProcessorByExtension(filename, opts)
}

// SupportedExtensions 返回所有已注册的扩展名（含点号，已排序）
func SupportedExtensions() []string {
	return globalRegistry.SupportedExtensions()
}

// Register 注册处理器到注册表
func (r *Registry) Register(format document.Format, factory document.ProcessorFactory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.processors[format]; exists {
		return fmt.Errorf("format %s already registered", format)
	}

	r.processors[format] = factory
	return nil
}

// RegisterExtension 注册文件扩展名映射
func (r *Registry) RegisterExtension(ext string, format document.Format) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// 标准化扩展名（保留点号，转小写）
	ext = strings.ToLower(ext)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	r.extensions[ext] = format
}

// GetProcessor 获取指定格式的处理器
func (r *Registry) GetProcessor(format document.Format, opts document.ProcessorOptions) (document.Processor, error) {
	r.mu.RLock()
	factory, exists := r.processors[format]
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("no processor registered for format: %s", format)
	}

	return factory(opts)
}

// GetProcessorByExtension 根据文件扩展名获取处理器
// 未注册的扩展名返回 UnsupportedFormatError
func (r *Registry) GetProcessorByExtension(filename string, opts document.ProcessorOptions) (document.Processor, error) {
	ext := strings.ToLower(filepath.Ext(filename))

	r.mu.RLock()
	format, exists := r.extensions[ext]
	r.mu.RUnlock()

	if !exists {
		return nil, &document.UnsupportedFormatError{Ext: ext}
	}

	return r.GetProcessor(format, opts)
}

// SupportedExtensions 返回所有已注册的扩展名
func (r *Registry) SupportedExtensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	exts := make([]string, 0, len(r.extensions))
	for ext := range r.extensions {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// FormatForExtension 查询扩展名对应的格式，供调用方预校验使用
func FormatForExtension(ext string) (document.Format, bool) {
	ext = strings.ToLower(ext)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()

	format, ok := globalRegistry.extensions[ext]
	return format, ok
}
