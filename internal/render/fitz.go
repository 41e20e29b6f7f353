package render

import (
	"fmt"
	"image"
	"sync"

	"github.com/gen2brain/go-fitz"
)

// fitzSource 基于 go-fitz（MuPDF）的 PageSource 实现
type fitzSource struct {
	mu  sync.Mutex
	doc *fitz.Document
}

// Open 打开页式文档文件
func Open(path string) (PageSource, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open document %s: %w", path, err)
	}
	return &fitzSource{doc: doc}, nil
}

// NumPages 返回总页数
func (s *fitzSource) NumPages() int {
	return s.doc.NumPage()
}

// Text 抽取某页的机读文本
func (s *fitzSource) Text(page int) (string, error) {
	// MuPDF 句柄不支持并发访问
	s.mu.Lock()
	defer s.mu.Unlock()

	text, err := s.doc.Text(page)
	if err != nil {
		return "", fmt.Errorf("failed to extract text from page %d: %w", page+1, err)
	}
	return text, nil
}

// Render 将某页栅格化为图像
func (s *fitzSource) Render(page int, dpi float64) (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	img, err := s.doc.ImageDPI(page, dpi)
	if err != nil {
		return nil, fmt.Errorf("failed to render page %d: %w", page+1, err)
	}
	return img, nil
}

// Close 释放底层资源
func (s *fitzSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Close()
}
