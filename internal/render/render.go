// Package render 提供页式文档的文本抽取与栅格化句柄
// 以接口形式暴露，测试可以用假实现替代 MuPDF 后端
package render

import (
	"image"
)

// NativeDPI 页式文档的原生渲染分辨率
const NativeDPI = 72

// PageSource 一个已打开的页式文档
// 页号从 0 起；实现不要求并发安全，按页粒度串行访问或各自持有句柄
type PageSource interface {
	// NumPages 返回总页数
	NumPages() int

	// Text 抽取某页的机读文本
	Text(page int) (string, error)

	// Render 将某页栅格化为图像
	Render(page int, dpi float64) (image.Image, error)

	// Close 释放底层资源
	Close() error
}

// Opener 打开页式文档的工厂函数，默认为 Open
type Opener func(path string) (PageSource, error)
