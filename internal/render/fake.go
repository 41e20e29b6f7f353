package render

import (
	"fmt"
	"image"
)

// FakePage 假文档中的一页
type FakePage struct {
	// Text 机读文本，空串表示该页无可选取文本
	Text string

	// Image 栅格化结果，nil 时渲染返回纯白占位图
	Image image.Image
}

// FakeSource 测试用的假页式文档
type FakeSource struct {
	Pages []FakePage

	// RenderErr 非空时所有渲染调用返回该错误
	RenderErr error
}

// NumPages 返回总页数
func (f *FakeSource) NumPages() int {
	return len(f.Pages)
}

// Text 返回预设的页文本
func (f *FakeSource) Text(page int) (string, error) {
	if page < 0 || page >= len(f.Pages) {
		return "", fmt.Errorf("page %d out of range", page)
	}
	return f.Pages[page].Text, nil
}

// Render 返回预设的页图像
func (f *FakeSource) Render(page int, _ float64) (image.Image, error) {
	if f.RenderErr != nil {
		return nil, f.RenderErr
	}
	if page < 0 || page >= len(f.Pages) {
		return nil, fmt.Errorf("page %d out of range", page)
	}
	if f.Pages[page].Image != nil {
		return f.Pages[page].Image, nil
	}
	return image.NewGray(image.Rect(0, 0, 100, 100)), nil
}

// Close 假实现无资源可释放
func (f *FakeSource) Close() error {
	return nil
}
