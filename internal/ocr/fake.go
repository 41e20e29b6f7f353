package ocr

import (
	"context"
	"image"
	"strings"

	"github.com/nerdneilsfield/go-docingest/pkg/document"
)

// Fake 测试用的假识别引擎
// Func 非空时优先使用，否则固定返回 Text/Tokens
type Fake struct {
	Text   string
	Tokens []document.Token
	Err    error

	// Func 按图像内容定制返回文本，便于按页区分结果
	Func func(img image.Image) (string, error)
}

// Recognize 返回预设文本
func (f *Fake) Recognize(_ context.Context, img image.Image) (string, error) {
	if f.Err != nil {
		return "", f.Err
	}
	if f.Func != nil {
		return f.Func(img)
	}
	return f.Text, nil
}

// RecognizeTokens 返回预设词元；未设置时按空白切分 Text，置信度 90
func (f *Fake) RecognizeTokens(ctx context.Context, img image.Image) ([]document.Token, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	if f.Tokens != nil {
		return f.Tokens, nil
	}

	text, err := f.Recognize(ctx, img)
	if err != nil {
		return nil, err
	}

	fields := strings.Fields(text)
	tokens := make([]document.Token, 0, len(fields))
	for _, w := range fields {
		tokens = append(tokens, document.Token{Text: w, Confidence: 90})
	}
	return tokens, nil
}
