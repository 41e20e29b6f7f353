// Package ocr 封装光学字符识别引擎
// 引擎以显式句柄注入处理器和检测器，避免进程级全局状态
package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"

	"github.com/otiai10/gosseract/v2"

	"github.com/nerdneilsfield/go-docingest/pkg/document"
)

// Tesseract 基于 tesseract 的识别引擎实现
// 每次调用创建独立的 client，可以被多个 goroutine 并发使用
type Tesseract struct {
	lang string
}

// NewTesseract 创建识别引擎，lang 为空时使用英文语言包
func NewTesseract(lang string) *Tesseract {
	if lang == "" {
		lang = "eng"
	}
	return &Tesseract{lang: lang}
}

// Recognize 识别整幅图像并返回全部文本
func (t *Tesseract) Recognize(ctx context.Context, img image.Image) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	client, data, err := t.prepare(img)
	if err != nil {
		return "", err
	}
	defer client.Close()

	if err := client.SetImageFromBytes(data); err != nil {
		return "", fmt.Errorf("failed to set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("failed to recognize text: %w", err)
	}
	return text, nil
}

// RecognizeTokens 识别图像并返回带置信度的词元
func (t *Tesseract) RecognizeTokens(ctx context.Context, img image.Image) ([]document.Token, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	client, data, err := t.prepare(img)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	if err := client.SetImageFromBytes(data); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("failed to recognize tokens: %w", err)
	}

	tokens := make([]document.Token, 0, len(boxes))
	for _, box := range boxes {
		tokens = append(tokens, document.Token{
			Text:       box.Word,
			Confidence: box.Confidence,
		})
	}
	return tokens, nil
}

// prepare 编码图像并创建配置好的 client
func (t *Tesseract) prepare(img image.Image) (*gosseract.Client, []byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, nil, fmt.Errorf("failed to encode image: %w", err)
	}

	client := gosseract.NewClient()
	if err := client.SetLanguage(t.lang); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("failed to set language %s: %w", t.lang, err)
	}

	return client, buf.Bytes(), nil
}
