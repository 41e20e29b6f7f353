// Package config 提供摄取管线的配置加载
// 所有检测阈值都是具名配置项而不是内联常量，便于独立调参和测试
package config

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/viper"
)

// OCRConfig 识别引擎配置
type OCRConfig struct {
	// Language tesseract 语言包
	Language string `mapstructure:"language"`

	// MinTokenConfidence 词元置信度下限，低于该值的词元被丢弃
	MinTokenConfidence float64 `mapstructure:"min_token_confidence"`
}

// DetectionConfig 表格/图片检测阈值
// 这些默认值沿用经验取值，应当视作可调参数而非保证正确的常量
type DetectionConfig struct {
	// MinTextLength 直接文本低于该字符数时触发识别回退
	MinTextLength int `mapstructure:"min_text_length"`

	// PositionGrid 几何检测中横向位置取整的粒度
	PositionGrid float64 `mapstructure:"position_grid"`

	// LineKernel 形态学线段结构元素的长度（像素）
	LineKernel int `mapstructure:"line_kernel"`

	// MinTableArea 线框检测保留区域的最小面积（平方像素）
	MinTableArea int `mapstructure:"min_table_area"`

	// GeometryConfidence 几何法候选的固定置信度
	GeometryConfidence float64 `mapstructure:"geometry_confidence"`

	// LineworkConfidence 线框法候选的固定置信度
	LineworkConfidence float64 `mapstructure:"linework_confidence"`

	// MinImageSize 内嵌图片的最小边长（像素），更小的直接丢弃
	MinImageSize int `mapstructure:"min_image_size"`

	// OCRUpscaleTarget 识别前放大的短边目标长度（像素）
	OCRUpscaleTarget int `mapstructure:"ocr_upscale_target"`
}

// Config 摄取管线的所有配置
type Config struct {
	ChunkSize    int             `mapstructure:"chunk_size"`
	ChunkOverlap int             `mapstructure:"chunk_overlap"`
	Concurrency  int             `mapstructure:"concurrency"` // 页级/文件级工作池大小
	OCR          OCRConfig       `mapstructure:"ocr"`
	Detection    DetectionConfig `mapstructure:"detection"`
	Debug        bool            `mapstructure:"debug"`
}

// Default 返回默认配置
func Default() *Config {
	concurrency := runtime.NumCPU()
	if concurrency > 8 {
		concurrency = 8
	}

	return &Config{
		ChunkSize:    1000,
		ChunkOverlap: 200,
		Concurrency:  concurrency,
		OCR: OCRConfig{
			Language:           "eng",
			MinTokenConfidence: 30,
		},
		Detection: DetectionConfig{
			MinTextLength:      50,
			PositionGrid:       10,
			LineKernel:         40,
			MinTableArea:       5000,
			GeometryConfidence: 0.8,
			LineworkConfidence: 0.6,
			MinImageSize:       50,
			OCRUpscaleTarget:   300,
		},
		Debug: false,
	}
}

// Load 加载配置文件并与默认值合并
// path 为空或文件不存在时返回默认配置
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		return cfg, nil
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return cfg, nil
}
