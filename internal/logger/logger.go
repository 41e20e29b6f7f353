// Package logger 提供摄取管线的日志记录器
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger 创建一个新的日志记录器
// debug 模式下输出 Debug 级别，包含各处理阶段的跳过原因
func NewLogger(debug bool) *zap.Logger {
	config := zap.NewProductionConfig()

	if debug {
		config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	} else {
		config.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.EncodeDuration = zapcore.StringDurationEncoder
	config.DisableStacktrace = true

	logger, err := config.Build()
	if err != nil {
		panic("初始化日志系统失败: " + err.Error())
	}

	return logger.Named("docingest")
}

// ForFormat 返回标注了文档格式的子记录器，便于按格式过滤日志
func ForFormat(base *zap.Logger, format string) *zap.Logger {
	if base == nil {
		return zap.NewNop()
	}
	return base.With(zap.String("format", format))
}
