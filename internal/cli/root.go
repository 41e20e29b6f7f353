// Package cli 实现命令行入口
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-docingest/internal/config"
	registry "github.com/nerdneilsfield/go-docingest/internal/document"
	_ "github.com/nerdneilsfield/go-docingest/internal/formats"
	"github.com/nerdneilsfield/go-docingest/internal/logger"
	"github.com/nerdneilsfield/go-docingest/internal/multimodal"
	"github.com/nerdneilsfield/go-docingest/internal/ocr"
	"github.com/nerdneilsfield/go-docingest/pkg/document"
)

var (
	// 命令行标志变量
	cfgFile        string
	outputPath     string // 输出文件路径，空则写到标准输出
	chunkSize      int
	chunkOverlap   int
	ocrLanguage    string
	multimodalMode bool // 对 PDF 额外运行多模态提取
	listFormats    bool
	debugMode      bool
)

// NewRootCommand 创建根命令
func NewRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "docingest [flags] file...",
		Short: "文档摄取工具将多种格式的文件切分为带元数据的文本块",
		Long: `文档摄取工具将多种格式的文件切分为带元数据的文本块，输出 JSON 行。

支持的格式:
  - pdf: 文本抽取，文本稀疏的页面回退到识别
  - docx / powerpoint: OOXML 文档与演示文稿
  - spreadsheet: xlsx 与 csv，含列统计与样本
  - markdown / text: 标题分节与结构化文本检测
  - database: SQLite 表结构与样本`,
		Version: fmt.Sprintf("%s (commit %s, built %s)", version, commit, buildDate),
		Args: func(cmd *cobra.Command, args []string) error {
			if listFormats {
				return nil
			}
			if len(args) < 1 {
				return fmt.Errorf("requires at least 1 file argument")
			}
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			log := logger.NewLogger(debugMode)
			defer func() {
				_ = log.Sync()
			}()

			if listFormats {
				printFormats()
				return
			}

			// 加载配置
			cfg, err := config.Load(cfgFile)
			if err != nil {
				log.Error("加载配置失败", zap.Error(err))
				os.Exit(1)
			}

			// 命令行参数覆盖配置
			if chunkSize > 0 {
				cfg.ChunkSize = chunkSize
			}
			if chunkOverlap > 0 {
				cfg.ChunkOverlap = chunkOverlap
			}
			if ocrLanguage != "" {
				cfg.OCR.Language = ocrLanguage
			}

			out := io.Writer(os.Stdout)
			if outputPath != "" {
				f, err := os.Create(outputPath)
				if err != nil {
					log.Error("创建输出文件失败", zap.Error(err))
					os.Exit(1)
				}
				defer f.Close()
				out = f
			}

			recognizer := ocr.NewTesseract(cfg.OCR.Language)
			opts := document.ProcessorOptions{
				ChunkSize:    cfg.ChunkSize,
				ChunkOverlap: cfg.ChunkOverlap,
				OCR:          recognizer,
				Concurrency:  cfg.Concurrency,
				Logger:       log,
			}

			ctx := cmd.Context()
			failed := 0
			for _, path := range args {
				if err := processFile(ctx, path, opts, cfg, out, log); err != nil {
					log.Error("处理文件失败",
						zap.String("文件", path),
						zap.Error(err))
					failed++
				}
			}

			if failed == len(args) {
				log.Error("所有文件处理失败", zap.Int("文件数", len(args)))
				os.Exit(1)
			}
			log.Info("处理完成",
				zap.Int("文件数", len(args)),
				zap.Int("失败数", failed))
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "配置文件路径")
	rootCmd.PersistentFlags().StringVarP(&outputPath, "output", "o", "", "输出文件路径（默认标准输出）")
	rootCmd.PersistentFlags().IntVar(&chunkSize, "chunk-size", 0, "分块最大字符数")
	rootCmd.PersistentFlags().IntVar(&chunkOverlap, "chunk-overlap", 0, "相邻分块的重叠字符数")
	rootCmd.PersistentFlags().StringVar(&ocrLanguage, "ocr-language", "", "识别语言包")
	rootCmd.PersistentFlags().BoolVar(&multimodalMode, "multimodal", false, "对 PDF 额外运行表格与图片提取")
	rootCmd.PersistentFlags().BoolVar(&listFormats, "list-formats", false, "列出支持的文件格式")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "启用调试模式")

	return rootCmd
}

// processFile 处理单个文件并输出 JSON 行
func processFile(ctx context.Context, path string, opts document.ProcessorOptions, cfg *config.Config, out io.Writer, log *zap.Logger) error {
	processor, err := registry.GetProcessorByExtension(path, opts)
	if err != nil {
		return err
	}

	flog := logger.ForFormat(log, string(processor.Format()))

	chunks, err := processor.Process(ctx, path)
	if err != nil {
		return err
	}
	flog.Info("文件分块完成",
		zap.String("文件", path),
		zap.Int("分块数", len(chunks)))

	enc := json.NewEncoder(out)
	for _, chunk := range chunks {
		if err := enc.Encode(chunk); err != nil {
			return fmt.Errorf("failed to encode chunk: %w", err)
		}
	}

	if multimodalMode && isPDF(path) {
		extractor := multimodal.NewExtractor(opts.OCR, cfg, log)
		result, err := extractor.Extract(ctx, path)
		if err != nil {
			return err
		}
		flog.Info("多模态提取完成",
			zap.String("文件", path),
			zap.Int("表格数", result.Summary.TotalTables),
			zap.Int("图片数", result.Summary.TotalImages))

		for _, block := range result.Blocks {
			if err := enc.Encode(map[string]any{"block": block, "source": path}); err != nil {
				return fmt.Errorf("failed to encode block: %w", err)
			}
		}
		if err := enc.Encode(map[string]any{"summary": result.Summary, "source": path}); err != nil {
			return fmt.Errorf("failed to encode summary: %w", err)
		}
	}
	return nil
}

// printFormats 输出支持的扩展名表格
func printFormats() {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"Extension", "Format"})

	for _, ext := range registry.SupportedExtensions() {
		format, _ := registry.FormatForExtension(ext)
		tw.AppendRow(table.Row{ext, string(format)})
	}
	tw.Render()
}

// isPDF 判断文件是否为 PDF
func isPDF(path string) bool {
	format, ok := registry.FormatForExtension(strings.ToLower(filepath.Ext(path)))
	return ok && format == document.FormatPDF
}
