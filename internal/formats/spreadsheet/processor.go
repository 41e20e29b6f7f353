// Package spreadsheet 实现电子表格处理器（.xlsx 和 .csv）
// 每个工作表输出列头、数值列统计、有界的样本行和有界的全表转储，
// 在完整性和分块体积之间取平衡
package spreadsheet

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/xuri/excelize/v2"

	registry "github.com/nerdneilsfield/go-docingest/internal/document"
	"github.com/nerdneilsfield/go-docingest/internal/formats/base"
	"github.com/nerdneilsfield/go-docingest/pkg/document"
)

const (
	// sampleRowLimit 逐行样本的上限
	sampleRowLimit = 10

	// dumpRowLimit 全表转储的行数上限
	dumpRowLimit = 100
)

// Processor 电子表格处理器
type Processor struct {
	*base.Processor
}

// NewProcessor 创建电子表格处理器
func NewProcessor(opts document.ProcessorOptions) (*Processor, error) {
	return &Processor{
		Processor: base.NewProcessor(opts),
	}, nil
}

// Format 返回处理器支持的格式
func (p *Processor) Format() document.Format {
	return document.FormatSpreadsheet
}

// sheetData 一个工作表的原始内容
type sheetData struct {
	name    string
	headers []string
	rows    [][]string
}

// Process 处理文件并返回有序分块
// 内容为空的工作表不产出任何文本
func (p *Processor) Process(ctx context.Context, filePath string) ([]document.Chunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var sheets []sheetData
	var err error

	if strings.EqualFold(filepath.Ext(filePath), ".csv") {
		sheets, err = loadCSV(filePath)
	} else {
		sheets, err = loadWorkbook(filePath)
	}
	if err != nil {
		return nil, document.NewExtractionError(filePath, document.FormatSpreadsheet, err)
	}

	texts := make([]string, 0, len(sheets))
	sheetsInfo := make([]map[string]any, 0, len(sheets))

	for _, sheet := range sheets {
		if len(sheet.headers) == 0 && len(sheet.rows) == 0 {
			continue
		}

		text, info := renderSheet(sheet)
		texts = append(texts, text)
		sheetsInfo = append(sheetsInfo, info)
	}

	if len(texts) == 0 {
		return []document.Chunk{}, nil
	}

	metadata := map[string]any{
		"source":       filePath,
		"file_type":    "spreadsheet",
		"total_sheets": len(sheets),
		"sheets":       sheetsInfo,
	}

	return p.BuildChunks(texts, metadata), nil
}

// renderSheet 将工作表渲染为文本块并收集元数据
func renderSheet(sheet sheetData) (string, map[string]any) {
	lines := make([]string, 0, 8)
	lines = append(lines, "Sheet: "+sheet.name)
	lines = append(lines, "Columns: "+strings.Join(sheet.headers, ", "))

	colTypes := inferColumnTypes(sheet)

	// 数值列的统计摘要
	statLines := make([]string, 0)
	for col, header := range sheet.headers {
		if colTypes[header] != "numeric" {
			continue
		}
		mean, min, max, ok := columnStats(sheet.rows, col)
		if !ok {
			continue
		}
		statLines = append(statLines, fmt.Sprintf("%s: mean=%.2f, min=%g, max=%g", header, mean, min, max))
	}
	if len(statLines) > 0 {
		lines = append(lines, "Summary Statistics:")
		lines = append(lines, statLines...)
	}

	// 有界的逐行样本
	lines = append(lines, "\nSample Data:")
	sampleCount := len(sheet.rows)
	if sampleCount > sampleRowLimit {
		sampleCount = sampleRowLimit
	}
	for i := 0; i < sampleCount; i++ {
		pairs := make([]string, 0, len(sheet.headers))
		for col, header := range sheet.headers {
			val := cellAt(sheet.rows[i], col)
			if val == "" {
				continue
			}
			pairs = append(pairs, header+": "+val)
		}
		lines = append(lines, fmt.Sprintf("Row %d: %s", i+1, strings.Join(pairs, ", ")))
	}

	// 有界的全表转储
	lines = append(lines, "\nFull Table Content:")
	lines = append(lines, renderTable(sheet.headers, sheet.rows, dumpRowLimit))

	info := map[string]any{
		"sheet_name":   sheet.name,
		"rows":         len(sheet.rows),
		"columns":      len(sheet.headers),
		"column_names": sheet.headers,
		"column_types": colTypes,
	}

	return strings.Join(lines, "\n"), info
}

// renderTable 渲染最多 limit 行的文本表格
func renderTable(headers []string, rows [][]string, limit int) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleLight)

	headerRow := make(table.Row, len(headers))
	for i, h := range headers {
		headerRow[i] = h
	}
	tw.AppendHeader(headerRow)

	count := len(rows)
	if count > limit {
		count = limit
	}
	for i := 0; i < count; i++ {
		row := make(table.Row, len(headers))
		for col := range headers {
			row[col] = cellAt(rows[i], col)
		}
		tw.AppendRow(row)
	}

	rendered := tw.Render()
	if len(rows) > limit {
		rendered += fmt.Sprintf("\n(%d more rows omitted)", len(rows)-limit)
	}
	return rendered
}

// inferColumnTypes 推断每列类型：全部非空值可解析为数字则为 numeric，否则 text
func inferColumnTypes(sheet sheetData) map[string]string {
	types := make(map[string]string, len(sheet.headers))
	for col, header := range sheet.headers {
		numeric := false
		for _, row := range sheet.rows {
			val := cellAt(row, col)
			if val == "" {
				continue
			}
			if _, err := strconv.ParseFloat(val, 64); err != nil {
				numeric = false
				break
			}
			numeric = true
		}
		if numeric {
			types[header] = "numeric"
		} else {
			types[header] = "text"
		}
	}
	return types
}

// columnStats 计算数值列的 mean/min/max
func columnStats(rows [][]string, col int) (mean, min, max float64, ok bool) {
	count := 0
	sum := 0.0
	for _, row := range rows {
		val := cellAt(row, col)
		if val == "" {
			continue
		}
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			continue
		}
		if count == 0 || f < min {
			min = f
		}
		if count == 0 || f > max {
			max = f
		}
		sum += f
		count++
	}
	if count == 0 {
		return 0, 0, 0, false
	}
	return sum / float64(count), min, max, true
}

// cellAt 越界安全的取值
func cellAt(row []string, col int) string {
	if col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}

// loadCSV 读取 CSV 文件为单个工作表
func loadCSV(path string) ([]sheetData, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open csv: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv: %w", err)
	}

	sheet := sheetData{name: "Sheet1"}
	if len(records) > 0 {
		sheet.headers = records[0]
		sheet.rows = records[1:]
	}
	return []sheetData{sheet}, nil
}

// loadWorkbook 读取 xlsx 工作簿的全部工作表
func loadWorkbook(path string) ([]sheetData, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := make([]sheetData, 0)
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %s: %w", name, err)
		}

		sheet := sheetData{name: name}
		if len(rows) > 0 {
			sheet.headers = rows[0]
			sheet.rows = rows[1:]
		}
		sheets = append(sheets, sheet)
	}
	return sheets, nil
}

// Factory 创建电子表格处理器的工厂函数
func Factory(opts document.ProcessorOptions) (document.Processor, error) {
	return NewProcessor(opts)
}

// init 注册电子表格处理器
func init() {
	_ = registry.Register(document.FormatSpreadsheet, Factory)
	registry.RegisterExtension(".xlsx", document.FormatSpreadsheet)
	registry.RegisterExtension(".csv", document.FormatSpreadsheet)
}
