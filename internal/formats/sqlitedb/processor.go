// Package sqlitedb 实现 SQLite 数据库处理器
// 枚举用户表，提取表结构、行数与样本数据并渲染为文本
package sqlitedb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	_ "modernc.org/sqlite"

	registry "github.com/nerdneilsfield/go-docingest/internal/document"
	"github.com/nerdneilsfield/go-docingest/internal/formats/base"
	"github.com/nerdneilsfield/go-docingest/pkg/document"
)

// sampleRowLimit 每张表提取的样本行上限
const sampleRowLimit = 100

// columnInfo 表列的名称与声明类型
type columnInfo struct {
	Name string
	Type string
}

// tableInfo 单张表的结构与样本
type tableInfo struct {
	Name     string
	Columns  []columnInfo
	RowCount int64
	Sample   [][]string
}

// Processor SQLite 数据库处理器
type Processor struct {
	*base.Processor
	tables []string
}

// NewProcessor 创建 SQLite 数据库处理器
func NewProcessor(opts document.ProcessorOptions) (*Processor, error) {
	return &Processor{
		Processor: base.NewProcessor(opts),
		tables:    opts.Tables,
	}, nil
}

// Format 返回处理器支持的格式
func (p *Processor) Format() document.Format {
	return document.FormatSQLite
}

// Process 处理文件并返回有序分块
func (p *Processor) Process(ctx context.Context, filePath string) ([]document.Chunk, error) {
	db, err := sql.Open("sqlite", filePath)
	if err != nil {
		return nil, document.NewExtractionError(filePath, document.FormatSQLite,
			fmt.Errorf("failed to open database: %w", err))
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return nil, document.NewExtractionError(filePath, document.FormatSQLite,
			fmt.Errorf("failed to open database: %w", err))
	}

	names := p.tables
	if len(names) == 0 {
		names, err = listTables(ctx, db)
		if err != nil {
			return nil, document.NewExtractionError(filePath, document.FormatSQLite, err)
		}
	}

	texts := make([]string, 0, len(names))
	tableMeta := make([]map[string]any, 0, len(names))

	for _, name := range names {
		info, err := inspectTable(ctx, db, name)
		if err != nil {
			return nil, document.NewExtractionError(filePath, document.FormatSQLite, err)
		}
		texts = append(texts, renderTableInfo(info))

		columnNames := make([]string, 0, len(info.Columns))
		for _, col := range info.Columns {
			columnNames = append(columnNames, col.Name)
		}
		tableMeta = append(tableMeta, map[string]any{
			"table_name": info.Name,
			"rows":       info.RowCount,
			"columns":    columnNames,
		})
	}

	if len(texts) == 0 {
		return []document.Chunk{}, nil
	}

	metadata := map[string]any{
		"source":        filePath,
		"file_type":     "database",
		"database_type": "sqlite",
		"total_tables":  len(names),
		"tables":        tableMeta,
	}

	return p.BuildChunks(texts, metadata), nil
}

// listTables 枚举用户表，跳过 sqlite 内部表
func listTables(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// inspectTable 读取表结构、行数与样本行
func inspectTable(ctx context.Context, db *sql.DB, name string) (*tableInfo, error) {
	info := &tableInfo{Name: name}

	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", quoteIdent(name)))
	if err != nil {
		return nil, fmt.Errorf("failed to read schema for table %s: %w", name, err)
	}
	for rows.Next() {
		var (
			cid        int
			colName    string
			colType    string
			notNull    int
			defaultVal sql.NullString
			pk         int
		)
		if err := rows.Scan(&cid, &colName, &colType, &notNull, &defaultVal, &pk); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan schema for table %s: %w", name, err)
		}
		info.Columns = append(info.Columns, columnInfo{Name: colName, Type: colType})
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	if err := db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteIdent(name))).Scan(&info.RowCount); err != nil {
		return nil, fmt.Errorf("failed to count rows in table %s: %w", name, err)
	}

	sample, err := sampleRows(ctx, db, name, len(info.Columns))
	if err != nil {
		return nil, err
	}
	info.Sample = sample

	return info, nil
}

// sampleRows 提取样本行，所有值转为字符串
func sampleRows(ctx context.Context, db *sql.DB, name string, columnCount int) ([][]string, error) {
	rows, err := db.QueryContext(ctx,
		fmt.Sprintf("SELECT * FROM %s LIMIT %d", quoteIdent(name), sampleRowLimit))
	if err != nil {
		return nil, fmt.Errorf("failed to sample table %s: %w", name, err)
	}
	defer rows.Close()

	values := make([]any, columnCount)
	scanTargets := make([]any, columnCount)
	for i := range values {
		scanTargets[i] = &values[i]
	}

	var sample [][]string
	for rows.Next() {
		if err := rows.Scan(scanTargets...); err != nil {
			return nil, fmt.Errorf("failed to scan row from table %s: %w", name, err)
		}
		row := make([]string, columnCount)
		for i, v := range values {
			row[i] = formatValue(v)
		}
		sample = append(sample, row)
	}
	return sample, rows.Err()
}

// formatValue 将数据库值转为可读字符串
func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(val)
	case string:
		return val
	case int64:
		return fmt.Sprintf("%d", val)
	case float64:
		return fmt.Sprintf("%g", val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// renderTableInfo 渲染单张表的文本块
func renderTableInfo(info *tableInfo) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Table: %s\n", info.Name)
	fmt.Fprintf(&sb, "Total rows: %d\n", info.RowCount)

	sb.WriteString("Schema:\n")
	for _, col := range info.Columns {
		fmt.Fprintf(&sb, "  %s (%s)\n", col.Name, col.Type)
	}

	if len(info.Sample) > 0 {
		sb.WriteString("\nSample Data:\n")

		tw := table.NewWriter()
		tw.SetStyle(table.StyleLight)

		header := make(table.Row, 0, len(info.Columns))
		for _, col := range info.Columns {
			header = append(header, col.Name)
		}
		tw.AppendHeader(header)

		for _, row := range info.Sample {
			cells := make(table.Row, 0, len(row))
			for _, cell := range row {
				cells = append(cells, cell)
			}
			tw.AppendRow(cells)
		}

		sb.WriteString(tw.Render())
		sb.WriteString("\n")

		if int64(len(info.Sample)) < info.RowCount {
			fmt.Fprintf(&sb, "(%d more rows omitted)\n", info.RowCount-int64(len(info.Sample)))
		}
	}

	return sb.String()
}

// quoteIdent 为标识符加引号，防止包含特殊字符的表名破坏语句
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// Factory 创建 SQLite 数据库处理器的工厂函数
func Factory(opts document.ProcessorOptions) (document.Processor, error) {
	return NewProcessor(opts)
}

// init 注册 SQLite 数据库处理器
func init() {
	_ = registry.Register(document.FormatSQLite, Factory)
	registry.RegisterExtension(".db", document.FormatSQLite)
	registry.RegisterExtension(".sqlite", document.FormatSQLite)
	registry.RegisterExtension(".sqlite3", document.FormatSQLite)
}
