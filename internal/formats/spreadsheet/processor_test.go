package spreadsheet

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerdneilsfield/go-docingest/pkg/document"
)

// writeCSV 生成带 3 个数值列、rows 行数据的 CSV 文件
func writeCSV(t *testing.T, rows int) string {
	t.Helper()

	var sb strings.Builder
	sb.WriteString("price,quantity,total\n")
	for i := 1; i <= rows; i++ {
		sb.WriteString(fmt.Sprintf("%d,%d,%d\n", i, i*2, i*3))
	}

	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte(sb.String()), 0o644))
	return path
}

func TestProcessNumericSheet(t *testing.T) {
	// 150 行 3 个数值列：统计摘要覆盖全部列，样本 10 行，转储不超过 100 行
	path := writeCSV(t, 150)

	p, err := NewProcessor(document.ProcessorOptions{ChunkSize: 1000, ChunkOverlap: 200})
	require.NoError(t, err)

	chunks, err := p.Process(context.Background(), path)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	full := make([]string, 0, len(chunks))
	for _, c := range chunks {
		full = append(full, c.Text)
		assert.LessOrEqual(t, utf8.RuneCountInString(c.Text), 1000)
	}
	text := strings.Join(full, "\n")

	assert.Contains(t, text, "Sheet: Sheet1")
	assert.Contains(t, text, "Columns: price, quantity, total")
	assert.Contains(t, text, "Summary Statistics:")
	assert.Contains(t, text, "price: mean=75.50, min=1, max=150")
	assert.Contains(t, text, "quantity: mean=151.00, min=2, max=300")
	assert.Contains(t, text, "total: mean=226.50, min=3, max=450")

	// 样本止于第 10 行
	assert.Contains(t, text, "Row 10: price: 10")
	assert.NotContains(t, text, "Row 11:")

	// 转储止于第 100 行
	assert.Contains(t, text, "(50 more rows omitted)")

	md := chunks[0].Metadata
	assert.Equal(t, "spreadsheet", md["file_type"])
	assert.Equal(t, 1, md["total_sheets"])

	sheets, ok := md["sheets"].([]map[string]any)
	require.True(t, ok)
	require.Len(t, sheets, 1)
	assert.Equal(t, 150, sheets[0]["rows"])
	assert.Equal(t, 3, sheets[0]["columns"])
	assert.Equal(t, map[string]string{
		"price": "numeric", "quantity": "numeric", "total": "numeric",
	}, sheets[0]["column_types"])
}

func TestProcessChunkIndexContiguity(t *testing.T) {
	path := writeCSV(t, 150)

	p, err := NewProcessor(document.ProcessorOptions{ChunkSize: 500, ChunkOverlap: 100})
	require.NoError(t, err)

	chunks, err := p.Process(context.Background(), path)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	for i, c := range chunks {
		assert.Equal(t, i, c.Metadata["chunk_index"])
		assert.Equal(t, len(chunks), c.Metadata["chunk_count"])
	}
}

func TestProcessEmptyCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	p, err := NewProcessor(document.ProcessorOptions{})
	require.NoError(t, err)

	chunks, err := p.Process(context.Background(), path)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestProcessMixedColumnTypes(t *testing.T) {
	content := "name,score\nalice,90\nbob,85\ncarol,\n"
	path := filepath.Join(t.TempDir(), "mixed.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	p, err := NewProcessor(document.ProcessorOptions{})
	require.NoError(t, err)

	chunks, err := p.Process(context.Background(), path)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	text := chunks[0].Text
	// name 列不是数值列，不进入统计
	assert.NotContains(t, text, "name: mean=")
	assert.Contains(t, text, "score: mean=87.50, min=85, max=90")

	sheets := chunks[0].Metadata["sheets"].([]map[string]any)
	assert.Equal(t, map[string]string{"name": "text", "score": "numeric"},
		sheets[0]["column_types"])
}

func TestProcessMissingWorkbook(t *testing.T) {
	p, err := NewProcessor(document.ProcessorOptions{})
	require.NoError(t, err)

	_, err = p.Process(context.Background(), filepath.Join(t.TempDir(), "missing.xlsx"))
	require.Error(t, err)

	var extractionErr *document.ExtractionError
	assert.ErrorAs(t, err, &extractionErr)
}
