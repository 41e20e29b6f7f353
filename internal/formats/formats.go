// Package formats 汇总所有格式处理器
// 空导入触发各格式包的 init() 注册，调用方只需导入本包
package formats

import (
	_ "github.com/nerdneilsfield/go-docingest/internal/formats/docx"
	_ "github.com/nerdneilsfield/go-docingest/internal/formats/markdown"
	_ "github.com/nerdneilsfield/go-docingest/internal/formats/pdf"
	_ "github.com/nerdneilsfield/go-docingest/internal/formats/pptx"
	_ "github.com/nerdneilsfield/go-docingest/internal/formats/spreadsheet"
	_ "github.com/nerdneilsfield/go-docingest/internal/formats/sqlitedb"
	_ "github.com/nerdneilsfield/go-docingest/internal/formats/text"
)
