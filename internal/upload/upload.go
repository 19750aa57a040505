// 包 upload：负责人/产品分配表上传（CSV、XLSX）解析与边界属性合并
package upload

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"redistrict/internal/boundary"
	"redistrict/internal/metrics"
)

// 表头列名（大小写与空白不敏感）
const (
	ColCountyName = "CountyName"
	ColStateFIPS  = "StateFIPS"
	ColSalesRep   = "SalesRep"
	ColProduct    = "Product"
)

var ErrUnsupportedFormat = errors.New("unsupported file type, upload CSV or XLSX")

// ParseError：文件格式可识别但内容无法解析
type ParseError struct {
	File string
	Err  error
}

func (e *ParseError) Error() string { return fmt.Sprintf("parse %s: %v", e.File, e.Err) }

func (e *ParseError) Unwrap() error { return e.Err }

type Assignment struct {
	CountyName string `json:"county_name"`
	StateFIPS  string `json:"state_fips"`
	SalesRep   string `json:"sales_rep,omitempty"`
	Product    string `json:"product,omitempty"`
}

// 文档注释：按扩展名解析上传文件
// 背景：仅预览与会话内合并，不落库；解析失败中止本次上传。
// 约束：扩展名仅识别 .csv/.xlsx；CountyName 与 StateFIPS 为必需列，SalesRep/Product 可缺省。
func Parse(filename string, r io.Reader) ([]Assignment, error) {
	var (
		rows   [][]string
		err    error
		format string
	)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		format = "csv"
		rows, err = csv.NewReader(r).ReadAll()
	case ".xlsx":
		format = "xlsx"
		rows, err = readXLSX(r)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filename)
	}
	if err != nil {
		return nil, &ParseError{File: filename, Err: err}
	}
	out, err := fromRows(rows)
	if err != nil {
		return nil, &ParseError{File: filename, Err: err}
	}
	metrics.UploadRowsTotal.WithLabelValues(format).Add(float64(len(out)))
	return out, nil
}

// readXLSX：读取首个工作表的全部行
func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	return f.GetRows(sheets[0])
}

func fromRows(rows [][]string) ([]Assignment, error) {
	if len(rows) == 0 {
		return nil, errors.New("empty file")
	}
	idx := map[string]int{}
	for i, h := range rows[0] {
		idx[normHeader(h)] = i
	}
	for _, req := range []string{ColCountyName, ColStateFIPS} {
		if _, ok := idx[normHeader(req)]; !ok {
			return nil, fmt.Errorf("missing column %s", req)
		}
	}
	cell := func(row []string, col string) string {
		i, ok := idx[normHeader(col)]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}
	out := []Assignment{}
	for _, row := range rows[1:] {
		a := Assignment{
			CountyName: cell(row, ColCountyName),
			StateFIPS:  boundary.NormalizeRegion(cell(row, ColStateFIPS)),
			SalesRep:   cell(row, ColSalesRep),
			Product:    cell(row, ColProduct),
		}
		if a.CountyName == "" && a.StateFIPS == "" {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func normHeader(h string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(h), " ", ""))
}

// Apply：按 (名称, 区域) 把分配表写入边界的 SalesRep/Product；返回新集合，输入不变
// 约束：同键多行时后者覆盖前者；空单元格不覆盖已有属性
func Apply(c boundary.Collection, rows []Assignment) boundary.Collection {
	out := c.Clone()
	if len(rows) == 0 {
		return out
	}
	type key struct{ region, name string }
	byKey := make(map[key]Assignment, len(rows))
	for _, a := range rows {
		byKey[key{a.StateFIPS, a.CountyName}] = a
	}
	for i := range out {
		a, ok := byKey[key{out[i].RegionCode(), out[i].Name}]
		if !ok {
			continue
		}
		if a.SalesRep != "" {
			out[i].SalesRep = boundary.StrPtr(a.SalesRep)
		}
		if a.Product != "" {
			out[i].Product = boundary.StrPtr(a.Product)
		}
	}
	return out
}
