package catalog

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/anukritich/AyushSetu/internal/domain"
	"github.com/xuri/excelize/v2"
)

// ReadJSONRecords 读取 JSON 源：对象视为单条记录，数组取其中的对象元素（非对象元素忽略）
// 路径不存在返回 ErrNotFound；内容不是对象/数组返回 ErrMalformedSource
func ReadJSONRecords(path string) ([]map[string]any, int, error) {
	data, err := readSource(path)
	if err != nil {
		return nil, 0, err
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, 0, fmt.Errorf("%s: invalid JSON: %v: %w", filepath.Base(path), err, domain.ErrMalformedSource)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, 0, fmt.Errorf("%s: trailing data after JSON document: %w", filepath.Base(path), domain.ErrMalformedSource)
	}

	switch v := doc.(type) {
	case map[string]any:
		return []map[string]any{v}, 0, nil
	case []any:
		records := make([]map[string]any, 0, len(v))
		skipped := 0
		for _, item := range v {
			if rec, ok := item.(map[string]any); ok {
				records = append(records, rec)
			} else {
				skipped++
			}
		}
		return records, skipped, nil
	default:
		return nil, 0, fmt.Errorf("%s: JSON must be an object or array: %w", filepath.Base(path), domain.ErrMalformedSource)
	}
}

// IsTabular reports whether path has a sheet/CSV extension.
func IsTabular(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm", ".csv":
		return true
	}
	return false
}

// ReadTable 读取表格源（xlsx 首个工作表或指定工作表 / CSV），首行为表头
func ReadTable(path, sheet string) ([]string, [][]string, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, fmt.Errorf("%s: %w", path, domain.ErrNotFound)
		}
		return nil, nil, fmt.Errorf("stat %s: %w", path, err)
	}

	var rows [][]string
	var err error
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		rows, err = readCSV(path)
	} else {
		rows, err = readSheet(path, sheet)
	}
	if err != nil {
		return nil, nil, err
	}
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("%s: no header row: %w", filepath.Base(path), domain.ErrMalformedSource)
	}

	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}
	return headers, rows[1:], nil
}

func readSheet(path, sheet string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to open workbook: %v: %w", filepath.Base(path), err, domain.ErrMalformedSource)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	if sheet == "" {
		return nil, fmt.Errorf("%s: workbook has no sheets: %w", filepath.Base(path), domain.ErrMalformedSource)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read rows of %q: %v: %w", filepath.Base(path), sheet, err, domain.ErrMalformedSource)
	}
	return rows, nil
}

func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%s: invalid CSV: %v: %w", filepath.Base(path), err, domain.ErrMalformedSource)
	}
	return rows, nil
}

func readSource(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// Cell returns row[i], or "" when the row is shorter (excelize drops trailing empty cells).
func Cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// StringValue 把 JSON 值转成可入库的文本：字符串原样，数字/布尔转文本，嵌套结构保留为紧凑 JSON，null 为 nil
func StringValue(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case string:
		return x
	case json.Number:
		return x.String()
	case bool:
		if x {
			return "true"
		}
		return "false"
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	}
}

func stringOf(v any) string {
	if s, ok := StringValue(v).(string); ok {
		return s
	}
	return ""
}
