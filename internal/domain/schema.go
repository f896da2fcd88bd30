package domain

import "sort"

// SchemaDefinition 术语体系对应的规范表定义
// - Columns: 列白名单，记录中不在白名单内的字段一律丢弃
// - PrimaryKey: upsert 使用的主键列（term_id / code）
type SchemaDefinition struct {
	SystemKey       string
	TableName       string
	Columns         map[string]struct{}
	PrimaryKey      string
	CreateStatement string
}

// HasColumn reports whether col is in the whitelist.
func (d SchemaDefinition) HasColumn(col string) bool {
	_, ok := d.Columns[col]
	return ok
}

// ColumnList returns the whitelist in sorted order.
func (d SchemaDefinition) ColumnList() []string {
	cols := make([]string, 0, len(d.Columns))
	for c := range d.Columns {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}

// Copy returns a definition that shares no state with d.
func (d SchemaDefinition) Copy() SchemaDefinition {
	cols := make(map[string]struct{}, len(d.Columns))
	for c := range d.Columns {
		cols[c] = struct{}{}
	}
	d.Columns = cols
	return d
}

// Row 一条待写入规范表的记录（列名 -> 值；值为 string 或 nil）
type Row map[string]any

// Project 按白名单投影记录：只保留同时出现在记录和白名单中的键
func (d SchemaDefinition) Project(record map[string]any) Row {
	row := Row{}
	for k, v := range record {
		if d.HasColumn(k) {
			row[k] = v
		}
	}
	return row
}
