package catalog

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/anukritich/AyushSetu/internal/domain"
)

// LoadStats 加载统计（被跳过的记录不会静默消失）
type LoadStats struct {
	Records    int `json:"records"`
	Loaded     int `json:"loaded"`
	NonObject  int `json:"non_object"`
	MissingID  int `json:"missing_id"`
	Duplicates int `json:"duplicates"`
}

// Catalog 术语目录：加载后只读，可被多个查询并发读取
type Catalog struct {
	source string
	terms  []domain.Term
	index  map[string]int
	stats  LoadStats
}

// New builds a catalog from terms already in memory. Terms without an ID are dropped,
// and for duplicate IDs the first occurrence wins.
func New(source string, terms []domain.Term) *Catalog {
	c := &Catalog{
		source: source,
		terms:  make([]domain.Term, 0, len(terms)),
		index:  make(map[string]int, len(terms)),
	}
	c.stats.Records = len(terms)
	for _, t := range terms {
		c.add(t)
	}
	return c
}

func (c *Catalog) add(t domain.Term) {
	if t.ID == "" {
		c.stats.MissingID++
		return
	}
	if _, dup := c.index[t.ID]; dup {
		c.stats.Duplicates++
		return
	}
	c.index[t.ID] = len(c.terms)
	c.terms = append(c.terms, t)
	c.stats.Loaded++
}

// LoadJSON 加载 JSON 术语文件（对象或数组）
func LoadJSON(path string) (*Catalog, error) {
	records, nonObject, err := ReadJSONRecords(path)
	if err != nil {
		return nil, err
	}

	terms := make([]domain.Term, 0, len(records))
	for _, rec := range records {
		terms = append(terms, TermFromRecord(rec))
	}
	c := New(path, terms)
	c.stats.Records += nonObject
	c.stats.NonObject = nonObject
	return c, nil
}

// TermFromRecord maps a JSON record onto a Term; keys other than the three core fields go to Fields.
func TermFromRecord(rec map[string]any) domain.Term {
	t := domain.Term{
		ID:          stringOf(rec["term_id"]),
		EnglishTerm: stringOf(rec["english_term"]),
		Description: stringOf(rec["description"]),
	}
	for k, v := range rec {
		switch k {
		case "term_id", "english_term", "description":
			continue
		}
		s, ok := StringValue(v).(string)
		if !ok {
			continue
		}
		if t.Fields == nil {
			t.Fields = map[string]string{}
		}
		t.Fields[k] = s
	}
	return t
}

// LoadSheet 加载 xlsx 工作表（sheet 为空时取第一个工作表），列角色由 InferColumns 推断
func LoadSheet(path, sheet string) (*Catalog, ColumnInference, error) {
	headers, rows, err := ReadTable(path, sheet)
	if err != nil {
		return nil, ColumnInference{}, err
	}
	inf := InferColumns(headers)
	return FromRows(path, headers, rows, inf), inf, nil
}

// LoadCSV is LoadSheet for comma-separated files.
func LoadCSV(path string) (*Catalog, ColumnInference, error) {
	return LoadSheet(path, "")
}

// FromRows builds a catalog from tabular rows using the given column roles.
func FromRows(source string, headers []string, rows [][]string, inf ColumnInference) *Catalog {
	pos := make(map[string]int, len(headers))
	for i := len(headers) - 1; i >= 0; i-- {
		pos[headers[i]] = i
	}
	col := func(name string) int {
		if name == "" {
			return -1
		}
		if i, ok := pos[name]; ok {
			return i
		}
		return -1
	}
	idIdx, textIdx, descIdx := col(inf.IDColumn), col(inf.TextColumn), col(inf.DescriptionColumn)

	terms := make([]domain.Term, 0, len(rows))
	for _, row := range rows {
		t := domain.Term{
			ID:          Cell(row, idIdx),
			EnglishTerm: Cell(row, textIdx),
			Description: Cell(row, descIdx),
		}
		for i, h := range headers {
			if i == idIdx || i == textIdx || i == descIdx || h == "" {
				continue
			}
			if v := Cell(row, i); v != "" {
				if t.Fields == nil {
					t.Fields = map[string]string{}
				}
				t.Fields[h] = v
			}
		}
		terms = append(terms, t)
	}
	return New(source, terms)
}

// FindByID 按 term_id 查找；与从头顺序扫描取第一个匹配的结果一致
func (c *Catalog) FindByID(id string) (domain.Term, bool) {
	i, ok := c.index[id]
	if !ok {
		return domain.Term{}, false
	}
	return c.terms[i], true
}

// Terms returns the loaded terms in source order. Callers must not modify the slice.
func (c *Catalog) Terms() []domain.Term { return c.terms }

func (c *Catalog) Len() int { return len(c.terms) }

func (c *Catalog) Stats() LoadStats { return c.stats }

// Source is the path the catalog was loaded from.
func (c *Catalog) Source() string { return c.source }

func (c *Catalog) String() string {
	return fmt.Sprintf("catalog(%s, %d terms)", filepath.Base(c.source), len(c.terms))
}

// IDs returns term ids in sorted order.
func (c *Catalog) IDs() []string {
	ids := make([]string, 0, len(c.index))
	for id := range c.index {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
