package domain

// Term 术语条目（一个术语体系内的一个编码概念）
// ID 在同一来源内唯一；Fields 保存体系特有字段（如 sanskrit_IAST / native_term 等脚本变体）
type Term struct {
	ID          string            `json:"term_id"`
	EnglishTerm string            `json:"english_term"`
	Description string            `json:"description"`
	Fields      map[string]string `json:"fields,omitempty"`
}

// Field returns a system-specific field, or "" when absent.
func (t Term) Field(name string) string {
	if t.Fields == nil {
		return ""
	}
	return t.Fields[name]
}

// SearchText is the text the resolver matches against: english term and description joined by a space.
func (t Term) SearchText() string {
	return t.EnglishTerm + " " + t.Description
}

// SearchResult 一次查询的候选结果，Score 取值 [0,100]
type SearchResult struct {
	Score int  `json:"score"`
	Term  Term `json:"term"`
}
