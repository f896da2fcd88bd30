package catalog

import "strings"

var (
	idKeywords          = []string{"code", "id"}
	textKeywords        = []string{"term", "name", "english", "label", "description"}
	descriptionKeywords = []string{"description", "definition"}
)

// ColumnInference 表格列角色推断结果
// Confident=false 表示至少一个角色是按位置兜底得到的，调用方可以要求显式列映射
type ColumnInference struct {
	IDColumn          string
	TextColumn        string
	DescriptionColumn string
	Confident         bool
}

// InferColumns 按表头推断列角色：
//   - 标识列：第一个小写后包含 "code" 或 "id" 的列，否则第一列
//   - 术语列：标识列以外第一个包含 term/name/english/label/description 的列，否则第二列（只有一列时取第一列）
//   - 描述列：剩余列中第一个包含 description/definition 的列，可为空
func InferColumns(headers []string) ColumnInference {
	var inf ColumnInference
	if len(headers) == 0 {
		return inf
	}

	idIdx, idMatched := firstMatch(headers, idKeywords, -1)
	if !idMatched {
		idIdx = 0
	}
	textIdx, textMatched := firstMatch(headers, textKeywords, idIdx)
	if !textMatched {
		if len(headers) > 1 {
			textIdx = 1
		} else {
			textIdx = 0
		}
	}

	inf.IDColumn = headers[idIdx]
	inf.TextColumn = headers[textIdx]
	inf.Confident = idMatched && textMatched

	for i, h := range headers {
		if i == idIdx || i == textIdx {
			continue
		}
		if containsAny(strings.ToLower(h), descriptionKeywords) {
			inf.DescriptionColumn = h
			break
		}
	}
	return inf
}

func firstMatch(headers, keywords []string, exclude int) (int, bool) {
	for i, h := range headers {
		if i == exclude {
			continue
		}
		if containsAny(strings.ToLower(h), keywords) {
			return i, true
		}
	}
	return 0, false
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

// NormalizeHeader turns "English Term" into "english_term".
func NormalizeHeader(h string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range strings.ToLower(strings.TrimSpace(h)) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			lastUnderscore = false
			continue
		}
		if !lastUnderscore && b.Len() > 0 {
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}
