package mapper

import (
	"sort"
	"strings"

	"github.com/anukritich/AyushSetu/internal/catalog"
	"github.com/anukritich/AyushSetu/internal/domain"
)

const (
	// DefaultLimit 默认返回条数
	DefaultLimit = 10
	// DefaultThreshold 模糊匹配最低分，低于该分数的候选直接丢弃
	DefaultThreshold = 35
	// ExactScore 子串精确命中的固定分数
	ExactScore = 100
)

// Mapper 术语解析引擎：精确子串匹配 + 词集模糊匹配补位
// 构造完成后只读，多个 goroutine 可以并发调用 Search，无需加锁
type Mapper struct {
	catalog   *catalog.Catalog
	threshold int

	lowered []string   // lower(english + " " + description), exact pass
	tokens  []tokenSet // tokens of english + " " + description, fuzzy pass
}

type Option func(*Mapper)

// WithThreshold overrides the minimum fuzzy score (clamped to 0-100).
func WithThreshold(threshold int) Option {
	return func(m *Mapper) {
		if threshold < 0 {
			threshold = 0
		}
		if threshold > 100 {
			threshold = 100
		}
		m.threshold = threshold
	}
}

// New 基于已加载的目录构建 Mapper
func New(cat *catalog.Catalog, opts ...Option) *Mapper {
	m := &Mapper{catalog: cat, threshold: DefaultThreshold}
	for _, opt := range opts {
		opt(m)
	}

	terms := cat.Terms()
	m.lowered = make([]string, len(terms))
	m.tokens = make([]tokenSet, len(terms))
	for i, t := range terms {
		text := t.SearchText()
		m.lowered[i] = strings.ToLower(text)
		m.tokens[i] = tokenize(text)
	}
	return m
}

// NewFromJSON loads the catalog at path and fails fast when it is missing or malformed.
func NewFromJSON(path string, opts ...Option) (*Mapper, error) {
	cat, err := catalog.LoadJSON(path)
	if err != nil {
		return nil, err
	}
	return New(cat, opts...), nil
}

func (m *Mapper) Catalog() *catalog.Catalog { return m.catalog }

// FindByID 按 term_id 查找
func (m *Mapper) FindByID(id string) (domain.Term, bool) {
	return m.catalog.FindByID(id)
}

type fuzzyHit struct {
	index int
	score similarity
}

// Search 返回按分数降序、按 term_id 去重、不超过 limit 条的候选
//  1. 精确阶段：小写 query 是 lower(english + " " + description) 的子串 -> 100 分
//  2. 精确结果不足 limit 时，用原始 query 做词集模糊匹配，取前 limit 个，丢弃低于阈值的
//  3. 合并后稳定排序（同分保持插入顺序，精确命中在前），再按 term_id 去重并截断
func (m *Mapper) Search(query string, limit int) []domain.SearchResult {
	if limit <= 0 {
		return nil
	}
	terms := m.catalog.Terms()
	q := strings.ToLower(query)

	results := make([]domain.SearchResult, 0, min(limit, len(terms)))
	for i, text := range m.lowered {
		if strings.Contains(text, q) {
			results = append(results, domain.SearchResult{Score: ExactScore, Term: terms[i]})
		}
	}

	if len(results) < limit {
		for _, hit := range m.fuzzy(query, limit) {
			score := hit.score.Int()
			if score < m.threshold {
				continue
			}
			results = append(results, domain.SearchResult{Score: score, Term: terms[hit.index]})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	seen := make(map[string]struct{}, len(results))
	out := make([]domain.SearchResult, 0, min(limit, len(results)))
	for _, r := range results {
		if _, dup := seen[r.Term.ID]; dup {
			continue
		}
		seen[r.Term.ID] = struct{}{}
		out = append(out, r)
		if len(out) >= limit {
			break
		}
	}
	return out
}

// SearchBySymptom is Search under the name the clinical UI uses.
func (m *Mapper) SearchBySymptom(symptom string, limit int) []domain.SearchResult {
	return m.Search(symptom, limit)
}

// fuzzy scores the raw query against every term and returns the best limit hits,
// ordered by score with ties kept in catalog order.
func (m *Mapper) fuzzy(query string, limit int) []fuzzyHit {
	qt := tokenize(query)
	hits := make([]fuzzyHit, len(m.tokens))
	for i, ct := range m.tokens {
		hits[i] = fuzzyHit{index: i, score: tokenSetSimilarity(qt, ct)}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[j].score.less(hits[i].score)
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}
