package service

import (
	"context"
	"crypto/sha1"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/anukritich/AyushSetu/internal/domain"
	"github.com/anukritich/AyushSetu/internal/icd"
	"github.com/anukritich/AyushSetu/internal/logger"
	"github.com/anukritich/AyushSetu/internal/mapper"
	"github.com/anukritich/AyushSetu/internal/store"
	"go.uber.org/zap"
)

const (
	// MaxLimit 单次查询返回条数上限
	MaxLimit = 100

	// SearchCachePrefix 检索缓存键前缀：terminology:search:<system>:<limit>:<sha1(query)>
	SearchCachePrefix = "terminology:search:"
)

var ErrInvalidArgument = errors.New("invalid argument")

// scriptFields 术语的脚本变体字段（WHO Ayurveda 用梵文转写/天城体，Siddha/Unani 用转写/本地文字）
var scriptFields = []string{"sanskrit_IAST", "sanskrit_devanagari", "transliteration", "native_term"}

// ICDSearcher ICD-11 搜索（icd.Client 实现；单元测试可替换）
type ICDSearcher interface {
	Search(ctx context.Context, query string) ([]icd.Entity, error)
}

// TerminologyService 术语服务接口
type TerminologyService interface {
	// Systems 已加载的术语体系（排序）
	Systems() []string
	// Search 精确 + 模糊检索，结果按 system/limit/query 缓存
	Search(ctx context.Context, req SearchRequest) (*SearchResponse, error)
	// SearchBySymptom 按症状描述检索
	SearchBySymptom(ctx context.Context, req SearchRequest) (*SearchResponse, error)
	// GetTerm 按 term_id 查询术语及其脚本变体
	GetTerm(ctx context.Context, system, termID string) (*TermDetail, error)
	// SuggestICD 用术语英文名检索 ICD-11 候选编码
	SuggestICD(ctx context.Context, system, termID string) (*ICDSuggestion, error)
	// InvalidateCache 清空检索缓存，返回删除的键数
	InvalidateCache(ctx context.Context) (int, error)
}

// SearchRequest 检索请求；Limit<=0 使用 mapper.DefaultLimit
type SearchRequest struct {
	System string
	Query  string
	Limit  int
}

// SearchResponse 检索响应
type SearchResponse struct {
	System  string                `json:"system"`
	Query   string                `json:"query"`
	Limit   int                   `json:"limit"`
	Results []domain.SearchResult `json:"results"`
	Cached  bool                  `json:"cached"`
}

// TermDetail 术语详情
type TermDetail struct {
	System  string            `json:"system"`
	Term    domain.Term       `json:"term"`
	Scripts map[string]string `json:"scripts,omitempty"`
}

// ICDSuggestion ICD-11 候选映射
type ICDSuggestion struct {
	System   string       `json:"system"`
	TermID   string       `json:"term_id"`
	Query    string       `json:"query"`
	Entities []icd.Entity `json:"entities"`
}

type terminologyService struct {
	mappers  map[string]*mapper.Mapper
	kv       store.KV // nil = 不缓存
	cacheTTL time.Duration
	icd      ICDSearcher // nil = 未配置 ICD 凭据
	logger   *zap.Logger
}

// NewTerminologyService 创建术语服务；kv、icdClient 可为 nil
func NewTerminologyService(
	mappers map[string]*mapper.Mapper,
	kv store.KV,
	cacheTTL time.Duration,
	icdClient ICDSearcher,
	log *zap.Logger,
) TerminologyService {
	m := make(map[string]*mapper.Mapper, len(mappers))
	for k, v := range mappers {
		m[strings.ToLower(k)] = v
	}
	return &terminologyService{
		mappers:  m,
		kv:       kv,
		cacheTTL: cacheTTL,
		icd:      icdClient,
		logger:   logger.OrNop(log),
	}
}

// LoadMappers 按体系加载 WHO 术语 JSON；任一文件缺失或格式错误立即失败
func LoadMappers(catalogs map[string]string, log *zap.Logger, opts ...mapper.Option) (map[string]*mapper.Mapper, error) {
	log = logger.OrNop(log)
	systems := make([]string, 0, len(catalogs))
	for system := range catalogs {
		systems = append(systems, system)
	}
	sort.Strings(systems)

	out := make(map[string]*mapper.Mapper, len(catalogs))
	for _, system := range systems {
		m, err := mapper.NewFromJSON(catalogs[system], opts...)
		if err != nil {
			return nil, fmt.Errorf("load %s catalog: %w", system, err)
		}
		stats := m.Catalog().Stats()
		log.Info("Catalog loaded",
			zap.String("system", system),
			zap.String("path", catalogs[system]),
			zap.Int("terms", m.Catalog().Len()),
			zap.Int("duplicates", stats.Duplicates),
			zap.Int("missing_id", stats.MissingID),
		)
		out[strings.ToLower(system)] = m
	}
	return out, nil
}

func (s *terminologyService) Systems() []string {
	out := make([]string, 0, len(s.mappers))
	for k := range s.mappers {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (s *terminologyService) mapperFor(system string) (*mapper.Mapper, string, error) {
	key := strings.ToLower(strings.TrimSpace(system))
	m, ok := s.mappers[key]
	if !ok {
		return nil, key, fmt.Errorf("system %q: %w", system, domain.ErrUnrecognizedSystem)
	}
	return m, key, nil
}

func searchCacheKey(system string, limit int, query string) string {
	return fmt.Sprintf("%s%s:%d:%x", SearchCachePrefix, system, limit, sha1.Sum([]byte(query)))
}

func (s *terminologyService) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	m, system, err := s.mapperFor(req.System)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Query) == "" {
		return nil, fmt.Errorf("query is required: %w", ErrInvalidArgument)
	}
	limit := req.Limit
	if limit <= 0 {
		limit = mapper.DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	resp := &SearchResponse{System: system, Query: req.Query, Limit: limit}
	key := searchCacheKey(system, limit, req.Query)
	if cached, ok := s.cachedResults(ctx, key); ok {
		resp.Results = cached
		resp.Cached = true
		return resp, nil
	}

	resp.Results = m.Search(req.Query, limit)
	if resp.Results == nil {
		resp.Results = []domain.SearchResult{}
	}
	s.storeResults(ctx, key, resp.Results)
	return resp, nil
}

func (s *terminologyService) SearchBySymptom(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	return s.Search(ctx, req)
}

// cachedResults 缓存读失败只记录日志，按未命中处理
func (s *terminologyService) cachedResults(ctx context.Context, key string) ([]domain.SearchResult, bool) {
	if s.kv == nil {
		return nil, false
	}
	raw, err := s.kv.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, store.ErrMiss) {
			s.logger.Warn("Search cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	var results []domain.SearchResult
	if err := json.Unmarshal([]byte(raw), &results); err != nil {
		s.logger.Warn("Search cache entry corrupt", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return results, true
}

func (s *terminologyService) storeResults(ctx context.Context, key string, results []domain.SearchResult) {
	if s.kv == nil {
		return
	}
	b, err := json.Marshal(results)
	if err != nil {
		s.logger.Warn("Search cache encode failed", zap.Error(err))
		return
	}
	if err := s.kv.Set(ctx, key, string(b), s.cacheTTL); err != nil {
		s.logger.Warn("Search cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (s *terminologyService) GetTerm(ctx context.Context, system, termID string) (*TermDetail, error) {
	m, key, err := s.mapperFor(system)
	if err != nil {
		return nil, err
	}
	term, ok := m.FindByID(termID)
	if !ok {
		return nil, fmt.Errorf("%s term %q: %w", key, termID, domain.ErrNotFound)
	}
	return &TermDetail{System: key, Term: term, Scripts: ScriptVariants(term)}, nil
}

// ScriptVariants 提取术语的脚本变体（转写/本地文字），没有则返回 nil
func ScriptVariants(term domain.Term) map[string]string {
	var out map[string]string
	for _, f := range scriptFields {
		if v := term.Field(f); v != "" {
			if out == nil {
				out = map[string]string{}
			}
			out[f] = v
		}
	}
	return out
}

func (s *terminologyService) SuggestICD(ctx context.Context, system, termID string) (*ICDSuggestion, error) {
	detail, err := s.GetTerm(ctx, system, termID)
	if err != nil {
		return nil, err
	}
	if s.icd == nil {
		return nil, icd.ErrNotConfigured
	}
	query := strings.TrimSpace(detail.Term.EnglishTerm)
	if query == "" {
		query = strings.TrimSpace(detail.Term.Description)
	}
	if query == "" {
		return nil, fmt.Errorf("%s term %q has no english label: %w", detail.System, termID, ErrInvalidArgument)
	}

	entities, err := s.icd.Search(ctx, query)
	if err != nil {
		s.logger.Error("ICD suggestion failed",
			zap.String("system", detail.System), zap.String("term_id", termID), zap.Error(err))
		return nil, err
	}
	if entities == nil {
		entities = []icd.Entity{}
	}
	return &ICDSuggestion{System: detail.System, TermID: termID, Query: query, Entities: entities}, nil
}

func (s *terminologyService) InvalidateCache(ctx context.Context) (int, error) {
	if s.kv == nil {
		return 0, nil
	}
	n, err := store.DeletePrefix(ctx, s.kv, SearchCachePrefix)
	if err != nil {
		return 0, fmt.Errorf("invalidate search cache: %w", err)
	}
	s.logger.Info("Search cache invalidated", zap.Int("keys", n))
	return n, nil
}
