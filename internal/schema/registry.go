package schema

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/anukritich/AyushSetu/internal/domain"
)

var primaryKeyPattern = regexp.MustCompile(`(?i)([A-Za-z_][A-Za-z0-9_]*)\s+[A-Za-z]+(?:\([0-9]+\))?\s+PRIMARY\s+KEY`)

// Registry 术语体系 -> 规范表定义
// 每个实例独立持有自己的定义；需要共享时显式传递同一个 *Registry
type Registry struct {
	mu   sync.RWMutex
	defs map[string]domain.SchemaDefinition
}

// NewRegistry builds a registry from the given definitions (copied).
func NewRegistry(defs ...domain.SchemaDefinition) *Registry {
	r := &Registry{defs: make(map[string]domain.SchemaDefinition, len(defs))}
	for _, d := range defs {
		d.SystemKey = strings.ToLower(d.SystemKey)
		r.defs[d.SystemKey] = d.Copy()
	}
	return r
}

// Get 获取体系定义；未注册返回 ErrNotFound
func (r *Registry) Get(systemKey string) (domain.SchemaDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.defs[strings.ToLower(systemKey)]
	if !ok {
		return domain.SchemaDefinition{}, fmt.Errorf("schema for system %q: %w", systemKey, domain.ErrNotFound)
	}
	return d.Copy(), nil
}

// Register 注册（或覆盖）一个术语体系，对同一实例的后续导入立即生效
func (r *Registry) Register(systemKey, tableName string, columns []string, createStatement string) error {
	cols := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		if c = strings.TrimSpace(c); c != "" {
			cols[c] = struct{}{}
		}
	}
	return r.RegisterDefinition(domain.SchemaDefinition{
		SystemKey:       systemKey,
		TableName:       tableName,
		Columns:         cols,
		PrimaryKey:      inferPrimaryKey(createStatement, cols),
		CreateStatement: createStatement,
	})
}

// RegisterDefinition is the struct form of Register.
func (r *Registry) RegisterDefinition(def domain.SchemaDefinition) error {
	def.SystemKey = strings.ToLower(strings.TrimSpace(def.SystemKey))
	if def.SystemKey == "" {
		return fmt.Errorf("system key is required")
	}
	if def.TableName == "" {
		return fmt.Errorf("table name is required for system %q", def.SystemKey)
	}
	if len(def.Columns) == 0 {
		return fmt.Errorf("column whitelist is empty for system %q", def.SystemKey)
	}
	if strings.TrimSpace(def.CreateStatement) == "" {
		return fmt.Errorf("create statement is required for system %q", def.SystemKey)
	}
	if def.PrimaryKey == "" {
		def.PrimaryKey = inferPrimaryKey(def.CreateStatement, def.Columns)
	}
	if def.PrimaryKey == "" || !def.HasColumn(def.PrimaryKey) {
		return fmt.Errorf("system %q: primary key %q is not in the column whitelist", def.SystemKey, def.PrimaryKey)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.defs[def.SystemKey] = def.Copy()
	return nil
}

// Keys returns the registered system keys in sorted order.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.defs))
	for k := range r.defs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Definitions returns copies of all definitions ordered by system key.
func (r *Registry) Definitions() []domain.SchemaDefinition {
	keys := r.Keys()

	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.SchemaDefinition, 0, len(keys))
	for _, k := range keys {
		if d, ok := r.defs[k]; ok {
			out = append(out, d.Copy())
		}
	}
	return out
}

// Clone 深拷贝，供 pipeline 持有私有副本
func (r *Registry) Clone() *Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c := &Registry{defs: make(map[string]domain.SchemaDefinition, len(r.defs))}
	for k, d := range r.defs {
		c.defs[k] = d.Copy()
	}
	return c
}

// inferPrimaryKey reads "<col> <type> PRIMARY KEY" from the DDL, then falls back to term_id / code.
func inferPrimaryKey(createStatement string, cols map[string]struct{}) string {
	if m := primaryKeyPattern.FindStringSubmatch(createStatement); len(m) == 2 {
		if _, ok := cols[m[1]]; ok {
			return m[1]
		}
		for c := range cols {
			if strings.EqualFold(c, m[1]) {
				return c
			}
		}
	}
	for _, candidate := range []string{"term_id", "code"} {
		if _, ok := cols[candidate]; ok {
			return candidate
		}
	}
	return ""
}
