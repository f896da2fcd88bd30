package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/anukritich/AyushSetu/internal/domain"
)

// MemoryTermTablesRepo: DB 未启用时使用（CLI 本地运行 / 单元测试）
// - 表按 table_name 隔离，行按主键值存储
// - WithinTx 持有写锁，写入先落在副本上，fn 成功后整体替换
type MemoryTermTablesRepo struct {
	mu     sync.RWMutex
	tables map[string]map[string]domain.Row
}

func NewMemoryTermTablesRepo() *MemoryTermTablesRepo {
	return &MemoryTermTablesRepo{tables: map[string]map[string]domain.Row{}}
}

var _ TermTablesRepository = (*MemoryTermTablesRepo)(nil)

func (r *MemoryTermTablesRepo) EnsureTable(_ context.Context, def domain.SchemaDefinition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.tables[def.TableName] == nil {
		r.tables[def.TableName] = map[string]domain.Row{}
	}
	return nil
}

func (r *MemoryTermTablesRepo) WithinTx(ctx context.Context, fn func(w TableWriter) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx := &memoryTx{base: r.tables, staged: map[string]map[string]domain.Row{}}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	for table, rows := range tx.staged {
		r.tables[table] = rows
	}
	return nil
}

func (r *MemoryTermTablesRepo) ListRows(_ context.Context, def domain.SchemaDefinition) ([]domain.Row, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rows, ok := r.tables[def.TableName]
	if !ok {
		return nil, fmt.Errorf("%s: %w", def.TableName, ErrTableMissing)
	}
	keys := make([]string, 0, len(rows))
	for k := range rows {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]domain.Row, 0, len(keys))
	for _, k := range keys {
		out = append(out, copyRow(rows[k]))
	}
	return out, nil
}

func (r *MemoryTermTablesRepo) Target() string { return "memory" }

// Tables lists table names that exist.
func (r *MemoryTermTablesRepo) Tables() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tables))
	for n := range r.tables {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

type memoryTx struct {
	base   map[string]map[string]domain.Row
	staged map[string]map[string]domain.Row
}

func (tx *memoryTx) Upsert(ctx context.Context, def domain.SchemaDefinition, row domain.Row) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	pk, ok := primaryKeyValue(def, row)
	if !ok {
		return fmt.Errorf("%s: %w", def.TableName, ErrMissingPrimaryKey)
	}

	rows, ok := tx.staged[def.TableName]
	if !ok {
		base, exists := tx.base[def.TableName]
		if !exists {
			return fmt.Errorf("%s: %w", def.TableName, ErrTableMissing)
		}
		rows = make(map[string]domain.Row, len(base))
		for k, v := range base {
			rows[k] = v
		}
		tx.staged[def.TableName] = rows
	}

	full := make(domain.Row, len(def.Columns))
	for col := range def.Columns {
		full[col] = nil
	}
	for col, v := range row {
		if def.HasColumn(col) {
			full[col] = v
		}
	}
	rows[pk] = full
	return nil
}

func copyRow(row domain.Row) domain.Row {
	out := make(domain.Row, len(row))
	for k, v := range row {
		out[k] = v
	}
	return out
}
