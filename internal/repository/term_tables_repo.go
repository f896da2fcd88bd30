package repository

import (
	"context"
	"errors"

	"github.com/anukritich/AyushSetu/internal/domain"
)

var (
	// ErrTableMissing upsert/list against a table that EnsureTable never created
	ErrTableMissing = errors.New("table does not exist")
	// ErrMissingPrimaryKey row has no value for the definition's primary key
	ErrMissingPrimaryKey = errors.New("row has no primary key value")
)

// TermTablesRepository 各术语体系规范表的存储
// - EnsureTable 幂等建表
// - WithinTx 串行化写入：同一时刻只有一个写者，fn 返回 nil 时提交
type TermTablesRepository interface {
	EnsureTable(ctx context.Context, def domain.SchemaDefinition) error
	WithinTx(ctx context.Context, fn func(w TableWriter) error) error
	ListRows(ctx context.Context, def domain.SchemaDefinition) ([]domain.Row, error)
	// Target describes where rows are persisted (redacted DSN or "memory").
	Target() string
}

// TableWriter upserts rows inside a transaction.
// Upsert has replace semantics: whitelist columns absent from row end up NULL.
type TableWriter interface {
	Upsert(ctx context.Context, def domain.SchemaDefinition, row domain.Row) error
}

func primaryKeyValue(def domain.SchemaDefinition, row domain.Row) (string, bool) {
	s, ok := row[def.PrimaryKey].(string)
	return s, ok && s != ""
}
