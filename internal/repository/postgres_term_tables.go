package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/anukritich/AyushSetu/internal/domain"
	"github.com/lib/pq"
)

// PostgresTermTablesRepo 规范表的 PostgreSQL 实现
// 列名统一按小写引用（未加引号的 DDL 在 PostgreSQL 中会折叠为小写）
type PostgresTermTablesRepo struct {
	db     *sql.DB
	target string
}

// NewPostgresTermTablesRepo target is a password-free description of the database, used in run reports.
func NewPostgresTermTablesRepo(db *sql.DB, target string) *PostgresTermTablesRepo {
	return &PostgresTermTablesRepo{db: db, target: target}
}

// 确保实现了接口
var _ TermTablesRepository = (*PostgresTermTablesRepo)(nil)

func (r *PostgresTermTablesRepo) EnsureTable(ctx context.Context, def domain.SchemaDefinition) error {
	if _, err := r.db.ExecContext(ctx, def.CreateStatement); err != nil {
		return fmt.Errorf("failed to ensure table %s: %w", def.TableName, err)
	}
	return nil
}

func (r *PostgresTermTablesRepo) WithinTx(ctx context.Context, fn func(w TableWriter) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(&postgresTx{tx: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

func (r *PostgresTermTablesRepo) ListRows(ctx context.Context, def domain.SchemaDefinition) ([]domain.Row, error) {
	cols := def.ColumnList()
	quoted := quoteColumns(cols)
	query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY %s`,
		strings.Join(quoted, ", "), quoteColumn(def.TableName), quoteColumn(def.PrimaryKey))

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", def.TableName, err)
	}
	defer rows.Close()

	var out []domain.Row
	for rows.Next() {
		values := make([]sql.NullString, len(cols))
		dest := make([]any, len(cols))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", def.TableName, err)
		}
		row := make(domain.Row, len(cols))
		for i, c := range cols {
			if values[i].Valid {
				row[c] = values[i].String
			} else {
				row[c] = nil
			}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s: %w", def.TableName, err)
	}
	return out, nil
}

func (r *PostgresTermTablesRepo) Target() string { return r.target }

type postgresTx struct {
	tx *sql.Tx
}

// Upsert INSERT ... ON CONFLICT (pk) DO UPDATE，白名单内未出现的列写 NULL（等价于 INSERT OR REPLACE）
func (p *postgresTx) Upsert(ctx context.Context, def domain.SchemaDefinition, row domain.Row) error {
	if _, ok := primaryKeyValue(def, row); !ok {
		return fmt.Errorf("%s: %w", def.TableName, ErrMissingPrimaryKey)
	}

	query, cols := upsertQuery(def)
	args := make([]any, len(cols))
	for i, c := range cols {
		args[i] = row[c]
	}
	if _, err := p.tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to upsert into %s: %w", def.TableName, err)
	}
	return nil
}

func upsertQuery(def domain.SchemaDefinition) (string, []string) {
	cols := def.ColumnList()
	placeholders := make([]string, len(cols))
	var updates []string
	for i, c := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		if c != def.PrimaryKey {
			q := quoteColumn(c)
			updates = append(updates, q+" = EXCLUDED."+q)
		}
	}

	conflict := "DO NOTHING"
	if len(updates) > 0 {
		conflict = "DO UPDATE SET " + strings.Join(updates, ", ")
	}
	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) %s`,
		quoteColumn(def.TableName),
		strings.Join(quoteColumns(cols), ", "),
		strings.Join(placeholders, ", "),
		quoteColumn(def.PrimaryKey),
		conflict,
	)
	return query, cols
}

func quoteColumn(c string) string {
	return pq.QuoteIdentifier(strings.ToLower(c))
}

func quoteColumns(cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = quoteColumn(c)
	}
	return out
}
