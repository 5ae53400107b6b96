package document

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/faxioman/sofa/pkg/model"
)

// RowProvider exposes one relational table as a multi-instance document
// type: one row per document, addressed by the value of the key column.
type RowProvider struct {
	db       *sql.DB
	table    string
	keyCol   string
	columns  []string
	colIndex map[string]bool
}

// NewRowProvider builds a RowProvider over table. keyCol is the replica key
// column; columns are the entity fields exposed through the protocol
// (keyCol included or not, it is always selected).
func NewRowProvider(db *sql.DB, table, keyCol string, columns []string) *RowProvider {
	idx := make(map[string]bool, len(columns))
	cols := make([]string, 0, len(columns)+1)
	for _, c := range columns {
		if c == keyCol || idx[c] {
			continue
		}
		idx[c] = true
		cols = append(cols, c)
	}
	return &RowProvider{
		db:       db,
		table:    table,
		keyCol:   keyCol,
		columns:  cols,
		colIndex: idx,
	}
}

func (p *RowProvider) Singleton() bool { return false }

func (p *RowProvider) KeyField() string { return p.keyCol }

func (p *RowProvider) Materialize(ctx context.Context, key string) (Fields, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = ?`,
		strings.Join(append([]string{p.keyCol}, p.columns...), ", "), p.table, p.keyCol)

	row := p.db.QueryRowContext(ctx, query, key)
	dest := make([]any, 1+len(p.columns))
	for i := range dest {
		dest[i] = new(any)
	}
	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("document: materialize %s/%s: %w", p.table, key, err)
	}

	fields := make(Fields, 1+len(p.columns))
	fields[p.keyCol] = normalize(*dest[0].(*any))
	for i, col := range p.columns {
		fields[col] = normalize(*dest[i+1].(*any))
	}
	return fields, nil
}

// Apply upserts the row for key, setting only the supplied fields that map
// to known columns. Unknown fields are dropped, not errors: replication
// peers may carry fields this deployment does not store.
func (p *RowProvider) Apply(ctx context.Context, tx *sql.Tx, key string, fields Fields, rev string) error {
	cols := []string{p.keyCol}
	args := []any{key}
	var sets []string
	for _, col := range p.columns {
		val, ok := fields[col]
		if !ok {
			continue
		}
		cols = append(cols, col)
		args = append(args, val)
		sets = append(sets, fmt.Sprintf("%s = excluded.%s", col, col))
	}

	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`,
		p.table, strings.Join(cols, ", "), strings.TrimSuffix(strings.Repeat("?,", len(cols)), ","))
	if len(sets) > 0 {
		query += fmt.Sprintf(` ON CONFLICT(%s) DO UPDATE SET %s`, p.keyCol, strings.Join(sets, ", "))
	} else {
		query += fmt.Sprintf(` ON CONFLICT(%s) DO NOTHING`, p.keyCol)
	}

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("document: apply %s/%s: %w", p.table, key, err)
	}
	return nil
}

func (p *RowProvider) Delete(ctx context.Context, tx *sql.Tx, key string) error {
	res, err := tx.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE %s = ?`, p.table, p.keyCol), key)
	if err != nil {
		return fmt.Errorf("document: delete %s/%s: %w", p.table, key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("document: delete %s/%s: %w", p.table, key, err)
	}
	if n == 0 {
		return model.ErrNotFound
	}
	return nil
}

// Keys lists every replica key in the table. The revision bootstrap uses it
// to seed the change log from existing rows.
func (p *RowProvider) Keys(ctx context.Context) ([]string, error) {
	rows, err := p.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT %s FROM %s ORDER BY %s`, p.keyCol, p.table, p.keyCol))
	if err != nil {
		return nil, fmt.Errorf("document: keys %s: %w", p.table, err)
	}
	defer rows.Close()
	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("document: keys %s: %w", p.table, err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("document: keys %s: %w", p.table, err)
	}
	return keys, nil
}

// normalize maps driver values onto JSON-friendly types.
func normalize(v any) any {
	switch t := v.(type) {
	case []byte:
		return string(t)
	default:
		return v
	}
}
