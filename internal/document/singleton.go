package document

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/faxioman/sofa/pkg/model"
)

// SingletonProvider exposes a whole table as one list-valued document: the
// "single document" type of the protocol. It is read-only; the gateway skips
// singleton documents on the bulk write path, and any direct Apply or Delete
// is rejected.
type SingletonProvider struct {
	db      *sql.DB
	table   string
	keyCol  string
	columns []string
}

func NewSingletonProvider(db *sql.DB, table, keyCol string, columns []string) *SingletonProvider {
	cols := make([]string, 0, len(columns))
	for _, c := range columns {
		if c == keyCol {
			continue
		}
		cols = append(cols, c)
	}
	return &SingletonProvider{db: db, table: table, keyCol: keyCol, columns: cols}
}

func (p *SingletonProvider) Singleton() bool { return true }

func (p *SingletonProvider) KeyField() string { return p.keyCol }

// Materialize renders every row of the table as one document with an "items"
// list. The key argument is ignored; singleton documents are addressed by
// their bare type prefix.
func (p *SingletonProvider) Materialize(ctx context.Context, _ string) (Fields, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY %s`,
		strings.Join(append([]string{p.keyCol}, p.columns...), ", "), p.table, p.keyCol)

	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("document: materialize %s: %w", p.table, err)
	}
	defer rows.Close()

	items := []Fields{}
	for rows.Next() {
		dest := make([]any, 1+len(p.columns))
		for i := range dest {
			dest[i] = new(any)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("document: materialize %s: %w", p.table, err)
		}
		item := make(Fields, 1+len(p.columns))
		item[p.keyCol] = normalize(*dest[0].(*any))
		for i, col := range p.columns {
			item[col] = normalize(*dest[i+1].(*any))
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("document: materialize %s: %w", p.table, err)
	}
	return Fields{"items": items}, nil
}

func (p *SingletonProvider) Apply(ctx context.Context, tx *sql.Tx, key string, fields Fields, rev string) error {
	return fmt.Errorf("document: %s is a singleton type: %w", p.table, model.ErrForbidden)
}

func (p *SingletonProvider) Delete(ctx context.Context, tx *sql.Tx, key string) error {
	return fmt.Errorf("document: %s is a singleton type: %w", p.table, model.ErrForbidden)
}
