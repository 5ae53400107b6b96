// Package changelog is the append-only ledger of document mutations. It owns
// sequence assignment and revision history and is the single source of truth
// for the change feed.
package changelog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/faxioman/sofa/pkg/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS changes (
    seq         INTEGER PRIMARY KEY AUTOINCREMENT,
    document_id TEXT NOT NULL,
    revision    TEXT NOT NULL,
    deleted     INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_changes_document_id ON changes(document_id);
`

// Change is one row of the ledger. Rows are created exactly once per entity
// create/update/delete and never mutated afterwards.
type Change struct {
	Seq        int64
	DocumentID string
	Revision   string
	Deleted    bool
}

// DocChanges is one change-feed row: the newest state of a document plus
// every revision recorded after the consumer's checkpoint, oldest first.
type DocChanges struct {
	Seq        int64
	DocumentID string
	Deleted    bool
	Revisions  []string
}

// RevAt pairs a revision with the sequence that recorded it.
type RevAt struct {
	Seq      int64
	Revision string
}

// DocState is the current state of one document: the row with the highest
// sequence plus the full revision history, oldest first.
type DocState struct {
	Seq      int64
	Revision string
	Deleted  bool
	History  []RevAt
}

// querier is satisfied by both *sql.DB and *sql.Tx so appends can join a
// caller-managed transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Log is the change ledger backed by a SQL database.
type Log struct {
	db *sql.DB
}

// New creates a Log over db and ensures its schema exists.
func New(db *sql.DB) (*Log, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("changelog: ensure schema: %w", err)
	}
	return &Log{db: db}, nil
}

// DB exposes the underlying handle so callers can open transactions that
// span an entity mutation and its log append.
func (l *Log) DB() *sql.DB {
	return l.db
}

// Append records a mutation and returns its assigned sequence. The row is
// visible to readers as soon as Append returns.
func (l *Log) Append(ctx context.Context, documentID, rev string, deleted bool) (int64, error) {
	return appendChange(ctx, l.db, documentID, rev, deleted)
}

// AppendTx is Append inside a caller transaction. The sequence is assigned by
// the insert itself, so concurrent transactions still get distinct,
// monotonically increasing values.
func (l *Log) AppendTx(ctx context.Context, tx *sql.Tx, documentID, rev string, deleted bool) (int64, error) {
	return appendChange(ctx, tx, documentID, rev, deleted)
}

func appendChange(ctx context.Context, q querier, documentID, rev string, deleted bool) (int64, error) {
	res, err := q.ExecContext(ctx,
		`INSERT INTO changes (document_id, revision, deleted) VALUES (?, ?, ?)`,
		documentID, rev, boolToInt(deleted))
	if err != nil {
		return 0, fmt.Errorf("changelog: append %s: %w", documentID, err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("changelog: append %s: %w", documentID, err)
	}
	return seq, nil
}

// LatestSequence returns the highest sequence stored, or 0 when the log is
// empty.
func (l *Log) LatestSequence(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	err := l.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM changes`).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("changelog: latest sequence: %w", err)
	}
	return seq.Int64, nil
}

// ChangesSince returns one row per distinct document whose newest change has
// seq > since, ordered by that per-document max sequence ascending and
// truncated to limit documents. Each row carries every revision of the
// document recorded after since, oldest first.
func (l *Log) ChangesSince(ctx context.Context, since int64, limit int) ([]DocChanges, error) {
	// SQLite resolves the bare deleted column from the row that holds MAX(seq).
	rows, err := l.db.QueryContext(ctx,
		`SELECT document_id, MAX(seq) AS max_seq, deleted
		 FROM changes WHERE seq > ?
		 GROUP BY document_id
		 ORDER BY max_seq ASC
		 LIMIT ?`, since, limit)
	if err != nil {
		return nil, fmt.Errorf("changelog: changes since %d: %w", since, err)
	}
	defer rows.Close()

	var out []DocChanges
	index := make(map[string]int)
	for rows.Next() {
		var dc DocChanges
		var deleted int
		if err := rows.Scan(&dc.DocumentID, &dc.Seq, &deleted); err != nil {
			return nil, fmt.Errorf("changelog: changes since %d: %w", since, err)
		}
		dc.Deleted = deleted != 0
		index[dc.DocumentID] = len(out)
		out = append(out, dc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("changelog: changes since %d: %w", since, err)
	}
	if len(out) == 0 {
		return out, nil
	}

	ids := make([]string, 0, len(out))
	for _, dc := range out {
		ids = append(ids, dc.DocumentID)
	}
	revRows, err := l.db.QueryContext(ctx,
		`SELECT document_id, revision FROM changes
		 WHERE seq > ? AND document_id IN (`+placeholders(len(ids))+`)
		 ORDER BY seq ASC`, append([]any{since}, toAny(ids)...)...)
	if err != nil {
		return nil, fmt.Errorf("changelog: changes since %d: %w", since, err)
	}
	defer revRows.Close()
	for revRows.Next() {
		var id, rev string
		if err := revRows.Scan(&id, &rev); err != nil {
			return nil, fmt.Errorf("changelog: changes since %d: %w", since, err)
		}
		i := index[id]
		out[i].Revisions = append(out[i].Revisions, rev)
	}
	if err := revRows.Err(); err != nil {
		return nil, fmt.Errorf("changelog: changes since %d: %w", since, err)
	}
	return out, nil
}

// LatestFor returns, for every requested id present in the log, its current
// state and full revision history. Ids the log has never seen are simply
// absent from the result.
func (l *Log) LatestFor(ctx context.Context, documentIDs []string) (map[string]DocState, error) {
	if len(documentIDs) == 0 {
		return map[string]DocState{}, nil
	}
	rows, err := l.db.QueryContext(ctx,
		`SELECT seq, document_id, revision, deleted FROM changes
		 WHERE document_id IN (`+placeholders(len(documentIDs))+`)
		 ORDER BY seq ASC`, toAny(documentIDs)...)
	if err != nil {
		return nil, fmt.Errorf("changelog: latest for: %w", err)
	}
	defer rows.Close()

	out := make(map[string]DocState)
	for rows.Next() {
		var c Change
		var deleted int
		if err := rows.Scan(&c.Seq, &c.DocumentID, &c.Revision, &deleted); err != nil {
			return nil, fmt.Errorf("changelog: latest for: %w", err)
		}
		st := out[c.DocumentID]
		// Rows arrive in sequence order, so the last one wins.
		st.Seq = c.Seq
		st.Revision = c.Revision
		st.Deleted = deleted != 0
		st.History = append(st.History, RevAt{Seq: c.Seq, Revision: c.Revision})
		out[c.DocumentID] = st
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("changelog: latest for: %w", err)
	}
	return out, nil
}

// RevisionsFor returns every revision recorded for a document, most recent
// first. An id the log has never seen yields model.ErrNotFound; a deleted
// document is still found.
func (l *Log) RevisionsFor(ctx context.Context, documentID string) ([]string, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT revision FROM changes WHERE document_id = ? ORDER BY seq DESC`, documentID)
	if err != nil {
		return nil, fmt.Errorf("changelog: revisions for %s: %w", documentID, err)
	}
	defer rows.Close()

	var revs []string
	for rows.Next() {
		var rev string
		if err := rows.Scan(&rev); err != nil {
			return nil, fmt.Errorf("changelog: revisions for %s: %w", documentID, err)
		}
		revs = append(revs, rev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("changelog: revisions for %s: %w", documentID, err)
	}
	if len(revs) == 0 {
		return nil, model.ErrNotFound
	}
	return revs, nil
}

// AllCurrent returns the current (id, revision, deleted) of every document in
// the log, ordered by document id. Used by the unfiltered all-docs listing.
func (l *Log) AllCurrent(ctx context.Context) ([]Change, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT document_id, MAX(seq) AS max_seq, revision, deleted
		 FROM changes
		 GROUP BY document_id
		 ORDER BY document_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("changelog: all current: %w", err)
	}
	defer rows.Close()

	var out []Change
	for rows.Next() {
		var c Change
		var deleted int
		if err := rows.Scan(&c.DocumentID, &c.Seq, &c.Revision, &deleted); err != nil {
			return nil, fmt.Errorf("changelog: all current: %w", err)
		}
		c.Deleted = deleted != 0
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("changelog: all current: %w", err)
	}
	return out, nil
}

// Reset deletes every row. Only the revision bootstrap uses it, inside its
// own transaction.
func (l *Log) Reset(ctx context.Context, tx *sql.Tx) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM changes`); err != nil {
		return fmt.Errorf("changelog: reset: %w", err)
	}
	return nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func toAny(ids []string) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
