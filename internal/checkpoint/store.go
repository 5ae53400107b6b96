// Package checkpoint persists replication progress per peer: the "_local"
// replication log of the sync protocol.
package checkpoint

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/faxioman/sofa/pkg/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS replication_log (
    peer_id    TEXT PRIMARY KEY,
    version    INTEGER NOT NULL,
    replicator TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS replication_history (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    peer_id    TEXT NOT NULL REFERENCES replication_log(peer_id) ON DELETE CASCADE,
    session_id TEXT NOT NULL,
    last_seq   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_replication_history_peer ON replication_history(peer_id);
`

// HistoryEntry is one recorded replication session, newest last.
type HistoryEntry struct {
	SessionID string
	LastSeq   int64
}

// ReplicationLog is the full checkpoint state for one peer. Version and
// Replicator are opaque metadata fixed when the checkpoint is first created;
// only History grows afterwards.
type ReplicationLog struct {
	PeerID     string
	Version    int64
	Replicator string
	History    []HistoryEntry
}

// LastSeq is the checkpoint's current position: the last_seq of the most
// recently appended history entry, or 0 for an empty history.
func (r *ReplicationLog) LastSeq() int64 {
	if len(r.History) == 0 {
		return 0
	}
	return r.History[len(r.History)-1].LastSeq
}

// Store is the checkpoint store backed by a SQL database.
type Store struct {
	db *sql.DB
}

// New creates a Store over db and ensures its schema exists.
func New(db *sql.DB) (*Store, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("checkpoint: ensure schema: %w", err)
	}
	return &Store{db: db}, nil
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Get returns the checkpoint for peerID, or model.ErrNotFound.
func (s *Store) Get(ctx context.Context, peerID string) (*ReplicationLog, error) {
	return s.get(ctx, s.db, peerID)
}

// Put records a replication session for peerID and returns the updated
// checkpoint. The checkpoint is created on first use; version and replicator
// are never changed afterwards, only a new history entry is appended. The
// whole append-and-read runs in one transaction, so concurrent puts for the
// same peer never lose an entry and the returned log is exactly this put's
// result, untouched by concurrent sessions.
func (s *Store) Put(ctx context.Context, peerID string, version int64, replicator, sessionID string, lastSeq int64) (*ReplicationLog, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: put %s: %w", peerID, err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO replication_log (peer_id, version, replicator) VALUES (?, ?, ?)
		 ON CONFLICT(peer_id) DO NOTHING`, peerID, version, replicator)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: put %s: %w", peerID, err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO replication_history (peer_id, session_id, last_seq) VALUES (?, ?, ?)`,
		peerID, sessionID, lastSeq)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: put %s: %w", peerID, err)
	}
	rl, err := s.get(ctx, tx, peerID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("checkpoint: put %s: %w", peerID, err)
	}
	return rl, nil
}

func (s *Store) get(ctx context.Context, q querier, peerID string) (*ReplicationLog, error) {
	rl := &ReplicationLog{PeerID: peerID}
	err := q.QueryRowContext(ctx,
		`SELECT version, replicator FROM replication_log WHERE peer_id = ?`, peerID).
		Scan(&rl.Version, &rl.Replicator)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("checkpoint: get %s: %w", peerID, err)
	}
	if err := s.loadHistory(ctx, q, rl); err != nil {
		return nil, err
	}
	return rl, nil
}

func (s *Store) loadHistory(ctx context.Context, q querier, rl *ReplicationLog) error {
	rows, err := q.QueryContext(ctx,
		`SELECT session_id, last_seq FROM replication_history WHERE peer_id = ? ORDER BY id ASC`,
		rl.PeerID)
	if err != nil {
		return fmt.Errorf("checkpoint: history %s: %w", rl.PeerID, err)
	}
	defer rows.Close()
	for rows.Next() {
		var h HistoryEntry
		if err := rows.Scan(&h.SessionID, &h.LastSeq); err != nil {
			return fmt.Errorf("checkpoint: history %s: %w", rl.PeerID, err)
		}
		rl.History = append(rl.History, h)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("checkpoint: history %s: %w", rl.PeerID, err)
	}
	return nil
}
