// Package notify is the explicit change-notification path: every entity
// mutation, replication-driven or organic, goes through a Notifier so the
// change log and any downstream consumers see it. This replaces implicit
// persistence hooks; a mutation that skips the notifier is invisible to
// replication peers.
package notify

import (
	"context"
	"database/sql"
	"log"

	"github.com/faxioman/sofa/internal/changelog"
	"github.com/faxioman/sofa/internal/revision"
)

// Event describes one recorded change, as fanned out to subscribers.
type Event struct {
	Seq        int64  `json:"seq"`
	DocumentID string `json:"id"`
	Revision   string `json:"rev"`
	Deleted    bool   `json:"deleted,omitempty"`
}

// Publisher fans recorded changes out to external consumers. Publishing is
// best effort: the change log is the source of truth and a failed publish
// never fails the mutation.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Notifier appends changes to the log and publishes them.
type Notifier struct {
	log *changelog.Log
	pub Publisher
}

// New creates a Notifier. pub may be nil, in which case changes are only
// logged.
func New(cl *changelog.Log, pub Publisher) *Notifier {
	return &Notifier{log: cl, pub: pub}
}

// Changed records a new revision of documentID. An empty rev mints a fresh
// one; callers that already negotiated a revision (the replication apply
// path) pass it explicitly. Returns the revision recorded and its sequence.
func (n *Notifier) Changed(ctx context.Context, documentID, rev string) (string, int64, error) {
	return n.record(ctx, nil, documentID, rev, false)
}

// Deleted records a tombstone for documentID.
func (n *Notifier) Deleted(ctx context.Context, documentID, rev string) (string, int64, error) {
	return n.record(ctx, nil, documentID, rev, true)
}

// ChangedTx is Changed inside a caller transaction, so the entity mutation
// and the log append commit together. Nothing is published here: the caller
// passes the returned event to Publish after its commit, so a rollback never
// leaks an event for a revision peers will never see.
func (n *Notifier) ChangedTx(ctx context.Context, tx *sql.Tx, documentID, rev string) (Event, error) {
	return n.append(ctx, tx, documentID, rev, false)
}

// DeletedTx is Deleted inside a caller transaction.
func (n *Notifier) DeletedTx(ctx context.Context, tx *sql.Tx, documentID, rev string) (Event, error) {
	return n.append(ctx, tx, documentID, rev, true)
}

// Publish fans ev out to the configured publisher. Best effort: failures are
// logged, never returned, the change log already holds the truth.
func (n *Notifier) Publish(ctx context.Context, ev Event) {
	if n.pub == nil {
		return
	}
	if err := n.pub.Publish(ctx, ev); err != nil {
		log.Printf("notify: publish %s: %v", ev.DocumentID, err)
	}
}

func (n *Notifier) record(ctx context.Context, tx *sql.Tx, documentID, rev string, deleted bool) (string, int64, error) {
	ev, err := n.append(ctx, tx, documentID, rev, deleted)
	if err != nil {
		return "", 0, err
	}
	n.Publish(ctx, ev)
	return ev.Revision, ev.Seq, nil
}

func (n *Notifier) append(ctx context.Context, tx *sql.Tx, documentID, rev string, deleted bool) (Event, error) {
	if rev == "" {
		rev = revision.New()
	}
	var (
		seq int64
		err error
	)
	if tx != nil {
		seq, err = n.log.AppendTx(ctx, tx, documentID, rev, deleted)
	} else {
		seq, err = n.log.Append(ctx, documentID, rev, deleted)
	}
	if err != nil {
		return Event{}, err
	}
	return Event{Seq: seq, DocumentID: documentID, Revision: rev, Deleted: deleted}, nil
}
