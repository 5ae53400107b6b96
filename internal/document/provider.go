// Package document defines the provider contract the gateway uses to turn
// stored entities into protocol documents and back, plus SQL-table-backed
// implementations of it.
package document

import (
	"context"
	"database/sql"
)

// Fields is the JSON-shaped body of a document, free of protocol underscore
// fields (_id, _rev, _deleted).
type Fields map[string]any

// Provider materializes and mutates entities of one document type.
//
// Apply and Delete receive the transaction that will also carry the change
// log append, so a provider sharing the gateway database commits its
// mutation and the log entry atomically. Providers backed by other stores
// may ignore tx; the engine still mutates before it appends, so the log is
// never ahead of the entities. The target revision is threaded through
// explicitly and must not be stashed on the entity.
type Provider interface {
	// Materialize renders the entity identified by key as a document body.
	// Returns model.ErrNotFound for unknown keys. Singleton providers
	// ignore key and render their whole collection as one document.
	Materialize(ctx context.Context, key string) (Fields, error)

	// Apply performs a partial update of the entity identified by key,
	// creating it when absent, with rev as the resulting revision.
	Apply(ctx context.Context, tx *sql.Tx, key string, fields Fields, rev string) error

	// Delete removes the entity identified by key.
	Delete(ctx context.Context, tx *sql.Tx, key string) error

	// Singleton reports whether this type has exactly one logical document.
	// Singleton documents are read-only through the bulk write path.
	Singleton() bool

	// KeyField names the entity field that serves as the replica key.
	KeyField() string
}

// KeyLister is implemented by providers that can enumerate every entity key
// they hold. The revision bootstrap needs it to seed the change log from
// pre-existing rows.
type KeyLister interface {
	Keys(ctx context.Context) ([]string, error)
}
