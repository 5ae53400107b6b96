// Package registry maps document type prefixes to their providers. The table
// is built once at startup, frozen, and only replaced wholesale by an
// explicit reload; reads never take a lock.
package registry

import (
	"fmt"
	"sync/atomic"

	"github.com/faxioman/sofa/internal/document"
	"github.com/faxioman/sofa/internal/revision"
	"github.com/faxioman/sofa/pkg/model"
)

// Binding ties a type prefix to the provider serving it.
type Binding struct {
	Prefix   string
	Provider document.Provider
}

// Builder accumulates bindings before the registry starts serving. A
// duplicate prefix aborts the build: it is a configuration error, and no
// partially built registry is left behind.
type Builder struct {
	bindings []Binding
	index    map[string]bool
}

func NewBuilder() *Builder {
	return &Builder{index: make(map[string]bool)}
}

func (b *Builder) Register(prefix string, provider document.Provider) error {
	if prefix == "" {
		return fmt.Errorf("registry: empty prefix: %w", model.ErrBadRequest)
	}
	if b.index[prefix] {
		return fmt.Errorf("registry: prefix %q: %w", prefix, model.ErrDuplicatePrefix)
	}
	b.index[prefix] = true
	b.bindings = append(b.bindings, Binding{Prefix: prefix, Provider: provider})
	return nil
}

// Build freezes the accumulated bindings into a serving registry.
func (b *Builder) Build() *Registry {
	r := &Registry{}
	r.table.Store(snapshot(b.bindings))
	return r
}

// Registry is the process-wide prefix table. Resolution happens on an
// immutable snapshot; Reload swaps the whole snapshot atomically, so readers
// never observe a partially rebuilt table.
type Registry struct {
	table atomic.Pointer[map[string]Binding]
}

func snapshot(bindings []Binding) *map[string]Binding {
	m := make(map[string]Binding, len(bindings))
	for _, bd := range bindings {
		m[bd.Prefix] = bd
	}
	return &m
}

// Resolve returns the binding for a type prefix, or model.ErrNotFound.
func (r *Registry) Resolve(prefix string) (Binding, error) {
	m := *r.table.Load()
	bd, ok := m[prefix]
	if !ok {
		return Binding{}, fmt.Errorf("registry: prefix %q: %w", prefix, model.ErrNotFound)
	}
	return bd, nil
}

// ResolveDocumentID resolves the binding addressed by a full document id.
func (r *Registry) ResolveDocumentID(documentID string) (Binding, error) {
	prefix, _ := revision.SplitID(documentID)
	return r.Resolve(prefix)
}

// Bindings returns the current bindings in no particular order.
func (r *Registry) Bindings() []Binding {
	m := *r.table.Load()
	out := make([]Binding, 0, len(m))
	for _, bd := range m {
		out = append(out, bd)
	}
	return out
}

// Reload replaces the whole table. The new set is validated first; on a
// duplicate prefix the registry keeps serving the old table.
func (r *Registry) Reload(bindings []Binding) error {
	seen := make(map[string]bool, len(bindings))
	for _, bd := range bindings {
		if seen[bd.Prefix] {
			return fmt.Errorf("registry: prefix %q: %w", bd.Prefix, model.ErrDuplicatePrefix)
		}
		seen[bd.Prefix] = true
	}
	r.table.Store(snapshot(bindings))
	return nil
}
