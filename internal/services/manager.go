// Package services wires the gateway together: storage, change log,
// checkpoint store, provider registry, notifier and the HTTP surface.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"

	"github.com/nats-io/nats.go"

	"github.com/faxioman/sofa/internal/api"
	"github.com/faxioman/sofa/internal/changelog"
	"github.com/faxioman/sofa/internal/checkpoint"
	"github.com/faxioman/sofa/internal/config"
	"github.com/faxioman/sofa/internal/document"
	"github.com/faxioman/sofa/internal/notify"
	"github.com/faxioman/sofa/internal/registry"
	"github.com/faxioman/sofa/internal/revision"
	"github.com/faxioman/sofa/internal/storage"
)

type Options struct {
	RunAPI bool

	// InitRevisions wipes the change log and seeds one fresh revision per
	// existing entity before serving.
	InitRevisions bool
}

// RegisterFunc populates the provider registry for this deployment. It runs
// once at startup and again on every Reload, always against a fresh builder.
type RegisterFunc func(db *sql.DB, b *registry.Builder) error

type Manager struct {
	cfg      *config.Config
	opts     Options
	register RegisterFunc

	db          *sql.DB
	log         *changelog.Log
	ckpt        *checkpoint.Store
	registry    *registry.Registry
	notifier    *notify.Notifier
	natsConn    *nats.Conn
	servers     []*http.Server
	serverNames []string
	wg          sync.WaitGroup
}

func NewManager(cfg *config.Config, opts Options, register RegisterFunc) *Manager {
	return &Manager{
		cfg:      cfg,
		opts:     opts,
		register: register,
	}
}

// Notifier exposes the change notifier so host code can report organic
// entity mutations.
func (m *Manager) Notifier() *notify.Notifier {
	return m.notifier
}

// Registry exposes the provider registry.
func (m *Manager) Registry() *registry.Registry {
	return m.registry
}

// Init opens storage and builds every component. It does not start serving.
func (m *Manager) Init(ctx context.Context) error {
	db, err := storage.Open(m.cfg.Storage.Path)
	if err != nil {
		return err
	}
	m.db = db

	if m.log, err = changelog.New(db); err != nil {
		return err
	}
	if m.ckpt, err = checkpoint.New(db); err != nil {
		return err
	}

	b := registry.NewBuilder()
	if err := m.register(db, b); err != nil {
		return fmt.Errorf("services: register providers: %w", err)
	}
	m.registry = b.Build()

	var pub notify.Publisher
	if m.cfg.NATS.URL != "" {
		nc, err := nats.Connect(m.cfg.NATS.URL)
		if err != nil {
			return fmt.Errorf("services: connect nats: %w", err)
		}
		m.natsConn = nc
		if pub, err = notify.NewNatsPublisher(nc); err != nil {
			return err
		}
	}
	m.notifier = notify.New(m.log, pub)

	if m.opts.InitRevisions {
		if err := m.InitRevisions(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Start launches the configured servers. Call Init first.
func (m *Manager) Start(ctx context.Context) error {
	if m.opts.RunAPI {
		srv := &http.Server{
			Addr: fmt.Sprintf(":%d", m.cfg.API.Port),
			Handler: api.NewServer(m.log, m.registry, m.ckpt, m.notifier,
				m.cfg.Storage.DatabaseName),
		}
		m.servers = append(m.servers, srv)
		m.serverNames = append(m.serverNames, "replication API")

		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			log.Printf("Replication API listening on %s", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("Replication API server error: %v", err)
			}
		}()
	}
	return nil
}

// Reload rebuilds the provider registry from the register function and swaps
// it in atomically. In-flight requests keep the table they resolved against.
func (m *Manager) Reload() error {
	b := registry.NewBuilder()
	if err := m.register(m.db, b); err != nil {
		return fmt.Errorf("services: reload providers: %w", err)
	}
	return m.registry.Reload(b.Build().Bindings())
}

// InitRevisions resets the change log and mints one revision per existing
// document of every registered binding, all in one transaction. Multi-
// instance providers must expose their keys through document.KeyLister to be
// seeded; others are skipped with a log line.
func (m *Manager) InitRevisions(ctx context.Context) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := m.log.Reset(ctx, tx); err != nil {
		return err
	}
	for _, bd := range m.registry.Bindings() {
		if bd.Provider.Singleton() {
			id := revision.ComposeID(bd.Prefix, "", true)
			if _, err := m.log.AppendTx(ctx, tx, id, revision.New(), false); err != nil {
				return err
			}
			continue
		}
		lister, ok := bd.Provider.(document.KeyLister)
		if !ok {
			log.Printf("services: init revisions: %s cannot list keys, skipping", bd.Prefix)
			continue
		}
		keys, err := lister.Keys(ctx)
		if err != nil {
			return err
		}
		for _, key := range keys {
			id := revision.ComposeID(bd.Prefix, key, false)
			if _, err := m.log.AppendTx(ctx, tx, id, revision.New(), false); err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}
