// Package api implements the replication protocol surface: the CouchDB-style
// endpoints a sync client negotiates and transfers changes through. Handlers
// are stateless; all cross-request state lives in the change log, the
// provider registry and the checkpoint store.
package api

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/faxioman/sofa/internal/changelog"
	"github.com/faxioman/sofa/internal/checkpoint"
	"github.com/faxioman/sofa/internal/notify"
	"github.com/faxioman/sofa/internal/registry"
)

// Version is reported by the server info endpoint.
const Version = "1.0.0"

type Server struct {
	log        *changelog.Log
	registry   *registry.Registry
	ckpt       *checkpoint.Store
	notifier   *notify.Notifier
	dbName     string
	instanceID string
	mux        *http.ServeMux
}

func NewServer(log *changelog.Log, reg *registry.Registry, ckpt *checkpoint.Store, notifier *notify.Notifier, dbName string) *Server {
	s := &Server{
		log:        log,
		registry:   reg,
		ckpt:       ckpt,
		notifier:   notifier,
		dbName:     dbName,
		instanceID: uuid.NewString(),
		mux:        http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Replication clients re-validate aggressively; never let a cache answer
	// for the feed.
	w.Header().Set("Cache-Control", "must-revalidate")
	s.mux.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /{$}", s.handleServerInfo)

	// Database Operations
	s.mux.HandleFunc("HEAD /db/{$}", s.handleDatabaseHead)
	s.mux.HandleFunc("GET /db/{$}", s.handleDatabaseInfo)
	s.mux.HandleFunc("PUT /db/{$}", s.handleDatabaseCreate)

	// Replication Checkpoints
	s.mux.HandleFunc("GET /db/_local/{peer}", s.handleGetCheckpoint)
	s.mux.HandleFunc("PUT /db/_local/{peer}", s.handlePutCheckpoint)

	// Change Feed and Negotiation
	s.mux.HandleFunc("GET /db/_changes", s.handleChanges)
	s.mux.HandleFunc("POST /db/_all_docs", s.handleAllDocs)
	s.mux.HandleFunc("POST /db/_bulk_get", s.handleBulkGet)
	s.mux.HandleFunc("POST /db/_revs_diff", s.handleRevsDiff)

	// Writes
	s.mux.HandleFunc("POST /db/_bulk_docs", s.handleBulkDocs)
	s.mux.HandleFunc("GET /db/{docid}", s.handleGetDocument)
	s.mux.HandleFunc("POST /db/{docid}", s.handleBulkDocs)

	// Health Check
	s.mux.HandleFunc("GET /health", s.handleHealth)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}
