package api

import (
	"fmt"
	"net/http"
)

func (s *Server) handleServerInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ServerInfo{
		CouchDB: "Welcome",
		UUID:    s.instanceID,
		Version: Version,
		Vendor:  VendorInfo{Name: "sofa"},
	})
}

func (s *Server) handleDatabaseHead(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleDatabaseInfo(w http.ResponseWriter, r *http.Request) {
	seq, err := s.log.LatestSequence(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, DatabaseInfo{
		DBName:            s.dbName,
		UpdateSeq:         seq,
		InstanceStartTime: "0",
	})
}

// handleDatabaseCreate always refuses: the gateway exposes one fixed logical
// database and never creates new ones.
func (s *Server) handleDatabaseCreate(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusForbidden, "unauthorized",
		fmt.Sprintf("unauthorized to create database %s", s.dbName))
}
