package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/faxioman/sofa/internal/checkpoint"
)

func checkpointDoc(rl *checkpoint.ReplicationLog) CheckpointDoc {
	doc := CheckpointDoc{
		ID:         "_local/" + rl.PeerID,
		Rev:        fmt.Sprintf("0-%d", len(rl.History)),
		Version:    rl.Version,
		Replicator: rl.Replicator,
		LastSeq:    rl.LastSeq(),
		History:    make([]HistoryEntry, 0, len(rl.History)),
	}
	if n := len(rl.History); n > 0 {
		doc.SessionID = rl.History[n-1].SessionID
	}
	// Stored oldest-first, rendered newest-first as replicators expect.
	for i := len(rl.History) - 1; i >= 0; i-- {
		h := rl.History[i]
		doc.History = append(doc.History, HistoryEntry{SessionID: h.SessionID, LastSeq: h.LastSeq})
	}
	return doc
}

func (s *Server) handleGetCheckpoint(w http.ResponseWriter, r *http.Request) {
	peer := r.PathValue("peer")

	rl, err := s.ckpt.Get(r.Context(), peer)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, checkpointDoc(rl))
}

func (s *Server) handlePutCheckpoint(w http.ResponseWriter, r *http.Request) {
	peer := r.PathValue("peer")

	var body CheckpointBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid checkpoint body")
		return
	}
	if body.SessionID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "session_id is required")
		return
	}

	rl, err := s.ckpt.Put(r.Context(), peer, body.Version, body.Replicator, body.SessionID, body.LastSeq)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, CheckpointPutResponse{
		OK:  true,
		ID:  "_local/" + peer,
		Rev: fmt.Sprintf("0-%d", len(rl.History)),
	})
}
