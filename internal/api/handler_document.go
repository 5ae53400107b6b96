package api

import (
	"net/http"
)

// handleGetDocument serves the current revision of a single document.
// History is not addressable here; peers wanting a specific revision go
// through _bulk_get.
func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("docid")

	ctx := r.Context()
	states, err := s.log.LatestFor(ctx, []string{id})
	if err != nil {
		respondError(w, err)
		return
	}
	st, ok := states[id]
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "missing")
		return
	}
	if st.Deleted {
		writeError(w, http.StatusNotFound, "not_found", "deleted")
		return
	}

	doc, err := s.materialize(ctx, id, st.Revision)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}
