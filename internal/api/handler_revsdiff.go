package api

import (
	"encoding/json"
	"net/http"
)

func (s *Server) handleRevsDiff(w http.ResponseWriter, r *http.Request) {
	var req map[string][]string
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid _revs_diff body")
		return
	}

	ctx := r.Context()
	ids := make([]string, 0, len(req))
	for id := range req {
		ids = append(ids, id)
	}
	states, err := s.log.LatestFor(ctx, ids)
	if err != nil {
		respondError(w, err)
		return
	}

	// Ids with nothing missing are omitted entirely; an empty object is a
	// valid answer.
	resp := make(map[string]RevsDiffEntry)
	for id, requested := range req {
		known := make(map[string]bool)
		if st, ok := states[id]; ok {
			for _, h := range st.History {
				known[h.Revision] = true
			}
		}
		var missing []string
		for _, rev := range requested {
			if !known[rev] {
				missing = append(missing, rev)
			}
		}
		if len(missing) > 0 {
			resp[id] = RevsDiffEntry{Missing: missing}
		}
	}

	writeJSON(w, http.StatusOK, resp)
}
