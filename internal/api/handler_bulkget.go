package api

import (
	"encoding/json"
	"net/http"

	"github.com/faxioman/sofa/internal/revision"
)

// handleBulkGet streams one result object per requested doc. The response is
// produced lazily: each fragment is encoded and flushed as soon as it is
// computed, so the peer starts reading before later entries exist.
func (s *Server) handleBulkGet(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("latest") != "true" {
		writeError(w, http.StatusBadRequest, "bad_request",
			"latest=false is not implemented: only current revisions are served")
		return
	}
	withRevs := r.URL.Query().Get("revs") == "true"

	var req BulkGetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid _bulk_get body")
		return
	}

	ctx := r.Context()
	ids := make([]string, 0, len(req.Docs))
	for _, d := range req.Docs {
		ids = append(ids, d.ID)
	}
	states, err := s.log.LatestFor(ctx, ids)
	if err != nil {
		respondError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)
	enc := json.NewEncoder(w)

	w.Write([]byte(`{"results":[`))
	for i, d := range req.Docs {
		if i > 0 {
			w.Write([]byte(","))
		}
		w.Write([]byte(`{"id":`))
		enc.Encode(d.ID) // Encode appends a newline; harmless inside JSON
		w.Write([]byte(`,"docs":[`))

		st, ok := states[d.ID]
		if ok && !st.Deleted && revision.Match(d.Rev, st.Revision) {
			doc, err := s.materialize(ctx, d.ID, st.Revision)
			if err == nil {
				if withRevs {
					revs := make([]string, 0, len(st.History))
					for j := len(st.History) - 1; j >= 0; j-- {
						revs = append(revs, st.History[j].Revision)
					}
					doc["_revisions"] = Revisions{Start: len(revs), IDs: revs}
				}
				enc.Encode(map[string]any{"ok": doc})
			} else {
				enc.Encode(missingStub(d))
			}
		} else {
			enc.Encode(missingStub(d))
		}

		w.Write([]byte(`]}`))
		if flusher != nil {
			flusher.Flush()
		}
	}
	w.Write([]byte(`]}`))
}

func missingStub(d DocRequest) map[string]any {
	return map[string]any{
		"error": BulkGetError{ID: d.ID, Rev: d.Rev, Error: "not_found", Reason: "missing"},
	}
}
