package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/faxioman/sofa/internal/revision"
)

// materialize renders the document body for id through its bound provider
// and stamps the protocol fields onto it.
func (s *Server) materialize(ctx context.Context, documentID, rev string) (map[string]any, error) {
	bd, err := s.registry.ResolveDocumentID(documentID)
	if err != nil {
		return nil, err
	}
	_, key := revision.SplitID(documentID)
	fields, err := bd.Provider.Materialize(ctx, key)
	if err != nil {
		return nil, err
	}
	doc := make(map[string]any, len(fields)+2)
	for k, v := range fields {
		doc[k] = v
	}
	doc["_id"] = documentID
	doc["_rev"] = rev
	return doc, nil
}

func (s *Server) handleAllDocs(w http.ResponseWriter, r *http.Request) {
	var req AllDocsRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", "invalid _all_docs body")
			return
		}
	}
	includeDocs := r.URL.Query().Get("include_docs") == "true"

	ctx := r.Context()
	resp := AllDocsResponse{Rows: []AllDocsRow{}}

	if req.Keys == nil {
		// Unfiltered: every live document in the log.
		current, err := s.log.AllCurrent(ctx)
		if err != nil {
			respondError(w, err)
			return
		}
		for _, c := range current {
			if c.Deleted {
				continue
			}
			resp.Rows = append(resp.Rows, s.allDocsRow(ctx, c.DocumentID, c.Revision, false, includeDocs))
		}
	} else {
		states, err := s.log.LatestFor(ctx, req.Keys)
		if err != nil {
			respondError(w, err)
			return
		}
		for _, key := range req.Keys {
			st, ok := states[key]
			if !ok {
				resp.Rows = append(resp.Rows, AllDocsRow{Key: key, Error: "not_found"})
				continue
			}
			resp.Rows = append(resp.Rows, s.allDocsRow(ctx, key, st.Revision, st.Deleted, includeDocs))
		}
	}

	resp.TotalRows = len(resp.Rows)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) allDocsRow(ctx context.Context, documentID, rev string, deleted, includeDocs bool) AllDocsRow {
	row := AllDocsRow{ID: documentID, Key: documentID, Rev: rev, Deleted: deleted}
	if includeDocs && !deleted {
		// A missing provider omits the document but keeps the row.
		if doc, err := s.materialize(ctx, documentID, rev); err == nil {
			row.Doc = doc
		}
	}
	return row
}
