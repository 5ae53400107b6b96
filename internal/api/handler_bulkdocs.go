package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/faxioman/sofa/internal/document"
	"github.com/faxioman/sofa/internal/notify"
	"github.com/faxioman/sofa/internal/revision"
	"github.com/faxioman/sofa/pkg/model"
)

// handleBulkDocs applies a batch of peer-supplied document revisions. The
// gateway only accepts new_edits:false writes: the peer always names the
// revision, the server never mints one for it. Docs that cannot be applied
// (no provider, singleton type, validation failure) are logged and omitted
// from the result; they never fail the batch.
func (s *Server) handleBulkDocs(w http.ResponseWriter, r *http.Request) {
	var req BulkDocsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid _bulk_docs body")
		return
	}
	if req.NewEdits == nil || *req.NewEdits {
		writeError(w, http.StatusBadRequest, "bad_request", "revision-less writes unsupported")
		return
	}

	ctx := r.Context()
	results := make([]BulkDocsResult, 0, len(req.Docs))
	for _, doc := range req.Docs {
		res, err := s.applyDoc(ctx, doc)
		if err != nil {
			id, _ := doc["_id"].(string)
			log.Printf("api: bulk_docs: skipping %q: %v", id, err)
			continue
		}
		results = append(results, res)
	}

	writeJSON(w, http.StatusCreated, results)
}

func (s *Server) applyDoc(ctx context.Context, raw map[string]any) (BulkDocsResult, error) {
	id, _ := raw["_id"].(string)
	if id == "" {
		return BulkDocsResult{}, errors.New("document has no _id")
	}
	rev, _ := raw["_rev"].(string)
	if rev == "" {
		return BulkDocsResult{}, errors.New("document has no _rev")
	}

	bd, err := s.registry.ResolveDocumentID(id)
	if err != nil {
		return BulkDocsResult{}, err
	}
	if bd.Provider.Singleton() {
		return BulkDocsResult{}, errors.New("singleton documents are read-only")
	}
	_, key := revision.SplitID(id)

	deleted, _ := raw["_deleted"].(bool)
	fields := make(document.Fields, len(raw))
	for k, v := range raw {
		if len(k) > 0 && k[0] == '_' {
			continue
		}
		fields[k] = v
	}

	// Entity mutation and log append commit in the same transaction, so the
	// log can never get ahead of the entities.
	tx, err := s.log.DB().BeginTx(ctx, nil)
	if err != nil {
		return BulkDocsResult{}, err
	}
	defer tx.Rollback()

	var ev notify.Event
	if deleted {
		if err := bd.Provider.Delete(ctx, tx, key); err != nil && !errors.Is(err, model.ErrNotFound) {
			return BulkDocsResult{}, err
		}
		// A tombstone for an entity the store never had is still recorded:
		// the peer's history says it existed.
		ev, err = s.notifier.DeletedTx(ctx, tx, id, rev)
		if err != nil {
			return BulkDocsResult{}, err
		}
	} else {
		if err := bd.Provider.Apply(ctx, tx, key, fields, rev); err != nil {
			return BulkDocsResult{}, err
		}
		ev, err = s.notifier.ChangedTx(ctx, tx, id, rev)
		if err != nil {
			return BulkDocsResult{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return BulkDocsResult{}, err
	}
	// Only committed changes are fanned out.
	s.notifier.Publish(ctx, ev)
	return BulkDocsResult{OK: true, ID: id, Rev: rev}, nil
}
