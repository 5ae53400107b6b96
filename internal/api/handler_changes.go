package api

import (
	"fmt"
	"net/http"
	"strconv"
)

const defaultChangesLimit = 1000

func (s *Server) handleChanges(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	feed := q.Get("feed")
	if feed != "" && feed != "normal" {
		writeError(w, http.StatusBadRequest, "bad_request",
			fmt.Sprintf("feed mode %q is not supported", feed))
		return
	}
	// style=all_docs is accepted and ignored: the log tracks a single
	// revision branch, so there are no extra leaf revisions to report.

	since := int64(0)
	if v := q.Get("since"); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "bad_request", "since must be a non-negative integer")
			return
		}
		since = parsed
	}

	limit := defaultChangesLimit
	if v := q.Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "bad_request", "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}

	rows, err := s.log.ChangesSince(r.Context(), since, limit)
	if err != nil {
		respondError(w, err)
		return
	}

	resp := ChangesResponse{Results: make([]ChangeRow, 0, len(rows))}
	for _, row := range rows {
		cr := ChangeRow{
			Seq:     row.Seq,
			ID:      row.DocumentID,
			Changes: make([]RevMarker, 0, len(row.Revisions)),
			Deleted: row.Deleted,
		}
		for _, rev := range row.Revisions {
			cr.Changes = append(cr.Changes, RevMarker{Rev: rev})
		}
		resp.Results = append(resp.Results, cr)
		resp.LastSeq = row.Seq
	}
	if len(rows) == 0 {
		// Nothing to report: last_seq is the current head so the peer can
		// checkpoint anyway.
		seq, err := s.log.LatestSequence(r.Context())
		if err != nil {
			respondError(w, err)
			return
		}
		resp.LastSeq = seq
	}

	writeJSON(w, http.StatusOK, resp)
}
