package api

// ServerInfo is the static descriptor served at the root. The couchdb field
// is what replication clients sniff for; the uuid identifies this instance
// so peers can tell endpoints apart when deriving replication ids.
type ServerInfo struct {
	CouchDB string     `json:"couchdb"`
	UUID    string     `json:"uuid"`
	Version string     `json:"version"`
	Vendor  VendorInfo `json:"vendor"`
}

type VendorInfo struct {
	Name string `json:"name"`
}

// DatabaseInfo is the `GET /db/` response.
type DatabaseInfo struct {
	DBName            string `json:"db_name"`
	UpdateSeq         int64  `json:"update_seq"`
	InstanceStartTime string `json:"instance_start_time"`
}

// CheckpointBody is the `PUT /db/_local/{peer}` request body.
type CheckpointBody struct {
	Version    int64  `json:"version"`
	Replicator string `json:"replicator"`
	SessionID  string `json:"session_id"`
	LastSeq    int64  `json:"last_seq"`
}

// CheckpointDoc is the `GET /db/_local/{peer}` response: the stored
// replication log rendered with its full history, newest entry first.
type CheckpointDoc struct {
	ID         string         `json:"_id"`
	Rev        string         `json:"_rev"`
	Version    int64          `json:"version"`
	Replicator string         `json:"replicator"`
	SessionID  string         `json:"session_id"`
	LastSeq    int64          `json:"last_seq"`
	History    []HistoryEntry `json:"history"`
}

type HistoryEntry struct {
	SessionID string `json:"session_id"`
	LastSeq   int64  `json:"last_seq"`
}

// CheckpointPutResponse acknowledges a checkpoint write; Rev encodes the new
// history length.
type CheckpointPutResponse struct {
	OK  bool   `json:"ok"`
	ID  string `json:"id"`
	Rev string `json:"rev"`
}

// ChangesResponse is the `GET /db/_changes` response.
type ChangesResponse struct {
	Results []ChangeRow `json:"results"`
	LastSeq int64       `json:"last_seq"`
}

type ChangeRow struct {
	Seq     int64       `json:"seq"`
	ID      string      `json:"id"`
	Changes []RevMarker `json:"changes"`
	Deleted bool        `json:"deleted,omitempty"`
}

type RevMarker struct {
	Rev string `json:"rev"`
}

// AllDocsRequest is the `POST /db/_all_docs` body; a nil Keys lists every
// document.
type AllDocsRequest struct {
	Keys []string `json:"keys"`
}

type AllDocsResponse struct {
	TotalRows int          `json:"total_rows"`
	Rows      []AllDocsRow `json:"rows"`
}

type AllDocsRow struct {
	ID      string         `json:"id,omitempty"`
	Key     string         `json:"key"`
	Rev     string         `json:"rev,omitempty"`
	Deleted bool           `json:"deleted,omitempty"`
	Doc     map[string]any `json:"doc,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// BulkGetRequest is the `POST /db/_bulk_get` body.
type BulkGetRequest struct {
	Docs []DocRequest `json:"docs"`
}

type DocRequest struct {
	ID  string `json:"id"`
	Rev string `json:"rev"`
}

// BulkGetError is the per-doc "missing" stub of a bulk-get result.
type BulkGetError struct {
	ID     string `json:"id"`
	Rev    string `json:"rev"`
	Error  string `json:"error"`
	Reason string `json:"reason"`
}

// Revisions is the `_revisions` attachment of a fetched document: every
// known revision token, newest first.
type Revisions struct {
	Start int      `json:"start"`
	IDs   []string `json:"ids"`
}

// RevsDiffEntry is the per-document value of a `_revs_diff` response.
type RevsDiffEntry struct {
	Missing []string `json:"missing"`
}

// BulkDocsRequest is the `POST /db/_bulk_docs` body. NewEdits defaults to
// true when absent, which the gateway rejects: it never mints revisions on
// behalf of a peer.
type BulkDocsRequest struct {
	Docs     []map[string]any `json:"docs"`
	NewEdits *bool            `json:"new_edits"`
}

// BulkDocsResult reports one applied document.
type BulkDocsResult struct {
	OK  bool   `json:"ok"`
	ID  string `json:"id"`
	Rev string `json:"rev"`
}

// ErrorResponse is the uniform error payload.
type ErrorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason"`
}
