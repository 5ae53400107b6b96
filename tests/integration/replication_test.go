package integration

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faxioman/sofa/internal/api"
	"github.com/faxioman/sofa/internal/changelog"
	"github.com/faxioman/sofa/internal/checkpoint"
	"github.com/faxioman/sofa/internal/document"
	"github.com/faxioman/sofa/internal/notify"
	"github.com/faxioman/sofa/internal/registry"
	"github.com/faxioman/sofa/internal/storage"
)

type gateway struct {
	url      string
	db       *sql.DB
	notifier *notify.Notifier
}

func startGateway(t *testing.T) (*gateway, func()) {
	db, err := storage.Open(":memory:")
	require.NoError(t, err)

	_, err = db.Exec(`CREATE TABLE users (username TEXT PRIMARY KEY, email TEXT)`)
	require.NoError(t, err)

	cl, err := changelog.New(db)
	require.NoError(t, err)
	ckpt, err := checkpoint.New(db)
	require.NoError(t, err)

	b := registry.NewBuilder()
	require.NoError(t, b.Register("user", document.NewRowProvider(db, "users", "username", []string{"email"})))

	notifier := notify.New(cl, nil)
	ts := httptest.NewServer(api.NewServer(cl, b.Build(), ckpt, notifier, "db"))

	return &gateway{url: ts.URL, db: db, notifier: notifier}, func() {
		ts.Close()
		_ = db.Close()
	}
}

func postJSON(t *testing.T, url string, body any, out any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func getJSON(t *testing.T, url string, out any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

// TestPushPullRoundTrip walks the protocol the way a real replicator does:
// negotiate, push, verify, pull back, checkpoint.
func TestPushPullRoundTrip(t *testing.T) {
	gw, teardown := startGateway(t)
	defer teardown()

	// 1. Target is empty.
	var dbInfo struct {
		UpdateSeq int64 `json:"update_seq"`
	}
	getJSON(t, gw.url+"/db/", &dbInfo)
	assert.Equal(t, int64(0), dbInfo.UpdateSeq)

	// 2. revs_diff says the revision is missing.
	var diff map[string]struct {
		Missing []string `json:"missing"`
	}
	postJSON(t, gw.url+"/db/_revs_diff", map[string][]string{"user:alice": {"1-abc"}}, &diff)
	require.Contains(t, diff, "user:alice")

	// 3. Push the revision.
	var pushed []struct {
		OK bool   `json:"ok"`
		ID string `json:"id"`
	}
	resp := postJSON(t, gw.url+"/db/_bulk_docs", map[string]any{
		"docs":      []map[string]any{{"_id": "user:alice", "_rev": "1-abc", "email": "a@x"}},
		"new_edits": false,
	}, &pushed)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Len(t, pushed, 1)
	assert.True(t, pushed[0].OK)

	// 4. The same diff is now empty: the push was idempotent progress.
	diff = nil
	postJSON(t, gw.url+"/db/_revs_diff", map[string][]string{"user:alice": {"1-abc"}}, &diff)
	assert.Empty(t, diff)

	// 5. A pulling peer sees the change and fetches the doc.
	var changes struct {
		Results []struct {
			Seq int64  `json:"seq"`
			ID  string `json:"id"`
		} `json:"results"`
		LastSeq int64 `json:"last_seq"`
	}
	getJSON(t, gw.url+"/db/_changes?since=0", &changes)
	require.Len(t, changes.Results, 1)
	assert.Equal(t, "user:alice", changes.Results[0].ID)

	var doc map[string]any
	getJSON(t, gw.url+"/db/user:alice", &doc)
	assert.Equal(t, "a@x", doc["email"])

	// 6. Checkpoint and resume: nothing new after last_seq.
	req, err := http.NewRequest(http.MethodPut, gw.url+"/db/_local/peer-1", bytes.NewBufferString(
		fmt.Sprintf(`{"version":1,"replicator":"test","session_id":"s1","last_seq":%d}`, changes.LastSeq)))
	require.NoError(t, err)
	putResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	putResp.Body.Close()
	assert.Equal(t, http.StatusCreated, putResp.StatusCode)

	getJSON(t, gw.url+fmt.Sprintf("/db/_changes?since=%d", changes.LastSeq), &changes)
	assert.Empty(t, changes.Results)
}

// TestOrganicWriteFlowsToPeer covers the change-notifier path: a mutation
// made directly against the store becomes visible through the protocol.
func TestOrganicWriteFlowsToPeer(t *testing.T) {
	gw, teardown := startGateway(t)
	defer teardown()

	_, err := gw.db.Exec(`INSERT INTO users (username, email) VALUES ('zed', 'z@x')`)
	require.NoError(t, err)
	rev, _, err := gw.notifier.Changed(context.Background(), "user:zed", "")
	require.NoError(t, err)

	var changes struct {
		Results []struct {
			ID      string `json:"id"`
			Changes []struct {
				Rev string `json:"rev"`
			} `json:"changes"`
		} `json:"results"`
	}
	getJSON(t, gw.url+"/db/_changes", &changes)
	require.Len(t, changes.Results, 1)
	assert.Equal(t, "user:zed", changes.Results[0].ID)
	require.Len(t, changes.Results[0].Changes, 1)
	assert.Equal(t, rev, changes.Results[0].Changes[0].Rev)
}
