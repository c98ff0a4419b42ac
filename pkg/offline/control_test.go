package offline

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestControlRoutes(t *testing.T) {
	out := NewOutbox(10)
	opener := &recordingOpener{}
	w := NewWorker(testOptions(), NewMemoryStorage(), newFakeNet(), out, opener)
	require.NoError(t, w.Install(t.Context()))
	h := ControlRoutes(w, out)

	do := func(method, target, body string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(method, target, strings.NewReader(body)))
		return rec
	}

	rec := do("GET", "/_sw/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var st Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, PhaseWaiting, st.Phase)
	assert.Equal(t, []string{"naughty-den-static-v1"}, st.Partitions)

	rec = do("POST", "/_sw/push", `{"title":"hi","tag":"a"}`)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	rec = do("POST", "/_sw/push", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do("POST", "/_sw/notificationclick", `{"tag":"a","action":"open"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, opener.urls, 1)

	rec = do("POST", "/_sw/sync?tag=background-sync", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do("GET", "/_sw/notifications", "")
	var items []OutboxItem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	require.Len(t, items, 1)
	assert.True(t, items[0].Closed)

	rec = do("GET", "/_sw/push", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
