package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"jobfeed-engine/internal/clock"
	"jobfeed-engine/internal/config"
	"jobfeed-engine/internal/events"
	"jobfeed-engine/internal/identity"
	"jobfeed-engine/internal/ingest"
	"jobfeed-engine/internal/lifecycle"
	"jobfeed-engine/internal/store"
)

var t0 = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

type testAPI struct {
	repo *store.Mem
	clk  *clock.Fake
	mux  *http.ServeMux
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	return newTestAPIWithLimit(t, 100)
}

func newTestAPIWithLimit(t *testing.T, fetchLimit int) *testAPI {
	t.Helper()
	repo := store.NewMem()
	clk := clock.NewFake(t0)
	log := zap.NewNop()

	var cfg config.Config
	cfg.Consumer.FetchLimit = fetchLimit
	var cfgVal atomic.Value
	cfgVal.Store(cfg)

	mux := NewMux(Deps{
		Reconciler: ingest.NewReconciler(repo, identity.NewCalculator(), clk, log),
		Consumer:   lifecycle.NewService(repo, clk, log),
		Sweeper:    lifecycle.NewSweeper(repo, clk, log),
		Hub:        events.NewHub(),
		Log:        log,
		CfgVal:     &cfgVal,
	})
	return &testAPI{repo: repo, clk: clk, mux: mux}
}

func (a *testAPI) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	a.mux.ServeHTTP(rec, req)
	return rec
}

const ingestBody = `{"postings":[
	{"title":"Engineer","company":"Acme","location":"Berlin",
	 "url":"https://example.com/jobs/1","published_date":"2026-08-01T12:00:00Z"},
	{"title":"Engineer","company":"Acme","location":"Berlin",
	 "url":"https://example.com/jobs/1?utm_source=x","published_date":"2026-08-01T12:00:00Z"},
	{"title":"Analyst","company":"Acme","location":"Remote",
	 "url":"https://example.com/jobs/2","published_date":"2026-08-01T12:00:00Z"}
]}`

func TestIngestEndpoint(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/ingest", ingestBody)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res ingest.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, ingest.Result{Received: 3, InsertedNew: 2, SkippedDuplicates: 1}, res)
}

func TestIngestEndpointRejectsInvalidPosting(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/ingest",
		`{"postings":[{"title":"","company":"Acme","location":"Berlin","url":"https://example.com/jobs/1","published_date":"2026-08-01T12:00:00Z"}]}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var e APIError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
	assert.Equal(t, "invalid_input", e.Error.Code)
}

func TestIngestEndpointRejectsBadJSON(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(t, http.MethodPost, "/ingest", `{"postings": [`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestJobsNextAndConsumeFlow(t *testing.T) {
	api := newTestAPI(t)
	require.Equal(t, http.StatusOK, api.do(t, http.MethodPost, "/ingest", ingestBody).Code)

	rec := api.do(t, http.MethodGet, "/jobs/next?limit=10", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var next struct {
		Jobs []struct {
			ID    string `json:"id"`
			State string `json:"state"`
		} `json:"jobs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &next))
	require.Len(t, next.Jobs, 2)
	for _, j := range next.Jobs {
		assert.Equal(t, "new", j.State)
	}

	body, _ := json.Marshal(map[string]any{"ids": []string{next.Jobs[0].ID, "no-such-id"}})
	rec = api.do(t, http.MethodPost, "/jobs/consume", string(body))
	require.Equal(t, http.StatusOK, rec.Code)

	var res lifecycle.ConsumeResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, lifecycle.ConsumeResult{Requested: 2, Marked: 1, NotFound: 1}, res)

	// the consumed job is gone from the queue
	rec = api.do(t, http.MethodGet, "/jobs/next", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &next))
	assert.Len(t, next.Jobs, 1)
}

func TestJobsConsumeEmptyIDs(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(t, http.MethodPost, "/jobs/consume", `{"ids":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// Without a limit parameter the configured consumer.fetch_limit caps the page.
func TestJobsNextDefaultsToConfiguredFetchLimit(t *testing.T) {
	api := newTestAPIWithLimit(t, 1)
	require.Equal(t, http.StatusOK, api.do(t, http.MethodPost, "/ingest", ingestBody).Code)

	rec := api.do(t, http.MethodGet, "/jobs/next", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var next struct {
		Jobs []struct {
			ID string `json:"id"`
		} `json:"jobs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &next))
	assert.Len(t, next.Jobs, 1)

	// an explicit limit still overrides the configured default
	rec = api.do(t, http.MethodGet, "/jobs/next?limit=10", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &next))
	assert.Len(t, next.Jobs, 2)
}

func TestJobsNextRejectsBadLimit(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(t, http.MethodGet, "/jobs/next?limit=nope", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSweepEndpoint(t *testing.T) {
	api := newTestAPI(t)
	require.Equal(t, http.StatusOK, api.do(t, http.MethodPost, "/ingest", ingestBody).Code)

	api.clk.Advance(8 * 24 * time.Hour)
	rec := api.do(t, http.MethodPost, "/sweep", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var res struct {
		Swept int `json:"swept"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, 2, res.Swept)

	next := api.do(t, http.MethodGet, "/jobs/next", "")
	require.Equal(t, http.StatusOK, next.Code)
	assert.Contains(t, next.Body.String(), `"jobs":[]`)
}

func TestHealthEndpoint(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(t, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok":true`)
}

func TestMethodNotAllowed(t *testing.T) {
	api := newTestAPI(t)
	assert.Equal(t, http.StatusMethodNotAllowed, api.do(t, http.MethodGet, "/ingest", "").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, api.do(t, http.MethodPost, "/jobs/next", "").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, api.do(t, http.MethodGet, "/sweep", "").Code)
}
