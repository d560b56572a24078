package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fanworks/storygraph/internal/ingest"
	"github.com/fanworks/storygraph/internal/normalize"
	"github.com/fanworks/storygraph/internal/storage"
	"github.com/fanworks/storygraph/internal/storage/memory"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func newTestServer(t *testing.T) (*Server, *memory.Store, *ingest.Queue) {
	t.Helper()
	store := memory.New(fixedClock{t: time.Unix(1700000000, 0).UTC()})
	router := normalize.NewRouter(store, zap.NewNop())
	queue := ingest.NewQueue(16)
	return NewServer(router, queue, zap.NewNop()), store, queue
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	srv, _, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"ok"`)
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestSubmitRecordResolvesSynchronously(t *testing.T) {
	t.Parallel()

	srv, store, _ := newTestServer(t)
	body := `{"kind": "story", "url": "https://example.org/s/1", "title": "Die Reise"}`
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/records", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"id"`)
	require.Equal(t, 1, store.Len(storage.Stories))
}

func TestSubmitRecordRejectsBadEnvelope(t *testing.T) {
	t.Parallel()

	srv, _, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/records",
		strings.NewReader(`{"kind": "podcast"}`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitRecordRejectsMalformedRecord(t *testing.T) {
	t.Parallel()

	srv, _, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/records",
		strings.NewReader(`{"kind": "story", "title": "no url"}`)))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestSubmitBatchEnqueues(t *testing.T) {
	t.Parallel()

	srv, store, queue := newTestServer(t)
	body := `[
		{"kind": "story", "url": "https://example.org/s/1"},
		{"kind": "user", "url": "https://example.org/u/1", "username": "anna"}
	]`
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/records/batch", strings.NewReader(body)))

	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Contains(t, rec.Body.String(), `"accepted":2`)
	require.Equal(t, 2, queue.Depth())
	// Nothing processed yet; workers own that.
	require.Equal(t, 0, store.Len(storage.Stories))
}

func TestSubmitBatchRejectsWholeBatchOnBadRecord(t *testing.T) {
	t.Parallel()

	srv, _, queue := newTestServer(t)
	body := `[
		{"kind": "story", "url": "https://example.org/s/1"},
		{"kind": "podcast"}
	]`
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/records/batch", strings.NewReader(body)))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, 0, queue.Depth())
}

func TestSubmitBatchAfterShutdown(t *testing.T) {
	t.Parallel()

	srv, _, queue := newTestServer(t)
	queue.Close()
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/records/batch",
		strings.NewReader(`[{"kind": "story", "url": "https://example.org/s/1"}]`)))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	srv, _, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}
