package restapi

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"busboard.hk/internal/app"
	"busboard.hk/internal/appconf"
	"busboard.hk/internal/board"
	"busboard.hk/internal/clock"
	"busboard.hk/internal/logging"
	"busboard.hk/internal/metrics"
	"busboard.hk/internal/models"
	"busboard.hk/internal/transit"
	"busboard.hk/internal/transit/transittest"
)

var testNow = time.Date(2024, 6, 15, 8, 0, 0, 0, time.FixedZone("HKT", 8*3600))

type testEnv struct {
	api   *RestAPI
	up    *transittest.FakeUpstream
	clock *clock.MockClock
}

// envelope decodes a ResponseModel with a typed data payload.
type envelope[T any] struct {
	Code    int            `json:"code"`
	Text    string         `json:"text"`
	Message *board.Message `json:"message"`
	Data    T              `json:"data"`
	Version int            `json:"version"`
}

func createTestApi(t *testing.T) *testEnv {
	t.Helper()
	return createTestApiWithConfig(t, appconf.Default())
}

func createTestApiWithConfig(t *testing.T, cfg appconf.Config) *testEnv {
	t.Helper()
	up := transittest.NewFakeUpstream()
	mc := clock.NewMockClock(testNow)
	m := metrics.New()
	logger := logging.NewLogger(io.Discard, "error", true)

	svc := transit.NewService(transit.Options{
		Upstream:   up,
		Clock:      mc,
		Logger:     logger,
		Metrics:    m,
		CatalogTTL: time.Hour,
	})
	application := &app.Application{
		Config:  cfg,
		Logger:  logger,
		Clock:   mc,
		Metrics: m,
		Transit: svc,
		Board: board.New(board.Options{
			Resolver: svc,
			Clock:    mc,
			Logger:   logger,
			Metrics:  m,
			Language: cfg.Language,
		}),
	}

	api := NewRestAPI(application)
	t.Cleanup(api.Shutdown)
	return &testEnv{api: api, up: up, clock: mc}
}

func (e *testEnv) server(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	e.api.SetRoutes(mux)
	srv := httptest.NewServer(e.api.Wrap(mux))
	t.Cleanup(srv.Close)
	return srv
}

// serveApiAndRetrieveEndpoint issues one request against a fresh server and
// decodes the envelope.
func serveApiAndRetrieveEndpoint[T any](t *testing.T, e *testEnv, method, path string, body any) (*http.Response, envelope[T]) {
	t.Helper()
	srv := e.server(t)
	return doRequest[T](t, srv, method, path, body)
}

func doRequest[T any](t *testing.T, srv *httptest.Server, method, path string, body any) (*http.Response, envelope[T]) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, ok := body.(string)
		if !ok {
			b, err := json.Marshal(body)
			require.NoError(t, err)
			raw = string(b)
		}
		reader = bytes.NewBufferString(raw)
	}
	req, err := http.NewRequest(method, srv.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	var model envelope[T]
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&model))
	return resp, model
}

func etaIn(stop string, b models.Bound, rank int, d time.Duration) models.ETARecord {
	return transittest.ETAAt(stop, b, rank, testNow.Add(d))
}
