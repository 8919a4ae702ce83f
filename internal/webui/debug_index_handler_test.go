package webui

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"busboard.hk/internal/app"
	"busboard.hk/internal/appconf"
	"busboard.hk/internal/board"
	"busboard.hk/internal/clock"
	"busboard.hk/internal/logging"
	"busboard.hk/internal/models"
	"busboard.hk/internal/transit"
	"busboard.hk/internal/transit/transittest"
)

func newTestWebUI(t *testing.T, env appconf.Environment) (*WebUI, *transittest.FakeUpstream) {
	t.Helper()
	up := transittest.NewFakeUpstream()
	mc := clock.NewMockClock(time.Date(2024, 6, 15, 8, 0, 0, 0, time.UTC))
	logger := logging.NewLogger(io.Discard, "error", false)
	svc := transit.NewService(transit.Options{Upstream: up, Clock: mc, Logger: logger, CatalogTTL: time.Hour})

	cfg := appconf.Default()
	cfg.Env = env
	return NewWebUI(&app.Application{
		Config:  cfg,
		Logger:  logger,
		Clock:   mc,
		Transit: svc,
		Board:   board.New(board.Options{Resolver: svc, Clock: mc, Logger: logger}),
	}), up
}

func serveDebug(t *testing.T, webUI *WebUI, query string) *httptest.ResponseRecorder {
	t.Helper()
	mux := http.NewServeMux()
	webUI.SetWebUIRoutes(mux)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/debug"+query, nil))
	return rr
}

func TestDebugIndexHandler_ProductionReturns404(t *testing.T) {
	webUI := &WebUI{
		Application: &app.Application{
			Config: appconf.Config{Env: appconf.Production},
		},
	}

	rr := serveDebug(t, webUI, "?dataType=selection")
	assert.Equal(t, http.StatusNotFound, rr.Code, "Should return 404 in Production")
}

func TestDebugIndexHandler_NoBoard(t *testing.T) {
	webUI := &WebUI{Application: &app.Application{Config: appconf.Default()}}
	rr := serveDebug(t, webUI, "?dataType=selection")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestDebugIndexHandler_DataTypes(t *testing.T) {
	webUI, up := newTestWebUI(t, appconf.Development)
	up.AddRoute("1A", models.Inbound, "1", "S1", "S2")
	require.NoError(t, webUI.Board.LoadCatalog(context.Background()))
	_, err := webUI.Board.SelectRoute(context.Background(), models.Route{Route: "1A", ServiceType: "1"})
	require.NoError(t, err)

	tests := []struct {
		query    string
		title    string
		contains string
	}{
		{"?dataType=selection", "Board - Current Selection", "S2"},
		{"?dataType=catalog", "Board - Route Catalog", "ORIGIN 1A"},
		{"?dataType=search&q=1a", "Board - Search", "1A"},
		{"?dataType=cache", "Transit - Cache", "Entries"},
		{"?dataType=config", "Configuration", "data.etabus.gov.hk"},
		{"", "Choose a data type", "Please use one of the following"},
	}
	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			rr := serveDebug(t, webUI, tt.query)
			assert.Equal(t, http.StatusOK, rr.Code)
			assert.Equal(t, "text/html; charset=utf-8", rr.Header().Get("Content-Type"))
			body := rr.Body.String()
			assert.Contains(t, body, "<h1>"+tt.title)
			assert.Contains(t, body, tt.contains)
		})
	}
}

func TestDebugIndexHandler_EscapesContent(t *testing.T) {
	webUI, up := newTestWebUI(t, appconf.Test)
	up.AddRoute("1A", models.Inbound, "1", "S1")
	up.Catalog[0].OrigEN = "<script>alert(1)</script>"
	require.NoError(t, webUI.Board.LoadCatalog(context.Background()))

	rr := serveDebug(t, webUI, "?dataType=catalog")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.NotContains(t, rr.Body.String(), "<script>alert(1)</script>")
	assert.Contains(t, rr.Body.String(), "&lt;script&gt;")
}
