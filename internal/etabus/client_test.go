package etabus

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"busboard.hk/internal/metrics"
	"busboard.hk/internal/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *metrics.Metrics) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	m := metrics.New()
	c := New(Options{
		BaseURL: server.URL,
		Timeout: 2 * time.Second,
		Metrics: m,
	})
	return c, m
}

func TestRoutes(t *testing.T) {
	c, m := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/route/", r.URL.Path)
		_, _ = w.Write([]byte(`{"type":"RouteList","data":[
			{"route":"1","bound":"O","service_type":"1","orig_en":"CHUK YUEN ESTATE","dest_en":"STAR FERRY"},
			{"route":"1A","bound":"I","service_type":"1","orig_en":"STAR FERRY","dest_en":"SAU MAU PING"}
		]}`))
	})

	routes, err := c.Routes(context.Background())
	require.NoError(t, err)
	require.Len(t, routes, 2)
	assert.Equal(t, "1A", routes[1].Route)
	assert.Equal(t, models.Inbound, routes[1].Bound)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.UpstreamRequestsTotal.WithLabelValues(endpointRoutes, "ok")))
}

func TestRouteStopsBuildsPath(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/route-stop/1A/inbound/1", r.URL.Path)
		_, _ = w.Write([]byte(`{"data":[
			{"route":"1A","bound":"I","service_type":"1","seq":"1","stop":"S1"},
			{"route":"1A","bound":"I","service_type":"1","seq":"2","stop":"S2"}
		]}`))
	})

	stops, err := c.RouteStops(context.Background(), "1A", models.Inbound, "1")
	require.NoError(t, err)
	require.Len(t, stops, 2)
	assert.Equal(t, "S2", stops[1].Stop)
	assert.Equal(t, 2, int(stops[1].Seq))
}

func TestRouteEmptyObject(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/route/1A/outbound/1", r.URL.Path)
		_, _ = w.Write([]byte(`{"data":{}}`))
	})

	route, err := c.Route(context.Background(), "1A", models.Outbound, "1")
	require.NoError(t, err)
	assert.True(t, route.Empty())
}

func TestStopAndETA(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/stop/S1":
			_, _ = w.Write([]byte(`{"data":{"stop":"S1","name_en":"STAR FERRY","name_tc":"尖沙咀碼頭","lat":"22.29","long":"114.16"}}`))
		case "/eta/S1/1A/1":
			_, _ = w.Write([]byte(`{"data":[{"co":"KMB","route":"1A","dir":"I","service_type":1,"seq":1,"dest_en":"SAU MAU PING","eta_seq":1,"eta":"2024-06-15T08:05:00+08:00","rmk_en":""}]}`))
		default:
			http.NotFound(w, r)
		}
	})

	stop, err := c.Stop(context.Background(), "S1")
	require.NoError(t, err)
	assert.Equal(t, "STAR FERRY", stop.NameEN)
	assert.InDelta(t, 22.29, float64(stop.Lat), 1e-9)

	etas, err := c.ETA(context.Background(), "S1", "1A", "1")
	require.NoError(t, err)
	require.Len(t, etas, 1)
	assert.True(t, etas[0].HasTime())
}

func TestNonSuccessStatusIsTransportError(t *testing.T) {
	c, m := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"data":[]}`))
	})

	_, err := c.Routes(context.Background())
	require.Error(t, err)

	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, http.StatusServiceUnavailable, te.StatusCode)
	assert.True(t, IsTransport(err))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.UpstreamRequestsTotal.WithLabelValues(endpointRoutes, "error")))
}

func TestMalformedBodyIsDecodeError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[`))
	})

	_, err := c.Routes(context.Background())
	require.Error(t, err)

	var de *DecodeError
	assert.ErrorAs(t, err, &de)
	assert.False(t, IsTransport(err))
}

func TestConnectionFailureIsTransportError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	c := New(Options{BaseURL: url, Timeout: time.Second})
	_, err := c.Stop(context.Background(), "S1")
	require.Error(t, err)
	assert.True(t, IsTransport(err))
}

func TestRequestTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		server.Close()
	})

	c := New(Options{BaseURL: server.URL, Timeout: 50 * time.Millisecond})
	_, err := c.ETA(context.Background(), "S1", "1A", "1")
	require.Error(t, err)
	assert.True(t, IsTransport(err))
}

func TestRateLimiterThrottles(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{"data":{}}`))
	}))
	t.Cleanup(server.Close)

	c := New(Options{BaseURL: server.URL, RatePerSecond: 1, Burst: 1})

	_, err := c.Stop(context.Background(), "S1")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err = c.Stop(ctx, "S2")
	require.Error(t, err)
	assert.Equal(t, int32(1), hits.Load())
}
