package restapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/klauspost/compress/gzhttp"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"busboard.hk/internal/app"
	"busboard.hk/internal/clock"
)

// Cache lifetimes per route tier, in seconds.
const (
	catalogCacheSeconds   = 60
	selectionCacheSeconds = 0
)

type RestAPI struct {
	*app.Application
	rateLimiter *RateLimitMiddleware
	validate    *validator.Validate
	clock       clock.Clock
}

func NewRestAPI(app *app.Application) *RestAPI {
	clk := app.Clock
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &RestAPI{
		Application: app,
		rateLimiter: NewRateLimitMiddleware(app.Config.RateLimit, time.Second, app.Config.RateLimitExempt, clk),
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		clock:       clk,
	}
}

// SetRoutes registers the API on mux. Health and metrics endpoints bypass the
// per-client rate limit.
func (api *RestAPI) SetRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", api.healthHandler)
	if api.Metrics != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(api.Metrics.Registry, promhttp.HandlerOpts{}))
	}

	api.handle(mux, "GET /api/routes", catalogCacheSeconds, api.routesHandler)

	api.handle(mux, "GET /api/selection", selectionCacheSeconds, api.selectionHandler)
	api.handle(mux, "POST /api/selection", selectionCacheSeconds, api.selectRouteHandler)
	api.handle(mux, "DELETE /api/selection", selectionCacheSeconds, api.clearSelectionHandler)
	api.handle(mux, "POST /api/selection/bound", selectionCacheSeconds, api.changeBoundHandler)
	api.handle(mux, "POST /api/selection/refresh", selectionCacheSeconds, api.refreshETAsHandler)
	api.handle(mux, "POST /api/selection/stops/retry", selectionCacheSeconds, api.retryStopsHandler)
	api.handle(mux, "GET /api/selection/nearest", selectionCacheSeconds, api.nearestStopHandler)
}

func (api *RestAPI) handle(mux *http.ServeMux, pattern string, cacheSeconds int, h http.HandlerFunc) {
	mux.Handle(pattern, api.rateLimiter.Handler()(CacheControlMiddleware(cacheSeconds, h)))
}

// Wrap applies the server-wide middleware chain to h: request id, access
// log, metrics, then compression.
func (api *RestAPI) Wrap(h http.Handler) http.Handler {
	logger := api.Logger
	if logger == nil {
		logger = slog.Default()
	}
	var chain http.Handler = gzhttp.GzipHandler(h)
	chain = MetricsHandler(api.Metrics)(chain)
	chain = NewRequestLoggingMiddleware(logger)(chain)
	return RequestIDMiddleware(chain)
}

// Shutdown stops background goroutines owned by the API.
func (api *RestAPI) Shutdown() {
	if api.rateLimiter != nil {
		api.rateLimiter.Stop()
	}
}
