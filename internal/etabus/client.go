// Package etabus is the client for the KMB ETA open-data API.
package etabus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"busboard.hk/internal/clock"
	"busboard.hk/internal/logging"
	"busboard.hk/internal/metrics"
	"busboard.hk/internal/models"
)

const (
	DefaultBaseURL = "https://data.etabus.gov.hk/v1/transport/kmb"
	DefaultTimeout = 10 * time.Second

	endpointRoutes    = "route-list"
	endpointRoute     = "route"
	endpointRouteStop = "route-stop"
	endpointStop      = "stop"
	endpointETA       = "eta"
)

// TransportError is a failed exchange with the upstream: the request never
// completed or the response status was not 2xx.
type TransportError struct {
	URL        string
	StatusCode int
	Status     string
	Cause      error
}

func (e *TransportError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("request to %s failed: %v", e.URL, e.Cause)
	}
	return fmt.Sprintf("request to %s returned %s", e.URL, e.Status)
}

func (e *TransportError) Unwrap() error { return e.Cause }

// DecodeError is a 2xx response whose body could not be decoded.
type DecodeError struct {
	URL   string
	Cause error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode response from %s: %v", e.URL, e.Cause)
}

func (e *DecodeError) Unwrap() error { return e.Cause }

// IsTransport reports whether err came from the network or a non-2xx status.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// Options configures a Client. Zero values take the defaults.
type Options struct {
	BaseURL       string
	Timeout       time.Duration
	RatePerSecond float64
	Burst         int
	HTTPClient    *http.Client
	Logger        *slog.Logger
	Metrics       *metrics.Metrics
	Clock         clock.Clock
}

// Client issues one GET per call. It does not retry; callers wrap calls in
// the retry package with the policy that fits their stage.
type Client struct {
	rest    *resty.Client
	limiter *rate.Limiter
	timeout time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics
	clock   clock.Clock
}

// NewHTTPClient returns an http.Client with explicit timeouts and transport
// limits, cloned from http.DefaultTransport.
func NewHTTPClient(timeout time.Duration) *http.Client {
	var transport *http.Transport
	if t, ok := http.DefaultTransport.(*http.Transport); ok {
		transport = t.Clone()
	} else {
		transport = &http.Transport{}
	}
	transport.MaxIdleConns = 100
	transport.MaxIdleConnsPerHost = 32
	transport.IdleConnTimeout = 90 * time.Second
	transport.TLSHandshakeTimeout = 10 * time.Second
	transport.ExpectContinueTimeout = 1 * time.Second

	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{
		// Absolute per-request bound; the context deadline set in get is the same value.
		Timeout:   timeout,
		Transport: transport,
	}
}

// New builds a Client from opts.
func New(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = NewHTTPClient(opts.Timeout)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Clock == nil {
		opts.Clock = clock.RealClock{}
	}
	logger := opts.Logger.With(slog.String("component", "etabus_client"))

	limit := rate.Inf
	if opts.RatePerSecond > 0 {
		limit = rate.Limit(opts.RatePerSecond)
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 1
	}

	rest := resty.NewWithClient(opts.HTTPClient).
		SetBaseURL(strings.TrimRight(opts.BaseURL, "/")).
		SetHeader("Accept", "application/json").
		SetLogger(logging.RestyLogger{Logger: logger})

	return &Client{
		rest:    rest,
		limiter: rate.NewLimiter(limit, burst),
		timeout: opts.Timeout,
		logger:  logger,
		metrics: opts.Metrics,
		clock:   opts.Clock,
	}
}

func (c *Client) get(ctx context.Context, endpoint, path string, params map[string]string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &TransportError{URL: path, Cause: err}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := c.clock.Now()
	resp, err := c.rest.R().
		SetContext(ctx).
		SetPathParams(params).
		Get(path)

	var url string
	if resp != nil && resp.Request != nil {
		url = resp.Request.URL
	} else {
		url = path
	}

	if err != nil {
		err = &TransportError{URL: url, Cause: err}
	} else if !resp.IsSuccess() {
		err = &TransportError{URL: url, StatusCode: resp.StatusCode(), Status: resp.Status()}
	}
	c.metrics.ObserveUpstream(endpoint, err, c.clock.Now().Sub(start))

	if err != nil {
		c.logger.Debug("upstream request failed",
			slog.String("endpoint", endpoint),
			slog.String("url", url),
			slog.String("error", err.Error()))
		return nil, err
	}
	return resp.Body(), nil
}

func decode[T any](url string, body []byte) (T, error) {
	v, err := models.DecodeEnvelope[T](body)
	if err != nil {
		return v, &DecodeError{URL: url, Cause: err}
	}
	return v, nil
}

// Routes fetches the full route catalog.
func (c *Client) Routes(ctx context.Context) ([]models.Route, error) {
	const path = "/route/"
	body, err := c.get(ctx, endpointRoutes, path, nil)
	if err != nil {
		return nil, err
	}
	return decode[[]models.Route](path, body)
}

// Route fetches the metadata of one route variant in one direction. The
// upstream answers an unknown direction with 200 and an empty object.
func (c *Client) Route(ctx context.Context, route string, bound models.Bound, serviceType string) (models.Route, error) {
	const path = "/route/{route}/{bound}/{service_type}"
	body, err := c.get(ctx, endpointRoute, path, map[string]string{
		"route":        route,
		"bound":        string(bound),
		"service_type": serviceType,
	})
	if err != nil {
		return models.Route{}, err
	}
	return decode[models.Route](path, body)
}

// RouteStops fetches the ordered stop list of one route variant in one direction.
func (c *Client) RouteStops(ctx context.Context, route string, bound models.Bound, serviceType string) ([]models.RouteStop, error) {
	const path = "/route-stop/{route}/{bound}/{service_type}"
	body, err := c.get(ctx, endpointRouteStop, path, map[string]string{
		"route":        route,
		"bound":        string(bound),
		"service_type": serviceType,
	})
	if err != nil {
		return nil, err
	}
	return decode[[]models.RouteStop](path, body)
}

// Stop fetches the names and coordinates of one stop.
func (c *Client) Stop(ctx context.Context, stopID string) (models.StopInfo, error) {
	const path = "/stop/{stop_id}"
	body, err := c.get(ctx, endpointStop, path, map[string]string{"stop_id": stopID})
	if err != nil {
		return models.StopInfo{}, err
	}
	return decode[models.StopInfo](path, body)
}

// ETA fetches the arrival predictions of a route at a stop, both directions included.
func (c *Client) ETA(ctx context.Context, stopID, route, serviceType string) ([]models.ETARecord, error) {
	const path = "/eta/{stop_id}/{route}/{service_type}"
	body, err := c.get(ctx, endpointETA, path, map[string]string{
		"stop_id":      stopID,
		"route":        route,
		"service_type": serviceType,
	})
	if err != nil {
		return nil, err
	}
	return decode[[]models.ETARecord](path, body)
}
