// Package board holds the single route selection a user is looking at and
// renders it as a view model. Every mutating action bumps a generation
// counter; a resolution only commits if no newer action started meanwhile.
package board

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"busboard.hk/internal/clock"
	"busboard.hk/internal/logging"
	"busboard.hk/internal/metrics"
	"busboard.hk/internal/models"
	"busboard.hk/internal/transit"
)

var (
	// ErrNoSelection is returned by actions that need a selected route.
	ErrNoSelection = errors.New("no route selected")
	// ErrNotReady means the stage an action depends on has not resolved.
	ErrNotReady = errors.New("route not resolved yet")
	// ErrSuperseded means a newer action replaced the selection while this
	// one was in flight. Its results were discarded.
	ErrSuperseded = errors.New("superseded by a newer selection")
)

// Resolver is the pipeline the board drives. *transit.Service implements it.
type Resolver interface {
	LoadCatalog(ctx context.Context) ([]models.Route, error)
	ResolveRoute(ctx context.Context, req transit.RouteRequest) (transit.Resolution, error)
	ResolveStops(ctx context.Context, rrs models.ResolvedRouteStops) ([]models.StopInfo, error)
	RefreshETAs(ctx context.Context, rrs models.ResolvedRouteStops) transit.ETAMap
}

type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	StatusFailed  Status = "failed"
)

// StageStatus is the state of one stage. Message is set only on failure.
type StageStatus struct {
	Status  Status   `json:"status"`
	Message *Message `json:"message,omitempty"`
}

func loading() StageStatus { return StageStatus{Status: StatusLoading} }
func ready() StageStatus   { return StageStatus{Status: StatusReady} }
func idle() StageStatus    { return StageStatus{Status: StatusIdle} }

func failed(err error) StageStatus {
	msg := MessageFor(err)
	return StageStatus{Status: StatusFailed, Message: &msg}
}

// selection is the SelectedRouteState. It is replaced, never patched, when
// the bound changes.
type selection struct {
	route     models.Route
	requested models.Bound

	info       *models.RouteInfo
	routeStops *models.ResolvedRouteStops
	stops      []models.StopInfo
	index      *transit.StopIndex
	etas       transit.ETAMap
	etaAt      time.Time

	bound   StageStatus
	stopsSt StageStatus
	etaSt   StageStatus
}

type Options struct {
	Resolver Resolver
	Clock    clock.Clock
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
	Language string
}

type Board struct {
	resolver Resolver
	clock    clock.Clock
	logger   *slog.Logger
	metrics  *metrics.Metrics
	lang     string

	mu sync.RWMutex
	// gen identifies the current selection; etaGen the current ETA refresh.
	gen    uint64
	etaGen uint64

	catalog   []models.Route
	catalogSt StageStatus
	sel       *selection
}

func New(opts Options) *Board {
	if opts.Clock == nil {
		opts.Clock = clock.RealClock{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Language == "" {
		opts.Language = "tc"
	}
	return &Board{
		resolver:  opts.Resolver,
		clock:     opts.Clock,
		logger:    opts.Logger.With(slog.String("component", "board")),
		metrics:   opts.Metrics,
		lang:      opts.Language,
		catalogSt: idle(),
	}
}

// LoadCatalog fetches the route catalog. A failure keeps any previously
// loaded catalog.
func (b *Board) LoadCatalog(ctx context.Context) error {
	b.mu.Lock()
	b.catalogSt = loading()
	b.mu.Unlock()

	routes, err := b.resolver.LoadCatalog(ctx)

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.catalogSt = failed(err)
		return err
	}
	b.catalog = routes
	b.catalogSt = ready()
	return nil
}

// Search filters the catalog by term, loading the catalog first if needed.
func (b *Board) Search(ctx context.Context, term string) (SearchView, error) {
	b.mu.RLock()
	loaded := b.catalogSt.Status == StatusReady
	b.mu.RUnlock()

	var err error
	if !loaded {
		err = b.LoadCatalog(ctx)
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.searchView(term), err
}

// SelectRoute resolves route with the default probing order, or with
// route.Bound first when it is set.
func (b *Board) SelectRoute(ctx context.Context, route models.Route) (View, error) {
	return b.resolve(ctx, route, route.Bound)
}

// ChangeBound re-resolves the selected route preferring bound.
func (b *Board) ChangeBound(ctx context.Context, bound models.Bound) (View, error) {
	b.mu.RLock()
	sel := b.sel
	b.mu.RUnlock()
	if sel == nil {
		return b.View(), ErrNoSelection
	}
	return b.resolve(ctx, sel.route, bound)
}

func (b *Board) resolve(ctx context.Context, route models.Route, preferred models.Bound) (View, error) {
	b.mu.Lock()
	b.gen++
	b.etaGen++
	gen := b.gen
	b.sel = &selection{
		route:     route,
		requested: preferred,
		bound:     loading(),
		stopsSt:   loading(),
		etaSt:     loading(),
	}
	b.mu.Unlock()

	logger := b.logger.With(
		slog.String("route", route.Route),
		slog.String("service_type", string(route.ServiceType)),
		slog.Uint64("generation", gen))

	res, err := b.resolver.ResolveRoute(ctx, transit.RouteRequest{
		Route:       route.Route,
		ServiceType: string(route.ServiceType),
		Bound:       preferred,
	})

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.gen != gen {
		b.metrics.ObserveSuperseded()
		logger.Info("discarding superseded resolution")
		return b.viewLocked(), ErrSuperseded
	}

	sel := b.sel
	sel.info = res.Info

	if err != nil && !errors.Is(err, transit.ErrStopResolutionFailed) {
		logging.LogError(logger, "route resolution failed", err)
		sel.bound = failed(err)
		sel.stopsSt = idle()
		sel.etaSt = idle()
		return b.viewLocked(), err
	}

	rrs := res.RouteStops
	sel.routeStops = &rrs
	sel.bound = ready()
	sel.etas = res.ETAs
	sel.etaAt = b.clock.Now()
	sel.etaSt = ready()

	if err != nil {
		sel.stopsSt = failed(err)
		return b.viewLocked(), err
	}

	sel.stops = res.Stops
	sel.index = transit.NewStopIndex(res.Stops)
	sel.stopsSt = ready()
	return b.viewLocked(), nil
}

// RetryStops re-runs the stop stage for a selection whose bound resolved but
// whose stops failed.
func (b *Board) RetryStops(ctx context.Context) (View, error) {
	b.mu.Lock()
	sel := b.sel
	if sel == nil {
		b.mu.Unlock()
		return b.View(), ErrNoSelection
	}
	if sel.routeStops == nil {
		b.mu.Unlock()
		return b.View(), ErrNotReady
	}
	gen := b.gen
	rrs := *sel.routeStops
	sel.stopsSt = loading()
	b.mu.Unlock()

	stops, err := b.resolver.ResolveStops(ctx, rrs)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.gen != gen {
		b.metrics.ObserveSuperseded()
		return b.viewLocked(), ErrSuperseded
	}
	if err != nil {
		b.sel.stopsSt = failed(err)
		return b.viewLocked(), err
	}
	b.sel.stops = stops
	b.sel.index = transit.NewStopIndex(stops)
	b.sel.stopsSt = ready()
	return b.viewLocked(), nil
}

// RefreshETAs re-fetches predictions for the resolved route and replaces the
// previous set wholesale. Bound and stops are untouched.
func (b *Board) RefreshETAs(ctx context.Context) (View, error) {
	b.mu.Lock()
	sel := b.sel
	if sel == nil {
		b.mu.Unlock()
		return b.View(), ErrNoSelection
	}
	if sel.routeStops == nil {
		b.mu.Unlock()
		return b.View(), ErrNotReady
	}
	b.etaGen++
	gen, etaGen := b.gen, b.etaGen
	rrs := *sel.routeStops
	sel.etaSt = loading()
	b.mu.Unlock()

	etas := b.resolver.RefreshETAs(ctx, rrs)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.gen != gen || b.etaGen != etaGen {
		b.metrics.ObserveSuperseded()
		return b.viewLocked(), ErrSuperseded
	}
	b.sel.etas = etas
	b.sel.etaAt = b.clock.Now()
	b.sel.etaSt = ready()
	return b.viewLocked(), nil
}

// ClearSelection returns to the route list. In-flight resolutions for the
// old selection are discarded when they finish.
func (b *Board) ClearSelection() View {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.gen++
	b.etaGen++
	b.sel = nil
	return b.viewLocked()
}

// NearestStop finds the stop of the resolved route closest to a point.
func (b *Board) NearestStop(lat, lon, maxMeters float64) (transit.NearestStop, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.sel == nil {
		return transit.NearestStop{}, false, ErrNoSelection
	}
	if b.sel.index == nil {
		return transit.NearestStop{}, false, ErrNotReady
	}
	n, ok := b.sel.index.Nearest(lat, lon, maxMeters)
	return n, ok, nil
}

// View returns a snapshot of the current state.
func (b *Board) View() View {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.viewLocked()
}

// Generation is the current selection generation.
func (b *Board) Generation() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.gen
}

// CatalogStatus reports whether the route catalog has loaded.
func (b *Board) CatalogStatus() StageStatus {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.catalogSt
}

// Catalog returns the loaded catalog. The slice must not be modified.
func (b *Board) Catalog() []models.Route {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.catalog
}

// Language is the display language of the view ("tc" or "en").
func (b *Board) Language() string {
	return b.lang
}
