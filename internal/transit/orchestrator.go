package transit

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"busboard.hk/internal/logging"
	"busboard.hk/internal/models"
)

// RouteRequest identifies the route variant to resolve. Bound is the
// preferred direction; empty means the default probing order.
type RouteRequest struct {
	Route       string
	ServiceType string
	Bound       models.Bound
}

// Resolution is the outcome of one resolution cycle.
type Resolution struct {
	RouteStops models.ResolvedRouteStops
	Stops      []models.StopInfo
	ETAs       ETAMap
	// Info is nil when neither direction returned route metadata.
	Info *models.RouteInfo
}

// ResolveRoute runs bound resolution, then the stop and ETA stages
// concurrently. Route metadata is probed alongside and its failure is only
// logged.
//
// When bound resolution fails the returned error wraps ErrNoBoundAvailable
// (or the context error) and the Resolution is empty. When the stop stage
// fails the error wraps ErrStopResolutionFailed and the Resolution still
// carries RouteStops and ETAs so the caller can retry the stop stage.
func (s *Service) ResolveRoute(ctx context.Context, req RouteRequest) (Resolution, error) {
	logger := s.logger.With(
		slog.String("route", req.Route),
		slog.String("service_type", req.ServiceType))

	infoCtx, cancelInfo := context.WithCancel(ctx)
	defer cancelInfo()

	infoCh := make(chan *models.RouteInfo, 1)
	go func() {
		info, err := s.ResolveRouteInfo(infoCtx, req.Route, req.ServiceType, InfoCandidateOrder)
		if err != nil {
			if infoCtx.Err() == nil {
				logger.Warn("route info unavailable", slog.String("error", err.Error()))
			}
			infoCh <- nil
			return
		}
		infoCh <- &info
	}()

	rrs, err := s.ResolveBound(ctx, req.Route, req.ServiceType, CandidatesFor(req.Bound))
	if err != nil {
		s.metrics.ObserveResolution("no_bound")
		return Resolution{}, err
	}

	var (
		wg      sync.WaitGroup
		stops   []models.StopInfo
		stopErr error
		etas    ETAMap
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		stops, stopErr = s.ResolveStops(ctx, rrs)
	}()
	go func() {
		defer wg.Done()
		etas = s.ResolveETAs(ctx, rrs)
	}()
	wg.Wait()

	res := Resolution{
		RouteStops: rrs,
		ETAs:       etas,
		Info:       <-infoCh,
	}

	if stopErr != nil {
		s.metrics.ObserveResolution("stop_failed")
		if errors.Is(stopErr, ErrStopResolutionFailed) {
			logging.LogError(logger, "stop resolution failed", stopErr,
				slog.String("bound", string(rrs.Bound)))
		}
		return res, stopErr
	}

	res.Stops = stops
	s.metrics.ObserveResolution("ready")
	logging.LogOperation(logger, "route_resolved",
		slog.String("bound", string(rrs.Bound)),
		slog.Int("stops", len(stops)))
	return res, nil
}

// RefreshETAs re-runs only the ETA stage for an already resolved route.
func (s *Service) RefreshETAs(ctx context.Context, rrs models.ResolvedRouteStops) ETAMap {
	return s.ResolveETAs(ctx, rrs)
}
