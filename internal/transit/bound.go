package transit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"busboard.hk/internal/etabus"
	"busboard.hk/internal/logging"
	"busboard.hk/internal/models"
)

var (
	// StopCandidateOrder is the probing order for the stop list.
	StopCandidateOrder = []models.Bound{models.Outbound, models.Inbound}
	// InfoCandidateOrder is the probing order for route metadata.
	InfoCandidateOrder = []models.Bound{models.Inbound, models.Outbound}
)

// CandidatesFor puts preferred first, then its opposite. An invalid
// preference falls back to StopCandidateOrder.
func CandidatesFor(preferred models.Bound) []models.Bound {
	if !preferred.Valid() {
		return StopCandidateOrder
	}
	return []models.Bound{preferred, preferred.Opposite()}
}

var errEmptyProbe = errors.New("empty response")

// probe tries each candidate in order and returns the first non-empty
// result together with the bound that produced it. It never compares or
// merges answers from different directions.
func probe[T any](ctx context.Context, s *Service, operation string, candidates []models.Bound,
	fetch func(context.Context, models.Bound) (T, error), empty func(T) bool,
) (T, models.Bound, error) {
	var zero T
	failures := make([]string, 0, len(candidates))

	for _, bound := range candidates {
		if err := ctx.Err(); err != nil {
			return zero, "", err
		}

		v, err := call(ctx, s, operation, s.policies.Probe, func(ctx context.Context) (T, error) {
			return fetch(ctx, bound)
		})
		if err == nil && empty(v) {
			err = errEmptyProbe
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return zero, "", ctxErr
			}
			s.logger.Warn("bound probe failed",
				slog.String("operation", operation),
				slog.String("bound", string(bound)),
				slog.Bool("transport", etabus.IsTransport(err)),
				slog.String("error", err.Error()))
			failures = append(failures, fmt.Sprintf("%s: %v", bound, err))
			continue
		}
		return v, bound, nil
	}

	return zero, "", fmt.Errorf("%w (%s)", ErrNoBoundAvailable, strings.Join(failures, "; "))
}

// ResolveBound probes the route-stop list of each candidate bound in order
// and returns the first one that answers. The result is tagged with the
// probed bound.
func (s *Service) ResolveBound(ctx context.Context, route, serviceType string, candidates []models.Bound) (models.ResolvedRouteStops, error) {
	if len(candidates) == 0 {
		candidates = StopCandidateOrder
	}

	stops, bound, err := probe(ctx, s, "route_stop_probe", candidates,
		func(ctx context.Context, b models.Bound) ([]models.RouteStop, error) {
			return s.upstream.RouteStops(ctx, route, b, serviceType)
		},
		func(v []models.RouteStop) bool { return len(v) == 0 },
	)
	if err != nil {
		if errors.Is(err, ErrNoBoundAvailable) {
			logging.LogError(s.logger, "no bound available", err,
				slog.String("route", route),
				slog.String("service_type", serviceType))
			return models.ResolvedRouteStops{}, fmt.Errorf("route %s service type %s: %w", route, serviceType, err)
		}
		return models.ResolvedRouteStops{}, err
	}

	return models.ResolvedRouteStops{
		Route:       route,
		Bound:       bound,
		ServiceType: serviceType,
		Stops:       stops,
	}, nil
}

// ResolveRouteInfo probes the route metadata endpoint in candidate order.
// The upstream answers a missing direction with an empty object, which
// counts as a failed probe.
func (s *Service) ResolveRouteInfo(ctx context.Context, route, serviceType string, candidates []models.Bound) (models.RouteInfo, error) {
	if len(candidates) == 0 {
		candidates = InfoCandidateOrder
	}

	info, bound, err := probe(ctx, s, "route_info_probe", candidates,
		func(ctx context.Context, b models.Bound) (models.Route, error) {
			return s.upstream.Route(ctx, route, b, serviceType)
		},
		models.Route.Empty,
	)
	if err != nil {
		return models.RouteInfo{}, fmt.Errorf("route info %s service type %s: %w", route, serviceType, err)
	}
	return models.RouteInfo{Route: info, ResolvedBound: bound}, nil
}
