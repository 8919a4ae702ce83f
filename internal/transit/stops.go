package transit

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"busboard.hk/internal/logging"
	"busboard.hk/internal/models"
)

// ResolveStops fetches every stop on the route concurrently and returns them
// in route order. A stop visited twice, as on circular routes, is fetched
// once per call. One failure fails the whole stage and nothing partial is
// returned.
func (s *Service) ResolveStops(ctx context.Context, rrs models.ResolvedRouteStops) ([]models.StopInfo, error) {
	ids := rrs.StopIDs()

	unique := make([]string, 0, len(ids))
	slot := make(map[string]int, len(ids))
	for _, id := range ids {
		if _, ok := slot[id]; !ok {
			slot[id] = len(unique)
			unique = append(unique, id)
		}
	}
	fetched := make([]models.StopInfo, len(unique))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcurrent)

	for i, id := range unique {
		g.Go(func() error {
			info, err := call(gctx, s, "stop", s.policies.Stop, func(ctx context.Context) (models.StopInfo, error) {
				return s.upstream.Stop(ctx, id)
			})
			if err == nil && info.Empty() {
				err = errEmptyProbe
			}
			if err != nil {
				logging.LogError(s.logger, "failed to resolve stop", err,
					slog.String("stop", id),
					slog.String("route", rrs.Route),
					slog.String("bound", string(rrs.Bound)))
				return fmt.Errorf("%w: stop %s: %v", ErrStopResolutionFailed, id, err)
			}
			fetched[i] = info
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]models.StopInfo, len(ids))
	for i, id := range ids {
		out[i] = fetched[slot[id]]
	}
	return out, nil
}
