package transit

import (
	"context"
	"log/slog"
	"sync"

	"busboard.hk/internal/etabus"
	"busboard.hk/internal/models"
)

// ETAMap maps a stop identifier to its arrival predictions. Every stop of
// the route has an entry; a stop whose fetch failed maps to an empty slice.
type ETAMap map[string][]models.ETARecord

// ResolveETAs fetches predictions for every stop concurrently. Failures are
// isolated per stop and never fail the call. Records for the opposite
// direction are dropped.
func (s *Service) ResolveETAs(ctx context.Context, rrs models.ResolvedRouteStops) ETAMap {
	ids := rrs.StopIDs()
	results := make([][]models.ETARecord, len(ids))

	sem := make(chan struct{}, s.maxConcurrent)
	var wg sync.WaitGroup

	for i, id := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			results[i] = s.fetchStopETAs(ctx, rrs, id)
		}()
	}
	wg.Wait()

	out := make(ETAMap, len(ids))
	for i, id := range ids {
		out[id] = results[i]
	}
	return out
}

func (s *Service) fetchStopETAs(ctx context.Context, rrs models.ResolvedRouteStops, stopID string) []models.ETARecord {
	records, err := call(ctx, s, "eta", s.policies.ETA, func(ctx context.Context) ([]models.ETARecord, error) {
		return s.upstream.ETA(ctx, stopID, rrs.Route, rrs.ServiceType)
	})
	if err != nil {
		partial := &PartialETAUnavailable{Stop: stopID, Cause: err}
		s.logger.Warn("eta unavailable for stop",
			slog.String("stop", stopID),
			slog.String("route", rrs.Route),
			slog.Bool("transport", etabus.IsTransport(err)),
			slog.String("error", partial.Error()))
		s.metrics.ObserveETAStopFailure()
		return []models.ETARecord{}
	}

	kept := make([]models.ETARecord, 0, len(records))
	for _, rec := range records {
		if !rec.MatchesBound(rrs.Bound) {
			continue
		}
		rec.Stop = stopID
		kept = append(kept, rec)
	}
	return kept
}

// ClosestETA returns the record with the earliest timestamp. Records without
// a timestamp are skipped. On a tie the first record in input order wins.
func ClosestETA(records []models.ETARecord) (models.ETARecord, bool) {
	var (
		best  models.ETARecord
		found bool
	)
	for _, rec := range records {
		if !rec.HasTime() {
			continue
		}
		if !found || rec.ETA.Before(*best.ETA) {
			best = rec
			found = true
		}
	}
	return best, found
}
