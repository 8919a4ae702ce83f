// Package transittest provides an in-memory upstream for tests.
package transittest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"busboard.hk/internal/etabus"
	"busboard.hk/internal/models"
)

// FakeUpstream serves canned data and records every call. Unknown keys
// answer like the real API: route-stop and ETA lists come back empty, route
// and stop objects come back blank. Set an error to simulate a failure.
type FakeUpstream struct {
	mu sync.Mutex

	Catalog        []models.Route
	RouteStopLists map[string][]models.RouteStop // key: RouteKey(route, bound, st)
	Info           map[string]models.Route       // key: RouteKey(route, bound, st)
	Stops          map[string]models.StopInfo
	ETAs           map[string][]models.ETARecord // key: stop id

	// Errors keyed by call name as recorded in Calls, e.g. "stop:S2".
	Errors map[string]error
	// FailFirst makes the first n calls of a given name fail with a transport error.
	FailFirst map[string]int
	// Delay is applied before answering a call, honoring ctx.
	Delay map[string]time.Duration
	// Gate blocks a call until the channel is closed, honoring ctx.
	Gate map[string]chan struct{}

	calls []string
	seen  map[string]int
}

func NewFakeUpstream() *FakeUpstream {
	return &FakeUpstream{
		RouteStopLists: map[string][]models.RouteStop{},
		Info:           map[string]models.Route{},
		Stops:          map[string]models.StopInfo{},
		ETAs:           map[string][]models.ETARecord{},
		Errors:         map[string]error{},
		FailFirst:      map[string]int{},
		Delay:          map[string]time.Duration{},
		Gate:           map[string]chan struct{}{},
		seen:           map[string]int{},
	}
}

// RouteKey is the map key for RouteStopLists and Info.
func RouteKey(route string, bound models.Bound, serviceType string) string {
	return fmt.Sprintf("%s/%s/%s", route, bound, serviceType)
}

// TransportFailure builds the error the real client returns for a 5xx.
func TransportFailure(name string) error {
	return &etabus.TransportError{URL: name, StatusCode: 503, Status: "503 Service Unavailable"}
}

// Calls returns every call name in the order received.
func (f *FakeUpstream) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// CallCount returns how many times name was called.
func (f *FakeUpstream) CallCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.seen[name]
}

// Reset forgets recorded calls.
func (f *FakeUpstream) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
	f.seen = map[string]int{}
}

// SetETAs replaces the predictions served for a stop.
func (f *FakeUpstream) SetETAs(stopID string, records []models.ETARecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ETAs[stopID] = records
}

func (f *FakeUpstream) enter(ctx context.Context, name string) error {
	f.mu.Lock()
	f.calls = append(f.calls, name)
	f.seen[name]++
	n := f.seen[name]
	err := f.Errors[name]
	failFirst := f.FailFirst[name]
	delay := f.Delay[name]
	gate := f.Gate[name]
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return &etabus.TransportError{URL: name, Cause: ctx.Err()}
		}
	}
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return &etabus.TransportError{URL: name, Cause: ctx.Err()}
		}
	}
	if n <= failFirst {
		return TransportFailure(name)
	}
	return err
}

func (f *FakeUpstream) Routes(ctx context.Context) ([]models.Route, error) {
	if err := f.enter(ctx, "routes"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Route(nil), f.Catalog...), nil
}

func (f *FakeUpstream) Route(ctx context.Context, route string, bound models.Bound, serviceType string) (models.Route, error) {
	key := RouteKey(route, bound, serviceType)
	if err := f.enter(ctx, "route:"+key); err != nil {
		return models.Route{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Info[key], nil
}

func (f *FakeUpstream) RouteStops(ctx context.Context, route string, bound models.Bound, serviceType string) ([]models.RouteStop, error) {
	key := RouteKey(route, bound, serviceType)
	if err := f.enter(ctx, "route-stop:"+key); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.RouteStop(nil), f.RouteStopLists[key]...), nil
}

func (f *FakeUpstream) Stop(ctx context.Context, stopID string) (models.StopInfo, error) {
	if err := f.enter(ctx, "stop:"+stopID); err != nil {
		return models.StopInfo{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Stops[stopID], nil
}

func (f *FakeUpstream) ETA(ctx context.Context, stopID, route, serviceType string) ([]models.ETARecord, error) {
	if err := f.enter(ctx, "eta:"+stopID); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.ETARecord(nil), f.ETAs[stopID]...), nil
}

// AddRoute registers a route variant in one direction with the given stops.
// Stops are named "<prefix><n>" and placed along a line north of Tsim Sha Tsui.
func (f *FakeUpstream) AddRoute(route string, bound models.Bound, serviceType string, stopIDs ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := RouteKey(route, bound, serviceType)
	list := make([]models.RouteStop, len(stopIDs))
	for i, id := range stopIDs {
		list[i] = models.RouteStop{
			Route:       route,
			Bound:       bound,
			ServiceType: models.FlexString(serviceType),
			Seq:         models.FlexInt(i + 1),
			Stop:        id,
		}
		if _, ok := f.Stops[id]; !ok {
			f.Stops[id] = models.StopInfo{
				Stop:   id,
				NameEN: "STOP " + id,
				NameTC: "站 " + id,
				Lat:    models.FlexFloat(22.2938 + 0.005*float64(i)),
				Long:   models.FlexFloat(114.1686),
			}
		}
	}
	f.RouteStopLists[key] = list
	f.Info[key] = models.Route{
		Route:       route,
		Bound:       bound,
		ServiceType: models.FlexString(serviceType),
		OrigEN:      "ORIGIN " + route,
		DestEN:      "DESTINATION " + route,
		OrigTC:      "起點 " + route,
		DestTC:      "終點 " + route,
	}
	f.Catalog = append(f.Catalog, f.Info[key])
}

// ETAAt builds a prediction for stop at t in direction b.
func ETAAt(stopID string, b models.Bound, rank int, t time.Time) models.ETARecord {
	ts := t
	return models.ETARecord{
		Stop:   stopID,
		Dir:    b.Code(),
		EtaSeq: models.FlexInt(rank),
		ETA:    &ts,
	}
}
