package models

import "strings"

// Route is one entry of the route catalog. The triple (Route, Bound,
// ServiceType) identifies it.
type Route struct {
	Route       string     `json:"route"`
	Bound       Bound      `json:"bound"`
	ServiceType FlexString `json:"service_type"`
	OrigEN      string     `json:"orig_en"`
	OrigTC      string     `json:"orig_tc"`
	OrigSC      string     `json:"orig_sc,omitempty"`
	DestEN      string     `json:"dest_en"`
	DestTC      string     `json:"dest_tc"`
	DestSC      string     `json:"dest_sc,omitempty"`
}

// Empty reports whether the upstream returned a blank object for the route.
func (r Route) Empty() bool {
	return strings.TrimSpace(r.Route) == ""
}

// RouteInfo is the supplementary route metadata resolved alongside the stop
// list. It is a Route tagged with the direction that actually answered.
type RouteInfo struct {
	Route
	ResolvedBound Bound `json:"resolved_bound"`
}

// RouteStop is one position along a route.
type RouteStop struct {
	Route       string     `json:"route"`
	Bound       Bound      `json:"bound"`
	ServiceType FlexString `json:"service_type"`
	Seq         FlexInt    `json:"seq"`
	Stop        string     `json:"stop"`
}

// ResolvedRouteStops is the ordered stop list of exactly one
// (route, bound, service type). It is never edited in place: a bound change
// or refresh produces a new value.
type ResolvedRouteStops struct {
	Route       string      `json:"route"`
	Bound       Bound       `json:"bound"`
	ServiceType string      `json:"service_type"`
	Stops       []RouteStop `json:"stops"`
}

// StopIDs returns the stop identifiers in route order.
func (r ResolvedRouteStops) StopIDs() []string {
	ids := make([]string, len(r.Stops))
	for i, s := range r.Stops {
		ids[i] = s.Stop
	}
	return ids
}

// Len is the number of stops on the resolved route.
func (r ResolvedRouteStops) Len() int {
	return len(r.Stops)
}
