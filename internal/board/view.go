package board

import (
	"time"

	"busboard.hk/internal/models"
	"busboard.hk/internal/transit"
)

// View is the read-only model handed to the presentation layer.
type View struct {
	Generation uint64         `json:"generation"`
	Language   string         `json:"language"`
	Selection  *SelectionView `json:"selection"`
}

// RouteHeader is the title line of a selected route.
type RouteHeader struct {
	Route       string `json:"route"`
	ServiceType string `json:"service_type"`
	OrigTC      string `json:"orig_tc"`
	OrigEN      string `json:"orig_en"`
	DestTC      string `json:"dest_tc"`
	DestEN      string `json:"dest_en"`
}

type StagesView struct {
	Bound StageStatus `json:"bound"`
	Stops StageStatus `json:"stops"`
	ETAs  StageStatus `json:"etas"`
}

type SelectionView struct {
	Header         RouteHeader       `json:"header"`
	RequestedBound models.Bound      `json:"requested_bound,omitempty"`
	Bound          models.Bound      `json:"bound,omitempty"`
	Info           *models.RouteInfo `json:"route_info,omitempty"`
	Stages         StagesView        `json:"stages"`
	Stops          []StopView        `json:"stops"`
	ETAs           transit.ETAMap    `json:"etas,omitempty"`
	ETAUpdatedAt   *time.Time        `json:"eta_updated_at,omitempty"`
	Path           string            `json:"path,omitempty"`
}

// StopView is one stop card. Name fields are empty when the stop stage has
// not resolved; the identifier and position are always known.
type StopView struct {
	Position int      `json:"position"`
	Seq      int      `json:"seq"`
	StopID   string   `json:"stop"`
	Name     string   `json:"name,omitempty"`
	NameTC   string   `json:"name_tc,omitempty"`
	NameEN   string   `json:"name_en,omitempty"`
	Lat      float64  `json:"lat,omitempty"`
	Long     float64  `json:"long,omitempty"`
	Next     *ETAView `json:"next,omitempty"`
	NoETA    *Message `json:"no_eta,omitempty"`
}

// ETAView is a single prediction. EtaSeq is the arrival's rank; MinutesUntil
// is computed from the timestamp.
type ETAView struct {
	EtaSeq       int       `json:"eta_seq"`
	ETA          time.Time `json:"eta"`
	MinutesUntil int       `json:"minutes_until"`
	DestTC       string    `json:"dest_tc,omitempty"`
	DestEN       string    `json:"dest_en,omitempty"`
	RemarkTC     string    `json:"rmk_tc,omitempty"`
	RemarkEN     string    `json:"rmk_en,omitempty"`
}

// SearchHelp explains an empty search result.
type SearchHelp struct {
	Message      Message `json:"message"`
	Hint         Message `json:"hint"`
	InvalidInput bool    `json:"invalid_input"`
}

type SearchView struct {
	Term    string         `json:"term"`
	Catalog StageStatus    `json:"catalog"`
	Total   int            `json:"total"`
	Routes  []models.Route `json:"routes"`
	Help    *SearchHelp    `json:"help,omitempty"`
}

// MinutesUntil is the whole number of minutes from now until eta, never negative.
func MinutesUntil(now, eta time.Time) int {
	d := eta.Sub(now)
	if d <= 0 {
		return 0
	}
	return int(d / time.Minute)
}

func (b *Board) searchView(term string) SearchView {
	routes := transit.Filter(b.catalog, term)
	v := SearchView{
		Term:    term,
		Catalog: b.catalogSt,
		Total:   len(b.catalog),
		Routes:  routes,
	}
	if len(routes) == 0 && b.catalogSt.Status == StatusReady {
		v.Help = &SearchHelp{
			Message:      MsgNoMatch,
			Hint:         MsgSearchHint,
			InvalidInput: !transit.ValidSearchTerm(term),
		}
	}
	return v
}

func (b *Board) viewLocked() View {
	v := View{Generation: b.gen, Language: b.lang}
	sel := b.sel
	if sel == nil {
		return v
	}

	sv := &SelectionView{
		Header: RouteHeader{
			Route:       sel.route.Route,
			ServiceType: string(sel.route.ServiceType),
			OrigTC:      sel.route.OrigTC,
			OrigEN:      sel.route.OrigEN,
			DestTC:      sel.route.DestTC,
			DestEN:      sel.route.DestEN,
		},
		RequestedBound: sel.requested,
		Info:           sel.info,
		Stages: StagesView{
			Bound: sel.bound,
			Stops: sel.stopsSt,
			ETAs:  sel.etaSt,
		},
		ETAs: sel.etas,
	}
	if sel.info != nil && sv.Header.OrigEN == "" {
		sv.Header.OrigTC, sv.Header.OrigEN = sel.info.OrigTC, sel.info.OrigEN
		sv.Header.DestTC, sv.Header.DestEN = sel.info.DestTC, sel.info.DestEN
	}
	if !sel.etaAt.IsZero() {
		at := sel.etaAt
		sv.ETAUpdatedAt = &at
	}

	if sel.routeStops != nil {
		sv.Bound = sel.routeStops.Bound
		sv.Stops = b.stopViews(sel)
		if sel.stops != nil {
			sv.Path = transit.RoutePath(sel.stops)
		}
	}

	v.Selection = sv
	return v
}

func (b *Board) stopViews(sel *selection) []StopView {
	now := b.clock.Now()
	out := make([]StopView, len(sel.routeStops.Stops))
	for i, rs := range sel.routeStops.Stops {
		sv := StopView{
			Position: i + 1,
			Seq:      int(rs.Seq),
			StopID:   rs.Stop,
		}
		if i < len(sel.stops) {
			info := sel.stops[i]
			sv.NameTC, sv.NameEN = info.NameTC, info.NameEN
			sv.Name = info.NameTC
			if b.lang == "en" {
				sv.Name = info.NameEN
			}
			sv.Lat, sv.Long = float64(info.Lat), float64(info.Long)
		}

		if sel.etas != nil {
			if rec, ok := transit.ClosestETA(sel.etas[rs.Stop]); ok {
				sv.Next = &ETAView{
					EtaSeq:       int(rec.EtaSeq),
					ETA:          *rec.ETA,
					MinutesUntil: MinutesUntil(now, *rec.ETA),
					DestTC:       rec.DestTC,
					DestEN:       rec.DestEN,
					RemarkTC:     rec.RemarkTC,
					RemarkEN:     rec.RemarkEN,
				}
			} else {
				msg := MsgNoETA
				sv.NoETA = &msg
			}
		}
		out[i] = sv
	}
	return out
}
