package restapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"busboard.hk/internal/models"
)

const maxBodyBytes = 4 << 10

type selectRouteRequest struct {
	Route       string            `json:"route" validate:"required,max=8,alphanum"`
	Bound       string            `json:"bound" validate:"omitempty,oneof=outbound inbound O I"`
	ServiceType models.FlexString `json:"service_type" validate:"required,max=4"`
}

type changeBoundRequest struct {
	Bound string `json:"bound" validate:"required,oneof=outbound inbound O I"`
}

// decodeBody reads a JSON body into dst and validates its struct tags.
func (api *RestAPI) decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return fmt.Errorf("malformed request body: %w", err)
	}
	if err := api.validate.Struct(dst); err != nil {
		return fmt.Errorf("invalid request: %w", err)
	}
	return nil
}

func (api *RestAPI) selectionHandler(w http.ResponseWriter, r *http.Request) {
	api.sendOK(w, r, api.Board.View())
}

// selectRouteHandler starts a new resolution cycle. The catalog entry is used
// for the header when the route is known.
func (api *RestAPI) selectRouteHandler(w http.ResponseWriter, r *http.Request) {
	var req selectRouteRequest
	if err := api.decodeBody(w, r, &req); err != nil {
		api.sendError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	route := models.Route{Route: req.Route, ServiceType: req.ServiceType}
	if req.Bound != "" {
		route.Bound, _ = models.ParseBound(req.Bound)
	}
	for _, known := range api.Board.Catalog() {
		if known.Route == route.Route && known.ServiceType == route.ServiceType &&
			(route.Bound == "" || known.Bound == route.Bound) {
			known.Bound = route.Bound
			route = known
			break
		}
	}

	view, err := api.Board.SelectRoute(r.Context(), route)
	api.sendActionResult(w, r, view, err)
}

func (api *RestAPI) changeBoundHandler(w http.ResponseWriter, r *http.Request) {
	var req changeBoundRequest
	if err := api.decodeBody(w, r, &req); err != nil {
		api.sendError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	bound, _ := models.ParseBound(req.Bound)

	view, err := api.Board.ChangeBound(r.Context(), bound)
	api.sendActionResult(w, r, view, err)
}

func (api *RestAPI) refreshETAsHandler(w http.ResponseWriter, r *http.Request) {
	view, err := api.Board.RefreshETAs(r.Context())
	api.sendActionResult(w, r, view, err)
}

func (api *RestAPI) retryStopsHandler(w http.ResponseWriter, r *http.Request) {
	view, err := api.Board.RetryStops(r.Context())
	api.sendActionResult(w, r, view, err)
}

func (api *RestAPI) clearSelectionHandler(w http.ResponseWriter, r *http.Request) {
	api.sendOK(w, r, api.Board.ClearSelection())
}

// nearestStopHandler finds the stop of the resolved route closest to lat/lon.
// radius limits the search in meters; zero or absent means unlimited.
func (api *RestAPI) nearestStopHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, errLat := strconv.ParseFloat(q.Get("lat"), 64)
	lon, errLon := strconv.ParseFloat(q.Get("lon"), 64)
	if errLat != nil || errLon != nil || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		api.sendError(w, r, http.StatusBadRequest, "lat and lon must be valid coordinates")
		return
	}
	var radius float64
	if raw := q.Get("radius"); raw != "" {
		var err error
		radius, err = strconv.ParseFloat(raw, 64)
		if err != nil || radius < 0 {
			api.sendError(w, r, http.StatusBadRequest, "radius must be a non-negative number of meters")
			return
		}
	}

	nearest, ok, err := api.Board.NearestStop(lat, lon, radius)
	if err != nil {
		api.sendActionResult(w, r, nil, err)
		return
	}
	if !ok {
		api.sendNotFound(w, r)
		return
	}
	api.sendOK(w, r, nearest)
}
