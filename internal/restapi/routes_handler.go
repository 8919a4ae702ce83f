package restapi

import (
	"net/http"
	"strings"
)

// routesHandler returns the route catalog filtered by the q parameter. The
// catalog is loaded on first use.
func (api *RestAPI) routesHandler(w http.ResponseWriter, r *http.Request) {
	term := strings.TrimSpace(r.URL.Query().Get("q"))
	view, err := api.Board.Search(r.Context(), term)
	api.sendActionResult(w, r, view, err)
}
