// Package webui serves operator pages next to the JSON API.
package webui

import (
	"net/http"

	"busboard.hk/internal/app"
)

type WebUI struct {
	*app.Application
}

func NewWebUI(app *app.Application) *WebUI {
	return &WebUI{Application: app}
}

// SetWebUIRoutes registers the pages on mux.
func (webUI *WebUI) SetWebUIRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /debug", webUI.debugIndexHandler)
}
