package webui

import (
	"embed"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/davecgh/go-spew/spew"

	"busboard.hk/internal/appconf"
)

//go:embed debug_index.html
var templateFS embed.FS

var debugTemplate = template.Must(template.ParseFS(templateFS, "debug_index.html"))

type debugData struct {
	Title string
	Pre   string
}

type cacheStats struct {
	Entries       int
	CatalogStatus string
	Generation    uint64
}

func writeDebugData(w http.ResponseWriter, title string, data interface{}) {
	cfg := spew.ConfigState{Indent: "  ", SortKeys: true, DisablePointerAddresses: true}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	err := debugTemplate.Execute(w, debugData{
		Title: title,
		Pre:   cfg.Sdump(data),
	})
	if err != nil {
		slog.Error("failed to execute debug template", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// debugIndexHandler dumps live state. It does not exist in production.
func (webUI *WebUI) debugIndexHandler(w http.ResponseWriter, r *http.Request) {
	if webUI.Config.Env == appconf.Production {
		http.NotFound(w, r)
		return
	}
	if webUI.Board == nil {
		http.Error(w, "board not initialized", http.StatusServiceUnavailable)
		return
	}

	var (
		data  interface{}
		title string
	)
	switch r.URL.Query().Get("dataType") {
	case "selection":
		data = webUI.Board.View()
		title = "Board - Current Selection"
	case "catalog":
		data = webUI.Board.Catalog()
		title = "Board - Route Catalog"
	case "search":
		term := r.URL.Query().Get("q")
		view, err := webUI.Board.Search(r.Context(), term)
		if err != nil {
			data = err
		} else {
			data = view
		}
		title = "Board - Search " + term
	case "cache":
		stats := cacheStats{
			CatalogStatus: string(webUI.Board.CatalogStatus().Status),
			Generation:    webUI.Board.Generation(),
		}
		if webUI.Transit != nil {
			stats.Entries = webUI.Transit.CacheLen()
		}
		data = stats
		title = "Transit - Cache"
	case "config":
		data = webUI.Config
		title = "Configuration"
	default:
		data = map[string]string{
			"error": "Please use one of the following: selection, catalog, search, cache, config.",
		}
		title = "Choose a data type"
	}

	writeDebugData(w, title, data)
}
