package app

import (
	"log/slog"

	"busboard.hk/internal/appconf"
	"busboard.hk/internal/board"
	"busboard.hk/internal/clock"
	"busboard.hk/internal/etabus"
	"busboard.hk/internal/metrics"
	"busboard.hk/internal/transit"
)

// Application holds the dependencies for our HTTP handlers, helpers,
// and middleware. Upstream is the raw ETA API client, Transit the resolution
// pipeline built on it, and Board the single route selection served to users.
type Application struct {
	Config   appconf.Config
	Logger   *slog.Logger
	Clock    clock.Clock
	Metrics  *metrics.Metrics
	Upstream *etabus.Client
	Transit  *transit.Service
	Board    *board.Board
}
