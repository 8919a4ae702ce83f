package transit

import (
	"errors"
	"fmt"
)

var (
	// ErrCatalogUnavailable means the route list could not be fetched within
	// the retry budget. No partial catalog is ever returned with it.
	ErrCatalogUnavailable = errors.New("route catalog unavailable")

	// ErrNoBoundAvailable means neither direction of a route variant answered
	// with data. It is deliberately not a transport error.
	ErrNoBoundAvailable = errors.New("no bound available")

	// ErrStopResolutionFailed means at least one stop on the route could not be identified.
	ErrStopResolutionFailed = errors.New("stop resolution failed")
)

// PartialETAUnavailable describes a stop whose arrival predictions could not
// be fetched. It is logged and counted, never returned: the stop simply gets
// an empty ETA list.
type PartialETAUnavailable struct {
	Stop  string
	Cause error
}

func (e *PartialETAUnavailable) Error() string {
	return fmt.Sprintf("eta unavailable for stop %s: %v", e.Stop, e.Cause)
}

func (e *PartialETAUnavailable) Unwrap() error { return e.Cause }
