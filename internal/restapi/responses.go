package restapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"busboard.hk/internal/board"
	"busboard.hk/internal/logging"
	"busboard.hk/internal/transit"
)

const responseVersion = 1

// ResponseModel is the envelope of every API response. Message carries the
// localized text shown to users when Code is not 200.
type ResponseModel struct {
	Code        int            `json:"code"`
	CurrentTime int64          `json:"currentTime"`
	Text        string         `json:"text"`
	Message     *board.Message `json:"message,omitempty"`
	Data        any            `json:"data,omitempty"`
	Version     int            `json:"version"`
}

func (api *RestAPI) newResponse(code int, text string, data any) ResponseModel {
	return ResponseModel{
		Code:        code,
		CurrentTime: api.clock.NowUnixMilli(),
		Text:        text,
		Data:        data,
		Version:     responseVersion,
	}
}

func (api *RestAPI) sendResponse(w http.ResponseWriter, r *http.Request, response ResponseModel) {
	setJSONResponseType(&w)
	if response.Code != 0 && response.Code != http.StatusOK {
		w.WriteHeader(response.Code)
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		logging.LogError(logging.FromContext(r.Context()), "failed to encode response", err)
	}
}

func (api *RestAPI) sendOK(w http.ResponseWriter, r *http.Request, data any) {
	api.sendResponse(w, r, api.newResponse(http.StatusOK, "OK", data))
}

func (api *RestAPI) sendNotFound(w http.ResponseWriter, r *http.Request) {
	api.sendError(w, r, http.StatusNotFound, "resource not found")
}

func (api *RestAPI) sendError(w http.ResponseWriter, r *http.Request, code int, message string) {
	api.sendResponse(w, r, api.newResponse(code, message, nil))
}

// sendActionResult writes the outcome of a board action. On failure the
// current view is still returned so clients can render stages that resolved.
func (api *RestAPI) sendActionResult(w http.ResponseWriter, r *http.Request, data any, err error) {
	if err == nil {
		api.sendOK(w, r, data)
		return
	}

	code := statusForError(err)
	if code >= http.StatusInternalServerError {
		logging.LogError(logging.FromContext(r.Context()), "request failed", err,
			"path", r.URL.Path, "request_id", GetRequestID(r.Context()))
	}

	response := api.newResponse(code, err.Error(), data)
	if msg, ok := userMessage(err); ok {
		response.Message = &msg
	}
	api.sendResponse(w, r, response)
}

// statusForError maps pipeline and board errors onto HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, board.ErrNoSelection):
		return http.StatusNotFound
	case errors.Is(err, board.ErrNotReady), errors.Is(err, board.ErrSuperseded):
		return http.StatusConflict
	case errors.Is(err, transit.ErrNoBoundAvailable):
		return http.StatusNotFound
	case errors.Is(err, transit.ErrCatalogUnavailable), errors.Is(err, transit.ErrStopResolutionFailed):
		return http.StatusBadGateway
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// userMessage returns localized text for errors a user can act on.
func userMessage(err error) (board.Message, bool) {
	switch {
	case errors.Is(err, board.ErrNoSelection), errors.Is(err, board.ErrNotReady), errors.Is(err, board.ErrSuperseded):
		return board.Message{}, false
	}
	return board.MessageFor(err), true
}

func setJSONResponseType(w *http.ResponseWriter) {
	(*w).Header().Set("Content-Type", "application/json")
}
