// Package rest provides the HTTP proxy endpoints and the player page.
package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/jfplayer/internal/app/catalog"
	"github.com/osa030/jfplayer/internal/infra/jellyfin"
)

// Kind classifies a failure reported to the caller.
type Kind string

const (
	KindBadRequest    Kind = "bad_request"
	KindUnauthorized  Kind = "unauthorized"
	KindNotConfigured Kind = "not_configured"
	KindNotFound      Kind = "not_found"
	KindUpstream      Kind = "upstream"
	KindInternal      Kind = "internal"
)

// Error is a failure with the status and message shown to the caller.
type Error struct {
	Kind    Kind
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Kind, e.Status, e.Message)
}

// BadRequest reports a missing or malformed client input.
func BadRequest(msg string) *Error {
	return &Error{Kind: KindBadRequest, Status: http.StatusBadRequest, Message: msg}
}

// errorBody is the JSON shape of every error response.
type errorBody struct {
	StatusCode    int    `json:"statusCode"`
	StatusMessage string `json:"statusMessage"`
}

// classify maps any error to an Error. fallback is the message for
// unexpected failures.
func classify(err error, fallback string) *Error {
	var re *Error
	if errors.As(err, &re) {
		return re
	}

	var se *jellyfin.StatusError
	switch {
	case errors.As(err, &se):
		msg := se.Message
		if msg == "" {
			msg = fallback
		}
		return &Error{Kind: KindUpstream, Status: se.Code, Message: msg}
	case errors.Is(err, catalog.ErrMissingID):
		return BadRequest("Missing playlist id")
	case errors.Is(err, catalog.ErrNotConfigured), errors.Is(err, jellyfin.ErrNotConfigured):
		return &Error{Kind: KindNotConfigured, Status: http.StatusInternalServerError, Message: "Jellyfin not configured"}
	case errors.Is(err, catalog.ErrMissingUser):
		return &Error{Kind: KindNotConfigured, Status: http.StatusInternalServerError, Message: "Missing Jellyfin user id"}
	case errors.Is(err, catalog.ErrLibraryNotFound):
		return &Error{Kind: KindNotFound, Status: http.StatusNotFound, Message: "Playlists library not found"}
	default:
		return &Error{Kind: KindInternal, Status: http.StatusInternalServerError, Message: fallback}
	}
}

// Fail writes err as a JSON error response. Nothing is written when the
// caller has already gone away.
func Fail(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	if errors.Is(r.Context().Err(), context.Canceled) {
		zlog.Debug().Msgf("rest: client went away: %s %s: %v", r.Method, r.URL.Path, err)
		return
	}

	e := classify(err, fallback)

	var ev *zerolog.Event
	if e.Status >= 500 {
		ev = zlog.Error()
	} else {
		ev = zlog.Warn()
	}
	ev.Str("kind", string(e.Kind)).Int("status", e.Status).Msgf("rest: %s %s failed: %v", r.Method, r.URL.Path, err)

	writeJSON(w, e.Status, errorBody{StatusCode: e.Status, StatusMessage: e.Message})
}

// writeJSON writes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zlog.Debug().Msgf("rest: failed to write response: %v", err)
	}
}
