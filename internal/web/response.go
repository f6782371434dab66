package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/justestif/daily-song/internal/shared"
	"github.com/justestif/daily-song/internal/songs"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// SuccessResponse wraps the payload of every successful request.
type SuccessResponse struct {
	Data      any    `json:"data"`
	Message   string `json:"message,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func respondJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Str("request_id", middleware.GetReqID(r.Context())).Msg("failed to encode response")
	}
}

func respondSuccess(w http.ResponseWriter, r *http.Request, data any, message string) {
	respondJSON(w, r, http.StatusOK, SuccessResponse{
		Data:      data,
		Message:   message,
		RequestID: middleware.GetReqID(r.Context()),
	})
}

func respondError(w http.ResponseWriter, r *http.Request, status int, message string) {
	respondJSON(w, r, status, ErrorResponse{
		Error:     http.StatusText(status),
		Message:   message,
		RequestID: middleware.GetReqID(r.Context()),
	})
}

// respondErr maps err to a status code and a message that is safe to show.
// Upstream and storage details stay in the log.
func respondErr(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	message := messageFor(status, err)

	event := log.Warn()
	if status >= http.StatusInternalServerError {
		event = log.Error()
	}
	event.Err(err).
		Str("request_id", middleware.GetReqID(r.Context())).
		Int("status", status).
		Msg("request failed")

	respondError(w, r, status, message)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, shared.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrAuth):
		return http.StatusUnauthorized
	case errors.Is(err, shared.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, shared.ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func messageFor(status int, err error) string {
	var msg string
	switch status {
	case http.StatusBadRequest:
		msg = err.Error()
	case http.StatusUnauthorized:
		msg = "not logged in to Spotify, please log in again"
	case http.StatusNotFound:
		msg = "nothing found"
	case http.StatusBadGateway:
		msg = "an upstream service failed"
	case http.StatusGatewayTimeout:
		msg = "an upstream service timed out"
	default:
		msg = "internal error"
	}

	if ge, ok := songs.AsGenreError(err); ok {
		switch {
		case errors.Is(err, songs.ErrExhaustedCandidates):
			msg = "no new song available"
		case errors.Is(err, songs.ErrNoAlbum):
			msg = "no album cover found"
		case errors.Is(err, songs.ErrNoTrack):
			msg = "no recommendation available"
		case errors.Is(err, songs.ErrNoArtist):
			msg = "no artist"
		case errors.Is(err, songs.ErrNoLink):
			msg = "no spotify link"
		}
		return fmt.Sprintf("genre %s failed while %s: %s", ge.Genre, ge.Stage, msg)
	}
	return msg
}
