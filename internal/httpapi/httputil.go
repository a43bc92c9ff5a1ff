package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/kirubel/essence-mirror/internal/action"
	"github.com/kirubel/essence-mirror/internal/agent"
	"github.com/kirubel/essence-mirror/internal/media"
	"github.com/kirubel/essence-mirror/internal/mirror"
	"github.com/kirubel/essence-mirror/internal/narration"
	"github.com/kirubel/essence-mirror/internal/reel"
	"github.com/kirubel/essence-mirror/internal/voice"
)

// maxJSONBody bounds every JSON request body.
const maxJSONBody = 1 << 20

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Warn().Err(err).Msg("Writing JSON response failed")
	}
}

// httpError sends a JSON error response. clientMsg is returned to the caller;
// internalDetails are only logged so bucket keys and ARNs stay server-side.
func httpError(w http.ResponseWriter, status int, clientMsg string, internalDetails ...string) {
	if len(internalDetails) > 0 {
		log.Error().
			Int("status", status).
			Str("clientMsg", clientMsg).
			Strs("internalDetails", internalDetails).
			Msg("HTTP error with internal details")
	}
	respondJSON(w, status, map[string]string{"error": clientMsg})
}

// statusFor maps a component error to a status code and a client-safe message.
func statusFor(err error) (int, string) {
	var appErr *action.ApplicationError
	switch {
	case errors.Is(err, media.ErrInvalidImage):
		return http.StatusBadRequest, "unsupported image; send JPEG, PNG, GIF or WebP"
	case errors.Is(err, mirror.ErrNoImage), errors.Is(err, reel.ErrNoImage):
		return http.StatusBadRequest, "analyze an image first"
	case errors.Is(err, mirror.ErrSessionNotFound):
		return http.StatusNotFound, "session not found"
	case errors.Is(err, reel.ErrJobNotFound):
		return http.StatusNotFound, "reel job not found"
	case errors.Is(err, voice.ErrSessionClosed):
		return http.StatusConflict, "voice session is not open"
	case errors.Is(err, voice.ErrSessionActive):
		return http.StatusConflict, "voice session is already open"
	case errors.As(err, &appErr):
		return http.StatusUnprocessableEntity, appErr.Message
	case errors.Is(err, mirror.ErrNarrationOff),
		errors.Is(err, mirror.ErrVoiceUnavailable),
		errors.Is(err, media.ErrStorageUnavailable),
		errors.Is(err, agent.ErrAgentUnavailable),
		errors.Is(err, narration.ErrUnavailable):
		return http.StatusServiceUnavailable, "feature is not configured"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "upstream service timed out"
	default:
		return http.StatusBadGateway, "upstream service failed"
	}
}

// writeError responds with the mapped status. 5xx details are logged.
func writeError(w http.ResponseWriter, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		httpError(w, status, msg, err.Error())
		return
	}
	log.Debug().Err(err).Int("status", status).Msg("Request rejected")
	httpError(w, status, msg)
}

// decodeJSON reads an optional JSON body into dst. An empty body leaves dst
// untouched.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}
