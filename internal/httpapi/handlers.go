package httpapi

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/kirubel/essence-mirror/internal/media"
	"github.com/kirubel/essence-mirror/internal/mirror"
	"github.com/kirubel/essence-mirror/internal/narration"
)

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": h.studio.Sessions().Len(),
	})
}

// session resolves {id} or writes a 404.
func (h *handler) session(w http.ResponseWriter, r *http.Request) (*mirror.Session, bool) {
	sess, ok := h.studio.Sessions().Get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, mirror.ErrSessionNotFound)
		return nil, false
	}
	return sess, true
}

func (h *handler) createSession(w http.ResponseWriter, r *http.Request) {
	sess := h.studio.Sessions().Create()
	respondJSON(w, http.StatusCreated, sess.Snapshot())
}

func (h *handler) getSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, sess.Snapshot())
}

func (h *handler) resetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.studio.Sessions().Reset(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sess.Snapshot())
}

func (h *handler) analyze(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(h.opts.MaxUploadBytes); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			httpError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("image exceeds %d bytes", h.opts.MaxUploadBytes))
			return
		}
		httpError(w, http.StatusBadRequest, "expected multipart/form-data with an image field")
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		httpError(w, http.StatusBadRequest, "missing image field")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		httpError(w, http.StatusBadRequest, "could not read image", err.Error())
		return
	}

	res, err := h.studio.Analyze(r.Context(), sess, media.Upload{
		Data:         data,
		Filename:     header.Filename,
		DeclaredType: header.Header.Get("Content-Type"),
		Source:       h.opts.UploadSource,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

type recommendRequest struct {
	Focus string `json:"lifestyle_focus"`
}

func (h *handler) recommend(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req recommendRequest
	if err := decodeJSON(r, &req); err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}
	set, err := h.studio.Recommend(r.Context(), sess, req.Focus)
	if err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, set)
}

func (h *handler) collage(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req mirror.CollageOptions
	if err := decodeJSON(r, &req); err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}
	c, err := h.studio.Collage(r.Context(), sess, req)
	if err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

func (h *handler) startReel(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req mirror.ReelOptions
	if err := decodeJSON(r, &req); err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.DurationSeconds < 0 {
		httpError(w, http.StatusBadRequest, "duration_seconds must not be negative")
		return
	}
	job, err := h.studio.StartReel(r.Context(), sess, req)
	if err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusAccepted, job)
}

func (h *handler) pollReel(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	job, err := h.studio.PollReel(r.Context(), sess, chi.URLParam(r, "jobId"))
	if err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, job)
}

type voiceRequest struct {
	Voice string `json:"voice"`
}

// narratedSection carries the mp3 inline.
type narratedSection struct {
	narration.Section
	Audio string `json:"audio"`
}

func (h *handler) narrate(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req voiceRequest
	if err := decodeJSON(r, &req); err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}
	sections, err := h.studio.Narrate(r.Context(), sess, req.Voice)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]narratedSection, 0, len(sections))
	for _, s := range sections {
		out = append(out, narratedSection{Section: s, Audio: base64.StdEncoding.EncodeToString(s.Audio)})
	}
	respondJSON(w, http.StatusOK, map[string]any{"sections": out})
}

func (h *handler) voiceStart(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req voiceRequest
	if err := decodeJSON(r, &req); err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Voice == "" {
		req.Voice = h.opts.DefaultVoice
	}
	v, err := h.studio.StartVoice(r.Context(), sess, req.Voice)
	if err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"voice": v})
}

type textRequest struct {
	Text string `json:"text"`
}

func (h *handler) voiceText(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req textRequest
	if err := decodeJSON(r, &req); err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		httpError(w, http.StatusBadRequest, "text is required")
		return
	}
	if err := h.studio.SendVoiceText(r.Context(), sess, req.Text); err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]string{"status": "sent"})
}

// voiceDrain waits up to timeout_ms (default DrainTimeout) for output.
func (h *handler) voiceDrain(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	timeout := h.opts.DrainTimeout
	if raw := r.URL.Query().Get("timeout_ms"); raw != "" {
		ms, err := strconv.Atoi(raw)
		if err != nil || ms < 0 {
			httpError(w, http.StatusBadRequest, "timeout_ms must be a non-negative integer")
			return
		}
		timeout = min(time.Duration(ms)*time.Millisecond, maxDrainTimeout)
	}
	out, err := h.studio.DrainVoice(sess, timeout)
	if err != nil && len(out.Text) == 0 && len(out.Audio) == 0 {
		writeError(w, err)
		return
	}
	if err != nil {
		log.Warn().Err(err).Str("sessionId", sess.ID()).Msg("Voice stream ended during drain")
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *handler) voiceEnd(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := h.studio.EndVoice(r.Context(), sess); err != nil {
		log.Warn().Err(err).Str("sessionId", sess.ID()).Msg("Voice end reported errors")
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ended"})
}

func (h *handler) voiceExport(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := h.studio.ExportConversation(sess, &buf); err != nil {
		httpError(w, http.StatusInternalServerError, "export failed", err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="conversation-%s.zip"`, sess.ID()))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		log.Warn().Err(err).Str("sessionId", sess.ID()).Msg("Writing export failed")
	}
}
