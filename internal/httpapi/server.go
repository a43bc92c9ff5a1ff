// Package httpapi exposes a Studio over HTTP. Every per-visit route is scoped
// by the session ID minted by POST /api/sessions.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kirubel/essence-mirror/internal/metrics"
	"github.com/kirubel/essence-mirror/internal/mirror"
)

// Options tunes the router. Zero values get defaults.
type Options struct {
	MaxUploadBytes int64
	// UploadSource tags object keys of images uploaded through this API.
	UploadSource string
	DefaultVoice string
	// DrainTimeout is the default wait of GET /voice/drain.
	DrainTimeout time.Duration
	CORSOrigins  []string
	// OriginVerifySecret, when set, must arrive in the x-origin-verify header.
	OriginVerifySecret string
	// ServeMetrics mounts the Prometheus handler at /metrics.
	ServeMetrics bool
}

const (
	defaultMaxUpload    = 20 << 20
	defaultDrainTimeout = 2 * time.Second
	maxDrainTimeout     = 30 * time.Second
)

type handler struct {
	studio *mirror.Studio
	opts   Options
}

// NewRouter returns the API handler for studio.
func NewRouter(studio *mirror.Studio, opts Options) http.Handler {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = defaultMaxUpload
	}
	if opts.UploadSource == "" {
		opts.UploadSource = "web"
	}
	if opts.DrainTimeout <= 0 {
		opts.DrainTimeout = defaultDrainTimeout
	}
	h := &handler{studio: studio, opts: opts}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(withLogging)
	r.Use(withMetrics)
	r.Use(withCORS(opts.CORSOrigins))
	r.Use(withOriginVerify(opts.OriginVerifySecret))

	r.Get("/api/health", h.health)
	if opts.ServeMetrics {
		r.Method(http.MethodGet, "/metrics", metrics.Handler())
	}

	r.Route("/api/sessions", func(r chi.Router) {
		r.Post("/", h.createSession)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.getSession)
			r.Post("/reset", h.resetSession)
			r.Post("/analyze", h.analyze)
			r.Post("/recommendations", h.recommend)
			r.Post("/collage", h.collage)
			r.Post("/reels", h.startReel)
			r.Get("/reels/{jobId}", h.pollReel)
			r.Post("/narration", h.narrate)

			r.Route("/voice", func(r chi.Router) {
				r.Post("/start", h.voiceStart)
				r.Post("/text", h.voiceText)
				r.Get("/drain", h.voiceDrain)
				r.Post("/end", h.voiceEnd)
				r.Get("/export", h.voiceExport)
			})
		})
	})
	return r
}
