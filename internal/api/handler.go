package api

import (
	"time"

	"github.com/SherClockHolmes/webpush-go"

	"armbian-monitor-backend/internal/ingest"
	"armbian-monitor-backend/internal/mw"
	"armbian-monitor-backend/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store          store.Store
	ingest         *ingest.Service
	auth           *mw.Auth
	webpush        *webpush.Options
	offlineTimeout time.Duration
	trustedHeaders []string

	// now supplies the single authoritative instant used per request when
	// deriving device status; replaced in tests.
	now func() time.Time
}

// Options bundles the handler dependencies.
type Options struct {
	Store          store.Store
	Ingest         *ingest.Service
	Auth           *mw.Auth
	Webpush        *webpush.Options
	OfflineTimeout time.Duration
	TrustedHeaders []string
	// Clock overrides the request-time source; nil means UTC wall clock.
	Clock func() time.Time
}

// NewHandler creates a new API handler.
func NewHandler(opts Options) *Handler {
	now := opts.Clock
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Handler{
		store:          opts.Store,
		ingest:         opts.Ingest,
		auth:           opts.Auth,
		webpush:        opts.Webpush,
		offlineTimeout: opts.OfflineTimeout,
		trustedHeaders: opts.TrustedHeaders,
		now:            now,
	}
}
