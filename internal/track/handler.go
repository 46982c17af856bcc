package track

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/dpdjournals/marketing-service/internal/common"
)

// pixelGIF is a 1x1 transparent GIF.
var pixelGIF = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00, 0x80, 0x00,
	0x00, 0x00, 0x00, 0x00, 0xff, 0xff, 0xff, 0x21, 0xf9, 0x04, 0x01, 0x00,
	0x00, 0x00, 0x00, 0x2c, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x01, 0x00,
	0x00, 0x02, 0x02, 0x44, 0x01, 0x00, 0x3b,
}

var (
	pixelCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "track_pixel_hits_total",
		Help: "Tracking pixel hits by medium",
	}, []string{"medium"})
)

type Handler struct {
	store  *Store
	tracer trace.Tracer
	logger zerolog.Logger
}

func NewHandler(store *Store, logger zerolog.Logger) *Handler {
	return &Handler{
		store:  store,
		tracer: otel.Tracer("track"),
		logger: logger,
	}
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	h.Routes(r)
	return r
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/track", h.pixel)
	r.Get("/api/metrics/summary", h.summary)
}

func (h *Handler) pixel(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "track-pixel")
	defer span.End()

	q := r.URL.Query()
	visit := Visit{
		Source:    q.Get("utm_source"),
		Medium:    q.Get("utm_medium"),
		Campaign:  q.Get("utm_campaign"),
		Content:   q.Get("utm_content"),
		Term:      q.Get("utm_term"),
		IP:        clientIP(r),
		UserAgent: r.UserAgent(),
		Referrer:  r.Referer(),
	}

	if err := h.store.Record(ctx, visit); err != nil {
		// The pixel must render even when the write fails.
		span.RecordError(err)
		logger := common.WithContext(ctx, h.logger)
		logger.Error().Err(err).Msg("record visit failed")
	}

	pixelCounter.WithLabelValues(mediumLabel(visit.Medium)).Inc()

	w.Header().Set("Content-Type", "image/gif")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(pixelGIF)
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "metrics-summary")
	defer span.End()

	days := 14
	if v := r.URL.Query().Get("days"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 || parsed > 365 {
			h.respondErr(ctx, w, http.StatusBadRequest, "invalid days parameter")
			return
		}
		days = parsed
	}

	summary, err := h.store.Summary(ctx, days)
	if err != nil {
		span.RecordError(err)
		h.respondErr(ctx, w, http.StatusInternalServerError, "summary unavailable")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(summary)
}

func (h *Handler) respondErr(ctx context.Context, w http.ResponseWriter, status int, msg string) {
	logger := common.WithContext(ctx, h.logger)
	logger.Error().Int("status", status).Msg("track handler: " + msg)
	http.Error(w, msg, status)
}

func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func mediumLabel(medium string) string {
	switch medium {
	case "social", "email", "cpc", "organic":
		return medium
	case "":
		return "none"
	default:
		return "other"
	}
}
