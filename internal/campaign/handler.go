package campaign

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/dpdjournals/marketing-service/internal/common"
)

var (
	scheduleCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campaign_schedule_requests_total",
		Help: "Scheduling API requests by kind and status",
	}, []string{"kind", "status"})
)

// AdminStore is the handler-side persistence surface; the dashboard only
// ever reads status, never writes it.
type AdminStore interface {
	CreateItem(ctx context.Context, item Item) error
	ListRecent(ctx context.Context, limit int) ([]Item, error)
}

// Trigger runs one cycle on demand, subject to the driver's overlap guard.
type Trigger interface {
	RunOnce(ctx context.Context) error
}

type Handler struct {
	store   AdminStore
	trigger Trigger
	tracer  trace.Tracer
	logger  zerolog.Logger
}

func NewHandler(store AdminStore, trigger Trigger, logger zerolog.Logger) *Handler {
	return &Handler{
		store:   store,
		trigger: trigger,
		tracer:  otel.Tracer("campaign-admin"),
		logger:  logger,
	}
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	h.Routes(r)
	return r
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/api/schedule/social", h.scheduleSocial)
	r.Post("/api/schedule/email", h.scheduleEmail)
	r.Get("/api/campaigns", h.list)
	r.Post("/api/campaigns/run", h.runNow)
}

type SocialScheduleRequest struct {
	Channel     Channel   `json:"channel"`
	Content     string    `json:"content"`
	ScheduledAt time.Time `json:"scheduled_at"`
}

type EmailScheduleRequest struct {
	Subject     string    `json:"subject"`
	Body        string    `json:"body"`
	ToList      string    `json:"to_list"`
	ScheduledAt time.Time `json:"scheduled_at"`
}

func (h *Handler) scheduleSocial(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "schedule-social")
	defer span.End()

	var req SocialScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondErr(ctx, w, http.StatusBadRequest, "social", err)
		return
	}
	if err := validateSocialRequest(req); err != nil {
		h.respondErr(ctx, w, http.StatusBadRequest, "social", err)
		return
	}

	item := Item{
		ID:          uuid.NewString(),
		Channel:     req.Channel,
		Payload:     req.Content,
		ScheduledAt: req.ScheduledAt.UTC(),
		Status:      StatusPending,
		CreatedAt:   time.Now().UTC(),
	}
	if err := h.store.CreateItem(ctx, item); err != nil {
		h.respondErr(ctx, w, http.StatusInternalServerError, "social", err)
		return
	}

	scheduleCounter.WithLabelValues("social", "created").Inc()
	h.respondJSON(w, http.StatusCreated, map[string]any{
		"ok":      true,
		"id":      item.ID,
		"message": fmt.Sprintf("Scheduled %s post for %s", req.Channel, req.ScheduledAt.Format(time.RFC3339)),
	})
}

func (h *Handler) scheduleEmail(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "schedule-email")
	defer span.End()

	var req EmailScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondErr(ctx, w, http.StatusBadRequest, "email", err)
		return
	}
	if err := validateEmailRequest(req); err != nil {
		h.respondErr(ctx, w, http.StatusBadRequest, "email", err)
		return
	}

	payload, err := json.Marshal(EmailPayload{Subject: req.Subject, Body: req.Body, ToList: req.ToList})
	if err != nil {
		h.respondErr(ctx, w, http.StatusInternalServerError, "email", err)
		return
	}

	item := Item{
		ID:          uuid.NewString(),
		Channel:     ChannelEmail,
		Payload:     string(payload),
		ScheduledAt: req.ScheduledAt.UTC(),
		Status:      StatusPending,
		CreatedAt:   time.Now().UTC(),
	}
	if err := h.store.CreateItem(ctx, item); err != nil {
		h.respondErr(ctx, w, http.StatusInternalServerError, "email", err)
		return
	}

	scheduleCounter.WithLabelValues("email", "created").Inc()
	h.respondJSON(w, http.StatusCreated, map[string]any{
		"ok":      true,
		"id":      item.ID,
		"message": fmt.Sprintf("Scheduled email for %s", req.ScheduledAt.Format(time.RFC3339)),
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "list-campaigns")
	defer span.End()

	items, err := h.store.ListRecent(ctx, 50)
	if err != nil {
		h.respondErr(ctx, w, http.StatusInternalServerError, "list", err)
		return
	}
	if items == nil {
		items = []Item{}
	}
	h.respondJSON(w, http.StatusOK, items)
}

func (h *Handler) runNow(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "run-cycle")
	defer span.End()

	switch err := h.trigger.RunOnce(ctx); {
	case err == nil:
		h.respondJSON(w, http.StatusOK, map[string]any{"ok": true, "message": "cycle completed"})
	case errors.Is(err, ErrCycleRunning):
		h.respondJSON(w, http.StatusConflict, map[string]any{"ok": false, "message": "a cycle is already running"})
	default:
		h.respondErr(ctx, w, http.StatusInternalServerError, "run", err)
	}
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (h *Handler) respondErr(ctx context.Context, w http.ResponseWriter, status int, kind string, err error) {
	logger := common.WithContext(ctx, h.logger)
	logger.Error().Err(err).Int("status", status).Str("kind", kind).Msg("campaign handler failed")
	scheduleCounter.WithLabelValues(kind, "error").Inc()
	h.respondJSON(w, status, map[string]any{"ok": false, "message": err.Error()})
}

func validateSocialRequest(req SocialScheduleRequest) error {
	if req.Channel == "" {
		return errors.New("channel is required")
	}
	if !ValidChannel(req.Channel) || req.Channel == ChannelEmail {
		return fmt.Errorf("unsupported social channel %q", req.Channel)
	}
	if req.Content == "" {
		return errors.New("content is required")
	}
	if req.ScheduledAt.IsZero() {
		return errors.New("scheduled_at is required")
	}
	return nil
}

func validateEmailRequest(req EmailScheduleRequest) error {
	if req.Subject == "" {
		return errors.New("subject is required")
	}
	if req.Body == "" {
		return errors.New("body is required")
	}
	if req.ToList == "" {
		return errors.New("to_list is required")
	}
	if req.ScheduledAt.IsZero() {
		return errors.New("scheduled_at is required")
	}
	return nil
}
