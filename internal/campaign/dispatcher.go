package campaign

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var (
	sendCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campaign_sends_total",
		Help: "Campaign send attempts by channel and outcome",
	}, []string{"channel", "outcome"})
	cycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "campaign_cycle_duration_seconds",
		Help:    "Duration of scan+send cycles",
		Buckets: prometheus.DefBuckets,
	})
)

// Store is the persistence surface the scheduler core needs. ListDue is a
// read-only snapshot; TransitionStatus is the only status mutation path.
type Store interface {
	ListDue(ctx context.Context, now time.Time) ([]Item, error)
	TransitionStatus(ctx context.Context, id string, from, to Status, sentAt time.Time, note string) (bool, error)
}

// Sender performs the delivery action for one channel.
type Sender interface {
	Name() string
	Send(ctx context.Context, item Item) error
}

// ActivityRecorder lets successful sends show up in the traffic metrics,
// the way manual pixel hits do.
type ActivityRecorder interface {
	RecordSend(ctx context.Context, source, medium, campaign, content string) error
}

// Dispatcher runs one scan+send cycle: every due pending item is delivered
// through its channel's Sender and transitioned to sent or failed exactly
// once. Losing the conditional update race means another invocation already
// owns the item, so the loser does nothing.
type Dispatcher struct {
	Store    Store
	Senders  map[Channel]Sender
	Emitter  Emitter
	Activity ActivityRecorder
	Logger   zerolog.Logger

	// RetryMaxElapsed bounds per-item delivery retries; zero means 5s.
	RetryMaxElapsed time.Duration

	tracer trace.Tracer
}

func NewDispatcher(store Store, senders map[Channel]Sender, emitter Emitter, activity ActivityRecorder, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		Store:    store,
		Senders:  senders,
		Emitter:  emitter,
		Activity: activity,
		Logger:   logger,
		tracer:   otel.Tracer("campaign-dispatcher"),
	}
}

// RunCycle processes all currently due items, earliest first. Item-level
// failures are recorded on the item and do not abort the cycle; only a
// store failure does.
func (d *Dispatcher) RunCycle(ctx context.Context) error {
	ctx, span := d.tracer.Start(ctx, "cycle")
	defer span.End()

	start := time.Now()
	defer func() { cycleDuration.Observe(time.Since(start).Seconds()) }()

	due, err := d.Store.ListDue(ctx, time.Now().UTC())
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("scan due items: %w", err)
	}
	span.SetAttributes(attribute.Int("cycle.due_items", len(due)))

	for _, item := range due {
		if err := d.Dispatch(ctx, item); err != nil {
			span.RecordError(err)
			return err
		}
	}
	return nil
}

// Dispatch delivers one item and applies its terminal status. The returned
// error is reserved for store failures; send failures become status=failed.
func (d *Dispatcher) Dispatch(ctx context.Context, item Item) error {
	ctx, span := d.tracer.Start(ctx, "dispatch")
	span.SetAttributes(attribute.String("item.id", item.ID), attribute.String("item.channel", string(item.Channel)))
	defer span.End()

	sender, ok := d.Senders[item.Channel]
	if !ok {
		return d.finish(ctx, item, StatusFailed, fmt.Sprintf("no sender for channel %q", item.Channel))
	}

	if err := d.deliver(ctx, sender, item); err != nil {
		span.RecordError(err)
		d.Logger.Warn().Err(err).Str("item_id", item.ID).Str("sender", sender.Name()).Msg("send failed")
		return d.finish(ctx, item, StatusFailed, err.Error())
	}
	return d.finish(ctx, item, StatusSent, "delivered via "+sender.Name())
}

func (d *Dispatcher) deliver(ctx context.Context, sender Sender, item Item) error {
	op := backoff.NewExponentialBackOff()
	op.MaxElapsedTime = d.RetryMaxElapsed
	if op.MaxElapsedTime == 0 {
		op.MaxElapsedTime = 5 * time.Second
	}
	return backoff.Retry(func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		return sender.Send(attemptCtx, item)
	}, backoff.WithContext(op, ctx))
}

func (d *Dispatcher) finish(ctx context.Context, item Item, status Status, note string) error {
	now := time.Now().UTC()
	won, err := d.Store.TransitionStatus(ctx, item.ID, StatusPending, status, now, note)
	if err != nil {
		return fmt.Errorf("transition item %s: %w", item.ID, err)
	}
	if !won {
		// A concurrent invocation already moved the item out of pending.
		d.Logger.Debug().Str("item_id", item.ID).Msg("item no longer pending, skipping")
		sendCounter.WithLabelValues(string(item.Channel), "skipped").Inc()
		return nil
	}

	sendCounter.WithLabelValues(string(item.Channel), string(status)).Inc()

	if status == StatusSent && d.Activity != nil {
		medium := "social"
		campaignTag := "scheduled_social"
		if item.Channel == ChannelEmail {
			medium = "email"
			campaignTag = "scheduled_email"
		}
		if err := d.Activity.RecordSend(ctx, string(item.Channel), medium, campaignTag, excerpt(item.Payload, 100)); err != nil {
			d.Logger.Error().Err(err).Str("item_id", item.ID).Msg("record send activity failed")
		}
	}

	if d.Emitter != nil {
		event := OutcomeEvent{
			ItemID:    item.ID,
			Channel:   item.Channel,
			Status:    status,
			Note:      note,
			EmittedAt: now,
		}
		if err := d.Emitter.Emit(ctx, event); err != nil {
			d.Logger.Error().Err(err).Str("item_id", item.ID).Msg("emit outcome event failed")
		}
	}
	return nil
}
