package campaign

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var (
	// ErrAlreadyStarted is returned by Start when a driver instance is
	// already running; callers log and ignore it.
	ErrAlreadyStarted = errors.New("scheduler driver already started")
	// ErrCycleRunning is returned when a tick or manual trigger arrives
	// while a cycle is still in progress.
	ErrCycleRunning = errors.New("cycle already in progress")
)

var (
	tickCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campaign_scheduler_ticks_total",
		Help: "Scheduler ticks by result",
	}, []string{"result"})
)

// Driver runs the scan+send cycle on a fixed interval. It is IDLE between
// ticks and RUNNING while a cycle executes; a tick that lands during
// RUNNING is skipped rather than overlapped. The manual admin trigger goes
// through the same guard.
type Driver struct {
	Interval time.Duration
	Cycle    func(ctx context.Context) error
	Logger   zerolog.Logger

	started atomic.Bool
	running atomic.Bool
	cancel  context.CancelFunc
	done    chan struct{}
	stop    sync.Once
}

// Start launches the ticker goroutine. A second call on the same instance
// (the hot-reload double-start case) returns ErrAlreadyStarted and leaves
// the existing goroutine alone.
func (d *Driver) Start(ctx context.Context) error {
	if !d.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	ctx, d.cancel = context.WithCancel(ctx)
	d.done = make(chan struct{})

	go d.loop(ctx)
	d.Logger.Info().Dur("interval", d.Interval).Msg("scheduler started")
	return nil
}

// Stop halts the ticker and waits for an in-flight cycle to finish.
// Safe to call more than once; a no-op when Start never ran.
func (d *Driver) Stop() {
	if !d.started.Load() {
		return
	}
	d.stop.Do(func() {
		d.cancel()
		<-d.done
		d.Logger.Info().Msg("scheduler stopped")
	})
}

func (d *Driver) loop(ctx context.Context) {
	defer close(d.done)

	ticker := time.NewTicker(d.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			switch err := d.RunOnce(ctx); {
			case err == nil:
				tickCounter.WithLabelValues("ok").Inc()
			case errors.Is(err, ErrCycleRunning):
				tickCounter.WithLabelValues("skipped").Inc()
				d.Logger.Debug().Msg("tick skipped, cycle still running")
			case errors.Is(err, context.Canceled):
				return
			default:
				// Transient store failure or similar; retry next tick.
				tickCounter.WithLabelValues("error").Inc()
				d.Logger.Error().Err(err).Msg("cycle failed")
			}
		}
	}
}

// RunOnce executes a single cycle, guaranteeing at most one RUNNING cycle
// at a time across the ticker and the manual trigger.
func (d *Driver) RunOnce(ctx context.Context) error {
	if !d.running.CompareAndSwap(false, true) {
		return ErrCycleRunning
	}
	defer d.running.Store(false)
	return d.Cycle(ctx)
}
