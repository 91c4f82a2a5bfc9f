// Package notify delivers notifications off the request path.
//
// Callers hand a notification to Enqueue after their state change has
// committed. Enqueue never blocks and never reports failure to the caller:
// a full queue drops the notification with a warning, and sink errors are
// logged and counted. The state change that produced the notification is
// never undone.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Shivanand-hulikatti/campus-events/internal/metrics"
	"github.com/Shivanand-hulikatti/campus-events/internal/model"
)

// Enqueuer accepts notifications for asynchronous delivery.
type Enqueuer interface {
	Enqueue(ctx context.Context, n model.Notification)
}

// Sink is one delivery target, e.g. the inbox table or a pub/sub channel.
type Sink interface {
	Deliver(ctx context.Context, n model.Notification) error
	Name() string
}

// Config tunes the dispatcher.
type Config struct {
	Workers    int
	QueueDepth int
	// DeliveryTimeout bounds each sink call.
	DeliveryTimeout time.Duration
}

// Dispatcher fans queued notifications out to its sinks.
type Dispatcher struct {
	pool    *workerPool[model.Notification]
	sinks   []Sink
	logger  zerolog.Logger
	timeout time.Duration
	now     func() time.Time
	cancel  context.CancelFunc
}

// NewDispatcher starts the worker goroutines. Workers run on their own
// context so that a finished request does not abort delivery.
func NewDispatcher(cfg Config, logger zerolog.Logger, sinks ...Sink) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueDepth <= 0 {
		cfg.QueueDepth = 1
	}
	if cfg.DeliveryTimeout <= 0 {
		cfg.DeliveryTimeout = 5 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		sinks:   sinks,
		logger:  logger,
		timeout: cfg.DeliveryTimeout,
		now:     time.Now,
		cancel:  cancel,
	}
	d.pool = newWorkerPool(ctx, cfg.Workers, cfg.QueueDepth, d.deliver)
	return d
}

// Enqueue stamps n with an id and creation time when missing and queues it.
func (d *Dispatcher) Enqueue(_ context.Context, n model.Notification) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = d.now().UTC()
	}
	if n.Type == "" {
		n.Type = model.NotifyInfo
	}

	if !d.pool.Submit(n) {
		metrics.Notifications.WithLabelValues("dropped").Inc()
		d.logger.Warn().
			Str("recipient_id", n.RecipientID).
			Str("event_id", n.EventID).
			Str("title", n.Title).
			Msg("notification queue full, dropping")
		return
	}
	metrics.Notifications.WithLabelValues("enqueued").Inc()
	metrics.NotificationQueueUtilization.Set(d.pool.Utilization())
}

func (d *Dispatcher) deliver(ctx context.Context, n model.Notification) {
	metrics.NotificationQueueUtilization.Set(d.pool.Utilization())
	failed := false
	for _, sink := range d.sinks {
		sinkCtx, cancel := context.WithTimeout(ctx, d.timeout)
		err := sink.Deliver(sinkCtx, n)
		cancel()
		if err != nil {
			failed = true
			metrics.Notifications.WithLabelValues("failed").Inc()
			d.logger.Error().Err(err).
				Str("sink", sink.Name()).
				Str("notification_id", n.ID).
				Str("recipient_id", n.RecipientID).
				Msg("notification delivery failed")
		}
	}
	if !failed {
		metrics.Notifications.WithLabelValues("delivered").Inc()
	}
}

// Close stops accepting notifications, delivers what is already queued and
// waits for the workers to exit.
func (d *Dispatcher) Close() {
	d.pool.Drain()
	d.cancel()
	metrics.NotificationQueueUtilization.Set(0)
}
