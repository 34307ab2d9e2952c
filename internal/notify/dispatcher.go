package notify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultQueueSize is how many alerts may wait behind the one in flight.
	DefaultQueueSize = 8
	// DefaultSendTimeout bounds one alert across all of its destinations.
	DefaultSendTimeout = 30 * time.Second
)

// Dispatcher hands alerts to a Notifier on its own goroutine so the poll loop
// never waits on Discord. One alert is in flight at a time; the rest queue in
// order. Nothing about the poll loop depends on when, or whether, a queued
// alert is delivered.
type Dispatcher struct {
	notifier     Notifier
	destinations []string
	sendTimeout  time.Duration
	logger       *zap.Logger

	mu     sync.Mutex
	closed bool
	jobs   chan string
	done   chan struct{}
}

// NewDispatcher starts the delivery goroutine. Call Close to stop it.
func NewDispatcher(notifier Notifier, destinations []string, queueSize int, logger *zap.Logger) *Dispatcher {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	d := &Dispatcher{
		notifier:     notifier,
		destinations: append([]string(nil), destinations...),
		sendTimeout:  DefaultSendTimeout,
		logger:       logger.Named("dispatcher"),
		jobs:         make(chan string, queueSize),
		done:         make(chan struct{}),
	}
	go d.run()
	return d
}

// Dispatch queues message and returns at once. It reports false when the
// queue is full or the dispatcher is closed; the message is then dropped.
func (d *Dispatcher) Dispatch(message string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		d.logger.Warn("dispatcher closed, dropping message", zap.String("message", message))
		return false
	}
	select {
	case d.jobs <- message:
		return true
	default:
		d.logger.Warn("notification queue full, dropping message",
			zap.String("message", message),
			zap.Int("queued", len(d.jobs)),
		)
		return false
	}
}

// Close stops accepting alerts and waits for queued ones until ctx is done.
// Alerts still pending at that point are logged as abandoned.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.jobs)
	}
	d.mu.Unlock()

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		d.logger.Warn("shutting down with notifications still pending",
			zap.Int("queued", len(d.jobs)),
		)
		return ctx.Err()
	}
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for message := range d.jobs {
		d.send(message)
	}
}

func (d *Dispatcher) send(message string) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("notification job panicked", zap.Any("panic", r))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), d.sendTimeout)
	defer cancel()

	deliveries := d.notifier.Notify(ctx, message, d.destinations)
	failed := 0
	for _, delivery := range deliveries {
		if !delivery.OK() {
			failed++
		}
	}
	d.logger.Debug("notification job finished",
		zap.Int("destinations", len(deliveries)),
		zap.Int("failed", failed),
	)
}
