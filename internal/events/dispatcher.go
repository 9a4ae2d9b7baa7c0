package events

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/referer-classifier/internal/metrics"
)

// Outcome labels used for event metrics.
const (
	OutcomeDelivered = "delivered"
	OutcomeFailed    = "failed"
	OutcomeDropped   = "dropped"
)

// Config tunes the dispatcher.
type Config struct {
	Workers         int
	DeliveryTimeout time.Duration
}

// Dispatcher fans queued events out to a pool of workers that deliver them
// to a Sink.
type Dispatcher struct {
	queue   *Queue
	sink    Sink
	cfg     Config
	logger  *zap.Logger
	stopped chan struct{}
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(queue *Queue, sink Sink, cfg Config, logger *zap.Logger) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.DeliveryTimeout <= 0 {
		cfg.DeliveryTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		queue:   queue,
		sink:    sink,
		cfg:     cfg,
		logger:  logger,
		stopped: make(chan struct{}),
	}
}

// Emit queues an event without blocking. Events are dropped when the queue
// is full or closed.
func (d *Dispatcher) Emit(event Event) {
	if err := d.queue.TryEnqueue(event); err != nil {
		metrics.ObserveEvent(OutcomeDropped)
		d.logger.Warn("Dropping classification event", zap.String("event_id", event.ID), zap.Error(err))
	}
}

// Run starts the workers and blocks until the context finishes and the
// workers have exited. Events still buffered at cancellation are drained
// once the queue is closed.
func (d *Dispatcher) Run(ctx context.Context) {
	defer close(d.stopped)
	var wg sync.WaitGroup
	for i := 0; i < d.cfg.Workers; i++ {
		wg.Add(1)
		go func(index int) {
			defer wg.Done()
			d.work(ctx, d.logger.With(zap.Int("worker", index)))
		}(i)
	}
	<-ctx.Done()
	d.queue.Close()
	wg.Wait()
}

// Done is closed after Run returns.
func (d *Dispatcher) Done() <-chan struct{} {
	return d.stopped
}

func (d *Dispatcher) work(ctx context.Context, logger *zap.Logger) {
	for {
		event, err := d.queue.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				d.drain(logger)
			}
			return
		}
		d.deliver(context.WithoutCancel(ctx), event, logger)
	}
}

// drain delivers whatever is still buffered after shutdown begins.
func (d *Dispatcher) drain(logger *zap.Logger) {
	for {
		event, err := d.queue.Dequeue(context.Background())
		if err != nil {
			return
		}
		d.deliver(context.Background(), event, logger)
	}
}

func (d *Dispatcher) deliver(parent context.Context, event Event, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(parent, d.cfg.DeliveryTimeout)
	defer cancel()
	if err := d.sink.Deliver(ctx, event); err != nil {
		metrics.ObserveEvent(OutcomeFailed)
		logger.Error("Event delivery failed", zap.String("event_id", event.ID), zap.Error(err))
		return
	}
	metrics.ObserveEvent(OutcomeDelivered)
}
