package notify

import (
	"context" // Handler context
	"sync"    // Subscriber list and shutdown
	"time"    // Event timestamps and handler timeout

	"github.com/sirupsen/logrus" // Logrus for structured logging
)

// OrderPaid is published once a settlement has committed
type OrderPaid struct {
	OrderID string    `json:"order_id"` // Settled order
	PaidAt  time.Time `json:"paid_at"`  // Commit time
}

// Handler consumes order paid events. Errors are logged, never retried here.
type Handler func(ctx context.Context, evt OrderPaid) error

// Bus is an in-process queue between settlement and fulfillment handlers.
// Publish never blocks: when the buffer is full the event is dropped and logged.
type Bus struct {
	mu       sync.RWMutex
	ch       chan OrderPaid
	handlers []Handler
	closed   bool
	timeout  time.Duration
	wg       sync.WaitGroup
}

// NewBus creates a bus with the given buffer size
func NewBus(buffer int) *Bus {
	if buffer <= 0 {
		buffer = 1
	}
	return &Bus{ch: make(chan OrderPaid, buffer), timeout: 10 * time.Second}
}

// Subscribe registers a handler. Call before Start.
func (b *Bus) Subscribe(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

// Start launches the dispatch goroutine
func (b *Bus) Start() {
	b.wg.Add(1)
	go b.loop()
}

// Publish enqueues evt and reports whether it was accepted
func (b *Bus) Publish(evt OrderPaid) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return false
	}
	select {
	case b.ch <- evt:
		return true
	default:
		logrus.WithField("order_id", evt.OrderID).Warn("Order paid queue full, event dropped")
		return false
	}
}

// Close stops accepting events and waits for queued ones to be handled
func (b *Bus) Close() {
	b.mu.Lock()
	if !b.closed {
		b.closed = true
		close(b.ch)
	}
	b.mu.Unlock()
	b.wg.Wait()
}

func (b *Bus) loop() {
	defer b.wg.Done()
	for evt := range b.ch {
		b.dispatch(evt)
	}
}

func (b *Bus) dispatch(evt OrderPaid) {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.handlers...)
	b.mu.RUnlock()

	for _, h := range handlers {
		ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
		if err := h(ctx, evt); err != nil {
			logrus.WithFields(logrus.Fields{
				"order_id": evt.OrderID,
				"error":    err.Error(),
			}).Error("Order paid handler failed")
		}
		cancel()
	}
}
