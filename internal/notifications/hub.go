package notifications

import (
	"sync"

	"go.uber.org/zap"
)

// Hub fans events out to registered notifiers from a dedicated delivery
// goroutine, so slow transports (Telegram) never stall order submission or
// risk checks. When the buffer is full the event is dropped and logged; the
// trading pipeline must not block on notification delivery.
type Hub struct {
	logger    *zap.Logger
	mu        sync.RWMutex
	notifiers []Notifier
	events    chan Event
	done      chan struct{}
	stopOnce  sync.Once
}

// NewHub creates a hub with a buffered delivery queue
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		logger: logger,
		events: make(chan Event, 64),
		done:   make(chan struct{}),
	}
}

// Register adds a notifier to the fan-out set
func (h *Hub) Register(n Notifier) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.notifiers = append(h.notifiers, n)
}

// Run delivers events until Stop is called. Call in its own goroutine.
func (h *Hub) Run() {
	for {
		select {
		case event := <-h.events:
			h.deliver(event)
		case <-h.done:
			// drain what is already queued
			for {
				select {
				case event := <-h.events:
					h.deliver(event)
				default:
					return
				}
			}
		}
	}
}

// Publish queues an event for delivery, dropping it if the queue is full
func (h *Hub) Publish(event Event) {
	select {
	case h.events <- event:
	default:
		h.logger.Warn("notification queue full, dropping event",
			zap.String("event", event.Name()),
			zap.String("summary", event.Summary()))
	}
}

// Stop ends delivery after draining queued events
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

func (h *Hub) deliver(event Event) {
	h.mu.RLock()
	notifiers := make([]Notifier, len(h.notifiers))
	copy(notifiers, h.notifiers)
	h.mu.RUnlock()

	for _, n := range notifiers {
		if err := n.Notify(event); err != nil {
			h.logger.Error("notification delivery failed",
				zap.String("event", event.Name()),
				zap.Error(err))
		}
	}
}
