package notifications

// Notifier delivers a single event to one outbound channel
type Notifier interface {
	// Notify delivers the event. Implementations decide formatting and
	// transport; errors are the caller's to log, delivery is not retried.
	Notify(event Event) error
}

// Publisher is the side consumed by pipeline components
type Publisher interface {
	// Publish hands an event off for delivery without blocking the caller
	Publish(event Event)
}
