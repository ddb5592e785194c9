package rxkafka

import "time"

// Observer is a unified interface for observability across the producer and
// consumer templates. It allows external code to observe operations without
// coupling the templates to specific observability implementations
// (metrics, tracing, logging).
//
// This interface is optional - templates work perfectly fine without an observer.
type Observer interface {
	// ObserveOperation is called when a template operation completes.
	// It provides all context about the operation in a structured format.
	ObserveOperation(ctx OperationContext)
}

// OperationContext contains all information about a template operation.
type OperationContext struct {
	// Component identifies which template performed the operation.
	// Examples: "producer", "consumer"
	Component string

	// Operation describes what operation was performed.
	// Examples:
	//   Producer: "send", "flush", "partitions_for"
	//   Consumer: "receive", "commit"
	Operation string

	// Resource identifies the topic being operated on.
	Resource string

	// SubResource provides additional resource context (optional).
	// Examples: partition number ("3")
	SubResource string

	// Duration is how long the operation took from start to completion.
	Duration time.Duration

	// Error is the error returned by the operation, if any.
	// nil indicates successful operation.
	Error error

	// Size represents the size of data involved in the operation (optional).
	// Examples: record value size in bytes
	Size int64

	// Metadata provides additional operation-specific information (optional).
	// This map can contain any extra context that doesn't fit in the standard fields.
	// Examples: {"offset": "12345", "group": "billing"}
	Metadata map[string]interface{}
}

// observeOperation safely calls the observer if it's not nil.
// This helper reduces boilerplate in operation methods.
func (p *ProducerTemplate) observeOperation(operation, resource, subResource string, duration time.Duration, err error, size int64) {
	if p.observer != nil {
		p.observer.ObserveOperation(OperationContext{
			Component:   "producer",
			Operation:   operation,
			Resource:    resource,
			SubResource: subResource,
			Duration:    duration,
			Error:       err,
			Size:        size,
		})
	}
}

// observeOperation safely calls the observer if it's not nil.
func (c *ConsumerTemplate) observeOperation(operation, resource, subResource string, duration time.Duration, err error, size int64) {
	if c.observer != nil {
		c.observer.ObserveOperation(OperationContext{
			Component:   "consumer",
			Operation:   operation,
			Resource:    resource,
			SubResource: subResource,
			Duration:    duration,
			Error:       err,
			Size:        size,
		})
	}
}

// NoOpObserver is a no-op implementation of Observer.
// It does nothing when ObserveOperation is called.
// This can be useful for testing or as a default value.
type NoOpObserver struct{}

// ObserveOperation does nothing (no-op).
func (n *NoOpObserver) ObserveOperation(ctx OperationContext) {
	// No-op
}

// NewNoOpObserver creates a new NoOpObserver.
func NewNoOpObserver() Observer {
	return &NoOpObserver{}
}
