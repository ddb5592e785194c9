package rxkafka

import (
	"context"
	"time"
)

// Producer is the high-level publishing interface for Kafka. Every send
// variant returns immediately with a single-result channel that resolves
// when the broker acknowledges the record or delivery fails for good.
//
// This interface is implemented by the concrete *ProducerTemplate type.
type Producer interface {
	// Send operations

	// SendValue sends a record carrying only a value. The partition is
	// chosen by the configured partitioner.
	SendValue(ctx context.Context, topic string, value interface{}) <-chan SendResult

	// SendKeyValue sends a keyed record. Records sharing a key land on the
	// same partition.
	SendKeyValue(ctx context.Context, topic string, key, value interface{}) <-chan SendResult

	// SendToPartition sends a keyed record to an explicit partition,
	// bypassing the partitioner.
	SendToPartition(ctx context.Context, topic string, partition int32, key, value interface{}) <-chan SendResult

	// SendToPartitionAt sends a keyed record to an explicit partition with
	// an explicit timestamp (millisecond precision on the wire).
	SendToPartitionAt(ctx context.Context, topic string, partition int32, timestamp time.Time, key, value interface{}) <-chan SendResult

	// SendMessage converts a Message envelope to a record, mapping reserved
	// headers to record coordinates, and sends it.
	SendMessage(ctx context.Context, topic string, msg *Message) <-chan SendResult

	// Send sends a fully specified outgoing record. All other send variants
	// are conveniences over this method.
	Send(ctx context.Context, rec *Outgoing) <-chan SendResult

	// SendStream sends every record read from the input channel and emits
	// one result per record, in input order, on the returned channel.
	SendStream(ctx context.Context, records <-chan *Outgoing) <-chan SendResult

	// Introspection

	// Flush blocks until all buffered records have been delivered or the
	// context is canceled.
	Flush(ctx context.Context) error

	// PartitionsFor returns partition metadata for a topic, sorted by
	// partition number.
	PartitionsFor(ctx context.Context, topic string) ([]PartitionInfo, error)

	// Metrics returns a snapshot of the producer's instruments.
	Metrics() (map[string]float64, error)

	// Lifecycle

	// Close flushes buffered records and releases the client.
	Close(ctx context.Context) error
}

// Consumer is the high-level receiving interface for Kafka. A consumer
// exposes at most one live record stream at a time.
//
// This interface is implemented by the concrete *ConsumerTemplate type.
type Consumer interface {
	// Receive starts the receive stream and returns its channel. The
	// channel closes when ctx is canceled or the consumer is closed.
	Receive(ctx context.Context) (<-chan *Incoming, error)

	// Metrics returns a snapshot of the consumer's instruments.
	Metrics() (map[string]float64, error)

	// Close leaves the group (if any) and releases the client.
	Close(ctx context.Context) error
}

// Interface conformance checks.
var (
	_ Producer = (*ProducerTemplate)(nil)
	_ Consumer = (*ConsumerTemplate)(nil)
)
