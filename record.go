package rxkafka

import (
	"context"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

// PartitionAny indicates that no explicit partition was chosen for an outgoing
// record. Records carrying PartitionAny are routed by the configured
// partitioner (key hash when a key is present, sticky otherwise).
const PartitionAny int32 = -1

// Header is a single named byte-array metadata entry attached to a record,
// independent of the record's key and value.
type Header struct {
	// Key is the header name. Names are not required to be unique.
	Key string

	// Value is the raw header payload.
	Value []byte
}

// Headers is an ordered multimap of record headers. Order and duplicates are
// preserved exactly as supplied, both on the wire and on consumed records.
type Headers []Header

// Get returns the value of the first header with the given key.
// The second return value reports whether such a header exists.
func (h Headers) Get(key string) ([]byte, bool) {
	for _, header := range h {
		if header.Key == key {
			return header.Value, true
		}
	}
	return nil, false
}

// GetAll returns the values of every header with the given key, in order.
// It returns nil when no header matches.
func (h Headers) GetAll(key string) [][]byte {
	var values [][]byte
	for _, header := range h {
		if header.Key == key {
			values = append(values, header.Value)
		}
	}
	return values
}

// Add appends a header, keeping any existing headers with the same key.
func (h *Headers) Add(key string, value []byte) {
	*h = append(*h, Header{Key: key, Value: value})
}

// Set replaces every header with the given key by a single entry carrying the
// new value. When no header matches, the entry is appended.
func (h *Headers) Set(key string, value []byte) {
	kept := (*h)[:0]
	for _, header := range *h {
		if header.Key != key {
			kept = append(kept, header)
		}
	}
	kept = append(kept, Header{Key: key, Value: value})
	*h = kept
}

// Clone returns a copy of the headers whose backing array is independent of
// the receiver. Header values are shared, not copied.
func (h Headers) Clone() Headers {
	if h == nil {
		return nil
	}
	cloned := make(Headers, len(h))
	copy(cloned, h)
	return cloned
}

// Outgoing describes a record to be published. It is constructed by the
// caller (typically via NewOutgoing) and treated as immutable once handed to
// a send operation.
type Outgoing struct {
	// Topic is the topic the record is published to. Required.
	Topic string

	// Partition is the explicit target partition, or PartitionAny to let the
	// partitioner choose one (key hash when Key is set). The zero value
	// targets partition 0; construct records with NewOutgoing, or set
	// PartitionAny explicitly, when the partitioner should choose.
	Partition int32

	// Timestamp is the record's creation timestamp. When zero, the client
	// stamps the record at append time. Explicit timestamps are preserved by
	// the broker at millisecond precision.
	Timestamp time.Time

	// Key is the record key, encoded by the template's key serializer.
	// []byte values pass through unmodified. A nil key produces a keyless
	// record.
	Key interface{}

	// Value is the record payload, encoded by the template's value serializer.
	// []byte values pass through unmodified.
	Value interface{}

	// Headers are attached to the record byte-for-byte, preserving order and
	// duplicates.
	Headers Headers

	// Token is an opaque caller-supplied correlation token. It is echoed
	// unchanged on the SendResult for this record so batch results can be
	// matched back to their requests.
	Token interface{}
}

// NewOutgoing creates an outgoing record for the given topic and value with
// no explicit partition, timestamp, key, or headers.
//
// Example:
//
//	rec := rxkafka.NewOutgoing("user-events", event)
//	rec.Key = userID
//	rec.Token = requestID
//	result := <-producer.Send(ctx, rec)
func NewOutgoing(topic string, value interface{}) *Outgoing {
	return &Outgoing{
		Topic:     topic,
		Partition: PartitionAny,
		Value:     value,
	}
}

// RecordMetadata carries the broker-assigned coordinates of a successfully
// published record.
type RecordMetadata struct {
	// Topic the record was appended to.
	Topic string

	// Partition the record was appended to.
	Partition int32

	// Offset assigned to the record within its partition.
	Offset int64

	// Timestamp of the record as stored by the broker. For explicit
	// client-supplied timestamps this equals the supplied value at
	// millisecond precision.
	Timestamp time.Time
}

// SendResult is the single-shot outcome of one send operation. Exactly one
// SendResult is produced per submitted record: either Metadata is set and Err
// is nil, or Err reports why the record was not published.
type SendResult struct {
	// Metadata holds the broker-assigned topic/partition/offset/timestamp.
	// nil when Err is non-nil.
	Metadata *RecordMetadata

	// Token is the correlation token from the originating Outgoing record,
	// echoed unchanged.
	Token interface{}

	// Err reports an asynchronous send failure. Failures are never silently
	// dropped; validation errors resolve the result immediately.
	Err error
}

// PartitionInfo describes one partition of a topic as reported by the broker.
type PartitionInfo struct {
	// Topic the partition belongs to.
	Topic string

	// Partition number within the topic.
	Partition int32

	// Leader is the node ID of the partition leader.
	Leader int32

	// Replicas are the node IDs hosting replicas of the partition.
	Replicas []int32

	// ISR are the node IDs of the in-sync replicas.
	ISR []int32
}

// Incoming is a consumed record. It is read-only; records are delivered in
// offset order per partition.
type Incoming struct {
	// Topic the record was consumed from.
	Topic string

	// Partition the record was consumed from.
	Partition int32

	// Offset of the record within its partition.
	Offset int64

	// Timestamp of the record as stored by the broker.
	Timestamp time.Time

	// Key is the raw record key, nil for keyless records.
	Key []byte

	// Value is the raw record payload.
	Value []byte

	// Headers attached to the record, order and duplicates preserved.
	Headers Headers

	template *ConsumerTemplate
	raw      *kgo.Record
}

// Ack commits the record's offset, informing the broker that the record has
// been successfully processed. Ack is only meaningful when the consumer was
// configured with a group and auto-commit disabled (the default).
//
// Returns an error if the commit fails.
func (in *Incoming) Ack(ctx context.Context) error {
	return in.template.commit(ctx, in)
}

// ValueAs deserializes the record value into the target structure using the
// template's value deserializer.
//
// Example:
//
//	var event UserEvent
//	if err := in.ValueAs(&event); err != nil {
//	    log.Printf("failed to deserialize: %v", err)
//	}
func (in *Incoming) ValueAs(target interface{}) error {
	return in.template.deserializeValue(in.Value, target)
}

// KeyAs deserializes the record key into the target structure using the
// template's key deserializer.
func (in *Incoming) KeyAs(target interface{}) error {
	return in.template.deserializeKey(in.Key, target)
}

// TraceContext returns a context carrying any trace information propagated
// through the record's headers, suitable for continuing a distributed trace
// on the consumer side.
func (in *Incoming) TraceContext(ctx context.Context) context.Context {
	return ExtractTraceContext(ctx, in.Headers)
}
