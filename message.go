package rxkafka

import (
	"fmt"
	"strconv"
	"time"
)

// Message is a transport-neutral envelope pairing a payload with a
// string-keyed header map. It exists for callers that think in terms of
// messages rather than records: routing decisions ride along as reserved
// headers instead of dedicated fields, and the RecordConverter translates
// between the two worlds.
type Message struct {
	// Payload is the message body, serialized by the value serializer.
	Payload interface{}

	// Headers holds application headers plus optional reserved x-* routing
	// hints (see HeaderPartition, HeaderKey, HeaderTimestamp,
	// HeaderCorrelationID).
	Headers map[string]interface{}
}

// NewMessage creates a message with the given payload and an empty header map.
func NewMessage(payload interface{}) *Message {
	return &Message{
		Payload: payload,
		Headers: make(map[string]interface{}),
	}
}

// WithHeader sets a header and returns the message for chaining.
//
// Example:
//
//	msg := rxkafka.NewMessage(order).
//	    WithHeader(rxkafka.HeaderPartition, 1).
//	    WithHeader("content-type", "application/json")
func (m *Message) WithHeader(key string, value interface{}) *Message {
	if m.Headers == nil {
		m.Headers = make(map[string]interface{})
	}
	m.Headers[key] = value
	return m
}

// RecordConverter translates between Message envelopes and the record types
// used by the templates.
type RecordConverter struct {
	mapper *HeaderMapper
}

// NewRecordConverter creates a converter backed by a fresh HeaderMapper.
func NewRecordConverter() *RecordConverter {
	return &RecordConverter{mapper: NewHeaderMapper()}
}

// ToOutgoing builds a producer record from a message envelope.
//
// Reserved headers are interpreted as routing hints rather than payload:
//   - HeaderPartition: target partition (integer types or decimal string)
//   - HeaderKey: record key
//   - HeaderTimestamp: record timestamp, epoch milliseconds
//   - HeaderCorrelationID: correlation token echoed on the send result
//
// All remaining headers are mapped onto the wire deterministically via the
// HeaderMapper. A malformed hint fails the conversion.
func (c *RecordConverter) ToOutgoing(topic string, msg *Message) (*Outgoing, error) {
	if msg == nil {
		return nil, ErrRecordRequired
	}

	rec := NewOutgoing(topic, msg.Payload)

	if raw, ok := msg.Headers[HeaderPartition]; ok {
		partition, err := headerInt64(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidPartition, HeaderPartition, err)
		}
		rec.Partition = int32(partition)
	}

	if raw, ok := msg.Headers[HeaderKey]; ok {
		rec.Key = raw
	}

	if raw, ok := msg.Headers[HeaderTimestamp]; ok {
		millis, err := headerInt64(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, HeaderTimestamp, err)
		}
		rec.Timestamp = time.UnixMilli(millis)
	}

	if raw, ok := msg.Headers[HeaderCorrelationID]; ok {
		rec.Token = raw
	}

	wire, err := c.mapper.ToWire(msg.Headers)
	if err != nil {
		return nil, err
	}
	rec.Headers = wire

	return rec, nil
}

// ToMessage converts a consumed record into a message envelope. Wire headers
// become map entries, and the record coordinates are exposed under the
// reserved received-* names so handlers can reply or audit without holding
// the Incoming itself.
func (c *RecordConverter) ToMessage(in *Incoming) *Message {
	if in == nil {
		return nil
	}

	headers := c.mapper.FromWire(in.Headers)
	headers[HeaderReceivedTopic] = in.Topic
	headers[HeaderReceivedPartition] = in.Partition
	headers[HeaderReceivedOffset] = in.Offset
	headers[HeaderReceivedTimestamp] = in.Timestamp.UnixMilli()

	return &Message{
		Payload: in.Value,
		Headers: headers,
	}
}

// headerInt64 coerces the integer-ish representations accepted in header
// hints into an int64.
func headerInt64(value interface{}) (int64, error) {
	switch v := value.(type) {
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case float64:
		return int64(v), nil
	case string:
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("not a decimal integer: %q", v)
		}
		return parsed, nil
	default:
		return 0, fmt.Errorf("unsupported type %T", value)
	}
}
