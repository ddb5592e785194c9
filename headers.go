package rxkafka

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Reserved header names. The "x-" namespace carries record metadata between
// the message converter and the templates; reserved names are consumed as
// routing hints on the way out and populated with record coordinates on the
// way in, and are never written to the wire by the mapper itself.
const (
	// HeaderPartition requests an explicit target partition for an outgoing
	// message. The value may be any integer type or a decimal string.
	HeaderPartition = "x-partition-id"

	// HeaderKey sets the record key for an outgoing message.
	HeaderKey = "x-message-key"

	// HeaderTimestamp sets the record timestamp for an outgoing message,
	// expressed as epoch milliseconds.
	HeaderTimestamp = "x-timestamp"

	// HeaderCorrelationID attaches a correlation token to an outgoing
	// message. The token is echoed on the corresponding SendResult.
	HeaderCorrelationID = "x-correlation-id"

	// HeaderReceivedTopic names the topic a consumed record originated from.
	HeaderReceivedTopic = "x-received-topic"

	// HeaderReceivedPartition names the partition a consumed record
	// originated from.
	HeaderReceivedPartition = "x-received-partition"

	// HeaderReceivedOffset carries the offset of a consumed record.
	HeaderReceivedOffset = "x-received-offset"

	// HeaderReceivedTimestamp carries the broker timestamp of a consumed
	// record as epoch milliseconds.
	HeaderReceivedTimestamp = "x-received-timestamp"
)

// reservedHeaderPrefix is the namespace claimed by the constants above.
const reservedHeaderPrefix = "x-"

// IsReservedHeader reports whether the header name belongs to the reserved
// metadata namespace and is therefore never mapped onto the wire.
func IsReservedHeader(key string) bool {
	return strings.HasPrefix(key, reservedHeaderPrefix)
}

// HeaderMapper translates between the string-keyed header maps used by
// Message and the ordered wire-level header list attached to records.
//
// The mapping is deterministic: map keys are emitted in sorted order, so two
// conversions of the same map always yield identical header lists. Reserved
// x-* names are excluded outbound (they are metadata for the record
// converter, not payload).
type HeaderMapper struct{}

// NewHeaderMapper creates a header mapper.
func NewHeaderMapper() *HeaderMapper {
	return &HeaderMapper{}
}

// ToWire converts a header map into wire headers.
//
// Values are encoded by type: strings as their raw bytes, []byte verbatim,
// and everything else as its JSON encoding. An encoding failure aborts the
// whole conversion with ErrSerialization.
func (m *HeaderMapper) ToWire(headers map[string]interface{}) (Headers, error) {
	if len(headers) == 0 {
		return nil, nil
	}

	keys := make([]string, 0, len(headers))
	for key := range headers {
		if IsReservedHeader(key) {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	wire := make(Headers, 0, len(keys))
	for _, key := range keys {
		value, err := encodeHeaderValue(headers[key])
		if err != nil {
			return nil, fmt.Errorf("%w: header %q: %v", ErrSerialization, key, err)
		}
		wire = append(wire, Header{Key: key, Value: value})
	}
	return wire, nil
}

// FromWire converts wire headers into a header map. Values are exposed as
// strings, which covers the overwhelmingly common case of textual headers;
// callers needing raw bytes can read Incoming.Headers directly.
//
// Duplicate keys keep the first occurrence, matching header lookup order.
func (m *HeaderMapper) FromWire(headers Headers) map[string]interface{} {
	mapped := make(map[string]interface{}, len(headers))
	for _, header := range headers {
		if _, exists := mapped[header.Key]; exists {
			continue
		}
		mapped[header.Key] = string(header.Value)
	}
	return mapped
}

// encodeHeaderValue renders a single header value as bytes.
func encodeHeaderValue(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return json.Marshal(v)
	}
}
