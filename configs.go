package rxkafka

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// ProducerConfig defines the configuration structure for a producer template.
// It contains all the necessary settings for establishing connections and
// controlling publish behavior.
type ProducerConfig struct {
	// Brokers is a list of Kafka broker addresses
	Brokers []string

	// ClientID identifies this client to the brokers and labels the
	// template's metrics
	// Default: "rxkafka-producer"
	ClientID string

	// RequiredAcks determines how many replica acknowledgments to wait for
	// Options:
	//   RequireNone: Don't wait for acknowledgment (fire-and-forget, fastest but least safe)
	//   RequireOne: Wait for leader only (balance of speed and durability)
	//   RequireAll: Wait for all in-sync replicas (slowest but most durable)
	// Default: RequireAll
	RequiredAcks int

	// Compression specifies the compression algorithm for record batches
	// Options: "" (no compression), "gzip", "snappy", "lz4", "zstd"
	// Default: "" (no compression)
	Compression string

	// Linger is how long the client waits for more records before sending
	// a batch. Zero sends batches as soon as records are buffered.
	// Default: 0
	Linger time.Duration

	// MaxBufferedRecords is the maximum number of records buffered client-side
	// before sends block
	// Default: 10000
	MaxBufferedRecords int

	// DeliveryTimeout bounds how long a record may stay buffered and retried
	// before its send fails
	// Default: 30s
	DeliveryTimeout time.Duration

	// AllowAutoTopicCreation determines whether publishing may create
	// missing topics on brokers that allow it
	// Default: false
	AllowAutoTopicCreation bool

	// EnableTracePropagation injects the active trace context into the
	// headers of every published record
	// Default: false
	EnableTracePropagation bool

	// KeyFormat selects the default key serializer when none is provided
	// Options: "json" (default), "string", "bytes"
	KeyFormat string

	// ValueFormat selects the default value serializer when none is provided
	// Options: "json" (default), "string", "bytes"
	ValueFormat string

	// TLS contains TLS/SSL configuration
	TLS TLSConfig

	// SASL contains SASL authentication configuration
	SASL SASLConfig
}

// ConsumerConfig defines the configuration structure for a consumer template.
// It contains all the necessary settings for subscribing and controlling
// fetch behavior.
type ConsumerConfig struct {
	// Brokers is a list of Kafka broker addresses
	Brokers []string

	// ClientID identifies this client to the brokers and labels the
	// template's metrics
	// Default: "rxkafka-consumer"
	ClientID string

	// Topics is the list of topics to consume from. At least one is required.
	Topics []string

	// GroupID is the consumer group ID for coordinated consumption and
	// offset commits. When empty the consumer reads without a group and
	// records cannot be acknowledged.
	GroupID string

	// OffsetReset determines where to start consuming when the group has no
	// committed offset for a partition
	// Options: OffsetEarliest ("earliest"), OffsetLatest ("latest")
	// Default: OffsetEarliest
	OffsetReset string

	// EnableAutoCommit determines whether offsets are committed automatically
	// When true, offsets are committed at CommitInterval
	// When false, you must call Incoming.Ack() manually
	// Default: false (manual commit for safety)
	EnableAutoCommit bool

	// CommitInterval is how often to commit offsets automatically
	// Only used when EnableAutoCommit is true
	// Default: 1s
	CommitInterval time.Duration

	// FetchMinBytes is the minimum number of bytes brokers return per fetch
	// Default: 1 byte
	FetchMinBytes int32

	// FetchMaxBytes is the maximum number of bytes returned in a single fetch
	// Default: 10MB
	FetchMaxBytes int32

	// FetchMaxWait is the maximum amount of time brokers wait for
	// FetchMinBytes to become available
	// Default: 5s
	FetchMaxWait time.Duration

	// ChannelBufferSize is the capacity of the channel returned by Receive.
	// Polling pauses when the channel is full, applying backpressure.
	// Default: 256
	ChannelBufferSize int

	// KeyFormat selects the default key deserializer when none is provided
	// Options: "json" (default), "string", "bytes"
	KeyFormat string

	// ValueFormat selects the default value deserializer when none is provided
	// Options: "json" (default), "string", "bytes"
	ValueFormat string

	// OnPartitionsAssigned is invoked when the group coordinator assigns
	// partitions to this consumer, keyed by topic
	OnPartitionsAssigned func(ctx context.Context, assigned map[string][]int32)

	// OnPartitionsRevoked is invoked when previously assigned partitions are
	// revoked during a rebalance, keyed by topic
	OnPartitionsRevoked func(ctx context.Context, revoked map[string][]int32)

	// TLS contains TLS/SSL configuration
	TLS TLSConfig

	// SASL contains SASL authentication configuration
	SASL SASLConfig
}

// Logger is an interface that matches the logger.LoggerClient interface.
// It provides context-aware structured logging with optional error and field parameters.
type Logger interface {
	// InfoWithContext logs an informational message with trace context.
	InfoWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})

	// WarnWithContext logs a warning message with trace context.
	WarnWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})

	// ErrorWithContext logs an error message with trace context.
	ErrorWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
}

// TLSConfig contains TLS/SSL configuration parameters.
type TLSConfig struct {
	// Enabled determines whether to use TLS/SSL for the connection
	Enabled bool

	// CACertPath is the file path to the CA certificate for verifying the broker
	CACertPath string

	// ClientCertPath is the file path to the client certificate
	ClientCertPath string

	// ClientKeyPath is the file path to the client certificate's private key
	ClientKeyPath string

	// InsecureSkipVerify controls whether to skip verification of the server's certificate
	// WARNING: Setting this to true is insecure and should only be used in testing
	InsecureSkipVerify bool
}

// SASLConfig contains SASL authentication configuration parameters.
type SASLConfig struct {
	// Enabled determines whether to use SASL authentication
	Enabled bool

	// Mechanism specifies the SASL mechanism to use
	// Options: "PLAIN", "SCRAM-SHA-256", "SCRAM-SHA-512"
	Mechanism string

	// Username is the SASL username
	Username string

	// Password is the SASL password
	Password string //nolint:gosec
}

// Default values for configuration
const (
	DefaultProducerClientID   = "rxkafka-producer"
	DefaultConsumerClientID   = "rxkafka-consumer"
	DefaultMaxBufferedRecords = 10000
	DefaultDeliveryTimeout    = 30 * time.Second
	DefaultFetchMinBytes      = 1
	DefaultFetchMaxBytes      = 10e6 // 10MB
	DefaultFetchMaxWait       = 5 * time.Second
	DefaultCommitInterval     = 1 * time.Second
	DefaultChannelBufferSize  = 256
	DefaultRequiredAcks       = -1 // Wait for all in-sync replicas

	// Producer acknowledgment modes. RequireNone is not acks=0 numerically:
	// it must differ from the int zero value so an explicit fire-and-forget
	// choice survives defaulting.
	RequireNone = -2 // Fire-and-forget (no acknowledgment)
	RequireOne  = 1  // Wait for leader only
	RequireAll  = -1 // Wait for all in-sync replicas (most durable)

	// Consumer offset reset modes
	OffsetEarliest = "earliest" // Start from the beginning
	OffsetLatest   = "latest"   // Start from the end
)

// Validate checks the producer configuration for values that cannot be
// mapped onto a client. It is called during template construction, after
// defaults have been applied.
func (c ProducerConfig) Validate() error {
	if len(c.Brokers) == 0 {
		return ErrBrokersRequired
	}
	if !isValidSerializerFormat(c.KeyFormat) {
		return fmt.Errorf("%w: unknown key format %q", ErrInvalidConfig, c.KeyFormat)
	}
	if !isValidSerializerFormat(c.ValueFormat) {
		return fmt.Errorf("%w: unknown value format %q", ErrInvalidConfig, c.ValueFormat)
	}
	switch strings.ToLower(c.Compression) {
	case "", "none", "gzip", "snappy", "lz4", "zstd":
	default:
		return fmt.Errorf("%w: unsupported compression codec %q", ErrInvalidConfig, c.Compression)
	}
	if c.SASL.Enabled {
		if _, err := createSASLMechanism(c.SASL); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks the consumer configuration for values that cannot be
// mapped onto a client. It is called during template construction, after
// defaults have been applied.
func (c ConsumerConfig) Validate() error {
	if len(c.Brokers) == 0 {
		return ErrBrokersRequired
	}
	if len(c.Topics) == 0 {
		return ErrTopicRequired
	}
	switch c.OffsetReset {
	case "", OffsetEarliest, OffsetLatest:
	default:
		return fmt.Errorf("%w: unsupported offset reset policy %q", ErrInvalidConfig, c.OffsetReset)
	}
	if !isValidSerializerFormat(c.KeyFormat) {
		return fmt.Errorf("%w: unknown key format %q", ErrInvalidConfig, c.KeyFormat)
	}
	if !isValidSerializerFormat(c.ValueFormat) {
		return fmt.Errorf("%w: unknown value format %q", ErrInvalidConfig, c.ValueFormat)
	}
	if c.FetchMinBytes < 0 || c.FetchMaxBytes < 0 {
		return fmt.Errorf("%w: fetch byte bounds must not be negative", ErrInvalidConfig)
	}
	if c.SASL.Enabled {
		if _, err := createSASLMechanism(c.SASL); err != nil {
			return err
		}
	}
	return nil
}

// isValidSerializerFormat reports whether format names a built-in
// serializer/deserializer pair. The empty string selects the JSON default.
func isValidSerializerFormat(format string) bool {
	switch format {
	case "", "json", "string", "bytes":
		return true
	default:
		return false
	}
}
