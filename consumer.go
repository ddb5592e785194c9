package rxkafka

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/twmb/franz-go/pkg/kgo"
)

// ConsumerTemplate consumes records from Kafka and delivers them on a
// channel. A template owns one broker client and at most one live receive
// stream; the stream runs until its context is canceled or the template is
// closed, and the channel closes cleanly in both cases.
//
// With a group configured, partitions are balanced across members and
// offsets are committed either automatically (EnableAutoCommit) or manually
// via Incoming.Ack. Without a group the template consumes all partitions of
// its topics from the reset offset and Ack returns ErrGroupRequired.
type ConsumerTemplate struct {
	config ConsumerConfig

	client *kgo.Client

	keyDeserializer   Deserializer
	valueDeserializer Deserializer

	logger   Logger
	observer Observer
	metrics  *consumerMetrics

	// mu guards receiving, the single-active-stream flag
	mu        sync.Mutex
	receiving bool

	// shutdownSignal is closed when the template is being shut down
	shutdownSignal chan struct{}
	// closeShutdownOnce ensures shutdownSignal is closed exactly once
	closeShutdownOnce sync.Once
}

// NewConsumerTemplate creates and returns a new consumer template based on
// the provided configuration. The underlying client connects lazily; group
// membership is established when the receive stream first polls.
//
// Parameters:
//   - cfg: Consumer configuration. Zero values fall back to the package
//     defaults before validation. Topics and Brokers are required.
//
// Returns:
//   - *ConsumerTemplate: A configured template ready for use
//   - error: Configuration errors (ErrBrokersRequired, ErrTopicRequired, ...)
//
// Example:
//
//	consumer, err := rxkafka.NewConsumerTemplate(rxkafka.ConsumerConfig{
//	    Brokers: []string{"localhost:9092"},
//	    Topics:  []string{"orders"},
//	    GroupID: "billing",
//	})
//	if err != nil {
//	    return err
//	}
//	defer consumer.Close(context.Background())
//
//	records, err := consumer.Receive(ctx)
//	if err != nil {
//	    return err
//	}
//	for in := range records {
//	    process(in)
//	    if err := in.Ack(ctx); err != nil {
//	        return err
//	    }
//	}
func NewConsumerTemplate(cfg ConsumerConfig) (*ConsumerTemplate, error) {
	// Apply defaults
	if cfg.ClientID == "" {
		cfg.ClientID = DefaultConsumerClientID
	}
	if cfg.OffsetReset == "" {
		cfg.OffsetReset = OffsetEarliest
	}
	if cfg.FetchMinBytes == 0 {
		cfg.FetchMinBytes = DefaultFetchMinBytes
	}
	if cfg.FetchMaxBytes == 0 {
		cfg.FetchMaxBytes = DefaultFetchMaxBytes
	}
	if cfg.FetchMaxWait == 0 {
		cfg.FetchMaxWait = DefaultFetchMaxWait
	}
	if cfg.CommitInterval == 0 {
		cfg.CommitInterval = DefaultCommitInterval
	}
	if cfg.ChannelBufferSize == 0 {
		cfg.ChannelBufferSize = DefaultChannelBufferSize
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &ConsumerTemplate{
		config:            cfg,
		keyDeserializer:   getDefaultDeserializer(cfg.KeyFormat),
		valueDeserializer: getDefaultDeserializer(cfg.ValueFormat),
		shutdownSignal:    make(chan struct{}),
	}

	opts, err := commonClientOpts(cfg.Brokers, cfg.ClientID, cfg.TLS, cfg.SASL, func() Logger { return c.logger })
	if err != nil {
		return nil, err
	}

	reset, err := offsetReset(cfg.OffsetReset)
	if err != nil {
		return nil, err
	}

	opts = append(opts,
		kgo.ConsumeTopics(cfg.Topics...),
		kgo.ConsumeResetOffset(reset),
		kgo.FetchMinBytes(cfg.FetchMinBytes),
		kgo.FetchMaxBytes(cfg.FetchMaxBytes),
		kgo.FetchMaxWait(cfg.FetchMaxWait),
	)

	if cfg.GroupID != "" {
		opts = append(opts,
			kgo.ConsumerGroup(cfg.GroupID),
			kgo.OnPartitionsAssigned(c.handlePartitionsAssigned),
			kgo.OnPartitionsRevoked(c.handlePartitionsRevoked),
		)
		if cfg.EnableAutoCommit {
			opts = append(opts, kgo.AutoCommitInterval(cfg.CommitInterval))
		} else {
			opts = append(opts, kgo.DisableAutoCommit())
		}
	}

	// The buffered gauge closes over the template because the client does
	// not exist until after registration.
	c.metrics = newConsumerMetrics(cfg.ClientID, cfg.GroupID, func() int64 {
		if c.client == nil {
			return 0
		}
		return c.client.BufferedFetchRecords()
	})

	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, TranslateError(err)
	}
	c.client = client

	return c, nil
}

// WithLogger sets the logger for the consumer template.
// This is typically called right after construction or by the FX module.
func (c *ConsumerTemplate) WithLogger(logger Logger) *ConsumerTemplate {
	c.logger = logger
	return c
}

// WithObserver sets the observer for the consumer template.
// The observer receives an OperationContext after every template operation.
func (c *ConsumerTemplate) WithObserver(observer Observer) *ConsumerTemplate {
	c.observer = observer
	return c
}

// WithKeyDeserializer overrides the key deserializer selected by KeyFormat.
func (c *ConsumerTemplate) WithKeyDeserializer(deserializer Deserializer) *ConsumerTemplate {
	if deserializer != nil {
		c.keyDeserializer = deserializer
	}
	return c
}

// WithValueDeserializer overrides the value deserializer selected by ValueFormat.
func (c *ConsumerTemplate) WithValueDeserializer(deserializer Deserializer) *ConsumerTemplate {
	if deserializer != nil {
		c.valueDeserializer = deserializer
	}
	return c
}

// Receive starts the receive stream and returns its channel. Records are
// delivered in offset order per partition until ctx is canceled or the
// template is closed, at which point the channel closes. Fetch errors are
// logged and counted but do not terminate the stream; the poll loop retries.
//
// Only one stream may be active per template. A second call while a stream
// is live returns ErrReceiveActive; once the active stream's channel has
// closed, Receive may be called again.
//
// Parameters:
//   - ctx: Context bounding the stream's lifetime
//
// Returns:
//   - <-chan *Incoming: The record stream; closed on cancellation/shutdown
//   - error: ErrConsumerClosed or ErrReceiveActive
func (c *ConsumerTemplate) Receive(ctx context.Context) (<-chan *Incoming, error) {
	if c.isClosed() {
		return nil, ErrConsumerClosed
	}

	c.mu.Lock()
	if c.receiving {
		c.mu.Unlock()
		return nil, ErrReceiveActive
	}
	c.receiving = true
	c.mu.Unlock()

	out := make(chan *Incoming, c.config.ChannelBufferSize)
	go c.pollLoop(ctx, out)

	c.logInfo(ctx, "Receive stream started", map[string]interface{}{
		"topics":   c.config.Topics,
		"group_id": c.config.GroupID,
	})
	return out, nil
}

// pollLoop drives the client until the stream ends.
func (c *ConsumerTemplate) pollLoop(ctx context.Context, out chan<- *Incoming) {
	// The flag clears before the channel closes so that a caller observing
	// the closed channel can immediately start a new stream.
	defer func() {
		c.mu.Lock()
		c.receiving = false
		c.mu.Unlock()
		close(out)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.shutdownSignal:
			return
		default:
		}

		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() {
			return
		}

		for _, fetchErr := range fetches.Errors() {
			if errors.Is(fetchErr.Err, context.Canceled) || errors.Is(fetchErr.Err, context.DeadlineExceeded) {
				return
			}
			translated := TranslateError(fetchErr.Err)
			c.metrics.pollErrors.Inc()
			c.observeOperation("poll", fetchErr.Topic, strconv.FormatInt(int64(fetchErr.Partition), 10), 0, translated, 0)
			c.logError(ctx, "Fetch error", translated, map[string]interface{}{
				"topic":     fetchErr.Topic,
				"partition": fetchErr.Partition,
			})
		}

		iter := fetches.RecordIter()
		for !iter.Done() {
			rec := iter.Next()
			c.metrics.observeRecord(rec.Topic, len(rec.Key)+len(rec.Value))

			select {
			case out <- c.toIncoming(rec):
			case <-ctx.Done():
				return
			case <-c.shutdownSignal:
				return
			}
		}
	}
}

// handlePartitionsAssigned runs on the poll goroutine during a rebalance.
func (c *ConsumerTemplate) handlePartitionsAssigned(ctx context.Context, _ *kgo.Client, assigned map[string][]int32) {
	total := 0
	for _, partitions := range assigned {
		total += len(partitions)
	}
	c.metrics.assignedPartitions.Add(float64(total))

	c.logInfo(ctx, "Partitions assigned", map[string]interface{}{
		"group_id":   c.config.GroupID,
		"assignment": assigned,
	})

	if c.config.OnPartitionsAssigned != nil {
		c.config.OnPartitionsAssigned(ctx, assigned)
	}
}

// handlePartitionsRevoked runs on the poll goroutine during a rebalance and
// on shutdown.
func (c *ConsumerTemplate) handlePartitionsRevoked(ctx context.Context, _ *kgo.Client, revoked map[string][]int32) {
	total := 0
	for _, partitions := range revoked {
		total += len(partitions)
	}
	c.metrics.assignedPartitions.Sub(float64(total))

	c.logInfo(ctx, "Partitions revoked", map[string]interface{}{
		"group_id":   c.config.GroupID,
		"assignment": revoked,
	})

	if c.config.OnPartitionsRevoked != nil {
		c.config.OnPartitionsRevoked(ctx, revoked)
	}
}

// Metrics returns a point-in-time snapshot of this consumer's instruments as
// a flat map keyed by metric identity (name plus sorted labels).
func (c *ConsumerTemplate) Metrics() (map[string]float64, error) {
	return snapshotRegistry(c.metrics.registry)
}

// Registry exposes the consumer's Prometheus registry so applications can
// mount it on a scrape endpoint alongside their own collectors.
func (c *ConsumerTemplate) Registry() *prometheus.Registry {
	return c.metrics.registry
}

// Close leaves the consumer group and releases the client. It is safe to
// call multiple times; only the first call does work. An active receive
// stream observes the shutdown and closes its channel.
func (c *ConsumerTemplate) Close(ctx context.Context) error {
	c.closeShutdownOnce.Do(func() {
		close(c.shutdownSignal)
		c.client.Close()

		c.logInfo(ctx, "Consumer template closed", map[string]interface{}{
			"client_id": c.config.ClientID,
			"group_id":  c.config.GroupID,
		})
	})
	return nil
}

// isClosed reports whether Close has begun.
func (c *ConsumerTemplate) isClosed() bool {
	select {
	case <-c.shutdownSignal:
		return true
	default:
		return false
	}
}

// commit synchronously commits the offset after the given record. Once the
// commit returns, the record will not be redelivered to this group.
func (c *ConsumerTemplate) commit(ctx context.Context, in *Incoming) error {
	start := time.Now()

	if c.config.GroupID == "" {
		return ErrGroupRequired
	}
	if in == nil || in.raw == nil {
		return ErrInvalidCommitOffset
	}
	if c.isClosed() {
		return ErrConsumerClosed
	}

	err := TranslateError(c.client.CommitRecords(ctx, in.raw))
	c.metrics.observeCommit(err)
	c.observeOperation("commit", in.Topic, strconv.FormatInt(int64(in.Partition), 10), time.Since(start), err, 0)
	if err != nil {
		c.logError(ctx, "Offset commit failed", err, map[string]interface{}{
			"topic":     in.Topic,
			"partition": in.Partition,
			"offset":    in.Offset,
		})
		return err
	}
	return nil
}

// deserializeValue decodes a record value into target using the configured
// value deserializer.
func (c *ConsumerTemplate) deserializeValue(data []byte, target interface{}) error {
	return c.valueDeserializer.Deserialize(data, target)
}

// deserializeKey decodes a record key into target using the configured key
// deserializer.
func (c *ConsumerTemplate) deserializeKey(data []byte, target interface{}) error {
	return c.keyDeserializer.Deserialize(data, target)
}

// toIncoming wraps a fetched record, retaining the raw record so Ack can
// commit its offset.
func (c *ConsumerTemplate) toIncoming(rec *kgo.Record) *Incoming {
	headers := make(Headers, 0, len(rec.Headers))
	for _, header := range rec.Headers {
		headers = append(headers, Header{Key: header.Key, Value: header.Value})
	}

	return &Incoming{
		Topic:     rec.Topic,
		Partition: rec.Partition,
		Offset:    rec.Offset,
		Timestamp: rec.Timestamp,
		Key:       rec.Key,
		Value:     rec.Value,
		Headers:   headers,
		template:  c,
		raw:       rec,
	}
}

// logInfo logs an informational message using the configured logger if available.
func (c *ConsumerTemplate) logInfo(ctx context.Context, msg string, fields map[string]interface{}) {
	if c.logger != nil {
		c.logger.InfoWithContext(ctx, msg, nil, fields)
	}
	// Silently skip if no logger configured
}

// logWarn logs a warning message using the configured logger if available.
func (c *ConsumerTemplate) logWarn(ctx context.Context, msg string, fields map[string]interface{}) {
	if c.logger != nil {
		c.logger.WarnWithContext(ctx, msg, nil, fields)
	}
	// Silently skip if no logger configured
}

// logError logs an error message using the configured logger if available.
// This is used for errors in the poll loop that cannot be returned to the
// caller.
func (c *ConsumerTemplate) logError(ctx context.Context, msg string, err error, fields map[string]interface{}) {
	if c.logger != nil {
		c.logger.ErrorWithContext(ctx, msg, err, fields)
	}
	// Silently skip if no logger configured
}
