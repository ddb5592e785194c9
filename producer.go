package rxkafka

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"
)

// streamPendingLimit bounds how many stream sends may be awaiting broker
// acknowledgment before SendStream stops pulling new records from its input.
const streamPendingLimit = 1024

// ProducerTemplate publishes records to Kafka. Every send resolves through a
// single-element result channel, so callers can fire work without blocking
// and collect outcomes when they need them; nothing fails silently.
//
// A template owns one broker client and is safe for concurrent use. Create
// it once, share it, and close it when the application shuts down.
type ProducerTemplate struct {
	config ProducerConfig

	client *kgo.Client
	admin  *kadm.Client

	keySerializer   Serializer
	valueSerializer Serializer
	converter       *RecordConverter

	logger   Logger
	observer Observer
	metrics  *producerMetrics

	// shutdownSignal is closed when the template is being shut down
	shutdownSignal chan struct{}
	// closeShutdownOnce ensures shutdownSignal is closed exactly once
	closeShutdownOnce sync.Once
}

// NewProducerTemplate creates and returns a new producer template based on
// the provided configuration. The underlying client connects lazily; the
// first send surfaces connectivity problems through its result.
//
// Parameters:
//   - cfg: Producer configuration. Zero values fall back to the package
//     defaults before validation.
//
// Returns:
//   - *ProducerTemplate: A configured template ready for use
//   - error: Configuration errors (ErrBrokersRequired, ErrInvalidConfig, ...)
//
// Example:
//
//	producer, err := rxkafka.NewProducerTemplate(rxkafka.ProducerConfig{
//	    Brokers: []string{"localhost:9092"},
//	})
//	if err != nil {
//	    return err
//	}
//	defer producer.Close(context.Background())
//
//	result := <-producer.SendKeyValue(ctx, "orders", orderID, order)
//	if result.Err != nil {
//	    return result.Err
//	}
func NewProducerTemplate(cfg ProducerConfig) (*ProducerTemplate, error) {
	// Apply defaults
	if cfg.ClientID == "" {
		cfg.ClientID = DefaultProducerClientID
	}
	if cfg.RequiredAcks == 0 {
		cfg.RequiredAcks = DefaultRequiredAcks
	}
	if cfg.MaxBufferedRecords == 0 {
		cfg.MaxBufferedRecords = DefaultMaxBufferedRecords
	}
	if cfg.DeliveryTimeout == 0 {
		cfg.DeliveryTimeout = DefaultDeliveryTimeout
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := &ProducerTemplate{
		config:          cfg,
		keySerializer:   getDefaultSerializer(cfg.KeyFormat),
		valueSerializer: getDefaultSerializer(cfg.ValueFormat),
		converter:       NewRecordConverter(),
		shutdownSignal:  make(chan struct{}),
	}

	opts, err := commonClientOpts(cfg.Brokers, cfg.ClientID, cfg.TLS, cfg.SASL, func() Logger { return p.logger })
	if err != nil {
		return nil, err
	}

	opts = append(opts, producerAcksOpts(cfg.RequiredAcks)...)
	opts = append(opts,
		kgo.RecordPartitioner(newRecordPartitioner()),
		kgo.ProducerLinger(cfg.Linger),
		kgo.MaxBufferedRecords(cfg.MaxBufferedRecords),
		kgo.RecordDeliveryTimeout(cfg.DeliveryTimeout),
	)

	compression, err := producerCompressionOpt(cfg.Compression)
	if err != nil {
		return nil, err
	}
	opts = append(opts, compression)

	if cfg.AllowAutoTopicCreation {
		opts = append(opts, kgo.AllowAutoTopicCreation())
	}

	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create producer client: %w", TranslateError(err))
	}

	p.client = client
	p.admin = kadm.NewClient(client)
	p.metrics = newProducerMetrics(cfg.ClientID, client.BufferedProduceRecords)

	return p, nil
}

// WithLogger sets the logger for the producer template.
// This is typically called right after construction or by the FX module.
func (p *ProducerTemplate) WithLogger(logger Logger) *ProducerTemplate {
	p.logger = logger
	return p
}

// WithObserver sets the observer for the producer template.
// The observer receives an OperationContext after every template operation.
func (p *ProducerTemplate) WithObserver(observer Observer) *ProducerTemplate {
	p.observer = observer
	return p
}

// WithKeySerializer overrides the key serializer selected by KeyFormat.
func (p *ProducerTemplate) WithKeySerializer(serializer Serializer) *ProducerTemplate {
	if serializer != nil {
		p.keySerializer = serializer
	}
	return p
}

// WithValueSerializer overrides the value serializer selected by ValueFormat.
func (p *ProducerTemplate) WithValueSerializer(serializer Serializer) *ProducerTemplate {
	if serializer != nil {
		p.valueSerializer = serializer
	}
	return p
}

// SendValue publishes a value with no key, letting the partitioner choose
// placement. The returned channel receives exactly one SendResult and is then
// closed.
func (p *ProducerTemplate) SendValue(ctx context.Context, topic string, value interface{}) <-chan SendResult {
	return p.Send(ctx, NewOutgoing(topic, value))
}

// SendKeyValue publishes a key/value pair. Records sharing a key hash to the
// same partition and therefore preserve relative order.
func (p *ProducerTemplate) SendKeyValue(ctx context.Context, topic string, key, value interface{}) <-chan SendResult {
	rec := NewOutgoing(topic, value)
	rec.Key = key
	return p.Send(ctx, rec)
}

// SendToPartition publishes a key/value pair to an explicit partition,
// bypassing key-hash placement. Sending to a partition that does not exist
// resolves the result with an error.
func (p *ProducerTemplate) SendToPartition(ctx context.Context, topic string, partition int32, key, value interface{}) <-chan SendResult {
	rec := NewOutgoing(topic, value)
	rec.Partition = partition
	rec.Key = key
	return p.Send(ctx, rec)
}

// SendToPartitionAt publishes a key/value pair to an explicit partition with
// an explicit record timestamp. The timestamp is truncated to millisecond
// precision, which is what the broker stores.
func (p *ProducerTemplate) SendToPartitionAt(ctx context.Context, topic string, partition int32, timestamp time.Time, key, value interface{}) <-chan SendResult {
	rec := NewOutgoing(topic, value)
	rec.Partition = partition
	rec.Timestamp = timestamp
	rec.Key = key
	return p.Send(ctx, rec)
}

// SendMessage publishes a message envelope. Reserved x-* headers are applied
// as routing hints (partition, key, timestamp, correlation token) and the
// remaining headers are mapped onto the wire; see RecordConverter.
func (p *ProducerTemplate) SendMessage(ctx context.Context, topic string, msg *Message) <-chan SendResult {
	rec, err := p.converter.ToOutgoing(topic, msg)
	if err != nil {
		return resolvedResult(nil, err)
	}
	return p.Send(ctx, rec)
}

// Send publishes a single record and returns a channel that receives exactly
// one SendResult before closing. The result carries the record's correlation
// token (Outgoing.Token) whether the send succeeded or failed, so callers can
// match outcomes to submissions.
//
// Send never blocks on broker I/O: serialization and validation happen
// synchronously, delivery is asynchronous. Validation failures (nil record,
// empty topic, closed template, serialization errors) resolve the result
// immediately with a sentinel error.
//
// Parameters:
//   - ctx: Context bounding delivery; cancellation fails buffered sends
//   - rec: The record to publish
//
// Returns:
//   - <-chan SendResult: A single-element channel resolved on acknowledgment
func (p *ProducerTemplate) Send(ctx context.Context, rec *Outgoing) <-chan SendResult {
	start := time.Now()

	if rec == nil {
		return resolvedResult(nil, ErrRecordRequired)
	}
	if rec.Topic == "" {
		return resolvedResult(rec.Token, ErrTopicRequired)
	}
	if p.isClosed() {
		return resolvedResult(rec.Token, ErrProducerClosed)
	}

	krec, err := p.toKafkaRecord(ctx, rec)
	if err != nil {
		p.observeOperation("send", rec.Topic, "", time.Since(start), err, 0)
		p.metrics.observeSend(rec.Topic, 0, time.Since(start), err)
		p.logError(ctx, "Failed to encode record", err, map[string]interface{}{
			"topic": rec.Topic,
		})
		return resolvedResult(rec.Token, err)
	}

	results := make(chan SendResult, 1)
	token := rec.Token
	size := int64(len(krec.Key) + len(krec.Value))

	p.client.Produce(ctx, krec, func(produced *kgo.Record, err error) {
		duration := time.Since(start)
		result := SendResult{Token: token}

		if err != nil {
			result.Err = TranslateError(err)
			p.logError(ctx, "Failed to produce record", result.Err, map[string]interface{}{
				"topic":     produced.Topic,
				"partition": produced.Partition,
			})
		} else {
			result.Metadata = &RecordMetadata{
				Topic:     produced.Topic,
				Partition: produced.Partition,
				Offset:    produced.Offset,
				Timestamp: produced.Timestamp,
			}
		}

		p.observeOperation("send", produced.Topic, "", duration, result.Err, size)
		p.metrics.observeSend(produced.Topic, len(produced.Key)+len(produced.Value), duration, result.Err)

		results <- result
		close(results)
	})

	return results
}

// SendStream publishes every record read from records and emits one result
// per record on the returned channel, in submission order, regardless of the
// order in which the broker acknowledges them. The channel closes once the
// input channel is closed and all pending results have been delivered, or
// when ctx is canceled.
//
// Records are submitted as they arrive, so deliveries to different partitions
// overlap; ordering is restored on the way out by resolving pending sends
// first-in first-out. Failed sends emit their error result in position and
// the stream keeps going.
func (p *ProducerTemplate) SendStream(ctx context.Context, records <-chan *Outgoing) <-chan SendResult {
	out := make(chan SendResult)
	pending := make(chan (<-chan SendResult), streamPendingLimit)

	// Submission pump. Sends are asynchronous, so this loop runs ahead of
	// broker acknowledgments, bounded by streamPendingLimit.
	go func() {
		defer close(pending)
		for {
			select {
			case rec, ok := <-records:
				if !ok {
					return
				}
				select {
				case pending <- p.Send(ctx, rec):
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	// Resolver. Pending channels are drained strictly in submission order.
	go func() {
		defer close(out)
		for result := range pending {
			res, ok := <-result
			if !ok {
				continue
			}
			select {
			case out <- res:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}

// Flush blocks until every buffered record has been delivered or failed, or
// until ctx is canceled. It is the barrier callers use before shutdown or
// before asserting on the other side of the broker.
func (p *ProducerTemplate) Flush(ctx context.Context) error {
	start := time.Now()

	if p.isClosed() {
		return ErrProducerClosed
	}

	err := TranslateError(p.client.Flush(ctx))
	p.metrics.flushes.Inc()
	p.observeOperation("flush", "", "", time.Since(start), err, 0)
	if err != nil {
		p.logError(ctx, "Flush failed", err, nil)
		return err
	}
	return nil
}

// PartitionsFor reports the partition layout of a topic, ordered by
// partition number.
//
// Parameters:
//   - ctx: Context for the metadata request
//   - topic: Topic to describe
//
// Returns:
//   - []PartitionInfo: One entry per partition with leader/replica placement
//   - error: ErrTopicNotFound if the broker does not know the topic
func (p *ProducerTemplate) PartitionsFor(ctx context.Context, topic string) ([]PartitionInfo, error) {
	start := time.Now()

	if topic == "" {
		return nil, ErrTopicRequired
	}
	if p.isClosed() {
		return nil, ErrProducerClosed
	}

	meta, err := p.admin.Metadata(ctx, topic)
	if err != nil {
		err = TranslateError(err)
		p.observeOperation("partitions_for", topic, "", time.Since(start), err, 0)
		return nil, fmt.Errorf("failed to fetch metadata for topic %s: %w", topic, err)
	}

	detail, ok := meta.Topics[topic]
	if !ok {
		err = fmt.Errorf("%w: %s", ErrTopicNotFound, topic)
		p.observeOperation("partitions_for", topic, "", time.Since(start), err, 0)
		return nil, err
	}
	if detail.Err != nil {
		err = TranslateError(detail.Err)
		p.observeOperation("partitions_for", topic, "", time.Since(start), err, 0)
		return nil, fmt.Errorf("failed to describe topic %s: %w", topic, err)
	}

	partitions := make([]PartitionInfo, 0, len(detail.Partitions))
	for _, partition := range detail.Partitions {
		partitions = append(partitions, PartitionInfo{
			Topic:     topic,
			Partition: partition.Partition,
			Leader:    partition.Leader,
			Replicas:  partition.Replicas,
			ISR:       partition.ISR,
		})
	}
	sort.Slice(partitions, func(i, j int) bool {
		return partitions[i].Partition < partitions[j].Partition
	})

	p.observeOperation("partitions_for", topic, "", time.Since(start), nil, int64(len(partitions)))
	return partitions, nil
}

// Metrics returns a point-in-time snapshot of this producer's instruments as
// a flat map keyed by metric identity (name plus sorted labels). The snapshot
// includes live client state such as the buffered record gauge, so it is
// non-empty even before the first send.
func (p *ProducerTemplate) Metrics() (map[string]float64, error) {
	return snapshotRegistry(p.metrics.registry)
}

// Registry exposes the producer's Prometheus registry so applications can
// mount it on a scrape endpoint alongside their own collectors.
func (p *ProducerTemplate) Registry() *prometheus.Registry {
	return p.metrics.registry
}

// Close flushes buffered records and releases the client. It is safe to call
// multiple times; only the first call does work. After Close, sends resolve
// immediately with ErrProducerClosed.
func (p *ProducerTemplate) Close(ctx context.Context) error {
	var flushErr error
	p.closeShutdownOnce.Do(func() {
		close(p.shutdownSignal)

		flushErr = TranslateError(p.client.Flush(ctx))
		if flushErr != nil {
			p.logWarn(ctx, "Failed to flush buffered records during close", map[string]interface{}{
				"error": flushErr.Error(),
			})
		}
		p.client.Close()

		p.logInfo(ctx, "Producer template closed", map[string]interface{}{
			"client_id": p.config.ClientID,
		})
	})
	return flushErr
}

// isClosed reports whether Close has begun.
func (p *ProducerTemplate) isClosed() bool {
	select {
	case <-p.shutdownSignal:
		return true
	default:
		return false
	}
}

// toKafkaRecord serializes key and value and assembles the wire record.
// A zero timestamp is left for the client to stamp at produce time; explicit
// timestamps are truncated to millisecond precision to match broker storage.
func (p *ProducerTemplate) toKafkaRecord(ctx context.Context, rec *Outgoing) (*kgo.Record, error) {
	krec := &kgo.Record{
		Topic:     rec.Topic,
		Partition: rec.Partition,
	}

	if rec.Key != nil {
		key, err := p.keySerializer.Serialize(rec.Key)
		if err != nil {
			return nil, fmt.Errorf("%w: key: %v", ErrSerialization, err)
		}
		krec.Key = key
	}

	if rec.Value != nil {
		value, err := p.valueSerializer.Serialize(rec.Value)
		if err != nil {
			return nil, fmt.Errorf("%w: value: %v", ErrSerialization, err)
		}
		krec.Value = value
	}

	if !rec.Timestamp.IsZero() {
		krec.Timestamp = rec.Timestamp.Truncate(time.Millisecond)
	}

	headers := rec.Headers
	if p.config.EnableTracePropagation {
		headers = InjectTraceContext(ctx, headers.Clone())
	}
	for _, header := range headers {
		krec.Headers = append(krec.Headers, kgo.RecordHeader{Key: header.Key, Value: header.Value})
	}

	return krec, nil
}

// resolvedResult returns an already-resolved result channel carrying the
// given token and error.
func resolvedResult(token interface{}, err error) <-chan SendResult {
	results := make(chan SendResult, 1)
	results <- SendResult{Token: token, Err: err}
	close(results)
	return results
}

// logInfo logs an informational message using the configured logger if available.
func (p *ProducerTemplate) logInfo(ctx context.Context, msg string, fields map[string]interface{}) {
	if p.logger != nil {
		p.logger.InfoWithContext(ctx, msg, nil, fields)
	}
	// Silently skip if no logger configured
}

// logWarn logs a warning message using the configured logger if available.
func (p *ProducerTemplate) logWarn(ctx context.Context, msg string, fields map[string]interface{}) {
	if p.logger != nil {
		p.logger.WarnWithContext(ctx, msg, nil, fields)
	}
	// Silently skip if no logger configured
}

// logError logs an error using the configured logger if available.
// This is used for failures surfaced through result channels, which callers
// may or may not inspect.
func (p *ProducerTemplate) logError(ctx context.Context, msg string, err error, fields map[string]interface{}) {
	if p.logger != nil {
		p.logger.ErrorWithContext(ctx, msg, err, fields)
	}
	// Silently skip if no logger configured
}
