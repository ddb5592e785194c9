// Package rxkafka provides reactive producer and consumer templates for
// Apache Kafka.
//
// The rxkafka package offers channel-based, non-blocking access to Kafka on
// top of the franz-go client. Sends return immediately with a result channel
// that resolves on broker acknowledgment; consumption is a channel stream
// that follows context cancellation and group rebalances.
//
// # Architecture
//
// The package follows the "accept interfaces, return structs" Go idiom:
//   - Producer interface: Defines the contract for publish operations
//   - ProducerTemplate struct: Concrete implementation of Producer
//   - Consumer interface: Defines the contract for receive operations
//   - ConsumerTemplate struct: Concrete implementation of Consumer
//   - Constructors return concrete types
//   - FX modules provide both the concrete types and the interfaces
//
// This design allows:
//   - Direct usage: Use *ProducerTemplate / *ConsumerTemplate for simple cases
//   - Interface usage: Depend on Producer / Consumer for testability
//   - Zero adapters needed: Consumer code can use type aliases
//
// Core Features:
//   - Asynchronous sends with per-record result channels
//   - Order-preserving stream sends over record channels
//   - Channel-based consumption with manual or automatic offset commits
//   - Consumer group support with partition assignment hooks
//   - Pluggable key/value serialization (JSON, string, raw bytes)
//   - Murmur2 key hashing compatible with the Java client's partitioner
//   - W3C trace context propagation through record headers
//   - Per-template Prometheus registries with snapshot access
//   - Integration with the logger package for structured logging
//
// # Basic Usage (Producer)
//
//	import (
//		"context"
//
//		"github.com/meridian-labs/rxkafka"
//	)
//
//	producer, err := rxkafka.NewProducerTemplate(rxkafka.ProducerConfig{
//		Brokers: []string{"localhost:9092"},
//	})
//	if err != nil {
//		log.Fatal("Failed to create producer", err)
//	}
//	defer producer.Close(context.Background())
//
//	// Send a keyed record; the channel resolves on broker acknowledgment.
//	result := <-producer.SendKeyValue(ctx, "orders", "order-42", order)
//	if result.Err != nil {
//		log.Printf("Send failed: %v", result.Err)
//	} else {
//		log.Printf("Delivered to partition %d at offset %d",
//			result.Metadata.Partition, result.Metadata.Offset)
//	}
//
// Fire-and-forget is the same call without reading the channel; the result
// is buffered, so dropping it never blocks delivery:
//
//	producer.SendValue(ctx, "audit", entry)
//
// # Send Variants
//
// All send variants funnel into Send and share its semantics:
//
//	producer.SendValue(ctx, topic, value)                     // partitioner picks the partition
//	producer.SendKeyValue(ctx, topic, key, value)             // same key, same partition
//	producer.SendToPartition(ctx, topic, 3, key, value)       // explicit partition
//	producer.SendToPartitionAt(ctx, topic, 3, ts, key, value) // explicit partition and timestamp
//	producer.SendMessage(ctx, topic, msg)                     // Message envelope with headers
//	producer.Send(ctx, rxkafka.NewOutgoing(topic, value))     // fully specified record
//
// # Stream Sending
//
// SendStream consumes a channel of records and emits one result per record,
// in input order, regardless of how the broker interleaves acknowledgments
// across partitions:
//
//	records := make(chan *rxkafka.Outgoing)
//	results := producer.SendStream(ctx, records)
//
//	go func() {
//		defer close(records)
//		for _, order := range orders {
//			records <- rxkafka.NewOutgoing("orders", order)
//		}
//	}()
//
//	for result := range results {
//		if result.Err != nil {
//			log.Printf("Send failed: %v", result.Err)
//		}
//	}
//
// The results channel closes after the input channel closes and every
// pending record has resolved, or once ctx is canceled.
//
// # Basic Usage (Consumer)
//
//	consumer, err := rxkafka.NewConsumerTemplate(rxkafka.ConsumerConfig{
//		Brokers: []string{"localhost:9092"},
//		Topics:  []string{"orders"},
//		GroupID: "billing",
//	})
//	if err != nil {
//		log.Fatal("Failed to create consumer", err)
//	}
//	defer consumer.Close(context.Background())
//
//	records, err := consumer.Receive(ctx)
//	if err != nil {
//		log.Fatal("Failed to start receiving", err)
//	}
//	for in := range records {
//		var order Order
//		if err := in.ValueAs(&order); err != nil {
//			continue // don't commit on decode error
//		}
//
//		if err := processOrder(order); err != nil {
//			continue // don't commit on processing error
//		}
//
//		// Commit only after successful processing
//		if err := in.Ack(ctx); err != nil {
//			log.Printf("Commit failed: %v", err)
//		}
//	}
//
// The channel closes when ctx is canceled or the consumer is closed. Only
// one receive stream may be active per template; a second Receive while a
// stream is live returns ErrReceiveActive.
//
// Commit Modes:
//
// Manual commit (default, recommended for safety): offsets advance only when
// Incoming.Ack is called, giving at-least-once processing.
//
// Auto-commit (for high-throughput, at-least-once semantics):
//
//	consumer, err := rxkafka.NewConsumerTemplate(rxkafka.ConsumerConfig{
//	    Brokers:          []string{"localhost:9092"},
//	    Topics:           []string{"events"},
//	    GroupID:          "my-group",
//	    EnableAutoCommit: true,            // Enable auto-commit
//	    CommitInterval:   1 * time.Second, // Commit every second
//	})
//
// Without a GroupID the template consumes every partition of its topics from
// the reset offset; Ack returns ErrGroupRequired since there is no group to
// commit against.
//
// # Producer Acknowledgment Modes
//
// Fire-and-Forget (fastest, least safe):
//
//	producer, err := rxkafka.NewProducerTemplate(rxkafka.ProducerConfig{
//	    Brokers:      []string{"localhost:9092"},
//	    RequiredAcks: rxkafka.RequireNone, // No acknowledgment
//	})
//
// Leader Acknowledgment (balanced):
//
//	producer, err := rxkafka.NewProducerTemplate(rxkafka.ProducerConfig{
//	    Brokers:      []string{"localhost:9092"},
//	    RequiredAcks: rxkafka.RequireOne, // Leader only
//	})
//
// All Replicas Acknowledgment (most durable, default):
//
//	producer, err := rxkafka.NewProducerTemplate(rxkafka.ProducerConfig{
//	    Brokers:      []string{"localhost:9092"},
//	    RequiredAcks: rxkafka.RequireAll, // All in-sync replicas
//	})
//
// RequireNone and RequireOne disable idempotent writes, which require acks
// from all in-sync replicas.
//
// # Message Envelopes and Reserved Headers
//
// SendMessage accepts a Message whose headers drive record coordinates.
// Header names under the "x-" prefix are reserved:
//
//	msg := rxkafka.NewMessage(order).
//	    WithHeader(rxkafka.HeaderKey, "order-42").
//	    WithHeader(rxkafka.HeaderPartition, 1).
//	    WithHeader("source", "checkout")
//
//	result := <-producer.SendMessage(ctx, "orders", msg)
//
// On the consuming side, RecordConverter.ToMessage surfaces the record's
// coordinates as x-received-* headers alongside the application headers.
//
// # Distributed Tracing
//
// With EnableTracePropagation set, the producer injects the current span
// context into record headers using W3C trace context format:
//
//	producer, err := rxkafka.NewProducerTemplate(rxkafka.ProducerConfig{
//	    Brokers:                []string{"localhost:9092"},
//	    EnableTracePropagation: true,
//	})
//
//	ctx, span := tracer.Start(ctx, "checkout")
//	defer span.End()
//	producer.SendKeyValue(ctx, "orders", "order-42", order) // headers carry traceparent
//
// Consumers continue the trace:
//
//	for in := range records {
//	    ctx := in.TraceContext(context.Background())
//	    ctx, span := tracer.Start(ctx, "process-order")
//	    // ...
//	    span.End()
//	}
//
// # Serialization
//
// Key and value formats are selected by config and can be overridden per
// template:
//
//	producer, err := rxkafka.NewProducerTemplate(rxkafka.ProducerConfig{
//	    Brokers:     []string{"localhost:9092"},
//	    KeyFormat:   "string", // StringSerializer
//	    ValueFormat: "json",   // JSONSerializer (default)
//	})
//
// Supported formats:
//   - "json" (default): JSONSerializer/Deserializer
//   - "string": StringSerializer/Deserializer
//   - "bytes": BytesSerializer/Deserializer ([]byte passthrough)
//
// Custom serializers implement the Serializer/Deserializer interfaces and
// are installed with WithKeySerializer/WithValueSerializer or injected via
// the FX modules.
//
// # Metrics
//
// Each template owns a Prometheus registry labeled with its client ID.
// Metrics returns a point-in-time snapshot keyed by metric identity:
//
//	snapshot, err := producer.Metrics()
//	// snapshot["rxkafka_producer_records_sent_total{client_id=\"rxkafka-producer\",outcome=\"success\",topic=\"orders\"}"]
//
// Registry exposes the underlying registry for scrape endpoints:
//
//	http.Handle("/metrics", promhttp.HandlerFor(producer.Registry(), promhttp.HandlerOpts{}))
//
// # Observability
//
// Templates support optional observability through the Observer interface.
// The observer receives an OperationContext after every operation (send,
// flush, partitions, poll, commit) with component, operation, resource
// (topic), sub-resource (partition), duration, size, and error. If no
// observer is configured there is zero overhead; NewNoOpObserver returns an
// explicit no-op for wiring defaults.
//
// # FX Module Integration
//
// The package provides FX modules for both sides:
//
//	app := fx.New(
//	    logger.FXModule, // Optional: provides structured logging
//	    rxkafka.ProducerFXModule,
//	    rxkafka.ConsumerFXModule,
//	    fx.Provide(
//	        func() rxkafka.ProducerConfig { return loadProducerConfig() },
//	        func() rxkafka.ConsumerConfig { return loadConsumerConfig() },
//	    ),
//	    fx.Invoke(func(p rxkafka.Producer, c rxkafka.Consumer) {
//	        // templates are constructed, lifecycle-managed, and closed on stop
//	    }),
//	)
//	app.Run()
//
// The modules automatically pick up an optional Logger and Observer from the
// dependency injection container.
//
// # Error Handling
//
// All errors returned by templates are translated to package sentinels where
// a classification exists, so callers can use errors.Is:
//
//	result := <-producer.SendValue(ctx, topic, value)
//	switch {
//	case errors.Is(result.Err, rxkafka.ErrTopicNotFound):
//	    // topic does not exist and auto-creation is off
//	case errors.Is(result.Err, rxkafka.ErrMessageTooLarge):
//	    // record exceeds the broker's limit
//	case rxkafka.IsRetryableError(result.Err):
//	    // back off and retry
//	}
//
// # Thread Safety
//
// All methods on ProducerTemplate are safe for concurrent use by multiple
// goroutines. ConsumerTemplate allows one active receive stream at a time;
// records from that stream may be processed and acknowledged concurrently.
// Close is safe to call multiple times on both templates.
package rxkafka
