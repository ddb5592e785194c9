package rxkafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// TestObserver is a mock observer for testing
type TestObserver struct {
	mu         sync.Mutex
	operations []OperationContext
}

func (t *TestObserver) ObserveOperation(ctx OperationContext) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.operations = append(t.operations, ctx)
}

func (t *TestObserver) GetOperations() []OperationContext {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]OperationContext{}, t.operations...)
}

func (t *TestObserver) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.operations = nil
}

func (t *TestObserver) GetOperationsByType(operation string) []OperationContext {
	t.mu.Lock()
	defer t.mu.Unlock()
	var result []OperationContext
	for _, op := range t.operations {
		if op.Operation == operation {
			result = append(result, op)
		}
	}
	return result
}

// TestProducerObserveOperation tests the producer's observeOperation helper
func TestProducerObserveOperation(t *testing.T) {
	testObserver := &TestObserver{}

	producer := &ProducerTemplate{
		config:   ProducerConfig{ClientID: "test-producer"},
		observer: testObserver,
	}

	producer.observeOperation("send", "test-topic", "", 10*time.Millisecond, nil, 1024)

	ops := testObserver.GetOperations()
	if len(ops) != 1 {
		t.Fatalf("Expected 1 operation, got %d", len(ops))
	}

	op := ops[0]
	if op.Component != "producer" {
		t.Errorf("Expected component 'producer', got '%s'", op.Component)
	}
	if op.Operation != "send" {
		t.Errorf("Expected operation 'send', got '%s'", op.Operation)
	}
	if op.Resource != "test-topic" {
		t.Errorf("Expected resource 'test-topic', got '%s'", op.Resource)
	}
	if op.Duration != 10*time.Millisecond {
		t.Errorf("Expected duration 10ms, got %v", op.Duration)
	}
	if op.Size != 1024 {
		t.Errorf("Expected size 1024, got %d", op.Size)
	}
	if op.Error != nil {
		t.Errorf("Expected no error, got %v", op.Error)
	}
}

// TestConsumerObserveOperation tests the consumer's observeOperation helper
func TestConsumerObserveOperation(t *testing.T) {
	testObserver := &TestObserver{}

	consumer := &ConsumerTemplate{
		config:   ConsumerConfig{ClientID: "test-consumer", GroupID: "test-group"},
		observer: testObserver,
	}

	commitErr := errors.New("commit failed")
	consumer.observeOperation("commit", "test-topic", "3", 5*time.Millisecond, commitErr, 0)

	ops := testObserver.GetOperationsByType("commit")
	if len(ops) != 1 {
		t.Fatalf("Expected 1 commit operation, got %d", len(ops))
	}

	op := ops[0]
	if op.Component != "consumer" {
		t.Errorf("Expected component 'consumer', got '%s'", op.Component)
	}
	if op.SubResource != "3" {
		t.Errorf("Expected sub-resource '3', got '%s'", op.SubResource)
	}
	if !errors.Is(op.Error, commitErr) {
		t.Errorf("Expected error %v, got %v", commitErr, op.Error)
	}
}

// TestObserverNilProducer tests that a nil observer doesn't cause a panic
func TestObserverNilProducer(t *testing.T) {
	producer := &ProducerTemplate{
		config:   ProducerConfig{ClientID: "test-producer"},
		observer: nil,
	}

	defer func() {
		if r := recover(); r != nil {
			t.Errorf("observeOperation panicked with nil observer: %v", r)
		}
	}()

	producer.observeOperation("send", "test-topic", "", 10*time.Millisecond, nil, 1024)
}

// TestObserverNilConsumer tests that a nil observer doesn't cause a panic
func TestObserverNilConsumer(t *testing.T) {
	consumer := &ConsumerTemplate{
		config:   ConsumerConfig{ClientID: "test-consumer"},
		observer: nil,
	}

	defer func() {
		if r := recover(); r != nil {
			t.Errorf("observeOperation panicked with nil observer: %v", r)
		}
	}()

	consumer.observeOperation("poll", "test-topic", "0", time.Millisecond, nil, 0)
}

// TestNoOpObserver verifies the no-op observer accepts operations silently
func TestNoOpObserver(t *testing.T) {
	observer := NewNoOpObserver()
	if observer == nil {
		t.Fatal("Expected non-nil observer")
	}

	// Should not panic
	observer.ObserveOperation(OperationContext{
		Component: "producer",
		Operation: "send",
		Resource:  "test-topic",
	})
}

// TestBuilderAttachment verifies the With* builders attach collaborators
func TestBuilderAttachment(t *testing.T) {
	testObserver := &TestObserver{}
	mockLogger := &MockLogger{}
	mockSerializer := &MockSerializer{}
	mockDeserializer := &MockDeserializer{}

	producer, err := NewProducerTemplate(ProducerConfig{
		Brokers: []string{"localhost:9092"},
	})
	if err != nil {
		t.Fatalf("Failed to create producer: %v", err)
	}
	defer producer.Close(context.Background())

	producer.
		WithObserver(testObserver).
		WithLogger(mockLogger).
		WithKeySerializer(mockSerializer).
		WithValueSerializer(mockSerializer)

	if producer.observer != testObserver {
		t.Error("Observer was not attached")
	}
	if producer.logger != mockLogger {
		t.Error("Logger was not attached")
	}
	if producer.keySerializer != mockSerializer {
		t.Error("Key serializer was not attached")
	}
	if producer.valueSerializer != mockSerializer {
		t.Error("Value serializer was not attached")
	}

	consumer, err := NewConsumerTemplate(ConsumerConfig{
		Brokers: []string{"localhost:9092"},
		Topics:  []string{"test-topic"},
	})
	if err != nil {
		t.Fatalf("Failed to create consumer: %v", err)
	}
	defer consumer.Close(context.Background())

	consumer.
		WithObserver(testObserver).
		WithLogger(mockLogger).
		WithKeyDeserializer(mockDeserializer).
		WithValueDeserializer(mockDeserializer)

	if consumer.observer != testObserver {
		t.Error("Observer was not attached")
	}
	if consumer.logger != mockLogger {
		t.Error("Logger was not attached")
	}
	if consumer.keyDeserializer != mockDeserializer {
		t.Error("Key deserializer was not attached")
	}
	if consumer.valueDeserializer != mockDeserializer {
		t.Error("Value deserializer was not attached")
	}
}

// TestBuilderNilGuards verifies nil serializers don't replace the defaults
func TestBuilderNilGuards(t *testing.T) {
	producer, err := NewProducerTemplate(ProducerConfig{
		Brokers: []string{"localhost:9092"},
	})
	if err != nil {
		t.Fatalf("Failed to create producer: %v", err)
	}
	defer producer.Close(context.Background())

	defaultKey := producer.keySerializer
	producer.WithKeySerializer(nil)
	if producer.keySerializer != defaultKey {
		t.Error("Nil serializer should not replace the default")
	}

	consumer, err := NewConsumerTemplate(ConsumerConfig{
		Brokers: []string{"localhost:9092"},
		Topics:  []string{"test-topic"},
	})
	if err != nil {
		t.Fatalf("Failed to create consumer: %v", err)
	}
	defer consumer.Close(context.Background())

	defaultValue := consumer.valueDeserializer
	consumer.WithValueDeserializer(nil)
	if consumer.valueDeserializer != defaultValue {
		t.Error("Nil deserializer should not replace the default")
	}
}

// Mock implementations for testing

type MockLogger struct {
	mu          sync.Mutex
	InfoCalled  bool
	WarnCalled  bool
	ErrorCalled bool
}

func (m *MockLogger) InfoWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InfoCalled = true
}

func (m *MockLogger) WarnWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.WarnCalled = true
}

func (m *MockLogger) ErrorWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ErrorCalled = true
}

func (m *MockLogger) Called() (info, warn, errored bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.InfoCalled, m.WarnCalled, m.ErrorCalled
}

type MockSerializer struct{}

func (m *MockSerializer) Serialize(data interface{}) ([]byte, error) {
	return []byte("serialized"), nil
}

type MockDeserializer struct{}

func (m *MockDeserializer) Deserialize(data []byte, target interface{}) error {
	return nil
}

// BenchmarkObserverOverhead benchmarks the overhead of observer calls
func BenchmarkObserverOverhead(b *testing.B) {
	testObserver := &TestObserver{}

	producer := &ProducerTemplate{
		config:   ProducerConfig{ClientID: "bench-producer"},
		observer: testObserver,
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		producer.observeOperation("send", "test-topic", "", 5*time.Millisecond, nil, 1024)
	}
}

// BenchmarkNoObserverOverhead benchmarks with no observer (should be zero overhead)
func BenchmarkNoObserverOverhead(b *testing.B) {
	producer := &ProducerTemplate{
		config:   ProducerConfig{ClientID: "bench-producer"},
		observer: nil,
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		producer.observeOperation("send", "test-topic", "", 5*time.Millisecond, nil, 1024)
	}
}
