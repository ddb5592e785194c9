package rxkafka

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
)

// ==================== errors.go ====================

func TestTranslateByErrorMessage_AllBranches(t *testing.T) {
	t.Parallel()

	cases := []struct {
		input    string
		expected error
	}{
		{"connection refused", ErrConnectionFailed},
		{"Connection REFUSED", ErrConnectionFailed}, // matching is case-insensitive
		{"connection reset by peer", ErrConnectionLost},
		{"connection closed", ErrConnectionLost},
		{"broker not available", ErrBrokerNotAvailable},
		{"replica not available", ErrReplicaNotAvailable},
		{"authentication failed", ErrAuthenticationFailed},
		{"sasl authentication failed", ErrAuthenticationFailed},
		{"authorization failed", ErrAuthorizationFailed},
		{"topic not found", ErrTopicNotFound},
		{"unknown topic foo", ErrTopicNotFound},
		{"topic already exists", ErrTopicAlreadyExists},
		{"partition not found", ErrPartitionNotFound},
		{"unknown partition 0", ErrPartitionNotFound},
		{"invalid partition", ErrInvalidPartition},
		{"group coordinator not available", ErrGroupCoordinatorNotAvailable},
		{"not coordinator for group", ErrNotGroupCoordinator},
		{"not group coordinator", ErrNotGroupCoordinator},
		{"rebalance in progress", ErrRebalanceInProgress},
		{"offset out of range", ErrOffsetOutOfRange},
		{"invalid commit offset", ErrInvalidCommitOffset},
		{"message too large", ErrMessageTooLarge},
		{"record too large", ErrMessageTooLarge},
		{"leader not available", ErrLeaderNotAvailable},
		{"not leader for partition", ErrNotLeaderForPartition},
		{"request timed out", ErrRequestTimedOut},
		{"timeout waiting for response", ErrRequestTimedOut},
		{"i/o timeout", ErrRequestTimedOut}, // "timeout" branch matches before "i/o timeout"
		{"deadline exceeded", ErrContextDeadlineExceeded},
		{"network is unreachable", ErrNetworkError},
		{"dial tcp: lookup kafka: no such host", ErrNetworkError},
		{"unsupported version", ErrUnsupportedVersion},
		{"invalid config", ErrInvalidConfig},
		{"invalid replication factor", ErrInvalidReplicationFactor},
		{"context canceled", ErrContextCanceled},
		{"context cancelled", ErrContextCanceled},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.input, func(t *testing.T) {
			t.Parallel()
			result := TranslateError(fmt.Errorf("%s", tc.input))
			assert.Equal(t, tc.expected, result)
		})
	}
}

func TestTranslateError_TypedBrokerCodes(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		input    error
		expected error
	}{
		{"broker not available", kerr.BrokerNotAvailable, ErrBrokerNotAvailable},
		{"sasl authentication failed", kerr.SaslAuthenticationFailed, ErrAuthenticationFailed},
		{"topic authorization failed", kerr.TopicAuthorizationFailed, ErrAuthorizationFailed},
		{"group authorization failed", kerr.GroupAuthorizationFailed, ErrAuthorizationFailed},
		{"unknown topic or partition", kerr.UnknownTopicOrPartition, ErrTopicNotFound},
		{"topic already exists", kerr.TopicAlreadyExists, ErrTopicAlreadyExists},
		{"rebalance in progress", kerr.RebalanceInProgress, ErrRebalanceInProgress},
		{"offset out of range", kerr.OffsetOutOfRange, ErrOffsetOutOfRange},
		{"not leader for partition", kerr.NotLeaderForPartition, ErrNotLeaderForPartition},
		{"request timed out", kerr.RequestTimedOut, ErrRequestTimedOut},
		{"unsupported version", kerr.UnsupportedVersion, ErrUnsupportedVersion},
		{"wrapped broker code", fmt.Errorf("produce failed: %w", kerr.UnknownTopicOrPartition), ErrTopicNotFound},
		{"error for code 3", kerr.ErrorForCode(3), ErrTopicNotFound},
		{"context canceled", context.Canceled, ErrContextCanceled},
		{"context deadline exceeded", context.DeadlineExceeded, ErrContextDeadlineExceeded},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			result := TranslateError(tc.input)
			assert.Equal(t, tc.expected, result)
		})
	}
}

func TestTranslateError_Nil(t *testing.T) {
	t.Parallel()
	assert.Nil(t, TranslateError(nil))
}

func TestTranslateError_Unknown(t *testing.T) {
	t.Parallel()
	orig := errors.New("some unknown kafka error xyz")
	result := TranslateError(orig)
	assert.Equal(t, orig, result)
}

func TestIsRetryableError(t *testing.T) {
	t.Parallel()
	assert.True(t, IsRetryableError(ErrConnectionFailed))
	assert.True(t, IsRetryableError(ErrConnectionLost))
	assert.True(t, IsRetryableError(ErrRebalanceInProgress))
	assert.True(t, IsRetryableError(ErrRequestTimedOut))
	assert.True(t, IsRetryableError(ErrNetworkError))
	assert.True(t, IsRetryableError(fmt.Errorf("send: %w", ErrLeaderNotAvailable)))

	// Untranslated broker codes fall through to the protocol's own
	// retriable flag.
	assert.True(t, IsRetryableError(kerr.RebalanceInProgress))

	assert.False(t, IsRetryableError(nil))
	assert.False(t, IsRetryableError(ErrAuthenticationFailed))
	assert.False(t, IsRetryableError(ErrSerialization))
	assert.False(t, IsRetryableError(ErrProducerClosed))
}

func TestIsTemporaryError(t *testing.T) {
	t.Parallel()
	assert.True(t, IsTemporaryError(ErrConnectionFailed))
	assert.True(t, IsTemporaryError(ErrRebalanceInProgress))
	assert.True(t, IsTemporaryError(ErrLeaderNotAvailable))
	assert.False(t, IsTemporaryError(ErrAuthenticationFailed))
}

func TestIsPermanentError(t *testing.T) {
	t.Parallel()
	assert.True(t, IsPermanentError(ErrAuthenticationFailed))
	assert.True(t, IsPermanentError(ErrTopicNotFound))
	assert.True(t, IsPermanentError(ErrSerialization))
	assert.True(t, IsPermanentError(ErrProducerClosed))
	assert.True(t, IsPermanentError(fmt.Errorf("encode: %w", ErrMessageTooLarge)))
	assert.False(t, IsPermanentError(ErrConnectionLost))
	assert.False(t, IsPermanentError(ErrRebalanceInProgress))
}

func TestIsAuthenticationError(t *testing.T) {
	t.Parallel()
	assert.True(t, IsAuthenticationError(ErrAuthenticationFailed))
	assert.True(t, IsAuthenticationError(ErrAuthorizationFailed))
	assert.True(t, IsAuthenticationError(fmt.Errorf("connect: %w", ErrAuthenticationFailed)))
	assert.False(t, IsAuthenticationError(ErrConnectionFailed))
	assert.False(t, IsAuthenticationError(nil))
}

// ==================== setup.go ====================

func TestCreateTLSConfig(t *testing.T) {
	t.Parallel()

	t.Run("insecure skip verify", func(t *testing.T) {
		t.Parallel()
		cfg := TLSConfig{InsecureSkipVerify: true}
		tlsCfg, err := createTLSConfig(cfg)
		require.NoError(t, err)
		assert.True(t, tlsCfg.InsecureSkipVerify)
	})

	t.Run("minimum TLS version", func(t *testing.T) {
		t.Parallel()
		tlsCfg, err := createTLSConfig(TLSConfig{})
		require.NoError(t, err)
		assert.Equal(t, uint16(tls.VersionTLS12), tlsCfg.MinVersion)
	})

	t.Run("missing CA cert file", func(t *testing.T) {
		t.Parallel()
		cfg := TLSConfig{CACertPath: "/nonexistent/ca.crt"}
		_, err := createTLSConfig(cfg)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to read CA cert")
	})

	t.Run("garbage CA cert file", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "ca.crt")
		require.NoError(t, os.WriteFile(path, []byte("not a pem"), 0o600))
		_, err := createTLSConfig(TLSConfig{CACertPath: path})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse CA cert")
	})

	t.Run("missing client cert file", func(t *testing.T) {
		t.Parallel()
		cfg := TLSConfig{ClientCertPath: "/nonexistent/client.crt", ClientKeyPath: "/nonexistent/client.key"}
		_, err := createTLSConfig(cfg)
		assert.Error(t, err)
	})
}

func TestCreateSASLMechanism(t *testing.T) {
	t.Parallel()

	t.Run("PLAIN", func(t *testing.T) {
		t.Parallel()
		m, err := createSASLMechanism(SASLConfig{Mechanism: "PLAIN", Username: "u", Password: "p"})
		require.NoError(t, err)
		assert.Equal(t, "PLAIN", m.Name())
	})

	t.Run("empty mechanism defaults to PLAIN", func(t *testing.T) {
		t.Parallel()
		m, err := createSASLMechanism(SASLConfig{Username: "u", Password: "p"})
		require.NoError(t, err)
		assert.Equal(t, "PLAIN", m.Name())
	})

	t.Run("SCRAM-SHA-256", func(t *testing.T) {
		t.Parallel()
		m, err := createSASLMechanism(SASLConfig{Mechanism: "SCRAM-SHA-256", Username: "u", Password: "p"})
		require.NoError(t, err)
		assert.Equal(t, "SCRAM-SHA-256", m.Name())
	})

	t.Run("SCRAM-SHA-512", func(t *testing.T) {
		t.Parallel()
		m, err := createSASLMechanism(SASLConfig{Mechanism: "SCRAM-SHA-512", Username: "u", Password: "p"})
		require.NoError(t, err)
		assert.Equal(t, "SCRAM-SHA-512", m.Name())
	})

	t.Run("mechanism name is case-insensitive", func(t *testing.T) {
		t.Parallel()
		m, err := createSASLMechanism(SASLConfig{Mechanism: "scram-sha-256", Username: "u", Password: "p"})
		require.NoError(t, err)
		assert.Equal(t, "SCRAM-SHA-256", m.Name())
	})

	t.Run("unsupported mechanism", func(t *testing.T) {
		t.Parallel()
		_, err := createSASLMechanism(SASLConfig{Mechanism: "GSSAPI"})
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})
}

func TestProducerAcksOpts(t *testing.T) {
	t.Parallel()

	// Weaker acks must also disable idempotence, hence two options.
	assert.Len(t, producerAcksOpts(RequireNone), 2)
	assert.Len(t, producerAcksOpts(RequireOne), 2)
	assert.Len(t, producerAcksOpts(RequireAll), 1)
	assert.Len(t, producerAcksOpts(0), 1)
}

func TestProducerCompressionOpt(t *testing.T) {
	t.Parallel()

	codecs := []string{"", "none", "gzip", "snappy", "lz4", "zstd", "ZSTD"}
	for _, codec := range codecs {
		codec := codec
		t.Run("codec="+codec, func(t *testing.T) {
			t.Parallel()
			opt, err := producerCompressionOpt(codec)
			require.NoError(t, err)
			assert.NotNil(t, opt)
		})
	}

	t.Run("unsupported codec", func(t *testing.T) {
		t.Parallel()
		_, err := producerCompressionOpt("brotli")
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})
}

func TestOffsetReset(t *testing.T) {
	t.Parallel()

	t.Run("earliest", func(t *testing.T) {
		t.Parallel()
		off, err := offsetReset(OffsetEarliest)
		require.NoError(t, err)
		assert.Equal(t, kgo.NewOffset().AtStart(), off)
	})

	t.Run("empty defaults to earliest", func(t *testing.T) {
		t.Parallel()
		off, err := offsetReset("")
		require.NoError(t, err)
		assert.Equal(t, kgo.NewOffset().AtStart(), off)
	})

	t.Run("latest", func(t *testing.T) {
		t.Parallel()
		off, err := offsetReset(OffsetLatest)
		require.NoError(t, err)
		assert.Equal(t, kgo.NewOffset().AtEnd(), off)
	})

	t.Run("unsupported policy", func(t *testing.T) {
		t.Parallel()
		_, err := offsetReset("sometime")
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})
}

// ==================== configs.go ====================

func TestProducerConfigValidate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		cfg     ProducerConfig
		wantErr error
	}{
		{
			name:    "missing brokers",
			cfg:     ProducerConfig{},
			wantErr: ErrBrokersRequired,
		},
		{
			name:    "unknown key format",
			cfg:     ProducerConfig{Brokers: []string{"localhost:9092"}, KeyFormat: "avro"},
			wantErr: ErrInvalidConfig,
		},
		{
			name:    "unknown value format",
			cfg:     ProducerConfig{Brokers: []string{"localhost:9092"}, ValueFormat: "protobuf"},
			wantErr: ErrInvalidConfig,
		},
		{
			name:    "unsupported compression",
			cfg:     ProducerConfig{Brokers: []string{"localhost:9092"}, Compression: "brotli"},
			wantErr: ErrInvalidConfig,
		},
		{
			name: "unsupported SASL mechanism",
			cfg: ProducerConfig{
				Brokers: []string{"localhost:9092"},
				SASL:    SASLConfig{Enabled: true, Mechanism: "GSSAPI"},
			},
			wantErr: ErrInvalidConfig,
		},
		{
			name: "valid",
			cfg: ProducerConfig{
				Brokers:     []string{"localhost:9092"},
				Compression: "snappy",
				KeyFormat:   "string",
				ValueFormat: "json",
				SASL:        SASLConfig{Enabled: true, Mechanism: "PLAIN", Username: "u", Password: "p"},
			},
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := tc.cfg.Validate()
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestConsumerConfigValidate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		cfg     ConsumerConfig
		wantErr error
	}{
		{
			name:    "missing brokers",
			cfg:     ConsumerConfig{Topics: []string{"orders"}},
			wantErr: ErrBrokersRequired,
		},
		{
			name:    "missing topics",
			cfg:     ConsumerConfig{Brokers: []string{"localhost:9092"}},
			wantErr: ErrTopicRequired,
		},
		{
			name: "unsupported offset reset policy",
			cfg: ConsumerConfig{
				Brokers:     []string{"localhost:9092"},
				Topics:      []string{"orders"},
				OffsetReset: "sometime",
			},
			wantErr: ErrInvalidConfig,
		},
		{
			name: "unknown value format",
			cfg: ConsumerConfig{
				Brokers:     []string{"localhost:9092"},
				Topics:      []string{"orders"},
				ValueFormat: "avro",
			},
			wantErr: ErrInvalidConfig,
		},
		{
			name: "negative fetch bounds",
			cfg: ConsumerConfig{
				Brokers:       []string{"localhost:9092"},
				Topics:        []string{"orders"},
				FetchMinBytes: -1,
			},
			wantErr: ErrInvalidConfig,
		},
		{
			name: "unsupported SASL mechanism",
			cfg: ConsumerConfig{
				Brokers: []string{"localhost:9092"},
				Topics:  []string{"orders"},
				SASL:    SASLConfig{Enabled: true, Mechanism: "GSSAPI"},
			},
			wantErr: ErrInvalidConfig,
		},
		{
			name: "valid",
			cfg: ConsumerConfig{
				Brokers:     []string{"localhost:9092"},
				Topics:      []string{"orders"},
				GroupID:     "billing",
				OffsetReset: OffsetLatest,
				KeyFormat:   "string",
			},
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := tc.cfg.Validate()
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

// ==================== partitioner.go ====================

func TestRecordPartitionerExplicitPartition(t *testing.T) {
	t.Parallel()
	p := newRecordPartitioner().ForTopic("orders")

	rec := &kgo.Record{Partition: 3, Key: []byte("user-1")}
	assert.True(t, p.RequiresConsistency(rec))
	assert.Equal(t, 3, p.Partition(rec, 6))

	// Partition zero is a valid explicit target and must not fall through
	// to the sticky partitioner.
	zero := &kgo.Record{Partition: 0}
	assert.True(t, p.RequiresConsistency(zero))
	assert.Equal(t, 0, p.Partition(zero, 6))
}

func TestRecordPartitionerKeyed(t *testing.T) {
	t.Parallel()
	p := newRecordPartitioner().ForTopic("orders")

	rec := &kgo.Record{Partition: PartitionAny, Key: []byte("user-42")}
	assert.True(t, p.RequiresConsistency(rec))

	first := p.Partition(rec, 12)
	assert.GreaterOrEqual(t, first, 0)
	assert.Less(t, first, 12)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, p.Partition(rec, 12))
	}
}

func TestRecordPartitionerKeyless(t *testing.T) {
	t.Parallel()
	p := newRecordPartitioner().ForTopic("orders")

	rec := &kgo.Record{Partition: PartitionAny}
	assert.False(t, p.RequiresConsistency(rec))
}

// ==================== producer.go ====================

func TestNewProducerTemplate_Validation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		cfg     ProducerConfig
		wantErr error
	}{
		{"missing brokers", ProducerConfig{}, ErrBrokersRequired},
		{"bad compression", ProducerConfig{Brokers: []string{"localhost:9092"}, Compression: "brotli"}, ErrInvalidConfig},
		{"bad key format", ProducerConfig{Brokers: []string{"localhost:9092"}, KeyFormat: "avro"}, ErrInvalidConfig},
		{"bad SASL mechanism", ProducerConfig{Brokers: []string{"localhost:9092"}, SASL: SASLConfig{Enabled: true, Mechanism: "GSSAPI"}}, ErrInvalidConfig},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewProducerTemplate(tc.cfg)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestNewProducerTemplate_Defaults(t *testing.T) {
	t.Parallel()
	producer, err := NewProducerTemplate(ProducerConfig{Brokers: []string{"localhost:9092"}})
	require.NoError(t, err)

	snapshot, err := producer.Metrics()
	require.NoError(t, err)
	found := false
	for key := range snapshot {
		if strings.Contains(key, `client_id="rxkafka-producer"`) {
			found = true
			break
		}
	}
	assert.True(t, found, "metrics should carry the default client id")

	require.NoError(t, producer.Close(context.Background()))
	assert.NoError(t, producer.Close(context.Background()))
}

func TestSend_Validation(t *testing.T) {
	t.Parallel()
	producer, err := NewProducerTemplate(ProducerConfig{Brokers: []string{"localhost:9092"}})
	require.NoError(t, err)
	defer producer.Close(context.Background())
	producer = producer.WithValueSerializer(&BytesSerializer{})

	ctx := context.Background()

	t.Run("nil record", func(t *testing.T) {
		result := <-producer.Send(ctx, nil)
		assert.ErrorIs(t, result.Err, ErrRecordRequired)
		assert.Nil(t, result.Token)
		assert.Nil(t, result.Metadata)
	})

	t.Run("missing topic echoes the token", func(t *testing.T) {
		rec := &Outgoing{Value: "payload", Token: "tok-1"}
		result := <-producer.Send(ctx, rec)
		assert.ErrorIs(t, result.Err, ErrTopicRequired)
		assert.Equal(t, "tok-1", result.Token)
	})

	t.Run("serialization failure resolves immediately", func(t *testing.T) {
		rec := NewOutgoing("orders", 42) // bytes serializer rejects non-byte values
		rec.Token = "tok-2"
		result := <-producer.Send(ctx, rec)
		assert.ErrorIs(t, result.Err, ErrSerialization)
		assert.Equal(t, "tok-2", result.Token)
	})
}

func TestProducerClosedBehavior(t *testing.T) {
	t.Parallel()
	producer, err := NewProducerTemplate(ProducerConfig{Brokers: []string{"localhost:9092"}})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, producer.Close(ctx))

	rec := NewOutgoing("orders", []byte("payload"))
	rec.Token = "tok-3"
	result := <-producer.Send(ctx, rec)
	assert.ErrorIs(t, result.Err, ErrProducerClosed)
	assert.Equal(t, "tok-3", result.Token)

	assert.ErrorIs(t, producer.Flush(ctx), ErrProducerClosed)

	_, err = producer.PartitionsFor(ctx, "orders")
	assert.ErrorIs(t, err, ErrProducerClosed)

	// The topic check precedes the closed check.
	_, err = producer.PartitionsFor(ctx, "")
	assert.ErrorIs(t, err, ErrTopicRequired)
}

func TestResolvedResult(t *testing.T) {
	t.Parallel()
	ch := resolvedResult("tok", ErrTopicRequired)

	result, ok := <-ch
	require.True(t, ok)
	assert.Equal(t, "tok", result.Token)
	assert.ErrorIs(t, result.Err, ErrTopicRequired)
	assert.Nil(t, result.Metadata)

	_, ok = <-ch
	assert.False(t, ok, "result channel should be closed after the single result")
}

func TestSendStream_ClosedInput(t *testing.T) {
	t.Parallel()
	producer, err := NewProducerTemplate(ProducerConfig{Brokers: []string{"localhost:9092"}})
	require.NoError(t, err)
	defer producer.Close(context.Background())

	records := make(chan *Outgoing)
	close(records)

	out := producer.SendStream(context.Background(), records)
	select {
	case _, ok := <-out:
		assert.False(t, ok, "stream should close without emitting results")
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not close after input was exhausted")
	}
}

// ==================== consumer.go ====================

func TestNewConsumerTemplate_Validation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		cfg     ConsumerConfig
		wantErr error
	}{
		{"missing brokers", ConsumerConfig{Topics: []string{"orders"}}, ErrBrokersRequired},
		{"missing topics", ConsumerConfig{Brokers: []string{"localhost:9092"}}, ErrTopicRequired},
		{"bad offset reset", ConsumerConfig{Brokers: []string{"localhost:9092"}, Topics: []string{"orders"}, OffsetReset: "sometime"}, ErrInvalidConfig},
		{"negative fetch bounds", ConsumerConfig{Brokers: []string{"localhost:9092"}, Topics: []string{"orders"}, FetchMaxBytes: -1}, ErrInvalidConfig},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewConsumerTemplate(tc.cfg)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestNewConsumerTemplate_Defaults(t *testing.T) {
	t.Parallel()
	consumer, err := NewConsumerTemplate(ConsumerConfig{
		Brokers: []string{"localhost:9092"},
		Topics:  []string{"orders"},
		GroupID: "billing",
	})
	require.NoError(t, err)
	defer consumer.Close(context.Background())

	snapshot, err := consumer.Metrics()
	require.NoError(t, err)
	found := false
	for key := range snapshot {
		if strings.Contains(key, `client_id="rxkafka-consumer"`) && strings.Contains(key, `group_id="billing"`) {
			found = true
			break
		}
	}
	assert.True(t, found, "metrics should carry the default client id and the group")
}

func TestReceiveLifecycle(t *testing.T) {
	t.Parallel()
	consumer, err := NewConsumerTemplate(ConsumerConfig{
		Brokers: []string{"localhost:9092"},
		Topics:  []string{"orders"},
	})
	require.NoError(t, err)
	defer consumer.Close(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	stream, err := consumer.Receive(ctx)
	require.NoError(t, err)
	require.NotNil(t, stream)

	// Only one stream may be live at a time.
	_, err = consumer.Receive(ctx)
	assert.ErrorIs(t, err, ErrReceiveActive)

	cancel()
	select {
	case _, ok := <-stream:
		assert.False(t, ok, "stream should close on cancellation")
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not close after cancellation")
	}

	// Once the channel has closed the template accepts a new stream.
	ctx2, cancel2 := context.WithCancel(context.Background())
	defer cancel2()
	stream2, err := consumer.Receive(ctx2)
	require.NoError(t, err)
	require.NotNil(t, stream2)
}

func TestReceiveAfterClose(t *testing.T) {
	t.Parallel()
	consumer, err := NewConsumerTemplate(ConsumerConfig{
		Brokers: []string{"localhost:9092"},
		Topics:  []string{"orders"},
	})
	require.NoError(t, err)

	require.NoError(t, consumer.Close(context.Background()))
	assert.NoError(t, consumer.Close(context.Background()))

	_, err = consumer.Receive(context.Background())
	assert.ErrorIs(t, err, ErrConsumerClosed)
}

// ==================== fx_module.go ====================

func TestProducerFXModule(t *testing.T) {
	t.Parallel()

	var producer *ProducerTemplate
	var iface Producer
	app := fxtest.New(t,
		ProducerFXModule,
		fx.Provide(func() ProducerConfig {
			return ProducerConfig{Brokers: []string{"localhost:9092"}}
		}),
		fx.Populate(&producer, &iface),
	)

	app.RequireStart()
	require.NotNil(t, producer)
	assert.Same(t, producer, iface)
	app.RequireStop()

	// The lifecycle stop closed the template.
	result := <-producer.Send(context.Background(), NewOutgoing("orders", []byte("x")))
	assert.ErrorIs(t, result.Err, ErrProducerClosed)
}

func TestConsumerFXModule(t *testing.T) {
	t.Parallel()

	var consumer *ConsumerTemplate
	var iface Consumer
	app := fxtest.New(t,
		ConsumerFXModule,
		fx.Provide(func() ConsumerConfig {
			return ConsumerConfig{
				Brokers: []string{"localhost:9092"},
				Topics:  []string{"orders"},
			}
		}),
		fx.Populate(&consumer, &iface),
	)

	app.RequireStart()
	require.NotNil(t, consumer)
	assert.Same(t, consumer, iface)
	app.RequireStop()

	_, err := consumer.Receive(context.Background())
	assert.ErrorIs(t, err, ErrConsumerClosed)
}

func TestCommitValidation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("group required", func(t *testing.T) {
		t.Parallel()
		consumer, err := NewConsumerTemplate(ConsumerConfig{
			Brokers: []string{"localhost:9092"},
			Topics:  []string{"orders"},
		})
		require.NoError(t, err)
		defer consumer.Close(ctx)

		assert.ErrorIs(t, consumer.commit(ctx, nil), ErrGroupRequired)
	})

	t.Run("record required", func(t *testing.T) {
		t.Parallel()
		consumer, err := NewConsumerTemplate(ConsumerConfig{
			Brokers: []string{"localhost:9092"},
			Topics:  []string{"orders"},
			GroupID: "billing",
		})
		require.NoError(t, err)
		defer consumer.Close(ctx)

		assert.ErrorIs(t, consumer.commit(ctx, nil), ErrInvalidCommitOffset)
		assert.ErrorIs(t, consumer.commit(ctx, &Incoming{}), ErrInvalidCommitOffset)
	})

	t.Run("closed consumer", func(t *testing.T) {
		t.Parallel()
		consumer, err := NewConsumerTemplate(ConsumerConfig{
			Brokers: []string{"localhost:9092"},
			Topics:  []string{"orders"},
			GroupID: "billing",
		})
		require.NoError(t, err)
		require.NoError(t, consumer.Close(ctx))

		in := &Incoming{raw: &kgo.Record{Topic: "orders"}}
		assert.ErrorIs(t, consumer.commit(ctx, in), ErrConsumerClosed)
	})
}
