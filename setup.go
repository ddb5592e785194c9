package rxkafka

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"strings"

	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/pkg/sasl"
	"github.com/twmb/franz-go/pkg/sasl/plain"
	"github.com/twmb/franz-go/pkg/sasl/scram"
)

// createTLSConfig creates a TLS configuration from the provided settings.
// It loads CA certificates for broker verification and client certificates
// for mutual TLS when configured.
func createTLSConfig(cfg TLSConfig) (*tls.Config, error) {
	tlsConfig := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: cfg.InsecureSkipVerify, //nolint:gosec
	}

	// Load CA certificate
	if cfg.CACertPath != "" {
		caCert, err := os.ReadFile(cfg.CACertPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA cert: %w", err)
		}
		caCertPool := x509.NewCertPool()
		if !caCertPool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("failed to parse CA cert")
		}
		tlsConfig.RootCAs = caCertPool
	}

	// Load client certificate
	if cfg.ClientCertPath != "" && cfg.ClientKeyPath != "" {
		cert, err := tls.LoadX509KeyPair(cfg.ClientCertPath, cfg.ClientKeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load client cert: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	return tlsConfig, nil
}

// createSASLMechanism creates a SASL authentication mechanism from the
// provided settings. Supported mechanisms: PLAIN (the default when the
// mechanism is left empty), SCRAM-SHA-256 and SCRAM-SHA-512.
func createSASLMechanism(cfg SASLConfig) (sasl.Mechanism, error) {
	switch strings.ToUpper(cfg.Mechanism) {
	case "", "PLAIN":
		return plain.Auth{
			User: cfg.Username,
			Pass: cfg.Password,
		}.AsMechanism(), nil
	case "SCRAM-SHA-256":
		return scram.Auth{
			User: cfg.Username,
			Pass: cfg.Password,
		}.AsSha256Mechanism(), nil
	case "SCRAM-SHA-512":
		return scram.Auth{
			User: cfg.Username,
			Pass: cfg.Password,
		}.AsSha512Mechanism(), nil
	default:
		return nil, fmt.Errorf("%w: unsupported SASL mechanism: %s", ErrInvalidConfig, cfg.Mechanism)
	}
}

// commonClientOpts assembles the client options shared by producer and
// consumer templates: seed brokers, client identity, TLS, SASL and the
// logging bridge. logSource is read on every log call so a logger attached
// after construction still takes effect.
func commonClientOpts(brokers []string, clientID string, tlsCfg TLSConfig, saslCfg SASLConfig, logSource func() Logger) ([]kgo.Opt, error) {
	opts := []kgo.Opt{
		kgo.SeedBrokers(brokers...),
		kgo.ClientID(clientID),
		kgo.WithLogger(&clientLogger{source: logSource}),
	}

	if tlsCfg.Enabled {
		tlsConfig, err := createTLSConfig(tlsCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create TLS config: %w", err)
		}
		opts = append(opts, kgo.DialTLSConfig(tlsConfig))
	}

	if saslCfg.Enabled {
		mechanism, err := createSASLMechanism(saslCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create SASL mechanism: %w", err)
		}
		opts = append(opts, kgo.SASL(mechanism))
	}

	return opts, nil
}

// producerAcksOpts maps the acknowledgment mode onto client options.
// Idempotent writes require acks from all in-sync replicas, so weaker modes
// also disable idempotence.
func producerAcksOpts(acks int) []kgo.Opt {
	switch acks {
	case RequireNone:
		return []kgo.Opt{kgo.RequiredAcks(kgo.NoAck()), kgo.DisableIdempotentWrite()}
	case RequireOne:
		return []kgo.Opt{kgo.RequiredAcks(kgo.LeaderAck()), kgo.DisableIdempotentWrite()}
	default:
		return []kgo.Opt{kgo.RequiredAcks(kgo.AllISRAcks())}
	}
}

// producerCompressionOpt maps a codec name onto the batch compression option.
func producerCompressionOpt(codec string) (kgo.Opt, error) {
	switch strings.ToLower(codec) {
	case "", "none":
		return kgo.ProducerBatchCompression(kgo.NoCompression()), nil
	case "gzip":
		return kgo.ProducerBatchCompression(kgo.GzipCompression()), nil
	case "snappy":
		return kgo.ProducerBatchCompression(kgo.SnappyCompression()), nil
	case "lz4":
		return kgo.ProducerBatchCompression(kgo.Lz4Compression()), nil
	case "zstd":
		return kgo.ProducerBatchCompression(kgo.ZstdCompression()), nil
	default:
		return nil, fmt.Errorf("%w: unsupported compression codec %q", ErrInvalidConfig, codec)
	}
}

// offsetReset maps the configured reset policy onto a client offset.
func offsetReset(policy string) (kgo.Offset, error) {
	switch policy {
	case "", OffsetEarliest:
		return kgo.NewOffset().AtStart(), nil
	case OffsetLatest:
		return kgo.NewOffset().AtEnd(), nil
	default:
		return kgo.Offset{}, fmt.Errorf("%w: unsupported offset reset policy %q", ErrInvalidConfig, policy)
	}
}

// clientLogger bridges the client's internal logging onto the template
// Logger. Debug chatter is suppressed; the client's info level covers
// connection and group lifecycle events.
type clientLogger struct {
	source func() Logger
}

func (l *clientLogger) Level() kgo.LogLevel {
	return kgo.LogLevelInfo
}

func (l *clientLogger) Log(level kgo.LogLevel, msg string, keyvals ...interface{}) {
	logger := l.source()
	if logger == nil {
		return
	}

	fields := make(map[string]interface{}, len(keyvals)/2)
	for i := 0; i+1 < len(keyvals); i += 2 {
		key, ok := keyvals[i].(string)
		if !ok {
			key = fmt.Sprint(keyvals[i])
		}
		fields[key] = keyvals[i+1]
	}

	ctx := context.Background()
	switch level {
	case kgo.LogLevelError:
		logger.ErrorWithContext(ctx, msg, nil, fields)
	case kgo.LogLevelWarn:
		logger.WarnWithContext(ctx, msg, nil, fields)
	default:
		logger.InfoWithContext(ctx, msg, nil, fields)
	}
}
