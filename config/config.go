// Package config loads application configuration for the rxkafka templates
// from a YAML file with environment variable overrides. A .env file in the
// working directory is honored when present.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/meridian-labs/rxkafka"
	"github.com/meridian-labs/rxkafka/logger"
)

// Duration wraps time.Duration so YAML values can be written as strings
// ("5s", "250ms"). Bare integers are interpreted as nanoseconds, matching
// time.Duration.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}

	var n int64
	if err := value.Decode(&n); err == nil {
		*d = Duration(n)
		return nil
	}

	return fmt.Errorf("invalid duration value on line %d", value.Line)
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// File is the on-disk configuration shape. Sections map onto the template
// and logger configs via the *Config methods.
type File struct {
	// Service names the application; it flows into the logger's service
	// field.
	Service string `yaml:"service"`

	// Brokers is the seed broker list shared by producer and consumer.
	Brokers []string `yaml:"brokers"`

	Log      Log      `yaml:"log"`
	Producer Producer `yaml:"producer"`
	Consumer Consumer `yaml:"consumer"`
	TLS      TLS      `yaml:"tls"`
	SASL     SASL     `yaml:"sasl"`
}

// Log configures structured logging.
type Log struct {
	Level         string `yaml:"level"`
	EnableTracing bool   `yaml:"enable_tracing"`
}

// Producer configures the producer template.
type Producer struct {
	ClientID string `yaml:"client_id"`

	// RequiredAcks is one of "all", "one", "none". Unknown values default
	// to "all".
	RequiredAcks string `yaml:"required_acks"`

	Compression            string   `yaml:"compression"`
	Linger                 Duration `yaml:"linger"`
	MaxBufferedRecords     int      `yaml:"max_buffered_records"`
	DeliveryTimeout        Duration `yaml:"delivery_timeout"`
	AllowAutoTopicCreation bool     `yaml:"allow_auto_topic_creation"`
	EnableTracePropagation bool     `yaml:"enable_trace_propagation"`
	KeyFormat              string   `yaml:"key_format"`
	ValueFormat            string   `yaml:"value_format"`
}

// Consumer configures the consumer template.
type Consumer struct {
	ClientID          string   `yaml:"client_id"`
	GroupID           string   `yaml:"group_id"`
	Topics            []string `yaml:"topics"`
	OffsetReset       string   `yaml:"offset_reset"`
	EnableAutoCommit  bool     `yaml:"enable_auto_commit"`
	CommitInterval    Duration `yaml:"commit_interval"`
	FetchMinBytes     int32    `yaml:"fetch_min_bytes"`
	FetchMaxBytes     int32    `yaml:"fetch_max_bytes"`
	FetchMaxWait      Duration `yaml:"fetch_max_wait"`
	ChannelBufferSize int      `yaml:"channel_buffer_size"`
	KeyFormat         string   `yaml:"key_format"`
	ValueFormat       string   `yaml:"value_format"`
}

// TLS configures transport security.
type TLS struct {
	Enabled            bool   `yaml:"enabled"`
	CACertPath         string `yaml:"ca_cert"`
	ClientCertPath     string `yaml:"client_cert"`
	ClientKeyPath      string `yaml:"client_key"`
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify"`
}

// SASL configures broker authentication.
type SASL struct {
	Enabled   bool   `yaml:"enabled"`
	Mechanism string `yaml:"mechanism"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
}

// Load reads configuration from the YAML file at path, then applies
// environment overrides and defaults. A missing file is not an error; the
// result is then driven by environment and defaults alone. A .env file in
// the working directory is loaded first when present.
//
// Environment overrides:
//
//	RXKAFKA_BROKERS        comma-separated broker list
//	RXKAFKA_GROUP_ID       consumer group
//	RXKAFKA_LOG_LEVEL      log level
//	RXKAFKA_SASL_USERNAME  SASL username
//	RXKAFKA_SASL_PASSWORD  SASL password
func Load(path string) (*File, error) {
	// .env is optional; absence is the common case outside development.
	_ = godotenv.Load()

	cfg := &File{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// fall through to env + defaults
	default:
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg.applyEnvOverrides()
	cfg.applyDefaults()
	return cfg, nil
}

func (f *File) applyEnvOverrides() {
	if brokers := os.Getenv("RXKAFKA_BROKERS"); brokers != "" {
		f.Brokers = splitList(brokers)
	}
	if groupID := os.Getenv("RXKAFKA_GROUP_ID"); groupID != "" {
		f.Consumer.GroupID = groupID
	}
	if level := os.Getenv("RXKAFKA_LOG_LEVEL"); level != "" {
		f.Log.Level = level
	}
	if username := os.Getenv("RXKAFKA_SASL_USERNAME"); username != "" {
		f.SASL.Username = username
	}
	if password := os.Getenv("RXKAFKA_SASL_PASSWORD"); password != "" {
		f.SASL.Password = password
	}
}

func (f *File) applyDefaults() {
	if f.Service == "" {
		f.Service = "rxkafka"
	}
	if len(f.Brokers) == 0 {
		f.Brokers = []string{"localhost:9092"}
	}
	if f.Log.Level == "" {
		f.Log.Level = logger.Info
	}
}

// ProducerConfig maps the file onto a producer template configuration.
// Unset values stay zero so the template constructor applies its own
// defaults.
func (f *File) ProducerConfig() rxkafka.ProducerConfig {
	return rxkafka.ProducerConfig{
		Brokers:                f.Brokers,
		ClientID:               f.Producer.ClientID,
		RequiredAcks:           parseAcks(f.Producer.RequiredAcks),
		Compression:            f.Producer.Compression,
		Linger:                 f.Producer.Linger.Std(),
		MaxBufferedRecords:     f.Producer.MaxBufferedRecords,
		DeliveryTimeout:        f.Producer.DeliveryTimeout.Std(),
		AllowAutoTopicCreation: f.Producer.AllowAutoTopicCreation,
		EnableTracePropagation: f.Producer.EnableTracePropagation,
		KeyFormat:              f.Producer.KeyFormat,
		ValueFormat:            f.Producer.ValueFormat,
		TLS:                    f.tlsConfig(),
		SASL:                   f.saslConfig(),
	}
}

// ConsumerConfig maps the file onto a consumer template configuration.
func (f *File) ConsumerConfig() rxkafka.ConsumerConfig {
	return rxkafka.ConsumerConfig{
		Brokers:           f.Brokers,
		ClientID:          f.Consumer.ClientID,
		Topics:            f.Consumer.Topics,
		GroupID:           f.Consumer.GroupID,
		OffsetReset:       f.Consumer.OffsetReset,
		EnableAutoCommit:  f.Consumer.EnableAutoCommit,
		CommitInterval:    f.Consumer.CommitInterval.Std(),
		FetchMinBytes:     f.Consumer.FetchMinBytes,
		FetchMaxBytes:     f.Consumer.FetchMaxBytes,
		FetchMaxWait:      f.Consumer.FetchMaxWait.Std(),
		ChannelBufferSize: f.Consumer.ChannelBufferSize,
		KeyFormat:         f.Consumer.KeyFormat,
		ValueFormat:       f.Consumer.ValueFormat,
		TLS:               f.tlsConfig(),
		SASL:              f.saslConfig(),
	}
}

// LoggerConfig maps the file onto a logger configuration.
func (f *File) LoggerConfig() logger.Config {
	return logger.Config{
		Level:         f.Log.Level,
		EnableTracing: f.Log.EnableTracing,
		ServiceName:   f.Service,
	}
}

func (f *File) tlsConfig() rxkafka.TLSConfig {
	return rxkafka.TLSConfig{
		Enabled:            f.TLS.Enabled,
		CACertPath:         f.TLS.CACertPath,
		ClientCertPath:     f.TLS.ClientCertPath,
		ClientKeyPath:      f.TLS.ClientKeyPath,
		InsecureSkipVerify: f.TLS.InsecureSkipVerify,
	}
}

func (f *File) saslConfig() rxkafka.SASLConfig {
	return rxkafka.SASLConfig{
		Enabled:   f.SASL.Enabled,
		Mechanism: f.SASL.Mechanism,
		Username:  f.SASL.Username,
		Password:  f.SASL.Password,
	}
}

func parseAcks(acks string) int {
	switch strings.ToLower(acks) {
	case "none", "0":
		return rxkafka.RequireNone
	case "one", "1":
		return rxkafka.RequireOne
	case "", "all", "-1":
		return rxkafka.RequireAll
	default:
		return rxkafka.RequireAll
	}
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
