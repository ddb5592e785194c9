package kafkatest

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/go-connections/nat"
	"github.com/segmentio/kafka-go"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/multierr"
)

// Container wraps a Dockerized single-node KRaft Kafka broker for tests that
// need the real thing rather than the embedded cluster.
type Container struct {
	instance testcontainers.Container
	addr     string
}

// StartContainer starts a single-node Kafka broker in Docker and blocks until
// its client port accepts connections. Callers must Terminate the returned
// container.
//
// Example:
//
//	kc, err := kafkatest.StartContainer(ctx)
//	if err != nil {
//	    t.Fatal(err)
//	}
//	defer kc.Terminate(ctx)
//
//	producer, err := rxkafka.NewProducerTemplate(rxkafka.ProducerConfig{
//	    Brokers: kc.Brokers(),
//	})
func StartContainer(ctx context.Context) (*Container, error) {
	hostPort, err := getFreePort()
	if err != nil {
		return nil, fmt.Errorf("failed to allocate host port: %w", err)
	}

	instance, err := startKafkaContainer(ctx, hostPort)
	if err != nil {
		return nil, err
	}

	addr := net.JoinHostPort("localhost", hostPort)
	if err := waitForPort(ctx, addr, 60*time.Second); err != nil {
		terminateErr := instance.Terminate(ctx)
		return nil, multierr.Append(err, terminateErr)
	}

	return &Container{instance: instance, addr: addr}, nil
}

// Addr returns the broker's advertised host:port.
func (c *Container) Addr() string {
	return c.addr
}

// Brokers returns the seed broker list for client configuration.
func (c *Container) Brokers() []string {
	return []string{c.addr}
}

// Terminate stops and removes the container.
func (c *Container) Terminate(ctx context.Context) error {
	return c.instance.Terminate(ctx)
}

// CreateTopic creates a topic on the containerized broker through the
// cluster controller. Topic auto-creation is enabled on the container, so
// this is only needed when a test requires more than one partition.
func (c *Container) CreateTopic(topic string, partitions int) (err error) {
	conn, err := kafka.Dial("tcp", c.addr)
	if err != nil {
		return fmt.Errorf("failed to dial broker: %w", err)
	}
	defer func() {
		err = multierr.Append(err, conn.Close())
	}()

	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("failed to resolve controller: %w", err)
	}

	controllerConn, err := kafka.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	if err != nil {
		return fmt.Errorf("failed to dial controller: %w", err)
	}
	defer func() {
		err = multierr.Append(err, controllerConn.Close())
	}()

	err = controllerConn.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     partitions,
		ReplicationFactor: 1,
	})
	if err != nil {
		return fmt.Errorf("failed to create topic %q: %w", topic, err)
	}
	return nil
}

// waitForPort polls addr until a TCP connection succeeds or the timeout
// elapses.
func waitForPort(ctx context.Context, addr string, timeout time.Duration) error {
	dialer := &net.Dialer{Timeout: 2 * time.Second}
	deadline := time.Now().Add(timeout)

	for {
		conn, err := dialer.DialContext(ctx, "tcp", addr)
		if err == nil {
			_ = conn.Close()
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("kafka port %s not ready after %s: %w", addr, timeout, err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}
	}
}

func startKafkaContainer(ctx context.Context, hostPort string) (testcontainers.Container, error) {
	portBindings := nat.PortMap{
		"9092/tcp": []nat.PortBinding{{HostPort: hostPort}},
	}

	req := testcontainers.ContainerRequest{
		Image:        "confluentinc/cp-kafka:7.5.0",
		ExposedPorts: []string{"9092/tcp"},
		Env: map[string]string{
			"KAFKA_BROKER_ID":                                "1",
			"KAFKA_LISTENER_SECURITY_PROTOCOL_MAP":           "PLAINTEXT:PLAINTEXT,PLAINTEXT_HOST:PLAINTEXT,CONTROLLER:PLAINTEXT",
			"KAFKA_ADVERTISED_LISTENERS":                     fmt.Sprintf("PLAINTEXT://localhost:29092,PLAINTEXT_HOST://localhost:%s", hostPort),
			"KAFKA_OFFSETS_TOPIC_REPLICATION_FACTOR":         "1",
			"KAFKA_GROUP_INITIAL_REBALANCE_DELAY_MS":         "0",
			"KAFKA_TRANSACTION_STATE_LOG_MIN_ISR":            "1",
			"KAFKA_TRANSACTION_STATE_LOG_REPLICATION_FACTOR": "1",
			"KAFKA_PROCESS_ROLES":                            "broker,controller",
			"KAFKA_NODE_ID":                                  "1",
			"KAFKA_CONTROLLER_QUORUM_VOTERS":                 "1@localhost:29093",
			"KAFKA_LISTENERS":                                "PLAINTEXT://0.0.0.0:29092,PLAINTEXT_HOST://0.0.0.0:9092,CONTROLLER://0.0.0.0:29093",
			"KAFKA_INTER_BROKER_LISTENER_NAME":               "PLAINTEXT",
			"KAFKA_CONTROLLER_LISTENER_NAMES":                "CONTROLLER",
			"KAFKA_LOG_DIRS":                                 "/tmp/kraft-combined-logs",
			"CLUSTER_ID":                                     "MkU3OEVBNTcwNTJENDM2Qk",
			"KAFKA_AUTO_CREATE_TOPICS_ENABLE":                "true",
		},
		HostConfigModifier: func(cfg *container.HostConfig) {
			cfg.PortBindings = portBindings
		},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort("9092/tcp").WithStartupTimeout(60*time.Second),
			wait.ForLog("Kafka Server started").WithStartupTimeout(60*time.Second),
		),
	}

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
			ContainerRequest: req,
			Started:          true,
		})
		if err == nil {
			return c, nil
		}
		lastErr = err
		if strings.Contains(err.Error(), "docker.sock") {
			time.Sleep(time.Duration(attempt+1) * time.Second)
			continue
		}
		break
	}

	return nil, fmt.Errorf("failed to start Kafka container after 3 attempts: %w", lastErr)
}

func getFreePort() (string, error) {
	lc := &net.ListenConfig{}
	l, err := lc.Listen(context.Background(), "tcp", "127.0.0.1:0")
	if err != nil {
		return "", err
	}
	defer func() { _ = l.Close() }()
	return strconv.Itoa(l.Addr().(*net.TCPAddr).Port), nil
}
