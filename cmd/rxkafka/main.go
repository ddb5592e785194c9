// Package main provides the rxkafka command line tool for publishing to,
// streaming from, and inspecting Kafka topics with the reactive templates.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/meridian-labs/rxkafka"
	"github.com/meridian-labs/rxkafka/config"
	"github.com/meridian-labs/rxkafka/logger"
)

var (
	cfgPath   string
	cfg       *config.File
	appLogger *logger.Client
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "rxkafka",
	Short: "rxkafka - reactive Kafka producer and consumer tooling",
	Long: `rxkafka drives the reactive Kafka templates from the command line.

It publishes records with per-record delivery confirmation, streams records
from topics with optional offset commits, inspects partition layouts, and
exposes producer/consumer metrics for Prometheus scraping.

Broker addresses, client identifiers, and security settings come from a YAML
configuration file (see --config); RXKAFKA_* environment variables override
the file for deployment-specific values.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		appLogger = logger.NewClient(cfg.LoggerConfig())
		return nil
	},
}

// produceCmd publishes records one at a time and waits for each delivery
// confirmation before printing its metadata.
var produceCmd = &cobra.Command{
	Use:   "produce [topic]",
	Short: "Publish records to a topic and print delivery metadata",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		topic := args[0]

		key, err := cmd.Flags().GetString("key")
		if err != nil {
			return err
		}
		value, err := cmd.Flags().GetString("value")
		if err != nil {
			return err
		}
		count, err := cmd.Flags().GetInt("count")
		if err != nil {
			return err
		}
		partition, err := cmd.Flags().GetInt32("partition")
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		producer, err := rxkafka.NewProducerTemplate(cfg.ProducerConfig())
		if err != nil {
			return fmt.Errorf("failed to create producer: %w", err)
		}
		producer = producer.WithLogger(appLogger)
		defer func() {
			err = multierr.Append(err, producer.Close(context.Background()))
		}()

		for i := 0; i < count; i++ {
			rec := rxkafka.NewOutgoing(topic, value)
			rec.Token = uuid.NewString()
			if key != "" {
				rec.Key = key
			}
			if partition >= 0 {
				rec.Partition = partition
			}

			result := <-producer.Send(ctx, rec)
			if result.Err != nil {
				return fmt.Errorf("failed to deliver record: %w", result.Err)
			}
			fmt.Printf("delivered token=%v topic=%s partition=%d offset=%d\n",
				result.Token, result.Metadata.Topic, result.Metadata.Partition, result.Metadata.Offset)
		}
		return nil
	},
}

// consumeCmd streams records from the configured topics to stdout. When the
// configuration names a consumer group with auto-commit disabled, each record
// is committed after it is printed.
var consumeCmd = &cobra.Command{
	Use:   "consume",
	Short: "Stream records from the configured topics",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		maxRecords, err := cmd.Flags().GetInt("max")
		if err != nil {
			return err
		}
		listenAddr, err := cmd.Flags().GetString("listen")
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		consumerCfg := cfg.ConsumerConfig()
		consumer, err := rxkafka.NewConsumerTemplate(consumerCfg)
		if err != nil {
			return fmt.Errorf("failed to create consumer: %w", err)
		}
		consumer = consumer.WithLogger(appLogger)
		defer func() {
			err = multierr.Append(err, consumer.Close(context.Background()))
		}()

		if listenAddr != "" {
			metricsServer := &http.Server{
				Addr:    listenAddr,
				Handler: promhttp.HandlerFor(consumer.Registry(), promhttp.HandlerOpts{}),
			}
			go func() {
				if serveErr := metricsServer.ListenAndServe(); serveErr != nil && serveErr != http.ErrServerClosed {
					appLogger.Error("Metrics server failed", serveErr)
				}
			}()
			defer func() {
				err = multierr.Append(err, metricsServer.Shutdown(context.Background()))
			}()
		}

		records, err := consumer.Receive(ctx)
		if err != nil {
			return fmt.Errorf("failed to start receive stream: %w", err)
		}

		manualCommit := consumerCfg.GroupID != "" && !consumerCfg.EnableAutoCommit
		received := 0
		for in := range records {
			fmt.Printf("topic=%s partition=%d offset=%d key=%q value=%q\n",
				in.Topic, in.Partition, in.Offset, in.Key, in.Value)
			if manualCommit {
				if ackErr := in.Ack(ctx); ackErr != nil {
					return fmt.Errorf("failed to commit offset: %w", ackErr)
				}
			}
			received++
			if maxRecords > 0 && received >= maxRecords {
				break
			}
		}
		return nil
	},
}

// partitionsCmd prints the partition layout of a topic.
var partitionsCmd = &cobra.Command{
	Use:   "partitions [topic]",
	Short: "Show partition leaders, replicas, and in-sync replicas for a topic",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		topic := args[0]

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		producer, err := rxkafka.NewProducerTemplate(cfg.ProducerConfig())
		if err != nil {
			return fmt.Errorf("failed to create producer: %w", err)
		}
		producer = producer.WithLogger(appLogger)
		defer func() {
			err = multierr.Append(err, producer.Close(context.Background()))
		}()

		partitions, err := producer.PartitionsFor(ctx, topic)
		if err != nil {
			return fmt.Errorf("failed to fetch partition metadata: %w", err)
		}
		for _, p := range partitions {
			fmt.Printf("partition=%d leader=%d replicas=%v isr=%v\n",
				p.Partition, p.Leader, p.Replicas, p.ISR)
		}
		return nil
	},
}

// metricsCmd publishes a few probe records and prints the resulting producer
// metrics snapshot, one metric per line, sorted by name.
var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Publish probe records and print the producer metrics snapshot",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		topic, err := cmd.Flags().GetString("topic")
		if err != nil {
			return err
		}
		probes, err := cmd.Flags().GetInt("probes")
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		producer, err := rxkafka.NewProducerTemplate(cfg.ProducerConfig())
		if err != nil {
			return fmt.Errorf("failed to create producer: %w", err)
		}
		producer = producer.WithLogger(appLogger)
		defer func() {
			err = multierr.Append(err, producer.Close(context.Background()))
		}()

		for i := 0; i < probes; i++ {
			rec := rxkafka.NewOutgoing(topic, fmt.Sprintf("probe-%s", uuid.NewString()))
			if result := <-producer.Send(ctx, rec); result.Err != nil {
				return fmt.Errorf("failed to deliver probe record: %w", result.Err)
			}
		}

		snapshot, err := producer.Metrics()
		if err != nil {
			return fmt.Errorf("failed to collect metrics: %w", err)
		}
		names := make([]string, 0, len(snapshot))
		for name := range snapshot {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("%s %v\n", name, snapshot[name])
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "rxkafka.yaml", "Path to the YAML configuration file")

	produceCmd.Flags().String("key", "", "Record key (routes the record through the murmur2 partitioner when set)")
	produceCmd.Flags().String("value", "", "Record value")
	produceCmd.Flags().Int("count", 1, "Number of records to publish")
	produceCmd.Flags().Int32("partition", rxkafka.PartitionAny, "Explicit target partition (negative lets the partitioner choose)")

	consumeCmd.Flags().Int("max", 0, "Stop after this many records (0 streams until interrupted)")
	consumeCmd.Flags().String("listen", "", "Expose consumer metrics for Prometheus on this address (e.g. :9091)")

	metricsCmd.Flags().String("topic", "rxkafka-probe", "Topic to publish probe records to")
	metricsCmd.Flags().Int("probes", 3, "Number of probe records to publish before the snapshot")

	rootCmd.AddCommand(produceCmd)
	rootCmd.AddCommand(consumeCmd)
	rootCmd.AddCommand(partitionsCmd)
	rootCmd.AddCommand(metricsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
