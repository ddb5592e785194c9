package rxkafka

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// producerMetrics holds the Prometheus instruments tracking one producer
// template. Each template owns a private registry so Metrics reflects only
// this client and multiple templates in one process never collide on
// registration. The client_id label is stamped onto every series via a
// wrapped registerer.
type producerMetrics struct {
	registry *prometheus.Registry

	recordsSent     *prometheus.CounterVec
	bytesSent       *prometheus.CounterVec
	sendDuration    *prometheus.HistogramVec
	flushes         prometheus.Counter
	bufferedRecords prometheus.GaugeFunc
}

// newProducerMetrics registers producer instruments. buffered is sampled on
// every gather and reports records sitting in the client awaiting delivery.
func newProducerMetrics(clientID string, buffered func() int64) *producerMetrics {
	registry := prometheus.NewRegistry()
	registerer := prometheus.WrapRegistererWith(prometheus.Labels{"client_id": clientID}, registry)

	m := &producerMetrics{
		registry: registry,
		recordsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rxkafka_producer_records_sent_total",
			Help: "Records produced, partitioned by topic and outcome.",
		}, []string{"topic", "outcome"}),
		bytesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rxkafka_producer_bytes_sent_total",
			Help: "Serialized key and value bytes successfully delivered, by topic.",
		}, []string{"topic"}),
		sendDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rxkafka_producer_send_duration_seconds",
			Help:    "Latency from send submission to broker acknowledgment.",
			Buckets: prometheus.DefBuckets,
		}, []string{"topic"}),
		flushes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rxkafka_producer_flushes_total",
			Help: "Explicit flush calls.",
		}),
		bufferedRecords: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "rxkafka_producer_buffered_records",
			Help: "Records buffered in the client awaiting delivery.",
		}, func() float64 { return float64(buffered()) }),
	}

	registerer.MustRegister(m.recordsSent, m.bytesSent, m.sendDuration, m.flushes, m.bufferedRecords)
	return m
}

// observeSend records the outcome of one send.
func (m *producerMetrics) observeSend(topic string, bytes int, duration time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.recordsSent.WithLabelValues(topic, outcome).Inc()
	if err == nil {
		m.bytesSent.WithLabelValues(topic).Add(float64(bytes))
		m.sendDuration.WithLabelValues(topic).Observe(duration.Seconds())
	}
}

// consumerMetrics holds the Prometheus instruments tracking one consumer
// template, in its own registry like producerMetrics.
type consumerMetrics struct {
	registry *prometheus.Registry

	recordsReceived    *prometheus.CounterVec
	bytesReceived      *prometheus.CounterVec
	commits            *prometheus.CounterVec
	pollErrors         prometheus.Counter
	assignedPartitions prometheus.Gauge
	bufferedRecords    prometheus.GaugeFunc
}

// newConsumerMetrics registers consumer instruments. buffered is sampled on
// every gather and reports fetched records not yet handed to the caller.
func newConsumerMetrics(clientID, groupID string, buffered func() int64) *consumerMetrics {
	registry := prometheus.NewRegistry()
	labels := prometheus.Labels{"client_id": clientID}
	if groupID != "" {
		labels["group_id"] = groupID
	}
	registerer := prometheus.WrapRegistererWith(labels, registry)

	m := &consumerMetrics{
		registry: registry,
		recordsReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rxkafka_consumer_records_received_total",
			Help: "Records delivered to the receive stream, by topic.",
		}, []string{"topic"}),
		bytesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rxkafka_consumer_bytes_received_total",
			Help: "Key and value bytes delivered to the receive stream, by topic.",
		}, []string{"topic"}),
		commits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rxkafka_consumer_commits_total",
			Help: "Manual offset commits, by outcome.",
		}, []string{"outcome"}),
		pollErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rxkafka_consumer_poll_errors_total",
			Help: "Fetch errors observed while polling.",
		}),
		assignedPartitions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rxkafka_consumer_assigned_partitions",
			Help: "Partitions currently assigned to this group member.",
		}),
		bufferedRecords: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "rxkafka_consumer_buffered_records",
			Help: "Fetched records buffered in the client awaiting the caller.",
		}, func() float64 { return float64(buffered()) }),
	}

	registerer.MustRegister(m.recordsReceived, m.bytesReceived, m.commits, m.pollErrors, m.assignedPartitions, m.bufferedRecords)
	return m
}

// observeRecord records delivery of one record to the receive stream.
func (m *consumerMetrics) observeRecord(topic string, bytes int) {
	m.recordsReceived.WithLabelValues(topic).Inc()
	m.bytesReceived.WithLabelValues(topic).Add(float64(bytes))
}

// observeCommit records the outcome of one manual offset commit.
func (m *consumerMetrics) observeCommit(err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.commits.WithLabelValues(outcome).Inc()
}

// snapshotRegistry gathers a registry into a flat metric-identity -> value
// map. Counters and gauges map directly; histograms and summaries contribute
// _count and _sum entries so they remain visible in the flat view.
func snapshotRegistry(registry *prometheus.Registry) (map[string]float64, error) {
	families, err := registry.Gather()
	if err != nil {
		return nil, fmt.Errorf("failed to gather metrics: %w", err)
	}

	snapshot := make(map[string]float64)
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			switch family.GetType() {
			case dto.MetricType_COUNTER:
				snapshot[metricKey(family.GetName(), metric.GetLabel())] = metric.GetCounter().GetValue()
			case dto.MetricType_GAUGE:
				snapshot[metricKey(family.GetName(), metric.GetLabel())] = metric.GetGauge().GetValue()
			case dto.MetricType_HISTOGRAM:
				histogram := metric.GetHistogram()
				snapshot[metricKey(family.GetName()+"_count", metric.GetLabel())] = float64(histogram.GetSampleCount())
				snapshot[metricKey(family.GetName()+"_sum", metric.GetLabel())] = histogram.GetSampleSum()
			case dto.MetricType_SUMMARY:
				summary := metric.GetSummary()
				snapshot[metricKey(family.GetName()+"_count", metric.GetLabel())] = float64(summary.GetSampleCount())
				snapshot[metricKey(family.GetName()+"_sum", metric.GetLabel())] = summary.GetSampleSum()
			case dto.MetricType_UNTYPED:
				snapshot[metricKey(family.GetName(), metric.GetLabel())] = metric.GetUntyped().GetValue()
			}
		}
	}
	return snapshot, nil
}

// metricKey renders a metric identity as name or name{k="v",...} with labels
// in sorted order.
func metricKey(name string, labels []*dto.LabelPair) string {
	if len(labels) == 0 {
		return name
	}
	pairs := make([]string, 0, len(labels))
	for _, label := range labels {
		pairs = append(pairs, fmt.Sprintf("%s=%q", label.GetName(), label.GetValue()))
	}
	sort.Strings(pairs)
	return name + "{" + strings.Join(pairs, ",") + "}"
}
