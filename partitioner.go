package rxkafka

import (
	"github.com/twmb/franz-go/pkg/kgo"
)

// recordPartitioner honors explicit partition assignments and delegates
// everything else to murmur2 sticky-key partitioning, the same placement the
// Java client computes. Records produced through the templates carry
// PartitionAny (-1) unless a partition was requested, so the zero partition
// remains addressable explicitly.
type recordPartitioner struct {
	fallback kgo.Partitioner
}

// newRecordPartitioner creates the partitioner installed on every producer
// client.
func newRecordPartitioner() kgo.Partitioner {
	return &recordPartitioner{fallback: kgo.StickyKeyPartitioner(nil)}
}

func (p *recordPartitioner) ForTopic(topic string) kgo.TopicPartitioner {
	return &recordTopicPartitioner{fallback: p.fallback.ForTopic(topic)}
}

type recordTopicPartitioner struct {
	fallback kgo.TopicPartitioner
}

// RequiresConsistency reports whether the record must always map to the same
// partition. Explicit partitions are always consistent; otherwise the
// decision is the fallback's (keyed records yes, keyless no).
func (p *recordTopicPartitioner) RequiresConsistency(r *kgo.Record) bool {
	if r.Partition >= 0 {
		return true
	}
	return p.fallback.RequiresConsistency(r)
}

// Partition picks the partition for a record among n candidates. An explicit
// partition is returned as-is; the client fails records whose explicit
// partition does not exist rather than silently rerouting them.
func (p *recordTopicPartitioner) Partition(r *kgo.Record, n int) int {
	if r.Partition >= 0 {
		return int(r.Partition)
	}
	return p.fallback.Partition(r, n)
}
