package rxkafka

import (
	"context"
	"errors"
	"strings"

	"github.com/twmb/franz-go/pkg/kerr"
)

// Common error types that can be used by consumers of this package.
// These provide a standardized set of errors that abstract away the
// underlying Kafka-specific error details.
var (
	// ErrBrokersRequired is returned when no seed brokers are configured
	ErrBrokersRequired = errors.New("brokers are required")

	// ErrTopicRequired is returned when an operation is missing its topic
	ErrTopicRequired = errors.New("topic is required")

	// ErrRecordRequired is returned when a nil record or message is submitted
	ErrRecordRequired = errors.New("record is required")

	// ErrProducerClosed is returned when a producer template is used after Close
	ErrProducerClosed = errors.New("producer is closed")

	// ErrConsumerClosed is returned when a consumer template is used after Close
	ErrConsumerClosed = errors.New("consumer is closed")

	// ErrReceiveActive is returned when a receive stream is already open
	ErrReceiveActive = errors.New("receive stream already active")

	// ErrGroupRequired is returned when an offset commit is attempted on a
	// consumer that was configured without a group
	ErrGroupRequired = errors.New("consumer group is required")

	// ErrSerialization is returned when a record key or value cannot be encoded
	ErrSerialization = errors.New("serialization failed")

	// ErrDeserialization is returned when a record key or value cannot be decoded
	ErrDeserialization = errors.New("deserialization failed")

	// ErrConnectionFailed is returned when connection to Kafka cannot be established
	ErrConnectionFailed = errors.New("connection failed")

	// ErrConnectionLost is returned when connection to Kafka is lost
	ErrConnectionLost = errors.New("connection lost")

	// ErrBrokerNotAvailable is returned when broker is not available
	ErrBrokerNotAvailable = errors.New("broker not available")

	// ErrReplicaNotAvailable is returned when replica is not available
	ErrReplicaNotAvailable = errors.New("replica not available")

	// ErrAuthenticationFailed is returned when authentication fails
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrAuthorizationFailed is returned when authorization fails
	ErrAuthorizationFailed = errors.New("authorization failed")

	// ErrTopicNotFound is returned when topic doesn't exist
	ErrTopicNotFound = errors.New("topic not found")

	// ErrTopicAlreadyExists is returned when topic already exists
	ErrTopicAlreadyExists = errors.New("topic already exists")

	// ErrPartitionNotFound is returned when partition doesn't exist
	ErrPartitionNotFound = errors.New("partition not found")

	// ErrInvalidPartition is returned when partition is invalid
	ErrInvalidPartition = errors.New("invalid partition")

	// ErrGroupNotFound is returned when consumer group doesn't exist
	ErrGroupNotFound = errors.New("consumer group not found")

	// ErrGroupCoordinatorNotAvailable is returned when group coordinator is not available
	ErrGroupCoordinatorNotAvailable = errors.New("group coordinator not available")

	// ErrNotGroupCoordinator is returned when broker is not the group coordinator
	ErrNotGroupCoordinator = errors.New("not group coordinator")

	// ErrRebalanceInProgress is returned when rebalance is in progress
	ErrRebalanceInProgress = errors.New("rebalance in progress")

	// ErrOffsetOutOfRange is returned when offset is out of range
	ErrOffsetOutOfRange = errors.New("offset out of range")

	// ErrInvalidCommitOffset is returned when commit offset is invalid
	ErrInvalidCommitOffset = errors.New("invalid commit offset")

	// ErrMessageTooLarge is returned when message exceeds size limits
	ErrMessageTooLarge = errors.New("message too large")

	// ErrLeaderNotAvailable is returned when leader is not available
	ErrLeaderNotAvailable = errors.New("leader not available")

	// ErrNotLeaderForPartition is returned when broker is not the leader for partition
	ErrNotLeaderForPartition = errors.New("not leader for partition")

	// ErrRequestTimedOut is returned when request times out
	ErrRequestTimedOut = errors.New("request timed out")

	// ErrNetworkError is returned for network-related errors
	ErrNetworkError = errors.New("network error")

	// ErrUnsupportedVersion is returned when version is not supported
	ErrUnsupportedVersion = errors.New("unsupported version")

	// ErrInvalidConfig is returned when configuration is invalid
	ErrInvalidConfig = errors.New("invalid config")

	// ErrInvalidReplicationFactor is returned when replication factor is invalid
	ErrInvalidReplicationFactor = errors.New("invalid replication factor")

	// ErrContextCanceled is returned when context is canceled
	ErrContextCanceled = errors.New("context canceled")

	// ErrContextDeadlineExceeded is returned when context deadline is exceeded
	ErrContextDeadlineExceeded = errors.New("context deadline exceeded")
)

// TranslateError converts Kafka-specific errors into standardized application errors.
// This function provides abstraction from the underlying Kafka implementation details,
// allowing application code to handle errors in a Kafka-agnostic way.
//
// Typed broker error codes are matched first, then common message patterns.
// If an error doesn't match any known type, it's returned unchanged.
func TranslateError(err error) error {
	if err == nil {
		return nil
	}

	// Check typed broker error codes first
	if translated := translateKafkaError(err); translated != nil {
		return translated
	}

	// Check error message for common patterns
	errMsg := strings.ToLower(err.Error())
	return translateByErrorMessage(errMsg, err)
}

// translateKafkaError translates typed broker error codes.
// Returns nil when the error carries no recognized code.
func translateKafkaError(err error) error {
	switch {
	case errors.Is(err, kerr.BrokerNotAvailable):
		return ErrBrokerNotAvailable
	case errors.Is(err, kerr.ReplicaNotAvailable):
		return ErrReplicaNotAvailable
	case errors.Is(err, kerr.SaslAuthenticationFailed):
		return ErrAuthenticationFailed
	case errors.Is(err, kerr.TopicAuthorizationFailed),
		errors.Is(err, kerr.GroupAuthorizationFailed),
		errors.Is(err, kerr.ClusterAuthorizationFailed):
		return ErrAuthorizationFailed
	case errors.Is(err, kerr.UnknownTopicOrPartition):
		return ErrTopicNotFound
	case errors.Is(err, kerr.TopicAlreadyExists):
		return ErrTopicAlreadyExists
	case errors.Is(err, kerr.InvalidPartitions):
		return ErrInvalidPartition
	case errors.Is(err, kerr.GroupIDNotFound):
		return ErrGroupNotFound
	case errors.Is(err, kerr.CoordinatorNotAvailable):
		return ErrGroupCoordinatorNotAvailable
	case errors.Is(err, kerr.NotCoordinator):
		return ErrNotGroupCoordinator
	case errors.Is(err, kerr.RebalanceInProgress):
		return ErrRebalanceInProgress
	case errors.Is(err, kerr.OffsetOutOfRange):
		return ErrOffsetOutOfRange
	case errors.Is(err, kerr.MessageTooLarge), errors.Is(err, kerr.RecordListTooLarge):
		return ErrMessageTooLarge
	case errors.Is(err, kerr.LeaderNotAvailable):
		return ErrLeaderNotAvailable
	case errors.Is(err, kerr.NotLeaderForPartition):
		return ErrNotLeaderForPartition
	case errors.Is(err, kerr.RequestTimedOut):
		return ErrRequestTimedOut
	case errors.Is(err, kerr.NetworkException):
		return ErrNetworkError
	case errors.Is(err, kerr.UnsupportedVersion):
		return ErrUnsupportedVersion
	case errors.Is(err, kerr.InvalidReplicationFactor):
		return ErrInvalidReplicationFactor
	case errors.Is(err, context.Canceled):
		return ErrContextCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return ErrContextDeadlineExceeded
	default:
		return nil
	}
}

// translateByErrorMessage translates errors based on error message patterns
func translateByErrorMessage(errMsg string, originalErr error) error {
	switch {
	// Connection related
	case strings.Contains(errMsg, "connection refused"):
		return ErrConnectionFailed
	case strings.Contains(errMsg, "connection reset"):
		return ErrConnectionLost
	case strings.Contains(errMsg, "connection closed"):
		return ErrConnectionLost
	case strings.Contains(errMsg, "broker not available"):
		return ErrBrokerNotAvailable
	case strings.Contains(errMsg, "replica not available"):
		return ErrReplicaNotAvailable

	// Authentication and authorization
	case strings.Contains(errMsg, "authentication failed"):
		return ErrAuthenticationFailed
	case strings.Contains(errMsg, "sasl authentication failed"):
		return ErrAuthenticationFailed
	case strings.Contains(errMsg, "authorization failed"):
		return ErrAuthorizationFailed

	// Topic and partition errors
	case strings.Contains(errMsg, "topic not found"):
		return ErrTopicNotFound
	case strings.Contains(errMsg, "unknown topic"):
		return ErrTopicNotFound
	case strings.Contains(errMsg, "topic already exists"):
		return ErrTopicAlreadyExists
	case strings.Contains(errMsg, "partition not found"):
		return ErrPartitionNotFound
	case strings.Contains(errMsg, "unknown partition"):
		return ErrPartitionNotFound
	case strings.Contains(errMsg, "invalid partition"):
		return ErrInvalidPartition

	// Consumer group errors
	case strings.Contains(errMsg, "group coordinator not available"):
		return ErrGroupCoordinatorNotAvailable
	case strings.Contains(errMsg, "not coordinator for group"):
		return ErrNotGroupCoordinator
	case strings.Contains(errMsg, "not group coordinator"):
		return ErrNotGroupCoordinator
	case strings.Contains(errMsg, "rebalance in progress"):
		return ErrRebalanceInProgress

	// Offset errors
	case strings.Contains(errMsg, "offset out of range"):
		return ErrOffsetOutOfRange
	case strings.Contains(errMsg, "invalid commit offset"):
		return ErrInvalidCommitOffset

	// Message errors
	case strings.Contains(errMsg, "message too large"):
		return ErrMessageTooLarge
	case strings.Contains(errMsg, "record too large"):
		return ErrMessageTooLarge

	// Leader errors
	case strings.Contains(errMsg, "leader not available"):
		return ErrLeaderNotAvailable
	case strings.Contains(errMsg, "not leader for partition"):
		return ErrNotLeaderForPartition

	// Timeout errors
	case strings.Contains(errMsg, "request timed out"):
		return ErrRequestTimedOut
	case strings.Contains(errMsg, "deadline exceeded"):
		return ErrContextDeadlineExceeded
	case strings.Contains(errMsg, "timeout"):
		return ErrRequestTimedOut

	// Network errors
	case strings.Contains(errMsg, "network"):
		return ErrNetworkError
	case strings.Contains(errMsg, "dial"):
		return ErrNetworkError
	case strings.Contains(errMsg, "i/o timeout"):
		return ErrNetworkError

	// Version errors
	case strings.Contains(errMsg, "unsupported version"):
		return ErrUnsupportedVersion

	// Configuration errors
	case strings.Contains(errMsg, "invalid config"):
		return ErrInvalidConfig
	case strings.Contains(errMsg, "invalid replication factor"):
		return ErrInvalidReplicationFactor

	// Context errors
	case strings.Contains(errMsg, "context canceled"):
		return ErrContextCanceled
	case strings.Contains(errMsg, "context cancelled"):
		return ErrContextCanceled

	default:
		// Return the original error if no pattern matches
		return originalErr
	}
}

// IsRetryableError returns true if the error is retryable
func IsRetryableError(err error) bool {
	switch {
	case errors.Is(err, ErrConnectionFailed),
		errors.Is(err, ErrConnectionLost),
		errors.Is(err, ErrBrokerNotAvailable),
		errors.Is(err, ErrReplicaNotAvailable),
		errors.Is(err, ErrLeaderNotAvailable),
		errors.Is(err, ErrNotLeaderForPartition),
		errors.Is(err, ErrRequestTimedOut),
		errors.Is(err, ErrNetworkError),
		errors.Is(err, ErrGroupCoordinatorNotAvailable),
		errors.Is(err, ErrNotGroupCoordinator),
		errors.Is(err, ErrRebalanceInProgress):
		return true
	case kerr.IsRetriable(err):
		// Untranslated broker codes flagged retriable by the protocol
		return true
	default:
		return false
	}
}

// IsTemporaryError returns true if the error is temporary
func IsTemporaryError(err error) bool {
	return IsRetryableError(err) ||
		errors.Is(err, ErrRebalanceInProgress) ||
		errors.Is(err, ErrLeaderNotAvailable)
}

// IsPermanentError returns true if the error is permanent and should not be retried
func IsPermanentError(err error) bool {
	switch {
	case errors.Is(err, ErrAuthenticationFailed),
		errors.Is(err, ErrAuthorizationFailed),
		errors.Is(err, ErrTopicRequired),
		errors.Is(err, ErrRecordRequired),
		errors.Is(err, ErrTopicNotFound),
		errors.Is(err, ErrTopicAlreadyExists),
		errors.Is(err, ErrPartitionNotFound),
		errors.Is(err, ErrInvalidPartition),
		errors.Is(err, ErrMessageTooLarge),
		errors.Is(err, ErrSerialization),
		errors.Is(err, ErrDeserialization),
		errors.Is(err, ErrInvalidConfig),
		errors.Is(err, ErrUnsupportedVersion),
		errors.Is(err, ErrProducerClosed),
		errors.Is(err, ErrConsumerClosed),
		errors.Is(err, ErrContextCanceled):
		return true
	default:
		return false
	}
}

// IsAuthenticationError returns true if the error is authentication-related
func IsAuthenticationError(err error) bool {
	switch {
	case errors.Is(err, ErrAuthenticationFailed),
		errors.Is(err, ErrAuthorizationFailed):
		return true
	default:
		return false
	}
}
