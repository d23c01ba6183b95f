package coordinator

import (
	"fmt"
	"time"
)

// PartitionUnavailableError reports a transient sub-request failure.
// The coordinator retries these once before escalating.
type PartitionUnavailableError struct {
	Partition int
	Cause     error
}

func (e *PartitionUnavailableError) Error() string {
	return fmt.Sprintf("partition %d unavailable: %v", e.Partition, e.Cause)
}

func (e *PartitionUnavailableError) Unwrap() error { return e.Cause }

// PartialResultError fails the whole query after retry exhaustion on
// any partition. There is no partial-result mode: a query either sees
// every matching row or returns an error.
type PartialResultError struct {
	Partition int
	Cause     error
}

func (e *PartialResultError) Error() string {
	return fmt.Sprintf("query failed, partition %d did not respond after retry: %v", e.Partition, e.Cause)
}

func (e *PartialResultError) Unwrap() error { return e.Cause }

// QueryTimeoutError reports a query that exceeded its deadline.
// Outstanding sub-requests are abandoned best-effort.
type QueryTimeoutError struct {
	QueryID string
	Timeout time.Duration
}

func (e *QueryTimeoutError) Error() string {
	return fmt.Sprintf("query %s timed out after %s", e.QueryID, e.Timeout)
}
