package enums

// OutboxDLQErrorReason records why an event was dead-lettered.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)

var outboxDLQErrorReasons = set[OutboxDLQErrorReason]{OutboxDLQReasonMaxAttempts, OutboxDLQReasonNonRetryable}

func (r OutboxDLQErrorReason) IsValid() bool { return outboxDLQErrorReasons.contains(r) }

// OutboxDLQReasonFor picks the reason for an event that will not be retried.
func OutboxDLQReasonFor(nonRetryable bool) OutboxDLQErrorReason {
	if nonRetryable {
		return OutboxDLQReasonNonRetryable
	}
	return OutboxDLQReasonMaxAttempts
}
