package enums

// OutboxAggregateType is the outbox aggregate_type column.
type OutboxAggregateType string

const AggregateRecurringProfile OutboxAggregateType = "recurring_profile"

var outboxAggregateTypes = set[OutboxAggregateType]{AggregateRecurringProfile}

func (a OutboxAggregateType) IsValid() bool { return outboxAggregateTypes.contains(a) }

// OutboxEventType is the outbox event_type column and names the Pub/Sub
// message type.
type OutboxEventType string

const (
	EventRecurringInvoiceGenerated OutboxEventType = "recurring_invoice_generated"
	EventRecurringProfileCompleted OutboxEventType = "recurring_profile_completed"
	EventRecurringProfileCancelled OutboxEventType = "recurring_profile_cancelled"
)

var outboxEventTypes = set[OutboxEventType]{
	EventRecurringInvoiceGenerated,
	EventRecurringProfileCompleted,
	EventRecurringProfileCancelled,
}

func (e OutboxEventType) IsValid() bool { return outboxEventTypes.contains(e) }

func ParseOutboxEventType(raw string) (OutboxEventType, error) {
	return outboxEventTypes.parse("outbox event type", raw)
}
