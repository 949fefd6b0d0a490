package enums

// RecurringProfileStatus is the recurring_profile_status column.
type RecurringProfileStatus string

const (
	RecurringProfileStatusActive    RecurringProfileStatus = "active"
	RecurringProfileStatusCompleted RecurringProfileStatus = "completed"
	RecurringProfileStatusCancelled RecurringProfileStatus = "cancelled"
)

var recurringProfileStatuses = set[RecurringProfileStatus]{
	RecurringProfileStatusActive,
	RecurringProfileStatusCompleted,
	RecurringProfileStatusCancelled,
}

func (s RecurringProfileStatus) String() string { return string(s) }

func (s RecurringProfileStatus) IsValid() bool { return recurringProfileStatuses.contains(s) }

// IsTerminal is true for completed and cancelled; neither accepts further
// transitions.
func (s RecurringProfileStatus) IsTerminal() bool {
	return s == RecurringProfileStatusCompleted || s == RecurringProfileStatusCancelled
}

func ParseRecurringProfileStatus(raw string) (RecurringProfileStatus, error) {
	return recurringProfileStatuses.parse("recurring profile status", raw)
}
