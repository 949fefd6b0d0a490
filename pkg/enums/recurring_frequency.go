package enums

// RecurringFrequency is the recurring_frequency column. Values are a count
// followed by a unit; a bare unit means one.
type RecurringFrequency string

const (
	RecurringFrequencyWeek    RecurringFrequency = "week"
	RecurringFrequency2Weeks  RecurringFrequency = "2week"
	RecurringFrequencyMonth   RecurringFrequency = "month"
	RecurringFrequency2Months RecurringFrequency = "2month"
	RecurringFrequency3Months RecurringFrequency = "3month"
	RecurringFrequency6Months RecurringFrequency = "6month"
	RecurringFrequencyYear    RecurringFrequency = "year"
	RecurringFrequency2Years  RecurringFrequency = "2year"
)

var recurringFrequencies = set[RecurringFrequency]{
	RecurringFrequencyWeek,
	RecurringFrequency2Weeks,
	RecurringFrequencyMonth,
	RecurringFrequency2Months,
	RecurringFrequency3Months,
	RecurringFrequency6Months,
	RecurringFrequencyYear,
	RecurringFrequency2Years,
}

// RecurringFrequencies returns a copy of every frequency, shortest step first.
func RecurringFrequencies() []RecurringFrequency {
	return append([]RecurringFrequency(nil), recurringFrequencies...)
}

func (f RecurringFrequency) String() string { return string(f) }

func (f RecurringFrequency) IsValid() bool { return recurringFrequencies.contains(f) }

func ParseRecurringFrequency(raw string) (RecurringFrequency, error) {
	return recurringFrequencies.parse("recurring frequency", raw)
}
