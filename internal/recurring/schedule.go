package recurring

import (
	"fmt"
	"time"

	"github.com/angelmondragon/liftbooks-backend/pkg/enums"
	"github.com/angelmondragon/liftbooks-backend/pkg/types"
)

type step struct {
	days   int
	months int
}

var steps = map[enums.RecurringFrequency]step{
	enums.RecurringFrequencyWeek:    {days: 7},
	enums.RecurringFrequency2Weeks:  {days: 14},
	enums.RecurringFrequencyMonth:   {months: 1},
	enums.RecurringFrequency2Months: {months: 2},
	enums.RecurringFrequency3Months: {months: 3},
	enums.RecurringFrequency6Months: {months: 6},
	enums.RecurringFrequencyYear:    {months: 12},
	enums.RecurringFrequency2Years:  {months: 24},
}

// Advance moves anchor forward by one frequency step. Month and year steps clamp
// to the last day of the target month, so Jan 31 + 1 month is Feb 28 (or 29).
func Advance(anchor time.Time, freq enums.RecurringFrequency) (time.Time, error) {
	s, ok := steps[freq]
	if !ok {
		return time.Time{}, fmt.Errorf("%w: %q", ErrUnknownFrequency, freq)
	}
	day := types.TruncateDay(anchor)
	if s.days > 0 {
		return day.AddDate(0, 0, s.days), nil
	}
	return addMonthsClamped(day, s.months), nil
}

// NextInvoiceDate advances anchor by one step of freq. It returns nil when the
// advanced date falls after endDate.
func NextInvoiceDate(anchor time.Time, freq enums.RecurringFrequency, endDate *time.Time) (*time.Time, error) {
	next, err := Advance(anchor, freq)
	if err != nil {
		return nil, err
	}
	if endDate != nil && next.After(types.TruncateDay(*endDate)) {
		return nil, nil
	}
	return &next, nil
}

func addMonthsClamped(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	total := int(m) - 1 + months
	targetYear := y + total/12
	targetMonth := time.Month(total%12 + 1)
	if last := daysIn(targetYear, targetMonth); d > last {
		d = last
	}
	return time.Date(targetYear, targetMonth, d, 0, 0, 0, 0, time.UTC)
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
