package recurring

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/liftbooks-backend/pkg/enums"
	"github.com/angelmondragon/liftbooks-backend/pkg/types"
)

// LineItem is the single billable line a profile invoices every period.
type LineItem struct {
	ItemID     uuid.UUID
	Rate       decimal.NullDecimal
	Quantity   int
	TaxPercent decimal.Decimal
}

// Profile is the schedule and lifecycle view of a recurring invoice profile.
// All dates are calendar days at UTC midnight.
type Profile struct {
	ID              uuid.UUID
	CustomerID      uuid.UUID
	ProfileName     string
	Frequency       enums.RecurringFrequency
	StartDate       time.Time
	EndDate         *time.Time
	Status          enums.RecurringProfileStatus
	LineItem        LineItem
	LastInvoiceDate *time.Time
}

// Anchor returns the date the next step is measured from.
func (p Profile) Anchor() time.Time {
	if p.LastInvoiceDate != nil {
		return types.TruncateDay(*p.LastInvoiceDate)
	}
	return types.TruncateDay(p.StartDate)
}

// NextDueDate derives the next invoice date. Terminal profiles have none.
func (p Profile) NextDueDate() (*time.Time, error) {
	if p.Status.IsTerminal() {
		return nil, nil
	}
	return NextInvoiceDate(p.Anchor(), p.Frequency, p.EndDate)
}

// IsDue reports whether an invoice is owed on or before today.
func (p Profile) IsDue(today time.Time) (bool, *time.Time, error) {
	next, err := p.NextDueDate()
	if err != nil || next == nil {
		return false, nil, err
	}
	return !next.After(types.TruncateDay(today)), next, nil
}

func (p Profile) clone() Profile {
	out := p
	out.EndDate = copyTime(p.EndDate)
	out.LastInvoiceDate = copyTime(p.LastInvoiceDate)
	return out
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// Summary is the derived output shown after any change to a profile.
type Summary struct {
	Status          enums.RecurringProfileStatus
	LastInvoiceDate *time.Time
	NextInvoiceDate *time.Time
	LineTotal       decimal.Decimal
}

// Summarize recomputes the derived fields of p.
func Summarize(p Profile) (Summary, error) {
	next, err := p.NextDueDate()
	if err != nil {
		return Summary{}, err
	}
	return Summary{
		Status:          p.Status,
		LastInvoiceDate: copyTime(p.LastInvoiceDate),
		NextInvoiceDate: next,
		LineTotal:       LineTotal(p.LineItem),
	}, nil
}
