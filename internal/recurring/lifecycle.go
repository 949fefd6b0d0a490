package recurring

import (
	"fmt"
	"time"

	pkgerrors "github.com/angelmondragon/liftbooks-backend/pkg/errors"
	"github.com/angelmondragon/liftbooks-backend/pkg/enums"
	"github.com/angelmondragon/liftbooks-backend/pkg/types"
)

// Event is a lifecycle input applied to a profile.
type Event string

const (
	// EventInvoiceGenerated records that the invoicing run billed one period.
	EventInvoiceGenerated Event = "invoice_generated"
	// EventCancel is a user-initiated stop.
	EventCancel Event = "cancel"
	// EventScheduleExhausted closes an active profile that has no further date.
	EventScheduleExhausted Event = "schedule_exhausted"
)

// Transition applies event to p and returns the resulting profile. p itself is
// never modified. Terminal profiles reject every event.
func Transition(p Profile, event Event, at time.Time) (Profile, error) {
	if p.Status.IsTerminal() {
		return p, invalidTransition(p, event, fmt.Sprintf("profile is %s", p.Status))
	}
	if p.Status != enums.RecurringProfileStatusActive {
		return p, invalidTransition(p, event, fmt.Sprintf("unsupported status %q", p.Status))
	}

	next := p.clone()
	switch event {
	case EventInvoiceGenerated:
		day := types.TruncateDay(at)
		if day.Before(p.Anchor()) || (p.LastInvoiceDate != nil && !day.After(p.Anchor())) {
			return p, invalidTransition(p, event, "invoice date precedes the current schedule")
		}
		if p.EndDate != nil && day.After(types.TruncateDay(*p.EndDate)) {
			return p, invalidTransition(p, event, "invoice date is after the end date")
		}
		next.LastInvoiceDate = &day
		due, err := NextInvoiceDate(day, p.Frequency, p.EndDate)
		if err != nil {
			return p, err
		}
		if due == nil {
			next.Status = enums.RecurringProfileStatusCompleted
		}
		return next, nil

	case EventCancel:
		next.Status = enums.RecurringProfileStatusCancelled
		return next, nil

	case EventScheduleExhausted:
		due, err := p.NextDueDate()
		if err != nil {
			return p, err
		}
		if due != nil {
			return p, invalidTransition(p, event, "schedule still has a next invoice date")
		}
		next.Status = enums.RecurringProfileStatusCompleted
		return next, nil

	default:
		return p, invalidTransition(p, event, "unknown event")
	}
}

func invalidTransition(p Profile, event Event, reason string) error {
	return pkgerrors.Wrap(pkgerrors.CodeStateConflict, ErrInvalidTransition, reason).WithDetails(map[string]any{
		"status": p.Status,
		"event":  event,
	})
}
