package recurring

import (
	"errors"
	"testing"
	"time"

	"github.com/angelmondragon/liftbooks-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/liftbooks-backend/pkg/errors"
)

func TestTransitionInvoiceGeneratedStaysActive(t *testing.T) {
	p := validProfile()
	p.StartDate = day(2024, time.January, 1)

	next, err := Transition(p, EventInvoiceGenerated, day(2024, time.February, 1))
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if next.Status != enums.RecurringProfileStatusActive {
		t.Fatalf("expected active, got %s", next.Status)
	}
	if next.LastInvoiceDate == nil || !next.LastInvoiceDate.Equal(day(2024, time.February, 1)) {
		t.Fatalf("expected last invoice 2024-02-01, got %v", next.LastInvoiceDate)
	}
	due, err := next.NextDueDate()
	if err != nil || due == nil || !due.Equal(day(2024, time.March, 1)) {
		t.Fatalf("expected next due 2024-03-01, got %v %v", due, err)
	}
}

func TestTransitionInvoiceGeneratedCompletesPastEndDate(t *testing.T) {
	p := validProfile()
	p.StartDate = day(2024, time.January, 1)
	p.EndDate = ptr(day(2024, time.February, 15))

	next, err := Transition(p, EventInvoiceGenerated, day(2024, time.February, 1))
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if next.Status != enums.RecurringProfileStatusCompleted {
		t.Fatalf("expected completed, got %s", next.Status)
	}
	summary, err := Summarize(next)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if summary.NextInvoiceDate != nil {
		t.Fatalf("completed profile has no next date, got %v", summary.NextInvoiceDate)
	}
}

func TestTransitionDoesNotMutateInput(t *testing.T) {
	p := validProfile()
	p.StartDate = day(2024, time.January, 1)
	last := day(2024, time.February, 1)
	p.LastInvoiceDate = &last

	if _, err := Transition(p, EventInvoiceGenerated, day(2024, time.March, 1)); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if _, err := Transition(p, EventCancel, day(2024, time.March, 2)); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if p.Status != enums.RecurringProfileStatusActive {
		t.Fatalf("input status mutated to %s", p.Status)
	}
	if !p.LastInvoiceDate.Equal(day(2024, time.February, 1)) || !last.Equal(day(2024, time.February, 1)) {
		t.Fatalf("input last invoice date mutated to %v", p.LastInvoiceDate)
	}
}

func TestTransitionCancel(t *testing.T) {
	next, err := Transition(validProfile(), EventCancel, day(2024, time.March, 1))
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if next.Status != enums.RecurringProfileStatusCancelled {
		t.Fatalf("expected cancelled, got %s", next.Status)
	}
	if next.LastInvoiceDate != nil {
		t.Fatalf("cancel must not touch last invoice date")
	}
}

func TestTransitionTerminalStatesReject(t *testing.T) {
	events := []Event{EventInvoiceGenerated, EventCancel, EventScheduleExhausted}
	for _, status := range []enums.RecurringProfileStatus{enums.RecurringProfileStatusCompleted, enums.RecurringProfileStatusCancelled} {
		for _, event := range events {
			p := validProfile()
			p.Status = status

			got, err := Transition(p, event, day(2024, time.March, 1))
			if !errors.Is(err, ErrInvalidTransition) {
				t.Fatalf("%s/%s: expected ErrInvalidTransition, got %v", status, event, err)
			}
			if !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
				t.Fatalf("%s/%s: expected state conflict code, got %v", status, event, err)
			}
			if got.Status != status {
				t.Fatalf("%s/%s: status changed to %s", status, event, got.Status)
			}
		}
	}
}

func TestTransitionRejectsUnknownEvent(t *testing.T) {
	_, err := Transition(validProfile(), "pause", day(2024, time.March, 1))
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestTransitionRejectsOutOfScheduleInvoiceDates(t *testing.T) {
	p := validProfile()
	p.StartDate = day(2024, time.January, 1)
	p.EndDate = ptr(day(2024, time.June, 30))

	if _, err := Transition(p, EventInvoiceGenerated, day(2023, time.December, 31)); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected rejection before start date, got %v", err)
	}
	if _, err := Transition(p, EventInvoiceGenerated, day(2024, time.July, 1)); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected rejection after end date, got %v", err)
	}

	last := day(2024, time.March, 1)
	p.LastInvoiceDate = &last
	if _, err := Transition(p, EventInvoiceGenerated, last); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected rejection of a repeated invoice date, got %v", err)
	}
}

func TestTransitionScheduleExhausted(t *testing.T) {
	p := validProfile()
	p.StartDate = day(2024, time.January, 1)
	p.EndDate = ptr(day(2024, time.January, 20))

	next, err := Transition(p, EventScheduleExhausted, day(2024, time.January, 21))
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if next.Status != enums.RecurringProfileStatusCompleted {
		t.Fatalf("expected completed, got %s", next.Status)
	}

	open := validProfile()
	if _, err := Transition(open, EventScheduleExhausted, day(2024, time.March, 1)); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected rejection while a next date exists, got %v", err)
	}
}

func TestNextDueDateUsesAnchor(t *testing.T) {
	p := validProfile()
	p.StartDate = day(2024, time.January, 31)

	due, err := p.NextDueDate()
	if err != nil || due == nil || !due.Equal(day(2024, time.February, 29)) {
		t.Fatalf("expected first due 2024-02-29, got %v %v", due, err)
	}

	last := day(2024, time.February, 29)
	p.LastInvoiceDate = &last
	due, err = p.NextDueDate()
	if err != nil || due == nil || !due.Equal(day(2024, time.March, 29)) {
		t.Fatalf("expected next due 2024-03-29, got %v %v", due, err)
	}
	if due.Before(p.StartDate) {
		t.Fatalf("next due date precedes start date")
	}
}

func TestIsDue(t *testing.T) {
	p := validProfile()
	p.StartDate = day(2024, time.January, 1)

	due, at, err := p.IsDue(day(2024, time.January, 31))
	if err != nil || due {
		t.Fatalf("not due before 2024-02-01, got %v %v", due, err)
	}
	due, at, err = p.IsDue(time.Date(2024, time.February, 1, 18, 0, 0, 0, time.UTC))
	if err != nil || !due || !at.Equal(day(2024, time.February, 1)) {
		t.Fatalf("expected due on 2024-02-01, got %v %v %v", due, at, err)
	}

	p.Status = enums.RecurringProfileStatusCancelled
	due, _, err = p.IsDue(day(2030, time.January, 1))
	if err != nil || due {
		t.Fatalf("cancelled profiles are never due, got %v %v", due, err)
	}
}
