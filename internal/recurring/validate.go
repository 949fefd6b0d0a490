package recurring

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/liftbooks-backend/pkg/errors"
	"github.com/angelmondragon/liftbooks-backend/pkg/types"
)

// Field keys reported in validation details. They match the JSON request fields.
const (
	FieldCustomerID  = "customer_id"
	FieldProfileName = "profile_name"
	FieldFrequency   = "frequency"
	FieldStartDate   = "start_date"
	FieldEndDate     = "end_date"
	FieldItemID      = "item.item_id"
	FieldRate        = "item.rate"
	FieldQuantity    = "item.qty"
	FieldTaxPercent  = "item.tax_percent"
	FieldLastInvoice = "last_invoice_date"
	FieldLineTotal   = "line_total"
)

// Stored amounts are numeric(12,2) and tax percents numeric(5,2).
var (
	maxAmount     = decimal.New(1, 10)
	maxTaxPercent = decimal.New(1, 3)
)

// RateProblem returns why rate cannot be stored as an amount, or "".
func RateProblem(rate decimal.Decimal) string {
	return boundedProblem("rate", rate, maxAmount)
}

// TaxPercentProblem returns why pct cannot be stored as a tax percent, or "".
func TaxPercentProblem(pct decimal.Decimal) string {
	return boundedProblem("tax percent", pct, maxTaxPercent)
}

func boundedProblem(name string, v, limit decimal.Decimal) string {
	switch {
	case v.IsNegative():
		return name + " must be zero or greater"
	case !v.Equal(v.Truncate(2)):
		return name + " must have at most 2 decimal places"
	case v.GreaterThanOrEqual(limit):
		return fmt.Sprintf("%s must be less than %s", name, limit)
	}
	return ""
}

// FieldErrors maps a field key to the reason it was rejected.
type FieldErrors map[string]string

// Validate checks every field rule of p and reports all failures at once.
// The returned error carries CodeValidation and wraps ErrValidation.
func Validate(p Profile) error {
	fields := FieldErrors{}

	if p.CustomerID == uuid.Nil {
		fields[FieldCustomerID] = "customer is required"
	}
	if strings.TrimSpace(p.ProfileName) == "" {
		fields[FieldProfileName] = "profile name is required"
	}
	if !p.Frequency.IsValid() {
		if p.Frequency == "" {
			fields[FieldFrequency] = "frequency is required"
		} else {
			fields[FieldFrequency] = fmt.Sprintf("unsupported frequency %q", p.Frequency)
		}
	}
	if p.StartDate.IsZero() {
		fields[FieldStartDate] = "start date is required"
	}
	if p.EndDate != nil && !p.StartDate.IsZero() && types.TruncateDay(*p.EndDate).Before(types.TruncateDay(p.StartDate)) {
		fields[FieldEndDate] = "end date must not be before start date"
	}
	if p.LastInvoiceDate != nil && !p.StartDate.IsZero() && types.TruncateDay(*p.LastInvoiceDate).Before(types.TruncateDay(p.StartDate)) {
		fields[FieldLastInvoice] = "last invoice date must not be before start date"
	}
	if !p.Status.IsValid() {
		fields["status"] = fmt.Sprintf("unsupported status %q", p.Status)
	}

	item := p.LineItem
	if item.ItemID == uuid.Nil {
		fields[FieldItemID] = "item is required"
	}
	switch {
	case !item.Rate.Valid:
		fields[FieldRate] = "rate is required"
	default:
		if msg := RateProblem(item.Rate.Decimal); msg != "" {
			fields[FieldRate] = msg
		}
	}
	if item.Quantity < 1 {
		fields[FieldQuantity] = "quantity must be at least 1"
	}
	if msg := TaxPercentProblem(item.TaxPercent); msg != "" {
		fields[FieldTaxPercent] = msg
	}
	_, rateBad := fields[FieldRate]
	_, qtyBad := fields[FieldQuantity]
	_, taxBad := fields[FieldTaxPercent]
	if !rateBad && !qtyBad && !taxBad && LineTotal(item).GreaterThanOrEqual(maxAmount) {
		fields[FieldLineTotal] = fmt.Sprintf("line total must be less than %s", maxAmount)
	}

	if len(fields) == 0 {
		return nil
	}
	return pkgerrors.Wrap(pkgerrors.CodeValidation, ErrValidation, "invalid recurring profile").WithDetails(fields)
}
