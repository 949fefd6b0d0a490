package invoices

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Number builds an invoice number such as INV-20240131-1A2B3C4D from the issue
// date and the invoice id.
func Number(issueDate time.Time, id uuid.UUID) string {
	short := strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:8])
	return fmt.Sprintf("INV-%s-%s", issueDate.UTC().Format("20060102"), short)
}
