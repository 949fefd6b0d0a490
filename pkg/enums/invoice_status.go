package enums

// InvoiceStatus is the invoice_status column. Generated invoices start issued.
type InvoiceStatus string

const (
	InvoiceStatusIssued    InvoiceStatus = "issued"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

var invoiceStatuses = set[InvoiceStatus]{InvoiceStatusIssued, InvoiceStatusPaid, InvoiceStatusCancelled}

func (s InvoiceStatus) String() string { return string(s) }

func (s InvoiceStatus) IsValid() bool { return invoiceStatuses.contains(s) }
