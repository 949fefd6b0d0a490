package recurring

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func TestLineTotal(t *testing.T) {
	tests := []struct {
		name string
		rate string
		qty  int
		tax  string
		want string
	}{
		{"taxed", "100", 2, "18", "236.00"},
		{"untaxed", "1500", 1, "0", "1500.00"},
		{"zero rate", "0", 3, "18", "0.00"},
		{"half up", "0.05", 1, "10", "0.06"},
		{"fractional tax", "999.99", 3, "12.5", "3374.97"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := LineItem{
				ItemID:     uuid.New(),
				Rate:       decimal.NewNullDecimal(decimal.RequireFromString(tt.rate)),
				Quantity:   tt.qty,
				TaxPercent: decimal.RequireFromString(tt.tax),
			}
			got := LineTotal(item)
			if got.StringFixed(2) != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, got.StringFixed(2))
			}
		})
	}
}

func TestAmountsBreakdownAddsUp(t *testing.T) {
	item := LineItem{
		Rate:       decimal.NewNullDecimal(decimal.RequireFromString("333.33")),
		Quantity:   3,
		TaxPercent: decimal.RequireFromString("18"),
	}
	b := Amounts(item)
	if !b.Subtotal.Add(b.Tax).Equal(b.Total) {
		t.Fatalf("subtotal %s + tax %s != total %s", b.Subtotal, b.Tax, b.Total)
	}
	if b.Subtotal.StringFixed(2) != "999.99" {
		t.Fatalf("unexpected subtotal %s", b.Subtotal)
	}
	if b.Total.StringFixed(2) != "1179.99" {
		t.Fatalf("unexpected total %s", b.Total)
	}
}

func TestLineTotalWithoutRate(t *testing.T) {
	if got := LineTotal(LineItem{Quantity: 1}); !got.IsZero() {
		t.Fatalf("expected zero total, got %s", got)
	}
}

func TestFormatAmount(t *testing.T) {
	if got := FormatAmount("INR", decimal.RequireFromString("236")); got != "INR 236.00" {
		t.Fatalf("unexpected display %q", got)
	}
}
