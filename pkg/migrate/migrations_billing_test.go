package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRecurringProfilesMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_recurring_profiles.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS recurring_profiles",
		"frequency recurring_frequency NOT NULL",
		"CHECK (rate >= 0)",
		"CHECK (quantity >= 1)",
		"CHECK (tax_percent >= 0)",
		"CHECK (end_date IS NULL OR end_date >= start_date)",
		"FOREIGN KEY (customer_id) REFERENCES customers(id)",
		"DROP TABLE IF EXISTS recurring_profiles",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
	if strings.Contains(content, "next_invoice_date") {
		t.Errorf("next invoice date is derived and must not be a column")
	}
}

func TestInvoicesMigrationGuardsDuplicatePeriods(t *testing.T) {
	content := readMigration(t, "*_create_invoices.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS invoices",
		"CONSTRAINT invoices_profile_issue_date_key UNIQUE (recurring_profile_id, issue_date)",
		"CONSTRAINT invoices_invoice_number_key UNIQUE (invoice_number)",
		"ON DELETE SET NULL",
		"DROP TABLE IF EXISTS invoices",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestBillingEnumsMatchFrequencies(t *testing.T) {
	content := readMigration(t, "*_create_billing_enums.sql")
	for _, freq := range []string{"'week'", "'2week'", "'month'", "'2month'", "'3month'", "'6month'", "'year'", "'2year'"} {
		if !strings.Contains(content, freq) {
			t.Errorf("recurring_frequency enum missing %s", freq)
		}
	}
}

func readMigration(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no migration file matching %s", pattern)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}
