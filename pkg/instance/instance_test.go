package instance

import "testing"

func TestGetIDPrefersExplicitInstanceID(t *testing.T) {
	t.Setenv("LIFTBOOKS_INSTANCE_ID", "cron-1")
	t.Setenv("DYNO", "worker.1")

	if got := GetID(); got != "cron-1" {
		t.Fatalf("expected cron-1, got %q", got)
	}
}

func TestGetIDFallsBackToDyno(t *testing.T) {
	t.Setenv("LIFTBOOKS_INSTANCE_ID", "")
	t.Setenv("DYNO", "web.2")

	if got := GetID(); got != "web.2" {
		t.Fatalf("expected web.2, got %q", got)
	}
}

func TestGetIDNeverEmpty(t *testing.T) {
	t.Setenv("LIFTBOOKS_INSTANCE_ID", "")
	t.Setenv("DYNO", "")

	if GetID() == "" {
		t.Fatalf("expected a non-empty instance id")
	}
}
