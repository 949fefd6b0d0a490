package types

import (
	"encoding/json"
	"testing"
	"time"
)

func TestDateJSONRoundTrip(t *testing.T) {
	type payload struct {
		Start Date  `json:"start"`
		End   *Date `json:"end,omitempty"`
	}

	var got payload
	if err := json.Unmarshal([]byte(`{"start":"2024-01-31"}`), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	want := time.Date(2024, time.January, 31, 0, 0, 0, 0, time.UTC)
	if !got.Start.Equal(want) {
		t.Fatalf("expected %v, got %v", want, got.Start.Time)
	}
	if got.End != nil {
		t.Fatalf("expected nil end date, got %v", got.End)
	}

	out, err := json.Marshal(got)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `{"start":"2024-01-31"}` {
		t.Fatalf("unexpected json %s", out)
	}
}

func TestDateRejectsTimestamps(t *testing.T) {
	var d Date
	if err := json.Unmarshal([]byte(`"2024-01-31T10:00:00Z"`), &d); err == nil {
		t.Fatal("expected timestamp input to be rejected")
	}
	if err := json.Unmarshal([]byte(`20240131`), &d); err == nil {
		t.Fatal("expected non-string input to be rejected")
	}
}

func TestNewDateTruncates(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	in := time.Date(2024, time.March, 1, 1, 30, 0, 0, ist)
	got := NewDate(in)
	if got.String() != "2024-03-01" {
		t.Fatalf("expected local calendar day to be kept, got %s", got)
	}
	if got.Location() != time.UTC || got.Hour() != 0 {
		t.Fatalf("expected utc midnight, got %v", got.Time)
	}
}
