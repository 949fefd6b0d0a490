package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	pkgerrors "github.com/angelmondragon/liftbooks-backend/pkg/errors"
)

type lineRequest struct {
	ItemID string `json:"item_id" validate:"omitempty,uuid"`
}

type baseRequest struct {
	Name string      `json:"name" validate:"required,max=5"`
	Item lineRequest `json:"item"`
}

type wrappedRequest struct {
	baseRequest
	Status string `json:"status" validate:"omitempty,oneof=active cancelled"`
}

func post(body string) *http.Request {
	return httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
}

func detailsOf(t *testing.T, err error) map[string]string {
	t.Helper()
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	details, ok := typed.Details().(map[string]string)
	if !ok {
		t.Fatalf("expected map details, got %T", typed.Details())
	}
	return details
}

func TestDecodeJSONBodyReportsNestedAndEmbeddedPaths(t *testing.T) {
	var dest wrappedRequest
	err := DecodeJSONBody(post(`{"name":"toolong","item":{"item_id":"nope"},"status":"paused"}`), &dest)

	details := detailsOf(t, err)
	want := map[string]string{
		"name":         "must be at most 5",
		"item.item_id": "must be a valid UUID",
		"status":       "must be one of: active, cancelled",
	}
	for field, msg := range want {
		if details[field] != msg {
			t.Fatalf("field %s: expected %q, got %q (all=%v)", field, msg, details[field], details)
		}
	}
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	var dest baseRequest
	details := detailsOf(t, DecodeJSONBody(post(`{"name":"ok","colour":"red"}`), &dest))
	if details["colour"] != "is not a known field" {
		t.Fatalf("unexpected details %v", details)
	}
}

func TestDecodeJSONBodyRejectsTrailingData(t *testing.T) {
	var dest baseRequest
	details := detailsOf(t, DecodeJSONBody(post(`{"name":"ok"}{"name":"again"}`), &dest))
	if details["body"] == "" {
		t.Fatalf("expected body detail, got %v", details)
	}
}

func TestDecodeJSONBodyRejectsWrongType(t *testing.T) {
	var dest baseRequest
	details := detailsOf(t, DecodeJSONBody(post(`{"name":12}`), &dest))
	if details["name"] != "must be a string" {
		t.Fatalf("unexpected details %v", details)
	}
}

func TestDecodeJSONBodyRejectsOversizedBody(t *testing.T) {
	var dest baseRequest
	huge := `{"name":"` + strings.Repeat("a", maxBodyBytes) + `"}`
	details := detailsOf(t, DecodeJSONBody(post(huge), &dest))
	if !strings.Contains(details["body"], "must not exceed") {
		t.Fatalf("unexpected details %v", details)
	}
}

func TestDecodeOptionalJSONBody(t *testing.T) {
	var dest baseRequest
	if err := DecodeOptionalJSONBody(post(""), &dest); err != nil {
		t.Fatalf("empty optional body should pass, got %v", err)
	}
	if err := DecodeJSONBody(post(""), &dest); err == nil {
		t.Fatalf("empty required body should fail")
	}
	if err := DecodeOptionalJSONBody(post(`{"name":""}`), &dest); err == nil {
		t.Fatalf("present optional body must still validate")
	}
}

func TestQueryInt(t *testing.T) {
	cases := []struct {
		query   string
		want    int
		wantErr bool
	}{
		{query: "", want: 25},
		{query: "limit=10", want: 10},
		{query: "limit=abc", wantErr: true},
		{query: "limit=0", wantErr: true},
		{query: "limit=101", wantErr: true},
	}
	for _, tc := range cases {
		r := httptest.NewRequest(http.MethodGet, "/?"+tc.query, nil)
		got, err := QueryInt(r, "limit", 25, 1, 100)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("query %q: expected error", tc.query)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("query %q: expected %d, got %d (%v)", tc.query, tc.want, got, err)
		}
	}
}

func TestSearchQuery(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?search=%20%20Phoenix%20%20%20Towers%20", nil)
	if got := SearchQuery(r, "search", 0); got != "Phoenix Towers" {
		t.Fatalf("expected collapsed whitespace, got %q", got)
	}
	r = httptest.NewRequest(http.MethodGet, "/?search=%E0%A4%B2%E0%A4%BF%E0%A4%AB%E0%A5%8D%E0%A4%9F", nil)
	if got := SearchQuery(r, "search", 2); got != "लि" {
		t.Fatalf("expected rune-safe truncation, got %q", got)
	}
}
