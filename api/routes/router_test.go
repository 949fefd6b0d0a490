package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/liftbooks-backend/internal/customers"
	"github.com/angelmondragon/liftbooks-backend/internal/invoices"
	"github.com/angelmondragon/liftbooks-backend/internal/items"
	"github.com/angelmondragon/liftbooks-backend/internal/profiles"
	"github.com/angelmondragon/liftbooks-backend/pkg/config"
	dbpkg "github.com/angelmondragon/liftbooks-backend/pkg/db"
	"github.com/angelmondragon/liftbooks-backend/pkg/db/dbtest"
	"github.com/angelmondragon/liftbooks-backend/pkg/logger"
	"github.com/angelmondragon/liftbooks-backend/pkg/metrics"
	"github.com/angelmondragon/liftbooks-backend/pkg/outbox"
)

type stubPinger struct {
	err error
}

func (s stubPinger) Ping(context.Context) error {
	return s.err
}

type memoryStore struct {
	data map[string]string
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (m *memoryStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.data[key] = fmt.Sprint(value)
	return nil
}

func (m *memoryStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key] = fmt.Sprint(value)
	return true, nil
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func (m *memoryStore) IdempotencyKey(scope, id string) string {
	return "test:" + scope + ":" + id
}

type harness struct {
	conn    *gorm.DB
	handler http.Handler
}

func newHarness(t *testing.T, dbErr error) *harness {
	t.Helper()
	conn := dbtest.Open(t)
	client := dbpkg.NewFromConn(conn)
	logg := logger.New(logger.Options{ServiceName: "routes-test", Output: io.Discard})
	publisher := outbox.NewService(outbox.NewRepository(conn), logg)

	customerRepo := customers.NewRepository(conn)
	customerSvc, err := customers.NewService(customerRepo)
	require.NoError(t, err)
	itemRepo := items.NewRepository(conn)
	itemSvc, err := items.NewService(itemRepo)
	require.NoError(t, err)

	profileRepo := profiles.NewRepository(conn)
	profileSvc, err := profiles.NewService(profiles.Deps{
		Repo:      profileRepo,
		Customers: customerRepo,
		Items:     itemRepo,
		Tx:        client,
		Outbox:    publisher,
		Currency:  "INR",
	})
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	invoiceSvc, err := invoices.NewService(invoices.Deps{
		Invoices:       invoices.NewRepository(conn),
		Profiles:       profileRepo,
		Tx:             client,
		Outbox:         publisher,
		Metrics:        metrics.NewBillingMetrics(reg),
		Currency:       "INR",
		InvoiceDueDays: 15,
	})
	require.NoError(t, err)

	cfg := &config.Config{
		App:      config.AppConfig{Env: "test", CORSOrigins: []string{"http://localhost:3000"}},
		Eventing: config.EventingConfig{IdempotencyTTL: time.Hour},
	}
	return &harness{
		conn: conn,
		handler: NewRouter(Deps{
			Config:      cfg,
			Logger:      logg,
			DB:          stubPinger{err: dbErr},
			Redis:       stubPinger{},
			Idempotency: &memoryStore{data: map[string]string{}},
			Gatherer:    reg,
			Customers:   customerSvc,
			Items:       itemSvc,
			Profiles:    profileSvc,
			Invoices:    invoiceSvc,
		}),
	}
}

func (h *harness) do(t *testing.T, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp := httptest.NewRecorder()
	h.handler.ServeHTTP(resp, req)
	return resp
}

func decodeData(t *testing.T, resp *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var envelope struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope), resp.Body.String())
	return envelope.Data
}

func decodeError(t *testing.T, resp *httptest.ResponseRecorder) (string, map[string]any) {
	t.Helper()
	var envelope struct {
		Error struct {
			Code    string         `json:"code"`
			Details map[string]any `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope), resp.Body.String())
	return envelope.Error.Code, envelope.Error.Details
}

func idem(key string) map[string]string {
	return map[string]string{"Idempotency-Key": key}
}

func (h *harness) seed(t *testing.T) (customerID, itemID string) {
	t.Helper()
	resp := h.do(t, http.MethodPost, "/api/v1/customers", `{"reference":"CUST-001","billing_name":"Skyline Towers"}`, nil)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	customerID = decodeData(t, resp)["id"].(string)

	resp = h.do(t, http.MethodPost, "/api/v1/items", `{"name":"AMC Service","default_rate":"200","default_tax_percent":"18"}`, nil)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	itemID = decodeData(t, resp)["id"].(string)
	return customerID, itemID
}

func profileBody(customerID, itemID, start, end string) string {
	payload := map[string]any{
		"customer_id":  customerID,
		"profile_name": "Tower A lifts",
		"frequency":    "month",
		"start_date":   start,
		"item": map[string]any{
			"item_id":     itemID,
			"rate":        "200",
			"qty":         1,
			"tax_percent": "18",
		},
	}
	if end != "" {
		payload["end_date"] = end
	}
	raw, _ := json.Marshal(payload)
	return string(raw)
}

func TestHealthEndpoints(t *testing.T) {
	h := newHarness(t, nil)

	resp := h.do(t, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "test", resp.Header().Get("X-Liftbooks-Env"))

	resp = h.do(t, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, resp.Code)

	resp = h.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestHealthReadyReportsDependencyFailure(t *testing.T) {
	h := newHarness(t, errors.New("connection refused"))

	resp := h.do(t, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
	code, _ := decodeError(t, resp)
	assert.Equal(t, "DEPENDENCY_ERROR", code)
}

func TestRequestIDEchoed(t *testing.T) {
	h := newHarness(t, nil)

	resp := h.do(t, http.MethodGet, "/health/live", "", map[string]string{"X-Request-Id": "req-123"})
	assert.Equal(t, "req-123", resp.Header().Get("X-Request-Id"))
}

func TestRecurringProfileLifecycle(t *testing.T) {
	h := newHarness(t, nil)
	customerID, itemID := h.seed(t)

	resp := h.do(t, http.MethodPost, "/api/v1/recurring-profiles", profileBody(customerID, itemID, "2024-01-31", ""), idem("create-1"))
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	created := decodeData(t, resp)
	profileID := created["id"].(string)
	assert.Equal(t, "active", created["status"])
	assert.Equal(t, "2024-02-29", created["next_invoice_date"])
	assert.Equal(t, "236.00", created["line_total"])
	assert.Equal(t, "INR 236.00", created["amount_display"])
	assert.Equal(t, "Skyline Towers", created["customer_name"])

	replay := h.do(t, http.MethodPost, "/api/v1/recurring-profiles", profileBody(customerID, itemID, "2024-01-31", ""), idem("create-1"))
	require.Equal(t, http.StatusCreated, replay.Code)
	assert.Equal(t, profileID, decodeData(t, replay)["id"])
	var count int64
	require.NoError(t, h.conn.Table("recurring_profiles").Count(&count).Error)
	assert.Equal(t, int64(1), count)

	resp = h.do(t, http.MethodGet, "/api/v1/recurring-profiles/"+profileID, "", nil)
	require.Equal(t, http.StatusOK, resp.Code)

	resp = h.do(t, http.MethodPost, "/api/v1/recurring-profiles/"+profileID+"/generate", "", idem("gen-1"))
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	generated := decodeData(t, resp)
	invoice := generated["invoice"].(map[string]any)
	assert.Equal(t, "2024-02-29", invoice["issue_date"])
	assert.Equal(t, "2024-03-15", invoice["due_date"])
	assert.Equal(t, "236.00", invoice["total"])
	assert.Equal(t, "active", generated["profile_status"])
	assert.Equal(t, "2024-03-29", generated["next_invoice_date"])

	resp = h.do(t, http.MethodGet, "/api/v1/recurring-profiles/"+profileID+"/invoices", "", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	listed := decodeData(t, resp)["items"].([]any)
	assert.Len(t, listed, 1)

	resp = h.do(t, http.MethodPost, "/api/v1/recurring-profiles/"+profileID+"/cancel", `{"reason":"contract ended"}`, idem("cancel-1"))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, "cancelled", decodeData(t, resp)["status"])

	resp = h.do(t, http.MethodPost, "/api/v1/recurring-profiles/"+profileID+"/generate", "", idem("gen-2"))
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	code, _ := decodeError(t, resp)
	assert.Equal(t, "STATE_CONFLICT", code)

	resp = h.do(t, http.MethodPut, "/api/v1/recurring-profiles/"+profileID, profileBody(customerID, itemID, "2024-01-31", ""), nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)

	resp = h.do(t, http.MethodGet, "/api/v1/recurring-profiles?status=cancelled", "", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Len(t, decodeData(t, resp)["items"].([]any), 1)

	resp = h.do(t, http.MethodDelete, "/api/v1/recurring-profiles/"+profileID, "", nil)
	assert.Equal(t, http.StatusNoContent, resp.Code)
	resp = h.do(t, http.MethodGet, "/api/v1/recurring-profiles/"+profileID, "", nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestRecurringProfileCreateReportsEveryInvalidField(t *testing.T) {
	h := newHarness(t, nil)

	body := `{"profile_name":" ","frequency":"fortnight","start_date":"2024-03-01","end_date":"2024-02-01","item":{"rate":"-1","qty":0}}`
	resp := h.do(t, http.MethodPost, "/api/v1/recurring-profiles", body, idem("bad-1"))
	require.Equal(t, http.StatusBadRequest, resp.Code, resp.Body.String())

	code, details := decodeError(t, resp)
	assert.Equal(t, "VALIDATION_ERROR", code)
	for _, field := range []string{"customer_id", "profile_name", "frequency", "end_date", "item.item_id", "item.rate", "item.qty"} {
		assert.Contains(t, details, field)
	}
}

func TestRecurringProfileCreateRejectsMalformedBody(t *testing.T) {
	h := newHarness(t, nil)

	resp := h.do(t, http.MethodPost, "/api/v1/recurring-profiles", `{"customer_id":"not-a-uuid"}`, idem("bad-uuid"))
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = h.do(t, http.MethodPost, "/api/v1/recurring-profiles", `{"start_date":"31/01/2024"}`, idem("bad-date"))
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = h.do(t, http.MethodPost, "/api/v1/recurring-profiles", `{}`, nil)
	assert.Equal(t, http.StatusBadRequest, resp.Code, "idempotency key is required")
}

func TestGenerateNotDueIsStateConflict(t *testing.T) {
	h := newHarness(t, nil)
	customerID, itemID := h.seed(t)
	start := time.Now().UTC().AddDate(0, 0, 1).Format("2006-01-02")

	resp := h.do(t, http.MethodPost, "/api/v1/recurring-profiles", profileBody(customerID, itemID, start, ""), idem("future"))
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	profileID := decodeData(t, resp)["id"].(string)

	resp = h.do(t, http.MethodPost, "/api/v1/recurring-profiles/"+profileID+"/generate", "", idem("future-gen"))
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	_, details := decodeError(t, resp)
	assert.Contains(t, details, "next_invoice_date")
}

func TestCustomerEndpoints(t *testing.T) {
	h := newHarness(t, nil)
	customerID, _ := h.seed(t)

	resp := h.do(t, http.MethodGet, "/api/v1/customers?search=skyline", "", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Len(t, decodeData(t, resp)["items"].([]any), 1)

	resp = h.do(t, http.MethodGet, "/api/v1/customers/"+customerID, "", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "CUST-001", decodeData(t, resp)["reference"])

	resp = h.do(t, http.MethodPost, "/api/v1/customers", `{"reference":"CUST-001","billing_name":"Dup"}`, nil)
	assert.Equal(t, http.StatusConflict, resp.Code)

	resp = h.do(t, http.MethodPost, "/api/v1/customers", `{"billing_name":"No ref","email":"nope"}`, nil)
	require.Equal(t, http.StatusBadRequest, resp.Code)
	_, details := decodeError(t, resp)
	assert.Contains(t, details, "reference")
	assert.Contains(t, details, "email")

	resp = h.do(t, http.MethodGet, "/api/v1/customers/not-a-uuid", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestItemSearch(t *testing.T) {
	h := newHarness(t, nil)
	h.seed(t)

	resp := h.do(t, http.MethodGet, "/api/v1/items?search=amc", "", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var envelope struct {
		Data []map[string]any `json:"data"`
	}
	require.NoError(t, json.NewDecoder(bytes.NewReader(resp.Body.Bytes())).Decode(&envelope))
	require.Len(t, envelope.Data, 1)
	assert.Equal(t, "AMC Service", envelope.Data[0]["name"])
}
