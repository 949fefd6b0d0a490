package responses

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/liftbooks-backend/internal/recurring"
	pkgerrors "github.com/angelmondragon/liftbooks-backend/pkg/errors"
	"github.com/angelmondragon/liftbooks-backend/pkg/logger"
)

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestSuccessWriters(t *testing.T) {
	cases := []struct {
		name   string
		write  func(http.ResponseWriter)
		status int
	}{
		{"ok", func(w http.ResponseWriter) { WriteSuccess(w, map[string]string{"id": "p-1"}) }, http.StatusOK},
		{"created", func(w http.ResponseWriter) { WriteCreated(w, map[string]string{"id": "p-1"}) }, http.StatusCreated},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tc.write(rec)
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.JSONEq(t, `{"data":{"id":"p-1"}}`, rec.Body.String())
		})
	}

	rec := httptest.NewRecorder()
	WriteNoContent(rec)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.Bytes())
}

func TestWriteError(t *testing.T) {
	details := map[string]string{"field": "frequency"}
	cases := []struct {
		name        string
		err         error
		status      int
		code        pkgerrors.Code
		message     string
		wantDetails bool
	}{
		{
			name:        "validation keeps message and details",
			err:         pkgerrors.New(pkgerrors.CodeValidation, "frequency is required").WithDetails(details),
			status:      http.StatusBadRequest,
			code:        pkgerrors.CodeValidation,
			message:     "frequency is required",
			wantDetails: true,
		},
		{
			name:    "invalid transition is unprocessable",
			err:     pkgerrors.Wrap(pkgerrors.CodeStateConflict, fmt.Errorf("cancel: %w", recurring.ErrInvalidTransition), "profile is completed"),
			status:  http.StatusUnprocessableEntity,
			code:    pkgerrors.CodeStateConflict,
			message: "profile is completed",
		},
		{
			name:    "not found hides details",
			err:     pkgerrors.New(pkgerrors.CodeNotFound, "recurring profile not found").WithDetails(details),
			status:  http.StatusNotFound,
			code:    pkgerrors.CodeNotFound,
			message: "recurring profile not found",
		},
		{
			name:    "dependency uses public message",
			err:     pkgerrors.Wrap(pkgerrors.CodeDependency, errors.New("dial tcp: refused"), "redis down"),
			status:  http.StatusServiceUnavailable,
			code:    pkgerrors.CodeDependency,
			message: "upstream dependency unavailable",
		},
		{
			name:    "untyped error never leaks",
			err:     errors.New("pq: password authentication failed"),
			status:  http.StatusInternalServerError,
			code:    pkgerrors.CodeInternal,
			message: "internal error",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteError(context.Background(), nil, rec, tc.err)

			assert.Equal(t, tc.status, rec.Code)
			body := decode[ErrorEnvelope](t, rec).Error
			assert.Equal(t, string(tc.code), body.Code)
			assert.Equal(t, tc.message, body.Message)
			if tc.wantDetails {
				assert.NotNil(t, body.Details)
			} else {
				assert.Nil(t, body.Details)
			}
		})
	}
}

func TestWriteErrorLogsBySeverity(t *testing.T) {
	var out bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "test", Output: &out})

	WriteError(context.Background(), logg, httptest.NewRecorder(), pkgerrors.New(pkgerrors.CodeValidation, "bad"))
	assert.Contains(t, out.String(), `"message":"request.rejected"`)
	assert.Contains(t, out.String(), `"http_status":400`)

	out.Reset()
	WriteError(context.Background(), logg, httptest.NewRecorder(), errors.New("boom"))
	assert.Contains(t, out.String(), `"message":"request.error"`)
	assert.Contains(t, out.String(), `"error_code":"INTERNAL_ERROR"`)
}
