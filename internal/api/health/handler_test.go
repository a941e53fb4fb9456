package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"optix/pkg/errors"
)

func ok() Checker {
	return CheckerFunc(func(context.Context) error { return nil })
}

func down() Checker {
	return CheckerFunc(func(context.Context) error { return errors.ErrUnavailable })
}

func serve(t *testing.T, fn http.HandlerFunc) (int, Report) {
	t.Helper()
	rec := httptest.NewRecorder()
	fn(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	var r Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &r))
	return rec.Code, r
}

func TestHandleLiveness(t *testing.T) {
	h := New("optix", "test")
	rec := httptest.NewRecorder()
	h.HandleLiveness(rec, httptest.NewRequest(http.MethodGet, "/live", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"alive"}`, rec.Body.String())
}

func TestHandleReadiness(t *testing.T) {
	h := New("optix", "test")
	h.Register("redis", ok())
	h.Register("clickhouse", ok())

	code, r := serve(t, h.HandleReadiness)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, StatusHealthy, r.Status)
	assert.Len(t, r.Checks, 2)

	h.Register("clickhouse", down())
	code, r = serve(t, h.HandleReadiness)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, StatusUnhealthy, r.Status)
	assert.Equal(t, "service unavailable", r.Checks["clickhouse"].Error)
}

func TestHandleHealth(t *testing.T) {
	tests := []struct {
		name     string
		checkers map[string]Checker
		code     int
		status   string
	}{
		{"no dependencies", nil, http.StatusOK, StatusHealthy},
		{"all up", map[string]Checker{"redis": ok()}, http.StatusOK, StatusHealthy},
		{"partial", map[string]Checker{"redis": ok(), "clickhouse": down()}, http.StatusOK, StatusDegraded},
		{"all down", map[string]Checker{"redis": down()}, http.StatusServiceUnavailable, StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := New("optix", "test")
			for name, c := range tt.checkers {
				h.Register(name, c)
			}

			code, r := serve(t, h.HandleHealth)
			assert.Equal(t, tt.code, code)
			assert.Equal(t, tt.status, r.Status)
			assert.Equal(t, "optix", r.Service)
		})
	}
}
