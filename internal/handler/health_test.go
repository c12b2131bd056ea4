package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/driftvault/driftvault/shared/config"
)

// MockHealthChecker mocks the Pinger interface.
type MockHealthChecker struct {
	pingFunc func(ctx context.Context) error
}

func (m *MockHealthChecker) Ping(ctx context.Context) error {
	if m.pingFunc != nil {
		return m.pingFunc(ctx)
	}
	return nil
}

func TestHealth(t *testing.T) {
	h := &Handler{cfg: &config.Config{}, health: &MockHealthChecker{}}

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	h.Health(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", rr.Body.String())
}

func TestReady(t *testing.T) {
	t.Run("returns 200 when storage answers", func(t *testing.T) {
		h := &Handler{cfg: &config.Config{}, health: &MockHealthChecker{}}

		req := httptest.NewRequest(http.MethodGet, "/ready", nil)
		rr := httptest.NewRecorder()
		h.Ready(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("returns 503 when storage is down", func(t *testing.T) {
		h := &Handler{
			cfg: &config.Config{},
			health: &MockHealthChecker{
				pingFunc: func(ctx context.Context) error {
					return errors.New("connection refused")
				},
			},
		}

		req := httptest.NewRequest(http.MethodGet, "/ready", nil)
		rr := httptest.NewRecorder()
		h.Ready(rr, req)

		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	})
}
