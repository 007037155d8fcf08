package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashgrove/medialib/internal/events"
)

func TestHandleHealthzReturnsOK(t *testing.T) {
	bus := events.NewBus(8)
	s := New(bus)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestHandleEventsRejectsNonWebsocketRequest(t *testing.T) {
	bus := events.NewBus(8)
	s := New(bus)

	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	assert.NotEqual(t, http.StatusOK, rec.Code)
}
