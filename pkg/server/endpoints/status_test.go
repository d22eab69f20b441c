package endpoints

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleStatus(t *testing.T) {
	t.Run("returns HTML status page", func(t *testing.T) {
		healthStore := NewMockHealthStore()
		healthStore.On("CheckConnectivity").Return(map[string]error{"main": nil})
		handler := handleStatus(healthStore, "1.0.0")

		req := httptest.NewRequest("GET", "/", nil)
		w := httptest.NewRecorder()

		handler(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
		assert.Contains(t, w.Body.String(), "Your ORM server is running!")
		assert.Contains(t, w.Body.String(), "main: ok")
		healthStore.AssertExpectations(t)
	})

	t.Run("returns JSON when Accept header is application/json", func(t *testing.T) {
		healthStore := NewMockHealthStore()
		healthStore.On("CheckConnectivity").Return(map[string]error{"main": nil, "archive": nil})
		handler := handleStatus(healthStore, "")

		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("Accept", "application/json")
		w := httptest.NewRecorder()

		handler(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Header().Get("Content-Type"), "application/json")

		var resp StatusResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "ok", resp.Status)
		assert.Equal(t, "dev", resp.Version)
		assert.Equal(t, map[string]string{"main": "ok", "archive": "ok"}, resp.Connections)
	})

	t.Run("reports unavailable connections", func(t *testing.T) {
		healthStore := NewMockHealthStore()
		healthStore.On("CheckConnectivity").Return(map[string]error{
			"main":    nil,
			"archive": errors.New("connection refused"),
		})
		handler := handleStatus(healthStore, "1.0.0")

		req := httptest.NewRequest("GET", "/?format=json", nil)
		w := httptest.NewRecorder()

		handler(w, req)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		var resp StatusResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "error", resp.Status)
		assert.Equal(t, "unavailable", resp.Connections["archive"])
		assert.NotContains(t, w.Body.String(), "connection refused")
	})
}
