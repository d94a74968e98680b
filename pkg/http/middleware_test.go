package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/carverauto/fieldradar/pkg/logger"
)

func TestCommonMiddleware(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	h := CommonMiddleware([]string{"https://fields.example.com"}, logger.Discard())(ok)

	t.Run("allowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/devices/dev-1/liveness", http.NoBody)
		req.Header.Set("Origin", "https://fields.example.com")

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "https://fields.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("other origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/devices/dev-1/liveness", http.NoBody)
		req.Header.Set("Origin", "https://elsewhere.example.com")

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/schedules", http.NoBody)
		req.Header.Set("Origin", "https://fields.example.com")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, "https://fields.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)
	})
}
