package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"booking-engine/internal/model"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler(called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		w.WriteHeader(http.StatusOK)
	})
}

func TestCORS(t *testing.T) {
	tests := []struct {
		name           string
		method         string
		expectedStatus int
		expectHandler  bool
	}{
		{name: "preflight", method: http.MethodOptions, expectedStatus: http.StatusNoContent},
		{name: "get", method: http.MethodGet, expectedStatus: http.StatusOK, expectHandler: true},
		{name: "put", method: http.MethodPut, expectedStatus: http.StatusOK, expectHandler: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			handler := CORS(okHandler(&called))

			req := httptest.NewRequest(tt.method, "/api/bookings", nil)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, tt.expectHandler, called)
			assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, "Content-Type, X-API-Key", w.Header().Get("Access-Control-Allow-Headers"))
		})
	}
}

func TestAPIKeyAuth(t *testing.T) {
	validAPIKey := "admin-key-123"

	tests := []struct {
		name           string
		apiKey         string
		expectedStatus int
		expectHandler  bool
	}{
		{name: "valid key", apiKey: validAPIKey, expectedStatus: http.StatusOK, expectHandler: true},
		{name: "invalid key", apiKey: "wrong", expectedStatus: http.StatusUnauthorized},
		{name: "key with matching prefix", apiKey: validAPIKey + "x", expectedStatus: http.StatusUnauthorized},
		{name: "missing key", expectedStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			handler := APIKeyAuth(validAPIKey, zerolog.Nop())(okHandler(&called))

			req := httptest.NewRequest(http.MethodPost, "/api/admin/bookings/CAR-1/approve", nil)
			if tt.apiKey != "" {
				req.Header.Set("X-API-Key", tt.apiKey)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, tt.expectHandler, called)

			if tt.expectedStatus == http.StatusUnauthorized {
				var body model.ErrorResponse
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
				assert.Equal(t, model.ErrCodeUnauthorised, body.Error)
			}
		})
	}
}

func TestLogging(t *testing.T) {
	tests := []struct {
		name          string
		handlerStatus int
		writeBody     bool
		wantStatus    float64
	}{
		{name: "explicit status", handlerStatus: http.StatusConflict, wantStatus: http.StatusConflict},
		{name: "implicit ok", writeBody: true, wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := zerolog.New(&buf)

			testHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.handlerStatus != 0 {
					w.WriteHeader(tt.handlerStatus)
				}
				if tt.writeBody {
					w.Write([]byte("ok"))
				}
			})
			handler := chimw.RequestID(Logging(logger)(testHandler))

			req := httptest.NewRequest(http.MethodGet, "/api/bookings/CAR-1", nil)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			var entry map[string]interface{}
			require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
			assert.Equal(t, tt.wantStatus, entry["status"])
			assert.Equal(t, "/api/bookings/CAR-1", entry["path"])
			assert.NotEmpty(t, entry["request_id"])
		})
	}
}

func TestRecovery(t *testing.T) {
	tests := []struct {
		name           string
		panicValue     interface{}
		expectedStatus int
	}{
		{name: "no panic", expectedStatus: http.StatusOK},
		{name: "panic with string", panicValue: "something went wrong", expectedStatus: http.StatusInternalServerError},
		{name: "panic with error", panicValue: assert.AnError, expectedStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.panicValue != nil {
					panic(tt.panicValue)
				}
				w.WriteHeader(http.StatusOK)
			})

			handler := Recovery(zerolog.Nop())(testHandler)

			req := httptest.NewRequest(http.MethodGet, "/api/bookings", nil)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.panicValue != nil {
				assert.Contains(t, w.Body.String(), "internal server error")
			}
		})
	}
}
