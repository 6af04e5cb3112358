package logging

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriterLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "json", "warn")

	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")

	out := buf.String()
	require.NotContains(t, out, "hidden")
	require.Contains(t, out, "shown")

	buf.Reset()
	fallback := NewWithWriter(&buf, "json", "nonsense")
	fallback.Debug().Msg("debug")
	fallback.Info().Msg("info")
	require.NotContains(t, buf.String(), `"debug"`)
	require.Contains(t, buf.String(), `"info"`)
}

func TestNewWithWriterConsole(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "console", "info")
	logger.Info().Str("k", "v").Msg("hello")

	out := buf.String()
	require.Contains(t, out, "hello")
	require.False(t, strings.HasPrefix(strings.TrimSpace(out), "{"), "console output should not be JSON: %s", out)
}

func TestRequestLoggerMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "json", "info")

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(RequestLogger{Logger: logger}.Middleware)
	r.Get("/api/products/{code}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("missing"))
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/products/J0000", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	require.Equal(t, "http_request", entry["message"])
	require.Equal(t, "/api/products/{code}", entry["route"])
	require.Equal(t, "/api/products/J0000", entry["path"])
	require.EqualValues(t, http.StatusNotFound, entry["status"])
	require.EqualValues(t, len("missing"), entry["bytes"])
	require.NotEmpty(t, entry["request_id"])
}
