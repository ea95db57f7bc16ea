package logging

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observe(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	prev := globalLogger
	globalLogger = zap.New(core)
	t.Cleanup(func() { globalLogger = prev })
	return logs
}

func TestMiddlewareGeneratesRequestID(t *testing.T) {
	logs := observe(t)

	var seen string
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("short and stout"))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/projects", nil))

	require.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get("X-Request-ID"))

	completed := logs.FilterMessage("request completed").All()
	require.Len(t, completed, 1)
	fields := completed[0].ContextMap()
	assert.Equal(t, int64(http.StatusTeapot), fields["status"])
	assert.Equal(t, int64(len("short and stout")), fields["size"])
	assert.Equal(t, "/api/projects", fields["path"])
}

func TestMiddlewareKeepsClientRequestID(t *testing.T) {
	observe(t)

	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}

func TestInitWithFile(t *testing.T) {
	prev := globalLogger
	t.Cleanup(func() { globalLogger = prev })

	path := filepath.Join(t.TempDir(), "dashboard.log")
	require.NoError(t, Init(Config{Level: "debug", Format: "json", File: path}))
	Info("hello", zap.String("k", "v"))
	assert.FileExists(t, path)
}

func TestMiddlewareRecordsUser(t *testing.T) {
	logs := observe(t)

	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		SetUser(r.Context(), "dragon")
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/browse/trading/", nil))

	completed := logs.FilterMessage("request completed").All()
	require.Len(t, completed, 1)
	assert.Equal(t, "dragon", completed[0].ContextMap()["user"])
	assert.Equal(t, zapcore.InfoLevel, completed[0].Level)
}

func TestMiddlewareLevels(t *testing.T) {
	logs := observe(t)

	status := http.StatusOK
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	status = http.StatusInternalServerError
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/projects", nil))

	all := logs.FilterMessage("request completed").All()
	require.Len(t, all, 2)
	assert.Equal(t, zapcore.DebugLevel, all[0].Level)
	assert.Equal(t, zapcore.ErrorLevel, all[1].Level)
}

func TestSetUserOutsideMiddleware(t *testing.T) {
	assert.NotPanics(t, func() {
		SetUser(httptest.NewRequest(http.MethodGet, "/", nil).Context(), "dragon")
	})
}

func TestInitRejectsBadSettings(t *testing.T) {
	prev := globalLogger
	t.Cleanup(func() { globalLogger = prev })

	assert.Error(t, Init(Config{Level: "loud"}))
	assert.Error(t, Init(Config{Format: "xml"}))
	assert.NoError(t, Init(Config{Format: "console"}))
}
