package logging

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		entry := map[string]any{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		out = append(out, entry)
	}
	return out
}

func TestNewLoggerEmitsCloudLoggingFields(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger, err := NewLogger(Config{Component: "tms-api", Level: "debug", Output: &buf})
	require.NoError(t, err)

	logger.Warn("slow store", zap.String("collection", "loads"))
	require.NoError(t, logger.Sync())

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	require.Equal(t, "WARNING", lines[0]["severity"])
	require.Equal(t, "slow store", lines[0]["message"])
	require.Equal(t, "tms-api", lines[0]["component"])
	require.Equal(t, "loads", lines[0]["collection"])
}

func TestNewLoggerRejectsUnknownSettings(t *testing.T) {
	t.Parallel()

	_, err := NewLogger(Config{Level: "chatty"})
	require.Error(t, err)
	_, err = NewLogger(Config{Format: "xml"})
	require.Error(t, err)
}

func TestNewLoggerServiceContext(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger, err := NewLogger(Config{Component: "api-server", Version: "rev-42", Output: &buf})
	require.NoError(t, err)

	logger.Error("store unavailable")
	logger.Debug("dropped below info")
	require.NoError(t, logger.Sync())

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	require.Equal(t, "ERROR", lines[0]["severity"])
	require.Equal(t, map[string]any{"service": "api-server", "version": "rev-42"}, lines[0]["serviceContext"])
}

func TestNewLoggerConsoleFormat(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger, err := NewLogger(Config{Format: FormatConsole, Output: &buf})
	require.NoError(t, err)

	logger.Info("tenant created", zap.String("slug", "acme"))
	require.NoError(t, logger.Sync())
	require.Contains(t, buf.String(), "tenant created")
	require.Contains(t, buf.String(), `"slug": "acme"`)
}

func TestRequestLoggerUsesPromotedLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	base, err := NewLogger(Config{Output: &buf})
	require.NoError(t, err)

	handler := RequestLogger(base)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := Enrich(r.Context(), zap.String("tenant_id", "t-1"))
		logger, ok := FromContext(ctx)
		require.True(t, ok)
		Promote(ctx, logger)
		w.WriteHeader(http.StatusInternalServerError)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/loads", nil))

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	require.Equal(t, "ERROR", lines[0]["severity"])
	require.Equal(t, "t-1", lines[0]["tenant_id"])
	require.Equal(t, float64(500), lines[0]["status"])
}
