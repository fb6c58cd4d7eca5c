package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel(" error "))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestLoggerStampsComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelDebug, Output: &buf, Format: "json"}).WithComponent(ComponentReport)

	l.Info("built report", FieldYear, 2024)
	assert.Contains(t, buf.String(), `"component":"report"`)
	assert.Contains(t, buf.String(), `"year":2024`)
}

func TestStructuredLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelDebug, Output: &buf})
	sl := NewStructuredLogger(l)

	r := httptest.NewRequest(http.MethodGet, "/api/v1/balance?x=1", nil)
	ctx := WithLogger(context.Background(), l)
	sl.LogHTTPEnd(ctx, r, http.StatusServiceUnavailable, 12, "10.0.0.1")
	assert.Contains(t, buf.String(), "level=ERROR")
	assert.Contains(t, buf.String(), "status_code=503")

	buf.Reset()
	sl.LogError(context.Background(), "write failed", errors.New("boom"), ComponentLedger, OpCreate, nil)
	assert.Contains(t, buf.String(), "error=boom")
	assert.Contains(t, buf.String(), "component=ledger")
}
