package logger

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/stripesync/internal/observability/context"
	"github.com/smallbiznis/stripesync/pkg/telemetry/correlation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func TestWithContextAddsEventFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	base := zap.New(core)

	ctx := obscontext.WithRequestID(context.Background(), "req-1")
	ctx = correlation.ContextWithCorrelationID(ctx, "cid-1")
	ctx = obscontext.WithEvent(ctx, "evt_1", "product.created")

	WithContext(ctx, base).Info("projected")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "cid-1", fields["correlation_id"])
	assert.Equal(t, "evt_1", fields["stripe_event_id"])
	assert.Equal(t, "product.created", fields["stripe_event_type"])
}

func TestWithContextOmitsEventWhenAbsent(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	WithContext(context.Background(), zap.New(core)).Info("noop")

	require.Equal(t, 1, logs.Len())
	_, ok := logs.All()[0].ContextMap()["stripe_event_id"]
	assert.False(t, ok)
}

func TestGinMiddlewareLevels(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.DebugLevel)

	engine := gin.New()
	engine.Use(GinMiddleware(zap.New(core), MiddlewareConfig{
		ErrorClassifier: func(err error) (string, string) { return "signature_error", "invalid_signature" },
	}))
	engine.POST("/webhooks/stripe", func(c *gin.Context) {
		_ = c.Error(errors.New("bad signature"))
		c.String(http.StatusBadRequest, "Webhook Error: bad signature")
	})
	engine.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", nil)
	req.Header.Set(correlation.HeaderName, "cid-42")
	engine.ServeHTTP(rec, req)
	assert.Equal(t, "cid-42", rec.Header().Get(correlation.HeaderName))

	engine.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	entries := logs.FilterMessage("http_request").All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, "signature_error", entries[0].ContextMap()["error_type"])
	assert.Equal(t, "cid-42", entries[0].ContextMap()["correlation_id"])
	assert.Equal(t, zapcore.DebugLevel, entries[1].Level)
}

func TestGormLoggerTraceFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewGormLogger(zap.New(core), GormLoggerConfig{Level: gormlogger.Info, SlowThreshold: time.Second})

	l.Trace(context.Background(), time.Now(), func() (string, int64) {
		return `INSERT INTO "products" ("id") VALUES ('prod_1')`, 1
	}, nil)

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "INSERT", fields["operation"])
	assert.Equal(t, "products", fields["table"])
}

func TestOperationAndTableFromSQL(t *testing.T) {
	cases := []struct {
		sql   string
		op    string
		table string
	}{
		{sql: "SELECT * FROM customers WHERE email = ?", op: "SELECT", table: "customers"},
		{sql: `UPDATE "subscriptions" SET status = ?`, op: "UPDATE", table: "subscriptions"},
		{sql: "DELETE FROM prices WHERE id = ?", op: "DELETE", table: "prices"},
		{sql: "", op: "UNKNOWN", table: ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.op, operationFromSQL(tc.sql), tc.sql)
		if tc.table != "" {
			assert.Equal(t, tc.table, tableFromSQL(tc.sql), tc.sql)
		}
	}
}
