package tracing

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
	return recorder
}

func spanAttrs(span sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	out := map[attribute.Key]attribute.Value{}
	for _, kv := range span.Attributes() {
		out[kv.Key] = kv.Value
	}
	return out
}

func TestGinMiddlewareRecordsWebhookSpan(t *testing.T) {
	gin.SetMode(gin.TestMode)
	recorder := recordSpans(t)

	r := gin.New()
	r.Use(GinMiddleware(MiddlewareConfig{
		SkipPaths:       []string{"/health"},
		SignatureHeader: "Stripe-Signature",
		ErrorClassifier: func(error) (string, string) { return "lookup_error", "lookup_failed" },
	}))
	r.POST("/webhooks/stripe", func(c *gin.Context) {
		_ = c.Error(errors.New("customer not found"))
		c.Status(http.StatusInternalServerError)
	})
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", strings.NewReader(`{}`))
	req.Header.Set("Stripe-Signature", "t=1,v1=abc")
	r.ServeHTTP(httptest.NewRecorder(), req)
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	span := spans[0]
	assert.Equal(t, "HTTP POST /webhooks/stripe", span.Name())
	assert.Equal(t, codes.Error, span.Status().Code)

	attrs := spanAttrs(span)
	assert.True(t, attrs["stripe.signature_present"].AsBool())
	assert.Equal(t, "/webhooks/stripe", attrs["http.route"].AsString())
	assert.EqualValues(t, http.StatusInternalServerError, attrs["http.status_code"].AsInt64())
	assert.Equal(t, "lookup_error", attrs["error.type"].AsString())
	assert.Equal(t, "lookup_failed", attrs["error.code"].AsString())
}

func TestGinMiddlewareLeavesClientErrorsUnset(t *testing.T) {
	gin.SetMode(gin.TestMode)
	recorder := recordSpans(t)

	r := gin.New()
	r.Use(GinMiddleware(MiddlewareConfig{SignatureHeader: "Stripe-Signature"}))
	r.POST("/webhooks/stripe", func(c *gin.Context) { c.String(http.StatusBadRequest, "bad signature") })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/webhooks/stripe", strings.NewReader(`{}`)))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Unset, spans[0].Status().Code)
	assert.False(t, spanAttrs(spans[0])["stripe.signature_present"].AsBool())
}
