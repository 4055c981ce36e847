package context

import (
	"context"
	"strings"
)

type requestIDKey struct{}
type eventKey struct{}

type eventInfo struct {
	id        string
	eventType string
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey{}).(string); ok {
		return v
	}
	return ""
}

// WithEvent attaches the provider event being processed.
func WithEvent(ctx context.Context, eventID, eventType string) context.Context {
	if eventID == "" && eventType == "" {
		return ctx
	}
	return context.WithValue(ctx, eventKey{}, eventInfo{id: eventID, eventType: eventType})
}

func EventFromContext(ctx context.Context) (eventID, eventType string) {
	if ctx == nil {
		return "", ""
	}
	if v, ok := ctx.Value(eventKey{}).(eventInfo); ok {
		return v.id, v.eventType
	}
	return "", ""
}
