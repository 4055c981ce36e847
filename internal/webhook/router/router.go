package router

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/smallbiznis/stripesync/internal/webhook/domain"
	"gorm.io/gorm"
)

// Handler projects one verified event inside the caller's transaction.
type Handler interface {
	Handle(ctx context.Context, tx *gorm.DB, event *domain.Event) error
}

type HandlerFunc func(ctx context.Context, tx *gorm.DB, event *domain.Event) error

func (f HandlerFunc) Handle(ctx context.Context, tx *gorm.DB, event *domain.Event) error {
	return f(ctx, tx, event)
}

// Router dispatches on the exact event type string.
type Router struct {
	handlers map[string]Handler
}

func New() *Router {
	return &Router{handlers: make(map[string]Handler)}
}

// Register binds an event type to its handler. Registering a type twice panics.
func (r *Router) Register(eventType string, h Handler) {
	if eventType == "" || h == nil {
		panic("router: event type and handler are required")
	}
	if _, exists := r.handlers[eventType]; exists {
		panic(fmt.Sprintf("router: duplicate handler for %q", eventType))
	}
	r.handlers[eventType] = h
}

func (r *Router) Handles(eventType string) bool {
	_, ok := r.handlers[eventType]
	return ok
}

// Types lists registered event types in sorted order.
func (r *Router) Types() []string {
	out := make([]string, 0, len(r.handlers))
	for t := range r.handlers {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func (r *Router) Dispatch(ctx context.Context, tx *gorm.DB, event *domain.Event) error {
	if event == nil {
		return domain.ErrInvalidPayload
	}
	h, ok := r.handlers[event.Type]
	if !ok {
		return domain.ErrEventIgnored
	}
	return h.Handle(ctx, tx, event)
}

// Typed decodes and validates event.Object into T before calling fn.
func Typed[T any, P interface {
	*T
	Validate() error
}](fn func(ctx context.Context, tx *gorm.DB, event *domain.Event, payload *T) error) Handler {
	return HandlerFunc(func(ctx context.Context, tx *gorm.DB, event *domain.Event) error {
		if len(event.Object) == 0 {
			return domain.InvalidPayload(event.Type, nil)
		}
		var payload T
		if err := json.Unmarshal(event.Object, &payload); err != nil {
			return domain.InvalidPayload(event.Type, err)
		}
		if err := P(&payload).Validate(); err != nil {
			return domain.InvalidPayload(event.Type, err)
		}
		return fn(ctx, tx, event, &payload)
	})
}
