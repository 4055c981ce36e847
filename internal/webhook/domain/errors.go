package domain

import (
	"errors"
	"fmt"
)

var (
	ErrVerification     = errors.New("webhook_verification_failed")
	ErrLookup           = errors.New("lookup_failed")
	ErrStore            = errors.New("store_failed")
	ErrStoreUnavailable = errors.New("store_unavailable")
	ErrInvalidPayload   = errors.New("invalid_payload")
	ErrEventIgnored     = errors.New("event_ignored")
	ErrEventInFlight    = errors.New("event_in_flight")
)

// VerificationError carries the signature library's message verbatim.
type VerificationError struct {
	Reason string
	Err    error
}

func NewVerificationError(err error) *VerificationError {
	reason := "webhook signature verification failed"
	if err != nil {
		reason = err.Error()
	}
	return &VerificationError{Reason: reason, Err: err}
}

func (e *VerificationError) Error() string { return e.Reason }

func (e *VerificationError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrVerification}
	}
	return []error{ErrVerification, e.Err}
}

// LookupError reports that a keyed lookup did not resolve to exactly one row.
type LookupError struct {
	Entity  string
	Key     string
	Value   string
	Matched int
	Reason  string
}

func (e *LookupError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s lookup by %s=%q: %s", e.Entity, e.Key, e.Value, e.Reason)
	}
	return fmt.Sprintf("%s lookup by %s=%q matched %d rows, want exactly 1", e.Entity, e.Key, e.Value, e.Matched)
}

func (e *LookupError) Unwrap() error { return ErrLookup }

// StoreError wraps a failed store operation.
type StoreError struct {
	Op  string
	Err error
}

func NewStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStore) || errors.Is(err, ErrLookup) ||
		errors.Is(err, ErrInvalidPayload) || errors.Is(err, ErrStoreUnavailable) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() []error { return []error{ErrStore, e.Err} }

// InvalidPayload wraps a decode or validation failure for the given event type.
func InvalidPayload(eventType string, err error) error {
	if err == nil {
		return fmt.Errorf("%s: %w", eventType, ErrInvalidPayload)
	}
	return fmt.Errorf("%s: %w: %w", eventType, ErrInvalidPayload, err)
}
