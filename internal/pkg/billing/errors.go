package billing

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized is returned when a protected action has no verified identity.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotSubscribed is returned when an action needs a processor subscription
	// the account does not have.
	ErrNotSubscribed = errors.New("no active subscription found")
	// ErrAccountNotFound is returned when no local account exists for the user.
	ErrAccountNotFound = errors.New("account not found")
	// ErrUnknownPlan is returned for plan types missing from the catalog.
	ErrUnknownPlan = errors.New("unknown plan type")
	// ErrMalformedEvent is returned for authenticated events whose object
	// cannot be decoded.
	ErrMalformedEvent = errors.New("malformed billing event")
)

// SignatureError reports an inbound webhook that failed authentication.
type SignatureError struct {
	Err error
}

func (e *SignatureError) Error() string {
	return fmt.Sprintf("webhook signature verification failed: %v", e.Err)
}

func (e *SignatureError) Unwrap() error { return e.Err }

// GatewayError reports a failed call to the payment processor.
type GatewayError struct {
	Op  string
	Err error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("billing gateway %s: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// ReconciliationError reports an account store failure while applying a
// webhook event. The delivery must be retried by the processor.
type ReconciliationError struct {
	EventID string
	Kind    string
	Err     error
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("reconcile %s event %s: %v", e.Kind, e.EventID, e.Err)
}

func (e *ReconciliationError) Unwrap() error { return e.Err }
