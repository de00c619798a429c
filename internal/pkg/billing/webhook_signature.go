package billing

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/webhook"
)

var errMissingSignature = errors.New("missing signature header or secret")

// VerifyAndParseEvent authenticates a Stripe webhook payload and decodes it
// into an Event. Nothing in the payload is read before the signature checks
// out; failures are returned as *SignatureError.
func VerifyAndParseEvent(payload []byte, signatureHeader, secret string) (Event, error) {
	if strings.TrimSpace(signatureHeader) == "" || strings.TrimSpace(secret) == "" {
		return nil, &SignatureError{Err: errMissingSignature}
	}

	event, err := webhook.ConstructEventWithOptions(payload, signatureHeader, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, &SignatureError{Err: err}
	}
	return parseStripeEvent(&event)
}

// checkoutSession is the subset of a Stripe checkout.session object we read.
type checkoutSession struct {
	ID           string            `json:"id"`
	Mode         string            `json:"mode"`
	Subscription expandableID      `json:"subscription"`
	Metadata     map[string]string `json:"metadata"`
}

type invoice struct {
	ID           string       `json:"id"`
	Subscription expandableID `json:"subscription"`
}

type subscription struct {
	ID string `json:"id"`
}

// expandableID accepts either a bare id or an expanded object carrying one.
type expandableID string

func (e *expandableID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*e = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*e = expandableID(s)
		return nil
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*e = expandableID(obj.ID)
	return nil
}

func parseStripeEvent(event *stripe.Event) (Event, error) {
	eventType := string(event.Type)
	if event.Data == nil {
		return Unrecognized{ID: event.ID, Type: eventType}, nil
	}

	switch eventType {
	case StripeEventCheckoutCompleted:
		var session checkoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return nil, fmt.Errorf("%w: decode checkout.session: %v", ErrMalformedEvent, err)
		}
		userID := session.Metadata["userId"]
		if userID == "" {
			userID = session.Metadata["clerkUserId"]
		}
		return CheckoutCompleted{
			ID:             event.ID,
			UserID:         strings.TrimSpace(userID),
			SubscriptionID: strings.TrimSpace(string(session.Subscription)),
			Tier:           strings.TrimSpace(session.Metadata["planType"]),
		}, nil

	case StripeEventPaymentFailed:
		var inv invoice
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			return nil, fmt.Errorf("%w: decode invoice: %v", ErrMalformedEvent, err)
		}
		return PaymentFailed{ID: event.ID, SubscriptionID: strings.TrimSpace(string(inv.Subscription))}, nil

	case StripeEventSubscriptionDeleted:
		var sub subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return nil, fmt.Errorf("%w: decode subscription: %v", ErrMalformedEvent, err)
		}
		return SubscriptionDeleted{ID: event.ID, SubscriptionID: strings.TrimSpace(sub.ID)}, nil

	default:
		return Unrecognized{ID: event.ID, Type: eventType}, nil
	}
}
