package payment

import "encoding/json"

// Webhook event types this pipeline understands. Unknown types are
// acknowledged without error for forward compatibility.
const (
	EventCheckoutCompleted = "checkout.session.completed"
	EventCheckoutExpired   = "checkout.session.expired"
	EventChargeRefunded    = "charge.refunded"
)

// Event is the provider webhook envelope. Data.Object carries either a
// checkout session or a charge depending on the event type; the shared
// fields below cover both.
type Event struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object EventObject `json:"object"`
	} `json:"data"`
}

// EventObject is the polymorphic payload of a webhook event. For checkout
// events ID is the checkout session id; for charge events it is the charge id.
type EventObject struct {
	ID            string            `json:"id"`
	Customer      string            `json:"customer"`
	PaymentIntent string            `json:"payment_intent"`
	AmountTotal   int               `json:"amount_total"`
	Currency      string            `json:"currency"`
	Metadata      map[string]string `json:"metadata"`
}

// ParseEvent decodes a raw webhook payload into an Event.
func ParseEvent(payload []byte) (*Event, error) {
	var evt Event
	if err := json.Unmarshal(payload, &evt); err != nil {
		return nil, err
	}
	return &evt, nil
}
