package messaging

import (
	"time"

	"shopping-portal/internal/domain"
	"shopping-portal/internal/state"
)

// ExchangeName is the durable topic exchange every shop event goes to
const ExchangeName = "shop.events"

// Event types
const (
	EventNotice   = "notice"
	EventCheckout = "checkout"
)

// Event is the JSON body of every message on ExchangeName
type Event struct {
	Type      string `json:"type"`
	Kind      string `json:"kind,omitempty"`    // notice kind
	Message   string `json:"message,omitempty"` // notice text
	Result    string `json:"result,omitempty"`  // checkout outcome
	CartID    int64  `json:"cart_id,omitempty"`
	Error     string `json:"error,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// RoutingKey is "<type>.<kind>" for notices and "<type>.<result>" for checkouts
func (e Event) RoutingKey() string {
	if e.Type == EventCheckout {
		return e.Type + "." + e.Result
	}
	return e.Type + "." + e.Kind
}

func noticeEvent(n domain.Notice, now time.Time) Event {
	return Event{
		Type:      EventNotice,
		Kind:      string(n.Kind),
		Message:   n.Message,
		Timestamp: now.Unix(),
	}
}

func checkoutEvent(o state.CheckoutOutcome, now time.Time) Event {
	ev := Event{
		Type:      EventCheckout,
		Result:    o.Result.String(),
		CartID:    o.CartID,
		Timestamp: now.Unix(),
	}
	if o.Err != nil {
		ev.Error = o.Err.Error()
	}
	return ev
}
