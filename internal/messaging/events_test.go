package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"shopping-portal/internal/domain"
	"shopping-portal/internal/state"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type publication struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

type fakeChannel struct {
	mu   sync.Mutex
	sent []publication
	err  error
}

func (f *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("publish without deadline")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, publication{exchange, key, msg})
	return nil
}

func (f *fakeChannel) published() []publication {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]publication{}, f.sent...)
}

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestPublisher() (*EventPublisher, *fakeChannel) {
	ch := &fakeChannel{}
	p := NewEventPublisher(ch)
	p.now = func() time.Time { return fixedNow }
	return p, ch
}

func decode(t *testing.T, p publication) Event {
	t.Helper()
	var ev Event
	require.NoError(t, json.Unmarshal(p.msg.Body, &ev))
	return ev
}

func TestEvent_RoutingKey(t *testing.T) {
	tests := []struct {
		ev   Event
		want string
	}{
		{Event{Type: EventNotice, Kind: "info"}, "notice.info"},
		{Event{Type: EventNotice, Kind: "error"}, "notice.error"},
		{Event{Type: EventCheckout, Result: "ok"}, "checkout.ok"},
		{Event{Type: EventCheckout, Result: "empty_cart"}, "checkout.empty_cart"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.ev.RoutingKey())
		})
	}
}

func TestEventPublisher_Notify(t *testing.T) {
	p, ch := newTestPublisher()

	p.Notify(context.Background(), domain.Notice{Kind: domain.NoticeError, Message: "Failed to add item to cart"})

	sent := ch.published()
	require.Len(t, sent, 1)
	assert.Equal(t, ExchangeName, sent[0].exchange)
	assert.Equal(t, "notice.error", sent[0].key)
	assert.Equal(t, "application/json", sent[0].msg.ContentType)
	assert.Equal(t, amqp.Persistent, sent[0].msg.DeliveryMode)
	assert.Equal(t, Event{
		Type:      EventNotice,
		Kind:      "error",
		Message:   "Failed to add item to cart",
		Timestamp: fixedNow.Unix(),
	}, decode(t, sent[0]))
}

func TestEventPublisher_CheckoutFinished(t *testing.T) {
	p, ch := newTestPublisher()

	p.CheckoutFinished(context.Background(), state.CheckoutOutcome{Result: state.CheckoutOK, CartID: 5})
	p.CheckoutFinished(context.Background(), state.CheckoutOutcome{
		Result: state.CheckoutFailed,
		Err:    errors.New("create_order: status 400"),
	})

	sent := ch.published()
	require.Len(t, sent, 2)

	assert.Equal(t, "checkout.ok", sent[0].key)
	assert.Equal(t, int64(5), decode(t, sent[0]).CartID)
	assert.Empty(t, decode(t, sent[0]).Error)

	assert.Equal(t, "checkout.failed", sent[1].key)
	assert.Equal(t, "create_order: status 400", decode(t, sent[1]).Error)
}

func TestEventPublisher_IgnoresCancelledCaller(t *testing.T) {
	p, ch := newTestPublisher()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p.Notify(ctx, domain.Notice{Kind: domain.NoticeInfo, Message: "Order successful!"})

	assert.Len(t, ch.published(), 1)
}

func TestEventPublisher_ErrorsAreSwallowed(t *testing.T) {
	p, ch := newTestPublisher()
	ch.err = amqp.ErrClosed

	assert.NotPanics(t, func() {
		p.Notify(context.Background(), domain.Notice{Kind: domain.NoticeInfo, Message: "x"})
	})
	err := p.Publish(context.Background(), Event{Type: EventNotice, Kind: "info"})
	assert.ErrorIs(t, err, amqp.ErrClosed)
}

func TestDecodeEvent(t *testing.T) {
	ev, err := decodeEvent([]byte(`{"type":"checkout","result":"ok","cart_id":5,"timestamp":1}`))
	require.NoError(t, err)
	assert.Equal(t, Event{Type: EventCheckout, Result: "ok", CartID: 5, Timestamp: 1}, ev)

	_, err = decodeEvent([]byte(`not json`))
	assert.Error(t, err)

	_, err = decodeEvent([]byte(`{"kind":"info"}`))
	assert.Error(t, err)
}
