package gateway

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createOKAPI(t *testing.T) *fakeAPI {
	api := &fakeAPI{t: t}
	api.createPayment = func(p *Payment) (*Payment, error) {
		created := *p
		created.ID = "PAY-1"
		created.State = "created"
		created.Links = []Link{{Href: "https://gateway.example/approve", Rel: "approval_url"}}
		return &created, nil
	}
	return api
}

func TestCheckout_InitiateEmitsInitiatedEvent(t *testing.T) {
	api := createOKAPI(t)
	var sentReturn *RedirectURLs
	inner := api.createPayment
	api.createPayment = func(p *Payment) (*Payment, error) {
		sentReturn = p.RedirectURLs
		return inner(p)
	}

	checkout, err := NewCheckout(testCredentials(), api)
	require.NoError(t, err)

	var events []*PaymentIntent
	checkout.OnInitiated(func(intent *PaymentIntent) { events = append(events, intent) })

	intent, err := checkout.InitiateCheckout(context.Background(), widgetTransaction(t),
		"https://shop.example/return", "https://shop.example/cancel")
	require.NoError(t, err)

	require.Len(t, events, 1)
	assert.Same(t, intent, events[0])
	assert.Equal(t, "https://gateway.example/approve", intent.ApprovalLink)

	require.NotNil(t, sentReturn)
	assert.Contains(t, sentReturn.ReturnURL, "utm_nooverride=1")
	assert.Equal(t, "https://shop.example/cancel", sentReturn.CancelURL)
}

func TestCheckout_InitiateWithoutErrorSubscriberPropagates(t *testing.T) {
	api := &fakeAPI{t: t}
	api.createPayment = func(p *Payment) (*Payment, error) {
		return nil, &Fault{Category: FaultConfiguration, Message: "profile missing"}
	}

	checkout, err := NewCheckout(testCredentials(), api)
	require.NoError(t, err)

	_, err = checkout.InitiateCheckout(context.Background(), widgetTransaction(t), "", "")
	var gwErr *GatewayError
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, FaultConfiguration, gwErr.Category)
}

func TestCheckout_InitiateWithErrorSubscriberSwallows(t *testing.T) {
	api := &fakeAPI{t: t}
	api.createPayment = func(p *Payment) (*Payment, error) {
		return nil, &Fault{Category: FaultConfiguration, Message: "profile missing"}
	}

	checkout, err := NewCheckout(testCredentials(), api)
	require.NoError(t, err)

	var delivered []*GatewayError
	checkout.OnError(func(e *GatewayError) { delivered = append(delivered, e) })

	intent, err := checkout.InitiateCheckout(context.Background(), widgetTransaction(t), "", "")
	assert.NoError(t, err, "a subscribed failure must not also be raised")
	assert.Nil(t, intent)
	require.Len(t, delivered, 1)
	assert.Equal(t, FaultConfiguration, delivered[0].Category)
}

func TestCheckout_UntranslatedErrorAlwaysPropagates(t *testing.T) {
	plain := errors.New("marshaling blew up")
	api := &fakeAPI{t: t}
	api.createPayment = func(p *Payment) (*Payment, error) { return nil, plain }

	checkout, err := NewCheckout(testCredentials(), api)
	require.NoError(t, err)
	checkout.OnError(func(e *GatewayError) { t.Fatal("must not receive untranslated errors") })

	_, err = checkout.InitiateCheckout(context.Background(), widgetTransaction(t), "", "")
	assert.ErrorIs(t, err, plain)
}

func TestCheckout_HandleReturnEmitsSuccessWithSale(t *testing.T) {
	sale := &Sale{ID: "SALE-1", State: "completed", ParentPayment: "PAY-1"}
	api := &fakeAPI{t: t}
	api.getPayment = func(paymentID string) (*Payment, error) {
		return &Payment{
			ID: paymentID,
			Transactions: []PaymentTransaction{{
				RelatedResources: []RelatedResource{{Sale: sale}},
			}},
		}, nil
	}
	api.executePayment = func(paymentID, payerID string) (*Payment, error) {
		assert.Equal(t, "PAYER-1", payerID)
		return &Payment{ID: paymentID}, nil
	}

	checkout, err := NewCheckout(testCredentials(), api)
	require.NoError(t, err)

	var gotIntent *PaymentIntent
	var gotSale *Sale
	checkout.OnSuccess(func(intent *PaymentIntent, s *Sale) {
		gotIntent = intent
		gotSale = s
	})

	intent, err := checkout.HandleReturn(context.Background(), "PAY-1", "PAYER-1")
	require.NoError(t, err)
	assert.Same(t, intent, gotIntent)
	assert.Equal(t, "SALE-1", gotSale.ID)
}

func TestCheckout_HandleReturnErrorPolicy(t *testing.T) {
	api := &fakeAPI{t: t}
	api.getPayment = func(paymentID string) (*Payment, error) {
		return nil, &Fault{Category: FaultConnection, Message: "down"}
	}

	checkout, err := NewCheckout(testCredentials(), api)
	require.NoError(t, err)

	_, err = checkout.HandleReturn(context.Background(), "PAY-1", "PAYER-1")
	var gwErr *GatewayError
	require.ErrorAs(t, err, &gwErr)

	var delivered *GatewayError
	checkout.OnError(func(e *GatewayError) { delivered = e })
	intent, err := checkout.HandleReturn(context.Background(), "PAY-1", "PAYER-1")
	assert.NoError(t, err)
	assert.Nil(t, intent)
	require.NotNil(t, delivered)
	assert.Equal(t, FaultConnection, delivered.Category)
}

func TestCheckout_HandleCancelEmitsWithoutGatewayCall(t *testing.T) {
	api := &fakeAPI{t: t} // any gateway call would fail the test

	checkout, err := NewCheckout(testCredentials(), api)
	require.NoError(t, err)

	cancelled := 0
	checkout.OnCancel(func() { cancelled++ })
	checkout.HandleCancel()

	assert.Equal(t, 1, cancelled)
	assert.Empty(t, api.calls)
}

func TestCheckout_ListenersFireInRegistrationOrder(t *testing.T) {
	checkout, err := NewCheckout(testCredentials(), createOKAPI(t))
	require.NoError(t, err)

	var order []string
	checkout.OnInitiated(func(*PaymentIntent) { order = append(order, "first") })
	checkout.OnInitiated(func(*PaymentIntent) { order = append(order, "second") })
	checkout.OnInitiated(func(*PaymentIntent) { order = append(order, "third") })

	_, err = checkout.InitiateCheckout(context.Background(), widgetTransaction(t), "", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second", "third"}, order)
}

func TestCheckout_DetachIsIdempotent(t *testing.T) {
	checkout, err := NewCheckout(testCredentials(), createOKAPI(t))
	require.NoError(t, err)

	calls := 0
	remove := checkout.OnInitiated(func(*PaymentIntent) { calls++ })
	keep := 0
	checkout.OnInitiated(func(*PaymentIntent) { keep++ })

	remove()
	remove()

	_, err = checkout.InitiateCheckout(context.Background(), widgetTransaction(t), "", "")
	require.NoError(t, err)
	assert.Equal(t, 0, calls)
	assert.Equal(t, 1, keep)
}

func TestCheckout_DetachedErrorSubscriberRestoresPropagation(t *testing.T) {
	api := &fakeAPI{t: t}
	api.createPayment = func(p *Payment) (*Payment, error) {
		return nil, &Fault{Category: FaultConnection, Message: "down"}
	}

	checkout, err := NewCheckout(testCredentials(), api)
	require.NoError(t, err)

	remove := checkout.OnError(func(*GatewayError) {})
	remove()

	_, err = checkout.InitiateCheckout(context.Background(), widgetTransaction(t), "", "")
	var gwErr *GatewayError
	assert.ErrorAs(t, err, &gwErr)
}

func TestNewCheckout_ValidatesCredentials(t *testing.T) {
	_, err := NewCheckout(Credentials{}, &fakeAPI{t: t})
	assert.ErrorIs(t, err, ErrCredentialsMissing)
}
