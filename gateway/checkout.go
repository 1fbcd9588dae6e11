package gateway

import (
	"context"
	"errors"
	"sync"

	"github.com/shopspring/decimal"
)

// listenerList keeps subscribers in registration order and hands out ids so a
// subscription can be detached later. Detaching twice is a no-op.
type listenerList[T any] struct {
	nextID  int
	entries []listenerEntry[T]
}

type listenerEntry[T any] struct {
	id int
	fn T
}

func (l *listenerList[T]) add(fn T) int {
	l.nextID++
	l.entries = append(l.entries, listenerEntry[T]{id: l.nextID, fn: fn})
	return l.nextID
}

func (l *listenerList[T]) remove(id int) {
	for i, e := range l.entries {
		if e.id == id {
			l.entries = append(l.entries[:i], l.entries[i+1:]...)
			return
		}
	}
}

func (l *listenerList[T]) snapshot() []T {
	fns := make([]T, len(l.entries))
	for i, e := range l.entries {
		fns[i] = e.fn
	}
	return fns
}

// Checkout coordinates hosted checkout attempts for the hosting application:
// it creates the gateway payment, hands back the approval link for the payer
// redirect, finalizes the payment when the payer returns, and broadcasts
// lifecycle events to registered subscribers.
//
// Per-attempt state (redirect targets) lives in a fresh Client per call, so a
// single Checkout is safe to share across concurrent attempts.
type Checkout struct {
	creds Credentials
	api   API

	mu          sync.Mutex
	onInitiated listenerList[func(*PaymentIntent)]
	onSuccess   listenerList[func(*PaymentIntent, *Sale)]
	onCancel    listenerList[func()]
	onError     listenerList[func(*GatewayError)]
}

// NewCheckout validates the credentials eagerly and returns a checkout
// coordinator bound to the given transport.
func NewCheckout(creds Credentials, api API) (*Checkout, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	if api == nil {
		return nil, errors.New("gateway: api must not be nil")
	}
	return &Checkout{creds: creds, api: api}, nil
}

// OnInitiated subscribes to checkout-initiated events. The returned func
// detaches the subscription.
func (c *Checkout) OnInitiated(fn func(*PaymentIntent)) func() {
	c.mu.Lock()
	id := c.onInitiated.add(fn)
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		c.onInitiated.remove(id)
		c.mu.Unlock()
	}
}

// OnSuccess subscribes to successful completions. The sale argument is nil
// when the gateway did not surface a sale record on the executed payment.
func (c *Checkout) OnSuccess(fn func(*PaymentIntent, *Sale)) func() {
	c.mu.Lock()
	id := c.onSuccess.add(fn)
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		c.onSuccess.remove(id)
		c.mu.Unlock()
	}
}

// OnCancel subscribes to payer cancellations.
func (c *Checkout) OnCancel(fn func()) func() {
	c.mu.Lock()
	id := c.onCancel.add(fn)
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		c.onCancel.remove(id)
		c.mu.Unlock()
	}
}

// OnError subscribes to translated gateway failures. While at least one error
// subscriber is registered, such failures are delivered to subscribers instead
// of being returned from InitiateCheckout and HandleReturn.
func (c *Checkout) OnError(fn func(*GatewayError)) func() {
	c.mu.Lock()
	id := c.onError.add(fn)
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		c.onError.remove(id)
		c.mu.Unlock()
	}
}

// InitiateCheckout creates the gateway payment for tx with the given redirect
// targets and returns the intent carrying the approval link the payer must be
// redirected to. When creation fails with a translated gateway error and an
// error subscriber is registered, the error is delivered there and both return
// values are nil; without a subscriber the error is returned.
func (c *Checkout) InitiateCheckout(ctx context.Context, tx Transaction, returnURL, cancelURL string) (*PaymentIntent, error) {
	client, err := NewClient(c.creds, c.api)
	if err != nil {
		return nil, err
	}
	if returnURL != "" {
		if err := client.SetReturnURL(returnURL); err != nil {
			return nil, err
		}
	}
	if cancelURL != "" {
		if err := client.SetCancelURL(cancelURL); err != nil {
			return nil, err
		}
	}

	intent, err := client.CreatePayment(ctx, tx)
	if err != nil {
		return nil, c.deliverError(err)
	}

	for _, fn := range c.initiatedSnapshot() {
		fn(intent)
	}
	return intent, nil
}

// HandleReturn finalizes the payment the payer just approved and emits a
// success event with the executed intent and, when the gateway surfaced it,
// the related sale record. Failures follow the same subscriber-or-propagate
// rule as InitiateCheckout.
func (c *Checkout) HandleReturn(ctx context.Context, paymentID, payerID string) (*PaymentIntent, error) {
	client, err := NewClient(c.creds, c.api)
	if err != nil {
		return nil, err
	}

	intent, err := client.CompletePayment(ctx, paymentID, payerID)
	if err != nil {
		return nil, c.deliverError(err)
	}

	for _, fn := range c.successSnapshot() {
		fn(intent, intent.Sale)
	}
	return intent, nil
}

// HandleCancel broadcasts a cancellation. No gateway call is made: the payer
// never approved, so there is nothing to roll back.
func (c *Checkout) HandleCancel() {
	c.mu.Lock()
	fns := c.onCancel.snapshot()
	c.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// Verify reports the three-valued verification result for a sale.
func (c *Checkout) Verify(ctx context.Context, saleID string) (VerificationResult, error) {
	client, err := NewClient(c.creds, c.api)
	if err != nil {
		return Unknown, err
	}
	return client.CheckPayment(ctx, saleID)
}

// Refund refunds the given amount of a sale and reports whether the gateway
// completed it.
func (c *Checkout) Refund(ctx context.Context, saleID string, amount decimal.Decimal, currency string) (bool, error) {
	client, err := NewClient(c.creds, c.api)
	if err != nil {
		return false, err
	}
	return client.RefundPayment(ctx, saleID, amount, currency)
}

// deliverError applies the error policy: a translated *GatewayError goes to
// the registered error subscribers and is reported as handled (nil); with no
// subscriber it propagates. Failures outside the translated taxonomy always
// propagate.
func (c *Checkout) deliverError(err error) error {
	var gwErr *GatewayError
	if !errors.As(err, &gwErr) {
		return err
	}

	c.mu.Lock()
	fns := c.onError.snapshot()
	c.mu.Unlock()
	if len(fns) == 0 {
		return err
	}
	for _, fn := range fns {
		fn(gwErr)
	}
	return nil
}

func (c *Checkout) initiatedSnapshot() []func(*PaymentIntent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.onInitiated.snapshot()
}

func (c *Checkout) successSnapshot() []func(*PaymentIntent, *Sale) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.onSuccess.snapshot()
}
