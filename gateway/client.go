package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/shopspring/decimal"
)

const (
	intentSale         = "sale"
	payerMethodDefault = "paypal"

	// Appended to the return URL so the gateway does not substitute its own
	// return page for the one the merchant configured.
	noOverrideParam = "utm_nooverride"

	relApprovalURL = "approval_url"

	saleStateCompleted = "completed"

	payerStatusVerified   = "VERIFIED"
	payerStatusUnverified = "UNVERIFIED"
)

// Status enumerates the lifecycle states of a payment intent.
type Status string

const (
	StatusCreated   Status = "created"
	StatusApproved  Status = "approved"
	StatusExecuted  Status = "executed"
	StatusCancelled Status = "cancelled"
	StatusFailed    Status = "failed"
)

// VerificationResult is the three-valued outcome of a sale verification.
// Unknown means no assertion can be made; callers must not conflate it with
// a failed verification.
type VerificationResult string

const (
	Verified   VerificationResult = "verified"
	Unverified VerificationResult = "unverified"
	Unknown    VerificationResult = "unknown"
)

// PaymentIntent is the client's view of a gateway payment as it moves through
// the checkout lifecycle. It is created by CreatePayment and only mutated by
// the completion path; hosts treat it as read-only.
type PaymentIntent struct {
	ID           string
	ApprovalLink string
	Transaction  Transaction
	Status       Status
	Sale         *Sale
	Raw          *Payment
}

// Client drives the payment lifecycle against the gateway transport. Redirect
// targets are scoped to the next CreatePayment call only, so a client must not
// be shared across concurrent checkout attempts; use one client per attempt.
type Client struct {
	creds     Credentials
	api       API
	redirects *RedirectURLs
}

// NewClient validates the credentials eagerly and returns a client bound to
// the given transport.
func NewClient(creds Credentials, api API) (*Client, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	if api == nil {
		return nil, errors.New("gateway: api must not be nil")
	}
	return &Client{creds: creds, api: api}, nil
}

// SetReturnURL sets the URL the payer returns to after approving the payment.
// The no-override marker is appended so the gateway keeps this exact page.
func (c *Client) SetReturnURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("gateway: invalid return url: %w", err)
	}
	q := u.Query()
	q.Set(noOverrideParam, "1")
	u.RawQuery = q.Encode()
	c.targets().ReturnURL = u.String()
	return nil
}

// SetCancelURL sets the URL the payer lands on when abandoning the approval
// page.
func (c *Client) SetCancelURL(raw string) error {
	if _, err := url.Parse(raw); err != nil {
		return fmt.Errorf("gateway: invalid cancel url: %w", err)
	}
	c.targets().CancelURL = raw
	return nil
}

func (c *Client) targets() *RedirectURLs {
	if c.redirects == nil {
		c.redirects = &RedirectURLs{}
	}
	return c.redirects
}

// CreatePayment submits a sale-intent payment for the given transaction and
// returns an intent in state created carrying the approval link. The pending
// redirect targets are consumed by this call.
func (c *Client) CreatePayment(ctx context.Context, tx Transaction) (*PaymentIntent, error) {
	payment := &Payment{
		Intent:       intentSale,
		Payer:        Payer{PaymentMethod: payerMethodDefault},
		Transactions: []PaymentTransaction{wireTransaction(tx)},
	}
	if c.creds.ExperienceProfileID != "" {
		payment.ExperienceProfileID = c.creds.ExperienceProfileID
	}
	if c.redirects != nil {
		payment.RedirectURLs = c.redirects
		c.redirects = nil
	}

	created, err := c.api.CreatePayment(ctx, payment)
	if err != nil {
		return nil, translateError(err)
	}

	return &PaymentIntent{
		ID:           created.ID,
		ApprovalLink: approvalLink(created),
		Transaction:  tx,
		Status:       StatusCreated,
		Raw:          created,
	}, nil
}

// CompletePayment executes an approved payment on the payer's behalf and
// returns the authoritative executed state. The execute response itself may
// not carry the final committed fields, so the payment is re-fetched after
// execution and that fetched state is what callers get back.
func (c *Client) CompletePayment(ctx context.Context, paymentID, payerID string) (*PaymentIntent, error) {
	if _, err := c.api.GetPayment(ctx, paymentID); err != nil {
		return nil, translateError(err)
	}
	if _, err := c.api.ExecutePayment(ctx, paymentID, payerID); err != nil {
		return nil, translateError(err)
	}
	paid, err := c.api.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, translateError(err)
	}

	return &PaymentIntent{
		ID:           paid.ID,
		ApprovalLink: approvalLink(paid),
		Status:       StatusExecuted,
		Sale:         firstSale(paid),
		Raw:          paid,
	}, nil
}

// CheckPayment verifies a completed sale by inspecting the payer status on the
// parent payment. A sale in any state other than completed yields Unknown
// regardless of the payer status.
func (c *Client) CheckPayment(ctx context.Context, saleID string) (VerificationResult, error) {
	sale, err := c.api.GetSale(ctx, saleID)
	if err != nil {
		return Unknown, translateError(err)
	}
	if sale.State != saleStateCompleted {
		return Unknown, nil
	}

	payment, err := c.api.GetPayment(ctx, sale.ParentPayment)
	if err != nil {
		return Unknown, translateError(err)
	}
	switch payment.Payer.Status {
	case payerStatusVerified:
		return Verified, nil
	case payerStatusUnverified:
		return Unverified, nil
	}
	return Unknown, nil
}

// RefundPayment refunds the given amount of a sale. It reports true only when
// the gateway confirms the refund completed; any other terminal refund state
// is a valid false outcome, not an error.
func (c *Client) RefundPayment(ctx context.Context, saleID string, amount decimal.Decimal, currency string) (bool, error) {
	refund, err := c.api.RefundSale(ctx, saleID, Amount{
		Currency: currency,
		Total:    amount.StringFixed(2),
	})
	if err != nil {
		return false, translateError(err)
	}
	return refund.State == saleStateCompleted, nil
}

// wireTransaction converts a built Transaction into the gateway's wire shape.
// Shipping and tax stay omitted when absent.
func wireTransaction(tx Transaction) PaymentTransaction {
	items := make([]Item, len(tx.Items))
	for i, item := range tx.Items {
		items[i] = Item{
			Name:     item.Name,
			Currency: item.Currency,
			Quantity: strconv.Itoa(item.Quantity),
			Price:    item.Price.StringFixed(2),
		}
	}

	details := &Details{Subtotal: tx.Subtotal.StringFixed(2)}
	if tx.Shipping != nil {
		details.Shipping = tx.Shipping.StringFixed(2)
	}
	if tx.Tax != nil {
		details.Tax = tx.Tax.StringFixed(2)
	}

	return PaymentTransaction{
		Amount: Amount{
			Currency: tx.Currency,
			Total:    tx.GrandTotal.StringFixed(2),
			Details:  details,
		},
		ItemList: &ItemList{Items: items},
	}
}

// approvalLink scans the payment links for the payer approval URL.
func approvalLink(p *Payment) string {
	for _, link := range p.Links {
		if link.Rel == relApprovalURL {
			return link.Href
		}
	}
	return ""
}

// firstSale returns the sale record the gateway attached to the executed
// payment, when it surfaced one.
func firstSale(p *Payment) *Sale {
	for _, tx := range p.Transactions {
		for _, res := range tx.RelatedResources {
			if res.Sale != nil {
				return res.Sale
			}
		}
	}
	return nil
}
