package gateway

import "context"

// Wire types mirror the gateway's v1 payment resources. Only the fields the
// orchestration logic reads or writes are mapped; monetary values travel as
// fixed two-decimal strings, the format the gateway expects.

// Link is a HATEOAS link attached to a gateway resource.
type Link struct {
	Href   string `json:"href"`
	Rel    string `json:"rel"`
	Method string `json:"method,omitempty"`
}

// PayerInfo carries the gateway's view of the payer account.
type PayerInfo struct {
	Email   string `json:"email,omitempty"`
	PayerID string `json:"payer_id,omitempty"`
}

// Payer describes who pays and how.
type Payer struct {
	PaymentMethod string     `json:"payment_method"`
	Status        string     `json:"status,omitempty"`
	PayerInfo     *PayerInfo `json:"payer_info,omitempty"`
}

// Details is the amount breakdown. Shipping and tax are omitted entirely when
// absent; the gateway treats an omitted field differently from a zero.
type Details struct {
	Subtotal string `json:"subtotal"`
	Shipping string `json:"shipping,omitempty"`
	Tax      string `json:"tax,omitempty"`
}

// Amount is a monetary total with an optional breakdown.
type Amount struct {
	Currency string   `json:"currency"`
	Total    string   `json:"total"`
	Details  *Details `json:"details,omitempty"`
}

// Item is one purchasable line on the wire.
type Item struct {
	Name     string `json:"name"`
	Currency string `json:"currency"`
	Quantity string `json:"quantity"`
	Price    string `json:"price"`
}

// ItemList wraps the item array the way the gateway nests it.
type ItemList struct {
	Items []Item `json:"items"`
}

// RelatedResource holds resources the gateway attaches to an executed
// transaction, notably the sale record created by an executed sale payment.
type RelatedResource struct {
	Sale *Sale `json:"sale,omitempty"`
}

// PaymentTransaction is the transaction block inside a payment.
type PaymentTransaction struct {
	Amount           Amount            `json:"amount"`
	Description      string            `json:"description,omitempty"`
	ItemList         *ItemList         `json:"item_list,omitempty"`
	RelatedResources []RelatedResource `json:"related_resources,omitempty"`
}

// RedirectURLs are the return and cancel targets for one checkout attempt.
type RedirectURLs struct {
	ReturnURL string `json:"return_url,omitempty"`
	CancelURL string `json:"cancel_url,omitempty"`
}

// Payment is the gateway payment resource.
type Payment struct {
	ID                  string               `json:"id,omitempty"`
	Intent              string               `json:"intent"`
	State               string               `json:"state,omitempty"`
	Payer               Payer                `json:"payer"`
	Transactions        []PaymentTransaction `json:"transactions"`
	ExperienceProfileID string               `json:"experience_profile_id,omitempty"`
	RedirectURLs        *RedirectURLs        `json:"redirect_urls,omitempty"`
	Links               []Link               `json:"links,omitempty"`
	CreateTime          string               `json:"create_time,omitempty"`
	UpdateTime          string               `json:"update_time,omitempty"`
}

// Sale is the gateway sale resource created when a sale payment executes.
type Sale struct {
	ID            string  `json:"id"`
	State         string  `json:"state"`
	Amount        *Amount `json:"amount,omitempty"`
	ParentPayment string  `json:"parent_payment,omitempty"`
	CreateTime    string  `json:"create_time,omitempty"`
}

// Refund is the gateway refund resource.
type Refund struct {
	ID     string  `json:"id,omitempty"`
	State  string  `json:"state"`
	Amount *Amount `json:"amount,omitempty"`
	SaleID string  `json:"sale_id,omitempty"`
}

// API is the transport capability the orchestration core needs from the
// gateway. Implementations own HTTP, authentication, timeouts and low-level
// retries, and report failures as *Fault so they can be classified.
type API interface {
	// CreatePayment submits a new payment and returns the created resource
	// including its approval link.
	CreatePayment(ctx context.Context, payment *Payment) (*Payment, error)

	// ExecutePayment executes an approved payment on behalf of the payer.
	ExecutePayment(ctx context.Context, paymentID, payerID string) (*Payment, error)

	// GetPayment fetches a payment by id.
	GetPayment(ctx context.Context, paymentID string) (*Payment, error)

	// GetSale fetches a sale by id.
	GetSale(ctx context.Context, saleID string) (*Sale, error)

	// RefundSale refunds the given amount of a sale.
	RefundSale(ctx context.Context, saleID string, amount Amount) (*Refund, error)
}
