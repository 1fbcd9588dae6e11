package gateway

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// ErrCurrencyNotSet is returned when items are added or a transaction is
	// built before a currency has been chosen.
	ErrCurrencyNotSet = errors.New("gateway: currency not set")

	// ErrCurrencyChanged is returned when the currency is changed after items
	// have already been added.
	ErrCurrencyChanged = errors.New("gateway: currency cannot change after items are added")
)

// LineItem is a single purchasable line of a transaction. Once added to a
// builder it is never mutated.
type LineItem struct {
	Name     string
	Quantity int
	Price    decimal.Decimal
	Currency string
}

// Transaction is an immutable snapshot of a checkout amount breakdown.
// Subtotal and GrandTotal are always derived from the items, shipping and tax
// at build time and never stored independently, so the displayed amount can
// not drift from the charged amount.
type Transaction struct {
	Currency   string
	Items      []LineItem
	Shipping   *decimal.Decimal
	Tax        *decimal.Decimal
	Subtotal   decimal.Decimal
	GrandTotal decimal.Decimal
}

// TransactionBuilder accumulates line items, shipping and tax for one checkout
// attempt. Amounts use exact decimal arithmetic. A nil shipping or tax means
// the corresponding field is omitted from the gateway request entirely; the
// gateway distinguishes an omitted field from an explicit zero.
type TransactionBuilder struct {
	currency string
	items    []LineItem
	subtotal decimal.Decimal
	shipping *decimal.Decimal
	tax      *decimal.Decimal
}

// NewTransactionBuilder returns an empty builder.
func NewTransactionBuilder() *TransactionBuilder {
	return &TransactionBuilder{}
}

// SetCurrency sets the ISO 4217 currency code for the transaction. It must be
// called before AddItem; changing the currency once items exist is rejected.
func (b *TransactionBuilder) SetCurrency(code string) error {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return ErrCurrencyNotSet
	}
	if len(b.items) > 0 && code != b.currency {
		return ErrCurrencyChanged
	}
	b.currency = code
	return nil
}

// AddItem appends a line item and adds quantity*price to the running subtotal.
func (b *TransactionBuilder) AddItem(name string, quantity int, price decimal.Decimal) error {
	if b.currency == "" {
		return ErrCurrencyNotSet
	}
	if strings.TrimSpace(name) == "" {
		return errors.New("gateway: item name must not be empty")
	}
	if quantity < 1 {
		return fmt.Errorf("gateway: item quantity must be at least 1, got %d", quantity)
	}
	if price.IsNegative() {
		return fmt.Errorf("gateway: item price must not be negative, got %s", price)
	}
	b.items = append(b.items, LineItem{
		Name:     name,
		Quantity: quantity,
		Price:    price,
		Currency: b.currency,
	})
	b.subtotal = b.subtotal.Add(price.Mul(decimal.NewFromInt(int64(quantity))))
	return nil
}

// SetShipping sets the optional shipping amount.
func (b *TransactionBuilder) SetShipping(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return fmt.Errorf("gateway: shipping must not be negative, got %s", amount)
	}
	b.shipping = &amount
	return nil
}

// SetTax sets the optional tax amount.
func (b *TransactionBuilder) SetTax(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return fmt.Errorf("gateway: tax must not be negative, got %s", amount)
	}
	b.tax = &amount
	return nil
}

// Build returns an immutable Transaction with the subtotal and grand total
// computed from the current items, shipping and tax.
func (b *TransactionBuilder) Build() (Transaction, error) {
	if b.currency == "" {
		return Transaction{}, ErrCurrencyNotSet
	}

	items := make([]LineItem, len(b.items))
	copy(items, b.items)

	grand := b.subtotal
	if b.shipping != nil {
		grand = grand.Add(*b.shipping)
	}
	if b.tax != nil {
		grand = grand.Add(*b.tax)
	}

	tx := Transaction{
		Currency:   b.currency,
		Items:      items,
		Subtotal:   b.subtotal,
		GrandTotal: grand,
	}
	if b.shipping != nil {
		shipping := *b.shipping
		tx.Shipping = &shipping
	}
	if b.tax != nil {
		tax := *b.tax
		tx.Tax = &tax
	}
	return tx, nil
}
