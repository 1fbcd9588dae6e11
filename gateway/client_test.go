package gateway

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPI is an in-memory API recording every call in order. Unset function
// fields fail the calling test.
type fakeAPI struct {
	t     *testing.T
	calls []string

	createPayment  func(p *Payment) (*Payment, error)
	executePayment func(paymentID, payerID string) (*Payment, error)
	getPayment     func(paymentID string) (*Payment, error)
	getSale        func(saleID string) (*Sale, error)
	refundSale     func(saleID string, amount Amount) (*Refund, error)
}

func (f *fakeAPI) CreatePayment(_ context.Context, p *Payment) (*Payment, error) {
	f.calls = append(f.calls, "create")
	if f.createPayment == nil {
		f.t.Fatal("unexpected CreatePayment call")
	}
	return f.createPayment(p)
}

func (f *fakeAPI) ExecutePayment(_ context.Context, paymentID, payerID string) (*Payment, error) {
	f.calls = append(f.calls, "execute "+paymentID)
	if f.executePayment == nil {
		f.t.Fatal("unexpected ExecutePayment call")
	}
	return f.executePayment(paymentID, payerID)
}

func (f *fakeAPI) GetPayment(_ context.Context, paymentID string) (*Payment, error) {
	f.calls = append(f.calls, "get "+paymentID)
	if f.getPayment == nil {
		f.t.Fatal("unexpected GetPayment call")
	}
	return f.getPayment(paymentID)
}

func (f *fakeAPI) GetSale(_ context.Context, saleID string) (*Sale, error) {
	f.calls = append(f.calls, "sale "+saleID)
	if f.getSale == nil {
		f.t.Fatal("unexpected GetSale call")
	}
	return f.getSale(saleID)
}

func (f *fakeAPI) RefundSale(_ context.Context, saleID string, amount Amount) (*Refund, error) {
	f.calls = append(f.calls, "refund "+saleID)
	if f.refundSale == nil {
		f.t.Fatal("unexpected RefundSale call")
	}
	return f.refundSale(saleID, amount)
}

func testCredentials() Credentials {
	return Credentials{ClientID: "client-1", Secret: "secret-1"}
}

func widgetTransaction(t *testing.T) Transaction {
	t.Helper()
	b := NewTransactionBuilder()
	require.NoError(t, b.SetCurrency("USD"))
	require.NoError(t, b.AddItem("Widget", 2, dec("9.99")))
	require.NoError(t, b.SetShipping(dec("5.00")))
	tx, err := b.Build()
	require.NoError(t, err)
	return tx
}

func TestNewClient_ValidatesCredentialsBeforeAnyCall(t *testing.T) {
	api := &fakeAPI{t: t}

	_, err := NewClient(Credentials{Secret: "s"}, api)
	assert.ErrorIs(t, err, ErrCredentialsMissing)

	_, err = NewClient(Credentials{ClientID: "c"}, api)
	assert.ErrorIs(t, err, ErrCredentialsMissing)

	assert.Empty(t, api.calls, "no gateway call may happen before validation")
}

func TestClient_CreatePayment_RequestShape(t *testing.T) {
	var sent *Payment
	api := &fakeAPI{t: t, createPayment: func(p *Payment) (*Payment, error) {
		sent = p
		created := *p
		created.ID = "PAY-1"
		created.State = "created"
		created.Links = []Link{
			{Href: "https://gateway.example/self", Rel: "self"},
			{Href: "https://gateway.example/approve?token=EC-1", Rel: "approval_url"},
		}
		return &created, nil
	}}

	creds := testCredentials()
	creds.ExperienceProfileID = "XP-777"
	client, err := NewClient(creds, api)
	require.NoError(t, err)
	require.NoError(t, client.SetReturnURL("https://shop.example/return?order=42"))
	require.NoError(t, client.SetCancelURL("https://shop.example/cancel"))

	intent, err := client.CreatePayment(context.Background(), widgetTransaction(t))
	require.NoError(t, err)

	require.NotNil(t, sent)
	assert.Equal(t, "sale", sent.Intent)
	assert.Equal(t, "paypal", sent.Payer.PaymentMethod)
	assert.Equal(t, "XP-777", sent.ExperienceProfileID)

	require.NotNil(t, sent.RedirectURLs)
	assert.Contains(t, sent.RedirectURLs.ReturnURL, "utm_nooverride=1")
	assert.Contains(t, sent.RedirectURLs.ReturnURL, "order=42")
	assert.Equal(t, "https://shop.example/cancel", sent.RedirectURLs.CancelURL)

	require.Len(t, sent.Transactions, 1)
	amount := sent.Transactions[0].Amount
	assert.Equal(t, "USD", amount.Currency)
	assert.Equal(t, "24.98", amount.Total)
	require.NotNil(t, amount.Details)
	assert.Equal(t, "19.98", amount.Details.Subtotal)
	assert.Equal(t, "5.00", amount.Details.Shipping)
	assert.Equal(t, "", amount.Details.Tax, "absent tax must stay off the wire")

	require.NotNil(t, sent.Transactions[0].ItemList)
	require.Len(t, sent.Transactions[0].ItemList.Items, 1)
	item := sent.Transactions[0].ItemList.Items[0]
	assert.Equal(t, Item{Name: "Widget", Currency: "USD", Quantity: "2", Price: "9.99"}, item)

	assert.Equal(t, "PAY-1", intent.ID)
	assert.Equal(t, StatusCreated, intent.Status)
	assert.Equal(t, "https://gateway.example/approve?token=EC-1", intent.ApprovalLink)
}

func TestClient_CreatePayment_RedirectTargetsAreOptionalAndConsumed(t *testing.T) {
	var sent []*Payment
	api := &fakeAPI{t: t, createPayment: func(p *Payment) (*Payment, error) {
		sent = append(sent, p)
		created := *p
		created.ID = "PAY-1"
		return &created, nil
	}}

	client, err := NewClient(testCredentials(), api)
	require.NoError(t, err)

	_, err = client.CreatePayment(context.Background(), widgetTransaction(t))
	require.NoError(t, err)
	assert.Nil(t, sent[0].RedirectURLs)

	require.NoError(t, client.SetReturnURL("https://shop.example/return"))
	_, err = client.CreatePayment(context.Background(), widgetTransaction(t))
	require.NoError(t, err)
	require.NotNil(t, sent[1].RedirectURLs)

	// Targets apply to the next create only.
	_, err = client.CreatePayment(context.Background(), widgetTransaction(t))
	require.NoError(t, err)
	assert.Nil(t, sent[2].RedirectURLs)
}

func TestClient_CreatePayment_TranslatesGatewayFault(t *testing.T) {
	api := &fakeAPI{t: t, createPayment: func(p *Payment) (*Payment, error) {
		return nil, &Fault{Category: FaultConfiguration, Message: "bad profile", Data: "raw"}
	}}

	client, err := NewClient(testCredentials(), api)
	require.NoError(t, err)

	_, err = client.CreatePayment(context.Background(), widgetTransaction(t))
	var gwErr *GatewayError
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, FaultConfiguration, gwErr.Category)
	assert.Equal(t, "bad profile Data: raw", gwErr.Message)
}

func TestClient_CompletePayment_ReturnsRefetchedState(t *testing.T) {
	gets := 0
	api := &fakeAPI{t: t}
	api.getPayment = func(paymentID string) (*Payment, error) {
		gets++
		if gets == 1 {
			return &Payment{ID: paymentID, State: "approved"}, nil
		}
		return &Payment{
			ID:    paymentID,
			State: "approved",
			Transactions: []PaymentTransaction{{
				RelatedResources: []RelatedResource{{
					Sale: &Sale{ID: "SALE-1", State: "completed", ParentPayment: paymentID},
				}},
			}},
		}, nil
	}
	api.executePayment = func(paymentID, payerID string) (*Payment, error) {
		// The execute response deliberately lacks the committed sale so the
		// test catches anyone returning it instead of the re-fetch.
		return &Payment{ID: paymentID, State: "approved"}, nil
	}

	client, err := NewClient(testCredentials(), api)
	require.NoError(t, err)

	intent, err := client.CompletePayment(context.Background(), "PAY-1", "PAYER-1")
	require.NoError(t, err)

	assert.Equal(t, []string{"get PAY-1", "execute PAY-1", "get PAY-1"}, api.calls)
	assert.Equal(t, StatusExecuted, intent.Status)
	require.NotNil(t, intent.Sale, "intent must carry the state of the second fetch")
	assert.Equal(t, "SALE-1", intent.Sale.ID)
}

func TestClient_CompletePayment_ExecuteFailureIsTranslated(t *testing.T) {
	api := &fakeAPI{t: t}
	api.getPayment = func(paymentID string) (*Payment, error) {
		return &Payment{ID: paymentID}, nil
	}
	api.executePayment = func(paymentID, payerID string) (*Payment, error) {
		return nil, &Fault{Category: FaultConnection, Message: "reset by peer"}
	}

	client, err := NewClient(testCredentials(), api)
	require.NoError(t, err)

	_, err = client.CompletePayment(context.Background(), "PAY-1", "PAYER-1")
	var gwErr *GatewayError
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, FaultConnection, gwErr.Category)
	assert.Equal(t, []string{"get PAY-1", "execute PAY-1"}, api.calls, "no re-fetch after a failed execute")
}

func TestClient_CheckPayment(t *testing.T) {
	tests := []struct {
		name        string
		saleState   string
		payerStatus string
		expect      VerificationResult
		parentFetch bool
	}{
		{"completed and verified", "completed", "VERIFIED", Verified, true},
		{"completed and unverified", "completed", "UNVERIFIED", Unverified, true},
		{"completed with blank payer status", "completed", "", Unknown, true},
		{"completed with unexpected payer status", "completed", "SOMETHING", Unknown, true},
		{"pending sale short-circuits", "pending", "VERIFIED", Unknown, false},
		{"refunded sale short-circuits", "refunded", "VERIFIED", Unknown, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeAPI{t: t}
			api.getSale = func(saleID string) (*Sale, error) {
				return &Sale{ID: saleID, State: tt.saleState, ParentPayment: "PAY-1"}, nil
			}
			api.getPayment = func(paymentID string) (*Payment, error) {
				return &Payment{ID: paymentID, Payer: Payer{Status: tt.payerStatus}}, nil
			}

			client, err := NewClient(testCredentials(), api)
			require.NoError(t, err)

			result, err := client.CheckPayment(context.Background(), "SALE-1")
			require.NoError(t, err)
			assert.Equal(t, tt.expect, result)

			if tt.parentFetch {
				assert.Equal(t, []string{"sale SALE-1", "get PAY-1"}, api.calls)
			} else {
				assert.Equal(t, []string{"sale SALE-1"}, api.calls,
					"payer status must be irrelevant for a non-completed sale")
			}
		})
	}
}

func TestClient_RefundPayment(t *testing.T) {
	tests := []struct {
		name        string
		refundState string
		expect      bool
	}{
		{"completed refund", "completed", true},
		{"pending refund is false not error", "pending", false},
		{"failed refund is false not error", "failed", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotAmount Amount
			api := &fakeAPI{t: t}
			api.refundSale = func(saleID string, amount Amount) (*Refund, error) {
				gotAmount = amount
				return &Refund{ID: "REF-1", State: tt.refundState}, nil
			}

			client, err := NewClient(testCredentials(), api)
			require.NoError(t, err)

			ok, err := client.RefundPayment(context.Background(), "SALE-1", dec("12.5"), "EUR")
			require.NoError(t, err)
			assert.Equal(t, tt.expect, ok)
			assert.Equal(t, Amount{Currency: "EUR", Total: "12.50"}, gotAmount)
		})
	}
}

func TestClient_RefundPayment_FaultIsTranslated(t *testing.T) {
	api := &fakeAPI{t: t}
	api.refundSale = func(saleID string, amount Amount) (*Refund, error) {
		return nil, &Fault{Category: FaultInvalidCredentials, Message: "unauthorized", Code: "401"}
	}

	client, err := NewClient(testCredentials(), api)
	require.NoError(t, err)

	ok, err := client.RefundPayment(context.Background(), "SALE-1", dec("1.00"), "EUR")
	assert.False(t, ok)
	var gwErr *GatewayError
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, FaultInvalidCredentials, gwErr.Category)
}
