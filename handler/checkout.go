package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/mstgnz/paylink/gateway"
	"github.com/mstgnz/paylink/infra/logger"
	"github.com/mstgnz/paylink/infra/response"
	"github.com/shopspring/decimal"
)

// CheckoutServiceInterface defines the checkout operations the handler needs
type CheckoutServiceInterface interface {
	InitiateCheckout(ctx context.Context, tx gateway.Transaction, returnURL, cancelURL string) (*gateway.PaymentIntent, error)
	HandleReturn(ctx context.Context, paymentID, payerID string) (*gateway.PaymentIntent, error)
	HandleCancel()
	Verify(ctx context.Context, saleID string) (gateway.VerificationResult, error)
	Refund(ctx context.Context, saleID string, amount decimal.Decimal, currency string) (bool, error)
}

// CheckoutHandler handles checkout related HTTP requests
type CheckoutHandler struct {
	checkoutService CheckoutServiceInterface
	validate        *validator.Validate
}

// NewCheckoutHandler creates a new checkout handler
func NewCheckoutHandler(checkoutService CheckoutServiceInterface, validate *validator.Validate) *CheckoutHandler {
	return &CheckoutHandler{
		checkoutService: checkoutService,
		validate:        validate,
	}
}

// CheckoutItem is one purchasable line in a checkout request
type CheckoutItem struct {
	Name     string `json:"name" validate:"required"`
	Quantity int    `json:"quantity" validate:"required,min=1"`
	Price    string `json:"price" validate:"required"`
}

// CheckoutRequest represents a request to start a hosted checkout
type CheckoutRequest struct {
	Currency  string         `json:"currency" validate:"required,len=3"`
	Items     []CheckoutItem `json:"items" validate:"required,min=1,dive"`
	Shipping  *string        `json:"shipping,omitempty"`
	Tax       *string        `json:"tax,omitempty"`
	ReturnURL string         `json:"returnUrl" validate:"required,url"`
	CancelURL string         `json:"cancelUrl" validate:"required,url"`
}

// RefundRequest represents a request to refund a sale
type RefundRequest struct {
	Amount   string `json:"amount" validate:"required"`
	Currency string `json:"currency" validate:"required,len=3"`
}

// InitiateCheckout handles POST /v1/checkout
func (h *CheckoutHandler) InitiateCheckout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	var req CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		response.Error(w, http.StatusBadRequest, "Validation error", err)
		return
	}

	tx, err := buildTransaction(req)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid transaction", err)
		return
	}

	intent, err := h.checkoutService.InitiateCheckout(ctx, tx, req.ReturnURL, req.CancelURL)
	if err != nil {
		h.writeServiceError(w, "Checkout initiation failed", err)
		return
	}
	if intent == nil {
		// Gateway failure was delivered to error subscribers
		response.Error(w, http.StatusBadGateway, "Checkout initiation failed", nil)
		return
	}

	logger.WithPayment(intent.ID).Info("checkout initiated")

	response.Success(w, http.StatusCreated, "Checkout initiated", map[string]any{
		"paymentId":   intent.ID,
		"approvalUrl": intent.ApprovalLink,
		"status":      string(intent.Status),
		"currency":    tx.Currency,
		"grandTotal":  tx.GrandTotal.StringFixed(2),
	})
}

// CompleteCheckout handles GET /v1/checkout/return
func (h *CheckoutHandler) CompleteCheckout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	paymentID := r.URL.Query().Get("paymentId")
	payerID := r.URL.Query().Get("PayerID")

	if paymentID == "" || payerID == "" {
		response.Error(w, http.StatusBadRequest, "paymentId and PayerID query parameters are required", nil)
		return
	}

	intent, err := h.checkoutService.HandleReturn(ctx, paymentID, payerID)
	if err != nil {
		h.writeServiceError(w, "Checkout completion failed", err)
		return
	}
	if intent == nil {
		// Gateway failure was delivered to error subscribers
		response.Error(w, http.StatusBadGateway, "Checkout completion failed", nil)
		return
	}

	data := map[string]any{
		"paymentId": intent.ID,
		"status":    string(intent.Status),
	}
	if intent.Sale != nil {
		data["saleId"] = intent.Sale.ID
		data["saleState"] = intent.Sale.State
	}
	if intent.Raw != nil {
		// The executed amount lives on the re-fetched payment; the local
		// transaction is not carried across the approval redirect.
		if len(intent.Raw.Transactions) > 0 {
			amount := intent.Raw.Transactions[0].Amount
			data["currency"] = amount.Currency
			data["grandTotal"] = amount.Total
		}
		data["payerStatus"] = intent.Raw.Payer.Status
	}

	logger.WithPayment(intent.ID).Info("checkout completed")

	response.Success(w, http.StatusOK, "Checkout completed", data)
}

// CancelCheckout handles GET /v1/checkout/cancel
func (h *CheckoutHandler) CancelCheckout(w http.ResponseWriter, r *http.Request) {
	h.checkoutService.HandleCancel()

	response.Success(w, http.StatusOK, "Checkout cancelled", map[string]any{
		"status": string(gateway.StatusCancelled),
	})
}

// VerifySale handles GET /v1/sales/{saleID}/verify
func (h *CheckoutHandler) VerifySale(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	saleID := chi.URLParam(r, "saleID")
	if saleID == "" {
		response.Error(w, http.StatusBadRequest, "Missing sale ID", nil)
		return
	}

	result, err := h.checkoutService.Verify(ctx, saleID)
	if err != nil {
		h.writeServiceError(w, "Verification failed", err)
		return
	}

	response.Success(w, http.StatusOK, "Sale verified", map[string]any{
		"saleId": saleID,
		"result": string(result),
	})
}

// RefundSale handles POST /v1/sales/{saleID}/refund
func (h *CheckoutHandler) RefundSale(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	saleID := chi.URLParam(r, "saleID")
	if saleID == "" {
		response.Error(w, http.StatusBadRequest, "Missing sale ID", nil)
		return
	}

	var req RefundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		response.Error(w, http.StatusBadRequest, "Validation error", err)
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || amount.IsNegative() || amount.IsZero() {
		response.Error(w, http.StatusBadRequest, "Refund amount must be a positive decimal", err)
		return
	}

	refunded, err := h.checkoutService.Refund(ctx, saleID, amount, req.Currency)
	if err != nil {
		h.writeServiceError(w, "Refund failed", err)
		return
	}

	logger.WithSale(saleID).Info("refund issued")

	response.Success(w, http.StatusOK, "Refund processed", map[string]any{
		"saleId":   saleID,
		"refunded": refunded,
		"amount":   amount.StringFixed(2),
		"currency": req.Currency,
	})
}

// buildTransaction converts a checkout request into an immutable transaction
func buildTransaction(req CheckoutRequest) (gateway.Transaction, error) {
	builder := gateway.NewTransactionBuilder()
	if err := builder.SetCurrency(req.Currency); err != nil {
		return gateway.Transaction{}, err
	}

	for _, item := range req.Items {
		price, err := decimal.NewFromString(item.Price)
		if err != nil {
			return gateway.Transaction{}, err
		}
		if err := builder.AddItem(item.Name, item.Quantity, price); err != nil {
			return gateway.Transaction{}, err
		}
	}

	if req.Shipping != nil {
		shipping, err := decimal.NewFromString(*req.Shipping)
		if err != nil {
			return gateway.Transaction{}, err
		}
		if err := builder.SetShipping(shipping); err != nil {
			return gateway.Transaction{}, err
		}
	}

	if req.Tax != nil {
		tax, err := decimal.NewFromString(*req.Tax)
		if err != nil {
			return gateway.Transaction{}, err
		}
		if err := builder.SetTax(tax); err != nil {
			return gateway.Transaction{}, err
		}
	}

	return builder.Build()
}

// writeServiceError maps checkout failures to HTTP status codes
func (h *CheckoutHandler) writeServiceError(w http.ResponseWriter, message string, err error) {
	var gwErr *gateway.GatewayError
	switch {
	case errors.Is(err, gateway.ErrCredentialsMissing):
		response.Error(w, http.StatusInternalServerError, "Gateway credentials not configured", err)
	case errors.As(err, &gwErr):
		response.Error(w, http.StatusBadGateway, message, err)
	default:
		response.Error(w, http.StatusInternalServerError, message, err)
	}
}
