package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mstgnz/paylink/infra/opensearch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubEventStore implements CheckoutEventStore for testing
type stubEventStore struct {
	paymentFunc func(ctx context.Context, paymentID string) ([]opensearch.CheckoutLog, error)
	errorsFunc  func(ctx context.Context, hours int) ([]opensearch.CheckoutLog, error)
}

func (s *stubEventStore) GetPaymentEvents(ctx context.Context, paymentID string) ([]opensearch.CheckoutLog, error) {
	if s.paymentFunc != nil {
		return s.paymentFunc(ctx, paymentID)
	}
	return nil, nil
}

func (s *stubEventStore) GetRecentErrorEvents(ctx context.Context, hours int) ([]opensearch.CheckoutLog, error) {
	if s.errorsFunc != nil {
		return s.errorsFunc(ctx, hours)
	}
	return nil, nil
}

func TestEventsHandler_ListEvents_ByPayment(t *testing.T) {
	var gotPaymentID string
	store := &stubEventStore{
		paymentFunc: func(ctx context.Context, paymentID string) ([]opensearch.CheckoutLog, error) {
			gotPaymentID = paymentID
			return []opensearch.CheckoutLog{
				{Event: opensearch.EventCheckoutInitiated, PaymentID: paymentID},
				{Event: opensearch.EventCheckoutSuccess, PaymentID: paymentID},
			}, nil
		},
	}
	h := NewEventsHandler(store)

	req := httptest.NewRequest("GET", "/v1/checkout/events?paymentId=PAY-123", nil)
	rr := httptest.NewRecorder()
	h.ListEvents(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "PAY-123", gotPaymentID)

	data := decodeBody(t, rr)["data"].(map[string]any)
	assert.Equal(t, float64(2), data["count"])

	events := data["events"].([]any)
	first := events[0].(map[string]any)
	assert.Equal(t, "checkout_initiated", first["event"])
}

func TestEventsHandler_ListEvents_RecentErrors(t *testing.T) {
	var gotHours int
	store := &stubEventStore{
		errorsFunc: func(ctx context.Context, hours int) ([]opensearch.CheckoutLog, error) {
			gotHours = hours
			return []opensearch.CheckoutLog{{Event: opensearch.EventCheckoutError}}, nil
		},
	}
	h := NewEventsHandler(store)

	req := httptest.NewRequest("GET", "/v1/checkout/events?errors=true&hours=48", nil)
	rr := httptest.NewRecorder()
	h.ListEvents(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 48, gotHours)
}

func TestEventsHandler_ListEvents_DefaultErrorWindow(t *testing.T) {
	var gotHours int
	store := &stubEventStore{
		errorsFunc: func(ctx context.Context, hours int) ([]opensearch.CheckoutLog, error) {
			gotHours = hours
			return nil, nil
		},
	}
	h := NewEventsHandler(store)

	req := httptest.NewRequest("GET", "/v1/checkout/events?errors=true", nil)
	rr := httptest.NewRecorder()
	h.ListEvents(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 24, gotHours)
}

func TestEventsHandler_ListEvents_BadRequests(t *testing.T) {
	h := NewEventsHandler(&stubEventStore{})

	tests := []struct {
		name string
		url  string
	}{
		{"no_query", "/v1/checkout/events"},
		{"bad_hours", "/v1/checkout/events?errors=true&hours=abc"},
		{"zero_hours", "/v1/checkout/events?errors=true&hours=0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.url, nil)
			rr := httptest.NewRecorder()
			h.ListEvents(rr, req)

			assert.Equal(t, http.StatusBadRequest, rr.Code)
		})
	}
}

func TestEventsHandler_ListEvents_StoreFailure(t *testing.T) {
	store := &stubEventStore{
		paymentFunc: func(ctx context.Context, paymentID string) ([]opensearch.CheckoutLog, error) {
			return nil, errors.New("search failed")
		},
	}
	h := NewEventsHandler(store)

	req := httptest.NewRequest("GET", "/v1/checkout/events?paymentId=PAY-123", nil)
	rr := httptest.NewRecorder()
	h.ListEvents(rr, req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestEventsHandler_ListEvents_LoggingDisabled(t *testing.T) {
	h := NewEventsHandler(nil)

	req := httptest.NewRequest("GET", "/v1/checkout/events?paymentId=PAY-123", nil)
	rr := httptest.NewRecorder()
	h.ListEvents(rr, req)

	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
