package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/mstgnz/paylink/infra/opensearch"
	"github.com/mstgnz/paylink/infra/response"
)

// CheckoutEventStore defines the event queries the handler needs
type CheckoutEventStore interface {
	GetPaymentEvents(ctx context.Context, paymentID string) ([]opensearch.CheckoutLog, error)
	GetRecentErrorEvents(ctx context.Context, hours int) ([]opensearch.CheckoutLog, error)
}

// EventsHandler serves the indexed checkout events back over HTTP
type EventsHandler struct {
	store CheckoutEventStore
}

// NewEventsHandler creates a new events handler. A nil store means event
// logging is disabled; the endpoint then reports service unavailable.
func NewEventsHandler(store CheckoutEventStore) *EventsHandler {
	return &EventsHandler{store: store}
}

// ListEvents handles GET /v1/checkout/events. Query by paymentId for the
// event trail of one checkout, or by errors=true (optional hours, default 24)
// for recent failures.
func (h *EventsHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		response.Error(w, http.StatusServiceUnavailable, "Event logging is not enabled", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	paymentID := r.URL.Query().Get("paymentId")
	errorsOnly := r.URL.Query().Get("errors") == "true"

	var (
		events []opensearch.CheckoutLog
		err    error
	)
	switch {
	case paymentID != "":
		events, err = h.store.GetPaymentEvents(ctx, paymentID)
	case errorsOnly:
		hours := 24
		if raw := r.URL.Query().Get("hours"); raw != "" {
			parsed, parseErr := strconv.Atoi(raw)
			if parseErr != nil || parsed < 1 {
				response.Error(w, http.StatusBadRequest, "hours must be a positive integer", nil)
				return
			}
			hours = parsed
		}
		events, err = h.store.GetRecentErrorEvents(ctx, hours)
	default:
		response.Error(w, http.StatusBadRequest, "paymentId or errors=true query parameter is required", nil)
		return
	}

	if err != nil {
		response.Error(w, http.StatusInternalServerError, "Failed to retrieve events", err)
		return
	}

	response.Success(w, http.StatusOK, "Events retrieved", map[string]any{
		"events": events,
		"count":  len(events),
	})
}
