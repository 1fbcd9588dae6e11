package middle

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mstgnz/paylink/infra/opensearch"
)

// responseWriter wraps http.ResponseWriter to capture response data
type responseWriter struct {
	http.ResponseWriter
	body       *bytes.Buffer
	statusCode int
	startTime  time.Time
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{
		ResponseWriter: w,
		body:           &bytes.Buffer{},
		statusCode:     http.StatusOK,
		startTime:      time.Now(),
	}
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.body.Write(b)
	return rw.ResponseWriter.Write(b)
}

func (rw *responseWriter) WriteHeader(statusCode int) {
	rw.statusCode = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
}

// CheckoutLoggingMiddleware indexes request-level checkout events to
// OpenSearch. Lifecycle events (initiated, success, cancelled, gateway
// failures) are indexed by the checkout event subscribers; the middleware
// records only what those subscribers cannot see: rejected requests and
// issued refunds.
func CheckoutLoggingMiddleware(logger *opensearch.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Skip logging for non-checkout endpoints
			if !isCheckoutEndpoint(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			// Generate request ID
			requestID := uuid.New().String()
			r.Header.Set("X-Request-ID", requestID)

			rw := newResponseWriter(w)

			next.ServeHTTP(rw, r)

			event := eventForRequest(r, rw.statusCode)
			if event == "" {
				return
			}

			log := opensearch.CheckoutLog{
				Timestamp: rw.startTime,
				Event:     event,
				RequestID: requestID,
				ClientIP:  GetClientIP(r),
			}

			fillFromResponse(&log, rw.body.Bytes())

			if rw.statusCode >= 400 {
				if errorInfo := extractErrorInfo(rw.body.Bytes()); errorInfo != nil {
					log.Error = *errorInfo
				}
			}

			// Log asynchronously to avoid blocking the response
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()

				// Indexing failures must never fail the request
				_ = logger.LogCheckoutEvent(ctx, log)
			}()
		})
	}
}

// isCheckoutEndpoint checks if the URL path is a checkout-related endpoint
func isCheckoutEndpoint(path string) bool {
	checkoutPaths := []string{
		"/v1/checkout",
		"/v1/sales",
	}

	for _, checkoutPath := range checkoutPaths {
		if strings.HasPrefix(path, checkoutPath) {
			return true
		}
	}

	return false
}

// eventForRequest maps a request outcome to the event the middleware owns.
// An empty name means the outcome is covered by the checkout subscribers
// (lifecycle events and 5xx gateway failures) and must not be indexed twice.
func eventForRequest(r *http.Request, statusCode int) string {
	switch {
	case statusCode >= 500:
		return ""
	case statusCode >= 400:
		return opensearch.EventCheckoutError
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/refund"):
		return opensearch.EventRefundIssued
	}

	return ""
}

// fillFromResponse extracts payment details from the response envelope
func fillFromResponse(log *opensearch.CheckoutLog, responseBody []byte) {
	if len(responseBody) == 0 {
		return
	}

	var envelope struct {
		Data map[string]any `json:"data"`
	}
	if err := json.Unmarshal(responseBody, &envelope); err != nil || envelope.Data == nil {
		return
	}

	if paymentID, ok := envelope.Data["paymentId"].(string); ok {
		log.PaymentID = paymentID
	}
	if saleID, ok := envelope.Data["saleId"].(string); ok {
		log.SaleID = saleID
	}
	if status, ok := envelope.Data["status"].(string); ok {
		log.PaymentStatus = status
	}
	if currency, ok := envelope.Data["currency"].(string); ok {
		log.Currency = currency
	}
	if grandTotal, ok := envelope.Data["grandTotal"].(string); ok {
		log.GrandTotal = grandTotal
	}
	if payerStatus, ok := envelope.Data["payerStatus"].(string); ok {
		log.PayerStatus = payerStatus
	}
}

// extractErrorInfo extracts error information from response body
func extractErrorInfo(responseBody []byte) *opensearch.ErrorInfo {
	if len(responseBody) == 0 {
		return nil
	}

	var responseData map[string]any
	if err := json.Unmarshal(responseBody, &responseData); err != nil {
		return nil
	}

	errorInfo := &opensearch.ErrorInfo{}

	// Error payloads can quote the request that failed, so credential
	// material is redacted before the message leaves this package.
	if errorMsg, ok := responseData["error"].(string); ok {
		errorInfo.Message = opensearch.SanitizeForLog(errorMsg)
	} else if errorMsg, ok := responseData["message"].(string); ok {
		errorInfo.Message = opensearch.SanitizeForLog(errorMsg)
	}

	if category, ok := responseData["category"].(string); ok {
		errorInfo.Category = category
	}
	if code, ok := responseData["code"].(string); ok {
		errorInfo.Code = code
	}

	if errorInfo.Code == "" && errorInfo.Message == "" {
		return nil
	}

	return errorInfo
}
