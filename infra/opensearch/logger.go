package opensearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"
)

// Well-known checkout event names.
const (
	EventCheckoutInitiated = "checkout_initiated"
	EventCheckoutSuccess   = "checkout_success"
	EventCheckoutCancelled = "checkout_cancelled"
	EventCheckoutError     = "checkout_error"
	EventRefundIssued      = "refund_issued"
)

// CheckoutLog represents a structured checkout event log entry
type CheckoutLog struct {
	Timestamp     time.Time `json:"timestamp"`
	Event         string    `json:"event"`
	PaymentID     string    `json:"payment_id,omitempty"`
	SaleID        string    `json:"sale_id,omitempty"`
	PaymentStatus string    `json:"payment_status,omitempty"`
	Currency      string    `json:"currency,omitempty"`
	GrandTotal    string    `json:"grand_total,omitempty"`
	PayerStatus   string    `json:"payer_status,omitempty"`
	RequestID     string    `json:"request_id"`
	ClientIP      string    `json:"client_ip,omitempty"`
	Error         ErrorInfo `json:"error,omitempty"`
}

// ErrorInfo represents error details
type ErrorInfo struct {
	Category string `json:"category,omitempty"`
	Code     string `json:"code,omitempty"`
	Message  string `json:"message,omitempty"`
}

// Logger handles OpenSearch logging operations
type Logger struct {
	client *Client
}

// NewLogger creates a new OpenSearch logger
func NewLogger(client *Client) *Logger {
	return &Logger{
		client: client,
	}
}

// LogCheckoutEvent logs a checkout lifecycle event to OpenSearch
func (l *Logger) LogCheckoutEvent(ctx context.Context, log CheckoutLog) error {
	if !l.client.IsEnabled() {
		return nil // Logging disabled
	}

	if log.Timestamp.IsZero() {
		log.Timestamp = time.Now()
	}

	if log.RequestID == "" {
		log.RequestID = uuid.New().String()
	}

	log = sanitizeEvent(log)

	logJSON, err := json.Marshal(log)
	if err != nil {
		return fmt.Errorf("failed to marshal log: %w", err)
	}

	req := opensearchapi.IndexRequest{
		Index: l.client.GetEventIndexName(),
		Body:  bytes.NewReader(logJSON),
	}

	res, err := req.Do(ctx, l.client.GetClient())
	if err != nil {
		return fmt.Errorf("failed to index log: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("opensearch error: %s", res.String())
	}

	return nil
}

// SearchEvents searches for checkout events based on criteria
func (l *Logger) SearchEvents(ctx context.Context, query map[string]any) ([]CheckoutLog, error) {
	if !l.client.IsEnabled() {
		return nil, fmt.Errorf("logging is disabled")
	}

	searchQuery := map[string]any{
		"query": query,
		"sort": []map[string]any{
			{"timestamp": map[string]string{"order": "desc"}},
		},
		"size": 100, // Limit results
	}

	queryJSON, err := json.Marshal(searchQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query: %w", err)
	}

	req := opensearchapi.SearchRequest{
		Index: []string{l.client.GetEventIndexName()},
		Body:  bytes.NewReader(queryJSON),
	}

	res, err := req.Do(ctx, l.client.GetClient())
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("opensearch search error: %s", res.String())
	}

	var searchResult struct {
		Hits struct {
			Hits []struct {
				Source CheckoutLog `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}

	if err := json.NewDecoder(res.Body).Decode(&searchResult); err != nil {
		return nil, fmt.Errorf("failed to decode search results: %w", err)
	}

	logs := make([]CheckoutLog, len(searchResult.Hits.Hits))
	for i, hit := range searchResult.Hits.Hits {
		logs[i] = hit.Source
	}

	return logs, nil
}

// GetPaymentEvents retrieves events for a specific payment ID
func (l *Logger) GetPaymentEvents(ctx context.Context, paymentID string) ([]CheckoutLog, error) {
	query := map[string]any{
		"match": map[string]any{
			"payment_id": paymentID,
		},
	}

	return l.SearchEvents(ctx, query)
}

// GetRecentErrorEvents retrieves recent checkout error events
func (l *Logger) GetRecentErrorEvents(ctx context.Context, hours int) ([]CheckoutLog, error) {
	query := map[string]any{
		"bool": map[string]any{
			"must": []map[string]any{
				{
					"range": map[string]any{
						"timestamp": map[string]any{
							"gte": fmt.Sprintf("now-%dh", hours),
						},
					},
				},
				{
					"exists": map[string]any{
						"field": "error.category",
					},
				},
			},
		},
	}

	return l.SearchEvents(ctx, query)
}

// sanitizeEvent redacts credential material from the free-form fields of an
// event before it is indexed. Typed fields carry only identifiers and states
// and need no redaction.
func sanitizeEvent(log CheckoutLog) CheckoutLog {
	if log.Error.Message != "" {
		log.Error.Message = SanitizeForLog(log.Error.Message)
	}
	return log
}

// SanitizeForLog removes sensitive information from data before logging
func SanitizeForLog(data string) string {
	sensitiveFields := []string{
		"clientSecret", "client_secret", "client_id", "clientId",
		"access_token", "refresh_token", "authorization", "password", "token",
		"apiKey", "api_key", "secretKey", "secret_key",
	}

	result := data
	for _, field := range sensitiveFields {
		patterns := []string{
			fmt.Sprintf(`"%s"\s*:\s*"[^"]*"`, field), // JSON format with double quotes
			fmt.Sprintf(`"%s"\s*:\s*'[^']*'`, field), // JSON format with single quotes
			fmt.Sprintf(`%s=[\w.-]+`, field),         // URL parameter format
		}

		for _, pattern := range patterns {
			re := regexp.MustCompile(pattern)
			result = re.ReplaceAllString(result, fmt.Sprintf(`"%s":"***REDACTED***"`, field))
		}
	}

	return result
}

// LogSystemEvent logs a system event to OpenSearch
func (l *Logger) LogSystemEvent(ctx context.Context, log any) error {
	if !l.client.IsEnabled() {
		return nil // Logging disabled
	}

	logJSON, err := json.Marshal(log)
	if err != nil {
		return fmt.Errorf("failed to marshal system log: %w", err)
	}

	// System logs carry free-form messages and fields; redact before indexing
	sanitized := SanitizeForLog(string(logJSON))

	req := opensearchapi.IndexRequest{
		Index: systemLogIndex,
		Body:  bytes.NewReader([]byte(sanitized)),
	}

	res, err := req.Do(ctx, l.client.GetClient())
	if err != nil {
		return fmt.Errorf("failed to index system log: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("opensearch system log error: %s", res.String())
	}

	return nil
}
