// Package paypal implements the gateway transport against the PayPal REST v1
// payments API: OAuth2 client-credentials session handling, the payment
// create/execute/get calls of the hosted checkout flow, and sale lookup and
// refund. Failures are reported as *gateway.Fault so the orchestration core
// can translate them.
package paypal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mstgnz/paylink/gateway"
)

const (
	// API URLs
	apiSandboxURL    = "https://api.sandbox.paypal.com"
	apiProductionURL = "https://api.paypal.com"

	// API Endpoints
	endpointToken          = "/v1/oauth2/token"
	endpointPayment        = "/v1/payments/payment"
	endpointPaymentGet     = "/v1/payments/payment/%s"
	endpointPaymentExecute = "/v1/payments/payment/%s/execute"
	endpointSale           = "/v1/payments/sale/%s"
	endpointSaleRefund     = "/v1/payments/sale/%s/refund"

	// Default Values
	defaultTimeout = 30 * time.Second

	// Tokens are refreshed this long before their reported expiry so a call
	// never rides an about-to-expire session.
	tokenExpirySkew = 60 * time.Second
)

// Config carries everything the adapter needs at construction. Environment
// selects the live or sandbox API; everything else is pass-through transport
// tuning.
type Config struct {
	Credentials gateway.Credentials
	Environment string // "production" or "sandbox" (default)
	Timeout     time.Duration

	// BaseURL overrides the environment-derived API base, mostly for tests.
	BaseURL string
	// HTTPClient overrides the default client, mostly for tests.
	HTTPClient *http.Client
}

// API is the PayPal REST implementation of gateway.API. The OAuth session is
// created lazily on the first call and reused until it nears expiry; the
// session guard makes sequential reuse from one attempt safe and concurrent
// token refreshes single-flight.
type API struct {
	creds        gateway.Credentials
	baseURL      string
	isProduction bool
	client       *http.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

type apiError struct {
	Name    string `json:"name"`
	Message string `json:"message"`
	Error_  string `json:"error"`
	Desc    string `json:"error_description"`
}

// New builds the adapter. Credentials are validated here, before any network
// call, so a misconfigured deployment fails at startup.
func New(cfg Config) (*API, error) {
	if err := cfg.Credentials.Validate(); err != nil {
		return nil, err
	}

	baseURL := cfg.BaseURL
	isProduction := cfg.Environment == "production"
	if baseURL == "" {
		if isProduction {
			baseURL = apiProductionURL
		} else {
			baseURL = apiSandboxURL
		}
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, &gateway.Fault{
			Category: gateway.FaultConfiguration,
			Message:  fmt.Sprintf("invalid gateway base url %q", baseURL),
			Err:      err,
		}
	}

	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}

	return &API{
		creds:        cfg.Credentials,
		baseURL:      strings.TrimRight(baseURL, "/"),
		isProduction: isProduction,
		client:       client,
	}, nil
}

// CreatePayment submits a new payment resource.
func (a *API) CreatePayment(ctx context.Context, payment *gateway.Payment) (*gateway.Payment, error) {
	var out gateway.Payment
	if err := a.do(ctx, http.MethodPost, endpointPayment, payment, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ExecutePayment executes an approved payment on behalf of the payer.
func (a *API) ExecutePayment(ctx context.Context, paymentID, payerID string) (*gateway.Payment, error) {
	body := map[string]string{"payer_id": payerID}
	var out gateway.Payment
	if err := a.do(ctx, http.MethodPost, fmt.Sprintf(endpointPaymentExecute, url.PathEscape(paymentID)), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetPayment fetches a payment by id.
func (a *API) GetPayment(ctx context.Context, paymentID string) (*gateway.Payment, error) {
	var out gateway.Payment
	if err := a.do(ctx, http.MethodGet, fmt.Sprintf(endpointPaymentGet, url.PathEscape(paymentID)), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetSale fetches a sale by id.
func (a *API) GetSale(ctx context.Context, saleID string) (*gateway.Sale, error) {
	var out gateway.Sale
	if err := a.do(ctx, http.MethodGet, fmt.Sprintf(endpointSale, url.PathEscape(saleID)), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RefundSale refunds the given amount of a sale.
func (a *API) RefundSale(ctx context.Context, saleID string, amount gateway.Amount) (*gateway.Refund, error) {
	body := map[string]gateway.Amount{"amount": amount}
	var out gateway.Refund
	if err := a.do(ctx, http.MethodPost, fmt.Sprintf(endpointSaleRefund, url.PathEscape(saleID)), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// token returns a valid access token, fetching one on first use and when the
// cached token nears expiry.
func (a *API) token(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.accessToken != "" && time.Now().Before(a.tokenExpiry) {
		return a.accessToken, nil
	}

	if strings.TrimSpace(a.creds.ClientID) == "" || strings.TrimSpace(a.creds.Secret) == "" {
		return "", &gateway.Fault{
			Category: gateway.FaultMissingCredentials,
			Message:  "client id and secret must be set before requesting a session",
		}
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+endpointToken, strings.NewReader(form.Encode()))
	if err != nil {
		return "", &gateway.Fault{Category: gateway.FaultConfiguration, Message: "building token request failed", Err: err}
	}
	req.SetBasicAuth(a.creds.ClientID, a.creds.Secret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", &gateway.Fault{Category: gateway.FaultConnection, Message: "token request failed", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &gateway.Fault{Category: gateway.FaultConnection, Message: "reading token response failed", Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return "", faultFromResponse(resp.StatusCode, raw)
	}

	var token tokenResponse
	if err := json.Unmarshal(raw, &token); err != nil {
		return "", &gateway.Fault{Category: gateway.FaultConnection, Message: "malformed token response", Data: string(raw), Err: err}
	}
	if token.AccessToken == "" {
		return "", &gateway.Fault{Category: gateway.FaultInvalidCredentials, Message: "gateway returned an empty access token", Data: string(raw)}
	}

	a.accessToken = token.AccessToken
	a.tokenExpiry = time.Now().Add(time.Duration(token.ExpiresIn)*time.Second - tokenExpirySkew)
	return a.accessToken, nil
}

// do sends an authenticated JSON request and decodes the response into out.
func (a *API) do(ctx context.Context, method, path string, body, out any) error {
	token, err := a.token(ctx)
	if err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("paypal: marshaling %s %s request: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
	if err != nil {
		return &gateway.Fault{Category: gateway.FaultConfiguration, Message: fmt.Sprintf("building %s %s request failed", method, path), Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method == http.MethodPost {
		// Idempotency key: a retried create or execute must not double-charge.
		req.Header.Set("PayPal-Request-Id", uuid.New().String())
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return &gateway.Fault{Category: gateway.FaultConnection, Message: fmt.Sprintf("%s %s failed", method, path), Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &gateway.Fault{Category: gateway.FaultConnection, Message: "reading gateway response failed", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return faultFromResponse(resp.StatusCode, raw)
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return &gateway.Fault{Category: gateway.FaultConnection, Message: "malformed gateway response", Data: string(raw), Err: err}
		}
	}
	return nil
}

// faultFromResponse classifies a non-2xx gateway response. Authentication
// rejections map to invalid credentials; every other HTTP-level failure is a
// connection fault carrying the raw diagnostic body, mirroring how the
// gateway's own SDKs report them.
func faultFromResponse(statusCode int, raw []byte) *gateway.Fault {
	var detail apiError
	_ = json.Unmarshal(raw, &detail)

	message := detail.Message
	if message == "" {
		message = detail.Desc
	}
	if message == "" {
		message = http.StatusText(statusCode)
	}

	category := gateway.FaultConnection
	if statusCode == http.StatusUnauthorized || detail.Error_ == "invalid_client" {
		category = gateway.FaultInvalidCredentials
	}

	code := detail.Name
	if code == "" {
		code = fmt.Sprintf("%d", statusCode)
	}

	return &gateway.Fault{
		Category: category,
		Code:     code,
		Message:  message,
		Data:     string(raw),
		Err:      errors.New(message),
	}
}
