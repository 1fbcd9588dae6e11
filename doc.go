// Package paylink provides a hosted-checkout payment service built on the
// PayPal REST payments API. It drives the three-step express checkout flow
// (create payment, payer approval, execute) and exposes it over HTTP.
//
// # Overview
//
// PayLink takes a cart described as transaction items, creates a payment
// intent at the gateway, redirects the payer to the approval page, and
// finalizes the sale when the payer returns. Completed sales can later be
// verified and refunded.
//
// # Architecture
//
// The checkout flow follows this pattern:
//
//	┌─────────────────┐    ┌─────────────────┐    ┌─────────────────┐
//	│                 │    │                 │    │                 │
//	│   Your Shop     │◄──►│    PayLink      │◄──►│    Payment      │
//	│   (frontend)    │    │   (this API)    │    │    Gateway      │
//	│                 │    │                 │    │                 │
//	└─────────────────┘    └─────────────────┘    └─────────────────┘
//
// The payer is sent to the gateway's approval page between the initiate and
// return steps; PayLink handles the return and cancel redirects.
//
// # Quick Start
//
// Basic library usage:
//
//	package main
//
//	import (
//	    "context"
//	    "fmt"
//	    "time"
//
//	    "github.com/shopspring/decimal"
//
//	    "github.com/mstgnz/paylink/gateway"
//	    "github.com/mstgnz/paylink/gateway/paypal"
//	)
//
//	func main() {
//	    creds := gateway.Credentials{
//	        ClientID: "your-client-id",
//	        Secret:   "your-client-secret",
//	    }
//
//	    api, err := paypal.New(paypal.Config{
//	        Credentials: creds,
//	        Environment: "sandbox", // or "production"
//	        Timeout:     30 * time.Second,
//	    })
//	    if err != nil {
//	        panic(err)
//	    }
//
//	    checkout, err := gateway.NewCheckout(creds, api)
//	    if err != nil {
//	        panic(err)
//	    }
//
//	    builder := gateway.NewTransactionBuilder()
//	    _ = builder.SetCurrency("EUR")
//	    _ = builder.AddItem("Widget", 2, decimal.RequireFromString("9.99"))
//	    _ = builder.SetTax(decimal.RequireFromString("2.50"))
//	    tx, err := builder.Build()
//	    if err != nil {
//	        panic(err)
//	    }
//
//	    ctx := context.Background()
//	    intent, err := checkout.InitiateCheckout(ctx, tx,
//	        "https://yourshop.com/return",
//	        "https://yourshop.com/cancel")
//	    if err != nil {
//	        panic(err)
//	    }
//
//	    // Redirect the payer to the approval page
//	    fmt.Printf("Redirect to: %s\n", intent.ApprovalLink)
//
//	    // Later, on the return redirect:
//	    intent, err = checkout.HandleReturn(ctx, paymentID, payerID)
//	}
//
// # HTTP API
//
// PayLink also exposes the flow as a REST API:
//
//	# Start a checkout
//	POST /v1/checkout
//	Content-Type: application/json
//
//	# Return and cancel redirects from the gateway
//	GET /v1/checkout/return?paymentId={paymentId}&PayerID={payerId}
//	GET /v1/checkout/cancel
//
//	# Inspect the indexed event trail
//	GET /v1/checkout/events?paymentId={paymentId}
//	GET /v1/checkout/events?errors=true&hours=24
//
//	# Verify a completed sale
//	GET /v1/sales/{saleID}/verify
//
//	# Refund a completed sale
//	POST /v1/sales/{saleID}/refund
//
//	# Gateway credential management
//	POST /v1/config
//	GET  /v1/config
//
// # Error Handling
//
// Gateway-side failures are classified into categories (configuration,
// invalid credentials, missing credentials, connection) and surfaced as
// *gateway.GatewayError. When an error subscriber is registered on the
// checkout it receives these errors instead of the caller; all other errors
// always propagate.
//
// # Environment Support
//
// Both sandbox and production gateway environments are supported; the
// environment is part of the gateway configuration:
//
//	GATEWAY_CLIENT_ID=your-client-id
//	GATEWAY_CLIENT_SECRET=your-client-secret
//	GATEWAY_ENVIRONMENT=sandbox
//
// Credentials can also be stored at runtime through the /v1/config endpoint;
// stored values are persisted and take precedence over the environment.
//
// # Logging and Analytics
//
// PayLink integrates with OpenSearch for checkout event logging:
//
//   - Checkout lifecycle events (initiated, success, cancelled, error)
//   - Refund events
//   - Structured system logs
//
// Secrets and tokens are redacted before anything is written to a log.
//
// # Security Features
//
//   - Rate limiting
//   - IP whitelisting
//   - Request validation
//   - Security headers
//   - Credentials never echoed back by the API
package paylink
