// Package handler provides HTTP request handlers for the PayLink hosted
// checkout service.
//
// The handlers bridge the HTTP layer with the checkout orchestration in the
// gateway package. Gateway credentials and runtime configuration are stored
// in SQLite; checkout lifecycle events are indexed in OpenSearch.
//
// # Core Handlers
//
//   - CheckoutHandler: Drives the hosted checkout lifecycle (initiate,
//     return, cancel) and sale operations (verify, refund)
//   - EventsHandler: Serves the indexed checkout event trail
//   - ConfigHandler: Manages gateway credentials at runtime
//   - HealthHandler: Reports service, gateway and runtime health
//
// # Checkout Handler
//
// The CheckoutHandler manages all checkout-related HTTP requests:
//
//	checkoutHandler := handler.NewCheckoutHandler(checkout, validator)
//
//	// Routes
//	r.Post("/v1/checkout", checkoutHandler.InitiateCheckout)
//	r.Get("/v1/checkout/return", checkoutHandler.CompleteCheckout)
//	r.Get("/v1/checkout/cancel", checkoutHandler.CancelCheckout)
//	r.Get("/v1/checkout/events", eventsHandler.ListEvents)
//	r.Get("/v1/sales/{saleID}/verify", checkoutHandler.VerifySale)
//	r.Post("/v1/sales/{saleID}/refund", checkoutHandler.RefundSale)
//
// Gateway failures of the translated categories (configuration, credential
// and connection faults) map to 502 responses; validation failures map to
// 400. A refund of a sale the gateway has not completed is reported as
// refunded=false with a 200, mirroring the gateway semantics.
package handler
