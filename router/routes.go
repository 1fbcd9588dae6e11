package router

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/mstgnz/paylink/handler"
	"github.com/mstgnz/paylink/infra/config"
)

// Routes registers all API routes. A nil eventStore disables the events
// endpoint gracefully.
func Routes(r chi.Router, checkoutService handler.CheckoutServiceInterface, gatewayConfig *config.GatewayConfig, eventStore handler.CheckoutEventStore) {
	validate := validator.New()

	checkoutHandler := handler.NewCheckoutHandler(checkoutService, validate)
	configHandler := handler.NewConfigHandler(gatewayConfig, validate)
	eventsHandler := handler.NewEventsHandler(eventStore)

	r.Route("/v1", func(r chi.Router) {
		r.Route("/checkout", func(r chi.Router) {
			r.Post("/", checkoutHandler.InitiateCheckout)
			r.Get("/return", checkoutHandler.CompleteCheckout)
			r.Get("/cancel", checkoutHandler.CancelCheckout)
			r.Get("/events", eventsHandler.ListEvents)
		})

		r.Route("/sales", func(r chi.Router) {
			r.Get("/{saleID}/verify", checkoutHandler.VerifySale)
			r.Post("/{saleID}/refund", checkoutHandler.RefundSale)
		})

		r.Route("/config", func(r chi.Router) {
			r.Post("/", configHandler.SetConfig)
			r.Get("/", configHandler.GetConfig)
		})
	})
}
