package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/mstgnz/paylink/gateway"
	"github.com/mstgnz/paylink/gateway/paypal"
	"github.com/mstgnz/paylink/handler"
	"github.com/mstgnz/paylink/infra/config"
	"github.com/mstgnz/paylink/infra/logger"
	"github.com/mstgnz/paylink/infra/middle"
	"github.com/mstgnz/paylink/infra/opensearch"
	"github.com/mstgnz/paylink/infra/response"
	"github.com/mstgnz/paylink/router"
	"github.com/shopspring/decimal"
)

var (
	PORT             string
	openSearchLogger *opensearch.Logger
)

func init() {
	// Load Env
	if err := godotenv.Load(".env"); err != nil {
		log.Println("No .env file found, using process environment")
	}
	// init conf
	_ = config.App()

	PORT = config.GetEnv("APP_PORT", "9999")

	// Initialize OpenSearch client and logger
	cfg := config.GetAppConfig()
	if cfg.EnableLogging {
		osClient, err := opensearch.NewClient(cfg)
		if err != nil {
			log.Printf("Failed to initialize OpenSearch client: %v", err)
			log.Println("Continuing without OpenSearch logging...")
		} else {
			openSearchLogger = opensearch.NewLogger(osClient)
			log.Println("OpenSearch logging initialized successfully")
		}
	} else {
		log.Println("OpenSearch logging is disabled")
	}

	logger.InitGlobalLogger(openSearchLogger)
}

func main() {
	// Gateway configuration: stored values win over environment
	gatewayConfig := config.NewGatewayConfig()
	gatewayConfig.LoadFromEnv()
	defer gatewayConfig.Close()

	checkoutService := buildCheckoutService(gatewayConfig)

	// Chi Define Routes
	r := chi.NewRouter()

	// Basic Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middle.PanicRecoveryMiddleware())
	r.Use(middleware.Timeout(60 * time.Second))

	// Security Middleware
	rateLimiter := middle.NewRateLimiter()
	r.Use(middle.SecurityHeadersMiddleware())
	r.Use(middle.IPWhitelistMiddleware())
	r.Use(middle.RateLimitMiddleware(rateLimiter))
	r.Use(middle.RequestValidationMiddleware())

	// OpenSearch Logging Middleware
	if openSearchLogger != nil {
		r.Use(middle.CheckoutLoggingMiddleware(openSearchLogger))
		log.Println("Checkout logging middleware enabled")
	}

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Origin", "X-Requested-With"},
		ExposedHeaders:   []string{"Link", "Content-Length"},
		AllowCredentials: true,
		MaxAge:           300, // Preflight cache time (second)
	}))

	// Health check endpoint
	healthHandler := handler.NewHealthHandler(gatewayConfig)
	r.Get("/health", healthHandler.CheckHealth)

	// API routes; the events endpoint stays registered but reports service
	// unavailable while OpenSearch logging is off
	var eventStore handler.CheckoutEventStore
	if openSearchLogger != nil {
		eventStore = openSearchLogger
	}
	router.Routes(r, checkoutService, gatewayConfig, eventStore)

	// Not Found
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = response.WriteJSON(w, http.StatusNotFound, response.Response{Code: http.StatusNotFound, Success: false, Message: "Not Found"})
	})

	// Create a context that listens for interrupt and terminate signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", PORT),
		Handler:           r,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 60 * time.Second,
	}

	go func() {
		err := server.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			log.Fatal(err.Error())
		}
	}()

	log.Println("API is running on", PORT)

	// Block until a signal is received
	<-ctx.Done()

	log.Println("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}

// buildCheckoutService constructs the gateway adapter and checkout coordinator
// from the stored credentials. When credentials are not configured yet the
// service still starts, so they can be supplied through POST /v1/config; the
// checkout endpoints report the missing configuration until the next restart.
func buildCheckoutService(gatewayConfig *config.GatewayConfig) handler.CheckoutServiceInterface {
	creds := gateway.Credentials{
		ClientID:            gatewayConfig.Get(config.KeyClientID),
		Secret:              gatewayConfig.Get(config.KeyClientSecret),
		ExperienceProfileID: gatewayConfig.Get(config.KeyExperienceProfileID),
	}

	api, err := paypal.New(paypal.Config{
		Credentials: creds,
		Environment: gatewayConfig.Environment(),
		Timeout:     config.GetAppConfig().GatewayTimeout,
	})
	if err != nil {
		log.Printf("Gateway not available: %v", err)
		log.Println("Set credentials via POST /v1/config and restart to enable checkout")
		return unconfiguredCheckout{}
	}

	checkout, err := gateway.NewCheckout(creds, api)
	if err != nil {
		log.Printf("Gateway not available: %v", err)
		return unconfiguredCheckout{}
	}

	registerCheckoutSubscribers(checkout)
	return checkout
}

// unconfiguredCheckout stands in for the checkout service while gateway
// credentials are absent. Every operation reports the missing configuration.
type unconfiguredCheckout struct{}

func (unconfiguredCheckout) InitiateCheckout(ctx context.Context, tx gateway.Transaction, returnURL, cancelURL string) (*gateway.PaymentIntent, error) {
	return nil, gateway.ErrCredentialsMissing
}

func (unconfiguredCheckout) HandleReturn(ctx context.Context, paymentID, payerID string) (*gateway.PaymentIntent, error) {
	return nil, gateway.ErrCredentialsMissing
}

func (unconfiguredCheckout) HandleCancel() {}

func (unconfiguredCheckout) Verify(ctx context.Context, saleID string) (gateway.VerificationResult, error) {
	return gateway.Unknown, gateway.ErrCredentialsMissing
}

func (unconfiguredCheckout) Refund(ctx context.Context, saleID string, amount decimal.Decimal, currency string) (bool, error) {
	return false, gateway.ErrCredentialsMissing
}

// registerCheckoutSubscribers wires checkout lifecycle events into logging
func registerCheckoutSubscribers(checkout *gateway.Checkout) {
	checkout.OnInitiated(func(intent *gateway.PaymentIntent) {
		logger.WithPayment(intent.ID).Info("checkout initiated, awaiting payer approval")
		logCheckoutEvent(opensearch.CheckoutLog{
			Event:         opensearch.EventCheckoutInitiated,
			PaymentID:     intent.ID,
			PaymentStatus: string(intent.Status),
			Currency:      intent.Transaction.Currency,
			GrandTotal:    intent.Transaction.GrandTotal.StringFixed(2),
		})
	})

	checkout.OnSuccess(func(intent *gateway.PaymentIntent, sale *gateway.Sale) {
		cl := logger.WithPayment(intent.ID)
		event := opensearch.CheckoutLog{
			Event:         opensearch.EventCheckoutSuccess,
			PaymentID:     intent.ID,
			PaymentStatus: string(intent.Status),
		}
		if sale != nil {
			cl = cl.SetSaleID(sale.ID)
			event.SaleID = sale.ID
		}
		cl.Info("checkout completed")
		logCheckoutEvent(event)
	})

	checkout.OnCancel(func() {
		logger.Info("checkout cancelled by payer")
		logCheckoutEvent(opensearch.CheckoutLog{
			Event: opensearch.EventCheckoutCancelled,
		})
	})

	checkout.OnError(func(gwErr *gateway.GatewayError) {
		logger.Error("checkout failed", gwErr, logger.LogContext{
			Fields: map[string]any{"category": string(gwErr.Category), "code": gwErr.Code},
		})
		logCheckoutEvent(opensearch.CheckoutLog{
			Event: opensearch.EventCheckoutError,
			Error: opensearch.ErrorInfo{
				Category: string(gwErr.Category),
				Code:     gwErr.Code,
				Message:  gwErr.Error(),
			},
		})
	})
}

func logCheckoutEvent(event opensearch.CheckoutLog) {
	if openSearchLogger == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = openSearchLogger.LogCheckoutEvent(ctx, event)
	}()
}
