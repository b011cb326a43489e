package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"storefront/internal/checkout"
	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/handlers"
	"storefront/internal/middleware"
	"storefront/internal/notify"
	"storefront/internal/orders"
	"storefront/internal/payment"
	"storefront/internal/telemetry"
)

func main() {
	config.Load()
	cfg := config.AppEnv

	client, err := database.Connect(cfg.MongoURI)
	if err != nil {
		log.Fatal(err)
	}

	db := client.Database(cfg.DBName)

	log.Println("MongoDB connected to:", db.Name())

	if err := database.EnsureOrderIndexes(db); err != nil {
		log.Printf("[DB] [WARN] order index warning: %v", err)
	}
	if err := database.EnsureCheckoutIndexes(db); err != nil {
		log.Printf("[DB] [WARN] checkout index warning: %v", err)
	}

	tracing, err := telemetry.Init(cfg.ServiceName, cfg.JaegerEndpoint)
	if err != nil {
		log.Printf("[TRACE] [WARN] tracing disabled: %v", err)
	}

	var publisher notify.Publisher = notify.Nop{}
	var kafka *notify.KafkaPublisher
	if len(cfg.KafkaBrokers) > 0 {
		kafka = notify.NewKafkaPublisher(cfg.KafkaBrokers, cfg.NotificationTopic)
		publisher = kafka
	}

	gateway := payment.NewClient(cfg.RazorpayBaseURL, cfg.RazorpayKeyID, cfg.RazorpayKeySecret, cfg.GatewayTimeout)
	if !gateway.Configured() {
		log.Println("[CONFIG] [WARN] Razorpay API credentials missing, checkout will be rejected")
	}

	orderSvc := orders.NewService(
		database.NewOrderRepository(db),
		orders.WithPublisher(publisher),
	)
	checkoutSvc := checkout.NewService(checkout.Config{
		KeySecret:             cfg.RazorpayKeySecret,
		Currency:              cfg.Currency,
		ShippingCharge:        cfg.ShippingCharge,
		FreeShippingThreshold: cfg.FreeShippingThreshold,
		SessionTTL:            cfg.CheckoutSessionTTL,
	}, checkout.Deps{
		Gateway:  gateway,
		Sessions: database.NewCheckoutRepository(db),
		Carts:    database.NewCartRepository(db),
		Catalog:  database.NewProductRepository(db),
		Orders:   orderSvc,
	}, checkout.WithPublisher(publisher))

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery(), middleware.Trace(cfg.ServiceName))

	r.GET("/healthz", handlers.Health(db))

	r.POST("/api/payment/create-order", handlers.CreatePaymentOrder(gateway, cfg.Currency))
	r.POST("/api/payment/verify", handlers.VerifyPayment(cfg.RazorpayKeySecret))
	r.POST("/api/payment-webhook", handlers.PaymentWebhook(cfg.RazorpayWebhookSecret, orderSvc))

	user := r.Group("/api")
	user.Use(middleware.UserAuth(cfg.JWTSecret))
	{
		user.POST("/checkout", handlers.StartCheckout(checkoutSvc, gateway.KeyID()))
		user.POST("/checkout/confirm", handlers.ConfirmCheckout(checkoutSvc))
		user.POST("/checkout/cancel", handlers.CancelCheckout(checkoutSvc))

		user.GET("/cart", handlers.GetCart(checkoutSvc))
		user.PUT("/cart", handlers.UpdateCart(checkoutSvc))

		user.GET("/orders", handlers.ListMyOrders(orderSvc))
		user.GET("/orders/:id", handlers.GetMyOrder(orderSvc))
	}

	admin := r.Group("/admin/api")
	admin.Use(middleware.AdminAuth(cfg.JWTSecret))
	{
		admin.GET("/orders", handlers.ListOrders(orderSvc))
		admin.PATCH("/orders/:id/status", handlers.UpdateOrderStatus(orderSvc))
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Println("[HTTP] [INFO] listening on", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Println("[HTTP] [INFO] shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		err := srv.Shutdown(shutdownCtx)
		if kafka != nil {
			if closeErr := kafka.Close(); closeErr != nil {
				log.Printf("[NOTIFY] [WARN] kafka writer close: %v", closeErr)
			}
		}
		if shutdownErr := tracing.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Printf("[TRACE] [WARN] tracer shutdown: %v", shutdownErr)
		}
		if disconnectErr := client.Disconnect(shutdownCtx); disconnectErr != nil {
			log.Printf("[DB] [WARN] disconnect: %v", disconnectErr)
		}
		return err
	})

	if err := g.Wait(); err != nil {
		log.Fatal(err)
	}
	log.Println("[HTTP] [INFO] shutdown complete")
}
