package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tradedesk/addresses"
	"tradedesk/blob"
	"tradedesk/cart"
	"tradedesk/checkout"
	"tradedesk/config"
	"tradedesk/db"
	"tradedesk/globals"
	"tradedesk/idempotency"
	"tradedesk/logging"
	"tradedesk/magiclink"
	"tradedesk/middleware"
	"tradedesk/notify"
	"tradedesk/orders"
	"tradedesk/payments"
	"tradedesk/quotations"
	"tradedesk/ratelim"
	"tradedesk/rdx"
	"tradedesk/routes"
	"tradedesk/shipping"

	"github.com/rs/cors"
	"go.uber.org/zap"
)

// securityHeaders applies a set of recommended HTTP security headers.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "frame-ancestors 'none'")
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains; preload")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Permissions-Policy", "geolocation=(), microphone=(), camera=()")
		w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, private")
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// loggingMiddleware logs each request method, path, status and duration.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logging.Logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.String("remote", r.RemoteAddr),
			zap.Duration("took", time.Since(start)),
		)
	})
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Logger.Fatal("config", zap.Error(err))
	}
	if err := logging.Init(cfg.LogLevel); err != nil {
		panic(err)
	}
	defer logging.Sync()
	globals.JwtSecret = []byte(cfg.JWTSecret)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	if err := db.Connect(ctx, cfg.MongoURI, cfg.MongoDB); err != nil {
		logging.Logger.Fatal("mongo", zap.Error(err))
	}
	if err := db.EnsureIndexes(ctx); err != nil {
		logging.Logger.Fatal("mongo indexes", zap.Error(err))
	}
	if err := rdx.Init(ctx, cfg.RedisAddr, cfg.RedisPassword); err != nil {
		logging.Logger.Fatal("redis", zap.Error(err))
	}
	blobs, err := blob.New(ctx, cfg)
	if err != nil {
		logging.Logger.Fatal("blob store", zap.Error(err))
	}

	// events: redis fans out to every instance's hub, kafka is optional
	hub := notify.NewHub()
	go hub.Run()
	fanout := notify.NewRedisFanout(rdx.Conn, hub)
	go fanout.Run(ctx)

	events := notify.Multi{fanout}
	var kafka *notify.KafkaPublisher
	if cfg.KafkaEnabled() {
		kafka = notify.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		events = append(events, kafka)
	}

	var mailer notify.Mailer = notify.NopMailer{}
	if cfg.SMTPEnabled() {
		mailer = notify.NewSMTPMailer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.From)
	}

	cartStore := cart.NewMongoStore()
	addressSvc := addresses.NewService(addresses.NewMongoStore())
	shippingSvc := shipping.NewService(shipping.NewMongoStore(), blobs,
		cfg.Blob.ShipmentBucket, cfg.Blob.UploadParallelism, events)
	orderSvc := orders.NewService(orders.NewMongoStore(), shippingSvc, events)
	quotationSvc := quotations.NewService(quotations.NewMongoStore(), cartStore, orderSvc, events)
	paymentSvc := payments.NewService(payments.NewMongoStore(), orderSvc, shippingSvc, addressSvc,
		blobs, cfg.Blob.PaymentBucket, events)
	checkoutSvc := checkout.NewService(cartStore, addressSvc, checkout.MongoPayments{},
		checkout.MongoProfiles{}, rdx.NewLocker(rdx.Conn), events)
	linkSvc := magiclink.NewService(magiclink.NewMongoStore(), mailer, magiclink.Options{
		BaseURL: cfg.PublicBaseURL,
		Pepper:  cfg.TokenPepper,
		TTL:     cfg.MagicLinkTTL,
		MaxUses: cfg.MagicLinkMaxUses,
	})

	rateLimiter := ratelim.NewRateLimiter(120, 20)
	janitorStop := make(chan struct{})
	go rateLimiter.RunJanitor(janitorStop)

	staticDir := ""
	if cfg.Blob.Driver == "local" {
		staticDir = cfg.Blob.LocalDir
	}

	router := routes.RoutesWrapper(routes.Deps{
		RateLimiter: rateLimiter,
		Resolver:    middleware.CachedCompanyResolver(),
		Idempotency: idempotency.Middleware(idempotency.NewMongoStore()),
		Hub:         hub,
		StaticDir:   staticDir,

		Cart:       cart.NewHandler(cart.NewService(cartStore)),
		Addresses:  addresses.NewHandler(addressSvc),
		Checkout:   checkout.NewHandler(checkoutSvc),
		Orders:     orders.NewHandler(orderSvc),
		Quotations: quotations.NewHandler(quotationSvc),
		MagicLinks: magiclink.NewHandler(linkSvc, quotationSvc),
		Shipping:   shipping.NewHandler(shippingSvc),
		Payments:   payments.NewHandler(paymentSvc),
	})

	// apply middleware: CORS → security headers → logging → router
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", idempotency.Header},
		AllowCredentials: true,
	}).Handler(router)

	server := &http.Server{
		Addr:              cfg.Port,
		Handler:           loggingMiddleware(securityHeaders(corsHandler)),
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
	}

	server.RegisterOnShutdown(func() {
		logging.Logger.Info("stopping notification hub")
		hub.Stop()
		close(janitorStop)
	})

	go func() {
		logging.Logger.Info("server listening", zap.String("addr", cfg.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Logger.Fatal("listen", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	logging.Logger.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.Logger.Error("graceful shutdown failed", zap.Error(err))
	}
	stop()
	if kafka != nil {
		if err := kafka.Close(); err != nil {
			logging.Logger.Warn("kafka close", zap.Error(err))
		}
	}
	rdx.Close()
	db.Disconnect(shutdownCtx)
	logging.Logger.Info("server stopped cleanly")
}
