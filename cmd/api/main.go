package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/komunitas/platform/cache"
	config "github.com/komunitas/platform/configs"
	"github.com/komunitas/platform/database"
	"github.com/komunitas/platform/events"
	"github.com/komunitas/platform/handlers"
	"github.com/komunitas/platform/jobs"
	"github.com/komunitas/platform/metrics"
	"github.com/komunitas/platform/notifications"
	"github.com/komunitas/platform/payments"
	"github.com/komunitas/platform/routes"
	"github.com/komunitas/platform/services"
	"github.com/komunitas/platform/shipping"
	"github.com/komunitas/platform/websocket"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

func main() {
	cfg := config.Load()
	log := newLogger(cfg.LogLevel)

	if cfg.JWTSecret == "" {
		log.Fatal().Msg("JWT_SECRET is required")
	}

	db, err := database.ConnectDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
	}
	if err := database.SeedAdmin(db, cfg, log); err != nil {
		log.Error().Err(err).Msg("failed to seed admin")
	}
	store := database.NewStore(db)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var idempotency cache.Store = cache.NewMemory()
	var limiterStorage fiber.Storage
	if cfg.RedisAddr != "" {
		rdb, err := cache.NewRedisClient(ctx, cfg.RedisAddr)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to Redis")
		}
		defer rdb.Close()
		idempotency = cache.NewRedis(rdb, "idem:")
		limiterStorage = cache.NewLimiterStorage(rdb, "limiter:")
		log.Info().Str("addr", cfg.RedisAddr).Msg("Redis connected")
	}

	media, err := services.NewMediaService(cfg.CloudinaryURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize media service")
	}

	gateway := payments.NewMidtrans(cfg.MidtransServerKey, cfg.MidtransProduction)
	callbacks := payments.Callbacks{Finish: cfg.PaymentFinishURL}
	rates := shipping.NewBiteship(cfg.BiteshipBaseURL, cfg.BiteshipAPIKey, cfg.ShippingCouriers, log)
	sms := notifications.NewSMSService(cfg.SMSAPIURL, cfg.SMSAPIToken, log)

	var mailer services.Mailer
	if brevo := notifications.NewBrevoService(cfg.BrevoAPIKey, cfg.EmailSender, cfg.EmailSenderName, log); brevo.Enabled() {
		mailer = brevo
	}

	hub := websocket.NewHub(log)
	receipts := services.NewReceiptService(store, media, nil, log)
	notifier := services.NewNotifier(store, hub, mailer, receipts, log)

	var publisher events.Publisher
	if cfg.AMQPURL != "" {
		rabbit, err := events.NewRabbit(cfg.AMQPURL, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize RabbitMQ")
		}
		defer rabbit.Close()
		if err := rabbit.Consume(ctx, notifier.Handle); err != nil {
			log.Fatal().Err(err).Msg("failed to start event consumer")
		}
		publisher = rabbit
	} else {
		publisher = events.NewDirect(notifier.Handle, log)
	}

	auth := services.NewAuthService(store, sms, cfg.JWTSecret, log)
	catalog := services.NewCatalogService(store, log)
	paymentSvc := services.NewPaymentService(store, gateway, publisher, cfg.MidtransServerKey, log)

	h := handlers.New(log)
	h.Auth = auth
	h.Catalog = catalog
	h.Registrations = services.NewRegistrationService(store, gateway, idempotency, publisher, callbacks, log)
	h.Checkout = services.NewCheckoutService(store, gateway, rates, idempotency, callbacks, cfg.ShippingOriginPostalCode, log)
	h.Payments = paymentSvc
	h.Addresses = services.NewAddressService(store)
	h.Whitelist = services.NewWhitelistService(store)
	h.Media = media

	scheduler := cron.New()
	if err := jobs.Schedule(scheduler, jobs.NewPaymentJobs(store, paymentSvc, cfg.PendingTTL, log), catalog, store, log); err != nil {
		log.Fatal().Err(err).Msg("failed to schedule jobs")
	}
	scheduler.Start()
	log.Info().Int("jobs", len(scheduler.Entries())).Msg("cron jobs scheduled")

	app := fiber.New(fiber.Config{
		AppName:       "Komunitas Platform",
		CaseSensitive: true,
		ReadTimeout:   15 * time.Second,
		WriteTimeout:  15 * time.Second,
		IdleTimeout:   60 * time.Second,
		JSONEncoder:   sonic.Marshal,
		JSONDecoder:   sonic.Unmarshal,
		ErrorHandler:  handlers.ErrorHandler(log),
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins:  cfg.CORSOrigins,
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, Idempotency-Key, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowMethods:  "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		ExposeHeaders: "Content-Length, Content-Disposition",
		MaxAge:        86400,
	}))
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		TimeFormat: "2006-01-02 15:04:05",
		TimeZone:   "Asia/Jakarta",
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(metrics.Middleware())

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "success",
			"message": "Welcome to Komunitas Platform API",
		})
	})
	app.Get("/metrics", metrics.Handler())
	app.Get("/health", handlers.Health(store, log))

	routes.Setup(app, h, routes.Options{
		JWTSecret:      cfg.JWTSecret,
		LimiterStorage: limiterStorage,
		Hub:            hub,
	})

	go func() {
		<-ctx.Done()
		log.Info().Msg("shutting down")
		<-scheduler.Stop().Done()
		hub.Close()
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Error().Err(err).Msg("server shutdown failed")
		}
	}()

	log.Info().Str("port", cfg.Port).Msg("server is running")
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server failed to start")
	}
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
		With().Timestamp().Str("service", "komunitas-api").Logger()
}
