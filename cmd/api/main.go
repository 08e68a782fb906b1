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

	"github.com/getsentry/sentry-go"
	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/inversionreal/storefront/config"
	"github.com/inversionreal/storefront/pkg/api/handlers"
	"github.com/inversionreal/storefront/pkg/auth"
	"github.com/inversionreal/storefront/pkg/billing"
	"github.com/inversionreal/storefront/pkg/cache"
	"github.com/inversionreal/storefront/pkg/contracts"
	"github.com/inversionreal/storefront/pkg/database"
	"github.com/inversionreal/storefront/pkg/discord"
	"github.com/inversionreal/storefront/pkg/email"
	"github.com/inversionreal/storefront/pkg/logger"
	"github.com/inversionreal/storefront/pkg/metrics"
	custommiddleware "github.com/inversionreal/storefront/pkg/middleware"
	"github.com/inversionreal/storefront/pkg/payments"
	"github.com/inversionreal/storefront/pkg/secrets"
	"github.com/inversionreal/storefront/pkg/storage"
	"github.com/inversionreal/storefront/pkg/store"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

func main() {
	// Load configuration
	cfg := config.Load()
	log.Printf("🔧 Configuration loaded (environment: %s)", cfg.APIEnvironment)

	// Resolve secrets from the configured backend
	secretsManager, err := secrets.NewManager(secrets.ConfigFrom(cfg))
	if err != nil {
		log.Fatalf("❌ Failed to initialize secrets manager: %v", err)
	}
	defer secretsManager.Close()
	secrets.Apply(context.Background(), secretsManager, cfg)

	structured := logger.New(cfg.LogLevel)

	// Initialize Sentry for error tracking
	if cfg.SentryDSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			Environment:      cfg.SentryEnvironment,
			TracesSampleRate: 0.2,
			AttachStacktrace: true,
		})
		if err != nil {
			log.Printf("⚠️  Failed to initialize Sentry: %v", err)
		} else {
			log.Printf("✅ Sentry initialized (environment: %s)", cfg.SentryEnvironment)
			defer sentry.Flush(2 * time.Second)
		}
	} else {
		log.Printf("ℹ️  Sentry disabled (no DSN configured)")
	}

	// Initialize database with SSL configuration
	sslCfg := &database.SSLConfig{
		Mode:         cfg.DBSSLMode,
		CertPath:     cfg.DBSSLCertPath,
		KeyPath:      cfg.DBSSLKeyPath,
		RootCertPath: cfg.DBSSLRootCertPath,
	}
	db, err := database.NewClientWithPoolAndSSL(cfg.DatabaseURL, database.DefaultPoolConfig(), sslCfg)
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatalf("❌ Failed to run migrations: %v", err)
	}
	st := store.New(db)

	// Initialize Redis cache
	redisClient, err := cache.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatalf("❌ Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	// Initialize Prometheus metrics
	prometheusMetrics := metrics.NewWithRuntime()
	prometheusMetrics.TrackDBPool(db.Stats)
	log.Printf("✅ Prometheus metrics initialized")

	// Payments
	gateway := payments.NewGateway(payments.Config{
		SecretKey:     cfg.StripeSecretKey,
		WebhookSecret: cfg.StripeWebhookSecret,
		Currency:      cfg.StripeCurrency,
		BaseURL:       cfg.BaseURL,
	})

	// Discord
	discordClient, err := discord.NewClient(discord.Config{
		ClientID:     cfg.DiscordClientID,
		ClientSecret: cfg.DiscordClientSecret,
		RedirectURL:  cfg.BaseURL + "/api/discord/callback",
		BotToken:     cfg.DiscordBotToken,
		GuildID:      cfg.DiscordGuildID,
		MemberRoleID: cfg.DiscordMemberRoleID,
		InviteURL:    cfg.DiscordInviteURL,
	})
	if err != nil {
		log.Fatalf("❌ Failed to initialize Discord client: %v", err)
	}
	var chat billing.Chat
	if discordClient.Enabled() {
		chat = discordClient
		log.Printf("✅ Discord role sync enabled (guild: %s)", cfg.DiscordGuildID)
	} else {
		log.Printf("ℹ️  Discord role sync disabled (bot token, guild or role missing)")
	}
	var discordOAuth handlers.DiscordOAuth
	if cfg.DiscordClientID != "" && cfg.DiscordClientSecret != "" {
		discordOAuth = discordClient
	}

	// Contracts
	emailService := email.NewService(cfg.EmailFrom, cfg.EmailFromName, cfg.SendGridAPIKey)
	contractService := contracts.NewService(st, emailService, cfg.ContractsInbox)

	adminHandler := handlers.NewAdminHandler(st)
	if cfg.ContractsBucket != "" {
		archive, err := storage.NewService(context.Background(), storage.Config{
			AWSAccessKeyID:     cfg.AWSAccessKeyID,
			AWSSecretAccessKey: cfg.AWSSecretAccessKey,
			AWSRegion:          cfg.AWSRegion,
			Bucket:             cfg.ContractsBucket,
			Prefix:             cfg.ContractsBucketPrefix,
		})
		if err != nil {
			log.Printf("⚠️  Contract archive disabled: %v", err)
		} else {
			contractService.SetArchive(archive)
			adminHandler.SetArchive(archive)
			log.Printf("✅ Contract archive enabled (bucket: %s)", cfg.ContractsBucket)
		}
	}

	// Billing
	roleSyncer := billing.NewRoleSyncer(chat, st, structured.With("component", "rolesync"), cfg.BaseURL, cfg.DiscordInviteURL)
	roleSyncer.SetMetrics(prometheusMetrics)

	reconciler := billing.NewReconciler(gateway, st, structured.With("component", "webhook"))
	reconciler.SetContracts(contractService)
	reconciler.SetRoleSyncer(roleSyncer)
	reconciler.SetEventLog(billing.NewRedisEventLog(redisClient, cfg.WebhookEventTTL))
	reconciler.SetMetrics(prometheusMetrics)

	checkout := billing.NewCheckout(gateway, st, structured.With("component", "checkout"))

	// Handlers
	authHandler := handlers.NewAuthHandler(st, cfg, auth.NewTokenBlacklist(redisClient))
	authHandler.SetMetrics(prometheusMetrics)
	checkoutHandler := handlers.NewCheckoutHandler(checkout, st)
	checkoutHandler.SetMetrics(prometheusMetrics)

	// Initialize Echo
	e := echo.New()
	e.HideBanner = true

	ipExtractor, err := custommiddleware.ClientIPExtractor(cfg.TrustedProxies)
	if err != nil {
		log.Fatalf("❌ Invalid TRUSTED_PROXIES: %v", err)
	}
	e.IPExtractor = ipExtractor

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus: true,
		LogURI:    true,
		LogError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.Printf("[%s] %s - Status: %d", c.Request().Method, v.URI, v.Status)
			return nil
		},
	}))
	e.Use(middleware.Recover())

	// Sentry error tracking middleware (if configured)
	if cfg.SentryDSN != "" {
		e.Use(sentryecho.New(sentryecho.Options{
			Repanic: true,
		}))
	}

	e.Use(prometheusMetrics.Middleware())
	e.Use(middleware.CORSWithConfig(custommiddleware.CORSConfig(cfg.CORSAllowedOrigins)))
	e.Use(custommiddleware.SecurityHeaders(custommiddleware.DefaultSecurityHeadersConfig()))

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	globalRateLimiter := custommiddleware.NewRateLimiter(cfg.RateLimitRequestsPerMinute, cfg.RateLimitBurst)
	authRateLimiter := custommiddleware.NewRateLimiter(5, 2)
	for _, rl := range []*custommiddleware.RateLimiter{globalRateLimiter, authRateLimiter} {
		go rl.Run(ctx, 5*time.Minute)
	}

	e.GET("/health", func(c echo.Context) error {
		if err := db.Ping(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]any{
				"status":   "unhealthy",
				"database": "down",
			})
		}
		if _, err := redisClient.Redis.Ping(c.Request().Context()).Result(); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]any{
				"status": "unhealthy",
				"cache":  "down",
			})
		}
		return c.JSON(http.StatusOK, map[string]any{
			"status":   "healthy",
			"database": "up",
			"cache":    "up",
		})
	})
	e.GET("/metrics", echo.WrapHandler(prometheusMetrics.Handler()))

	registerRoutes(e, routes{
		auth:     authHandler,
		catalog:  handlers.NewCatalogHandler(st),
		checkout: checkoutHandler,
		webhook:  handlers.NewWebhookHandler(reconciler),
		discord:  handlers.NewDiscordHandler(discordOAuth, st, redisClient, roleSyncer, cfg.BaseURL, structured.With("component", "discord")),
		admin:    adminHandler,

		jwtSecret: cfg.JWTSecret,
		blacklist: auth.NewTokenBlacklist(redisClient),

		globalLimiter: globalRateLimiter,
		authLimiter:   authRateLimiter,
	})

	address := fmt.Sprintf("%s:%s", cfg.APIHost, cfg.APIPort)
	log.Printf("🚀 Storefront API starting on %s", address)
	log.Printf("🔐 JWT expiration: %d hours", cfg.JWTExpirationHours)
	log.Printf("🛡️  Rate limiting: %d req/min (burst: %d)", cfg.RateLimitRequestsPerMinute, cfg.RateLimitBurst)

	// Graceful shutdown
	go func() {
		if err := e.Start(address); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("❌ Server forced to shutdown: %v", err)
	}

	log.Println("✅ Server gracefully stopped")
}
