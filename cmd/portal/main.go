package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/ResidentHub/internal/api"
	"github.com/Kerhoff/ResidentHub/internal/auth"
	"github.com/Kerhoff/ResidentHub/internal/config"
	"github.com/Kerhoff/ResidentHub/internal/delivery"
	"github.com/Kerhoff/ResidentHub/internal/handlers"
	"github.com/Kerhoff/ResidentHub/internal/metrics"
	"github.com/Kerhoff/ResidentHub/internal/ratelimit"
	"github.com/Kerhoff/ResidentHub/internal/repository"
	"github.com/Kerhoff/ResidentHub/internal/repository/memory"
	"github.com/Kerhoff/ResidentHub/internal/repository/postgres"
	"github.com/Kerhoff/ResidentHub/internal/service"
	"github.com/Kerhoff/ResidentHub/internal/telegram"
	"github.com/Kerhoff/ResidentHub/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	l := logger.New(cfg.LogLevel, cfg.LogFormat)
	l.Info("Starting ResidentHub...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Storage
	var (
		repos  repository.Repositories
		health api.HealthChecker
	)
	switch cfg.Storage {
	case config.StorageMemory:
		l.Warn("Using in-memory storage, data is lost on restart")
		repos = memory.NewRepositories()
	default:
		db, err := config.NewDatabase(ctx, cfg.DatabaseURL, l)
		if err != nil {
			l.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()

		if err := db.Migrate(cfg.MigrationsPath); err != nil {
			l.Fatalf("Failed to run migrations: %v", err)
		}
		repos = postgres.NewRepositories(db.DB)
		health = db
	}

	// Pass delivery
	var (
		mailer    delivery.Mailer
		messenger delivery.Messenger
		svc       *service.Service
	)
	if cfg.EmailEnabled() {
		mailer = delivery.NewSendGridMailer(cfg.SendGridAPIKey, cfg.MailFromName, cfg.MailFrom)
	} else {
		l.Warn("SENDGRID_API_KEY not set, pass emails are disabled")
	}
	if cfg.WhatsAppEnabled() {
		messenger = delivery.NewTwilioWhatsApp("", cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioWhatsAppFrom)
	} else {
		l.Warn("Twilio credentials not set, WhatsApp passes are disabled")
	}
	dispatcher := delivery.NewDispatcher(mailer, messenger, func(code string) string {
		return svc.PassURL(code)
	}, service.QRSize, l)

	// Service layer
	svc = service.New(l, repos, dispatcher, cfg.PublicBaseURL)
	tokens := auth.NewManager(cfg.SessionSecret, cfg.IdentitySecret, cfg.SessionTTL)

	// Rate limiting
	local := ratelimit.NewMemoryLimiter(cfg.RateLimitPerMinute, time.Minute)
	go local.Run(ctx, 5*time.Minute)
	var limiter ratelimit.Limiter = local
	if cfg.RedisEnabled() {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			l.WithError(err).Warn("Redis unreachable at startup, rate limits fall back to this instance")
		}
		shared := ratelimit.NewRedisLimiter(rdb, "residenthub:ratelimit", cfg.RateLimitPerMinute, time.Minute)
		limiter = ratelimit.NewFallback(shared, local, l)
	}

	opts := []api.Option{
		api.WithRateLimiter(limiter),
		api.WithSecureCookies(cfg.SecureCookies),
		api.WithTrustedProxies(cfg.TrustedProxies),
	}
	if health != nil {
		opts = append(opts, api.WithHealthCheck(health))
	}
	apiServer := api.NewServer(svc, tokens, l, opts...)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	metricsServer := &http.Server{
		Addr:              ":" + cfg.PrometheusPort,
		Handler:           metrics.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serve(l, "HTTP server", httpServer, stop)
	serve(l, "Metrics server", metricsServer, stop)

	// Gate scanner bot
	botDone := make(chan struct{})
	if cfg.TelegramToken != "" {
		router := telegram.NewRouter(l, cfg.TelegramScanners)
		router.RegisterCommand("start", handlers.NewStartHandler(l))
		router.RegisterCommand("help", handlers.NewHelpHandler(l))
		router.RegisterScannerCommand("pass", handlers.NewPassHandler(svc, l))
		router.RegisterScannerCommand("attend", handlers.NewAttendHandler(svc, l))
		if len(cfg.TelegramScanners) == 0 {
			l.Warn("TELEGRAM_SCANNERS is empty, nobody can scan passes from Telegram")
		}

		bot, err := telegram.NewBot(cfg.TelegramToken, router, l)
		if err != nil {
			l.Fatalf("Failed to create Telegram bot: %v", err)
		}
		go func() {
			defer close(botDone)
			if err := bot.Start(ctx); err != nil {
				l.Errorf("Bot error: %v", err)
			}
		}()
	} else {
		close(botDone)
	}

	l.Info("ResidentHub started successfully")

	<-ctx.Done()
	l.Info("Received shutdown signal...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		l.WithError(err).Error("HTTP server shutdown failed")
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		l.WithError(err).Error("Metrics server shutdown failed")
	}
	<-botDone

	l.Info("Waiting for pending pass deliveries...")
	dispatcher.Wait()

	l.Info("ResidentHub stopped")
}

// serve runs srv in the background and triggers shutdown if it fails
func serve(l *logrus.Logger, name string, srv *http.Server, stop context.CancelFunc) {
	go func() {
		l.Infof("%s listening on %s", name, srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.WithError(err).Errorf("%s error", name)
			stop()
		}
	}()
}
