package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"

	"github.com/scholarship-finder/backend/internal/config"
	"github.com/scholarship-finder/backend/internal/email"
	"github.com/scholarship-finder/backend/internal/httputil"
	"github.com/scholarship-finder/backend/internal/logging"
	"github.com/scholarship-finder/backend/internal/metrics"
	"github.com/scholarship-finder/backend/internal/middleware"
	"github.com/scholarship-finder/backend/services/applications"
	"github.com/scholarship-finder/backend/services/collaborations"
	"github.com/scholarship-finder/backend/services/collaborators"
	"github.com/scholarship-finder/backend/services/essays"
	"github.com/scholarship-finder/backend/services/reminders"
	"github.com/scholarship-finder/backend/services/scholarships"
	"github.com/scholarship-finder/backend/services/users"
	"github.com/scholarship-finder/backend/supabase/client"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Default().WithError(err).Error("failed to load configuration")
		os.Exit(1)
	}

	logger := logging.New("gateway", cfg.LogLevel, cfg.LogFormat)

	db, err := client.New(client.Config{
		URL:    cfg.SupabaseURL,
		APIKey: cfg.SupabaseServiceKey,
		Retry:  client.DefaultRetryConfig(),
	})
	if err != nil {
		logger.WithError(err).Error("failed to create supabase client")
		os.Exit(1)
	}

	var sender email.Sender
	if cfg.EmailProviderAPIKey != "" {
		sender = email.NewHTTPSender(email.HTTPSenderConfig{
			BaseURL: cfg.EmailProviderURL,
			APIKey:  cfg.EmailProviderAPIKey,
			From:    cfg.EmailFromAddress,
		}, logger)
	} else {
		logger.Warn("no email provider key set, using noop sender")
		sender = email.NewNoopSender()
	}

	collaboratorStore := collaborators.NewSupabaseStore(db)
	applicationStore := applications.NewSupabaseStore(db)
	collaborationStore := collaborations.NewSupabaseStore(db)
	scholarshipStore := scholarships.NewSupabaseStore(db)
	essayStore := essays.NewSupabaseStore(db)
	userStore := users.NewSupabaseStore(db)

	collaboratorSvc := collaborators.NewService(collaboratorStore, logger)
	applicationSvc := applications.NewService(applicationStore, logger)
	collaborationSvc := collaborations.NewService(collaborationStore, collaboratorStore, applicationStore, sender, logger)
	userSvc := users.NewService(userStore, logger)
	scholarshipSvc := scholarships.NewService(scholarshipStore, userSvc, logger)
	essaySvc := essays.NewService(essayStore, applicationStore, logger)
	reminderSvc := reminders.NewService(applicationStore, collaborationStore, logger)

	m := metrics.New("scholarship_backend")

	router := mux.NewRouter()
	router.HandleFunc("/health", handleHealth).Methods(http.MethodGet)
	router.Handle("/metrics", m.Handler()).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()
	collaboratorSvc.RegisterRoutes(api)
	applicationSvc.RegisterRoutes(api)
	collaborationSvc.RegisterRoutes(api)
	scholarshipSvc.RegisterRoutes(api)
	essaySvc.RegisterRoutes(api)
	userSvc.RegisterRoutes(api)
	reminderSvc.RegisterRoutes(api)

	webhook := collaborations.NewWebhookHandler(collaborationSvc, cfg.EmailWebhookSecret)
	webhook.RegisterRoutes(router)

	var limiter middleware.Limiter
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		defer rdb.Close()
		limiter = middleware.NewRedisLimiter(rdb, cfg.RateLimitPerSecond, time.Second)
		logger.Info("using redis rate limiter")
	} else {
		limiter = middleware.NewRateLimiter(cfg.RateLimitPerSecond, cfg.RateLimitBurst)
	}

	auth := middleware.NewAuthMiddleware(cfg.JWTSecret, logger, []string{
		"/health",
		"/metrics",
		"/webhooks/email",
	})

	router.Use(
		middleware.NewCORSMiddleware(cfg.AllowedOrigins).Handler,
		middleware.NewTracingMiddleware(logger).Handler,
		middleware.MetricsMiddleware("gateway", m),
		middleware.NewRateLimitMiddleware(limiter, cfg.RateLimitPerSecond, logger).Handler,
		auth.Handler,
	)

	dispatcher := collaborations.NewDispatcher(collaborationSvc, logger, cfg.InviteDispatchInterval)
	if err := dispatcher.Start(); err != nil {
		logger.WithError(err).Error("failed to start invite dispatcher")
		os.Exit(1)
	}
	defer dispatcher.Stop()

	sweeper := scholarships.NewSweeper(scholarshipSvc, logger, cfg.ExpirySweepInterval)
	if err := sweeper.Start(); err != nil {
		logger.WithError(err).Error("failed to start expiry sweeper")
		os.Exit(1)
	}
	defer sweeper.Stop()

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithField("addr", cfg.ListenAddr).Info("gateway listening")
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("server failed")
			os.Exit(1)
		}
	case sig := <-sigCh:
		logger.WithField("signal", sig.String()).Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.WithError(err).Error("graceful shutdown failed")
		}
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
