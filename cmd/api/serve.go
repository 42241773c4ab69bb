package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BradenHooton/surveyhub/internal/auth"
	"github.com/BradenHooton/surveyhub/internal/background"
	"github.com/BradenHooton/surveyhub/internal/bruteforce"
	"github.com/BradenHooton/surveyhub/internal/config"
	"github.com/BradenHooton/surveyhub/internal/database"
	"github.com/BradenHooton/surveyhub/internal/handlers"
	"github.com/BradenHooton/surveyhub/internal/kvstore"
	middlewareCustom "github.com/BradenHooton/surveyhub/internal/middleware"
	"github.com/BradenHooton/surveyhub/internal/models"
	"github.com/BradenHooton/surveyhub/internal/ratelimit"
	"github.com/BradenHooton/surveyhub/internal/repositories"
	"github.com/BradenHooton/surveyhub/internal/routes"
	"github.com/BradenHooton/surveyhub/internal/services"
	"github.com/BradenHooton/surveyhub/internal/shortcode"
	pkgauth "github.com/BradenHooton/surveyhub/pkg/auth"
	pkghttp "github.com/BradenHooton/surveyhub/pkg/http"
	pkglogger "github.com/BradenHooton/surveyhub/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStartup()

	// Initialize database
	db, err := database.NewConnection(startupCtx, &cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	// Optional shared store for limiter and lockout state
	var redisClient *redis.Client
	if cfg.Redis.URL != "" {
		redisClient, err = connectRedis(startupCtx, cfg.Redis.URL)
		if err != nil {
			return err
		}
		defer redisClient.Close()
		logger.Info("using redis for rate limit and lockout state")
	}

	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	sessionRepo := repositories.NewSessionRepository(db)
	loginAttemptRepo := repositories.NewLoginAttemptRepository(db)
	surveyRepo := repositories.NewSurveyRepository(db)
	linkRepo := repositories.NewSurveyLinkRepository(db)
	responseRepo := repositories.NewResponseRepository(db, logger)

	auditLogger := pkglogger.NewAuditLogger(logger)
	ipConfig := &pkghttp.IPConfig{TrustedProxies: cfg.Server.TrustedProxies}

	// Rate limiters
	loginLimiter := ratelimit.New(ratelimit.Config{
		Name:        "login",
		Window:      cfg.RateLimit.LoginWindow,
		MaxRequests: cfg.RateLimit.LoginRequests,
	}, newStore(redisClient, cfg.Redis.KeyPrefix+"ratelimit:login:", ratelimit.RecordTTL), logger)

	registerLimiter := ratelimit.New(ratelimit.Config{
		Name:        "register",
		Window:      cfg.RateLimit.RegisterWindow,
		MaxRequests: cfg.RateLimit.RegisterRequests,
	}, newStore(redisClient, cfg.Redis.KeyPrefix+"ratelimit:register:", ratelimit.RecordTTL), logger)

	responseLimiter := ratelimit.New(ratelimit.Config{
		Name:        "responses",
		Window:      cfg.RateLimit.ResponseWindow,
		MaxRequests: cfg.RateLimit.ResponseRequests,
	}, newStore(redisClient, cfg.Redis.KeyPrefix+"ratelimit:responses:", ratelimit.RecordTTL), logger)

	// Brute-force guard, warmed from persisted attempts so locks survive restarts
	guardCfg := bruteforce.Config{
		MaxAttempts:   cfg.BruteForce.MaxAttempts,
		AttemptWindow: cfg.BruteForce.AttemptWindow,
		LockDuration:  cfg.BruteForce.LockDuration,
		ReloadWindow:  cfg.BruteForce.ReloadWindow,
	}
	guard := bruteforce.New(guardCfg,
		newStore(redisClient, cfg.Redis.KeyPrefix+"login_attempts:", bruteforce.CacheTTL(guardCfg)),
		loginAttemptRepo, logger)

	loaded, err := guard.Load(startupCtx)
	if err != nil {
		logger.Warn("failed to load persisted login attempts", slog.Any("error", err))
	} else {
		logger.Info("login attempts loaded", slog.Int("records", loaded))
	}

	// Short codes
	codes := shortcode.NewGenerator(linkRepo, logger)
	codes.Length = cfg.Links.ShortCodeLength
	codes.FallbackLength = cfg.Links.FallbackCodeLength
	codes.MaxAttempts = cfg.Links.MaxShortCodeRetries

	// Email
	mailer, err := newMailer(startupCtx, cfg, logger)
	if err != nil {
		return err
	}

	// Session tokens and timing delay for auth security
	sessions := auth.NewSessionManager(cfg.Auth.JWTSecret, cfg.Auth.SessionExpiry)
	timingDelay := auth.NewTimingDelay(auth.TimingConfig{
		BaseDelayMs:   cfg.Auth.TimingDelayBaseMs,
		RandomDelayMs: cfg.Auth.TimingDelayRandomMs,
	})

	// Initialize services
	surveyService := services.NewSurveyService(surveyRepo, logger)
	responseService := services.NewResponseService(responseRepo, surveyService, logger, auditLogger)
	linkService := services.NewLinkService(linkRepo, surveyService, codes, mailer,
		services.LinkConfig{BaseURL: cfg.Server.BaseURL, TTL: cfg.Links.TTL}, logger, auditLogger)
	analyticsService := services.NewAnalyticsService(responseService, surveyService, logger)
	userService := services.NewUserService(userRepo, logger, auditLogger)
	authService := services.NewAuthService(userRepo, sessionRepo, guard, sessions, timingDelay, logger, auditLogger)

	// Initialize handlers
	cookies := auth.CookieConfig{
		Domain:   cfg.Auth.CookieDomain,
		Secure:   cfg.Auth.CookieSecure,
		SameSite: cfg.Auth.CookieSameSite,
	}
	h := routes.Handlers{
		Auth:      handlers.NewAuthHandler(authService, ipConfig, cookies, logger),
		Users:     handlers.NewUserHandler(userService),
		Surveys:   handlers.NewSurveyHandler(surveyService),
		Links:     handlers.NewSurveyLinkHandler(linkService),
		Responses: handlers.NewResponseHandler(responseService, ipConfig),
		Analytics: handlers.NewAnalyticsHandler(analyticsService),
		Health:    handlers.NewHealthHandler(db),
	}

	// Bootstrap first admin user if configured
	if err := ensureAdminUser(startupCtx, userRepo, logger); err != nil {
		logger.Error("failed to ensure admin user", slog.Any("error", err))
	}

	publicRateLimit := middlewareCustom.DefaultPublicRateLimit(ipConfig)
	publicRateLimit.RequestsPerMinute = cfg.RateLimit.PublicRequestsPerMinute

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(middlewareCustom.DefaultCORSConfig(cfg.Server.AllowedOrigins)))
	router.Use(middlewareCustom.SecureLogger(logger, ipConfig))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(cfg.Server.RequestTimeout))

	routes.RegisterRoutes(router, h, routes.Security{
		Sessions:        sessions,
		Revocations:     sessionRepo,
		Revocation:      auth.RevocationConfig{FailClosed: cfg.Server.Env == "production"},
		LoginLimiter:    loginLimiter,
		RegisterLimiter: registerLimiter,
		ResponseLimiter: responseLimiter,
		PublicRateLimit: publicRateLimit,
		IPConfig:        ipConfig,
		Logger:          logger,
	})

	// Periodic cleanup of limiter windows, lockouts and expired rows
	cleanupManager := background.NewCleanupManager(logger,
		background.SweepTask("ratelimit_login", cfg.RateLimit.SweepInterval, loginLimiter),
		background.SweepTask("ratelimit_register", cfg.RateLimit.SweepInterval, registerLimiter),
		background.SweepTask("ratelimit_responses", cfg.RateLimit.SweepInterval, responseLimiter),
		background.SweepTask("bruteforce", cfg.BruteForce.SweepInterval, guard),
		background.Task{
			Name:     "revoked_sessions",
			Interval: cfg.Auth.CleanupInterval,
			Run:      sessionRepo.CleanupExpired,
		},
		background.Task{
			Name:     "login_attempts",
			Interval: cfg.Auth.CleanupInterval,
			Run: func(ctx context.Context) (int64, error) {
				// Rows older than both the reload window and any lock are dead
				horizon := max(cfg.BruteForce.ReloadWindow, cfg.BruteForce.LockDuration)
				return loginAttemptRepo.DeleteStale(ctx, time.Now().Add(-horizon))
			},
		},
	)

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start cleanup tasks
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()
	cleanupManager.Start(cleanupCtx)

	// Start server
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		cleanupCancel()
		cleanupManager.Stop()
		return fmt.Errorf("server error: %w", err)
	}

	cleanupCancel()
	cleanupManager.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	logger.Info("server stopped gracefully")
	return nil
}

func connectRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// newStore picks Redis when a client is configured and process memory otherwise
func newStore[V any](client *redis.Client, prefix string, ttl func(V) time.Duration) kvstore.Store[V] {
	if client == nil {
		return kvstore.NewMemoryStore[V]()
	}
	return kvstore.NewRedisStore[V](client, prefix, ttl)
}

func newMailer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (services.EmailSender, error) {
	if !cfg.Email.Enabled {
		logger.Info("email disabled, invitations will only be logged")
		return services.NewLogEmailSender(logger), nil
	}
	ses, err := services.NewAWSSESEmailService(ctx, cfg.Email.AWSRegion, cfg.Email.FromAddress, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize email service: %w", err)
	}
	return ses, nil
}

// ensureAdminUser creates the first admin user if ADMIN_EMAIL and ADMIN_PASSWORD are set
func ensureAdminUser(ctx context.Context, userRepo *repositories.UserRepository, logger *slog.Logger) error {
	adminEmail := bruteforce.NormalizeEmail(os.Getenv("ADMIN_EMAIL"))
	adminPassword := os.Getenv("ADMIN_PASSWORD")

	if adminEmail == "" || adminPassword == "" {
		logger.Info("no ADMIN_EMAIL or ADMIN_PASSWORD set, skipping admin user creation")
		return nil
	}

	// Check if admin already exists
	_, err := userRepo.GetByEmail(ctx, adminEmail)
	if err == nil {
		logger.Info("admin user already exists")
		return nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("failed to check if admin exists: %w", err)
	}

	if err := pkgauth.ValidatePassword(adminPassword); err != nil {
		return fmt.Errorf("ADMIN_PASSWORD rejected: %w", err)
	}

	hashedPassword, err := pkgauth.HashPassword(adminPassword)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	admin := &models.User{
		Email:        adminEmail,
		PasswordHash: hashedPassword,
		Name:         "Admin",
		Role:         models.RoleAdmin,
		Status:       models.StatusActive,
	}

	if _, err := userRepo.Create(ctx, admin); err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	logger.Info("admin user created successfully", slog.String("email", pkglogger.SanitizedEmail(adminEmail)))
	return nil
}
