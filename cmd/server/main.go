package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberRecover "github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/btcbuzzbot/bot/internal/domain/entities"
	"github.com/btcbuzzbot/bot/internal/domain/repositories"
	"github.com/btcbuzzbot/bot/internal/domain/services"
	"github.com/btcbuzzbot/bot/internal/infrastructure/audit"
	"github.com/btcbuzzbot/bot/internal/infrastructure/database"
	"github.com/btcbuzzbot/bot/internal/infrastructure/external"
	"github.com/btcbuzzbot/bot/internal/infrastructure/logging"
	"github.com/btcbuzzbot/bot/internal/infrastructure/messaging"
	"github.com/btcbuzzbot/bot/internal/infrastructure/repository/postgres"
	"github.com/btcbuzzbot/bot/internal/infrastructure/repository/sqlite"
	"github.com/btcbuzzbot/bot/internal/infrastructure/scheduler"
	"github.com/btcbuzzbot/bot/internal/infrastructure/security"
	"github.com/btcbuzzbot/bot/internal/infrastructure/sentiment"
	"github.com/btcbuzzbot/bot/internal/infrastructure/statuslog"
	"github.com/btcbuzzbot/bot/internal/infrastructure/workers"
	httproutes "github.com/btcbuzzbot/bot/internal/interfaces/http"
	"github.com/btcbuzzbot/bot/internal/interfaces/http/handlers"
	httpmiddleware "github.com/btcbuzzbot/bot/internal/interfaces/http/middleware"
	adminws "github.com/btcbuzzbot/bot/internal/interfaces/websocket"
	"github.com/btcbuzzbot/bot/pkg/utils"
)

type appConfig struct {
	Host      string
	Port      int
	LogLevel  string
	LogFormat string

	JWTSecret string
	JWTIssuer string
	JWTLeeway time.Duration

	CORSAllowOrigins string
	CORSAllowHeaders string
	CORSAllowMethods string

	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration

	DatabaseURL  string
	SQLiteDBPath string

	AdminEmail    string
	AdminPassword string

	TwitterAPIKey            string
	TwitterAPISecret         string
	TwitterAccessToken       string
	TwitterAccessTokenSecret string
	TwitterBearerToken       string
	TwitterSearchQuery       string

	CoinGeckoAPIKey     string
	CoinGeckoRetryLimit int

	GroqAPIKey          string
	GroqModel           string
	LLMAnalyzeTemp      float64
	LLMAnalyzeMaxTokens int

	NewsFetchMaxResults          int
	NewsAnalysisBatchSize        int
	NewsProcessingTimeoutSeconds int
	NewsHoursLimit               int
	NewsFetchIntervalMinutes     int
	NewsAnalyzeIntervalMinutes   int

	DuplicatePostCheckMinutes int
	ContentReuseDays          int
	PostTimes                 string
	Timezone                  string

	EnableDiscordPosting  bool
	DiscordWebhookURL     string
	EnableTelegramPosting bool
	TelegramBotToken      string
	TelegramChatID        string

	RedisURL string
}

func main() {
	cfg := loadConfig()

	logger, err := logging.NewLogger(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		slog.Error("failed to initialise logger", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, pool, closeStore, err := buildStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialise store", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer closeStore()

	adminUsers := buildAdminUserRepository(store, pool, logger)
	if err := bootstrapAdminUser(ctx, adminUsers, cfg, logger); err != nil {
		logger.Error("failed to bootstrap admin user", slog.String("error", err.Error()))
		os.Exit(1)
	}

	jwtService, err := security.NewJWTService(security.JWTConfig{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer, Leeway: cfg.JWTLeeway})
	if err != nil {
		logger.Error("failed to initialise JWT service", slog.String("error", err.Error()))
		os.Exit(1)
	}
	hasher, err := security.NewBcryptHasher(security.DefaultBCryptCost)
	if err != nil {
		logger.Error("failed to initialise password hasher", slog.String("error", err.Error()))
		os.Exit(1)
	}

	var redisClient *redis.Client
	var broadcaster messaging.EventBroadcaster
	var jobLock messaging.JobLock = messaging.NewInProcessJobLock()
	if cfg.RedisURL != "" {
		opts, parseErr := redis.ParseURL(cfg.RedisURL)
		if parseErr != nil {
			logger.Error("invalid REDIS_URL", slog.String("error", parseErr.Error()))
			os.Exit(1)
		}
		redisClient = redis.NewClient(opts)
		broadcaster, err = messaging.NewEventBroadcaster(messaging.EventBroadcasterConfig{RedisClient: redisClient, Logger: logging.WithComponent(logger, "event_broadcaster")})
		if err != nil {
			logger.Error("failed to initialise event broadcaster", slog.String("error", err.Error()))
			os.Exit(1)
		}
		jobLock = messaging.NewRedisJobLock(redisClient)
		logger.Info("redis wired: job lock and event broadcaster active")
	} else {
		logger.Info("REDIS_URL not set: running single-instance with in-process job lock, no live event stream")
	}

	priceClient := external.NewCoinGeckoPriceClient(external.PriceClientConfig{
		APIKey:        cfg.CoinGeckoAPIKey,
		RetryAttempts: cfg.CoinGeckoRetryLimit,
		Logger:        logging.WithComponent(logger, "price_client"),
	})
	socialClient := external.NewTwitterClient(external.TwitterClientConfig{
		APIKey:            cfg.TwitterAPIKey,
		APISecret:         cfg.TwitterAPISecret,
		AccessToken:       cfg.TwitterAccessToken,
		AccessTokenSecret: cfg.TwitterAccessTokenSecret,
		BearerToken:       cfg.TwitterBearerToken,
		Logger:            logging.WithComponent(logger, "social_client"),
	})
	llmClient := external.NewGroqClient(external.LLMClientConfig{
		APIKey:      cfg.GroqAPIKey,
		Model:       cfg.GroqModel,
		Temperature: cfg.LLMAnalyzeTemp,
		MaxTokens:   cfg.LLMAnalyzeMaxTokens,
		Logger:      logging.WithComponent(logger, "llm_client"),
	})
	vader := sentiment.NewVaderAnalyzer()

	webhooks := buildWebhookChannels(cfg, logger)

	contentPicker := services.NewContentPicker(services.ContentPickerConfig{
		Store:       store,
		Logger:      logging.WithComponent(logger, "content_picker"),
		ReuseWindow: time.Duration(cfg.ContentReuseDays) * 24 * time.Hour,
	})

	publisher := workers.NewPublisher(workers.PublisherConfig{
		Store:           store,
		PriceClient:     priceClient,
		SocialClient:    socialClient,
		ContentPicker:   contentPicker,
		Webhooks:        webhooks,
		Broadcaster:     broadcaster,
		Logger:          logging.WithComponent(logger, "publisher"),
		DuplicateWindow: time.Duration(cfg.DuplicatePostCheckMinutes) * time.Minute,
		NewsHoursLimit:  cfg.NewsHoursLimit,
	})
	newsFetcher := workers.NewNewsFetcher(workers.NewsFetcherConfig{
		Store:        store,
		SocialClient: socialClient,
		Broadcaster:  broadcaster,
		Logger:       logging.WithComponent(logger, "news_fetcher"),
		Query:        cfg.TwitterSearchQuery,
		MaxResults:   cfg.NewsFetchMaxResults,
	})
	newsAnalyzer := workers.NewNewsAnalyzer(workers.NewsAnalyzerConfig{
		Store:         store,
		LLMClient:     llmClient,
		Vader:         vader,
		Logger:        logging.WithComponent(logger, "news_analyzer"),
		BatchSize:     cfg.NewsAnalysisBatchSize,
		CycleDeadline: time.Duration(cfg.NewsProcessingTimeoutSeconds) * time.Second,
	})

	statusLogger := statuslog.NewLogger(store, logging.WithComponent(logger, "statuslog"))

	sched := scheduler.New(scheduler.Config{
		Store:                  store,
		StatusLogger:           statusLogger,
		JobLock:                jobLock,
		Logger:                 logging.WithComponent(logger, "scheduler"),
		Publish:                publisher.RunCycle,
		FetchNews:              newsFetcher.RunCycle,
		AnalyzeNews:            newsAnalyzer.RunCycle,
		DefaultSchedule:        cfg.PostTimes,
		FetchIntervalMinutes:   cfg.NewsFetchIntervalMinutes,
		AnalyzeIntervalMinutes: cfg.NewsAnalyzeIntervalMinutes,
	})
	if err := sched.Start(ctx); err != nil {
		logger.Error("failed to start scheduler", slog.String("error", err.Error()))
		os.Exit(1)
	}

	auditLogger := audit.NewLogger(logging.WithComponent(logger, "audit"))
	adminHandler := handlers.NewAdminHandler(store, adminUsers, jwtService, hasher, sched, auditLogger, logging.WithComponent(logger, "admin_handler"))
	adminWS := adminws.NewAdminWebSocketHandler(broadcaster, store, logging.WithComponent(logger, "admin_websocket"))

	app := buildFiberApp(cfg, logger, jwtService, adminHandler, adminWS)

	go func() {
		<-ctx.Done()
		logger.Info("shutdown signal received, stopping")
		sched.Stop(context.Background())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			logger.Error("error during server shutdown", slog.String("error", err.Error()))
		}
		if redisClient != nil {
			_ = redisClient.Close()
		}
	}()

	address := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	logger.Info("starting server", slog.String("address", address))
	if err := app.Listen(address); err != nil && !errors.Is(err, fiber.ErrServerClosed) {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}

// buildStore opens the Postgres pool (migrating first) when DATABASE_URL is
// set, otherwise an embedded SQLite file. The pgxpool.Pool is
// returned alongside the store so the admin user repository can share the
// same connection pool.
func buildStore(ctx context.Context, cfg appConfig, logger *slog.Logger) (repositories.Store, *pgxpool.Pool, func(), error) {
	if cfg.DatabaseURL == "" {
		store, err := sqlite.Open(ctx, cfg.SQLiteDBPath, logging.WithComponent(logger, "sqlite_store"))
		if err != nil {
			return nil, nil, nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return store, nil, func() { _ = store.Close() }, nil
	}

	migrator, err := database.NewMigrator([]database.DatabaseConfig{
		{Name: "core", DSN: cfg.DatabaseURL, MigrationsDir: "migrations/postgres"},
	}, log.New(os.Stderr, "migrate: ", log.LstdFlags))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("build migrator: %w", err)
	}
	if err := migrator.Up(ctx, "core"); err != nil {
		return nil, nil, nil, fmt.Errorf("run migrations: %w", err)
	}

	poolManager := database.NewPoolManager(logging.WithComponent(logger, "database"))
	if err := poolManager.Register(ctx, "core", database.PoolConfig{DSN: cfg.DatabaseURL}); err != nil {
		return nil, nil, nil, fmt.Errorf("register core pool: %w", err)
	}
	pool, err := poolManager.Get("core")
	if err != nil {
		return nil, nil, nil, fmt.Errorf("get core pool: %w", err)
	}

	store := postgres.NewStore(pool, logging.WithComponent(logger, "postgres_store"))
	if err := seedDefaultSchedule(ctx, store); err != nil {
		return nil, nil, nil, fmt.Errorf("seed default schedule: %w", err)
	}
	return store, pool, func() { poolManager.CloseAll() }, nil
}

// seedDefaultSchedule inserts entities.DefaultSchedule the first time
// scheduler_config has no "schedule" row, so a fresh Postgres database
// starts with a schedule to run rather than an empty one. The SQLite
// backend seeds itself inside sqlite.Open; Postgres schema comes from
// migrations alone, so the composition root seeds it here instead.
func seedDefaultSchedule(ctx context.Context, store repositories.Store) error {
	existing, err := store.GetScheduleConfig(ctx)
	if err != nil {
		return err
	}
	if existing != "" {
		return nil
	}
	return store.SetScheduleConfig(ctx, entities.DefaultSchedule)
}

func buildAdminUserRepository(store repositories.Store, pool *pgxpool.Pool, logger *slog.Logger) repositories.AdminUserRepository {
	if pool != nil {
		return postgres.NewAdminUserRepo(pool, logging.WithComponent(logger, "admin_user_repo"))
	}
	if s, ok := store.(*sqlite.Store); ok {
		return sqlite.NewAdminUserRepo(s)
	}
	logger.Error("unrecognized store backend, admin login will be unavailable")
	return nil
}

// bootstrapAdminUser seeds the single admin account from ADMIN_EMAIL /
// ADMIN_PASSWORD the first time the admin_users table is empty.
func bootstrapAdminUser(ctx context.Context, repo repositories.AdminUserRepository, cfg appConfig, logger *slog.Logger) error {
	if repo == nil || cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}
	count, err := repo.Count(ctx)
	if err != nil {
		return fmt.Errorf("count admin users: %w", err)
	}
	if count > 0 {
		return nil
	}

	hasher, err := security.NewBcryptHasher(security.DefaultBCryptCost)
	if err != nil {
		return err
	}
	hash, err := hasher.Hash(cfg.AdminPassword)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	user, err := entities.NewAdminUserEntity(entities.AdminUserParams{Email: cfg.AdminEmail, PasswordHash: hash})
	if err != nil {
		return fmt.Errorf("build admin user: %w", err)
	}
	if err := repo.Create(ctx, user); err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}
	logger.Info("bootstrapped admin user", slog.String("email", cfg.AdminEmail))
	return nil
}

func buildWebhookChannels(cfg appConfig, logger *slog.Logger) []workers.WebhookChannel {
	var channels []workers.WebhookChannel
	if cfg.EnableDiscordPosting && cfg.DiscordWebhookURL != "" {
		client := external.NewDiscordWebhookClient(5*time.Second, logging.WithComponent(logger, "discord_webhook"))
		channels = append(channels, workers.WebhookChannel{
			Name: "discord",
			Send: func(ctx context.Context, text string) bool { return client.Send(ctx, cfg.DiscordWebhookURL, text) },
		})
	}
	if cfg.EnableTelegramPosting && cfg.TelegramBotToken != "" && cfg.TelegramChatID != "" {
		client := external.NewTelegramBotClient(5*time.Second, logging.WithComponent(logger, "telegram_bot"))
		channels = append(channels, workers.WebhookChannel{
			Name: "telegram",
			Send: func(ctx context.Context, text string) bool {
				return client.Send(ctx, cfg.TelegramBotToken, cfg.TelegramChatID, text)
			},
		})
	}
	return channels
}

func buildFiberApp(cfg appConfig, logger *slog.Logger, jwtService *security.JWTService, adminHandler *handlers.AdminHandler, adminWS *adminws.AdminWebSocketHandler) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "btcbuzzbot",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			resp, status := utils.ToErrorResponse(err)
			return c.Status(status).JSON(resp)
		},
	})

	app.Use(httpmiddleware.NewRequestContextMiddleware(logging.WithComponent(logger, "request")))
	app.Use(httpmiddleware.NewRequestValidationMiddleware(httpmiddleware.RequestValidationConfig{MaxBodyBytes: 1 << 20, EnforceJSON: true}))
	app.Use(httpmiddleware.NewLoggingMiddleware(logging.WithComponent(logger, "http")))
	app.Use(fiberRecover.New())
	app.Use(httpmiddleware.NewCORSMiddleware(httpmiddleware.CORSConfig{
		AllowOrigins:     cfg.CORSAllowOrigins,
		AllowHeaders:     cfg.CORSAllowHeaders,
		AllowMethods:     cfg.CORSAllowMethods,
		AllowCredentials: true,
	}))
	app.Use(httpmiddleware.NewRateLimitMiddleware(httpmiddleware.RateLimitConfig{
		Enabled:      cfg.RateLimitEnabled,
		MaxRequests:  cfg.RateLimitRequests,
		Window:       cfg.RateLimitWindow,
		ExcludePaths: []string{"/api/v1/health", "/"},
	}))

	authMiddleware := httpmiddleware.NewAuthMiddleware(httpmiddleware.AuthConfig{
		JWTService: jwtService,
		Logger:     logging.WithComponent(logger, "auth"),
	})

	httproutes.RegisterRoutes(app, httproutes.RouteOptions{
		Logger:         logging.WithComponent(logger, "routes"),
		AuthMiddleware: authMiddleware,
		AdminHandler:   adminHandler,
		AdminWS:        adminWS,
		WSAuth: func(token string) bool {
			_, err := jwtService.Parse(context.Background(), token)
			return err == nil
		},
	})

	return app
}

func loadConfig() appConfig {
	return appConfig{
		Host:      getEnv("SERVER_HOST", "0.0.0.0"),
		Port:      getEnvAsInt("SERVER_PORT", 8080),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTIssuer: getEnv("JWT_ISSUER", "btcbuzzbot"),
		JWTLeeway: getEnvAsDuration("JWT_LEEWAY", 30*time.Second),

		CORSAllowOrigins: getEnv("CORS_ALLOW_ORIGINS", "*"),
		CORSAllowHeaders: getEnv("CORS_ALLOW_HEADERS", "Authorization,Content-Type,Accept,X-Request-ID"),
		CORSAllowMethods: getEnv("CORS_ALLOW_METHODS", "GET,POST,PUT,PATCH,DELETE,OPTIONS"),

		RateLimitEnabled:  getEnvAsBool("RATE_LIMIT_ENABLED", true),
		RateLimitRequests: getEnvAsInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:   getEnvAsDuration("RATE_LIMIT_WINDOW", time.Minute),

		DatabaseURL:  getEnv("DATABASE_URL", ""),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "btcbuzzbot.db"),

		AdminEmail:    getEnv("ADMIN_EMAIL", ""),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),

		TwitterAPIKey:            getEnv("TWITTER_API_KEY", ""),
		TwitterAPISecret:         getEnv("TWITTER_API_SECRET", ""),
		TwitterAccessToken:       getEnv("TWITTER_ACCESS_TOKEN", ""),
		TwitterAccessTokenSecret: getEnv("TWITTER_ACCESS_TOKEN_SECRET", ""),
		TwitterBearerToken:       getEnv("TWITTER_BEARER_TOKEN", ""),
		TwitterSearchQuery:       getEnv("TWITTER_SEARCH_QUERY", "#Bitcoin -is:retweet"),

		CoinGeckoAPIKey:     getEnv("COINGECKO_API_KEY", ""),
		CoinGeckoRetryLimit: getEnvAsInt("COINGECKO_RETRY_LIMIT", 3),

		GroqAPIKey:          getEnv("GROQ_API_KEY", ""),
		GroqModel:           getEnv("GROQ_MODEL", ""),
		LLMAnalyzeTemp:      getEnvAsFloat("LLM_ANALYZE_TEMP", 0.2),
		LLMAnalyzeMaxTokens: getEnvAsInt("LLM_ANALYZE_MAX_TOKENS", 150),

		NewsFetchMaxResults:          getEnvAsInt("NEWS_FETCH_MAX_RESULTS", 10),
		NewsAnalysisBatchSize:        getEnvAsInt("NEWS_ANALYSIS_BATCH_SIZE", 30),
		NewsProcessingTimeoutSeconds: getEnvAsInt("NEWS_PROCESSING_TIMEOUT_SECONDS", 300),
		NewsHoursLimit:               getEnvAsInt("NEWS_HOURS_LIMIT", 12),
		NewsFetchIntervalMinutes:     getEnvAsInt("NEWS_FETCH_INTERVAL_MINUTES", 720),
		NewsAnalyzeIntervalMinutes:   getEnvAsInt("NEWS_ANALYZE_INTERVAL_MINUTES", 30),

		DuplicatePostCheckMinutes: getEnvAsInt("DUPLICATE_POST_CHECK_MINUTES", 5),
		ContentReuseDays:          getEnvAsInt("CONTENT_REUSE_DAYS", 7),
		PostTimes:                 getEnv("POST_TIMES", entities.DefaultSchedule),
		Timezone:                  getEnv("TIMEZONE", "UTC"),

		EnableDiscordPosting:  getEnvAsBool("ENABLE_DISCORD_POSTING", false),
		DiscordWebhookURL:     getEnv("DISCORD_WEBHOOK_URL", ""),
		EnableTelegramPosting: getEnvAsBool("ENABLE_TELEGRAM_POSTING", false),
		TelegramBotToken:      getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:        getEnv("TELEGRAM_CHAT_ID", ""),

		RedisURL: getEnv("REDIS_URL", ""),
	}
}

func getEnv(key string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func getEnvAsBool(key string, fallback bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	boolVal, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return boolVal
}

func getEnvAsInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	intVal, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return intVal
}

func getEnvAsFloat(key string, fallback float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	floatVal, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return floatVal
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return duration
}
