package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	postgresdb "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"

	"github.com/whisper/pairbot/internal/abuse"
	"github.com/whisper/pairbot/internal/admin"
	"github.com/whisper/pairbot/internal/ban"
	"github.com/whisper/pairbot/internal/bot"
	"github.com/whisper/pairbot/internal/chat"
	"github.com/whisper/pairbot/internal/config"
	"github.com/whisper/pairbot/internal/matching"
	"github.com/whisper/pairbot/internal/messaging"
	"github.com/whisper/pairbot/internal/metrics"
	"github.com/whisper/pairbot/internal/profile"
	"github.com/whisper/pairbot/internal/ratelimit"
	"github.com/whisper/pairbot/internal/rating"
	"github.com/whisper/pairbot/internal/session"
	"github.com/whisper/pairbot/internal/transport"
)

// limiterMaxAge is how long an idle rate-limit window is kept in memory.
const limiterMaxAge = 2 * time.Minute

func main() {
	// Initialize logger
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting pairing bot")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}
	if len(cfg.AdminIDs) == 0 {
		logger.Warn("ADMIN_IDS is empty, operator commands are disabled")
	}

	// Connect to database with retries
	db, err := connectDatabase(cfg.DatabaseURL, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := runMigrations(db, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	profiles := profile.NewStore(db)
	ratings := rating.NewStore(db)

	// Redis caches bans; without it the ledger falls back to Postgres.
	var banCache ban.Cache
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()
	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logger.Warn("Redis unavailable, running without ban cache",
			zap.String("addr", cfg.RedisAddr),
			zap.Error(err),
		)
	} else {
		banCache = ban.NewStore(rdb)
	}
	cancelPing()

	// NATS is optional; events are dropped when it is not configured.
	events := messaging.Discard
	if cfg.NATSURL != "" {
		nc, err := messaging.NewNATSClient(messaging.DefaultNATSConfig(cfg.NATSURL), logger.Named("nats"))
		if err != nil {
			logger.Warn("NATS unavailable, events disabled", zap.Error(err))
		} else {
			defer nc.Close()
			events = nc
		}
	}

	// Initialize Telegram bot
	tb, err := tele.NewBot(tele.Settings{
		Token:  cfg.BotToken,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	})
	if err != nil {
		logger.Fatal("Failed to create bot", zap.Error(err))
	}
	tg := transport.NewTelegram(tb)

	sessions := session.NewStore(nil)
	limiter := ratelimit.NewLimiter(nil)
	ledger := ban.NewLedger(profiles, banCache, nil, logger.Named("ban"))
	actionRule := ratelimit.RuleAction
	if cfg.StrictRateLimit {
		actionRule = ratelimit.RuleStrict
	}
	guard := abuse.NewGuard(limiter, actionRule, ledger, nil, logger.Named("abuse"))
	gate := chat.NewGate(tg, limiter, cfg.ModerationChannel, nil, logger.Named("relay"))
	ops := admin.NewService(ledger, profiles, ratings, sessions, guard, nil, logger.Named("admin"))

	h := bot.NewHandler(bot.Deps{
		Transport: tg,
		Sessions:  sessions,
		Profiles:  profiles,
		Ratings:   ratings,
		Bans:      ledger,
		Guard:     guard,
		Relay:     gate,
		Admin:     ops,
		Events:    events,
		IsAdmin:   cfg.IsAdmin,
		Logger:    logger.Named("bot"),
	})
	h.RegisterHandlers(tb)

	matcher := matching.NewService(sessions, h, events, nil, logger.Named("matcher"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go matcher.Start(ctx)
	go limiter.StartCleanup(ctx, limiterMaxAge, logger.Named("ratelimit"))

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	metricsServer := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server failed", zap.Error(err))
		}
	}()

	// Start bot in background
	go func() {
		logger.Info("Bot started successfully",
			zap.String("metrics_addr", cfg.MetricsAddr),
			zap.Int("admins", len(cfg.AdminIDs)),
			zap.Bool("events", cfg.NATSURL != ""),
		)
		tb.Start()
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan

	logger.Info("Shutdown signal received, stopping bot...")

	// Graceful shutdown
	tb.Stop()
	cancel()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Metrics server shutdown failed", zap.Error(err))
	}

	logger.Info("Bot stopped gracefully")
}

// connectDatabase connects to PostgreSQL with retries
func connectDatabase(dsn string, logger *zap.Logger) (*sql.DB, error) {
	var db *sql.DB
	var err error

	maxRetries := 30
	retryDelay := 2 * time.Second

	for i := 0; i < maxRetries; i++ {
		db, err = sql.Open("postgres", dsn)
		if err != nil {
			logger.Warn("Failed to open database connection",
				zap.Int("attempt", i+1),
				zap.Error(err),
			)
			time.Sleep(retryDelay)
			continue
		}

		if err = db.Ping(); err != nil {
			logger.Warn("Failed to ping database",
				zap.Int("attempt", i+1),
				zap.Error(err),
			)
			db.Close()
			time.Sleep(retryDelay)
			continue
		}

		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)

		return db, nil
	}

	return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", maxRetries, err)
}

// runMigrations applies the schema in migrations/
func runMigrations(db *sql.DB, logger *zap.Logger) error {
	driver, err := postgresdb.WithInstance(db, &postgresdb.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://migrations", "postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	err = m.Up()
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		logger.Info("No new migrations to apply")
	case err != nil:
		return fmt.Errorf("failed to run migrations: %w", err)
	default:
		logger.Info("Migrations applied successfully")
	}
	return nil
}
