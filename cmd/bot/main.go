package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"

	"github.com/Proton-105/giftshop-bot/internal/balance"
	"github.com/Proton-105/giftshop-bot/internal/bot"
	"github.com/Proton-105/giftshop-bot/internal/bot/handlers"
	"github.com/Proton-105/giftshop-bot/internal/cache"
	"github.com/Proton-105/giftshop-bot/internal/database"
	"github.com/Proton-105/giftshop-bot/internal/domain"
	apperrors "github.com/Proton-105/giftshop-bot/internal/errors"
	"github.com/Proton-105/giftshop-bot/internal/gifts"
	"github.com/Proton-105/giftshop-bot/internal/health"
	"github.com/Proton-105/giftshop-bot/internal/i18n"
	"github.com/Proton-105/giftshop-bot/internal/idempotency"
	"github.com/Proton-105/giftshop-bot/internal/lifecycle"
	"github.com/Proton-105/giftshop-bot/internal/menu"
	"github.com/Proton-105/giftshop-bot/internal/middleware"
	"github.com/Proton-105/giftshop-bot/internal/ratelimit"
	"github.com/Proton-105/giftshop-bot/internal/repository"
	"github.com/Proton-105/giftshop-bot/internal/state"
	"github.com/Proton-105/giftshop-bot/internal/wizard"
	"github.com/Proton-105/giftshop-bot/pkg/config"
	"github.com/Proton-105/giftshop-bot/pkg/graceful"
	"github.com/Proton-105/giftshop-bot/pkg/logger"
	"github.com/Proton-105/giftshop-bot/pkg/metrics"
	pkgredis "github.com/Proton-105/giftshop-bot/pkg/redis"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "giftshop-bot: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, v, err := config.Load()
	if err != nil {
		return err
	}

	if cfg.Sentry.Enabled {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.Sentry.DSN,
			Environment: cfg.Sentry.Environment,
			SampleRate:  cfg.Sentry.SampleRate,
		}); err != nil {
			return fmt.Errorf("init sentry: %w", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	appLog := logger.New(logger.Config{
		Level:      cfg.Logger.Level,
		Format:     cfg.Logger.Format,
		File:       cfg.Logger.File,
		MaxSizeMB:  cfg.Logger.MaxSizeMB,
		MaxBackups: cfg.Logger.MaxBackups,
		MaxAgeDays: cfg.Logger.MaxAgeDays,
		Compress:   cfg.Logger.Compress,
		Sentry:     cfg.Sentry.Enabled,
	})
	defer func() { _ = appLog.Close() }()

	log := appLog.Logger
	slog.SetDefault(log)
	log.Info("starting giftshop bot", slog.String("env", cfg.AppEnv), slog.String("mode", cfg.Bot.Mode))

	config.Watch(v, log, func(next *config.Config) {
		if err := appLog.SetLevel(next.Logger.Level); err != nil {
			log.Warn("ignoring invalid log level", slog.String("level", next.Logger.Level))
			return
		}
		log.Info("log level reloaded", slog.String("level", next.Logger.Level))
	})

	translations, err := loadTranslations(cfg.I18n)
	if err != nil {
		return err
	}

	shutdown := lifecycle.NewShutdown(log)
	checker := health.NewChecker(log)
	inflight := &lifecycle.InFlight{}

	var rc *pkgredis.Client
	if cfg.Redis.Enabled() {
		rc, err = pkgredis.New(ctx, pkgredis.Config{
			Addr:            cfg.Redis.Addr,
			Password:        cfg.Redis.Password,
			DB:              cfg.Redis.DB,
			PoolSize:        cfg.Redis.PoolSize,
			MinIdleConns:    cfg.Redis.MinIdleConns,
			PoolTimeout:     cfg.Redis.PoolTimeout,
			IdleTimeout:     cfg.Redis.IdleTimeout,
			MaxRetries:      cfg.Redis.MaxRetries,
			MinRetryBackoff: cfg.Redis.MinRetryBackoff,
			MaxRetryBackoff: cfg.Redis.MaxRetryBackoff,
		})
		if err != nil {
			return err
		}
		checker.AddCheck("redis", health.NewRedisChecker(rc))
	} else {
		log.Warn("redis is not configured, using in-process stores")
	}

	var db *sql.DB
	var history repository.PurchaseRepository
	if cfg.Database.Enabled() {
		db, err = database.Open(ctx, cfg.Database.DSN(), cfg.Database.MaxOpenConns)
		if err != nil {
			return err
		}
		if err := database.NewMigrator(db, log).ApplyDir(ctx, cfg.Database.MigrationsDir); err != nil {
			return err
		}
		history = repository.NewPurchaseRepository(db, log)
		checker.AddCheck("postgres", health.NewDBChecker(db))
	} else {
		log.Warn("database is not configured, purchase history is disabled")
	}

	var raw *goredis.Client
	var cacheStore cache.Store = cache.NewMemoryStore()
	if rc != nil {
		raw = rc.Client
		cacheStore = pkgredis.NewMetricsClient(rc)
	}

	var sessions state.Storage = state.NewMemoryStorage()
	if cfg.Session.Backend == "redis" {
		sessions = state.NewRedisStorage(raw, log, cfg.Session.TTL)
	}
	machine := state.NewStateMachine(sessions, log, raw)

	tb, err := bot.NewTelebot(cfg.Bot, log)
	if err != nil {
		return err
	}
	checker.AddCheck("telegram", health.NewTelegramChecker(tb))

	giftClient := gifts.NewClient(tb, log)
	balances := balance.NewService(giftClient, cache.New(cacheStore, "balance"), apperrors.NewCircuitBreaker(), log)
	menus := menu.NewService(tb, balances, cache.New(cacheStore, "menu"), translations, log)

	var runs wizard.RunRecorder
	var historySource handlers.HistorySource
	if history != nil {
		runs = history
		historySource = history
	}

	service, err := wizard.NewService(wizard.Dependencies{
		Machine:      machine,
		Catalog:      giftClient,
		Loop:         wizard.NewPurchaseLoop(giftClient, log, wizard.WithDelay(cfg.Purchase.Delay)),
		Balance:      balances,
		Menu:         menus,
		Runs:         runs,
		Translations: translations,
		Filter: domain.CatalogFilter{
			MinPrice:         cfg.Catalog.MinPrice,
			MaxPrice:         cfg.Catalog.MaxPrice,
			MinSupply:        cfg.Catalog.MinSupply,
			MaxSupply:        cfg.Catalog.MaxSupply,
			IncludeUnlimited: cfg.Catalog.IncludeUnlimited,
		},
		Log: log,
	})
	if err != nil {
		return err
	}

	var idemStore idempotency.Store
	memIdem := idempotency.NewMemoryStore()
	idemStore = memIdem
	var redisLimiter ratelimit.Limiter
	if raw != nil {
		idemStore = idempotency.NewRedisStore(raw, log)
		redisLimiter = ratelimit.NewRedisLimiter(raw, log)
	}
	memLimiter := ratelimit.NewMemoryLimiter()
	limiter := ratelimit.NewAdaptiveLimiter(redisLimiter, memLimiter, log)

	app := bot.New(tb, bot.Dependencies{
		Wizard:       service,
		Menu:         menus,
		History:      historySource,
		Translations: translations,
		ErrHandler:   apperrors.NewHandler(log, cfg.Sentry.Enabled),
		Idempotency:  idempotency.NewManager(idemStore, log),
		RateLimit:    middleware.NewRateLimitMiddleware(limiter, ratelimit.NewRules(cfg.RateLimit), translations, log),
		InFlight:     inflight,
		Log:          log,
	})

	go state.NewCleaner(machine, log, cfg.Session.TTL, cfg.Session.CleanupInterval).Run(ctx)
	go ratelimit.NewCleaner(raw, memLimiter, log, cfg.Session.CleanupInterval, 2*cfg.RateLimit.Window).Run(ctx)
	go idempotency.NewCleaner(raw, memIdem, log, time.Hour, middleware.IdempotencyTTL+time.Hour).Run(ctx)
	go metrics.NewStateCollector(machine).Run(ctx)

	if err := balances.Refresh(ctx); err != nil {
		log.Warn("initial balance refresh failed", slog.Any("error", err))
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	checker.Register(mux)
	httpServer := graceful.NewServer(log, ":"+cfg.Server.HTTPPort, logger.Middleware(middleware.New(log)(mux)), cfg.Server.ShutdownTimeout)

	httpErr := make(chan error, 1)
	go func() { httpErr <- httpServer.ListenAndServe(ctx) }()

	go app.Start()

	shutdown.Register("telegram", func(context.Context) error {
		app.Stop()
		return nil
	})
	shutdown.Register("in-flight handlers", inflight.Wait)
	if db != nil {
		shutdown.Register("postgres", func(context.Context) error { return db.Close() })
	}
	if rc != nil {
		shutdown.Register("redis", func(context.Context) error { return rc.Close() })
	}

	select {
	case <-ctx.Done():
	case err := <-httpErr:
		if err != nil {
			log.Error("http server stopped", slog.Any("error", err))
		}
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	return shutdown.Execute(shutdownCtx)
}

func loadTranslations(cfg config.I18nConfig) (*i18n.Manager, error) {
	if cfg.Dir != "" {
		return i18n.LoadFromDir(cfg.Dir, cfg.DefaultLang)
	}
	return i18n.Load(cfg.DefaultLang)
}
