package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/iliyamo/event-ticket-booking/internal/booking"
	"github.com/iliyamo/event-ticket-booking/internal/config"
	"github.com/iliyamo/event-ticket-booking/internal/database"
	"github.com/iliyamo/event-ticket-booking/internal/handler"
	"github.com/iliyamo/event-ticket-booking/internal/inventory"
	"github.com/iliyamo/event-ticket-booking/internal/logger"
	"github.com/iliyamo/event-ticket-booking/internal/middleware"
	"github.com/iliyamo/event-ticket-booking/internal/queue"
	"github.com/iliyamo/event-ticket-booking/internal/ratelimit"
	"github.com/iliyamo/event-ticket-booking/internal/repository"
	"github.com/iliyamo/event-ticket-booking/internal/router"
)

func main() {
	_ = godotenv.Load() // .env is optional; real env vars win

	cfg, err := config.Load()
	if err != nil {
		// logger depends on cfg.Env, so fall back to a production logger here
		zap.Must(zap.NewProduction()).Fatal("load config", zap.Error(err))
	}

	log, err := logger.Init(cfg.Env)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(database.Options{
		User: cfg.DBUser,
		Pass: cfg.DBPass,
		Host: cfg.DBHost,
		Port: cfg.DBPort,
		Name: cfg.DBName,
	})
	if err != nil {
		log.Fatal("connect mysql", zap.Error(err))
	}
	defer db.Close()

	if cfg.DBMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			log.Fatal("migrate schema", zap.Error(err))
		}
		log.Info("schema applied")
	}

	rdb := config.NewRedisClient(ctx)
	if rdb == nil {
		log.Warn("redis unavailable, using in-process rate limiting and no response cache")
	} else {
		defer rdb.Close()
	}

	events := repository.NewEventRepo(db)
	bookings := repository.NewBookingRepo(db)
	users := repository.NewUserRepo(db)

	var ledger inventory.Ledger = events
	if cfg.LedgerMode == config.LedgerInProcess {
		ledger = inventory.NewLockingLedger(events)
	}
	log.Info("inventory ledger", zap.String("mode", string(cfg.LedgerMode)))

	deps := booking.Deps{
		Limiter:  ratelimit.New(config.LoadRateLimitConfig(), rdb, log),
		Ledger:   ledger,
		Events:   events,
		Bookings: bookings,
		Log:      log,
	}

	qcfg := config.LoadQueueConfig()
	if qcfg.Enabled {
		deps.Notifier = queue.NewPublisher(qcfg, log)
		if qcfg.ConsumerEnabled {
			consumer := queue.NewConsumer(qcfg, log)
			go func() {
				if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					log.Error("booking event consumer stopped", zap.Error(err))
				}
			}()
		}
	}
	svc := booking.NewService(deps)

	cacheCfg := config.LoadCacheConfig()
	purge := func(ctx context.Context) error {
		return middleware.PurgeCache(ctx, rdb, cacheCfg.Prefix)
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(log))

	router.RegisterRoutes(e, db)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users), cfg.JWTSecret)
	eventHandler := handler.NewEventHandler(events, purge, cfg.RequestTimeout)
	router.RegisterPublic(e, eventHandler, middleware.NewRedisCache(cacheCfg, rdb, log))
	router.RegisterBooking(e, handler.NewBookingHandler(svc, cfg.RequestTimeout), cfg.JWTSecret)
	router.RegisterAdmin(e, eventHandler, cfg.JWTSecret)

	addr := ":" + cfg.Port
	go func() {
		log.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown", zap.Error(err))
	}
}
