package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/bus-seat-reservation/internal/clock"
	"github.com/iliyamo/bus-seat-reservation/internal/config"
	"github.com/iliyamo/bus-seat-reservation/internal/database"
	"github.com/iliyamo/bus-seat-reservation/internal/handler"
	"github.com/iliyamo/bus-seat-reservation/internal/lock"
	"github.com/iliyamo/bus-seat-reservation/internal/logger"
	"github.com/iliyamo/bus-seat-reservation/internal/middleware"
	"github.com/iliyamo/bus-seat-reservation/internal/queue"
	"github.com/iliyamo/bus-seat-reservation/internal/repository"
	"github.com/iliyamo/bus-seat-reservation/internal/router"
	"github.com/iliyamo/bus-seat-reservation/internal/service"
)

const shutdownTimeout = 15 * time.Second

func main() {
	_ = godotenv.Load()

	log, err := logger.New(config.LoadLogConfig())
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	if err := run(log); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}

func run(log *zap.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	booking := config.LoadBookingConfig()
	events := config.LoadEventsConfig()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	if cfg.DBMigrate {
		if err := database.Migrate(ctx, db, database.MySQL); err != nil {
			return err
		}
		log.Info("schema migrated")
	}

	rdb, err := config.NewRedisClient(ctx, config.LoadRedisConfig())
	if err != nil {
		log.Warn("running without redis", zap.Error(err))
	} else {
		defer rdb.Close()
	}

	publisher, closePublisher, err := newPublisher(events, log)
	if err != nil {
		return err
	}
	defer closePublisher()

	var locker service.Locker
	if rdb != nil {
		locker = lock.NewRedisLock(rdb, "sweeper:lock", booking.SweepLockTTL)
	}

	clk := clock.Real()
	retry := repository.RetryPolicy{Attempts: booking.RetryAttempts, Backoff: booking.RetryBackoff}
	seats := repository.NewTripSeatRepo(db)
	tickets := repository.NewTicketRepo(db)

	ledger := service.NewLedger(seats, clk, log, retry)
	coord := service.NewCoordinator(db, ledger, tickets, service.NewFlatPricing(booking), publisher, clk, log,
		booking.HoldDuration, retry)
	gateway := service.NewGateway(db, ledger, tickets, publisher, clk, log, retry)
	sweeper := service.NewSweeper(db, ledger, tickets, locker, publisher, clk, log, service.SweeperConfig{
		Interval:  booking.SweepInterval,
		BatchSize: booking.SweepBatchSize,
		Retry:     retry,
	})
	inventory := service.NewInventory(db, repository.NewSeatRepo(db), seats, clk, log, retry)
	integrity := service.NewIntegrityChecker(repository.NewIntegrityRepo(db), log)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(log))

	router.Register(e, router.Handlers{
		Health:   handler.Health(db),
		Bookings: handler.NewBookingHandler(coord, log),
		Payments: handler.NewPaymentHandler(gateway, log),
		SeatMap:  handler.NewSeatMapHandler(ledger, log),
		Admin:    handler.NewAdminHandler(inventory, ledger, integrity, sweeper, log),
	}, router.Middleware{
		RateLimit: middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, log),
		Cache:     middleware.NewRedisCache(config.LoadCacheConfig(), rdb),
	}, cfg.JWTSecret)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		addr := ":" + cfg.Port
		log.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		return e.Shutdown(sctx)
	})
	g.Go(func() error { return sweeper.Run(gctx) })
	if events.Enabled && events.Driver == "amqp" {
		consumer := queue.NewAuditConsumer(events, log)
		g.Go(func() error { return consumer.Run(gctx) })
	}

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// newPublisher selects the event sink.  With events disabled bookings
// still work; nothing is published.
func newPublisher(cfg config.EventsConfig, log *zap.Logger) (service.EventPublisher, func(), error) {
	if !cfg.Enabled {
		return service.NopPublisher{}, func() {}, nil
	}
	switch cfg.Driver {
	case "amqp":
		p := queue.NewPublisher(cfg, log)
		return p, func() { _ = p.Close() }, nil
	case "kafka":
		p, err := queue.NewKafkaPublisher(cfg, log)
		if err != nil {
			return nil, nil, err
		}
		return p, func() { _ = p.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unknown EVENTS_DRIVER %q", cfg.Driver)
}
