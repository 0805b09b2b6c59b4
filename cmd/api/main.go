package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/safar/merch-store/internal/cache"
	"github.com/safar/merch-store/internal/config"
	"github.com/safar/merch-store/internal/database"
	"github.com/safar/merch-store/internal/events"
	"github.com/safar/merch-store/internal/httpx"
	"github.com/safar/merch-store/internal/orders"
	"github.com/safar/merch-store/internal/store"
	"golang.org/x/sync/errgroup"
)

const serviceName = "merch-store"

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLogger := zerolog.New(os.Stderr)
		bootLogger.Fatal().Err(err).Msg("load config")
	}

	logger := config.NewLogger(cfg.Log)

	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}

func run(cfg *config.Config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewConnection(&cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()
	logger.Info().Msg("connected to database")

	opts := []orders.Option{orders.WithLogger(logger.With().Str("component", "orders").Logger())}

	if cfg.Redis.Enabled {
		rdb := cache.New(cfg.Redis.Addr)
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			// the service works without the cache, only slower
			logger.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis unreachable at startup")
		}
		opts = append(opts, orders.WithStatusCache(cache.NewStatusCache(rdb, cfg.Redis.StatusTTL)))
	}

	var producer *events.Producer
	if cfg.Kafka.Enabled {
		producer = events.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, serviceName, 1024,
			logger.With().Str("component", "events").Logger())
		producer.Start(ctx)
		opts = append(opts, orders.WithEventPublisher(producer))
	}

	svc := orders.NewService(db, &store.Catalog{DB: db}, opts...)

	router := httpx.NewRouter(svc, httpx.RouterConfig{
		Logger:         logger.With().Str("component", "http").Logger(),
		RequestTimeout: cfg.Server.WriteTimeout,
		OrderRateLimit: cfg.Server.OrderRateLimit,
		OrderRateBurst: cfg.Server.OrderRateBurst,
		Ready:          db.PingContext,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info().Str("addr", server.Addr).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		err := server.Shutdown(shutdownCtx)

		// flush queued events once no handler can publish any more
		if producer != nil {
			producer.Close()
		}
		return err
	})

	return g.Wait()
}
