package cli

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	v1 "github.com/repik/lavanderia/internal/api/v1"
	"github.com/repik/lavanderia/internal/auth"
	"github.com/repik/lavanderia/internal/clients"
	"github.com/repik/lavanderia/internal/config"
	"github.com/repik/lavanderia/internal/domain"
	"github.com/repik/lavanderia/internal/notify"
	notifyamqp "github.com/repik/lavanderia/internal/notify/amqp"
	"github.com/repik/lavanderia/internal/orders"
	"github.com/repik/lavanderia/internal/reports"
	"github.com/repik/lavanderia/internal/server"
	"github.com/repik/lavanderia/internal/store/memory"
	"github.com/repik/lavanderia/internal/store/postgres"
	redisstore "github.com/repik/lavanderia/internal/store/redis"
)

const shutdownTimeout = 10 * time.Second

type serveOptions struct {
	memory bool
	seed   bool
}

func newServeCmd() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the HTTP API until SIGINT or SIGTERM.

With --memory all data lives in process memory and is lost on exit; no
PostgreSQL is needed. Combine with --seed to start with the demo tenant.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().BoolVar(&opts.memory, "memory", false, "keep data in memory instead of PostgreSQL")
	cmd.Flags().BoolVar(&opts.seed, "seed", false, "load demo data on start (memory store only)")
	return cmd
}

// dataStore is the store plus the health probe the server needs.
type dataStore interface {
	domain.Store
	v1.Pinger
}

func runServe(ctx context.Context, opts serveOptions) error {
	if opts.seed && !opts.memory {
		return errors.New("serve: --seed requires --memory; run the seed command against PostgreSQL")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	loc, err := cfg.Server.Location()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var store dataStore
	if opts.memory {
		log.Warn().Msg("using in-memory store, data is lost on exit")
		store = memory.New()
	} else {
		if cfg.Database.MaxConns > math.MaxInt32 {
			return fmt.Errorf("database max_conns %d out of int32 range", cfg.Database.MaxConns)
		}
		pg, pgErr := postgres.New(ctx, cfg.Database.DSN(), int32(cfg.Database.MaxConns)) //nolint:gosec // bounds checked above
		if pgErr != nil {
			return pgErr
		}
		defer pg.Close()
		store = pg
	}

	// Redis is optional; without it order events and /ws/orders are off.
	var (
		pubsub    *redisstore.PubSub
		publisher orders.PubSubPublisher
	)
	if cfg.Redis.Enabled() {
		pubsub, err = redisstore.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return err
		}
		defer pubsub.Close()
		publisher = pubsub
	}

	channels := notify.NewRegistry()
	channels.Register(notify.NewLogChannel())
	if cfg.AMQP.Enabled() {
		amqpPub, amqpErr := notifyamqp.Dial(cfg.AMQP.URL, cfg.AMQP.Exchange)
		if amqpErr != nil {
			return amqpErr
		}
		defer amqpPub.Close()
		channels.Register(amqpPub)
		log.Info().Str("exchange", cfg.AMQP.Exchange).Msg("amqp notifications enabled")
	}
	notifier := notify.New(channels)

	authSvc := auth.NewService(store, cfg.JWT.Secret, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)
	orderSvc := orders.NewService(store, notifier, publisher)
	// Pending ready notifications finish before the channels close.
	defer orderSvc.Wait()

	if opts.seed {
		if err := seedDemo(ctx, store, notifier); err != nil {
			return err
		}
	}

	srv := server.New(ctx, cfg, store, pubsub, server.Services{
		Auth:    authSvc,
		Orders:  orderSvc,
		Clients: clients.NewRegistry(store),
		Reports: reports.NewService(store.Orders(), loc),
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("starting server")
		errCh <- srv.Start(ctx)
	}()

	// Block until shutdown signal or listener failure.
	select {
	case <-ctx.Done():
	case startErr := <-errCh:
		if startErr != nil {
			return startErr
		}
	}
	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	log.Info().Msg("stopped")
	return nil
}
