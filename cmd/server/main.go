package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"lifeconnect/internal/events/outbox"
	"lifeconnect/internal/events/relay"
	"lifeconnect/internal/platform/config"
	"lifeconnect/internal/platform/httpserver"
	"lifeconnect/internal/platform/kafka"
	"lifeconnect/internal/platform/logger"
	"lifeconnect/internal/platform/metrics"
	"lifeconnect/internal/platform/postgres"
	redisclient "lifeconnect/internal/platform/redis"
	"lifeconnect/pkg/platform/httputil"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

type infra struct {
	db       *postgres.DB
	redis    *redisclient.Client
	producer *kafka.Producer
}

func (i infra) close() {
	if i.producer != nil {
		i.producer.Close()
	}
	if i.redis != nil {
		_ = i.redis.Close()
	}
	if i.db != nil {
		i.db.Close()
	}
}

func connect(ctx context.Context, cfg config.Server, log *slog.Logger) (infra, error) {
	var (
		in  infra
		err error
	)
	if in.db, err = postgres.Connect(ctx, cfg.Postgres); err != nil {
		return in, err
	}
	if in.db != nil {
		if err := in.db.Migrate(ctx); err != nil {
			in.close()
			return in, err
		}
		log.Info("postgres connected, migrations applied")
	} else {
		log.Warn("DATABASE_URL not set, using in-memory stores")
	}
	if in.redis, err = redisclient.New(ctx, cfg.Redis); err != nil {
		in.close()
		return in, err
	}
	if in.producer, err = kafka.NewProducer(cfg.Kafka); err != nil {
		in.close()
		return in, err
	}
	return in, nil
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	in, err := connect(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer in.close()

	m := metrics.New()
	a := newApp(cfg, in, log, m)

	srv := httpserver.New(cfg.Addr, a.router)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting lifeconnect ledger", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error { return a.sweep.Run(gctx) })

	if a.outbox != nil {
		opts := []relay.Option{
			relay.WithBatchSize(cfg.Workers.OutboxBatchSize),
			relay.WithFanout(a.fanout),
		}
		if in.producer != nil {
			opts = append(opts, relay.WithProducer(in.producer))
		}
		listener, err := outbox.NewListener(cfg.Postgres.URL, log)
		if err != nil {
			log.Warn("outbox listener unavailable, relay will poll only", "error", err)
		} else {
			defer listener.Close()
			opts = append(opts, relay.WithWakeup(listener.C()))
		}
		rl := relay.New(a.outbox, cfg.Workers.OutboxPollInterval, log, m, opts...)
		g.Go(func() error { return rl.Run(gctx) })
	}

	return g.Wait()
}

type healthChecker interface {
	Health(ctx context.Context) error
}

func healthHandler(in infra) http.HandlerFunc {
	checks := map[string]healthChecker{}
	if in.db != nil {
		checks["postgres"] = in.db
	}
	if in.redis != nil {
		checks["redis"] = in.redis
	}
	if in.producer != nil {
		checks["kafka"] = in.producer
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		body := map[string]string{"status": "ok"}
		for name, c := range checks {
			if err := c.Health(ctx); err != nil {
				status = http.StatusServiceUnavailable
				body["status"] = "degraded"
				body[name] = err.Error()
				continue
			}
			body[name] = "ok"
		}
		httputil.WriteJSON(w, status, body)
	}
}
