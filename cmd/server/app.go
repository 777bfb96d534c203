package main

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"lifeconnect/internal/admin"
	custodyHandler "lifeconnect/internal/custody/handler"
	custodyService "lifeconnect/internal/custody/service"
	donorHandler "lifeconnect/internal/donor/handler"
	donorService "lifeconnect/internal/donor/service"
	"lifeconnect/internal/events"
	eventsHandler "lifeconnect/internal/events/handler"
	"lifeconnect/internal/events/outbox"
	jwttoken "lifeconnect/internal/jwt_token"
	organHandler "lifeconnect/internal/organ/handler"
	organService "lifeconnect/internal/organ/service"
	"lifeconnect/internal/platform/config"
	"lifeconnect/internal/platform/metrics"
	"lifeconnect/internal/platform/middleware"
	recipientHandler "lifeconnect/internal/recipient/handler"
	recipientService "lifeconnect/internal/recipient/service"
	"lifeconnect/internal/stats"
	"lifeconnect/internal/sweeper"
	"lifeconnect/pkg/platform/circuit"
)

// app is everything run needs beyond the connections: the router and the
// background loops it starts.
type app struct {
	router http.Handler
	sweep  *sweeper.Sweeper
	outbox *outbox.Store
	fanout *events.Publisher
}

func newApp(cfg config.Server, in infra, log *slog.Logger, m *metrics.Metrics) *app {
	st := newStores(in.db)

	broker := events.NewBroker()
	live := []events.Sink{broker}
	if in.redis != nil {
		live = append(live, events.Guard(events.NewRedisSink(in.redis, cfg.Redis.ChannelPrefix),
			circuit.New("redis"), log, m))
	}

	// With Postgres every event is journaled in the mutation's transaction and
	// the relay feeds Kafka and the live sinks from the outbox. Without it the
	// live sinks are fed directly under the store lock.
	var (
		publisher   *events.Publisher
		fanout      *events.Publisher
		outboxStore *outbox.Store
	)
	if in.db != nil {
		outboxStore = outbox.New(in.db)
		publisher = events.NewJournaledPublisher(outboxStore, log, m)
		fanout = events.NewPublisher(log, m, live...)
	} else {
		if in.producer != nil {
			live = append(live, events.Guard(events.NewKafkaSink(in.producer), circuit.New("kafka"), log, m))
		}
		publisher = events.NewPublisher(log, m, live...)
	}

	donors := donorService.New(st.donors,
		donorService.WithLogger(log), donorService.WithEventPublisher(publisher), donorService.WithMetrics(m))
	recipients := recipientService.New(st.recipients,
		recipientService.WithLogger(log), recipientService.WithEventPublisher(publisher), recipientService.WithMetrics(m),
		recipientService.WithTransplantLookup(st.organs))
	organs := organService.New(st.organs, donors, recipients,
		organService.WithLogger(log), organService.WithEventPublisher(publisher), organService.WithMetrics(m))
	custody := custodyService.New(st.custody, organs,
		custodyService.WithLogger(log), custodyService.WithEventPublisher(publisher), custodyService.WithMetrics(m))
	sweep := sweeper.New(organs, cfg.Workers.ExpirySweepInterval, log, m)
	ledgerStats := stats.New(donors, recipients, organs, custody, broker, log, m)

	jwtValidator := jwttoken.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer)
	limiter := newRateLimiter(cfg.Limits, in.redis, log, m)

	r := chi.NewRouter()
	r.Use(middleware.Recovery(log))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Logger(log))
	r.Use(middleware.LatencyMiddleware(m))

	r.Get("/healthz", healthHandler(in))
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAdminToken(cfg.AdminTokenHash, log))
		admin.New(sweep, log).Register(r)
	})
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(jwtValidator, log))
		eventsHandler.New(broker, log).Register(r)
	})
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(jwtValidator, log))
		r.Use(limiter.Limit)
		r.Use(middleware.Timeout(cfg.TxTimeout))
		r.Use(middleware.ContentTypeJSON)
		donorHandler.New(donors, log).Register(r)
		recipientHandler.New(recipients, log).Register(r)
		organHandler.New(organs, log).Register(r)
		custodyHandler.New(custody, log).Register(r)
		stats.NewHandler(ledgerStats, log).Register(r)
	})

	return &app{router: r, sweep: sweep, outbox: outboxStore, fanout: fanout}
}
