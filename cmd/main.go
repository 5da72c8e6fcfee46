package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-carbon/internal/analytics"
	"github.com/ukydev/fleet-carbon/internal/catalog"
	"github.com/ukydev/fleet-carbon/internal/config"
	"github.com/ukydev/fleet-carbon/internal/db"
	"github.com/ukydev/fleet-carbon/internal/emissions"
	"github.com/ukydev/fleet-carbon/internal/events"
	"github.com/ukydev/fleet-carbon/internal/fleet"
	"github.com/ukydev/fleet-carbon/internal/handlers"
	"github.com/ukydev/fleet-carbon/internal/metrics"
	"github.com/ukydev/fleet-carbon/internal/middleware"
	"github.com/ukydev/fleet-carbon/internal/summary"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

// app wires the service components together.
type app struct {
	cfg      config.Config
	metrics  *metrics.Metrics
	catalog  *catalog.Catalog
	store    *fleet.Store
	analyzer *analytics.Analyzer
	session  *summary.Session
	limiter  *middleware.RateLimitMiddleware
	closers  []func()
}

func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	a := &app{cfg: cfg, metrics: metrics.New(), limiter: middleware.NewRateLimitMiddleware(cfg.TrustProxyHeaders)}

	factors := emissions.DefaultFactors()
	if cfg.EmissionFactors != "" {
		f, err := emissions.LoadFactors(cfg.EmissionFactors)
		if err != nil {
			return nil, err
		}
		factors = f
		log.WithField("path", cfg.EmissionFactors).Info("Loaded emission factors")
	}
	estimator := emissions.NewEstimator(factors)
	a.analyzer = analytics.New(estimator)

	slot, closeSlot, err := openSlot(cfg)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, closeSlot)

	var publisher events.Publisher = events.Nop{}
	if cfg.MQTTBroker != "" {
		p, client, err := events.ConnectMQTT(cfg.MQTTBroker, "", cfg.MQTTTopic)
		if err != nil {
			a.Close()
			return nil, err
		}
		publisher = p
		a.closers = append(a.closers, func() { client.Disconnect(250) })
		log.WithFields(log.Fields{"broker": cfg.MQTTBroker, "topic": cfg.MQTTTopic}).Info("Connected to MQTT broker")
	}

	a.store = fleet.NewStore(slot,
		fleet.WithEstimator(estimator),
		fleet.WithPublisher(publisher),
		fleet.WithObserver(func(size int) { a.metrics.FleetSize.Set(float64(size)) }),
	)
	a.metrics.FleetSize.Set(float64(len(a.store.Load(ctx))))

	// A catalog that fails to load is reported per request, not at startup.
	a.catalog = catalog.New(catalog.NewSource(cfg.CatalogSource))
	_ = a.catalog.Load(ctx)

	client := summary.NewClient(summary.Config{
		APIKey:  cfg.OpenAIKey,
		BaseURL: cfg.OpenAIBaseURL,
		Model:   cfg.OpenAIModel,
		Timeout: cfg.AITimeout,
	})
	a.session = summary.NewSession(client, a.analyzer, func(outcome string, elapsed time.Duration) {
		a.metrics.SummaryRequests.WithLabelValues(outcome).Inc()
		a.metrics.SummaryLatency.Observe(elapsed.Seconds())
	})
	if cfg.OpenAIKey == "" {
		log.Warn("OPENAI_API_KEY is not set; AI summaries will fail")
	}

	return a, nil
}

// openSlot returns the configured storage backend and its cleanup function.
func openSlot(cfg config.Config) (db.Slot, func(), error) {
	switch cfg.FleetStore {
	case config.StoreMemory:
		return db.NewMemorySlot(), func() {}, nil
	case config.StoreFile:
		return db.NewFileSlot(cfg.FleetStorePath), func() {}, nil
	case config.StoreMongo:
		client, err := db.ConnectMongoURI(cfg.MongoURI)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
		}
		log.WithField("database", cfg.MongoDatabase).Info("Connected to MongoDB")
		coll := client.Database(cfg.MongoDatabase).Collection("slots")
		return db.NewMongoSlot(coll, db.FleetSlotName), func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = client.Disconnect(ctx)
		}, nil
	case config.StoreSQLite:
		slot, err := db.OpenSQLiteSlot(cfg.SQLitePath, db.FleetSlotName)
		if err != nil {
			return nil, nil, err
		}
		return slot, func() { _ = slot.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown fleet store %q", cfg.FleetStore)
	}
}

// routes builds the HTTP router.
func (a *app) routes() http.Handler {
	catalogHandler := handlers.NewCatalogHandler(a.catalog, a.metrics)
	fleetHandler := handlers.NewFleetHandler(a.store, a.catalog, a.analyzer, a.metrics)
	chartHandler := handlers.NewChartHandler(a.store, a.analyzer)
	summaryHandler := handlers.NewSummaryHandler(a.store, a.session)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.RequestLogger)
	r.Use(chimw.Recoverer)

	r.Get("/health", handlers.Health)
	r.Method(http.MethodGet, "/metrics", a.metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/catalog", catalogHandler.Status)
		r.Get("/catalog/search", catalogHandler.Search)

		r.Get("/fleet", fleetHandler.List)
		r.Post("/fleet", fleetHandler.Add)
		r.Get("/fleet/kpis", fleetHandler.KPIs)
		r.Get("/fleet/recent", fleetHandler.Recent)

		r.Method(http.MethodGet, "/charts", chartHandler)

		r.Method(http.MethodGet, "/summary", summaryHandler)
		r.With(a.limiter.RateLimit(a.cfg.RateLimitRequests, a.cfg.RateLimitWindow)).
			Post("/summary", summaryHandler.Generate)
	})
	return r
}

// Close releases storage and broker connections.
func (a *app) Close() {
	if a.session != nil {
		a.session.Reset()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func run(ctx context.Context, cfg config.Config) error {
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	srv := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        a.routes(),
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   cfg.AITimeout + 10*time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.WithFields(log.Fields{"port": cfg.Port, "store": cfg.FleetStore}).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Invalid configuration")
	}
	cfg.SetupLogging()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.WithError(err).Fatal("Server stopped")
	}
}
