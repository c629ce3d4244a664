// Command server wires the compliance pipeline and runs the HTTP API.
// Business logic lives in internal packages; this file is only assembly
// and lifecycle.
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

	"facade/internal/address"
	"facade/internal/audit"
	"facade/internal/cache"
	cachemetrics "facade/internal/cache/metrics"
	cachestore "facade/internal/cache/store"
	"facade/internal/compliance"
	"facade/internal/compliance/handler"
	compliancemetrics "facade/internal/compliance/metrics"
	"facade/internal/domain"
	httpapi "facade/internal/http"
	"facade/internal/platform/config"
	"facade/internal/platform/httpserver"
	"facade/internal/platform/kafka"
	"facade/internal/platform/logger"
	"facade/internal/platform/postgres"
	platformredis "facade/internal/platform/redis"
	"facade/internal/reconcile"
	"facade/internal/resolver"
	resolverstore "facade/internal/resolver/store"
	"facade/internal/scoring"
	"facade/internal/sources"
	"facade/internal/sources/demo"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New(logger.ParseLevel(cfg.LogLevel))

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Server, log *slog.Logger) error {
	ctx := context.Background()

	var (
		fetcher sources.Fetcher
		catalog config.SourceCatalog
	)
	if cfg.DemoMode {
		log.Warn("demo mode enabled, serving synthetic fixture data")
		fetcher = demo.NewFetcher()
		catalog = demo.Catalog()
	} else {
		fetcher = sources.NewHTTPFetcher()
		loaded, err := config.LoadCatalog(cfg.CatalogPath)
		if err != nil {
			return err
		}
		catalog = loaded
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return err
	}

	var snapshotStore cache.SnapshotStore
	if redisClient != nil {
		// Retain snapshots well past the freshness window so stale
		// fallback has something to serve.
		snapshotStore = cachestore.NewRedis(redisClient.Client, 48*time.Hour)
		defer redisClient.Close()
	} else {
		log.Warn("redis not configured, snapshots are in-memory only")
		snapshotStore = cachestore.NewMemory()
	}

	var identityStore resolver.IdentityStore
	if cfg.Postgres.DSN != "" {
		db, err := postgres.Open(cfg.Postgres.DSN)
		if err != nil {
			return err
		}
		defer db.Close()
		identityStore = resolverstore.NewPostgres(db)
	} else {
		log.Warn("postgres not configured, identities are in-memory only")
		identityStore = resolverstore.NewMemory()
	}

	// bgCtx governs background goroutines (audit delivery, verify sweep);
	// cancelled when run returns.
	bgCtx, stopBackground := context.WithCancel(ctx)
	defer stopBackground()

	producer, err := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
	if err != nil {
		return err
	}
	defer producer.Close()

	auditOpts := []audit.Option{}
	if producer != nil {
		outbox := make(chan audit.Event, 256)
		auditOpts = append(auditOpts, audit.WithOutbox(outbox))
		worker := audit.NewWorker(producer, outbox, log)
		go func() {
			if err := worker.Run(bgCtx); err != nil && !errors.Is(err, context.Canceled) {
				log.Warn("audit delivery worker stopped", "error", err)
			}
		}()
	}
	auditor := audit.NewPublisher(audit.NewMemoryStore(), log, auditOpts...)

	normalizer := address.New(catalog.ZIPBoroughs)
	registry := resolver.NewHTTPRegistry(fetcher, registryEndpoint(cfg))
	resolve := resolver.New(registry, identityStore, log)

	adapters := []sources.Adapter{
		sources.NewHousingAdapter(fetcher, adapterConfig(catalog, domain.SourceHousing), log),
		sources.NewPermitsAdapter(fetcher, adapterConfig(catalog, domain.SourcePermits), log),
		sources.NewSanitationAdapter(fetcher, adapterConfig(catalog, domain.SourceSanitation), log),
	}

	cacheOpts := []cache.Option{cache.WithMetrics(cachemetrics.New())}
	if cfg.StaleRevalidate {
		cacheOpts = append(cacheOpts, cache.WithStaleRevalidate())
	}
	snapshotCache := cache.New(snapshotStore, cfg.SnapshotTTL, log, cacheOpts...)

	service := compliance.New(
		normalizer,
		resolve,
		adapters,
		snapshotCache,
		reconcile.New(scoring.New()),
		auditor,
		log,
		compliance.WithMetrics(compliancemetrics.New()),
		compliance.WithWorkers(cfg.RefreshWorkers),
	)

	router := httpapi.NewRouter(httpapi.Config{
		Handler:     handler.New(service, log),
		AdminJWTKey: cfg.AdminJWTKey,
		Logger:      log,
		Checks: map[string]httpapi.HealthChecker{
			"redis": redisHealth(redisClient),
		},
	})

	srv := httpserver.New(cfg.Addr, router)

	if cfg.VerifyInterval > 0 {
		go verifySweep(bgCtx, service, cfg.VerifyInterval, cfg.VerifySample, log)
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.Addr, "demo_mode", cfg.DemoMode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		log.Info("shutting down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// verifySweep periodically re-checks cached identities against the
// property registry. Mismatches are audited, not evicted; an operator
// follows up with a force refresh.
func verifySweep(ctx context.Context, service *compliance.Service, interval time.Duration, sample int, log *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			mismatches, err := service.VerifyIdentities(ctx, sample)
			if err != nil {
				log.WarnContext(ctx, "identity verification sweep failed", "error", err)
				continue
			}
			if len(mismatches) > 0 {
				log.WarnContext(ctx, "identity verification found mismatches", "count", len(mismatches))
			}
		}
	}
}

// registryEndpoint returns the property registry endpoint. In demo mode it
// is the fixture endpoint; otherwise it comes from the environment so the
// registry can live on a different host than the violation sources.
func registryEndpoint(cfg config.Server) string {
	if cfg.DemoMode {
		return demo.RegistryEndpoint
	}
	if v := os.Getenv("FACADE_REGISTRY_ENDPOINT"); v != "" {
		return v
	}
	return "https://data.cityofnewyork.us/resource/bc8t-ecyu.json"
}

func adapterConfig(catalog config.SourceCatalog, system domain.SourceSystem) sources.Config {
	sc := catalog.Sources[system]
	return sources.Config{
		Endpoint: sc.Endpoint,
		PageSize: sc.PageSize,
		MaxRows:  sc.MaxRows,
		Timeout:  time.Duration(sc.Timeout),
	}
}

// redisHealth adapts the optional redis client to the health interface
// without handing the router a typed-nil.
func redisHealth(client *platformredis.Client) httpapi.HealthChecker {
	if client == nil {
		return nil
	}
	return client
}
