// Command server runs the name registry service.
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

	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	accesshandler "namemint/internal/access/handler"
	accessservice "namemint/internal/access/service"
	accessstore "namemint/internal/access/store"
	contenthandler "namemint/internal/content/handler"
	contentservice "namemint/internal/content/service"
	contentstore "namemint/internal/content/store"
	"namemint/internal/ledger"
	migrationhandler "namemint/internal/migration/handler"
	migrationmodels "namemint/internal/migration/models"
	migrationservice "namemint/internal/migration/service"
	"namemint/internal/platform/config"
	"namemint/internal/platform/httpserver"
	"namemint/internal/platform/logger"
	"namemint/internal/platform/metrics"
	"namemint/internal/platform/middleware"
	"namemint/internal/platform/redis"
	reghandler "namemint/internal/registration/handler"
	regservice "namemint/internal/registration/service"
	regstore "namemint/internal/registration/store"
	seasoncache "namemint/internal/season/cache"
	seasonhandler "namemint/internal/season/handler"
	seasonservice "namemint/internal/season/service"
	seasonstore "namemint/internal/season/store"
	transport "namemint/internal/transport/http"
	treasuryhandler "namemint/internal/treasury/handler"
	treasuryservice "namemint/internal/treasury/service"
	audit "namemint/pkg/platform/audit"
	auditkafka "namemint/pkg/platform/audit/kafka"
	"namemint/pkg/platform/audit/publisher"
	auditmemory "namemint/pkg/platform/audit/store/memory"
	auditpostgres "namemint/pkg/platform/audit/store/postgres"
)

// Store bundles per domain: the services see narrow interfaces, the
// migration manager needs the snapshot surface of the same objects.
type roleStore interface {
	accessservice.RoleStore
	migrationservice.AccessState
}

type seasonStoreIface interface {
	seasonservice.SeasonStore
	migrationservice.SeasonState
}

type registryStoreIface interface {
	regservice.RegistryStore
	migrationservice.RegistryState
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.FromEnv()
	log := logger.New(cfg.Env)
	m := metrics.New()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		roles    roleStore
		seasons  seasonStoreIface
		registry registryStoreIface
		content  contentservice.ContentStore
		auditDB  audit.Store
	)
	if cfg.PostgresDSN != "" {
		db, err := sql.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			return fmt.Errorf("open postgres: %w", err)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			return fmt.Errorf("ping postgres: %w", err)
		}
		roles = accessstore.NewPostgres(db)
		seasons = seasonstore.NewPostgres(db)
		registry = regstore.NewPostgres(db)
		content = contentstore.NewPostgres(db)
		auditDB = auditpostgres.New(db)
		log.Info("using postgres stores")
	} else {
		roles = accessstore.NewInMemory()
		seasons = seasonstore.NewInMemory()
		registry = regstore.NewInMemory()
		content = contentstore.NewInMemory()
		auditDB = auditmemory.NewInMemoryStore()
		log.Info("using in-memory stores")
	}

	auditSink := auditDB
	if len(cfg.KafkaSeeds) > 0 {
		sink, err := auditkafka.New(ctx, cfg.KafkaSeeds, cfg.AuditTopic)
		if err != nil {
			return fmt.Errorf("kafka audit sink: %w", err)
		}
		defer sink.Close()
		auditSink = sink
		log.Info("audit events published to kafka", "topic", cfg.AuditTopic)
	}
	auditPub := publisher.NewPublisher(auditSink, publisher.WithAsyncBuffer(256))
	defer auditPub.Close()

	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	oracle := ledger.NewHTTPClient(cfg.Ledger)

	accessSvc := accessservice.New(roles,
		accessservice.WithLogger(log),
		accessservice.WithAuditPublisher(auditPub),
	)

	seasonOpts := []seasonservice.Option{
		seasonservice.WithLogger(log),
		seasonservice.WithAuditPublisher(auditPub),
		seasonservice.WithMetrics(m),
	}
	var infoCache *seasoncache.ActiveInfo
	if redisClient != nil {
		infoCache = seasoncache.NewActiveInfo(redisClient.Client)
		seasonOpts = append(seasonOpts, seasonservice.WithInfoCache(infoCache))
	}
	seasonSvc := seasonservice.New(seasons, registry, accessSvc, seasonOpts...)

	regOpts := []regservice.Option{
		regservice.WithLogger(log),
		regservice.WithAuditPublisher(auditPub),
		regservice.WithMetrics(m),
	}
	if infoCache != nil {
		regOpts = append(regOpts, regservice.WithCacheInvalidator(infoCache))
	}
	regSvc := regservice.New(registry, seasonSvc, accessSvc, oracle, cfg.Ledger.Account, regOpts...)

	treasurySvc := treasuryservice.New(oracle, accessSvc,
		cfg.Ledger.Account, cfg.Ledger.TransferFee, cfg.Ledger.BalanceRetries,
		treasuryservice.WithLogger(log),
		treasuryservice.WithAuditPublisher(auditPub),
	)

	migrationSvc := migrationservice.New(roles, seasons, registry, accessSvc,
		migrationmodels.Version{Major: 1},
		migrationservice.WithLogger(log),
		migrationservice.WithAuditPublisher(auditPub),
		migrationservice.WithMetrics(m),
	)

	contentSvc := contentservice.New(content, regSvc,
		contentservice.WithLogger(log),
		contentservice.WithAuditPublisher(auditPub),
	)

	router := transport.NewRouter(log,
		middleware.NewHMACValidator(cfg.JWTSigningKey),
		accesshandler.New(accessSvc, log),
		seasonhandler.New(seasonSvc, log),
		reghandler.New(regSvc, log),
		treasuryhandler.New(treasurySvc, log),
		migrationhandler.New(migrationSvc, log),
		contenthandler.New(contentSvc, log),
	)

	server := httpserver.New(cfg.Addr, router)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server listening", "addr", cfg.Addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("server stopped")
	return nil
}
