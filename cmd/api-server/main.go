package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/hackgods/clinic-payment-ledger/internal/api"
	"github.com/hackgods/clinic-payment-ledger/internal/appointment"
	"github.com/hackgods/clinic-payment-ledger/internal/config"
	"github.com/hackgods/clinic-payment-ledger/internal/db"
	"github.com/hackgods/clinic-payment-ledger/internal/metrics"
	"github.com/hackgods/clinic-payment-ledger/internal/payment"
	redisclient "github.com/hackgods/clinic-payment-ledger/internal/redis"
)

var version = "dev"

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("api-server starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	log.Printf("running in env=%s http_port=%s storage=%s strict_transitions=%t",
		cfg.Env, cfg.HTTPPort, cfg.Storage, cfg.StrictTransitions)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.Init(prometheus.DefaultRegisterer)

	var (
		pgPool     *pgxpool.Pool
		apptRepo   appointment.Repository
		ledgerRepo payment.Repository
	)
	switch cfg.Storage {
	case config.StoragePostgres:
		pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
		pgPool, err = db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
		if err == nil {
			err = db.Migrate(pgCtx, pgPool)
		}
		cancelPg()
		if err != nil {
			log.Fatalf("postgres setup error: %v", err)
		}
		defer pgPool.Close()
		log.Println("connected to Postgres")

		apptRepo = appointment.NewPgRepository(pgPool)
		ledgerRepo = payment.NewPgRepository(pgPool)
	default:
		log.Println("using in-memory storage")
		apptRepo = appointment.NewMemoryRepository()
		ledgerRepo = payment.NewMemoryRepository()
	}

	var (
		rdb      *redis.Client
		locker   redisclient.Locker
		notifier payment.Notifier = payment.LogNotifier{}
	)
	if cfg.RedisDisabled {
		log.Println("redis disabled, using in-process locks")
		locker = redisclient.NewLocalLocker()
	} else {
		rdb, err = redisclient.NewRedisClient(rootCtx, cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
		if err != nil {
			log.Fatalf("redis connection error: %v", err)
		}
		defer func() {
			if err := rdb.Close(); err != nil {
				log.Printf("error closing redis: %v", err)
			}
		}()
		log.Println("connected to Redis")

		locker = redisclient.NewRedisLocker(rdb, cfg.LockTTL)
		notifier = payment.MultiNotifier{
			payment.LogNotifier{},
			payment.NewPublishingNotifier(redisclient.NewPublisher(rdb, cfg.NotifyChannel)),
		}
	}

	appts := appointment.NewService(apptRepo, cfg.DefaultCommission)
	ledger := payment.NewLedger(ledgerRepo, appts, appts, locker, notifier, payment.Options{
		StrictTransitions: cfg.StrictTransitions,
		RecomputeOnRead:   cfg.Storage == config.StoragePostgres,
	})

	if cfg.SeedDemoData {
		faker := gofakeit.New(time.Now().UnixNano())
		if err := appointment.Seed(rootCtx, apptRepo, faker, 5, 12, time.Now()); err != nil {
			log.Fatalf("seed demo data: %v", err)
		}
	}

	if _, err := ledger.RefreshDashboard(rootCtx); err != nil {
		log.Fatalf("initial dashboard refresh: %v", err)
	}

	srv := &http.Server{
		Addr: ":" + cfg.HTTPPort,
		Handler: api.NewRouter(api.RouterConfig{
			Appointments: appts,
			Ledger:       ledger,
			PgPool:       pgPool,
			Redis:        rdb,
			Env:          cfg.Env,
			Version:      version,
			CORSOrigins:  cfg.CORSOrigins,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %v", err)
		}
	}()

	<-rootCtx.Done()

	log.Println("shutting down api-server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
}
