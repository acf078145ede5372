package main

import (
	"context"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/hackgods/clinic-payment-ledger/internal/appointment"
	"github.com/hackgods/clinic-payment-ledger/internal/config"
	"github.com/hackgods/clinic-payment-ledger/internal/db"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}
	if cfg.PostgresDSN == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	psychologists := getInt("SEED_PSYCHOLOGISTS", 20)
	appointmentsEach := getInt("SEED_APPOINTMENTS_EACH", 40)

	faker := gofakeit.New(time.Now().UnixNano())
	repo := appointment.NewPgRepository(pool)

	if err := appointment.Seed(ctx, repo, faker, psychologists, appointmentsEach, time.Now()); err != nil {
		log.Fatalf("seed: %v", err)
	}
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
		log.Printf("invalid %s=%q, using default %d", key, v, def)
	}
	return def
}
