package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/gemlab/certline/internal/certification"
	"github.com/gemlab/certline/internal/config"
	"github.com/gemlab/certline/internal/httpx"
	kafkax "github.com/gemlab/certline/internal/kafka"
	"github.com/gemlab/certline/internal/logging"
	"github.com/gemlab/certline/internal/postgres"
	"github.com/gemlab/certline/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logging.New(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Error("db connect", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := postgres.Migrate(ctx, db); err != nil {
		log.Error("db migrate", "error", err)
		os.Exit(1)
	}

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producers, one per lifecycle topic
	pCreated := kafkax.NewProducer(cfg.KafkaBrokers, certification.TopicOrderCreated, 1024, log)
	pCreated.Start(ctx)
	pAdvanced := kafkax.NewProducer(cfg.KafkaBrokers, certification.TopicStageAdvanced, 1024, log)
	pAdvanced.Start(ctx)
	pFinished := kafkax.NewProducer(cfg.KafkaBrokers, certification.TopicOrderFinished, 1024, log)
	pFinished.Start(ctx)

	// Core + handlers
	times := &certification.Durations{DB: db, Redis: rdb, Log: log}
	repo := &certification.Repo{DB: db, Times: times}

	router := httpx.NewRouter()
	oh := &httpx.OrdersHandler{
		Store:            repo,
		Redis:            rdb,
		ProducerCreated:  pCreated,
		ProducerAdvanced: pAdvanced,
		ProducerFinished: pFinished,
		Service:          cfg.ServiceName,
	}
	oh.Register(router)
	ch := &httpx.ConfigHandler{Times: times}
	ch.Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Info("HTTP listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("listen", "error", err)
			os.Exit(1)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)

	for _, p := range []*kafkax.Producer{pCreated, pAdvanced, pFinished} {
		p.Close()
	}
	cancel()
	for _, p := range []*kafkax.Producer{pCreated, pAdvanced, pFinished} {
		p.WaitClosed()
	}
}
