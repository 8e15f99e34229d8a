package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/gemlab/certline/internal/certification"
	"github.com/gemlab/certline/internal/config"
	kafkax "github.com/gemlab/certline/internal/kafka"
	"github.com/gemlab/certline/internal/logging"
	"github.com/gemlab/certline/internal/monitor"
	"github.com/gemlab/certline/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logging.New(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	svc := &monitor.Service{
		Redis:       rdb,
		Log:         log,
		ServiceName: cfg.ServiceName + "-monitor",
	}

	group := getenv("MONITOR_GROUP", "certline-monitor")
	workers := mustAtoi(os.Getenv("MONITOR_WORKERS"), "4")
	topics := []string{
		certification.TopicOrderCreated,
		certification.TopicStageAdvanced,
		certification.TopicOrderFinished,
	}
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, group, topics, workers, log)

	go func() {
		log.Info("monitor consumer started", "group", group, "workers", workers)
		if err := cons.Start(ctx, svc.HandleEvent); err != nil {
			log.Error("consumer exit", "error", err)
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	log.Info("shutting down monitor")
	cancel()
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func mustAtoi(s, def string) int {
	if s == "" {
		s = def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return 1
	}
	return i
}
