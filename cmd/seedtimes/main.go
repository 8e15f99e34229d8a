// seedtimes fills the duration table with every (item type, certificate
// type) combination so new installations schedule from configured values
// instead of the fallback. Existing rows are overwritten; run it once per
// environment, or again to reset.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/joho/godotenv"

	"github.com/gemlab/certline/internal/certification"
	"github.com/gemlab/certline/internal/config"
	"github.com/gemlab/certline/internal/logging"
	"github.com/gemlab/certline/internal/postgres"
	"github.com/gemlab/certline/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	intake := flag.Int64("intake", 28800, "intake seconds per item")
	photo := flag.Int64("photo", 14400, "photography seconds per item")
	review := flag.Int64("review", 86400, "review seconds per item")
	printing := flag.Int64("print", 7200, "print seconds per item")
	flag.Parse()

	cfg := config.Load()
	log := logging.New(cfg.LogLevel, cfg.LogFormat)
	ctx := context.Background()

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

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	times := &certification.Durations{DB: db, Redis: rdb, Log: log}

	created := 0
	for _, itemType := range certification.ItemTypes {
		for _, certType := range certification.CertificateTypes {
			row := certification.DurationConfig{
				ItemType:        itemType,
				CertificateType: certType,
				IntakeSeconds:   intake,
				PhotoSeconds:    photo,
				ReviewSeconds:   review,
				PrintSeconds:    printing,
			}
			if err := times.Set(ctx, &row); err != nil {
				log.Error("seed row", "item_type", string(itemType), "certificate_type", string(certType), "error", err)
				os.Exit(1)
			}
			created++
			log.Info("seeded", "item_type", string(itemType), "certificate_type", string(certType))
		}
	}
	log.Info("seeding done", "rows", created)
}
