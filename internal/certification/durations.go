package certification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/gemlab/certline/internal/redisx"
)

// Per-stage bounds enforced on configuration writes: one minute to 30 days.
const (
	MinStageSeconds int64 = 60
	MaxStageSeconds int64 = 2592000
)

// Durations serves the duration table. Reads go cache-aside through Redis
// (whole rows, so a multi-stage sum never mixes cached and fresh values);
// writes upsert Postgres and delete the cached row. Missing configuration is
// an expected branch, answered with DefaultStageSeconds and counted.
type Durations struct {
	DB    *pgxpool.Pool
	Redis *redis.Client
	Log   *slog.Logger

	misses atomic.Int64
}

// Misses reports how many lookups fell back to the default because the row
// or field was unconfigured. A growing count means the table needs seeding.
func (d *Durations) Misses() int64 { return d.misses.Load() }

func (d *Durations) logger() *slog.Logger {
	if d.Log != nil {
		return d.Log
	}
	return slog.Default()
}

// Row fetches one config row, nil when absent. Alias labels normalize to the
// canonical key first.
func (d *Durations) Row(ctx context.Context, itemType ItemType, certType CertificateType) (*DurationConfig, error) {
	itemType = NormalizeItemType(string(itemType))

	key := fmt.Sprintf(redisx.KeyStageTimes, itemType, certType)
	if d.Redis != nil {
		if raw, err := d.Redis.Get(ctx, key).Result(); err == nil && raw != "" {
			var row DurationConfig
			if err := json.Unmarshal([]byte(raw), &row); err == nil {
				return &row, nil
			}
		}
	}

	row := DurationConfig{ItemType: itemType, CertificateType: certType}
	err := d.DB.QueryRow(ctx, `
		SELECT intake_seconds, photo_seconds, review_seconds, print_seconds, updated_at
		FROM stage_times WHERE item_type=$1 AND certificate_type=$2`,
		string(itemType), string(certType),
	).Scan(&row.IntakeSeconds, &row.PhotoSeconds, &row.ReviewSeconds, &row.PrintSeconds, &row.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load stage times %s/%s: %w", itemType, certType, err)
	}

	if d.Redis != nil {
		if b, err := json.Marshal(row); err == nil {
			_ = d.Redis.Set(ctx, key, b, redisx.TTLStageTimes).Err()
		}
	}
	return &row, nil
}

// StageSeconds implements DurationSource. Missing rows and null fields fall
// back to DefaultStageSeconds; only infrastructure failures error.
func (d *Durations) StageSeconds(ctx context.Context, itemType ItemType, certType CertificateType, stage Stage) (int64, error) {
	row, err := d.Row(ctx, itemType, certType)
	if err != nil {
		return 0, err
	}
	if row == nil {
		d.recordMiss(itemType, certType, stage)
		return DefaultStageSeconds, nil
	}
	if v := row.StageSeconds(stage); v != nil {
		return *v, nil
	}
	d.recordMiss(itemType, certType, stage)
	return DefaultStageSeconds, nil
}

// PipelineSeconds implements DurationSource: the four work stages summed
// from a single row fetch.
func (d *Durations) PipelineSeconds(ctx context.Context, itemType ItemType, certType CertificateType) (int64, error) {
	row, err := d.Row(ctx, itemType, certType)
	if err != nil {
		return 0, err
	}
	if row == nil {
		d.recordMiss(itemType, certType, "")
		return int64(len(WorkStages)) * DefaultStageSeconds, nil
	}
	var total int64
	for _, st := range WorkStages {
		if v := row.StageSeconds(st); v != nil {
			total += *v
		} else {
			d.recordMiss(itemType, certType, st)
			total += DefaultStageSeconds
		}
	}
	return total, nil
}

func (d *Durations) recordMiss(itemType ItemType, certType CertificateType, stage Stage) {
	d.misses.Add(1)
	d.logger().Warn("stage time not configured, using default",
		"item_type", string(itemType),
		"certificate_type", string(certType),
		"stage", string(stage),
		"default_seconds", DefaultStageSeconds,
	)
}

// ValidateConfig applies the write-time rules: known keys, each non-null
// field within [MinStageSeconds, MaxStageSeconds], at least one field set.
func ValidateConfig(row *DurationConfig) error {
	if !NormalizeItemType(string(row.ItemType)).Valid() {
		return Wrapf(ErrValidation, "unknown item type %q", row.ItemType)
	}
	if !row.CertificateType.Valid() {
		return Wrapf(ErrValidation, "unknown certificate type %q", row.CertificateType)
	}
	configured := false
	for _, st := range WorkStages {
		v := row.StageSeconds(st)
		if v == nil {
			continue
		}
		configured = true
		if *v < MinStageSeconds {
			return Wrapf(ErrValidation, "%s: %d seconds is below the %d second minimum", st, *v, MinStageSeconds)
		}
		if *v > MaxStageSeconds {
			return Wrapf(ErrValidation, "%s: %d seconds exceeds the 30 day maximum", st, *v)
		}
	}
	if !configured {
		return Wrapf(ErrValidation, "at least one stage time must be set")
	}
	return nil
}

// Set validates and upserts one row, then drops the cached copy so the next
// lookup reads fresh values.
func (d *Durations) Set(ctx context.Context, row *DurationConfig) error {
	if err := ValidateConfig(row); err != nil {
		return err
	}
	row.ItemType = NormalizeItemType(string(row.ItemType))

	_, err := d.DB.Exec(ctx, `
		INSERT INTO stage_times (item_type, certificate_type, intake_seconds, photo_seconds, review_seconds, print_seconds, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (item_type, certificate_type) DO UPDATE SET
			intake_seconds = EXCLUDED.intake_seconds,
			photo_seconds  = EXCLUDED.photo_seconds,
			review_seconds = EXCLUDED.review_seconds,
			print_seconds  = EXCLUDED.print_seconds,
			updated_at     = now()`,
		string(row.ItemType), string(row.CertificateType),
		row.IntakeSeconds, row.PhotoSeconds, row.ReviewSeconds, row.PrintSeconds,
	)
	if err != nil {
		return fmt.Errorf("save stage times %s/%s: %w", row.ItemType, row.CertificateType, err)
	}

	if d.Redis != nil {
		key := fmt.Sprintf(redisx.KeyStageTimes, row.ItemType, row.CertificateType)
		_ = d.Redis.Del(ctx, key).Err()
	}
	return nil
}

// List returns every configured row, seed order.
func (d *Durations) List(ctx context.Context) ([]DurationConfig, error) {
	rows, err := d.DB.Query(ctx, `
		SELECT item_type, certificate_type, intake_seconds, photo_seconds, review_seconds, print_seconds, updated_at
		FROM stage_times ORDER BY item_type, certificate_type`)
	if err != nil {
		return nil, fmt.Errorf("list stage times: %w", err)
	}
	defer rows.Close()

	var out []DurationConfig
	for rows.Next() {
		var row DurationConfig
		if err := rows.Scan(&row.ItemType, &row.CertificateType,
			&row.IntakeSeconds, &row.PhotoSeconds, &row.ReviewSeconds, &row.PrintSeconds, &row.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
