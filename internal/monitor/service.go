// Package monitor consumes order lifecycle events, keeps the Redis status
// cache warm for dashboard reads, and flags orders whose queue is running
// late. It never writes order state; Postgres stays the source of truth.
package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/gemlab/certline/internal/certification"
	kafkax "github.com/gemlab/certline/internal/kafka"
	"github.com/gemlab/certline/internal/redisx"
)

type Service struct {
	Redis       *redis.Client
	Log         *slog.Logger
	ServiceName string
}

func (s *Service) logger() *slog.Logger {
	if s.Log != nil {
		return s.Log
	}
	return slog.Default()
}

// HandleEvent is the consumer handler for all three order topics.
func (s *Service) HandleEvent(ctx context.Context, m kafkago.Message) error {
	var env certification.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}

	// Dedup by event id; redelivery after a consumer restart is expected.
	if s.Redis != nil {
		dkey := fmt.Sprintf(redisx.KeyDedup, s.ServiceName, env.EventID)
		if exists, _ := redisx.Exists(ctx, s.Redis, dkey); exists {
			return nil
		}
		_ = s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()
	}

	switch env.EventType {
	case certification.EventOrderCreated:
		p, err := kafkax.UnwrapPayload[certification.OrderCreatedPayload](env.Payload)
		if err != nil {
			return err
		}
		s.cacheStage(ctx, p.OrderID, certification.StageIntake)
		s.logger().Info("order joined the queue",
			"order_id", p.OrderID,
			"invoice_number", p.InvoiceNumber,
			"items", p.ItemCount,
			"last_deadline", p.LastDeadline,
		)

	case certification.EventStageAdvanced:
		p, err := kafkax.UnwrapPayload[certification.StageAdvancedPayload](env.Payload)
		if err != nil {
			return err
		}
		s.cacheStage(ctx, p.OrderID, p.To)
		if p.DelayedItems > 0 {
			s.logger().Warn("queue running late after advance",
				"order_id", p.OrderID,
				"to", string(p.To),
				"delayed_items", p.DelayedItems,
			)
		} else {
			s.logger().Info("order advanced",
				"order_id", p.OrderID,
				"from", string(p.From),
				"to", string(p.To),
				"subtracted_seconds", p.SubtractedSeconds,
			)
		}

	case certification.EventOrderFinished:
		p, err := kafkax.UnwrapPayload[certification.OrderFinishedPayload](env.Payload)
		if err != nil {
			return err
		}
		s.cacheStage(ctx, p.OrderID, certification.StageFinished)
		s.logger().Info("order finished", "order_id", p.OrderID, "closed_at", p.ClosedAt)

	default:
		// Unknown event types are skipped, not failed; the topic may grow.
	}
	return nil
}

func (s *Service) cacheStage(ctx context.Context, orderID string, stage certification.Stage) {
	if s.Redis == nil {
		return
	}
	key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
	body, _ := json.Marshal(map[string]any{"stage": stage, "updated_at": time.Now().UTC()})
	_ = s.Redis.Set(ctx, key, body, redisx.TTLStatusCache).Err()
}
