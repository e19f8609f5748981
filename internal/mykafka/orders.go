package mykafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/wingx/dashboard/internal/logging"
	"github.com/wingx/dashboard/internal/models"
)

// OrderEvent is the envelope on the order events topic.
type OrderEvent struct {
	Type    string        `json:"type"`
	OrderID string        `json:"order_id,omitempty"`
	Order   *models.Order `json:"order,omitempty"`
}

type OrderInserter interface {
	InsertOrder(ctx context.Context, order *models.Order) (bool, error)
}

type Invalidator interface {
	Invalidate()
}

// OrderEvents stores storefront orders and invalidates the pending feed for
// every event that may change it. Unknown types and malformed payloads are
// committed and dropped.
func OrderEvents(store OrderInserter, feed Invalidator, log *slog.Logger) Handler {
	if log == nil {
		log = logging.Discard()
	}
	return func(ctx context.Context, m kafka.Message) error {
		var ev OrderEvent
		if err := json.Unmarshal(m.Value, &ev); err != nil {
			log.Warn("order_event_malformed", "offset", m.Offset, "error", err)
			return nil
		}

		switch ev.Type {
		case "order_created":
			if ev.Order == nil || ev.Order.ID == "" {
				log.Warn("order_event_malformed", "type", ev.Type, "reason", "missing order")
				return nil
			}
			if ev.Order.Status == "" {
				ev.Order.Status = models.StatusPendingVerification
			}
			inserted, err := store.InsertOrder(ctx, ev.Order)
			if err != nil {
				return fmt.Errorf("insert order %s: %w", ev.Order.ID, err)
			}
			log.Info("order_received", "order_id", ev.Order.ID, "inserted", inserted)
		case "order_paid", "order_rejected":
		default:
			return nil
		}

		feed.Invalidate()
		return nil
	}
}
