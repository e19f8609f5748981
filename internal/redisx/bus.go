package redisx

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/wingx/dashboard/internal/logging"
)

const OrdersChannel = "wingx:orders:changed"

type Invalidator interface {
	Invalidate()
}

// Bus fans a "pending orders changed" signal out to every dashboard
// instance. The local feed is invalidated right away; peers learn through
// Redis pub/sub.
type Bus struct {
	rdb    *redis.Client
	local  Invalidator
	origin string
	log    *slog.Logger
}

func NewBus(rdb *redis.Client, local Invalidator, log *slog.Logger) *Bus {
	if log == nil {
		log = logging.Discard()
	}
	return &Bus{
		rdb:    rdb,
		local:  local,
		origin: uuid.NewString(),
		log:    log.With("component", "redis_bus"),
	}
}

func (b *Bus) Publish(ctx context.Context) error {
	b.local.Invalidate()
	if b.rdb == nil {
		return nil
	}
	return b.rdb.Publish(ctx, OrdersChannel, b.origin).Err()
}

// Listen relays peer signals to the local feed until ctx is done.
func (b *Bus) Listen(ctx context.Context) error {
	if b.rdb == nil {
		<-ctx.Done()
		return nil
	}

	sub := b.rdb.Subscribe(ctx, OrdersChannel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	b.log.Info("listening", "channel", OrdersChannel)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			if b.fromPeer(msg.Payload) {
				b.local.Invalidate()
			}
		}
	}
}

func (b *Bus) fromPeer(payload string) bool {
	return payload != b.origin
}
