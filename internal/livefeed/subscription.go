package livefeed

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"github.com/wingx/dashboard/internal/models"
)

// Subscription is the cancellation handle returned by Hub.Subscribe.
type Subscription struct {
	hub     *Hub
	handler Handler

	kick   chan struct{}
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once

	delivered bool
	last      string
}

func (s *Subscription) poke() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

func (s *Subscription) run(ctx context.Context) {
	defer close(s.done)
	defer s.hub.remove(s)

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.kick:
		}

		orders, err := s.hub.store.ListPending(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			s.hub.log.Warn("pending_query_failed", "error", err)
			s.handler.OnError(err)
			return
		}

		fp := fingerprint(orders)
		if s.delivered && fp == s.last {
			continue
		}
		s.delivered, s.last = true, fp
		s.handler.OnSnapshot(orders)
	}
}

// Unsubscribe stops the subscription. Once it returns no further calls reach
// the handler. It must not be called from inside the handler.
func (s *Subscription) Unsubscribe() {
	s.once.Do(s.cancel)
	<-s.done
}

// Done is closed when the subscription ends, by Unsubscribe or by an error.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

func fingerprint(orders []models.Order) string {
	var b strings.Builder
	for i := range orders {
		o := &orders[i]
		b.WriteString(o.ID)
		b.WriteByte('|')
		b.WriteString(string(o.Status))
		b.WriteByte('|')
		b.WriteString(o.TotalPrice.String())
		if o.UpdatedAt != nil {
			b.WriteByte('|')
			b.WriteString(strconv.FormatInt(o.UpdatedAt.UnixNano(), 10))
		}
		b.WriteByte(';')
	}
	return b.String()
}
