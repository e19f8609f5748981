// Package livefeed keeps subscribers supplied with the current list of
// orders awaiting payment verification.
package livefeed

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/wingx/dashboard/internal/logging"
	"github.com/wingx/dashboard/internal/models"
)

var (
	ErrForbidden = errors.New("role cannot view payments")
	ErrClosed    = errors.New("feed hub closed")
)

// Store runs the pending query.
type Store interface {
	ListPending(ctx context.Context) ([]models.Order, error)
}

// Handler receives deliveries for one subscription, one call at a time and
// in arrival order. OnError is final: nothing is delivered after it.
type Handler interface {
	OnSnapshot(orders []models.Order)
	OnError(err error)
}

type Hub struct {
	store Store
	log   *slog.Logger

	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	closed bool
}

func NewHub(store Store, log *slog.Logger) *Hub {
	if log == nil {
		log = logging.Discard()
	}
	return &Hub{
		store: store,
		log:   log.With("component", "livefeed"),
		subs:  make(map[*Subscription]struct{}),
	}
}

// Subscribe starts a subscription for role. The first snapshot is delivered
// right away; later ones follow every Invalidate that changes the result.
func (h *Hub) Subscribe(role string, handler Handler) (*Subscription, error) {
	if !models.CanViewPayments(role) {
		return nil, ErrForbidden
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrClosed
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Subscription{
		hub:     h,
		handler: handler,
		kick:    make(chan struct{}, 1),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	s.kick <- struct{}{}
	h.subs[s] = struct{}{}

	go s.run(ctx)
	h.log.Debug("subscribed", "subscribers", len(h.subs))
	return s, nil
}

// Invalidate tells every subscription that the pending set may have changed.
func (h *Hub) Invalidate() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs {
		s.poke()
	}
}

// Publish lets the hub stand in for a change bus when running alone.
func (h *Hub) Publish(context.Context) error {
	h.Invalidate()
	return nil
}

func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close cancels every subscription and waits for their goroutines.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	subs := make([]*Subscription, 0, len(h.subs))
	for s := range h.subs {
		subs = append(subs, s)
	}
	h.mu.Unlock()

	for _, s := range subs {
		s.Unsubscribe()
	}
}

func (h *Hub) remove(s *Subscription) {
	h.mu.Lock()
	delete(h.subs, s)
	h.mu.Unlock()
}
