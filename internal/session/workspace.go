package session

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/wingx/dashboard/internal/catalog"
	"github.com/wingx/dashboard/internal/livefeed"
	"github.com/wingx/dashboard/internal/models"
	"github.com/wingx/dashboard/internal/notify"
	"github.com/wingx/dashboard/internal/verification"
)

const feedErrorMessage = "No se pudieron cargar las órdenes pendientes."

var ErrEnded = errors.New("session ended")

// Identity is who a request was authenticated as.
type Identity struct {
	UserID    string `json:"id"`
	SessionID string `json:"-"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Role      string `json:"role"`
}

// Feed is the live pending-orders source.
type Feed interface {
	Subscribe(role string, h livefeed.Handler) (*livefeed.Subscription, error)
}

// Workspace is everything the dashboard keeps for one signed-in browser
// session.
type Workspace struct {
	ID string

	feed   Feed
	log    *slog.Logger
	engine *notify.Engine
	desk   *verification.Desk
	draft  *catalog.Draft
	events *broadcaster

	mu        sync.Mutex
	identity  Identity
	listening bool
	sub       *livefeed.Subscription
	ended     bool
}

func newWorkspace(id Identity, feed Feed, log *slog.Logger) *Workspace {
	log = log.With("session_id", id.SessionID, "user_id", id.UserID)
	events := newBroadcaster()
	return &Workspace{
		ID:     id.SessionID,
		feed:   feed,
		log:    log,
		engine: notify.NewEngine(events, log),
		desk:   verification.NewDesk(),
		draft:  catalog.NewDraft(),
		events: events,
	}
}

func (w *Workspace) Identity() Identity {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.identity
}

func (w *Workspace) Engine() *notify.Engine { return w.engine }

func (w *Workspace) Desk() *verification.Desk { return w.desk }

func (w *Workspace) Draft() *catalog.Draft { return w.draft }

func (w *Workspace) Streams() int { return w.events.count() }

// Events opens an event stream for this session.
func (w *Workspace) Events() (<-chan notify.Event, func()) {
	return w.events.open()
}

// apply records id and starts or stops listening when the role crosses the
// payment boundary.
func (w *Workspace) apply(id Identity) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.ended {
		return
	}
	w.identity = id

	// admin <-> store keeps the running subscription
	want := models.CanViewPayments(id.Role)
	switch {
	case want && !w.listening:
		_ = w.startLocked()
	case !want && w.listening:
		w.stopLocked()
	}
}

// Retry re-establishes the feed after a fatal error.
func (w *Workspace) Retry() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.ended {
		return ErrEnded
	}
	if !models.CanViewPayments(w.identity.Role) {
		return livefeed.ErrForbidden
	}
	if w.sub != nil {
		w.sub.Unsubscribe()
		w.sub = nil
	}
	w.listening = false
	if err := w.startLocked(); err != nil {
		return err
	}
	w.log.Info("feed_resubscribed")
	return nil
}

func (w *Workspace) startLocked() error {
	w.engine.Start()
	w.desk.View().Reset()

	sub, err := w.feed.Subscribe(w.identity.Role, &feedHandler{w: w})
	if err != nil {
		w.engine.Stop()
		w.desk.View().Failed(err)
		w.log.Warn("feed_subscribe_failed", "error", err)
		return err
	}
	w.sub = sub
	w.listening = true
	w.log.Info("listening_started", "role", w.identity.Role)
	return nil
}

func (w *Workspace) stopLocked() {
	if w.sub != nil {
		w.sub.Unsubscribe()
		w.sub = nil
	}
	w.engine.Stop()
	w.listening = false
	w.log.Info("listening_stopped")
}

func (w *Workspace) end() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.ended {
		return
	}
	w.stopLocked()
	w.ended = true
	w.events.close()
}

// feedHandler must never take w.mu: Unsubscribe is called with it held.
type feedHandler struct {
	w *Workspace
}

func (h *feedHandler) OnSnapshot(orders []models.Order) {
	h.w.desk.View().Confirmed(orders)
	h.w.engine.Deliver(orders)
}

func (h *feedHandler) OnError(err error) {
	h.w.desk.View().Failed(err)
	if emitErr := h.w.events.Emit(notify.Event{Type: notify.EventFeedError, Message: feedErrorMessage}); emitErr != nil {
		h.w.log.Warn("emit_failed", "event", notify.EventFeedError, "error", emitErr)
	}
}
