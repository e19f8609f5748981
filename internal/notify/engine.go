// Package notify turns pending-order snapshots into new-order alerts for one
// operator session.
package notify

import (
	"log/slog"
	"sync"

	"github.com/wingx/dashboard/internal/logging"
	"github.com/wingx/dashboard/internal/models"
	"github.com/wingx/dashboard/internal/money"
)

type State int

const (
	Idle State = iota
	Listening
)

func (s State) String() string {
	if s == Listening {
		return "listening"
	}
	return "idle"
}

// Status is a read-only copy of the engine state.
type Status struct {
	State        string        `json:"state"`
	PendingCount int           `json:"pending_count"`
	HasNewOrders bool          `json:"has_new_orders"`
	LatestOrder  *models.Order `json:"latest_order,omitempty"`
	Permission   Permission    `json:"permission"`
}

type Engine struct {
	sink Sink
	log  *slog.Logger

	mu       sync.Mutex
	state    State
	first    bool
	previous int
	current  int
	hasNew   bool
	latest   *models.Order

	permission Permission
	offered    bool
	denied     bool
}

func NewEngine(sink Sink, log *slog.Logger) *Engine {
	if log == nil {
		log = logging.Discard()
	}
	return &Engine{
		sink:       sink,
		log:        log.With("component", "notify"),
		permission: PermissionUnknown,
	}
}

// Start enters Listening. The next delivery only sets the baseline.
func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = Listening
	e.first = true
	e.previous = 0
}

// Stop returns to Idle and forgets counts and the latest order.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = Idle
	e.first = false
	e.previous = 0
	e.current = 0
	e.hasNew = false
	e.latest = nil
}

// Deliver processes one feed snapshot and reports whether it alerted.
func (e *Engine) Deliver(orders []models.Order) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != Listening {
		return false
	}

	n := len(orders)
	alerted := false
	if e.first {
		e.first = false
	} else if n > e.previous {
		latest := orders[0]
		e.hasNew = true
		e.latest = &latest
		e.alert(&latest, n)
		alerted = true
	}
	e.previous = n
	e.current = n

	e.emit(Event{Type: EventPendingCount, Count: n})
	return alerted
}

// Clear dismisses the new-order flag. The baseline count is kept.
func (e *Engine) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.hasNew && e.latest == nil {
		return
	}
	e.hasNew = false
	e.latest = nil
	e.emit(Event{Type: EventCleared, Count: e.current})
}

func (e *Engine) SetPermission(p Permission) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.permission = p
	if p == PermissionDenied {
		e.denied = true
	}
}

// OfferPrompt hands out the permission dialog at most once per session, only
// to payment roles and only after the browser reported it has not decided
// yet. A session that ever reported a denial is never prompted.
func (e *Engine) OfferPrompt(role string) (Prompt, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.offered || e.denied || !models.CanViewPayments(role) || e.permission != PermissionDefault {
		return Prompt{}, false
	}
	e.offered = true
	return permissionPrompt, true
}

func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	st := Status{
		State:        e.state.String(),
		PendingCount: e.current,
		HasNewOrders: e.hasNew,
		Permission:   e.permission,
	}
	if e.latest != nil {
		latest := *e.latest
		st.LatestOrder = &latest
	}
	return st
}

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// alert fires the single alert for an increase. Sink failures never stop it.
func (e *Engine) alert(order *models.Order, n int) {
	e.emit(Event{Type: EventSound, Volume: soundVolume})

	if e.permission == PermissionGranted {
		e.emit(Event{Type: EventBrowser, Notification: &Alert{
			Title: alertTitle,
			Body:  AlertBody(order),
			Icon:  alertIcon,
			Tag:   alertTag,
		}})
	}

	e.emit(Event{Type: EventNewOrder, Count: n, Order: order})
}

func (e *Engine) emit(ev Event) {
	if e.sink == nil {
		return
	}
	if err := e.sink.Emit(ev); err != nil {
		e.log.Warn("emit_failed", "event", ev.Type, "error", err)
	}
}

// AlertBody is "<name> - $<total>" with the total in es-VE format.
func AlertBody(order *models.Order) string {
	return order.DisplayName() + " - $" + money.FormatVE(order.TotalPrice, 0)
}
