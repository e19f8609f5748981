// Package verification implements the manual payment review: approving or
// rejecting orders that wait in pending_verification.
package verification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wingx/dashboard/internal/logging"
	"github.com/wingx/dashboard/internal/messaging"
	"github.com/wingx/dashboard/internal/models"
	"github.com/wingx/dashboard/internal/money"
	"github.com/wingx/dashboard/internal/repo"
)

const (
	DefaultRejectionReason = "Pago no encontrado"

	ApproveFailedMessage = "No se pudo aprobar el pago. Inténtalo de nuevo."
	RejectFailedMessage  = "No se pudo rechazar el pago. Inténtalo de nuevo."
)

var (
	ErrBusy       = errors.New("another verification is in progress")
	ErrNotFound   = errors.New("order not found")
	ErrNotPending = repo.ErrNotPending
)

type Store interface {
	GetOrder(ctx context.Context, id string) (*models.Order, error)
	MarkPaid(ctx context.Context, id string) (*models.Order, error)
	MarkRejected(ctx context.Context, id, reason string) (*models.Order, error)
}

type Publisher interface {
	PublishEvent(ctx context.Context, topic, key string, event any) error
}

// ChangeBus tells every feed that the pending set changed.
type ChangeBus interface {
	Publish(ctx context.Context) error
}

type Service struct {
	Store  Store
	Events Publisher
	Bus    ChangeBus
	Topic  string
}

type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
)

func ParseAction(s string) (Action, error) {
	switch a := Action(s); a {
	case ActionApprove, ActionReject:
		return a, nil
	default:
		return "", fmt.Errorf("unknown action %q", s)
	}
}

// Confirmation is the prompt shown before an action is committed.
type Confirmation struct {
	Action      Action `json:"action"`
	Title       string `json:"title"`
	OrderID     string `json:"order_id"`
	ShortID     string `json:"short_id"`
	Customer    string `json:"customer"`
	Amount      string `json:"amount,omitempty"`
	ConfirmText string `json:"confirm_text"`
	CancelText  string `json:"cancel_text"`
	InputLabel  string `json:"input_label,omitempty"`
	Placeholder string `json:"input_placeholder,omitempty"`
}

type ApproveResult struct {
	Order       *models.Order      `json:"order"`
	Handoff     *messaging.Handoff `json:"whatsapp,omitempty"`
	Title       string             `json:"title"`
	Prompt      string             `json:"prompt,omitempty"`
	ConfirmText string             `json:"confirm_text,omitempty"`
	CancelText  string             `json:"cancel_text,omitempty"`
}

type RejectResult struct {
	Order   *models.Order `json:"order"`
	Title   string        `json:"title"`
	Message string        `json:"message"`
}

// Confirm builds the prompt for action on order id.
func (s *Service) Confirm(ctx context.Context, desk *Desk, id string, action Action) (*Confirmation, error) {
	order, err := s.lookup(ctx, desk, id)
	if err != nil {
		return nil, err
	}
	return confirmationFor(order, action), nil
}

func confirmationFor(order *models.Order, action Action) *Confirmation {
	c := &Confirmation{
		Action:     action,
		OrderID:    order.ID,
		ShortID:    "#" + messaging.ShortID(order.ID),
		Customer:   order.DisplayName(),
		CancelText: "Cancelar",
	}
	switch action {
	case ActionApprove:
		c.Title = "¿Aprobar este pago?"
		c.Amount = "$" + money.FormatVE(order.TotalPrice, 2)
		c.ConfirmText = "✅ Sí, aprobar"
	case ActionReject:
		c.Title = "¿Rechazar este pago?"
		c.ConfirmText = "❌ Sí, rechazar"
		c.InputLabel = "Motivo del rechazo (opcional)"
		c.Placeholder = "Ej: Referencia no encontrada"
	}
	return c
}

// Approve marks the order paid. It is a no-op returning ErrBusy while another
// action of the same desk is running.
func (s *Service) Approve(ctx context.Context, desk *Desk, id string) (*ApproveResult, error) {
	if !desk.tryBegin() {
		return nil, ErrBusy
	}
	defer desk.end()

	l := logging.FromContext(ctx).With("svc", "verification.approve", "order_id", id)

	order, err := s.lookup(ctx, desk, id)
	if err != nil {
		return nil, err
	}

	updated, err := s.Store.MarkPaid(ctx, order.ID)
	if err != nil {
		return nil, s.storeErr(err)
	}
	desk.View().Optimistic(order.ID)
	s.announce(ctx, "order_paid", updated)

	// the handoff greets the customer as the operator saw them
	handoff := messaging.ApprovalHandoff(order)
	res := &ApproveResult{Order: updated, Handoff: handoff, Title: "¡Pago Aprobado!"}
	if handoff != nil {
		res.Prompt = "¿Deseas notificar al cliente por WhatsApp?"
		res.ConfirmText = "📱 Sí, notificar"
		res.CancelText = "No, solo aprobar"
	}
	l.Info("order_approved")
	return res, nil
}

// Reject marks the order rejected with reason, or the default reason when
// reason is blank.
func (s *Service) Reject(ctx context.Context, desk *Desk, id, reason string) (*RejectResult, error) {
	if !desk.tryBegin() {
		return nil, ErrBusy
	}
	defer desk.end()

	l := logging.FromContext(ctx).With("svc", "verification.reject", "order_id", id)

	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = DefaultRejectionReason
	}

	order, err := s.lookup(ctx, desk, id)
	if err != nil {
		return nil, err
	}

	updated, err := s.Store.MarkRejected(ctx, order.ID, reason)
	if err != nil {
		return nil, s.storeErr(err)
	}
	desk.View().Optimistic(order.ID)
	s.announce(ctx, "order_rejected", updated)

	l.Info("order_rejected", "reason", reason)
	return &RejectResult{
		Order:   updated,
		Title:   "Pago Rechazado",
		Message: "El cliente será notificado del rechazo.",
	}, nil
}

func (s *Service) lookup(ctx context.Context, desk *Desk, id string) (*models.Order, error) {
	if o, ok := desk.View().Find(id); ok {
		return &o, nil
	}
	o, err := s.Store.GetOrder(ctx, id)
	if err != nil {
		return nil, s.storeErr(err)
	}
	return o, nil
}

func (s *Service) storeErr(err error) error {
	if repo.IsNotFound(err) {
		return ErrNotFound
	}
	return err
}

// announce publishes the change. Failures are logged only: the order is
// already committed.
func (s *Service) announce(ctx context.Context, typ string, order *models.Order) {
	l := logging.FromContext(ctx)

	if s.Bus != nil {
		if err := s.Bus.Publish(ctx); err != nil {
			l.Warn("change_bus_publish_failed", "error", err)
		}
	}

	if s.Events == nil {
		return
	}
	event := map[string]any{
		"type":        typ,
		"order_id":    order.ID,
		"status":      order.Status,
		"total_price": order.TotalPrice,
		"occurred_at": time.Now().UTC(),
	}
	if order.RejectionReason != "" {
		event["rejection_reason"] = order.RejectionReason
	}

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.Events.PublishEvent(pubCtx, s.Topic, order.ID, event); err != nil {
		l.Warn("kafka_publish_failed", "type", typ, "order_id", order.ID, "error", err)
	}
}
