package httpserver

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/wingx/dashboard/internal/livefeed"
	"github.com/wingx/dashboard/internal/logging"
	"github.com/wingx/dashboard/internal/messaging"
	"github.com/wingx/dashboard/internal/models"
	"github.com/wingx/dashboard/internal/money"
	"github.com/wingx/dashboard/internal/session"
	"github.com/wingx/dashboard/internal/transport"
	"github.com/wingx/dashboard/internal/verification"
)

type VerificationHTTP struct {
	Svc *verification.Service
	// Loc is where payment dates are displayed. Nil keeps stored times.
	Loc *time.Location
}

type orderRow struct {
	models.Order
	ShortID      string `json:"shortId"`
	BankName     string `json:"bankName"`
	TotalLabel   string `json:"totalLabel"`
	CreatedLabel string `json:"createdLabel"`
}

type pendingResponse struct {
	Orders  []orderRow `json:"orders"`
	Total   int        `json:"total"`
	Loading bool       `json:"loading"`
	Busy    bool       `json:"busy"`
	Error   string     `json:"error,omitempty"`
	Retry   string     `json:"retry,omitempty"`
}

func (h *VerificationHTTP) pending(w *session.Workspace, q string) pendingResponse {
	desk := w.Desk()
	st := desk.View().State()
	filtered := verification.Filter(st.Orders, q)

	rows := make([]orderRow, 0, len(filtered))
	for _, o := range filtered {
		bank := ""
		if o.PaymentProof != nil {
			bank = o.PaymentProof.Bank
		}
		rows = append(rows, orderRow{
			Order:        o,
			ShortID:      "#" + messaging.ShortID(o.ID),
			BankName:     verification.BankName(bank),
			TotalLabel:   "$" + money.FormatVE(o.TotalPrice, 2),
			CreatedLabel: verification.FormatDate(o.CreatedAt, h.Loc),
		})
	}
	return pendingResponse{
		Orders:  rows,
		Total:   len(st.Orders),
		Loading: st.Loading,
		Busy:    desk.Busy(),
		Error:   st.Error,
		Retry:   st.Retry,
	}
}

// List returns the session's pending view, filtered by ?q=.
func (h *VerificationHTTP) List(c echo.Context) error {
	w, err := workspace(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, h.pending(w, c.QueryParam("q")))
}

func (h *VerificationHTTP) Confirmation(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "verification.confirmation")

	w, err := workspace(c)
	if err != nil {
		return err
	}
	action, err := verification.ParseAction(c.QueryParam("action"))
	if err != nil {
		l.Warn("confirmation_error", "status", 400, "reason", "unknown action", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "action must be approve or reject")
	}

	conf, err := h.Svc.Confirm(ctx, w.Desk(), c.Param("id"), action)
	if err != nil {
		return h.decisionErr(c, "confirmation_error", err, "cannot load order")
	}
	return c.JSON(http.StatusOK, conf)
}

func (h *VerificationHTTP) Approve(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "verification.approve")

	w, err := workspace(c)
	if err != nil {
		return err
	}
	var req transport.DecisionRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("approve_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	id := c.Param("id")

	if !req.Confirm {
		conf, err := h.Svc.Confirm(ctx, w.Desk(), id, verification.ActionApprove)
		if err != nil {
			return h.decisionErr(c, "approve_error", err, verification.ApproveFailedMessage)
		}
		return c.JSON(http.StatusPreconditionRequired, conf)
	}

	res, err := h.Svc.Approve(ctx, w.Desk(), id)
	if err != nil {
		return h.decisionErr(c, "approve_error", err, verification.ApproveFailedMessage)
	}
	l.Info("approve_success", "order_id", id)
	return c.JSON(http.StatusOK, res)
}

func (h *VerificationHTTP) Reject(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "verification.reject")

	w, err := workspace(c)
	if err != nil {
		return err
	}
	var req transport.DecisionRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("reject_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	id := c.Param("id")

	if !req.Confirm {
		conf, err := h.Svc.Confirm(ctx, w.Desk(), id, verification.ActionReject)
		if err != nil {
			return h.decisionErr(c, "reject_error", err, verification.RejectFailedMessage)
		}
		return c.JSON(http.StatusPreconditionRequired, conf)
	}

	res, err := h.Svc.Reject(ctx, w.Desk(), id, req.Reason)
	if err != nil {
		return h.decisionErr(c, "reject_error", err, verification.RejectFailedMessage)
	}
	l.Info("reject_success", "order_id", id)
	return c.JSON(http.StatusOK, res)
}

// decisionErr maps verification errors. A busy desk is not an error: the
// click is ignored.
func (h *VerificationHTTP) decisionErr(c echo.Context, event string, err error, failMsg string) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "verification")

	switch {
	case errors.Is(err, verification.ErrBusy):
		l.Info(event, "status", 409, "reason", "another action in flight")
		return c.JSON(http.StatusConflict, echo.Map{"status": "ignored"})
	case errors.Is(err, verification.ErrNotFound):
		l.Warn(event, "status", 404, "reason", "order not found", "error", err)
		return echo.NewHTTPError(http.StatusNotFound, "order not found")
	case errors.Is(err, verification.ErrNotPending):
		l.Warn(event, "status", 409, "reason", "order is not pending", "error", err)
		return echo.NewHTTPError(http.StatusConflict, "order is no longer pending verification")
	}
	l.Error(event, "status", 500, "reason", "store failed", "error", err)
	return echo.NewHTTPError(http.StatusInternalServerError, failMsg)
}

// Retry resubscribes the pending feed after a fatal error.
func (h *VerificationHTTP) Retry(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "verification.retry")

	w, err := workspace(c)
	if err != nil {
		return err
	}
	if err := w.Retry(); err != nil {
		switch {
		case errors.Is(err, livefeed.ErrForbidden):
			l.Warn("retry_error", "status", 403, "reason", "role cannot view payments")
			return echo.NewHTTPError(http.StatusForbidden, "not enough rights")
		case errors.Is(err, session.ErrEnded), errors.Is(err, livefeed.ErrClosed):
			l.Warn("retry_error", "status", 410, "reason", "session ended", "error", err)
			return echo.NewHTTPError(http.StatusGone, "session ended")
		}
		l.Error("retry_error", "status", 503, "error", err)
		return echo.NewHTTPError(http.StatusServiceUnavailable, "feed unavailable")
	}
	l.Info("retry_success")
	return c.JSON(http.StatusOK, h.pending(w, ""))
}
