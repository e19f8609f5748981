package httpserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/wingx/dashboard/internal/logging"
	"github.com/wingx/dashboard/internal/notify"
)

const keepAlive = 25 * time.Second

type EventsHTTP struct{}

// Stream pushes the session's notification events as server-sent events
// until the client goes away or the session ends.
func (h *EventsHTTP) Stream(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "events.stream")

	w, err := workspace(c)
	if err != nil {
		return err
	}
	events, release := w.Events()
	defer release()

	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "text/event-stream")
	resp.Header().Set("Cache-Control", "no-cache")
	resp.Header().Set("Connection", "keep-alive")
	resp.Header().Set("X-Accel-Buffering", "no")
	resp.WriteHeader(http.StatusOK)

	st := w.Engine().Status()
	if err := writeEvent(resp, notify.Event{Type: notify.EventPendingCount, Count: st.PendingCount}); err != nil {
		return nil
	}

	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				l.Info("stream_ended", "reason", "session ended")
				return nil
			}
			if err := writeEvent(resp, ev); err != nil {
				l.Warn("stream_write_failed", "error", err)
				return nil
			}
		case <-ticker.C:
			if _, err := fmt.Fprint(resp, ": ping\n\n"); err != nil {
				return nil
			}
			resp.Flush()
		}
	}
}

func writeEvent(resp *echo.Response, ev notify.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(resp, "event: %s\ndata: %s\n\n", ev.Type, data); err != nil {
		return err
	}
	resp.Flush()
	return nil
}
