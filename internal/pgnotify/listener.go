// Package pgnotify turns Postgres NOTIFY signals on the orders table into
// feed invalidations.
package pgnotify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/wingx/dashboard/internal/logging"
)

const (
	minReconnect = 2 * time.Second
	maxReconnect = time.Minute
	pingInterval = 90 * time.Second
)

type Invalidator interface {
	Invalidate()
}

type Listener struct {
	dsn     string
	channel string
	feed    Invalidator
	log     *slog.Logger
}

func New(dsn, channel string, feed Invalidator, log *slog.Logger) *Listener {
	if log == nil {
		log = logging.Discard()
	}
	return &Listener{
		dsn:     dsn,
		channel: channel,
		feed:    feed,
		log:     log.With("component", "pgnotify", "channel", channel),
	}
}

// Run listens until ctx is done. After a reconnect the feed is invalidated
// since notifications may have been lost while disconnected.
func (l *Listener) Run(ctx context.Context) error {
	pl := pq.NewListener(l.dsn, minReconnect, maxReconnect, l.event)
	defer pl.Close()

	if err := pl.Listen(l.channel); err != nil {
		return fmt.Errorf("listen %s: %w", l.channel, err)
	}
	l.log.Info("listening")

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case n := <-pl.Notify:
			// nil after a reconnect
			if n != nil {
				l.log.Debug("notified", "payload", n.Extra)
			}
			l.feed.Invalidate()
		case <-ticker.C:
			if err := pl.Ping(); err != nil {
				l.log.Warn("ping_failed", "error", err)
			}
		}
	}
}

func (l *Listener) event(ev pq.ListenerEventType, err error) {
	switch ev {
	case pq.ListenerEventConnectionAttemptFailed, pq.ListenerEventDisconnected:
		l.log.Warn("connection_lost", "event", int(ev), "error", err)
	case pq.ListenerEventReconnected:
		l.log.Info("reconnected")
	}
}
