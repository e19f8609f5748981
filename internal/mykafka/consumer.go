package mykafka

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/wingx/dashboard/internal/logging"
)

// Handler returns nil only when the message may be committed.
type Handler func(ctx context.Context, m kafka.Message) error

// Deduper remembers processed messages. Mark is called only after the
// handler succeeded.
type Deduper interface {
	Key(topic string, partition int, offset int64) string
	Seen(ctx context.Context, key string) (bool, error)
	Mark(ctx context.Context, key string) error
}

type reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

const (
	retryBase = 500 * time.Millisecond
	retryMax  = 30 * time.Second
)

type Consumer struct {
	r       reader
	workers int
	idem    Deduper
	log     *slog.Logger

	retryBase time.Duration
	retryMax  time.Duration
}

func NewConsumer(brokers []string, group, topic string, workers int, idem Deduper, log *slog.Logger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		GroupID:        group,
		Topic:          topic,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0,
	})
	return newConsumer(r, topic, workers, idem, log)
}

func newConsumer(r reader, topic string, workers int, idem Deduper, log *slog.Logger) *Consumer {
	if workers <= 0 {
		workers = 1
	}
	if log == nil {
		log = logging.Discard()
	}
	return &Consumer{
		r:         r,
		workers:   workers,
		idem:      idem,
		log:       log.With("component", "kafka_consumer", "topic", topic),
		retryBase: retryBase,
		retryMax:  retryMax,
	}
}

// Run dispatches messages to h until ctx is cancelled. A partition always
// lands on the same worker, which retries a failed message until it
// succeeds, so offsets are committed in order and never past a failure.
func (c *Consumer) Run(ctx context.Context, h Handler) error {
	defer c.r.Close()

	queues := make([]chan kafka.Message, c.workers)
	done := make(chan struct{})
	for i := range queues {
		queues[i] = make(chan kafka.Message, 64)
		go func(jobs <-chan kafka.Message) {
			defer func() { done <- struct{}{} }()
			for m := range jobs {
				c.handle(ctx, h, m)
			}
		}(queues[i])
	}
	defer func() {
		for _, q := range queues {
			close(q)
		}
		for range queues {
			<-done
		}
	}()

	for {
		m, err := c.r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		select {
		case queues[m.Partition%c.workers] <- m:
		case <-ctx.Done():
			return nil
		}
	}
}

func (c *Consumer) handle(ctx context.Context, h Handler, m kafka.Message) {
	l := c.log.With("partition", m.Partition, "offset", m.Offset)

	var key string
	if c.idem != nil {
		key = c.idem.Key(m.Topic, m.Partition, m.Offset)
		seen, err := c.idem.Seen(ctx, key)
		if err != nil {
			l.Warn("idempotency_check_failed", "error", err)
		} else if seen {
			l.Info("duplicate_skipped", "key", key)
			c.commit(ctx, l, m)
			return
		}
	}

	wait := c.retryBase
	for attempt := 1; ; attempt++ {
		err := h(ctx, m)
		if err == nil {
			break
		}
		l.Error("message_failed", "attempt", attempt, "error", err)

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
		if wait *= 2; wait > c.retryMax {
			wait = c.retryMax
		}
	}

	if key != "" {
		if err := c.idem.Mark(ctx, key); err != nil {
			l.Warn("idempotency_mark_failed", "key", key, "error", err)
		}
	}
	c.commit(ctx, l, m)
}

func (c *Consumer) commit(ctx context.Context, l *slog.Logger, m kafka.Message) {
	if err := c.r.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
		l.Warn("commit_failed", "error", err)
	}
}
