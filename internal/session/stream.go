package session

import (
	"errors"
	"sync"

	"github.com/wingx/dashboard/internal/notify"
)

const streamBuffer = 32

var ErrStreamFull = errors.New("event stream full, event dropped")

// broadcaster fans session events out to every open event stream. A slow
// stream loses events instead of stalling the feed.
type broadcaster struct {
	mu      sync.Mutex
	streams map[chan notify.Event]struct{}
	closed  bool
}

func newBroadcaster() *broadcaster {
	return &broadcaster{streams: make(map[chan notify.Event]struct{})}
}

func (b *broadcaster) Emit(ev notify.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var err error
	for ch := range b.streams {
		select {
		case ch <- ev:
		default:
			err = ErrStreamFull
		}
	}
	return err
}

// open returns a stream and its release func. The channel is closed when the
// session ends.
func (b *broadcaster) open() (<-chan notify.Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan notify.Event, streamBuffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	b.streams[ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if _, ok := b.streams[ch]; ok {
				delete(b.streams, ch)
				close(ch)
			}
		})
	}
}

func (b *broadcaster) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.streams)
}

func (b *broadcaster) close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	for ch := range b.streams {
		delete(b.streams, ch)
		close(ch)
	}
}
