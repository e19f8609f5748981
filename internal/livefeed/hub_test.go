package livefeed

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wingx/dashboard/internal/models"
)

type fakeStore struct {
	mu     sync.Mutex
	orders []models.Order
	err    error
}

func (f *fakeStore) ListPending(context.Context) ([]models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]models.Order, len(f.orders))
	copy(out, f.orders)
	return out, nil
}

func (f *fakeStore) set(ids ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders = f.orders[:0]
	for _, id := range ids {
		f.orders = append(f.orders, models.Order{ID: id, Status: models.StatusPendingVerification, TotalPrice: decimal.NewFromInt(1)})
	}
}

func (f *fakeStore) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

type recorder struct {
	snaps chan []models.Order
	errs  chan error
}

func newRecorder() *recorder {
	return &recorder{snaps: make(chan []models.Order, 16), errs: make(chan error, 1)}
}

func (r *recorder) OnSnapshot(o []models.Order) { r.snaps <- o }
func (r *recorder) OnError(err error)           { r.errs <- err }

func (r *recorder) next(t *testing.T) []models.Order {
	t.Helper()
	select {
	case s := <-r.snaps:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot delivered")
		return nil
	}
}

func (r *recorder) none(t *testing.T) {
	t.Helper()
	select {
	case s := <-r.snaps:
		t.Fatalf("unexpected snapshot: %v", s)
	case <-time.After(100 * time.Millisecond):
	}
}

func ids(orders []models.Order) []string {
	out := make([]string, 0, len(orders))
	for _, o := range orders {
		out = append(out, o.ID)
	}
	return out
}

func TestSubscribe_RejectsPlainUsers(t *testing.T) {
	t.Parallel()

	h := NewHub(&fakeStore{}, nil)
	_, err := h.Subscribe(models.RoleUser, newRecorder())
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestSubscribe_DeliversInitialAndChanges(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	store.set("b", "a")
	h := NewHub(store, nil)
	rec := newRecorder()

	sub, err := h.Subscribe(models.RoleStore, rec)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	assert.Equal(t, []string{"b", "a"}, ids(rec.next(t)))

	store.set("c", "b", "a")
	h.Invalidate()
	assert.Equal(t, []string{"c", "b", "a"}, ids(rec.next(t)))

	// nothing changed: no redelivery
	h.Invalidate()
	rec.none(t)
}

func TestSubscribe_EmptyInitialSnapshotIsDelivered(t *testing.T) {
	t.Parallel()

	h := NewHub(&fakeStore{}, nil)
	rec := newRecorder()
	sub, err := h.Subscribe(models.RoleAdmin, rec)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	assert.Empty(t, rec.next(t))
}

func TestUnsubscribe_StopsDeliveries(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	h := NewHub(store, nil)
	rec := newRecorder()

	sub, err := h.Subscribe(models.RoleAdmin, rec)
	require.NoError(t, err)
	rec.next(t)

	sub.Unsubscribe()
	assert.Equal(t, 0, h.Subscribers())

	store.set("x")
	h.Invalidate()
	rec.none(t)

	// second call is harmless
	sub.Unsubscribe()
}

func TestSubscribe_ErrorIsFinal(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	h := NewHub(store, nil)
	rec := newRecorder()

	sub, err := h.Subscribe(models.RoleAdmin, rec)
	require.NoError(t, err)
	rec.next(t)

	boom := errors.New("missing index")
	store.fail(boom)
	h.Invalidate()

	select {
	case got := <-rec.errs:
		assert.ErrorIs(t, got, boom)
	case <-time.After(2 * time.Second):
		t.Fatal("error not delivered")
	}

	<-sub.Done()
	store.fail(nil)
	store.set("y")
	h.Invalidate()
	rec.none(t)
}

func TestClose_RefusesNewSubscriptions(t *testing.T) {
	t.Parallel()

	h := NewHub(&fakeStore{}, nil)
	rec := newRecorder()
	_, err := h.Subscribe(models.RoleAdmin, rec)
	require.NoError(t, err)

	h.Close()
	assert.Equal(t, 0, h.Subscribers())

	_, err = h.Subscribe(models.RoleAdmin, rec)
	assert.ErrorIs(t, err, ErrClosed)
}
