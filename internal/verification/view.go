package verification

import (
	"slices"
	"sync"

	"github.com/wingx/dashboard/internal/models"
)

const feedErrorText = "No se pudieron cargar las órdenes pendientes. Verifica la conexión e inténtalo de nuevo."

// ViewState is what the verification screen renders.
type ViewState struct {
	Orders  []models.Order `json:"orders"`
	Loading bool           `json:"loading"`
	Error   string         `json:"error,omitempty"`
	Retry   string         `json:"retry,omitempty"`
}

// View is the session's local copy of the pending list. Optimistic removals
// apply at once; the next confirmed snapshot replaces everything.
type View struct {
	mu      sync.Mutex
	orders  []models.Order
	removed map[string]struct{}
	loading bool
	err     error
}

func NewView() *View {
	return &View{loading: true, removed: make(map[string]struct{})}
}

// Confirmed applies a snapshot delivered by the feed.
func (v *View) Confirmed(orders []models.Order) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.orders = slices.Clone(orders)
	clear(v.removed)
	v.loading = false
	v.err = nil
}

// Optimistic drops id ahead of the feed.
func (v *View) Optimistic(id string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.removed[id] = struct{}{}
}

// Failed records a fatal feed error. The last list stays visible.
func (v *View) Failed(err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.loading = false
	v.err = err
}

// Reset goes back to loading, used when the feed is re-established.
func (v *View) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.loading = true
	v.err = nil
}

func (v *View) Find(id string) (models.Order, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, gone := v.removed[id]; gone {
		return models.Order{}, false
	}
	for _, o := range v.orders {
		if o.ID == id {
			return o, true
		}
	}
	return models.Order{}, false
}

func (v *View) State() ViewState {
	v.mu.Lock()
	defer v.mu.Unlock()

	out := make([]models.Order, 0, len(v.orders))
	for _, o := range v.orders {
		if _, gone := v.removed[o.ID]; !gone {
			out = append(out, o)
		}
	}

	st := ViewState{Orders: out, Loading: v.loading}
	if v.err != nil {
		st.Error = feedErrorText
		st.Retry = "Reintentar"
	}
	return st
}
