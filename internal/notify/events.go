package notify

import "github.com/wingx/dashboard/internal/models"

const (
	EventPendingCount = "pending_count"
	EventSound        = "sound"
	EventBrowser      = "browser_notification"
	EventNewOrder     = "new_order"
	EventCleared      = "cleared"
	EventFeedError    = "feed_error"
)

const (
	alertTitle = "🔔 Nuevo Pedido Web"
	alertIcon  = "/icon-192x192.png"
	alertTag   = "new-order"

	soundVolume = 0.5
)

// Alert is what the browser shows through the Notification API.
type Alert struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Icon  string `json:"icon"`
	Tag   string `json:"tag"`
}

// Event is one push to the operator's browser.
type Event struct {
	Type         string        `json:"type"`
	Count        int           `json:"count"`
	Order        *models.Order `json:"order,omitempty"`
	Notification *Alert        `json:"notification,omitempty"`
	Volume       float64       `json:"volume,omitempty"`
	Message      string        `json:"message,omitempty"`
}

// Sink delivers events to whatever is listening for the session.
type Sink interface {
	Emit(Event) error
}
