package notify

import (
	"errors"
	"fmt"
)

// Permission is the browser's Notification.permission value. Unknown is the
// state before the browser reported one.
type Permission string

const (
	PermissionUnknown Permission = "unknown"
	PermissionDefault Permission = "default"
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
)

var ErrInvalidPermission = errors.New("invalid notification permission")

func ParsePermission(s string) (Permission, error) {
	switch p := Permission(s); p {
	case PermissionDefault, PermissionGranted, PermissionDenied:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPermission, s)
	}
}

// Prompt is the in-app dialog offered before asking the browser.
type Prompt struct {
	Title   string `json:"title"`
	Message string `json:"message"`
	Hint    string `json:"hint"`
	Confirm string `json:"confirm"`
	Cancel  string `json:"cancel"`
}

var permissionPrompt = Prompt{
	Title:   "🔔 Activar Notificaciones",
	Message: "Recibe alertas instantáneas cuando llegue un nuevo pedido desde la tienda.",
	Hint:    "Esto te permitirá atender pedidos más rápido.",
	Confirm: "✅ Sí, activar",
	Cancel:  "Ahora no",
}
