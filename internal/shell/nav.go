// Package shell builds the dashboard chrome: sidebar, mobile bar, pending
// badge, new-order toast and route guarding.
package shell

import (
	"strconv"
	"strings"

	"github.com/wingx/dashboard/internal/models"
	"github.com/wingx/dashboard/internal/notify"
)

const (
	LoginPath        = "/login"
	HomePath         = "/"
	VerificationPath = "/verificacion-pagos"
	AdminLabel       = "Admin Panel"
)

type Link struct {
	Label string `json:"label"`
	Href  string `json:"href"`
	Icon  string `json:"icon"`
	Badge string `json:"badge,omitempty"`

	Active bool `json:"active"`

	paymentsOnly bool
}

var sidebar = []Link{
	{Label: "Prendas", Href: "/prendas", Icon: "shirt"},
	{Label: "En Stock", Href: "/inventario", Icon: "package"},
	{Label: "Tienda Online", Href: "/tienda", Icon: "store", paymentsOnly: true},
	{Label: "Verificar Pagos", Href: VerificationPath, Icon: "credit-card", paymentsOnly: true},
	{Label: "Pedidos", Href: "/pedidos", Icon: "clipboard-list"},
	{Label: "Agenda", Href: "/agenda", Icon: "calendar"},
	{Label: "Clientes", Href: "/clientes", Icon: "users"},
	{Label: "Materiales", Href: "/materiales", Icon: "scissors"},
}

var mobile = []Link{
	{Label: "Pedidos", Href: "/pedidos", Icon: "clipboard-list"},
	{Label: "Agenda", Href: "/agenda", Icon: "calendar"},
	{Label: "Stock", Href: "/inventario", Icon: "package"},
	{Label: "Clientes", Href: "/clientes", Icon: "users"},
}

// BadgeText renders the pending count; empty hides the badge.
func BadgeText(n int) string {
	switch {
	case n <= 0:
		return ""
	case n > 99:
		return "99+"
	default:
		return strconv.Itoa(n)
	}
}

func isActive(href, path string) bool {
	if href == HomePath {
		return path == HomePath
	}
	return path == href || strings.HasPrefix(path, href+"/")
}

// Sidebar lists the links role may see, with the pending badge on the
// payments entry.
func Sidebar(role, path string, pending int) []Link {
	payments := models.CanViewPayments(role)
	out := make([]Link, 0, len(sidebar))
	for _, l := range sidebar {
		if l.paymentsOnly && !payments {
			continue
		}
		l.Active = isActive(l.Href, path)
		if l.Href == VerificationPath {
			l.Badge = BadgeText(pending)
		}
		out = append(out, l)
	}
	return out
}

func Mobile(path string) []Link {
	out := make([]Link, len(mobile))
	for i, l := range mobile {
		l.Active = isActive(l.Href, path)
		out[i] = l
	}
	return out
}

type Toast struct {
	Message     string `json:"message"`
	ActionLabel string `json:"action_label"`
	ActionHref  string `json:"action_href"`
}

// ToastFor is shown while there are unseen orders.
func ToastFor(st notify.Status) *Toast {
	if !st.HasNewOrders || st.LatestOrder == nil {
		return nil
	}
	return &Toast{
		Message:     notify.AlertBody(st.LatestOrder),
		ActionLabel: "Ver Pedido →",
		ActionHref:  VerificationPath,
	}
}

func isAdminRoute(path string) bool {
	for _, l := range sidebar {
		if l.paymentsOnly && isActive(l.Href, path) {
			return true
		}
	}
	return false
}

// Redirect decides where a request for path should go instead, or "" to
// render it. role is empty for anonymous visitors.
func Redirect(path, role string) string {
	authed := role != ""
	switch {
	case path == LoginPath && authed:
		return HomePath
	case path == LoginPath:
		return ""
	case !authed:
		return LoginPath
	case isAdminRoute(path) && !models.CanViewPayments(role):
		return HomePath
	}
	return ""
}

// ClearsAlerts reports whether opening path dismisses the new-order flag.
func ClearsAlerts(path string) bool {
	return isActive(VerificationPath, path)
}

type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Model is the whole shell as served to the browser.
type Model struct {
	User     *User          `json:"user,omitempty"`
	Label    string         `json:"label,omitempty"`
	Redirect string         `json:"redirect,omitempty"`
	Sidebar  []Link         `json:"sidebar"`
	Mobile   []Link         `json:"mobile"`
	Toast    *Toast         `json:"toast,omitempty"`
	Status   *notify.Status `json:"notifications,omitempty"`
	Prompt   *notify.Prompt `json:"permission_prompt,omitempty"`
}

// Build assembles the shell for user (nil when anonymous) on path.
func Build(user *User, path string, st notify.Status) Model {
	role := ""
	if user != nil {
		role = user.Role
	}
	m := Model{
		User:     user,
		Redirect: Redirect(path, role),
		Sidebar:  []Link{},
		Mobile:   []Link{},
	}
	if user == nil {
		return m
	}
	if role == models.RoleAdmin {
		m.Label = AdminLabel
	}
	m.Sidebar = Sidebar(role, path, st.PendingCount)
	m.Mobile = Mobile(path)
	if models.CanViewPayments(role) {
		m.Toast = ToastFor(st)
		m.Status = &st
	}
	return m
}
