// Package messaging builds the WhatsApp handoff offered after a payment is
// approved. Nothing here sends anything: the operator's browser opens the
// link.
package messaging

import (
	"net/url"
	"strings"

	"github.com/wingx/dashboard/internal/models"
	"github.com/wingx/dashboard/internal/money"
)

const (
	baseURL     = "https://wa.me/"
	countryCode = "58"
)

// Handoff is the deep link plus what it was built from.
type Handoff struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
	URL     string `json:"url"`
}

var phoneSeparators = strings.NewReplacer(" ", "", "\t", "", "-", "", "(", "", ")", "")

// NormalizePhone turns a local or international Venezuelan number into the
// digits-only form wa.me expects: 0412-123.. becomes 58412123..
func NormalizePhone(phone string) string {
	p := phoneSeparators.Replace(strings.TrimSpace(phone))
	if !strings.HasPrefix(p, countryCode) && !strings.HasPrefix(p, "+"+countryCode) {
		p = countryCode + strings.TrimPrefix(p, "0")
	}
	return strings.Replace(p, "+", "", 1)
}

// ShortID is the operator facing order number: first 8 characters, upper case.
func ShortID(id string) string {
	if len(id) > 8 {
		id = id[:8]
	}
	return strings.ToUpper(id)
}

// ApprovalMessage is the text sent to the customer once payment is verified.
func ApprovalMessage(order *models.Order) string {
	var b strings.Builder
	b.WriteString("¡Hola " + order.DisplayName() + "! 🎉\n\n")
	b.WriteString("Tu pago ha sido *VERIFICADO* exitosamente ✅\n\n")
	b.WriteString("📋 *Orden:* #" + ShortID(order.ID) + "\n")
	b.WriteString("💰 *Monto:* $" + money.FormatVE(order.TotalPrice, 2) + "\n\n")
	b.WriteString("Procederemos con tu pedido de inmediato. ¡Gracias por tu compra! 🛍️\n\n")
	b.WriteString("_Wingx_")
	return b.String()
}

// encodeComponent escapes like encodeURIComponent: spaces become %20.
func encodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// ApprovalHandoff returns nil when the order carries no phone number.
func ApprovalHandoff(order *models.Order) *Handoff {
	if strings.TrimSpace(order.Customer.Phone) == "" {
		return nil
	}
	phone := NormalizePhone(order.Customer.Phone)
	msg := ApprovalMessage(order)
	return &Handoff{
		Phone:   phone,
		Message: msg,
		URL:     baseURL + phone + "?text=" + encodeComponent(msg),
	}
}
