package verification

import (
	"strings"

	"github.com/wingx/dashboard/internal/models"
)

// Filter keeps the orders whose id, payment reference, customer name or
// client name contains term, ignoring case.
func Filter(orders []models.Order, term string) []models.Order {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return orders
	}

	out := make([]models.Order, 0, len(orders))
	for _, o := range orders {
		if matches(&o, term) {
			out = append(out, o)
		}
	}
	return out
}

func matches(o *models.Order, term string) bool {
	for _, field := range []string{o.ID, o.Reference(), o.Customer.Name, o.ClientName} {
		if field != "" && strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}
