package models

type OrderStatus string

const (
	StatusPendingVerification OrderStatus = "pending_verification"
	StatusPaid                OrderStatus = "paid"
	StatusRejected            OrderStatus = "rejected"
)

var validNext = map[OrderStatus]map[OrderStatus]bool{
	StatusPendingVerification: {StatusPaid: true, StatusRejected: true},
	StatusPaid:                {},
	StatusRejected:            {},
}

func CanTransition(from, to OrderStatus) bool {
	return validNext[from][to]
}
