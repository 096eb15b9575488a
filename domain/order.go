package domain

// Order selects the sort applied to item listings.
type Order string

const (
	// OrderCreated sorts newest first. It is the default.
	OrderCreated Order = "created"
	// OrderPriority sorts most urgent first, newest first within a priority.
	OrderPriority Order = "priority"
	// OrderDue sorts latest due date first, newest first within a day.
	OrderDue Order = "due"
)

// ParseOrder maps a request token to an Order. Unrecognized tokens fall
// back to OrderCreated.
func ParseOrder(s string) Order {
	switch Order(s) {
	case OrderPriority:
		return OrderPriority
	case OrderDue:
		return OrderDue
	}
	return OrderCreated
}
