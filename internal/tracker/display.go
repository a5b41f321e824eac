package tracker

import "github.com/imrishuroy/go-storefront-orderflow/internal/orders"

// Category groups statuses for display.
type Category string

const (
	CategoryPending    Category = "pending"
	CategoryVerified   Category = "verified"
	CategoryProcessing Category = "processing"
	CategoryShipped    Category = "shipped"
	CategoryDelivered  Category = "delivered"
	CategoryCancelled  Category = "cancelled"
	CategoryUnknown    Category = "unknown"
)

// Display is how a status is presented: a category, a label, a badge color and a sort
// priority (lower comes first).
type Display struct {
	Category Category `json:"category"`
	Label    string   `json:"label"`
	Color    string   `json:"color"`
	Priority int      `json:"priority"`
}

var unknownDisplay = Display{Category: CategoryUnknown, Label: "Unknown", Color: "#757575", Priority: 7}

var displays = map[orders.Status]Display{
	orders.StatusPendingPayment:      {Category: CategoryPending, Label: "Pending Payment", Color: "#FF9800", Priority: 1},
	orders.StatusPendingConfirmation: {Category: CategoryPending, Label: "Pending Confirmation", Color: "#FF9800", Priority: 1},
	orders.StatusPaymentVerified:     {Category: CategoryVerified, Label: "Payment Verified", Color: "#2196F3", Priority: 2},
	orders.StatusProcessing:          {Category: CategoryProcessing, Label: "Processing", Color: "#9C27B0", Priority: 3},
	orders.StatusShipped:             {Category: CategoryShipped, Label: "Shipped", Color: "#00BCD4", Priority: 4},
	orders.StatusDelivered:           {Category: CategoryDelivered, Label: "Delivered", Color: "#4CAF50", Priority: 5},
	orders.StatusCancelled:           {Category: CategoryCancelled, Label: "Cancelled", Color: "#F44336", Priority: 6},
}

// Describe maps any status, known or not, to its display.
func Describe(s orders.Status) Display {
	if d, ok := displays[s]; ok {
		return d
	}
	return unknownDisplay
}

// Categories lists every category in priority order.
func Categories() []Category {
	return []Category{
		CategoryPending,
		CategoryVerified,
		CategoryProcessing,
		CategoryShipped,
		CategoryDelivered,
		CategoryCancelled,
		CategoryUnknown,
	}
}
