package models

import (
	"time"

	"github.com/uptrace/bun"
)

type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusProcessing OrderStatus = "processing"
	StatusReady      OrderStatus = "ready"
	StatusCompleted  OrderStatus = "completed"
)

// statusRank orders the lifecycle states; transitions may only move up.
var statusRank = map[OrderStatus]int{
	StatusPending:    0,
	StatusProcessing: 1,
	StatusReady:      2,
	StatusCompleted:  3,
}

// Valid reports whether s names a known lifecycle state.
func (s OrderStatus) Valid() bool {
	_, ok := statusRank[s]
	return ok
}

// CanTransitionTo reports whether moving from s to next is a forward step.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	from, ok := statusRank[s]
	if !ok {
		return false
	}
	to, ok := statusRank[next]
	if !ok {
		return false
	}
	return to > from
}

type PaymentStatus string

const (
	PaymentUnpaid PaymentStatus = "unpaid"
	PaymentPaid   PaymentStatus = "paid"
)

// ChildInfo is what the customer types in step two of the funnel.
type ChildInfo struct {
	Name    string `json:"name"`
	Age     string `json:"age,omitempty"`
	Message string `json:"message,omitempty"`
}

type Order struct {
	bun.BaseModel `bun:"table:orders"`

	OrderID       string        `bun:"order_id,pk" json:"orderId"`
	PackageID     string        `bun:"package_id,notnull" json:"packageId"`
	AddOns        []string      `bun:"add_ons" json:"addOns"`
	ChildName     string        `bun:"child_name,notnull" json:"childName"`
	ChildAge      string        `bun:"child_age,nullzero" json:"childAge,omitempty"`
	ChildMessage  string        `bun:"child_message,nullzero" json:"childMessage,omitempty"`
	CustomerEmail string        `bun:"customer_email,notnull" json:"customerEmail"`
	PhotoRef      string        `bun:"photo_ref,nullzero" json:"photoReference,omitempty"`
	BasePrice     int64         `bun:"base_price,notnull" json:"basePrice"`
	TotalPrice    int64         `bun:"total_price,notnull" json:"totalPrice"`
	OriginalPrice int64         `bun:"original_price,notnull" json:"originalPrice"`
	PaymentStatus PaymentStatus `bun:"payment_status,notnull" json:"paymentStatus"`
	PaymentKey    string        `bun:"payment_key,nullzero" json:"paymentKey,omitempty"`
	Status        OrderStatus   `bun:"status,notnull" json:"status"`
	CreatedAt     time.Time     `bun:"created_at,notnull" json:"createdAt"`
	PaidAt        time.Time     `bun:"paid_at,nullzero" json:"paidAt,omitempty"`
	CompletedAt   time.Time     `bun:"completed_at,nullzero" json:"completedAt,omitempty"`
	DeliveryFiles []string      `bun:"delivery_files" json:"deliveryFiles,omitempty"`
	DeliveryLink  string        `bun:"delivery_link,nullzero" json:"deliveryLink,omitempty"`
}

// Child returns the child info as one value for templating and validation.
func (o *Order) Child() ChildInfo {
	return ChildInfo{Name: o.ChildName, Age: o.ChildAge, Message: o.ChildMessage}
}

// Processing reports whether the order is paid and still being worked on,
// i.e. the unit counted by the queue estimator.
func (o *Order) Processing() bool {
	return o.Status == StatusProcessing && o.PaymentStatus == PaymentPaid
}

// OrderStats is the aggregate block on the admin dashboard.
type OrderStats struct {
	Total        int   `json:"total"`
	Pending      int   `json:"pending"`
	Processing   int   `json:"processing"`
	Ready        int   `json:"ready"`
	Completed    int   `json:"completed"`
	TotalRevenue int64 `json:"totalRevenue"`
}

// CalcStats aggregates counts by status and revenue over paid orders.
func CalcStats(orders []Order) OrderStats {
	stats := OrderStats{Total: len(orders)}
	for _, o := range orders {
		switch o.Status {
		case StatusPending:
			stats.Pending++
		case StatusProcessing:
			stats.Processing++
		case StatusReady:
			stats.Ready++
		case StatusCompleted:
			stats.Completed++
		}
		if o.PaymentStatus == PaymentPaid {
			stats.TotalRevenue += o.TotalPrice
		}
	}
	return stats
}
