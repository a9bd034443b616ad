package models

import "time"

// PrepareRequest is the body of POST /api/payment/prepare.
type PrepareRequest struct {
	OrderID       string    `json:"orderId,omitempty"`
	Amount        int64     `json:"amount"`
	PackageID     string    `json:"packageId"`
	AddOns        []string  `json:"addOns"`
	ChildInfo     ChildInfo `json:"childInfo"`
	CustomerEmail string    `json:"customerEmail"`
	PhotoFilename string    `json:"photoFilename,omitempty"`
}

type PrepareResponse struct {
	Success bool   `json:"success"`
	OrderID string `json:"orderId"`
	Amount  int64  `json:"amount"`
}

// ConfirmRequest is the body of POST /api/payments/confirm.
type ConfirmRequest struct {
	PaymentKey string `json:"paymentKey"`
	OrderID    string `json:"orderId"`
	Amount     int64  `json:"amount"`
}

type ConfirmResponse struct {
	Success bool   `json:"success"`
	Order   *Order `json:"order"`
	Message string `json:"message,omitempty"`
}

// QueueProjection is the customer-facing wait estimate attached to an order.
type QueueProjection struct {
	Position      int       `json:"position"`
	WaitMinutes   float64   `json:"waitMinutes"`
	EstimatedTime time.Time `json:"estimatedTime"`
	MakesDeadline bool      `json:"makesDeadline"`
}

type OrderWithQueue struct {
	Order *Order           `json:"order"`
	Queue *QueueProjection `json:"queue,omitempty"`
}

// QueueStatus is the aggregate view behind GET /api/queue/status.
type QueueStatus struct {
	Depth             int       `json:"depth"`
	AvgProcessMinutes float64   `json:"avgProcessMinutes"`
	Deadline          time.Time `json:"deadline"`
	Open              bool      `json:"open"`
}

type AdminOrdersResponse struct {
	Orders []Order    `json:"orders"`
	Stats  OrderStats `json:"stats"`
}

type StatusOverrideRequest struct {
	Status OrderStatus `json:"status"`
}

type AttachDeliveryRequest struct {
	Files []string `json:"files"`
}

type SendDeliveryRequest struct {
	OrderID string `json:"orderId"`
	Link    string `json:"link"`
}

// OrderEvent is the payload published to the order event stream.
type OrderEvent struct {
	Type      string    `json:"type"`
	OrderID   string    `json:"order_id"`
	Order     *Order    `json:"order"`
	Timestamp time.Time `json:"timestamp"`
}
