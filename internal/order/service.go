// Package order implements the checkout orchestrator and the order state
// machine: pending → processing → ready → completed, forward only.
package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"santamoment/internal/catalog"
	"santamoment/internal/config"
	"santamoment/internal/logger"
	"santamoment/internal/models"
	"santamoment/internal/notify"
	"santamoment/internal/order/gateway"
	"santamoment/internal/queue"
	"santamoment/internal/store"
)

var (
	// ErrValidation wraps all synchronous request rejections.
	ErrValidation = errors.New("validation failed")
	// ErrAmountMismatch is a hard rejection: the client amount does not
	// equal the stored order total.
	ErrAmountMismatch = errors.New("amount does not match order total")
	// ErrAlreadyPaid guards the unpaid→paid flip: it happens exactly once.
	ErrAlreadyPaid = errors.New("order is already paid")
	// ErrInvalidTransition rejects any backward status move.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrOrderBusy means another mutation holds the per-order lock.
	ErrOrderBusy = errors.New("order is being processed by another request")
)

const orderIDPrefix = "SANTA-"

// DBLayer is the order repository the service mutates through.
type DBLayer interface {
	CreateOrder(ctx context.Context, order models.Order) error
	GetOrderByID(ctx context.Context, id string) (*models.Order, error)
	UpdateOrder(ctx context.Context, order models.Order) error
	ListOrders(ctx context.Context) ([]models.Order, error)
	ListProcessing(ctx context.Context) ([]models.Order, error)
}

// Locker serializes mutations of a single order.
type Locker interface {
	LockOrder(ctx context.Context, orderID, token string) (bool, error)
	UnlockOrder(ctx context.Context, orderID, token string) error
}

// EventPublisher streams order lifecycle events; nil-safe at the call sites.
type EventPublisher interface {
	PublishOrderEvent(topic, eventType string, order models.Order) error
}

// Notifier accepts outbox jobs for asynchronous customer email.
type Notifier interface {
	Enqueue(job notify.Job)
}

type OrderService struct {
	DB        DBLayer
	Gateway   gateway.Gateway
	Lock      Locker
	Events    EventPublisher
	Outbox    Notifier
	Estimator *queue.Estimator
	Topics    config.TopicConfig

	logger *logger.Logger
}

func NewOrderService(db DBLayer, gw gateway.Gateway, lock Locker, events EventPublisher, outbox Notifier, estimator *queue.Estimator, topics config.TopicConfig, log *logger.Logger) *OrderService {
	return &OrderService{
		DB:        db,
		Gateway:   gw,
		Lock:      lock,
		Events:    events,
		Outbox:    outbox,
		Estimator: estimator,
		Topics:    topics,
		logger:    log,
	}
}

// ageOptions is the optional child age selector of the funnel form.
var ageOptions = map[string]bool{
	"":     true,
	"1-2":  true,
	"3-5":  true,
	"6-8":  true,
	"9-12": true,
	"13+":  true,
}

func validateChildInfo(info models.ChildInfo, pkg catalog.Package) error {
	name := strings.TrimSpace(info.Name)
	if n := len([]rune(name)); n < 1 || n > 10 {
		return fmt.Errorf("%w: child name must be 1-10 characters", ErrValidation)
	}
	if !ageOptions[info.Age] {
		return fmt.Errorf("%w: unknown age group %q", ErrValidation, info.Age)
	}
	if len([]rune(info.Message)) > pkg.MessageLimit {
		return fmt.Errorf("%w: message exceeds %d characters", ErrValidation, pkg.MessageLimit)
	}
	return nil
}

// PrepareOrder validates the checkout selection, prices it server-side and
// persists a pending, unpaid order. A still-pending order with the same id is
// overwritten; a paid one is never touched.
func (s *OrderService) PrepareOrder(ctx context.Context, req models.PrepareRequest) (*models.Order, error) {
	quote, err := catalog.ComputeQuote(req.PackageID, req.AddOns)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	pkg, _ := catalog.GetPackage(req.PackageID)

	if err := validateChildInfo(req.ChildInfo, pkg); err != nil {
		return nil, err
	}
	if !strings.Contains(req.CustomerEmail, "@") {
		return nil, fmt.Errorf("%w: customer email is invalid", ErrValidation)
	}
	// The client echoes the price it displayed; any disagreement with the
	// server-side quote is rejected before an order exists.
	if req.Amount != 0 && req.Amount != quote.TotalPrice {
		return nil, fmt.Errorf("%w: expected %d", ErrAmountMismatch, quote.TotalPrice)
	}

	now := time.Now()
	order := models.Order{
		OrderID:       req.OrderID,
		PackageID:     quote.PackageID,
		AddOns:        quote.AddOns,
		ChildName:     strings.TrimSpace(req.ChildInfo.Name),
		ChildAge:      req.ChildInfo.Age,
		ChildMessage:  req.ChildInfo.Message,
		CustomerEmail: req.CustomerEmail,
		PhotoRef:      req.PhotoFilename,
		BasePrice:     quote.BasePrice,
		TotalPrice:    quote.TotalPrice,
		OriginalPrice: quote.OriginalPrice,
		PaymentStatus: models.PaymentUnpaid,
		Status:        models.StatusPending,
		CreatedAt:     now,
	}

	if order.OrderID == "" {
		order.OrderID = orderIDPrefix + uuid.NewString()
		s.logger.LogOrder("PREPARE", order.OrderID, "Created new pending order")
		if err := s.DB.CreateOrder(ctx, order); err != nil {
			return nil, fmt.Errorf("failed to create order: %w", err)
		}
	} else {
		existing, err := s.DB.GetOrderByID(ctx, order.OrderID)
		switch {
		case errors.Is(err, store.ErrNotFound):
			if err := s.DB.CreateOrder(ctx, order); err != nil {
				return nil, fmt.Errorf("failed to create order: %w", err)
			}
		case err != nil:
			return nil, err
		case existing.PaymentStatus == models.PaymentPaid:
			return nil, fmt.Errorf("%w: order %s is already paid", ErrValidation, order.OrderID)
		default:
			order.CreatedAt = existing.CreatedAt
			if err := s.DB.UpdateOrder(ctx, order); err != nil {
				return nil, fmt.Errorf("failed to overwrite pending order: %w", err)
			}
			s.logger.LogOrder("PREPARE", order.OrderID, "Overwrote pending order")
		}
	}

	s.publish(s.Topics.OrderCreated, "order.created", order)
	return &order, nil
}

// ConfirmPayment verifies the amount against the stored order, confirms with
// the external gateway and flips unpaid→paid, pending→processing. Any failure
// leaves the order exactly as it was.
func (s *OrderService) ConfirmPayment(ctx context.Context, paymentKey, orderID string, amount int64) (*models.Order, error) {
	unlock, err := s.lockOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	order, err := s.DB.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order.PaymentStatus == models.PaymentPaid {
		return nil, ErrAlreadyPaid
	}
	if order.TotalPrice != amount {
		s.logger.LogOrder("CONFIRM", orderID, fmt.Sprintf("Amount mismatch: got %d, want %d", amount, order.TotalPrice))
		return nil, fmt.Errorf("%w: got %d, want %d", ErrAmountMismatch, amount, order.TotalPrice)
	}

	conf, err := s.Gateway.Confirm(ctx, paymentKey, orderID, amount)
	if err != nil {
		s.logger.LogOrder("CONFIRM", orderID, fmt.Sprintf("Gateway rejected payment: %v", err))
		return nil, fmt.Errorf("payment confirmation failed: %w", err)
	}

	order.PaymentStatus = models.PaymentPaid
	order.PaymentKey = conf.PaymentKey
	order.PaidAt = time.Now()
	order.Status = models.StatusProcessing

	if err := s.DB.UpdateOrder(ctx, *order); err != nil {
		// The gateway has the money but our record didn't stick; surface
		// loudly rather than pretend the order is unpaid.
		s.logger.Error("ORDER", fmt.Sprintf("Paid order %s could not be persisted: %v", orderID, err))
		return nil, fmt.Errorf("failed to persist paid order: %w", err)
	}

	s.logger.LogOrder("CONFIRM", orderID, fmt.Sprintf("Payment confirmed, total %d", order.TotalPrice))
	s.notify(notify.Job{Type: notify.JobPaymentConfirmed, Order: *order})
	s.publish(s.Topics.OrderPaid, "order.paid", *order)
	return order, nil
}

// GetOrderWithQueue returns the order plus its queue projection when it is
// still being worked on.
func (s *OrderService) GetOrderWithQueue(ctx context.Context, orderID string) (*models.OrderWithQueue, error) {
	order, err := s.DB.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	result := &models.OrderWithQueue{Order: order}
	if order.Processing() {
		processing, err := s.DB.ListProcessing(ctx)
		if err != nil {
			return nil, err
		}
		projection := s.Estimator.Project(orderID, processing, time.Now())
		result.Queue = &projection
	}
	return result, nil
}

// QueueStatus summarizes the current queue for the status widget.
func (s *OrderService) QueueStatus(ctx context.Context) (*models.QueueStatus, error) {
	processing, err := s.DB.ListProcessing(ctx)
	if err != nil {
		return nil, err
	}
	status := s.Estimator.Status(processing, time.Now())
	return &status, nil
}

// ListOrdersWithStats backs the admin dashboard.
func (s *OrderService) ListOrdersWithStats(ctx context.Context) (*models.AdminOrdersResponse, error) {
	orders, err := s.DB.ListOrders(ctx)
	if err != nil {
		return nil, err
	}
	return &models.AdminOrdersResponse{
		Orders: orders,
		Stats:  models.CalcStats(orders),
	}, nil
}

// OverrideStatus is the admin's manual transition. It still honors the
// forward-only state machine.
func (s *OrderService) OverrideStatus(ctx context.Context, orderID string, status models.OrderStatus) (*models.Order, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, status)
	}

	unlock, err := s.lockOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	order, err := s.DB.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !order.Status.CanTransitionTo(status) {
		return nil, fmt.Errorf("%w: %s → %s", ErrInvalidTransition, order.Status, status)
	}

	order.Status = status
	if status == models.StatusCompleted && order.CompletedAt.IsZero() {
		order.CompletedAt = time.Now()
		s.Estimator.RecordCompletion(order.PaidAt, order.CompletedAt)
	}

	if err := s.DB.UpdateOrder(ctx, *order); err != nil {
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}

	s.logger.LogOrder("OVERRIDE", orderID, fmt.Sprintf("Status set to %s", status))
	if status == models.StatusCompleted {
		s.publish(s.Topics.OrderCompleted, "order.completed", *order)
	}
	return order, nil
}

// AttachDelivery stores the finished files on a processing order and marks
// it ready for the operator's final send.
func (s *OrderService) AttachDelivery(ctx context.Context, orderID string, files []string) (*models.Order, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no delivery files given", ErrValidation)
	}

	unlock, err := s.lockOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	order, err := s.DB.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order.Status != models.StatusProcessing {
		return nil, fmt.Errorf("%w: %s → %s", ErrInvalidTransition, order.Status, models.StatusReady)
	}

	order.Status = models.StatusReady
	order.DeliveryFiles = files

	if err := s.DB.UpdateOrder(ctx, *order); err != nil {
		return nil, fmt.Errorf("failed to attach delivery files: %w", err)
	}

	s.logger.LogOrder("DELIVERY", orderID, fmt.Sprintf("Attached %d delivery files", len(files)))
	return order, nil
}

// SendDelivery completes the order: the customer gets the download link and
// the processing-duration sample feeds the queue estimator.
func (s *OrderService) SendDelivery(ctx context.Context, orderID, link string) (*models.Order, error) {
	if link == "" {
		return nil, fmt.Errorf("%w: delivery link is required", ErrValidation)
	}

	unlock, err := s.lockOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	order, err := s.DB.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order.Status != models.StatusProcessing && order.Status != models.StatusReady {
		return nil, fmt.Errorf("%w: %s → %s", ErrInvalidTransition, order.Status, models.StatusCompleted)
	}

	order.Status = models.StatusCompleted
	order.DeliveryLink = link
	if order.CompletedAt.IsZero() {
		order.CompletedAt = time.Now()
	}

	if err := s.DB.UpdateOrder(ctx, *order); err != nil {
		return nil, fmt.Errorf("failed to complete order: %w", err)
	}

	s.Estimator.RecordCompletion(order.PaidAt, order.CompletedAt)
	s.logger.LogOrder("DELIVERY", orderID, "Order completed, delivery email queued")
	s.notify(notify.Job{Type: notify.JobDelivery, Order: *order, Link: link})
	s.publish(s.Topics.OrderCompleted, "order.completed", *order)
	return order, nil
}

func (s *OrderService) lockOrder(ctx context.Context, orderID string) (func(), error) {
	token := uuid.NewString()
	ok, err := s.Lock.LockOrder(ctx, orderID, token)
	if err != nil {
		return nil, fmt.Errorf("order lock error: %w", err)
	}
	if !ok {
		return nil, ErrOrderBusy
	}
	return func() {
		if err := s.Lock.UnlockOrder(ctx, orderID, token); err != nil {
			s.logger.Warn("ORDER", fmt.Sprintf("Failed to unlock order %s: %v", orderID, err))
		}
	}, nil
}

func (s *OrderService) publish(topic, eventType string, order models.Order) {
	if s.Events == nil {
		return
	}
	if err := s.Events.PublishOrderEvent(topic, eventType, order); err != nil {
		s.logger.Warn("KAFKA", fmt.Sprintf("Publish error (%s): %v", eventType, err))
	}
}

func (s *OrderService) notify(job notify.Job) {
	if s.Outbox == nil {
		return
	}
	s.Outbox.Enqueue(job)
}
