// Package queue derives the customer-facing "you are #N in line" projection
// from the set of processing paid orders. It is advisory only: no worker
// pool or capacity is modeled, just a running average and a rank.
package queue

import (
	"sync"
	"time"

	"santamoment/internal/models"
)

type Estimator struct {
	mu sync.Mutex
	// running mean over all completions since process start
	totalMinutes float64
	completed    int

	defaultAvgMinutes float64
	deadline          time.Time
}

func NewEstimator(defaultAvgMinutes float64, deadline time.Time) *Estimator {
	return &Estimator{
		defaultAvgMinutes: defaultAvgMinutes,
		deadline:          deadline,
	}
}

// AvgProcessMinutes returns the running mean processing duration, or the
// configured default before the first completion.
func (e *Estimator) AvgProcessMinutes() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.completed == 0 {
		return e.defaultAvgMinutes
	}
	return e.totalMinutes / float64(e.completed)
}

// RecordCompletion feeds one processing-duration sample, measured from
// payment to completion. Samples without a paid timestamp are ignored.
func (e *Estimator) RecordCompletion(paidAt, completedAt time.Time) {
	if paidAt.IsZero() || completedAt.Before(paidAt) {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.totalMinutes += completedAt.Sub(paidAt).Minutes()
	e.completed++
}

// Position ranks the order among the processing paid orders by payment time,
// oldest first. An order not present in the set ranks last.
func (e *Estimator) Position(orderID string, processing []models.Order) int {
	var target *models.Order
	for i := range processing {
		if processing[i].OrderID == orderID {
			target = &processing[i]
			break
		}
	}
	if target == nil {
		return len(processing) + 1
	}

	position := 1
	for i := range processing {
		if processing[i].OrderID == target.OrderID {
			continue
		}
		if processing[i].PaidAt.Before(target.PaidAt) {
			position++
		}
	}
	return position
}

// Project computes the wait estimate for one order given the current queue.
func (e *Estimator) Project(orderID string, processing []models.Order, now time.Time) models.QueueProjection {
	position := e.Position(orderID, processing)
	wait := float64(position-1) * e.AvgProcessMinutes()
	estimated := now.Add(time.Duration(wait * float64(time.Minute)))

	return models.QueueProjection{
		Position:      position,
		WaitMinutes:   wait,
		EstimatedTime: estimated,
		MakesDeadline: !estimated.After(e.deadline),
	}
}

// Status summarizes the whole queue for GET /api/queue/status.
func (e *Estimator) Status(processing []models.Order, now time.Time) models.QueueStatus {
	return models.QueueStatus{
		Depth:             len(processing),
		AvgProcessMinutes: e.AvgProcessMinutes(),
		Deadline:          e.deadline,
		Open:              now.Before(e.deadline),
	}
}
