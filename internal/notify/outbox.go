// Package notify delivers customer email asynchronously. State transitions
// enqueue a job on the outbox; a worker sends with bounded retries, so a
// flaky mail server can never fail a payment confirmation.
package notify

import (
	"fmt"
	"sync"
	"time"

	"santamoment/internal/logger"
	"santamoment/internal/models"
)

type JobType string

const (
	JobPaymentConfirmed JobType = "payment_confirmed"
	JobDelivery         JobType = "delivery"
)

type Job struct {
	Type  JobType
	Order models.Order
	// Link is the download link for delivery jobs.
	Link string
}

// Sender delivers one notification. Implementations make a single attempt.
type Sender interface {
	Send(job Job) error
}

type Outbox struct {
	jobs        chan Job
	sender      Sender
	log         *logger.Logger
	maxAttempts int
	backoff     time.Duration

	wg   sync.WaitGroup
	once sync.Once
}

func NewOutbox(sender Sender, log *logger.Logger) *Outbox {
	return &Outbox{
		jobs:        make(chan Job, 64),
		sender:      sender,
		log:         log,
		maxAttempts: 3,
		backoff:     2 * time.Second,
	}
}

// Start launches the delivery worker.
func (o *Outbox) Start() {
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		for job := range o.jobs {
			o.deliver(job)
		}
	}()
}

// Enqueue hands a job to the worker without blocking the caller. A full
// outbox drops the job and logs it; the admin dashboard still shows the
// order, so delivery can be retriggered by hand.
func (o *Outbox) Enqueue(job Job) {
	select {
	case o.jobs <- job:
		o.log.Info("OUTBOX", fmt.Sprintf("Enqueued %s notification for order %s", job.Type, job.Order.OrderID))
	default:
		o.log.Error("OUTBOX", fmt.Sprintf("Outbox full, dropping %s notification for order %s", job.Type, job.Order.OrderID))
	}
}

func (o *Outbox) deliver(job Job) {
	var err error
	for attempt := 1; attempt <= o.maxAttempts; attempt++ {
		err = o.sender.Send(job)
		if err == nil {
			o.log.Info("OUTBOX", fmt.Sprintf("Delivered %s notification for order %s (attempt %d)", job.Type, job.Order.OrderID, attempt))
			return
		}
		o.log.Warn("OUTBOX", fmt.Sprintf("Attempt %d/%d for order %s failed: %v", attempt, o.maxAttempts, job.Order.OrderID, err))
		if attempt < o.maxAttempts {
			time.Sleep(time.Duration(attempt) * o.backoff)
		}
	}
	o.log.Error("OUTBOX", fmt.Sprintf("Giving up on %s notification for order %s: %v", job.Type, job.Order.OrderID, err))
}

// Close stops accepting jobs and waits for the worker to drain the queue.
func (o *Outbox) Close() {
	o.once.Do(func() {
		close(o.jobs)
	})
	o.wg.Wait()
}
