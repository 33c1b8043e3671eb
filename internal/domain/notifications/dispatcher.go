package notifications

import (
	"context"

	"hrflow/internal/platform/jobs"
)

// Dispatcher hands notifications to the background job queue. Send returns
// as soon as the notification is queued.
type Dispatcher struct {
	jobs    *jobs.Service
	service *Service
}

func NewDispatcher(jobs *jobs.Service, service *Service) *Dispatcher {
	return &Dispatcher{jobs: jobs, service: service}
}

func (d *Dispatcher) Send(_ context.Context, n Notification) error {
	queued := d.jobs.Enqueue(jobs.JobNotification, n.TenantID, func(ctx context.Context) error {
		return d.service.Deliver(ctx, n)
	})
	if !queued {
		return ErrQueueFull
	}
	return nil
}
