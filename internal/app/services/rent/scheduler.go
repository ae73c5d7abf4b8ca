package rent

import (
	"context"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/brickvest/coinvest_layer/pkg/logger"
)

// Reminder periodically checks the tenant's leases during the payment
// window and logs which ones are payable. It never pays on its own.
type Reminder struct {
	service *Service
	spec    string
	log     *logger.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	entryID cron.EntryID
	running bool
}

// NewReminder creates a reminder on the given cron spec (standard five-field
// syntax, e.g. "0 9 * * *" for 09:00 daily).
func NewReminder(service *Service, spec string, log *logger.Logger) *Reminder {
	if log == nil {
		log = logger.NewDefault("rent-reminder")
	}
	if spec == "" {
		spec = "0 9 * * *"
	}
	return &Reminder{service: service, spec: spec, log: log}
}

// Start schedules the reminder job.
func (r *Reminder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return nil
	}
	c := cron.New()
	id, err := c.AddFunc(r.spec, func() { r.tick(context.Background()) })
	if err != nil {
		return err
	}
	c.Start()
	r.cron = c
	r.entryID = id
	r.running = true
	r.log.WithField("spec", r.spec).Info("rent reminder scheduled")
	return nil
}

// Stop halts the scheduler and waits for a running tick to finish.
func (r *Reminder) Stop(ctx context.Context) error {
	r.mu.Lock()
	c := r.cron
	r.cron = nil
	r.running = false
	r.mu.Unlock()

	if c == nil {
		return nil
	}
	stopCtx := c.Stop()
	select {
	case <-stopCtx.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Reminder) tick(ctx context.Context) {
	rents, err := r.service.MyRents(ctx)
	if err != nil {
		r.log.WithError(err).Warn("reminder could not list leases")
		return
	}
	for _, lease := range rents {
		eligibility, err := r.service.Eligibility(ctx, lease.PropertyID)
		if err != nil {
			r.log.WithError(err).WithField("property_id", lease.PropertyID).Warn("reminder eligibility check failed")
			continue
		}
		if eligibility.CanPay {
			r.log.WithField("property_id", lease.PropertyID).
				WithField("rent_id", lease.ID).
				Info("rent is payable today")
		}
	}
}
