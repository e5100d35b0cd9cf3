package webhook

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"

	"github.com/ManuelReschke/OrgPilot/app/models"
	"github.com/ManuelReschke/OrgPilot/app/repository"
)

// HandlerFunc runs the business logic for one stored event. Expected business
// outcomes return nil; only unexpected failures return an error.
type HandlerFunc func(ctx context.Context, event *models.WebhookEvent) error

// Processor drains pending events through the registered handlers.
type Processor struct {
	repo     repository.WebhookEventRepository
	handlers map[DispatchKey]HandlerFunc
	metrics  Metrics
	now      func() time.Time
}

// NewProcessor creates a processor with no handlers. Unregistered
// (event type, action) pairs are marked processed without doing anything.
func NewProcessor(repo repository.WebhookEventRepository, metrics Metrics) *Processor {
	if metrics == nil {
		metrics = NoopMetrics{}
	}
	return &Processor{
		repo:     repo,
		handlers: make(map[DispatchKey]HandlerFunc),
		metrics:  metrics,
		now:      time.Now,
	}
}

// Handle registers h for key, replacing any previous handler.
func (p *Processor) Handle(key DispatchKey, h HandlerFunc) {
	p.handlers[key] = h
}

// ProcessPendingEvents resolves every pending event oldest first. A failing
// event is marked failed and the run continues with the next one. The error
// is non-nil only when the pending set could not be read.
func (p *Processor) ProcessPendingEvents(ctx context.Context) (Result, error) {
	result := Result{Errors: []string{}}
	started := p.now()
	runID := uuid.NewString()

	events, err := p.repo.FindPending(ctx)
	if err != nil {
		return result, fmt.Errorf("load pending events: %w", err)
	}
	defer func() { p.metrics.ObserveRun(p.now().Sub(started)) }()

	for i := range events {
		event := &events[i]
		err := p.dispatch(ctx, event)
		if err == nil {
			resolved, markErr := p.repo.MarkProcessed(ctx, event.ID, p.now())
			if markErr == nil {
				if !resolved {
					log.Infof("[WebhookProcessor] run=%s event %d was already resolved by another run", runID, event.ID)
					continue
				}
				result.Processed++
				p.metrics.RecordProcessed(event.EventType, event.ActionName(), models.WebhookStatusProcessed)
				continue
			}
			err = fmt.Errorf("mark processed: %w", markErr)
		}

		msg := err.Error()
		resolved, markErr := p.repo.MarkFailed(ctx, event.ID, msg, p.now())
		if markErr != nil {
			// the row stays pending and is retried by the next run
			log.Errorf("[WebhookProcessor] run=%s could not mark event %d failed: %v", runID, event.ID, markErr)
		} else if !resolved {
			log.Infof("[WebhookProcessor] run=%s event %d was already resolved by another run", runID, event.ID)
			continue
		}
		result.Failed++
		result.Errors = append(result.Errors, fmt.Sprintf("Event %d: %s", event.ID, msg))
		p.metrics.RecordProcessed(event.EventType, event.ActionName(), models.WebhookStatusFailed)
		log.Errorf("[WebhookProcessor] run=%s failed to process event %d: %s", runID, event.ID, msg)
	}

	if len(events) > 0 {
		log.Infof("[WebhookProcessor] run=%s processed %d, failed %d", runID, result.Processed, result.Failed)
	}
	return result, nil
}

func (p *Processor) dispatch(ctx context.Context, event *models.WebhookEvent) (err error) {
	h, ok := p.handlers[DispatchKey{EventType: event.EventType, Action: event.ActionName()}]
	if !ok {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h(ctx, event)
}
