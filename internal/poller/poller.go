package poller

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"mediagen/internal/domain"
	"mediagen/internal/infra"
	"mediagen/internal/provider"
)

// StatusQuerier fetches the raw provider status payload for a task.
type StatusQuerier interface {
	QueryTask(ctx context.Context, ref domain.ModelRef, externalTaskID string) (json.RawMessage, error)
}

// Options bounds a single task's polling loop. The budget is wall-clock time
// measured from the task's start; whichever of budget and attempt cap is hit
// first forces a timeout failure.
type Options struct {
	InitialDelay time.Duration
	Interval     time.Duration
	Budget       time.Duration
	MaxAttempts  int
}

func (o Options) withDefaults() Options {
	if o.InitialDelay <= 0 {
		o.InitialDelay = 5 * time.Second
	}
	if o.Interval <= 0 {
		o.Interval = 10 * time.Second
	}
	if o.Budget <= 0 {
		o.Budget = 10 * time.Minute
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 60
	}
	return o
}

// Poller drives one detached polling loop per task from PENDING to a single
// terminal task store write. Loops share nothing but the store; each owns its
// own budget. Store write failures surface on Errors.
type Poller struct {
	ctx     context.Context
	querier StatusQuerier
	tasks   domain.TaskRepository
	logger  infra.Logger
	opts    Options
	errs    chan error
	wg      sync.WaitGroup
}

// New constructs a poller supervisor. The context bounds all loops it spawns:
// cancelling it stops future poll attempts without interrupting a terminal
// write already in progress.
func New(ctx context.Context, querier StatusQuerier, tasks domain.TaskRepository, logger infra.Logger, opts Options) *Poller {
	return &Poller{
		ctx:     ctx,
		querier: querier,
		tasks:   tasks,
		logger:  logger,
		opts:    opts.withDefaults(),
		errs:    make(chan error, 16),
	}
}

// Errors exposes task store write failures to a supervising caller. The
// poller never retries a store write itself.
func (p *Poller) Errors() <-chan error {
	return p.errs
}

// Start launches the polling loop for a freshly created task and returns
// immediately.
func (p *Poller) Start(taskID string, ref domain.ModelRef, externalTaskID string) {
	p.launch(taskID, ref, externalTaskID, time.Now())
}

// Resume re-attaches a polling loop to a PENDING task that survived a process
// restart. The budget counts from the task's original creation time.
func (p *Poller) Resume(task domain.GenerationTask) {
	ref := domain.ModelRef{Service: task.Service, Model: task.Model}
	p.launch(task.ID, ref, task.ExternalTaskID, task.CreatedAt)
}

// Wait blocks until every launched loop has finished.
func (p *Poller) Wait() {
	p.wg.Wait()
}

func (p *Poller) launch(taskID string, ref domain.ModelRef, externalTaskID string, startedAt time.Time) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.run(taskID, ref, externalTaskID, startedAt)
	}()
}

func (p *Poller) run(taskID string, ref domain.ModelRef, externalTaskID string, startedAt time.Time) {
	log := p.logger.With().
		Str("task_id", taskID).
		Str("model", ref.String()).
		Str("external_task_id", externalTaskID).
		Logger()

	norm, err := provider.NormalizerFor(ref)
	if err != nil {
		log.Error().Err(err).Msg("poller: no normalizer for model")
		p.report(fmt.Errorf("poller: task %s: %w", taskID, err))
		return
	}

	deadline := startedAt.Add(p.opts.Budget)
	wait := p.opts.InitialDelay
	for attempt := 1; ; attempt++ {
		select {
		case <-p.ctx.Done():
			log.Warn().Msg("poller: shutting down, task left pending")
			return
		case <-time.After(wait):
		}
		wait = p.opts.Interval

		if attempt > p.opts.MaxAttempts || time.Now().After(deadline) {
			log.Warn().Int("attempts", attempt-1).Msg("poller: budget exceeded")
			p.finish(taskID, domain.TaskFinish{
				Status:         domain.TaskStatusFailed,
				FailureCode:    domain.FailureCodePollTimeout,
				FailureMessage: "generation did not complete within the polling budget",
				CompletedAt:    time.Now().UTC(),
			})
			return
		}

		raw, err := p.querier.QueryTask(p.ctx, ref, externalTaskID)
		if err != nil {
			log.Error().Err(err).Int("attempt", attempt).Msg("poller: status query failed")
			continue
		}

		outcome, err := norm.Normalize(raw)
		if err != nil {
			log.Error().Err(err).Int("attempt", attempt).Msg("poller: normalize failed")
			continue
		}

		switch outcome.State {
		case provider.OutcomePending:
			log.Debug().Int("attempt", attempt).Msg("poller: still pending")
		case provider.OutcomeSuccess:
			result, err := json.Marshal(outcome.URLs)
			if err != nil {
				log.Error().Err(err).Msg("poller: encode result urls")
				continue
			}
			log.Info().Int("urls", len(outcome.URLs)).Msg("poller: task succeeded")
			p.finish(taskID, domain.TaskFinish{
				Status:      domain.TaskStatusSuccess,
				ResultJSON:  result,
				CompletedAt: time.Now().UTC(),
			})
			return
		case provider.OutcomeFailed:
			log.Info().
				Str("failure_code", outcome.FailureCode).
				Str("failure_message", outcome.FailureMessage).
				Msg("poller: task failed")
			p.finish(taskID, domain.TaskFinish{
				Status:         domain.TaskStatusFailed,
				FailureCode:    outcome.FailureCode,
				FailureMessage: outcome.FailureMessage,
				CompletedAt:    time.Now().UTC(),
			})
			return
		}
	}
}

// finish applies the single terminal write. It runs on a fresh context so a
// process shutdown cannot corrupt a write already underway.
func (p *Poller) finish(taskID string, fin domain.TaskFinish) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := p.tasks.Finish(ctx, taskID, fin); err != nil {
		p.logger.Error().Err(err).Str("task_id", taskID).Msg("poller: terminal write failed")
		p.report(fmt.Errorf("poller: finish task %s: %w", taskID, err))
	}
}

func (p *Poller) report(err error) {
	select {
	case p.errs <- err:
	default:
	}
}
