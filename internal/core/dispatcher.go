// ABOUTME: Dispatcher fans all work units out to the inference backend concurrently
// ABOUTME: Contains per-unit failures; aborts the batch only on rate limiting
package core

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/infinitecontext/infinitectx/internal/llm"
	"github.com/infinitecontext/infinitectx/internal/models"
)

// Summary is the terminal accounting for one dispatched batch.
type Summary struct {
	TotalProcessed int
	ErrorCount     int
}

// EmitFunc receives each unit result the moment its call settles, in
// completion order. Consumers reconstruct index order themselves.
type EmitFunc func(models.UnitResult) error

// Dispatcher issues one inference call per work unit. All units are in
// flight at once, capped by maxConcurrent when the batch is large.
type Dispatcher struct {
	backend       llm.Backend
	maxConcurrent int
	logger        *slog.Logger
}

// NewDispatcher builds a dispatcher. maxConcurrent 0 means unbounded.
func NewDispatcher(backend llm.Backend, maxConcurrent int, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		backend:       backend,
		maxConcurrent: maxConcurrent,
		logger:        logger,
	}
}

type outcome struct {
	unit models.WorkUnit
	text string
	err  error
}

// Dispatch runs the batch. Each settled unit produces exactly one emit
// call immediately; nothing is buffered waiting for the others. A
// rate-limit error aborts the remaining wait and is returned to the
// caller; every other unit error is contained as a status:error result.
// The summary is only returned once all units have settled.
func (d *Dispatcher) Dispatch(ctx context.Context, units []models.WorkUnit, emit EmitFunc) (Summary, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var sem chan struct{}
	if d.maxConcurrent > 0 {
		sem = make(chan struct{}, d.maxConcurrent)
	}

	outcomes := make(chan outcome, len(units))
	for _, unit := range units {
		go func(u models.WorkUnit) {
			if sem != nil {
				select {
				case sem <- struct{}{}:
					defer func() { <-sem }()
				case <-ctx.Done():
					outcomes <- outcome{unit: u, err: ctx.Err()}
					return
				}
			}

			text, err := d.backend.Generate(ctx, u.Prompt, unitMedia(u))
			outcomes <- outcome{unit: u, text: text, err: err}
		}(unit)
	}

	summary := Summary{TotalProcessed: len(units)}
	for settled := 0; settled < len(units); settled++ {
		o := <-outcomes

		if o.err != nil && llm.IsRateLimited(o.err) {
			// Batch-fatal: stop waiting, discard whatever is still in
			// flight. Already-emitted results stay valid.
			cancel()
			d.discard(outcomes, len(units)-settled-1)
			return summary, fmt.Errorf("batch aborted: %w", o.err)
		}

		var res models.UnitResult
		if o.err != nil {
			summary.ErrorCount++
			d.logger.Warn("unit failed",
				"unit", o.unit.Index,
				"total", o.unit.TotalUnits,
				"error", o.err)
			res = models.ErrorResult(o.unit, llm.UserMessage(o.err))
		} else {
			res = models.CompleteResult(o.unit, o.text)
		}

		if err := emit(res); err != nil {
			cancel()
			d.discard(outcomes, len(units)-settled-1)
			return summary, fmt.Errorf("emit unit %d: %w", o.unit.Index, err)
		}
	}

	return summary, nil
}

// discard drains the remaining outcomes of an aborted batch in the
// background so unit goroutines never block on the channel.
func (d *Dispatcher) discard(outcomes <-chan outcome, remaining int) {
	if remaining <= 0 {
		return
	}
	go func() {
		for i := 0; i < remaining; i++ {
			o := <-outcomes
			d.logger.Debug("discarding late result from aborted batch", "unit", o.unit.Index)
		}
	}()
}

func unitMedia(u models.WorkUnit) *llm.Media {
	if !u.HasMedia() {
		return nil
	}
	return &llm.Media{Data: u.MediaData, MediaType: u.MediaType}
}
