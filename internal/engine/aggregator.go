package engine

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"llmarena/internal/core"
)

// BatchComplete runs every model of req concurrently. Results keep request
// order and one model's failure never affects another's result.
func (o *Orchestrator) BatchComplete(ctx context.Context, req core.CompletionRequest) (*core.BatchResult, error) {
	plan, err := o.Validate(req)
	if err != nil {
		return nil, err
	}

	results := make([]core.CompletionResult, len(plan.Models))
	var g errgroup.Group
	for i, model := range plan.Models {
		g.Go(func() error {
			results[i] = o.complete(ctx, model, plan.Prompt, plan.Pacing)
			return nil
		})
	}
	_ = g.Wait()

	return NewBatchResult(results, o.opts.Now()), nil
}

// BatchStream streams every model of req concurrently and merges their
// events in arrival order. Chunks are tagged with their source model. The
// channel closes after every model has emitted its terminal event, or once
// ctx is cancelled and every per-model worker has returned.
func (o *Orchestrator) BatchStream(ctx context.Context, req core.CompletionRequest) (<-chan core.Event, error) {
	plan, err := o.Validate(req)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	merged := make(chan core.Event)
	out := make(chan core.Event)

	var wg sync.WaitGroup
	for _, model := range plan.Models {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o.streamModel(ctx, model, plan.Prompt, plan.Pacing, sender(ctx, merged))
		}()
	}

	go func() {
		o.opts.Hooks.StreamOpened()
		defer func() {
			cancel()
			wg.Wait()
			o.opts.Hooks.StreamClosed()
			close(out)
		}()
		merge(ctx, merged, out, len(plan.Models))
	}()

	return out, nil
}

// merge forwards events from in to out until pending streams have all
// terminated or ctx is done.
func merge(ctx context.Context, in <-chan core.Event, out chan<- core.Event, pending int) {
	for pending > 0 {
		var ev core.Event
		select {
		case ev = <-in:
		case <-ctx.Done():
			return
		}

		if ev.Chunk != nil {
			ev.Chunk.SourceModelID = ev.Chunk.ModelID
		}
		if ev.Terminal() {
			pending--
		}

		select {
		case out <- ev:
		case <-ctx.Done():
			return
		}
	}
}
