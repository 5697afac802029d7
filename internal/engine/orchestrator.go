// Package engine validates completion requests and drives backend calls,
// single and fanned out across models, streaming and not.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"llmarena/internal/core"
	"llmarena/internal/observability"
)

const (
	backendTimeoutMessage = "Request timed out. The LLM service is taking too long to respond."
	providerFailurePrefix = "Failed to generate response: "
)

// Orchestrator runs validated requests against the backends serving the
// registry's models.
type Orchestrator struct {
	models core.BackendResolver
	opts   Options
}

// NewOrchestrator creates an orchestrator over models.
func NewOrchestrator(models core.BackendResolver, opts Options) *Orchestrator {
	opts.setDefaults()
	return &Orchestrator{models: models, opts: opts}
}

// Models returns the registry the orchestrator resolves against.
func (o *Orchestrator) Models() core.ModelLookup {
	return o.models
}

// Plan is a validated request: resolved descriptors in request order plus
// the effective pacing.
type Plan struct {
	Prompt string
	Models []core.ModelDescriptor
	Pacing time.Duration
}

// Validate checks req in order: prompt, pacing, selection size, duplicates,
// unknown ids. The first failure wins.
func (o *Orchestrator) Validate(req core.CompletionRequest) (*Plan, error) {
	trimmed := strings.TrimSpace(req.Prompt)
	if trimmed == "" {
		return nil, core.NewInvalidPromptError("prompt must not be empty")
	}
	if n := utf8.RuneCountInString(req.Prompt); n > o.opts.MaxPromptLength {
		return nil, core.NewInvalidPromptError(
			fmt.Sprintf("prompt is %d characters, maximum is %d", n, o.opts.MaxPromptLength))
	}

	pacing := req.Pacing
	switch {
	case pacing == 0:
		pacing = o.opts.DefaultPacing
	case pacing < 0:
		return nil, core.NewInvalidPacingError("delay must be positive")
	case pacing > o.opts.MaxPacing:
		return nil, core.NewInvalidPacingError(
			fmt.Sprintf("delay must not exceed %s", o.opts.MaxPacing))
	}

	if len(req.ModelIDs) == 0 {
		return nil, core.NewInvalidModelSelectionError("at least one model must be selected")
	}
	if len(req.ModelIDs) > o.opts.MaxModels {
		return nil, core.NewInvalidModelSelectionError(
			fmt.Sprintf("at most %d models can be selected, got %d", o.opts.MaxModels, len(req.ModelIDs)))
	}

	seen := make(map[string]struct{}, len(req.ModelIDs))
	for _, id := range req.ModelIDs {
		if _, dup := seen[id]; dup {
			return nil, core.NewDuplicateModelSelectionError(id)
		}
		seen[id] = struct{}{}
	}

	descriptors := make([]core.ModelDescriptor, 0, len(req.ModelIDs))
	for _, id := range req.ModelIDs {
		model, ok := o.models.Lookup(id)
		if !ok {
			return nil, core.NewUnknownModelError(id, o.models.IDs())
		}
		descriptors = append(descriptors, model)
	}

	return &Plan{Prompt: req.Prompt, Models: descriptors, Pacing: pacing}, nil
}

// Complete validates and runs a single-model non-streaming request. Backend
// failures are reported inside the result; only validation fails the call.
func (o *Orchestrator) Complete(ctx context.Context, modelID, prompt string, pacing time.Duration) (*core.CompletionResult, error) {
	plan, err := o.Validate(core.CompletionRequest{Prompt: prompt, ModelIDs: []string{modelID}, Pacing: pacing})
	if err != nil {
		return nil, err
	}
	result := o.complete(ctx, plan.Models[0], plan.Prompt, plan.Pacing)
	return &result, nil
}

// Stream validates a single-model request and starts streaming it. The
// returned channel carries chunk events followed by exactly one terminal
// event, then closes. Cancelling ctx stops the stream early.
func (o *Orchestrator) Stream(ctx context.Context, modelID, prompt string, pacing time.Duration) (<-chan core.Event, error) {
	plan, err := o.Validate(core.CompletionRequest{Prompt: prompt, ModelIDs: []string{modelID}, Pacing: pacing})
	if err != nil {
		return nil, err
	}

	out := make(chan core.Event)
	go func() {
		defer close(out)
		o.opts.Hooks.StreamOpened()
		defer o.opts.Hooks.StreamClosed()
		o.streamModel(ctx, plan.Models[0], plan.Prompt, plan.Pacing, sender(ctx, out))
	}()
	return out, nil
}

// complete performs one backend call and folds any failure into the result.
func (o *Orchestrator) complete(ctx context.Context, model core.ModelDescriptor, prompt string, pacing time.Duration) core.CompletionResult {
	result := core.CompletionResult{
		ID:      o.opts.NewID(),
		ModelID: model.ID,
		Prompt:  prompt,
	}

	callCtx, cancel := o.callContext(ctx)
	defer cancel()

	start := time.Now()
	content, err := o.callComplete(callCtx, model, prompt, pacing)
	err = o.classify(ctx, callCtx, model, err)
	o.opts.Hooks.CallFinished(model, observability.ModeComplete, observability.Outcome(err), time.Since(start))

	result.ProducedAt = o.opts.Now()
	if err != nil {
		gwErr := core.AsGatewayError(err)
		logFailure(ctx, model, gwErr)
		result.Error = publicMessage(gwErr)
		result.ErrorType = gwErr.Type
		return result
	}
	result.Content = content
	return result
}

func (o *Orchestrator) callComplete(ctx context.Context, model core.ModelDescriptor, prompt string, pacing time.Duration) (string, error) {
	backend, err := o.models.BackendFor(model)
	if err != nil {
		return "", err
	}
	content, err := backend.Complete(ctx, model, prompt)
	if err != nil {
		return "", err
	}
	if content == "" {
		return "", core.NewProviderError(model.Provider, http.StatusBadGateway, providerFailurePrefix+"response contained no content", nil)
	}
	if model.Provider == core.ProviderSimulated {
		if err := o.think(ctx, content, pacing); err != nil {
			return "", err
		}
	}
	return content, nil
}

// think holds a simulated answer back for half the pacing per character,
// bounded by MaxThinkingTime.
func (o *Orchestrator) think(ctx context.Context, content string, pacing time.Duration) error {
	d := time.Duration(utf8.RuneCountInString(content)) * pacing / 2
	d = min(d, o.opts.MaxThinkingTime)
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// streamModel streams one model through emit. Unless emit reports that the
// consumer is gone, exactly one terminal event is emitted: the final chunk or
// an error event.
func (o *Orchestrator) streamModel(ctx context.Context, model core.ModelDescriptor, prompt string, pacing time.Duration, emit func(core.Event) bool) {
	callCtx, cancel := o.callContext(ctx)
	defer cancel()

	start := time.Now()
	var callErr error
	defer func() {
		o.opts.Hooks.CallFinished(model, observability.ModeStream, observability.Outcome(callErr), time.Since(start))
	}()

	fail := func(err error) {
		callErr = o.classify(ctx, callCtx, model, err)
		gwErr := core.AsGatewayError(callErr)
		if ctx.Err() == nil {
			logFailure(ctx, model, gwErr)
		}
		emit(errorEvent(model.ID, gwErr, o.opts.Now()))
	}

	backend, err := o.models.BackendFor(model)
	if err != nil {
		fail(err)
		return
	}
	stream, err := backend.Stream(callCtx, model, prompt, pacing)
	if err != nil {
		fail(err)
		return
	}
	defer func() { _ = stream.Close() }()

	seq := newSequencer(model.ID, o.opts.Now)
	for {
		frag, err := stream.Recv()
		switch {
		case errors.Is(err, io.EOF):
			// ended without a final marker
			emit(seq.final())
			return
		case err != nil:
			fail(err)
			return
		case frag.Final:
			emit(seq.final())
			return
		case frag.Text == "":
			continue
		}

		o.opts.Hooks.ChunkEmitted(model)
		if !emit(seq.chunk(frag.Text)) {
			callErr = ctx.Err()
			return
		}
	}
}

// callContext derives the per-call context bounded by BackendTimeout.
func (o *Orchestrator) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.opts.BackendTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, o.opts.BackendTimeout)
}

// classify turns an expired deadline into the error its backend kind
// reports: timed_out for simulated models, provider_error for live ones.
// Other errors, including cancellation by the caller, are returned unchanged.
func (o *Orchestrator) classify(parent, call context.Context, model core.ModelDescriptor, err error) error {
	if err == nil || parent.Err() != nil {
		return err
	}
	if !errors.Is(call.Err(), context.DeadlineExceeded) && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if model.Provider == core.ProviderSimulated {
		return core.NewTimeoutError(model.Provider, backendTimeoutMessage, err)
	}
	return core.NewProviderError(model.Provider, http.StatusGatewayTimeout, providerFailurePrefix+backendTimeoutMessage, err)
}

func logFailure(ctx context.Context, model core.ModelDescriptor, err *core.GatewayError) {
	core.Logger(ctx).Warn("backend call failed",
		"llm_id", model.ID,
		"provider", model.Provider,
		"error_type", string(err.Type),
		"error", err.Error(),
	)
}

// sender returns an emit function delivering to out until ctx is done.
func sender(ctx context.Context, out chan<- core.Event) func(core.Event) bool {
	return func(ev core.Event) bool {
		select {
		case out <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}
}
