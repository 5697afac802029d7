package engine

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"llmarena/internal/core"
	"llmarena/internal/observability"
)

// script drives fakeBackend for one model id.
type script struct {
	content   string
	err       error
	fragments []string
	gap       time.Duration
	// midErr is returned by Recv after failAfter fragments.
	midErr    error
	failAfter int
	noFinal   bool
}

type fakeBackend struct {
	scripts map[string]script
	closed  atomic.Int32
}

func (f *fakeBackend) Complete(ctx context.Context, model core.ModelDescriptor, _ string) (string, error) {
	s := f.scripts[model.ID]
	if err := wait(ctx, s.gap); err != nil {
		return "", err
	}
	if s.err != nil {
		return "", s.err
	}
	return s.content, nil
}

func (f *fakeBackend) Stream(_ context.Context, model core.ModelDescriptor, _ string, _ time.Duration) (core.FragmentStream, error) {
	s := f.scripts[model.ID]
	if s.err != nil {
		return nil, s.err
	}
	return &fakeStream{script: s, owner: f}, nil
}

type fakeStream struct {
	script
	owner *fakeBackend
	pos   int
	done  bool
}

func (s *fakeStream) Recv() (core.Fragment, error) {
	if s.done {
		return core.Fragment{}, io.EOF
	}
	if s.midErr != nil && s.pos == s.failAfter {
		s.done = true
		return core.Fragment{}, s.midErr
	}
	if s.pos == len(s.fragments) {
		s.done = true
		if s.noFinal {
			return core.Fragment{}, io.EOF
		}
		return core.Fragment{Final: true}, nil
	}
	time.Sleep(s.gap)
	f := core.Fragment{Text: s.fragments[s.pos]}
	s.pos++
	return f, nil
}

func (s *fakeStream) Close() error {
	s.owner.closed.Add(1)
	return nil
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// blockingBackend streams nothing until its context ends.
type blockingBackend struct{}

func (blockingBackend) Complete(ctx context.Context, _ core.ModelDescriptor, _ string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func (blockingBackend) Stream(ctx context.Context, _ core.ModelDescriptor, _ string, _ time.Duration) (core.FragmentStream, error) {
	return &blockingStream{ctx: ctx}, nil
}

type blockingStream struct{ ctx context.Context }

func (s *blockingStream) Recv() (core.Fragment, error) {
	<-s.ctx.Done()
	return core.Fragment{}, s.ctx.Err()
}

func (s *blockingStream) Close() error { return nil }

// fakeResolver serves every model from one backend unless overridden.
type fakeResolver struct {
	models    []core.ModelDescriptor
	backend   core.Backend
	overrides map[string]core.Backend
}

func newResolver(backend core.Backend, ids ...string) *fakeResolver {
	r := &fakeResolver{backend: backend, overrides: map[string]core.Backend{}}
	for _, id := range ids {
		r.models = append(r.models, core.ModelDescriptor{ID: id, Provider: "fake"})
	}
	return r
}

func (r *fakeResolver) Lookup(id string) (core.ModelDescriptor, bool) {
	for _, m := range r.models {
		if m.ID == id {
			return m, true
		}
	}
	return core.ModelDescriptor{}, false
}

func (r *fakeResolver) List() []core.ModelDescriptor { return r.models }

func (r *fakeResolver) IDs() []string {
	ids := make([]string, len(r.models))
	for i, m := range r.models {
		ids[i] = m.ID
	}
	return ids
}

func (r *fakeResolver) BackendFor(model core.ModelDescriptor) (core.Backend, error) {
	if b, ok := r.overrides[model.ID]; ok {
		return b, nil
	}
	return r.backend, nil
}

// recordingHooks counts hook invocations.
type recordingHooks struct {
	mu       sync.Mutex
	outcomes map[string]string
	chunks   int
	opened   int
	closed   int
}

func newRecordingHooks() *recordingHooks {
	return &recordingHooks{outcomes: map[string]string{}}
}

func (h *recordingHooks) CallFinished(model core.ModelDescriptor, _ string, outcome string, _ time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.outcomes[model.ID] = outcome
}

func (h *recordingHooks) ChunkEmitted(core.ModelDescriptor) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.chunks++
}

func (h *recordingHooks) StreamOpened() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.opened++
}

func (h *recordingHooks) StreamClosed() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed++
}

var _ observability.Hooks = (*recordingHooks)(nil)

func testOptions() Options {
	return Options{
		MaxPromptLength: 1000,
		MaxModels:       5,
		DefaultPacing:   time.Millisecond,
		MaxPacing:       time.Second,
		NewID:           func() string { return "id-1" },
	}
}

func collect(ch <-chan core.Event) []core.Event {
	var events []core.Event
	for ev := range ch {
		events = append(events, ev)
	}
	return events
}
