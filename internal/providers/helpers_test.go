package providers

import (
	"context"
	"sync/atomic"
	"time"

	"llmarena/internal/core"
)

// fakeBackend counts calls and returns a fixed answer.
type fakeBackend struct {
	answer string
	err    error
	calls  atomic.Int32
}

func (f *fakeBackend) Complete(_ context.Context, _ core.ModelDescriptor, _ string) (string, error) {
	f.calls.Add(1)
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

func (f *fakeBackend) Stream(_ context.Context, _ core.ModelDescriptor, _ string, _ time.Duration) (core.FragmentStream, error) {
	f.calls.Add(1)
	return nil, f.err
}
