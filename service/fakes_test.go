package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/layer-3/tradeclient/core"
	"github.com/layer-3/tradeclient/ports"
)

// pendingCall is a request held by fakeAPI until the test answers it
type pendingCall struct {
	private bool
	method  string
	route   string
	params  map[string]interface{}
	reply   chan callOutcome
}

func (p *pendingCall) respond(body string) {
	p.reply <- callOutcome{result: core.Result{StatusCode: 200, Body: []byte(body)}}
}

func (p *pendingCall) fail(err error) {
	p.reply <- callOutcome{err: err}
}

// fakeAPI blocks every call until the test responds, so completion order is scripted
type fakeAPI struct {
	calls chan *pendingCall
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{calls: make(chan *pendingCall, 16)}
}

func (f *fakeAPI) PublicCall(ctx context.Context, method, route string, params map[string]interface{}) (core.Result, error) {
	return f.call(false, method, route, params)
}

func (f *fakeAPI) PrivateCall(ctx context.Context, method, route string, params map[string]interface{}) (core.Result, error) {
	return f.call(true, method, route, params)
}

func (f *fakeAPI) call(private bool, method, route string, params map[string]interface{}) (core.Result, error) {
	p := &pendingCall{private: private, method: method, route: route, params: params, reply: make(chan callOutcome, 1)}
	f.calls <- p
	out := <-p.reply
	return out.result, out.err
}

func (f *fakeAPI) next(t *testing.T) *pendingCall {
	t.Helper()
	select {
	case p := <-f.calls:
		return p
	case <-time.After(5 * time.Second):
		t.Fatal("no call reached the exchange")
		return nil
	}
}

// recordingPublisher keeps every published event
type recordingPublisher struct {
	mu          sync.Mutex
	generations []ports.GenerationChanged
	completions []ports.CompletionEvent
}

func (r *recordingPublisher) PublishGenerationChanged(ctx context.Context, e ports.GenerationChanged) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.generations = append(r.generations, e)
	return nil
}

func (r *recordingPublisher) PublishCompletion(ctx context.Context, e ports.CompletionEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completions = append(r.completions, e)
	return nil
}

func (r *recordingPublisher) lateCompletions() []ports.CompletionEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []ports.CompletionEvent
	for _, e := range r.completions {
		if e.Late {
			out = append(out, e)
		}
	}
	return out
}

// manualTimer hands out one channel that the test fires explicitly
type manualTimer struct {
	fire chan time.Time
}

func newManualTimer() *manualTimer {
	return &manualTimer{fire: make(chan time.Time)}
}

func (m *manualTimer) After(time.Duration) <-chan time.Time {
	return m.fire
}

type runResult struct {
	completion Completion
	err        error
}

func runAsync(fn func() (Completion, error)) <-chan runResult {
	ch := make(chan runResult, 1)
	go func() {
		c, err := fn()
		ch <- runResult{completion: c, err: err}
	}()
	return ch
}

func await(t *testing.T, ch <-chan runResult) runResult {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("operation did not return")
		return runResult{}
	}
}
