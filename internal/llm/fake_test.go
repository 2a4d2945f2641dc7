package llm

import (
	"context"
	"net/http"
	"sync"
)

type fakeReply struct {
	text   string
	status int
	block  bool
}

// fakeCompleter answers from a per-model script and records calls.
type fakeCompleter struct {
	name    Provider
	replies map[string][]fakeReply

	mu    sync.Mutex
	calls []fakeCall
}

type fakeCall struct {
	model      string
	expectJSON bool
}

func newFake(name Provider) *fakeCompleter {
	return &fakeCompleter{name: name, replies: map[string][]fakeReply{}}
}

func (f *fakeCompleter) on(model string, replies ...fakeReply) *fakeCompleter {
	f.replies[model] = append(f.replies[model], replies...)
	return f
}

func (f *fakeCompleter) Name() Provider { return f.name }

func (f *fakeCompleter) Complete(ctx context.Context, model, prompt string, expectJSON bool) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, fakeCall{model: model, expectJSON: expectJSON})
	var r fakeReply
	if queue := f.replies[model]; len(queue) > 0 {
		r = queue[0]
		if len(queue) > 1 {
			f.replies[model] = queue[1:]
		}
	} else {
		r = fakeReply{status: http.StatusInternalServerError}
	}
	f.mu.Unlock()

	if r.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if r.status != 0 && r.status != http.StatusOK {
		return "", &StatusError{Provider: f.name, Model: model, Code: r.status}
	}
	return r.text, nil
}

func (f *fakeCompleter) models() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.calls))
	for _, c := range f.calls {
		out = append(out, c.model)
	}
	return out
}

func ok(text string) fakeReply { return fakeReply{text: text, status: http.StatusOK} }

func fail(status int) fakeReply { return fakeReply{status: status} }

func hang() fakeReply { return fakeReply{block: true} }

// fakeGenerator is a Generator returning a fixed result.
type fakeGenerator struct {
	text  string
	err   error
	calls int
}

func (g *fakeGenerator) Generate(_ context.Context, _ string, _ Options) (string, error) {
	g.calls++
	return g.text, g.err
}
