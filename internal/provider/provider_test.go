package provider

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/dump-analysis/internal/storage"
	"github.com/dump-analysis/pkg/errors"
)

var collectStart = time.Date(2024, 3, 5, 15, 0, 0, 0, time.UTC)

// fakeRunner answers commands from canned output keyed by command name.
type fakeRunner struct {
	mu      sync.Mutex
	outputs map[string][]string
	errs    map[string]error
	calls   []string
	onRun   func(call int)
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		outputs: make(map[string][]string),
		errs:    make(map[string]error),
	}
}

// respond queues outputs for name. The last output repeats once the queue drains.
func (r *fakeRunner) respond(name string, outputs ...string) *fakeRunner {
	r.outputs[name] = append(r.outputs[name], outputs...)
	return r
}

func (r *fakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	r.mu.Lock()
	r.calls = append(r.calls, name+" "+strings.Join(args, " "))
	call := len(r.calls)
	hook := r.onRun
	r.mu.Unlock()

	if hook != nil {
		hook(call)
	}
	if err := r.errs[name]; err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	queue := r.outputs[name]
	if len(queue) == 0 {
		return nil, fmt.Errorf("%s: command not found", name)
	}
	out := queue[0]
	if len(queue) > 1 {
		r.outputs[name] = queue[1:]
	}
	return []byte(out), nil
}

func (r *fakeRunner) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.calls))
	copy(out, r.calls)
	return out
}

// failingStore rejects every write.
type failingStore struct {
	storage.Storage
}

func (failingStore) Put(context.Context, string, io.Reader) error {
	return errors.New(errors.CodeStorageError, "disk full")
}
