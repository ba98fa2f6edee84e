package manager

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"scoopbox/internal/cache"
)

type response struct {
	stdout string
	stderr string
	code   int
}

// fakeRunner answers commands from a table keyed by the joined arguments and
// records every call. Unknown commands succeed with empty output.
type fakeRunner struct {
	mu        sync.Mutex
	calls     []string
	responses map[string]response
	hooks     map[string]func()
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{responses: make(map[string]response), hooks: make(map[string]func())}
}

func (f *fakeRunner) on(cmd string, r response) *fakeRunner {
	f.responses[cmd] = r
	return f
}

// onCall runs fn whenever cmd is executed, before its response is returned.
func (f *fakeRunner) onCall(cmd string, fn func()) *fakeRunner {
	f.hooks[cmd] = fn
	return f
}

func (f *fakeRunner) Run(_ context.Context, args ...string) (Result, error) {
	key := strings.Join(args, " ")
	f.mu.Lock()
	f.calls = append(f.calls, key)
	r := f.responses[key]
	hook := f.hooks[key]
	f.mu.Unlock()
	if hook != nil {
		hook()
	}

	res := Result{Stdout: r.stdout, Stderr: r.stderr, ExitCode: r.code}
	if r.code != 0 {
		return res, &CommandError{
			Args:     append([]string{"scoop"}, args...),
			ExitCode: r.code,
			Stdout:   r.stdout,
			Stderr:   r.stderr,
		}
	}
	return res, nil
}

func (f *fakeRunner) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeRunner) count(cmd string) int {
	n := 0
	for _, c := range f.Calls() {
		if c == cmd {
			n++
		}
	}
	return n
}

func (f *fakeRunner) reset() {
	f.mu.Lock()
	f.calls = nil
	f.mu.Unlock()
}

const cacheDir = "/cache"

func newTestScoop(t *testing.T, r *fakeRunner, policy Policy) (*Scoop, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	c := cache.Open(fs, cacheDir, zap.NewNop())
	return New(r, c, Options{Policy: policy, Logger: zap.NewNop()}), fs
}
