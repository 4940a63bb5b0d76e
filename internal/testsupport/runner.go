package testsupport

import (
	"context"
	"strings"
	"sync"

	"sdrprep/internal/procrun"
)

// RunnerResponse is one scripted command outcome.
type RunnerResponse struct {
	Result procrun.Result
	Err    error
}

// FakeRunner satisfies procrun.Runner with scripted responses. Responses are
// keyed by the full command line ("path arg1 arg2 ...") with a fallback on
// the bare executable path; per-key responses are consumed in order with the
// last one repeating. Unmatched commands succeed with exit zero.
type FakeRunner struct {
	mu        sync.Mutex
	responses map[string][]RunnerResponse
	calls     []procrun.Command
}

// NewFakeRunner constructs an empty fake runner.
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{responses: make(map[string][]RunnerResponse)}
}

// Script appends a response for the given command key.
func (f *FakeRunner) Script(key string, responses ...RunnerResponse) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[key] = append(f.responses[key], responses...)
}

// ScriptExit is shorthand for a plain exit-code response.
func (f *FakeRunner) ScriptExit(key string, exitCode int) {
	f.Script(key, RunnerResponse{Result: procrun.Result{ExitCode: exitCode}})
}

// Run returns the next scripted response for the command.
func (f *FakeRunner) Run(ctx context.Context, cmd procrun.Command) (procrun.Result, error) {
	if err := ctx.Err(); err != nil {
		return procrun.Result{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, cmd)

	key := CommandLine(cmd)
	queue, ok := f.responses[key]
	if !ok {
		queue, ok = f.responses[cmd.Path]
	}
	if !ok || len(queue) == 0 {
		return procrun.Result{ExitCode: 0}, nil
	}

	resp := queue[0]
	if len(queue) > 1 {
		if _, exact := f.responses[key]; exact {
			f.responses[key] = queue[1:]
		} else {
			f.responses[cmd.Path] = queue[1:]
		}
	}
	return resp.Result, resp.Err
}

// Calls returns a copy of every command observed.
func (f *FakeRunner) Calls() []procrun.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]procrun.Command(nil), f.calls...)
}

// CallCount returns how many observed commands start with the given prefix.
func (f *FakeRunner) CallCount(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, cmd := range f.calls {
		if strings.HasPrefix(CommandLine(cmd), prefix) {
			count++
		}
	}
	return count
}

// Reset clears recorded calls but keeps scripted responses.
func (f *FakeRunner) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

// CommandLine renders a command as the key format Script expects.
func CommandLine(cmd procrun.Command) string {
	parts := append([]string{cmd.Path}, cmd.Args...)
	return strings.Join(parts, " ")
}
