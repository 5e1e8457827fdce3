package runner

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Fake records commands instead of executing them. Handlers keyed by tool
// name may simulate output, failures or side effects such as writing files.
type Fake struct {
	mu       sync.Mutex
	Commands []Command
	Handlers map[string]func(Command) (string, error)
	Missing  map[string]bool
}

// NewFake returns a Fake with no handlers; every command succeeds silently.
func NewFake() *Fake {
	return &Fake{Handlers: map[string]func(Command) (string, error){}, Missing: map[string]bool{}}
}

func (f *Fake) Run(ctx context.Context, cmd Command) error {
	_, err := f.Output(ctx, cmd)
	return err
}

func (f *Fake) Output(ctx context.Context, cmd Command) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	f.mu.Lock()
	f.Commands = append(f.Commands, cmd)
	h := f.Handlers[cmd.Name]
	f.mu.Unlock()
	if h == nil {
		return "", nil
	}
	return h(cmd)
}

func (f *Fake) LookPath(name string) (string, error) {
	if f.Missing[name] {
		return "", fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	return "/usr/bin/" + name, nil
}

// Lines returns every recorded command rendered as a string.
func (f *Fake) Lines() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.Commands))
	for _, c := range f.Commands {
		out = append(out, c.String())
	}
	return out
}

// Called reports whether any recorded command line starts with prefix.
func (f *Fake) Called(prefix string) bool {
	for _, l := range f.Lines() {
		if strings.HasPrefix(l, prefix) {
			return true
		}
	}
	return false
}
