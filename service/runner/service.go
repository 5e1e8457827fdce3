// Package runner executes the compilers, system tools and git on behalf of the
// build and install services.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"go.uber.org/zap"
)

// NewService creates a runner that logs every invocation at debug level.
func NewService(log *zap.Logger) Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &service{log: log.Named("runner")}
}

func (s *service) Run(ctx context.Context, cmd Command) error {
	_, err := s.Output(ctx, cmd)
	return err
}

func (s *service) Output(ctx context.Context, cmd Command) (string, error) {
	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	if len(cmd.Env) > 0 {
		c.Env = append(os.Environ(), cmd.Env...)
	}
	var out bytes.Buffer
	c.Stdout = &out
	c.Stderr = &out

	s.log.Debug("exec", zap.String("cmd", cmd.String()), zap.String("dir", cmd.Dir))
	err := c.Run()
	text := out.String()
	if err != nil {
		var execErr *exec.Error
		if errors.As(err, &execErr) {
			return text, fmt.Errorf("%w: %s", ErrToolNotFound, cmd.Name)
		}
		return text, &ExitError{Command: cmd, Output: strings.TrimSpace(text), Err: err}
	}
	return text, nil
}

func (s *service) LookPath(name string) (string, error) {
	p, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	return p, nil
}

// String renders the command the way a make recipe echo would.
func (c Command) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, c.Name)
	for _, a := range c.Args {
		if a == "" || strings.ContainsAny(a, " \t\"'") {
			a = fmt.Sprintf("%q", a)
		}
		parts = append(parts, a)
	}
	return strings.Join(parts, " ")
}

// ExitError carries the captured output of a failed command.
type ExitError struct {
	Command Command
	Output  string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Output == "" {
		return fmt.Sprintf("%s: %v", e.Command.String(), e.Err)
	}
	return fmt.Sprintf("%s: %v\n%s", e.Command.String(), e.Err, e.Output)
}

func (e *ExitError) Unwrap() []error {
	return []error{ErrCommandFailed, e.Err}
}
