package runner

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

var (
	// ErrCommandFailed wraps a non-zero exit of an external tool.
	ErrCommandFailed = errors.New("command failed")
	// ErrToolNotFound is returned when a tool is missing from PATH.
	ErrToolNotFound = errors.New("tool not found")
)

// Command is a single external tool invocation.
type Command struct {
	Name string
	Args []string
	Dir  string
	Env  []string
}

type service struct {
	log *zap.Logger
}

// Service runs external tools.
type Service interface {
	Run(ctx context.Context, cmd Command) error
	Output(ctx context.Context, cmd Command) (string, error)
	LookPath(name string) (string, error)
}
