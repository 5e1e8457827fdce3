package account

import (
	"context"
	"os/user"

	"github.com/mmo-fsw/maxbuild/service/runner"
)

// Outcome of an Ensure call.
const (
	Created = "created"
	Exists  = "exists"
	Updated = "updated"
)

// UserSpec describes the system account a program runs as.
type UserSpec struct {
	Name   string
	Group  string
	Home   string
	Shell  string
	Groups []string
}

type service struct {
	runner      runner.Service
	lookupUser  func(string) (*user.User, error)
	lookupGroup func(string) (*user.Group, error)
}

// Service provisions and removes service accounts with the shadow-utils tools.
type Service interface {
	EnsureGroup(ctx context.Context, name string) (string, error)
	EnsureUser(ctx context.Context, spec UserSpec) (string, error)
	RemoveUser(ctx context.Context, name string) (bool, error)
	RemoveGroup(ctx context.Context, name string) (bool, error)
}
