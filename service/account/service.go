// Package account creates and removes the system user and group that own an
// installed program.
package account

import (
	"context"
	"errors"
	"fmt"
	"os/user"
	"strings"

	"github.com/mmo-fsw/maxbuild/service/runner"
)

// NewService creates an account service backed by os/user lookups.
func NewService(r runner.Service) Service {
	return &service{runner: r, lookupUser: user.Lookup, lookupGroup: user.LookupGroup}
}

func (s *service) EnsureGroup(ctx context.Context, name string) (string, error) {
	exists, err := s.groupExists(name)
	if err != nil {
		return "", err
	}
	if exists {
		return Exists, nil
	}
	if err := s.runner.Run(ctx, runner.Command{Name: "groupadd", Args: []string{"--system", name}}); err != nil {
		return "", fmt.Errorf("create group %s: %w", name, err)
	}
	return Created, nil
}

func (s *service) EnsureUser(ctx context.Context, spec UserSpec) (string, error) {
	exists, err := s.userExists(spec.Name)
	if err != nil {
		return "", err
	}
	groups := strings.Join(spec.Groups, ",")

	if exists {
		if groups == "" {
			return Exists, nil
		}
		if err := s.runner.Run(ctx, runner.Command{Name: "usermod", Args: []string{"--append", "--groups", groups, spec.Name}}); err != nil {
			return "", fmt.Errorf("update user %s: %w", spec.Name, err)
		}
		return Updated, nil
	}

	args := []string{
		"--system",
		"--gid", spec.Group,
		"--home-dir", spec.Home,
		"--no-create-home",
		"--shell", spec.Shell,
	}
	if groups != "" {
		args = append(args, "--groups", groups)
	}
	args = append(args, spec.Name)
	if err := s.runner.Run(ctx, runner.Command{Name: "useradd", Args: args}); err != nil {
		return "", fmt.Errorf("create user %s: %w", spec.Name, err)
	}
	return Created, nil
}

func (s *service) RemoveUser(ctx context.Context, name string) (bool, error) {
	exists, err := s.userExists(name)
	if err != nil || !exists {
		return false, err
	}
	if err := s.runner.Run(ctx, runner.Command{Name: "userdel", Args: []string{name}}); err != nil {
		return false, fmt.Errorf("remove user %s: %w", name, err)
	}
	return true, nil
}

func (s *service) RemoveGroup(ctx context.Context, name string) (bool, error) {
	exists, err := s.groupExists(name)
	if err != nil || !exists {
		return false, err
	}
	if err := s.runner.Run(ctx, runner.Command{Name: "groupdel", Args: []string{name}}); err != nil {
		return false, fmt.Errorf("remove group %s: %w", name, err)
	}
	return true, nil
}

func (s *service) userExists(name string) (bool, error) {
	_, err := s.lookupUser(name)
	if err == nil {
		return true, nil
	}
	var unknown user.UnknownUserError
	if errors.As(err, &unknown) {
		return false, nil
	}
	return false, fmt.Errorf("lookup user %s: %w", name, err)
}

func (s *service) groupExists(name string) (bool, error) {
	_, err := s.lookupGroup(name)
	if err == nil {
		return true, nil
	}
	var unknown user.UnknownGroupError
	if errors.As(err, &unknown) {
		return false, nil
	}
	return false, fmt.Errorf("lookup group %s: %w", name, err)
}
