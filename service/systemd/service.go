// Package systemd generates and registers the unit file of an installed program.
package systemd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/coreos/go-systemd/v22/unit"
	"github.com/mmo-fsw/maxbuild/model"
	"github.com/mmo-fsw/maxbuild/service/runner"
)

// NewService creates a systemd service.
func NewService(r runner.Service) Service {
	return &service{runner: r}
}

func (s *service) Render(prog model.Program) ([]byte, error) {
	svc := prog.Service
	if svc == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoService, prog.Name)
	}

	opts := []*unit.UnitOption{unit.NewUnitOption("Unit", "Description", svc.Description)}
	if len(svc.After) > 0 {
		opts = append(opts, unit.NewUnitOption("Unit", "After", strings.Join(svc.After, " ")))
	}
	if len(svc.Wants) > 0 {
		opts = append(opts, unit.NewUnitOption("Unit", "Wants", strings.Join(svc.Wants, " ")))
	}

	exec := []string{execArg(filepath.Join(prog.InstallDir, "bin", prog.Name))}
	for _, a := range svc.Args {
		exec = append(exec, execArg(a))
	}
	opts = append(opts,
		unit.NewUnitOption("Service", "Type", "simple"),
		unit.NewUnitOption("Service", "User", prog.User),
		unit.NewUnitOption("Service", "Group", prog.Group),
		unit.NewUnitOption("Service", "WorkingDirectory", prog.InstallDir),
		unit.NewUnitOption("Service", "ExecStart", strings.Join(exec, " ")),
		unit.NewUnitOption("Service", "Restart", svc.Restart),
		unit.NewUnitOption("Service", "RestartSec", strconv.Itoa(svc.RestartSec)),
	)
	for _, env := range svc.Environment {
		opts = append(opts, unit.NewUnitOption("Service", "Environment", strconv.Quote(env)))
	}
	if len(prog.Capabilities) > 0 {
		caps := make([]string, 0, len(prog.Capabilities))
		for _, c := range prog.Capabilities {
			caps = append(caps, strings.ToUpper(c))
		}
		opts = append(opts, unit.NewUnitOption("Service", "AmbientCapabilities", strings.Join(caps, " ")))
	}
	opts = append(opts, unit.NewUnitOption("Install", "WantedBy", svc.WantedBy))

	return io.ReadAll(unit.Serialize(opts))
}

// execArg escapes one ExecStart word: specifiers and variables are doubled,
// and words systemd would split are double quoted.
func execArg(a string) string {
	a = strings.ReplaceAll(a, "%", "%%")
	a = strings.ReplaceAll(a, "$", "$$")
	if a == "" || strings.ContainsAny(a, " \t\n\"'\\;") {
		return strconv.Quote(a)
	}
	return a
}

// UnitPath is where the unit of prog lands, below the stage dir when staged.
func UnitPath(project *model.Project, prog model.Program) string {
	return filepath.Join(project.Install.StageDir, project.Install.SystemdDir, prog.ServiceName())
}

func (s *service) WriteUnit(project *model.Project, prog model.Program) (string, error) {
	data, err := s.Render(prog)
	if err != nil {
		return "", err
	}
	path := UnitPath(project, prog)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, UnitMode); err != nil {
		return "", err
	}
	return path, os.Chmod(path, UnitMode)
}

func (s *service) RemoveUnit(project *model.Project, prog model.Program) (bool, error) {
	err := os.Remove(UnitPath(project, prog))
	if os.IsNotExist(err) {
		return false, nil
	}
	return err == nil, err
}

func (s *service) Activate(ctx context.Context, prog model.Program) error {
	if err := s.Reload(ctx); err != nil {
		return err
	}
	if err := s.systemctl(ctx, "enable", prog.ServiceName()); err != nil {
		return err
	}
	return s.systemctl(ctx, "restart", prog.ServiceName())
}

func (s *service) Stop(ctx context.Context, prog model.Program) error {
	return s.systemctl(ctx, "stop", prog.ServiceName())
}

func (s *service) Disable(ctx context.Context, prog model.Program) error {
	return s.systemctl(ctx, "disable", prog.ServiceName())
}

func (s *service) Reload(ctx context.Context) error {
	return s.systemctl(ctx, "daemon-reload")
}

func (s *service) systemctl(ctx context.Context, args ...string) error {
	if err := s.runner.Run(ctx, runner.Command{Name: "systemctl", Args: args}); err != nil {
		return fmt.Errorf("systemctl %s: %w", strings.Join(args, " "), err)
	}
	return nil
}
