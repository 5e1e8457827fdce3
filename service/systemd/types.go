package systemd

import (
	"context"
	"errors"

	"github.com/mmo-fsw/maxbuild/model"
	"github.com/mmo-fsw/maxbuild/service/runner"
)

// ErrNoService is returned for programs whose manifest entry has no service section.
var ErrNoService = errors.New("program has no service section")

// UnitMode is the permission of installed unit files.
const UnitMode = 0o644

type service struct {
	runner runner.Service
}

// Service renders unit files and drives systemctl.
type Service interface {
	Render(prog model.Program) ([]byte, error)
	WriteUnit(project *model.Project, prog model.Program) (string, error)
	RemoveUnit(project *model.Project, prog model.Program) (bool, error)
	Activate(ctx context.Context, prog model.Program) error
	Stop(ctx context.Context, prog model.Program) error
	Disable(ctx context.Context, prog model.Program) error
	Reload(ctx context.Context) error
}
