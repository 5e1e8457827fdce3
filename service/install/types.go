package install

import (
	"context"
	"errors"

	"github.com/mmo-fsw/maxbuild/model"
	"github.com/mmo-fsw/maxbuild/service/account"
	"github.com/mmo-fsw/maxbuild/service/archive"
	"github.com/mmo-fsw/maxbuild/service/runner"
	"github.com/mmo-fsw/maxbuild/service/systemd"
	"go.uber.org/zap"
)

// ErrNotRoot is returned when a live install or uninstall runs unprivileged.
var ErrNotRoot = errors.New("live install requires root; set --stage-dir or STAGEDIR to stage instead")

// Report actions.
const (
	ActionInstall   = "install"
	ActionUninstall = "uninstall"
	ActionSystemd   = "systemd"
)

type service struct {
	archive  archive.Service
	accounts account.Service
	units    systemd.Service
	runner   runner.Service
	geteuid  func() int
	chown    func(root, owner, group string) error
	log      *zap.Logger
}

// Service deploys built programs to the live system or a stage directory.
type Service interface {
	Install(ctx context.Context, project *model.Project, prog model.Program, st model.Stamp) (*model.InstallReport, error)
	Uninstall(ctx context.Context, project *model.Project, prog model.Program) (*model.InstallReport, error)
	Systemd(ctx context.Context, project *model.Project, prog model.Program) (*model.InstallReport, error)
}
