package orchestrator

import (
	"context"
	"errors"

	"github.com/mmo-fsw/maxbuild/model"
	"github.com/mmo-fsw/maxbuild/service/archive"
	"github.com/mmo-fsw/maxbuild/service/install"
	"github.com/mmo-fsw/maxbuild/service/metrics"
	"github.com/mmo-fsw/maxbuild/service/output"
	"github.com/mmo-fsw/maxbuild/service/stamp"
	"github.com/mmo-fsw/maxbuild/service/storage"
	"github.com/mmo-fsw/maxbuild/service/toolchain"
	"go.uber.org/zap"
)

// ErrUnknownTarget is returned for targets that are neither built in nor %.PRE.
var ErrUnknownTarget = errors.New("unknown target")

// Targets understood by Orchestrate, besides any name ending in .PRE.
const (
	TargetAll       = "all"
	TargetRelease   = "release"
	TargetDebug     = "debug"
	TargetClean     = "clean"
	TargetRemake    = "remake"
	TargetLint      = "lint"
	TargetDist      = "dist"
	TargetInstall   = "install"
	TargetUninstall = "uninstall"
	TargetSystemd   = "systemd"
)

type service struct {
	toolchainService toolchain.Service
	stampService     stamp.Service
	archiveService   archive.Service
	installService   install.Service
	outputService    output.Service
	metricsService   metrics.Service
	storageService   storage.Service
	versionInfo      model.VersionInfo
	log              *zap.Logger
}

// Service is the interface for orchestrator service.
type Service interface {
	Orchestrate(ctx context.Context, project *model.Project, progs []model.Program, flags model.Flags) error
}
