// Package orchestrator runs make-style targets over the selected programs.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mmo-fsw/maxbuild/model"
	"github.com/mmo-fsw/maxbuild/service/archive"
	"github.com/mmo-fsw/maxbuild/service/install"
	"github.com/mmo-fsw/maxbuild/service/metrics"
	"github.com/mmo-fsw/maxbuild/service/output"
	"github.com/mmo-fsw/maxbuild/service/stamp"
	"github.com/mmo-fsw/maxbuild/service/storage"
	"github.com/mmo-fsw/maxbuild/service/toolchain"
	"github.com/mmo-fsw/maxbuild/shared/spinner"
	"go.uber.org/zap"
)

// NewService creates a new orchestrator service. storageService may be nil
// when history is disabled.
func NewService(
	toolchainService toolchain.Service,
	stampService stamp.Service,
	archiveService archive.Service,
	installService install.Service,
	outputService output.Service,
	metricsService metrics.Service,
	storageService storage.Service,
	versionInfo model.VersionInfo,
	log *zap.Logger,
) Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &service{
		toolchainService: toolchainService,
		stampService:     stampService,
		archiveService:   archiveService,
		installService:   installService,
		outputService:    outputService,
		metricsService:   metricsService,
		storageService:   storageService,
		versionInfo:      versionInfo,
		log:              log.Named("orchestrator"),
	}
}

// ExpandTargets resolves the all and remake aliases and rejects unknown
// targets before anything runs.
func ExpandTargets(targets []string) ([]string, error) {
	var out []string
	for _, t := range targets {
		switch t {
		case TargetAll:
			out = append(out, TargetRelease, TargetDebug)
		case TargetRemake:
			out = append(out, TargetClean, TargetRelease, TargetDebug)
		case TargetRelease, TargetDebug, TargetClean, TargetLint, TargetDist, TargetInstall, TargetUninstall, TargetSystemd:
			out = append(out, t)
		default:
			if strings.HasSuffix(t, toolchain.PreSuffix) && len(t) > len(toolchain.PreSuffix) {
				out = append(out, t)
				continue
			}
			return nil, fmt.Errorf("%w: %s", ErrUnknownTarget, t)
		}
	}
	return out, nil
}

func (s *service) Orchestrate(ctx context.Context, project *model.Project, progs []model.Program, flags model.Flags) error {
	targets, err := ExpandTargets(flags.Targets)
	if err != nil {
		return err
	}
	defer func() {
		if flags.MetricsFile == "" || s.metricsService == nil {
			return
		}
		if werr := s.metricsService.WriteTextfile(flags.MetricsFile); werr != nil {
			s.log.Warn("failed to write metrics", zap.String("path", flags.MetricsFile), zap.Error(werr))
		}
	}()

	st := s.stampService.Capture(ctx, project.Dir)
	s.log.Debug("stamp", zap.String("builder", st.Builder), zap.Int64("epoch", st.Epoch), zap.String("commit", st.Commit))

	var pre []*model.PreprocessResult
	for _, target := range targets {
		if strings.HasSuffix(target, toolchain.PreSuffix) {
			res, err := s.toolchainService.Preprocess(ctx, project, target, st)
			if err != nil {
				return s.fail(target, err)
			}
			pre = append(pre, res)
			continue
		}
		if len(pre) > 0 {
			if err := s.outputService.Preprocess(pre); err != nil {
				return err
			}
			pre = nil
		}
		if err := s.run(ctx, target, project, progs, st, flags); err != nil {
			return s.fail(target, err)
		}
	}
	if len(pre) > 0 {
		return s.outputService.Preprocess(pre)
	}
	return nil
}

func (s *service) fail(target string, err error) error {
	if s.metricsService != nil {
		s.metricsService.TargetFailed(target)
	}
	return fmt.Errorf("target %s: %w", target, err)
}

func (s *service) run(ctx context.Context, target string, project *model.Project, progs []model.Program, st model.Stamp, flags model.Flags) error {
	s.log.Info("target", zap.String("target", target), zap.Int("programs", len(progs)))
	switch target {
	case TargetRelease:
		return s.build(ctx, project, progs, model.ModeRelease, st, flags)
	case TargetDebug:
		return s.build(ctx, project, progs, model.ModeDebug, st, flags)
	case TargetClean:
		res, err := s.toolchainService.Clean(project, progs)
		if err != nil {
			return err
		}
		return s.outputService.Clean(res)
	case TargetLint:
		return s.lint(ctx, project, progs)
	case TargetDist:
		return s.dist(project, progs, st)
	case TargetInstall, TargetUninstall, TargetSystemd:
		return s.deploy(ctx, target, project, progs, st, flags)
	}
	return fmt.Errorf("%w: %s", ErrUnknownTarget, target)
}

func (s *service) build(ctx context.Context, project *model.Project, progs []model.Program, mode model.BuildMode, st model.Stamp, flags model.Flags) error {
	results := make([]*model.BuildResult, 0, len(progs))
	spinner.StartSpinner(fmt.Sprintf("Building %s...", mode))
	for i, prog := range progs {
		spinner.UpdateSpinner(fmt.Sprintf("Building %s (%s, %s) [%d/%d]...", prog.Name, mode, project.Build.Arch, i+1, len(progs)))
		res, err := s.toolchainService.Build(ctx, project, prog, mode, st)

		s.saveBuild(ctx, flags, project, prog, mode, st, res, err)
		if err != nil {
			spinner.StopSpinner()
			if len(results) > 0 {
				_ = s.outputService.Builds(results)
			}
			return err
		}
		if s.metricsService != nil {
			s.metricsService.ObserveBuild(res)
		}
		results = append(results, res)
	}
	spinner.StopSpinner()
	return s.outputService.Builds(results)
}

func (s *service) lint(ctx context.Context, project *model.Project, progs []model.Program) error {
	var results []*model.LintResult
	var failed error
	for _, prog := range progs {
		res, err := s.toolchainService.Lint(ctx, project, prog)
		if err != nil && !errors.Is(err, toolchain.ErrLintFailed) {
			return err
		}
		if err != nil && failed == nil {
			failed = err
		}
		results = append(results, res)
	}
	if err := s.outputService.Lint(results); err != nil {
		return err
	}
	return failed
}

func (s *service) dist(project *model.Project, progs []model.Program, st model.Stamp) error {
	var results []*model.DistResult
	for _, prog := range progs {
		res, err := s.archiveService.Dist(project, prog, st)
		if err != nil {
			return err
		}
		results = append(results, res)
	}
	return s.outputService.Dist(results)
}

func (s *service) deploy(ctx context.Context, target string, project *model.Project, progs []model.Program, st model.Stamp, flags model.Flags) error {
	var reports []*model.InstallReport
	for _, prog := range progs {
		var rep *model.InstallReport
		var err error
		switch target {
		case TargetInstall:
			rep, err = s.installService.Install(ctx, project, prog, st)
		case TargetUninstall:
			rep, err = s.installService.Uninstall(ctx, project, prog)
		default:
			rep, err = s.installService.Systemd(ctx, project, prog)
		}
		s.saveInstall(ctx, flags, rep, err)
		if rep != nil {
			reports = append(reports, rep)
		}
		if err != nil {
			_ = s.outputService.Installs(reports)
			return err
		}
	}
	return s.outputService.Installs(reports)
}

func (s *service) saveBuild(ctx context.Context, flags model.Flags, project *model.Project, prog model.Program, mode model.BuildMode, st model.Stamp, res *model.BuildResult, buildErr error) {
	if s.storageService == nil || !flags.Store {
		return
	}
	_, err := s.storageService.SaveBuild(ctx, storage.SaveBuildInput{
		Program: prog.Name,
		Mode:    mode,
		Arch:    project.Build.Arch,
		Stamp:   st,
		Result:  res,
		Err:     buildErr,
		Version: s.versionInfo.Version,
	})
	if err != nil {
		s.log.Warn("failed to record build", zap.String("program", prog.Name), zap.Error(err))
	}
}

func (s *service) saveInstall(ctx context.Context, flags model.Flags, rep *model.InstallReport, installErr error) {
	if s.storageService == nil || !flags.Store || rep == nil {
		return
	}
	_, err := s.storageService.SaveInstall(ctx, storage.SaveInstallInput{Report: rep, Err: installErr, Version: s.versionInfo.Version})
	if err != nil {
		s.log.Warn("failed to record install", zap.String("program", rep.Program), zap.Error(err))
	}
}
