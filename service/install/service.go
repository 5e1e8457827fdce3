// Package install lays an installed program out on disk and provisions the
// account, capabilities and systemd unit around it.
package install

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mmo-fsw/maxbuild/model"
	"github.com/mmo-fsw/maxbuild/service/account"
	"github.com/mmo-fsw/maxbuild/service/archive"
	"github.com/mmo-fsw/maxbuild/service/runner"
	"github.com/mmo-fsw/maxbuild/service/systemd"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// NewService creates an install service.
func NewService(a archive.Service, acc account.Service, units systemd.Service, r runner.Service, log *zap.Logger) Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &service{
		archive:  a,
		accounts: acc,
		units:    units,
		runner:   r,
		geteuid:  unix.Geteuid,
		chown:    chownTree,
		log:      log.Named("install"),
	}
}

func newReport(project *model.Project, prog model.Program, action string) *model.InstallReport {
	return &model.InstallReport{
		Program:  prog.Name,
		Action:   action,
		Staged:   project.Install.Staged(),
		StageDir: project.Install.StageDir,
	}
}

// Root is the install directory of prog, below the stage dir when staged.
func Root(project *model.Project, prog model.Program) string {
	return filepath.Join(project.Install.StageDir, prog.InstallDir)
}

func (s *service) requireRoot(project *model.Project) error {
	if project.Install.Staged() || s.geteuid() == 0 {
		return nil
	}
	return ErrNotRoot
}

func (s *service) Install(ctx context.Context, project *model.Project, prog model.Program, st model.Stamp) (*model.InstallReport, error) {
	rep := newReport(project, prog, ActionInstall)
	live := !project.Install.Staged()

	exe := project.Executable(prog, model.ModeRelease)
	if _, err := os.Stat(exe); err != nil {
		return rep, fmt.Errorf("%w: %s not found", archive.ErrNoReleaseBuild, exe)
	}
	rep.Add("release build", model.StepOK, exe)

	if err := s.requireRoot(project); err != nil {
		return rep, err
	}

	if live {
		s.stopService(ctx, prog, rep)
		if err := removeSocket(prog, rep); err != nil {
			return rep, err
		}
		if err := s.ensureAccount(ctx, project, prog, rep); err != nil {
			return rep, err
		}
	} else {
		rep.Add("stop service", model.StepSkipped, "staged")
		rep.Add("remove socket", model.StepSkipped, "staged")
		rep.Add("account", model.StepSkipped, "staged")
	}

	root := Root(project, prog)
	if err := os.MkdirAll(filepath.Join(root, "bin"), 0o755); err != nil {
		return rep, fmt.Errorf("create %s: %w", root, err)
	}
	rep.Add("create tree", model.StepOK, root)

	bundle, _, err := s.archive.RuntimeBundle(project, prog, st)
	if err != nil {
		return rep, err
	}
	files, err := s.archive.Extract(bundle, root)
	if err != nil {
		return rep, fmt.Errorf("extract %s: %w", filepath.Base(bundle), err)
	}
	rep.Add("install files", model.StepOK, fmt.Sprintf("%d files from %s", len(files), filepath.Base(bundle)))

	if live {
		if err := s.chown(root, prog.User, prog.Group); err != nil {
			return rep, fmt.Errorf("chown %s: %w", root, err)
		}
		rep.Add("chown", model.StepOK, prog.User+":"+prog.Group)
	} else {
		rep.Add("chown", model.StepSkipped, "staged")
	}

	switch {
	case len(prog.Capabilities) == 0:
		rep.Add("setcap", model.StepSkipped, "no capabilities")
	case !live:
		rep.Add("setcap", model.StepSkipped, "staged")
	default:
		caps := strings.Join(prog.Capabilities, ",") + "+ep"
		bin := filepath.Join(root, "bin", prog.Name)
		if err := s.runner.Run(ctx, runner.Command{Name: "setcap", Args: []string{caps, bin}}); err != nil {
			return rep, fmt.Errorf("setcap %s: %w", prog.Name, err)
		}
		rep.Add("setcap", model.StepOK, caps)
	}

	if err := s.installUnit(ctx, project, prog, rep); err != nil {
		return rep, err
	}
	s.log.Info("installed", zap.String("program", prog.Name), zap.String("root", root), zap.Bool("staged", !live))
	return rep, nil
}

func (s *service) Systemd(ctx context.Context, project *model.Project, prog model.Program) (*model.InstallReport, error) {
	rep := newReport(project, prog, ActionSystemd)
	if err := s.requireRoot(project); err != nil {
		return rep, err
	}
	return rep, s.installUnit(ctx, project, prog, rep)
}

func (s *service) installUnit(ctx context.Context, project *model.Project, prog model.Program, rep *model.InstallReport) error {
	if prog.Service == nil {
		rep.Add("unit", model.StepSkipped, "no service section")
		return nil
	}
	path, err := s.units.WriteUnit(project, prog)
	if err != nil {
		return fmt.Errorf("write unit: %w", err)
	}
	rep.Add("unit", model.StepOK, path)

	if project.Install.Staged() {
		rep.Add("activate", model.StepSkipped, "staged")
		return nil
	}
	if err := s.units.Activate(ctx, prog); err != nil {
		return err
	}
	rep.Add("activate", model.StepOK, prog.ServiceName())
	return nil
}

func (s *service) stopService(ctx context.Context, prog model.Program, rep *model.InstallReport) {
	if prog.Service == nil {
		rep.Add("stop service", model.StepSkipped, "no service section")
		return
	}
	if err := s.units.Stop(ctx, prog); err != nil {
		rep.Add("stop service", model.StepWarning, err.Error())
		return
	}
	rep.Add("stop service", model.StepOK, prog.ServiceName())
}

func removeSocket(prog model.Program, rep *model.InstallReport) error {
	if prog.SocketPath == "" {
		rep.Add("remove socket", model.StepSkipped, "no socket path")
		return nil
	}
	err := os.Remove(prog.SocketPath)
	switch {
	case err == nil:
		rep.Add("remove socket", model.StepOK, prog.SocketPath)
	case errors.Is(err, fs.ErrNotExist):
		rep.Add("remove socket", model.StepSkipped, prog.SocketPath+" absent")
	default:
		return fmt.Errorf("remove socket %s: %w", prog.SocketPath, err)
	}
	return nil
}

func (s *service) ensureAccount(ctx context.Context, project *model.Project, prog model.Program, rep *model.InstallReport) error {
	got, err := s.accounts.EnsureGroup(ctx, prog.Group)
	if err != nil {
		return err
	}
	rep.Add("group", model.StepOK, prog.Group+" "+got)

	got, err = s.accounts.EnsureUser(ctx, account.UserSpec{
		Name:   prog.User,
		Group:  prog.Group,
		Home:   prog.InstallDir,
		Shell:  project.Install.Shell,
		Groups: project.Install.Groups,
	})
	if err != nil {
		return err
	}
	rep.Add("user", model.StepOK, prog.User+" "+got)
	return nil
}

func (s *service) Uninstall(ctx context.Context, project *model.Project, prog model.Program) (*model.InstallReport, error) {
	rep := newReport(project, prog, ActionUninstall)
	if err := s.requireRoot(project); err != nil {
		return rep, err
	}
	live := !project.Install.Staged()

	switch {
	case prog.Service == nil:
		rep.Add("deactivate", model.StepSkipped, "no service section")
	case !live:
		rep.Add("deactivate", model.StepSkipped, "staged")
	default:
		warnStep(rep, "stop service", prog.ServiceName(), s.units.Stop(ctx, prog))
		warnStep(rep, "disable service", prog.ServiceName(), s.units.Disable(ctx, prog))
	}

	removed, err := s.units.RemoveUnit(project, prog)
	switch {
	case err != nil:
		rep.Add("remove unit", model.StepWarning, err.Error())
	case removed:
		rep.Add("remove unit", model.StepOK, systemd.UnitPath(project, prog))
	default:
		rep.Add("remove unit", model.StepSkipped, "absent")
	}
	if live && prog.Service != nil {
		warnStep(rep, "daemon-reload", "", s.units.Reload(ctx))
	}

	root := Root(project, prog)
	if filepath.Clean(root) == string(filepath.Separator) || prog.InstallDir == "" {
		rep.Add("remove tree", model.StepWarning, "refusing to remove "+root)
	} else if _, err := os.Lstat(root); errors.Is(err, fs.ErrNotExist) {
		rep.Add("remove tree", model.StepSkipped, "absent")
	} else {
		warnStep(rep, "remove tree", root, os.RemoveAll(root))
	}

	if !live {
		rep.Add("remove socket", model.StepSkipped, "staged")
		rep.Add("remove user", model.StepSkipped, "staged")
		rep.Add("remove group", model.StepSkipped, "staged")
		return rep, nil
	}

	if err := removeSocket(prog, rep); err != nil {
		rep.Add("remove socket", model.StepWarning, err.Error())
	}
	ok, err := s.accounts.RemoveUser(ctx, prog.User)
	removalStep(rep, "remove user", prog.User, ok, err)
	ok, err = s.accounts.RemoveGroup(ctx, prog.Group)
	removalStep(rep, "remove group", prog.Group, ok, err)

	if n := rep.Warnings(); n > 0 {
		s.log.Warn("uninstall finished with warnings", zap.String("program", prog.Name), zap.Int("warnings", n))
	}
	return rep, nil
}

func warnStep(rep *model.InstallReport, name, detail string, err error) {
	if err != nil {
		rep.Add(name, model.StepWarning, err.Error())
		return
	}
	rep.Add(name, model.StepOK, detail)
}

func removalStep(rep *model.InstallReport, name, detail string, removed bool, err error) {
	switch {
	case err != nil:
		rep.Add(name, model.StepWarning, err.Error())
	case removed:
		rep.Add(name, model.StepOK, detail)
	default:
		rep.Add(name, model.StepSkipped, detail+" absent")
	}
}

// chownTree is chown -R owner:group root without following symlinks.
func chownTree(root, owner, group string) error {
	u, err := user.Lookup(owner)
	if err != nil {
		return err
	}
	g, err := user.LookupGroup(group)
	if err != nil {
		return err
	}
	uid, err := strconv.Atoi(u.Uid)
	if err != nil {
		return err
	}
	gid, err := strconv.Atoi(g.Gid)
	if err != nil {
		return err
	}
	return filepath.WalkDir(root, func(p string, _ fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		return os.Lchown(p, uid, gid)
	})
}
