// Package toolchain drives the C and C++ compilers for release and debug
// builds, preprocess targets and lint.
package toolchain

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/mmo-fsw/maxbuild/model"
	"github.com/mmo-fsw/maxbuild/service/runner"
	"github.com/mmo-fsw/maxbuild/service/stamp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// NewService creates a toolchain service.
func NewService(r runner.Service, log *zap.Logger) Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &service{runner: r, log: log.Named("toolchain")}
}

func (s *service) Build(ctx context.Context, project *model.Project, prog model.Program, mode model.BuildMode, st model.Stamp) (*model.BuildResult, error) {
	started := time.Now()
	tc := project.ActiveToolchain()
	exe := project.Executable(prog, mode)
	objDir := objectDir(project, prog, mode)
	marker := linkMarker(project, prog, mode)

	if err := s.checkTools(tc, prog); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrBuildFailed, prog.Name, err)
	}

	units := make([]compileUnit, 0, len(prog.Sources))
	for _, src := range prog.Sources {
		obj := filepath.Join(objDir, objectName(src))
		units = append(units, compileUnit{
			source:  project.Path(src),
			object:  obj,
			depFile: strings.TrimSuffix(obj, ".o") + ".d",
			version: filepath.Clean(src) == filepath.Clean(prog.VersionSource),
		})
	}

	var compiled, upToDate atomic.Int32
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(project.Build.Jobs, 1))
	for _, u := range units {
		g.Go(func() error {
			stale, reason := needsCompile(u)
			if !stale {
				upToDate.Add(1)
				return nil
			}
			s.log.Debug("compile", zap.String("source", u.source), zap.String("reason", reason))
			if err := os.MkdirAll(filepath.Dir(u.object), 0o755); err != nil {
				return err
			}
			args := compileArgs(project, prog, mode, st, u.source)
			args = append(args, "-MMD", "-MP", "-MF", u.depFile, "-c", u.source, "-o", u.object)
			if err := s.runner.Run(gctx, runner.Command{Name: driverFor(tc, u.source), Args: args, Dir: project.Dir}); err != nil {
				return fmt.Errorf("%w: %s: %w", ErrBuildFailed, prog.Name, err)
			}
			compiled.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &model.BuildResult{
		Program:    prog.Name,
		Mode:       mode,
		Arch:       project.Build.Arch,
		Executable: exe,
		Compiled:   int(compiled.Load()),
		UpToDate:   int(upToDate.Load()),
		Stamp:      st,
	}

	objects := make([]string, 0, len(units))
	for _, u := range units {
		objects = append(objects, u.object)
	}
	if res.Compiled > 0 || needsLink(exe, objects) || linkedArch(marker) != project.Build.Arch {
		if err := os.MkdirAll(filepath.Dir(exe), 0o755); err != nil {
			return nil, err
		}
		args := append([]string{}, modeFlags(project, mode)...)
		args = append(args, prog.LDFlags...)
		args = append(args, objects...)
		args = append(args, "-o", exe)
		for _, lib := range prog.Libs {
			if !strings.HasPrefix(lib, "-") {
				lib = "-l" + lib
			}
			args = append(args, lib)
		}
		if err := s.runner.Run(ctx, runner.Command{Name: linkerFor(tc, prog), Args: args, Dir: project.Dir}); err != nil {
			return nil, fmt.Errorf("%w: %s: link: %w", ErrBuildFailed, prog.Name, err)
		}
		res.Linked = true
		if err := os.MkdirAll(filepath.Dir(marker), 0o755); err != nil {
			return nil, err
		}
		if err := os.WriteFile(marker, []byte(project.Build.Arch+"\n"), 0o644); err != nil {
			return nil, err
		}
	}

	size, sum, err := fileDigest(exe)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: executable not produced: %w", ErrBuildFailed, prog.Name, err)
	}
	res.Size = size
	res.SHA256 = sum
	res.Duration = time.Since(started)
	return res, nil
}

func (s *service) Preprocess(ctx context.Context, project *model.Project, target string, st model.Stamp) (*model.PreprocessResult, error) {
	stem := strings.TrimSuffix(target, PreSuffix)
	src, prog, err := resolveSource(project, stem)
	if err != nil {
		return nil, err
	}
	out := project.Path(target)
	driver := driverFor(project.ActiveToolchain(), src)
	if _, err := s.runner.LookPath(driver); err != nil {
		return nil, fmt.Errorf("preprocess %s: %w", target, err)
	}
	args := compileArgs(project, prog, model.ModeRelease, st, src)
	args = append(args, "-E", src, "-o", out)
	if err := s.runner.Run(ctx, runner.Command{Name: driver, Args: args, Dir: project.Dir}); err != nil {
		return nil, fmt.Errorf("preprocess %s: %w", target, err)
	}
	return &model.PreprocessResult{Source: src, Output: out}, nil
}

func (s *service) Lint(ctx context.Context, project *model.Project, prog model.Program) (*model.LintResult, error) {
	args := append([]string{}, project.Lint.Args...)
	for _, dir := range prog.IncludeDirs {
		args = append(args, "-I"+project.Path(dir))
	}
	args = append(args, defineArgs(prog.Defines)...)
	for _, src := range prog.Sources {
		args = append(args, project.Path(src))
	}

	if _, err := s.runner.LookPath(project.Lint.Tool); err != nil {
		return nil, err
	}

	res := &model.LintResult{Program: prog.Name, Files: len(prog.Sources)}
	out, err := s.runner.Output(ctx, runner.Command{Name: project.Lint.Tool, Args: args, Dir: project.Dir})
	res.Output = strings.TrimSpace(out)
	if err != nil {
		var exitErr *runner.ExitError
		if errors.As(err, &exitErr) {
			return res, fmt.Errorf("%w: %s", ErrLintFailed, prog.Name)
		}
		return res, err
	}
	res.Passed = true
	return res, nil
}

func (s *service) Clean(project *model.Project, progs []model.Program) (*model.CleanResult, error) {
	res := &model.CleanResult{}
	remove := func(path string) error {
		if _, err := os.Lstat(path); err != nil {
			return nil
		}
		if err := os.RemoveAll(path); err != nil {
			return err
		}
		res.Removed = append(res.Removed, path)
		return nil
	}

	for _, prog := range progs {
		for _, mode := range []model.BuildMode{model.ModeRelease, model.ModeDebug} {
			if err := remove(project.Executable(prog, mode)); err != nil {
				return res, err
			}
			objDirs, err := filepath.Glob(filepath.Join(project.OutputDir(mode), "obj", "*", prog.Name))
			if err != nil {
				return res, err
			}
			for _, dir := range append(objDirs, linkMarker(project, prog, mode)) {
				if err := remove(dir); err != nil {
					return res, err
				}
			}
		}
		bundles, err := filepath.Glob(filepath.Join(project.Path(project.Dist.Dir), prog.Name+"-*.tar.xz"))
		if err != nil {
			return res, err
		}
		for _, b := range bundles {
			if err := remove(b); err != nil {
				return res, err
			}
		}
		for _, src := range prog.Sources {
			if err := remove(project.Path(strings.TrimSuffix(src, filepath.Ext(src)) + PreSuffix)); err != nil {
				return res, err
			}
		}
	}

	var archDirs []string
	for _, mode := range []model.BuildMode{model.ModeRelease, model.ModeDebug} {
		dirs, _ := filepath.Glob(filepath.Join(project.OutputDir(mode), "obj", "*"))
		archDirs = append(archDirs, dirs...)
	}
	for _, dir := range append(archDirs,
		filepath.Join(project.OutputDir(model.ModeRelease), "obj"),
		filepath.Join(project.OutputDir(model.ModeDebug), "obj"),
		project.OutputDir(model.ModeRelease),
		project.OutputDir(model.ModeDebug),
		project.Path(project.Dist.Dir),
	) {
		removeIfEmpty(dir)
	}
	return res, nil
}

// checkTools resolves every driver the build needs before anything runs, so a
// missing cross compiler fails up front instead of after a partial build.
func (s *service) checkTools(tc model.Toolchain, prog model.Program) error {
	seen := map[string]bool{}
	tools := []string{linkerFor(tc, prog)}
	for _, src := range prog.Sources {
		tools = append(tools, driverFor(tc, src))
	}
	for _, tool := range tools {
		if seen[tool] {
			continue
		}
		seen[tool] = true
		if _, err := s.runner.LookPath(tool); err != nil {
			return err
		}
	}
	return nil
}

func compileArgs(project *model.Project, prog model.Program, mode model.BuildMode, st model.Stamp, src string) []string {
	args := append([]string{}, modeFlags(project, mode)...)
	if isCXX(src) {
		args = append(args, prog.CXXFlags...)
	} else {
		args = append(args, prog.CFlags...)
	}
	for _, dir := range prog.IncludeDirs {
		args = append(args, "-I"+project.Path(dir))
	}
	args = append(args, defineArgs(prog.Defines)...)
	return append(args, stamp.Defines(st, mode)...)
}

func modeFlags(project *model.Project, mode model.BuildMode) []string {
	if mode == model.ModeDebug {
		return project.Build.DebugFlags
	}
	return project.Build.ReleaseFlags
}

func defineArgs(defs []string) []string {
	out := make([]string, 0, len(defs))
	for _, d := range defs {
		if !strings.HasPrefix(d, "-D") {
			d = "-D" + d
		}
		out = append(out, d)
	}
	return out
}

func isCXX(src string) bool {
	return cxxExtensions[filepath.Ext(src)]
}

func driverFor(tc model.Toolchain, src string) string {
	if isCXX(src) {
		return tc.CXX
	}
	return tc.CC
}

func linkerFor(tc model.Toolchain, prog model.Program) string {
	for _, src := range prog.Sources {
		if isCXX(src) {
			return tc.CXX
		}
	}
	return tc.CC
}

// objectName maps a source path to a path below the object directory that
// cannot escape it.
func objectName(src string) string {
	clean := filepath.ToSlash(filepath.Clean(src))
	clean = strings.TrimPrefix(clean, "/")
	parts := strings.Split(clean, "/")
	for i, p := range parts {
		if p == ".." {
			parts[i] = "__"
		}
	}
	return filepath.FromSlash(strings.Join(parts, "/")) + ".o"
}

func resolveSource(project *model.Project, stem string) (string, model.Program, error) {
	cleanStem := filepath.Clean(stem)
	for _, prog := range project.Programs {
		for _, src := range prog.Sources {
			if filepath.Clean(strings.TrimSuffix(src, filepath.Ext(src))) == cleanStem {
				return project.Path(src), prog, nil
			}
		}
	}
	for _, ext := range sourceExtensions {
		candidate := project.Path(stem + ext)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, model.Program{}, nil
		}
	}
	return "", model.Program{}, fmt.Errorf("%w: %s%s", ErrNoSource, stem, PreSuffix)
}

func fileDigest(path string) (int64, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, "", err
	}
	defer f.Close()
	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return 0, "", err
	}
	return n, hex.EncodeToString(h.Sum(nil)), nil
}

func removeIfEmpty(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) > 0 {
		return
	}
	_ = os.Remove(dir)
}
