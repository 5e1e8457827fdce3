// Package archive builds the runtime and source tar.xz bundles of a program
// and unpacks them at install time.
package archive

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/mmo-fsw/maxbuild/model"
	"github.com/mmo-fsw/maxbuild/service/stamp"
)

// NewService creates an archive service.
func NewService() Service {
	return &service{}
}

func (s *service) Dist(project *model.Project, prog model.Program, st model.Stamp) (*model.DistResult, error) {
	rt, rtSize, err := s.RuntimeBundle(project, prog, st)
	if err != nil {
		return nil, err
	}
	src, srcSize, err := s.SourceBundle(project, prog, st)
	if err != nil {
		return nil, err
	}
	return &model.DistResult{
		Program:       prog.Name,
		RuntimeBundle: rt,
		RuntimeSize:   rtSize,
		SourceBundle:  src,
		SourceSize:    srcSize,
	}, nil
}

func (s *service) RuntimeBundle(project *model.Project, prog model.Program, st model.Stamp) (string, int64, error) {
	exe := project.Executable(prog, model.ModeRelease)
	if info, err := os.Stat(exe); err != nil || info.IsDir() {
		return "", 0, fmt.Errorf("%w: %s not found", ErrNoReleaseBuild, exe)
	}

	entries := []Entry{
		{Name: "bin", Dir: true, Mode: dirMode},
		{Name: "bin/" + prog.Name, Mode: ExecutableMode, Source: exe},
	}
	for _, f := range prog.Files {
		name := path.Clean(filepath.ToSlash(f.Dest))
		if err := checkName(name); err != nil {
			return "", 0, err
		}
		for dir := path.Dir(name); dir != "."; dir = path.Dir(dir) {
			entries = append(entries, Entry{Name: dir, Dir: true, Mode: dirMode})
		}
		entries = append(entries, Entry{Name: name, Mode: f.Mode, Source: project.Path(f.Src)})
	}

	out := BundlePath(project, prog, st, "runtime")
	size, err := Write(out, entries, time.Unix(st.Epoch, 0))
	return out, size, err
}

func (s *service) SourceBundle(project *model.Project, prog model.Program, st model.Stamp) (string, int64, error) {
	var files []string
	files = append(files, prog.Sources...)
	for _, dir := range prog.IncludeDirs {
		found, err := walkFiles(project, dir)
		if err != nil {
			return "", 0, err
		}
		files = append(files, found...)
	}
	for _, p := range prog.DistFiles {
		found, err := walkFiles(project, p)
		if err != nil {
			return "", 0, err
		}
		files = append(files, found...)
	}
	if project.ManifestPath != "" {
		files = append(files, project.ManifestPath)
	}

	entries := []Entry{{Name: prog.Name, Dir: true, Mode: dirMode}}
	dirs := map[string]bool{}
	for _, f := range files {
		abs := project.Path(f)
		rel, err := filepath.Rel(project.Dir, abs)
		if err != nil {
			return "", 0, err
		}
		rel = filepath.ToSlash(rel)
		if checkName(rel) != nil {
			return "", 0, fmt.Errorf("%w: %s is outside %s", ErrUnsafePath, f, project.Dir)
		}
		name := path.Join(prog.Name, rel)
		info, err := os.Stat(abs)
		if err != nil {
			return "", 0, fmt.Errorf("dist %s: %w", prog.Name, err)
		}
		for dir := path.Dir(name); dir != prog.Name && dir != "."; dir = path.Dir(dir) {
			if !dirs[dir] {
				dirs[dir] = true
				entries = append(entries, Entry{Name: dir, Dir: true, Mode: dirMode})
			}
		}
		entries = append(entries, Entry{Name: name, Mode: info.Mode().Perm(), Source: abs})
	}

	out := BundlePath(project, prog, st, "src")
	size, err := Write(out, entries, time.Unix(st.Epoch, 0))
	return out, size, err
}

// BundlePath names a bundle as <dist>/<program>-<commit8>-<kind>.tar.xz.
func BundlePath(project *model.Project, prog model.Program, st model.Stamp, kind string) string {
	name := fmt.Sprintf("%s-%s-%s%s", prog.Name, stamp.Short(st), kind, bundleExt)
	return filepath.Join(project.Path(project.Dist.Dir), name)
}

// LatestBundles returns the runtime and source bundle of the most recently
// written commit in the dist directory. Both always come from the same commit.
func LatestBundles(project *model.Project, prog model.Program) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(project.Path(project.Dist.Dir), prog.Name+"-*"+bundleExt))
	if err != nil {
		return nil, err
	}

	type pair struct {
		files   map[string]string
		written time.Time
	}
	byCommit := map[string]*pair{}
	var newest *pair
	for _, m := range matches {
		commit, kind, ok := parseBundleName(prog.Name, filepath.Base(m))
		if !ok {
			continue
		}
		info, err := os.Stat(m)
		if err != nil {
			continue
		}
		p := byCommit[commit]
		if p == nil {
			p = &pair{files: map[string]string{}}
			byCommit[commit] = p
		}
		p.files[kind] = m
		if info.ModTime().After(p.written) {
			p.written = info.ModTime()
		}
		if newest == nil || p.written.After(newest.written) {
			newest = p
		}
	}
	if newest == nil {
		return nil, nil
	}
	var out []string
	for _, kind := range []string{"runtime", "src"} {
		if f, ok := newest.files[kind]; ok {
			out = append(out, f)
		}
	}
	return out, nil
}

// parseBundleName splits <program>-<commit8>-<kind>.tar.xz. Names of other
// programs sharing the prefix do not parse.
func parseBundleName(program, base string) (commit, kind string, ok bool) {
	rest, found := strings.CutPrefix(base, program+"-")
	if !found {
		return "", "", false
	}
	rest, found = strings.CutSuffix(rest, bundleExt)
	if !found {
		return "", "", false
	}
	commit, kind, found = strings.Cut(rest, "-")
	if !found || commit == "" || strings.Contains(kind, "-") {
		return "", "", false
	}
	if kind != "runtime" && kind != "src" {
		return "", "", false
	}
	return commit, kind, true
}

func walkFiles(project *model.Project, rel string) ([]string, error) {
	root := project.Path(rel)
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{root}, nil
	}
	var files []string
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			files = append(files, p)
		}
		return nil
	})
	return files, err
}

func checkName(name string) error {
	if name == "" || path.IsAbs(name) || strings.HasPrefix(name, "/") || name == ".." || strings.HasPrefix(name, "../") || strings.Contains(name, "/../") {
		return fmt.Errorf("%w: %q", ErrUnsafePath, name)
	}
	return nil
}
