// Package config loads the maxbuild project manifest.
//
// Precedence, lowest first: compiled-in defaults, the YAML manifest,
// environment (STAGEDIR, GROUPS, ARCH, CC, CXX and their MAXBUILD_ forms),
// then command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mmo-fsw/maxbuild/model"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// NewService creates a config service reading the process environment.
func NewService() Service {
	return &service{getenv: os.Getenv, numCPU: runtime.NumCPU}
}

func (s *service) Load(flags model.Flags) (*model.Project, error) {
	path := flags.ConfigPath
	if strings.TrimSpace(path) == "" {
		path = "maxbuild.yaml"
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	v := viper.New()
	setDefaults(v, s.numCPU())
	v.SetConfigFile(abs)
	v.SetConfigType("yaml")
	if err := v.BindEnv("install.stage_dir", "MAXBUILD_STAGE_DIR", "STAGEDIR"); err != nil {
		return nil, err
	}
	if err := v.BindEnv("build.arch", "MAXBUILD_ARCH", "ARCH"); err != nil {
		return nil, err
	}
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("%w: failed to read manifest %s: %v", ErrInvalidConfig, abs, err)
	}

	project := &model.Project{}
	if err := v.Unmarshal(project); err != nil {
		return nil, fmt.Errorf("%w: failed to parse manifest: %v", ErrInvalidConfig, err)
	}
	project.Dir = filepath.Dir(abs)
	project.ManifestPath = abs

	if groups := s.lookupEnv("MAXBUILD_GROUPS", "GROUPS"); groups != "" {
		project.Install.Groups = SplitList(groups)
	}
	applyFlagOverrides(project, flags)
	s.applyCompilerEnv(project)
	applyProgramDefaults(project)

	if err := Validate(project); err != nil {
		return nil, err
	}
	return project, nil
}

func (s *service) lookupEnv(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(s.getenv(k)); v != "" {
			return v
		}
	}
	return ""
}

func applyFlagOverrides(project *model.Project, flags model.Flags) {
	if flags.Arch != "" {
		project.Build.Arch = flags.Arch
	}
	if flags.StageDir != nil {
		project.Install.StageDir = *flags.StageDir
	}
	if flags.Groups != nil {
		project.Install.Groups = flags.Groups
	}
	if flags.Jobs > 0 {
		project.Build.Jobs = flags.Jobs
	}
}

// applyCompilerEnv lets CC and CXX replace the active toolchain's drivers, as
// make does for its implicit rules.
func (s *service) applyCompilerEnv(project *model.Project) {
	cc := s.lookupEnv("MAXBUILD_CC", "CC")
	cxx := s.lookupEnv("MAXBUILD_CXX", "CXX")
	if cc == "" && cxx == "" {
		return
	}
	if project.Build.Toolchains == nil {
		project.Build.Toolchains = map[string]model.Toolchain{}
	}
	tc := project.Build.Toolchains[project.Build.Arch]
	if cc != "" {
		tc.CC = cc
	}
	if cxx != "" {
		tc.CXX = cxx
	}
	project.Build.Toolchains[project.Build.Arch] = tc
}

func applyProgramDefaults(project *model.Project) {
	for i := range project.Programs {
		p := &project.Programs[i]
		if p.VersionSource == "" && len(p.Sources) > 0 {
			p.VersionSource = p.Sources[0]
		}
		if p.User == "" {
			p.User = p.Name
		}
		if p.Group == "" {
			p.Group = p.User
		}
		if p.InstallDir == "" {
			p.InstallDir = filepath.Join(project.Install.Prefix, p.Name)
		}
		for j := range p.Files {
			if p.Files[j].Mode == 0 {
				p.Files[j].Mode = 0o644
			}
		}
		if p.Service != nil {
			if p.Service.Description == "" {
				p.Service.Description = p.Name
			}
			if p.Service.Restart == "" {
				p.Service.Restart = DefaultRestart
			}
			if p.Service.WantedBy == "" {
				p.Service.WantedBy = DefaultWantedBy
			}
		}
	}
}

// Validate checks struct tags and the cross-field rules tags cannot express.
func Validate(project *model.Project) error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(project); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if _, ok := project.Build.Toolchains[project.Build.Arch]; !ok {
		return fmt.Errorf("%w: no toolchain configured for arch %q", ErrInvalidConfig, project.Build.Arch)
	}
	for _, p := range project.Programs {
		if !filepath.IsAbs(p.InstallDir) {
			return fmt.Errorf("%w: program %s: install_dir %q must be absolute", ErrInvalidConfig, p.Name, p.InstallDir)
		}
		if p.SocketPath != "" && !filepath.IsAbs(p.SocketPath) {
			return fmt.Errorf("%w: program %s: socket_path %q must be absolute", ErrInvalidConfig, p.Name, p.SocketPath)
		}
		for _, f := range p.Files {
			if filepath.IsAbs(f.Dest) || strings.HasPrefix(filepath.Clean(f.Dest), "..") {
				return fmt.Errorf("%w: program %s: file dest %q must stay inside install_dir", ErrInvalidConfig, p.Name, f.Dest)
			}
		}
	}
	return nil
}

func (s *service) Select(project *model.Project, names []string) ([]model.Program, error) {
	if len(names) == 0 {
		return project.Programs, nil
	}
	out := make([]model.Program, 0, len(names))
	for _, name := range names {
		prog, ok := project.Program(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownProgram, name)
		}
		out = append(out, prog)
	}
	return out, nil
}

func (s *service) Dump(project *model.Project) ([]byte, error) {
	return yaml.Marshal(project)
}

// SplitList splits a GROUPS-style value on commas and whitespace.
func SplitList(raw string) []string {
	return strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
}
